package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Images   ImagesConfig   `mapstructure:"images"   validate:"required"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig contains the ops HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"       validate:"required,url"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=0"`
}

// QueueConfig controls the queue processor. Durations are expressed the way
// operators set them in the environment: milliseconds for intervals and
// timeouts, seconds for the queue visibility window.
type QueueConfig struct {
	Names                   []string `mapstructure:"names"                     validate:"required,min=1,dive,required"`
	PollIntervalMS          int      `mapstructure:"poll_interval"             validate:"gt=0"`
	MaxRetries              int      `mapstructure:"max_retries"               validate:"gte=0"`
	BatchSize               int      `mapstructure:"batch_size"                validate:"gt=0,lte=1000"`
	GracefulShutdownTimeout int      `mapstructure:"graceful_shutdown_timeout" validate:"gt=0"`
	VisibilityTimeout       int      `mapstructure:"visibility_timeout"        validate:"gt=0"`
	AutoStart               bool     `mapstructure:"auto_start"`
	Backend                 string   `mapstructure:"backend"                   validate:"oneof=pgmq memory"`
}

// PollInterval returns the idle sleep between empty polls.
func (q QueueConfig) PollInterval() time.Duration {
	return time.Duration(q.PollIntervalMS) * time.Millisecond
}

// ShutdownTimeout returns how long Stop waits for in-flight batches.
func (q QueueConfig) ShutdownTimeout() time.Duration {
	return time.Duration(q.GracefulShutdownTimeout) * time.Millisecond
}

// Visibility returns how long a claimed message stays hidden.
func (q QueueConfig) Visibility() time.Duration {
	return time.Duration(q.VisibilityTimeout) * time.Second
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	BaseURL           string  `mapstructure:"base_url"            validate:"omitempty,url"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst"               validate:"gte=0"`
	CategoryThreshold float64 `mapstructure:"category_threshold"  validate:"gt=0,lte=1"`
}

// ImagesConfig controls image curation and storage.
type ImagesConfig struct {
	FetchConcurrency    int    `mapstructure:"fetch_concurrency"     validate:"gt=0,lte=64"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" validate:"gt=0"`
	MaxBytes            int64  `mapstructure:"max_bytes"             validate:"gt=0"`
	AllowPrivateHosts   bool   `mapstructure:"allow_private_hosts"`
	Backend             string `mapstructure:"backend"               validate:"oneof=postgres gcs"`
	GCSBucket           string `mapstructure:"gcs_bucket"            validate:"required_if=Backend gcs"`
}

// FetchTimeout returns the per-image HTTP timeout.
func (i ImagesConfig) FetchTimeout() time.Duration {
	return time.Duration(i.FetchTimeoutSeconds) * time.Second
}

// EventsConfig configures optional progress event sinks. Leaving the
// Pub/Sub project empty disables the Pub/Sub sink.
type EventsConfig struct {
	SubscriberBuffer int    `mapstructure:"subscriber_buffer" validate:"gte=0"`
	PubSubProject    string `mapstructure:"pubsub_project"`
	PubSubTopic      string `mapstructure:"pubsub_topic"      validate:"required_with=PubSubProject"`
}
