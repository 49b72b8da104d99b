package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// defaults mirrors the values the worker ships with. Every key needs a
// default so that viper.Unmarshal picks up the matching environment variable.
var defaults = map[string]any{
	"server.port":      8080,
	"server.log_level": "info",

	"database.url":       "",
	"database.max_conns": 10,

	"queue.names":                     []string{"bookmarks"},
	"queue.poll_interval":             5000,
	"queue.max_retries":               3,
	"queue.batch_size":                10,
	"queue.graceful_shutdown_timeout": 30000,
	"queue.visibility_timeout":        30,
	"queue.auto_start":                true,
	"queue.backend":                   "pgmq",

	"llm.gemini_api_key":      "",
	"llm.model_name":          "gemini-2.0-flash",
	"llm.base_url":            "",
	"llm.max_retries":         3,
	"llm.retry_delay_seconds": 2,
	"llm.requests_per_second": 2.0,
	"llm.burst":               4,
	"llm.category_threshold":  0.7,

	"images.fetch_concurrency":     5,
	"images.fetch_timeout_seconds": 15,
	"images.max_bytes":             5 << 20,
	"images.allow_private_hosts":   false,
	"images.backend":               "postgres",
	"images.gcs_bucket":            "",

	"events.subscriber_buffer": 64,
	"events.pubsub_project":    "",
	"events.pubsub_topic":      "",
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over the
// file. Keys map to variables by upper-casing and replacing dots with
// underscores, so queue.names is read from QUEUE_NAMES.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Queue.Names = normalizeNames(cfg.Queue.Names)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// normalizeNames trims whitespace around queue names and drops empty entries
// left by stray commas.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
