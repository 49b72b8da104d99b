package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/bookmark-enricher/internal/config"
	"github.com/phrazzld/bookmark-enricher/internal/generation"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	jsonMIMEType      = "application/json"
)

// Provider implements generation.Provider on top of the Gemini API.
type Provider struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the default model id, overridden per request by Request.Model
	model string

	maxRetries uint64
	retryDelay time.Duration
}

var _ generation.Provider = (*Provider)(nil)

// Option customizes a Provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	retryDelay time.Duration
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRetryDelay overrides the base backoff delay taken from the config.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// NewProvider creates a Provider from the LLM configuration.
//
// Parameters:
//   - ctx: Context for client initialization
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing API key, model name and retry settings
//   - opts: Optional overrides
//
// Returns:
//   - A ready Provider, or an error wrapping generation.ErrInvalidConfig
func NewProvider(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, opts ...Option) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	logger = logger.With("component", "gemini")

	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	if o.retryDelay > 0 {
		retryDelay = o.retryDelay
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.GeminiAPIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  o.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Provider{
		logger:     logger,
		client:     client,
		model:      cfg.ModelName,
		maxRetries: uint64(maxRetries),
		retryDelay: retryDelay,
	}, nil
}

// backoff returns a fresh policy; exponential backoffs carry attempt state.
func (p *Provider) backoff() retry.Backoff {
	b := retry.NewExponential(p.retryDelay)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(p.maxRetries, b)
}

func (p *Provider) modelFor(req generation.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

// attempt classifies err and marks transient failures for retry.Do,
// logging each one.
func (p *Provider) attempt(ctx context.Context, call string, n int, err error) error {
	mapped := classifyError(err)
	if !isTransient(mapped) {
		p.logger.ErrorContext(ctx, "gemini call failed", "call", call, "attempt", n, "error", mapped)
		return mapped
	}
	p.logger.WarnContext(ctx, "transient gemini failure",
		"call", call,
		"attempt", n,
		"max_attempts", p.maxRetries+1,
		"error", mapped)
	return retry.RetryableError(mapped)
}

// GenerateStructured requests JSON output and decodes it into out. Struct
// targets are validated with their validate tags; decode or validation
// failures wrap generation.ErrInvalidResponse and are not retried.
func (p *Provider) GenerateStructured(ctx context.Context, req generation.Request, out any) error {
	if out == nil {
		return errors.New("output target cannot be nil")
	}
	contents, cfg, err := buildRequest(req)
	if err != nil {
		return err
	}
	cfg.ResponseMIMEType = jsonMIMEType
	if req.JSONSchema != nil {
		cfg.ResponseJsonSchema = req.JSONSchema
	}

	model := p.modelFor(req)
	var text string
	n := 0
	err = retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		n++
		resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return p.attempt(ctx, "generate_structured", n, err)
		}
		if err := checkResponse(resp); err != nil {
			return err
		}
		text = resp.Text()
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "structured response received",
		"model", model,
		"attempts", n,
		"response_length", len(text))
	return generation.DecodeStructured(text, out)
}

// PromptStream starts a streaming completion. The call is retried on
// transient failures only until the first part reaches the consumer.
func (p *Provider) PromptStream(ctx context.Context, req generation.Request) (<-chan generation.Part, error) {
	contents, cfg, err := buildRequest(req)
	if err != nil {
		return nil, err
	}
	model := p.modelFor(req)

	return generation.NewStream(ctx, generation.DefaultStreamBuffer, func(ctx context.Context, emit generation.Emitter) error {
		n := 0
		return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
			n++
			s := streamState{req: req, emit: emit}
			for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
				if err != nil {
					if s.emitted {
						return classifyError(err)
					}
					return p.attempt(ctx, "prompt_stream", n, err)
				}
				if err := s.handle(resp); err != nil {
					return err
				}
				if s.stopped {
					return ctx.Err()
				}
			}
			return s.finish()
		})
	}), nil
}

// streamState turns stream chunks into parts for one attempt.
type streamState struct {
	req     generation.Request
	emit    generation.Emitter
	emitted bool
	stopped bool
	text    bool
	usage   *genai.GenerateContentResponseUsageMetadata
}

func (s *streamState) send(part generation.Part) {
	part.SessionID = s.req.SessionID
	part.TaskID = s.req.TaskID
	if !s.emit.Emit(part) {
		s.stopped = true
		return
	}
	s.emitted = true
}

func (s *streamState) handle(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if err := checkBlocked(resp); err != nil {
		return err
	}
	if resp.UsageMetadata != nil {
		// Gemini reports cumulative usage; the last chunk wins.
		s.usage = resp.UsageMetadata
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || s.stopped {
			continue
		}
		switch {
		case part.FunctionCall != nil:
			s.send(generation.Part{
				Type: generation.PartTool,
				Tool: &generation.ToolCall{
					CallID: part.FunctionCall.ID,
					Name:   part.FunctionCall.Name,
					Status: generation.ToolPending,
					Input:  part.FunctionCall.Args,
				},
			})
		case part.Text != "" && !part.Thought:
			s.text = true
			s.send(generation.TextPart(part.Text))
		}
	}
	return nil
}

func (s *streamState) finish() error {
	if s.usage != nil && !s.stopped {
		s.send(generation.Part{
			Type: generation.PartUsage,
			Usage: &generation.Usage{
				InputTokens:       s.usage.PromptTokenCount,
				OutputTokens:      s.usage.CandidatesTokenCount,
				TotalTokens:       s.usage.TotalTokenCount,
				ReasoningTokens:   s.usage.ThoughtsTokenCount,
				CachedInputTokens: s.usage.CachedContentTokenCount,
			},
		})
	}
	if !s.text && !s.stopped {
		return generation.ErrEmptyResponse
	}
	return nil
}

// buildRequest converts a generation request into genai contents and
// config.
func buildRequest(req generation.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents := make([]*genai.Content, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		role := genai.RoleUser
		if m.Role == generation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	if req.Prompt != "" {
		contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
	}
	if len(contents) == 0 {
		return nil, nil, ErrEmptyPrompt
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return contents, cfg, nil
}
