package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/phrazzld/bookmark-enricher/internal/config"
	"github.com/phrazzld/bookmark-enricher/internal/generation"
)

// validateConfig checks the LLM settings the provider cannot run without and
// warns about values it will replace with defaults.
//
// Parameters:
//   - ctx: Context for logging
//   - logger: Logger for recording validation results
//   - cfg: The LLM configuration to validate
//
// Returns:
//   - An error wrapping generation.ErrInvalidConfig if validation fails
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	logger.DebugContext(ctx, "validating LLM configuration")

	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "missing Gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "missing model name")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: base url %q is not absolute", generation.ErrInvalidConfig, cfg.BaseURL)
		}
	}

	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "invalid max retries value",
			"value", cfg.MaxRetries,
			"action", "using default value")
	}

	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "invalid retry delay value",
			"value", cfg.RetryDelaySeconds,
			"action", "using default value")
	}

	return nil
}
