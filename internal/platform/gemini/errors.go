package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/bookmark-enricher/internal/generation"
	"google.golang.org/genai"
)

// ErrEmptyPrompt is returned when a request carries neither a prompt nor
// any messages.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// classifyError maps a genai call failure onto the generation sentinels.
// Failures another attempt could fix wrap generation.ErrTransientFailure.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if isTransientStatus(apiErr.Code) {
			return fmt.Errorf("%w: gemini returned %d %s: %s",
				generation.ErrTransientFailure, apiErr.Code, apiErr.Status, apiErr.Message)
		}
		return fmt.Errorf("%w: gemini returned %d %s: %s",
			generation.ErrGenerationFailed, apiErr.Code, apiErr.Status, apiErr.Message)
	}

	// Anything else failed before a response arrived: DNS, resets, timeouts.
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

func isTransient(err error) bool {
	return errors.Is(err, generation.ErrTransientFailure)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// checkBlocked reports safety blocks on either the prompt or the first
// candidate.
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil &&
		resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	return nil
}

// checkResponse rejects unary responses that carry no usable candidate.
func checkResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if err := checkBlocked(resp); err != nil {
		return err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].Content == nil {
		return fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}
	return nil
}
