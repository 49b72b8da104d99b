package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/events"
	"github.com/phrazzld/bookmark-enricher/internal/generation"
	"github.com/phrazzld/bookmark-enricher/internal/progress"
)

// Summarize stage names.
const (
	SummarizeTask    = "Summarizing content"
	SummarizeSubTask = "Summarizing content"
)

// BriefSummary is the structured brief summary response.
type BriefSummary struct {
	Summary string `json:"summary" validate:"required,max=1000"`
}

var briefSummarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{"type": "string"},
	},
	"required": []string{"summary"},
}

func (p *Processor) summarize(ctx context.Context, r *run) error {
	return r.tracker.RunStage(ctx, SummarizeTask, SummarizeSubTask, func(ctx context.Context, stage *progress.Stage) error {
		prompt, err := render(summarizeTemplate, r.content)
		if err != nil {
			return err
		}
		parts, err := p.deps.Provider.PromptStream(ctx, r.request(stage, p.cfg.Model, prompt))
		if err != nil {
			return fmt.Errorf("failed to start summary stream: %w", err)
		}

		// Deltas are published on a copy so the stored bookmark only sees
		// the final summary.
		live := r.bookmark.Clone()
		res, err := generation.Collect(ctx, parts, func(part generation.Part, text string) {
			if part.Type == generation.PartText {
				live.Summary = text
				r.tracker.Publish(ctx, events.BookmarkUpdated, live.Clone())
				return
			}
			p.forwardTelemetry(ctx, r, part)
		})
		if err != nil {
			return fmt.Errorf("summary stream failed: %w", err)
		}
		summary := strings.TrimSpace(res.Text)
		if summary == "" {
			return generation.ErrEmptyResponse
		}
		r.logger.Debug("summary generated", "length", len(summary), "total_tokens", res.Usage.TotalTokens)

		briefPrompt, err := render(briefSummaryTemplate, r.content)
		if err != nil {
			return err
		}
		req := r.request(stage, p.cfg.Model, briefPrompt)
		req.JSONSchema = briefSummarySchema
		var brief BriefSummary
		if err := p.deps.Provider.GenerateStructured(ctx, req, &brief); err != nil {
			return fmt.Errorf("brief summary request failed: %w", err)
		}
		briefText := strings.TrimSpace(brief.Summary)

		return p.save(ctx, r, domain.BookmarkPatch{
			Summary:      &summary,
			BriefSummary: &briefText,
		})
	})
}

// forwardTelemetry republishes tool and usage parts. Failed tool calls are
// reported as tool.failed.
func (p *Processor) forwardTelemetry(ctx context.Context, r *run, part generation.Part) {
	switch part.Type {
	case generation.PartTool:
		if part.Tool != nil && part.Tool.Status == generation.ToolError {
			r.tracker.Publish(ctx, events.ToolFailed, part)
			return
		}
		r.tracker.Publish(ctx, events.MessagePartUpdated, part)
	case generation.PartUsage:
		r.tracker.Publish(ctx, events.MessagePartUpdated, part)
	}
}
