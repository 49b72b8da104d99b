package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/progress"
)

// Metadata stage names.
const (
	MetadataTask = "Generating metadata"
	TagsSubTask  = "Generating tags"
)

const (
	maxTags      = 10
	maxTagLength = 50
)

// TagsResponse is the structured tags response.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"min=1,max=10,dive,required,max=50"`
}

var tagsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tags": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string", "maxLength": maxTagLength},
			"minItems": 1,
			"maxItems": maxTags,
		},
	},
	"required": []string{"tags"},
}

func (p *Processor) generateTags(ctx context.Context, r *run) error {
	return r.tracker.RunStage(ctx, MetadataTask, TagsSubTask, func(ctx context.Context, stage *progress.Stage) error {
		prompt, err := render(tagsTemplate, r.content)
		if err != nil {
			return err
		}
		req := r.request(stage, p.cfg.Model, prompt)
		req.JSONSchema = tagsSchema

		var resp TagsResponse
		if err := p.deps.Provider.GenerateStructured(ctx, req, &resp); err != nil {
			return fmt.Errorf("tag generation failed: %w", err)
		}

		tags := normalizeTags(resp.Tags)
		stage.Update(ctx, tags)
		return p.save(ctx, r, domain.BookmarkPatch{Tags: tags})
	})
}

// normalizeTags trims tags and drops exact duplicates, keeping order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
