package categorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/generation"
	"github.com/phrazzld/bookmark-enricher/internal/progress"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// DefaultThreshold is the minimum confidence for reusing an existing
// category.
const DefaultThreshold = 0.7

// Stage names published with the categorization task.
const (
	TaskName    = "Categorizing bookmark"
	SubTaskName = "Analyzing content for categorization"
)

// Decision is the model's placement answer.
type Decision struct {
	ExistingCategoryID *string  `json:"existingCategoryId"`
	NewCategoryPath    []string `json:"newCategoryPath"    validate:"omitempty,dive,max=100"`
	Confidence         float64  `json:"confidence"         validate:"gte=0,lte=1"`
	Reasoning          string   `json:"reasoning"`
}

// decisionSchema constrains the model's JSON output to the Decision shape.
var decisionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"existingCategoryId": map[string]any{"type": []string{"string", "null"}},
		"newCategoryPath": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"reasoning":  map[string]any{"type": "string"},
	},
	"required": []string{"existingCategoryId", "newCategoryPath", "confidence", "reasoning"},
}

// Result is where the bookmark was placed.
type Result struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Path       []string  `json:"categoryPath"`
	IsNew      bool      `json:"isNewCategory"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

// Categorizer assigns bookmarks to categories.
type Categorizer struct {
	provider  generation.Provider
	store     store.CategoryStore
	logger    *slog.Logger
	threshold float64
	model     string
}

// Option customizes a Categorizer.
type Option func(*Categorizer)

// WithThreshold overrides DefaultThreshold. Values outside (0, 1] are
// ignored.
func WithThreshold(t float64) Option {
	return func(c *Categorizer) {
		if t > 0 && t <= 1 {
			c.threshold = t
		}
	}
}

// WithModel sets the model id used for categorization requests.
func WithModel(model string) Option {
	return func(c *Categorizer) { c.model = model }
}

// NewCategorizer creates a Categorizer.
func NewCategorizer(provider generation.Provider, categories store.CategoryStore, logger *slog.Logger, opts ...Option) *Categorizer {
	c := &Categorizer{
		provider:  provider,
		store:     categories,
		logger:    logger.With("component", "categorizer"),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize runs the categorization stage for bookmark. LLM, validation and
// storage errors fail the stage and are returned.
func (c *Categorizer) Categorize(
	ctx context.Context,
	tracker *progress.Tracker,
	bookmark *domain.Bookmark,
	content *domain.ScrapedContent,
) (Result, error) {
	var res Result
	err := tracker.RunStage(ctx, TaskName, SubTaskName, func(ctx context.Context, stage *progress.Stage) error {
		nodes, err := c.store.FindCategoryForest(ctx, bookmark.UserID)
		if err != nil {
			return fmt.Errorf("failed to load category forest: %w", err)
		}

		title := bookmark.Title
		if title == "" && content != nil {
			title = content.Title
		}
		prompt, err := BuildPrompt(PromptInput{
			Tree:      BuildTreeText(nodes),
			Title:     title,
			URL:       bookmark.SourceURL,
			Summary:   bookmark.Summary,
			Tags:      bookmark.Tags,
			Threshold: c.threshold,
		})
		if err != nil {
			return err
		}

		var d Decision
		err = c.provider.GenerateStructured(ctx, generation.Request{
			Model:      c.model,
			Prompt:     prompt,
			JSONSchema: decisionSchema,
			SessionID:  tracker.Session().ID,
			TaskID:     stage.Task().ID,
		}, &d)
		if err != nil {
			return fmt.Errorf("categorization request failed: %w", err)
		}

		res, err = c.apply(ctx, bookmark.UserID, nodes, d)
		if err != nil {
			return err
		}
		stage.Update(ctx, res)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	c.logger.InfoContext(ctx, "bookmark categorized",
		"bookmark_id", bookmark.ID,
		"category_id", res.CategoryID,
		"path", strings.Join(res.Path, " > "),
		"new", res.IsNew,
		"confidence", res.Confidence)
	return res, nil
}

// apply turns a decision into a category: a confident match on a known
// node is reused, then a suggested path is created, then Uncategorized.
func (c *Categorizer) apply(ctx context.Context, userID uuid.UUID, nodes []domain.CategoryNode, d Decision) (Result, error) {
	res := Result{Confidence: d.Confidence, Reasoning: d.Reasoning}

	if id, ok := c.confidentMatch(d); ok {
		path, err := ResolvePath(nodes, id)
		switch {
		case err == nil:
			res.CategoryID = id
			res.Path = path
			return res, nil
		case errors.Is(err, ErrCategoryCycle):
			return Result{}, err
		default:
			c.logger.WarnContext(ctx, "model chose an unknown category, ignoring it",
				"category_id", id,
				"error", err)
		}
	}

	path := cleanPath(d.NewCategoryPath)
	if len(path) == 0 {
		path = []string{domain.UncategorizedName}
	}

	node, err := c.store.CreateCategoryPath(ctx, userID, path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create category path: %w", err)
	}
	res.CategoryID = node.ID
	res.Path = path
	res.IsNew = true
	return res, nil
}

func (c *Categorizer) confidentMatch(d Decision) (uuid.UUID, bool) {
	if d.ExistingCategoryID == nil || d.Confidence < c.threshold {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(*d.ExistingCategoryID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// cleanPath trims segments and drops blank ones.
func cleanPath(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
