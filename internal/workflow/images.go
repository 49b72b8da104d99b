package workflow

import (
	"context"
	"fmt"

	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/progress"
	"github.com/phrazzld/bookmark-enricher/internal/redact"
	"golang.org/x/sync/errgroup"
)

// Image stage names.
const (
	ImagesTask    = "Processing images"
	ImagesSubTask = "Curating images"
)

// ImageSelection is the structured image curation response.
type ImageSelection struct {
	Images []SelectedImage `json:"images" validate:"dive"`
}

// SelectedImage is one image the model considers relevant.
type SelectedImage struct {
	URL         string `json:"url"         validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var imageSelectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"images": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":         map[string]any{"type": "string"},
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
				},
				"required": []string{"url", "title", "description"},
			},
		},
	},
	"required": []string{"images"},
}

// Per-image outcomes reported in task.updated.
const (
	ImageStored = "stored"
	ImageFailed = "failed"
)

// ImageProgress is the task.updated detail for one image.
type ImageProgress struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// curateImages selects, fetches and stores images. A failed image is
// reported and skipped; only model errors and cancellation fail the stage.
func (p *Processor) curateImages(ctx context.Context, r *run) error {
	return r.tracker.RunStage(ctx, ImagesTask, ImagesSubTask, func(ctx context.Context, stage *progress.Stage) error {
		if len(r.content.Images) == 0 {
			r.logger.Debug("no images to curate")
			return p.save(ctx, r, domain.BookmarkPatch{Images: []domain.BookmarkImage{}})
		}

		selected, err := p.selectImages(ctx, r, stage)
		if err != nil {
			return err
		}

		results := make([]*domain.BookmarkImage, len(selected))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.FetchConcurrency)
		for i, img := range selected {
			g.Go(func() error {
				stored, err := p.storeImage(gctx, r, i, img)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					r.logger.Warn("failed to process image", "url", img.URL, "index", i, "error", err)
					stage.Update(ctx, ImageProgress{Index: i, URL: img.URL, Status: ImageFailed, Error: redact.Error(err)})
					return nil
				}
				results[i] = stored
				stage.Update(ctx, ImageProgress{Index: i, URL: img.URL, Status: ImageStored})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("image processing interrupted: %w", err)
		}

		images := make([]domain.BookmarkImage, 0, len(results))
		for _, img := range results {
			if img != nil {
				images = append(images, *img)
			}
		}
		r.logger.Info("images curated", "selected", len(selected), "stored", len(images))
		return p.save(ctx, r, domain.BookmarkPatch{Images: images})
	})
}

// selectImages asks the model for relevant images and keeps only URLs that
// were actually scraped, each once.
func (p *Processor) selectImages(ctx context.Context, r *run, stage *progress.Stage) ([]SelectedImage, error) {
	prompt, err := render(imagesTemplate, r.content)
	if err != nil {
		return nil, err
	}
	req := r.request(stage, p.cfg.Model, prompt)
	req.JSONSchema = imageSelectionSchema

	var sel ImageSelection
	if err := p.deps.Provider.GenerateStructured(ctx, req, &sel); err != nil {
		return nil, fmt.Errorf("image selection failed: %w", err)
	}

	known := make(map[string]bool, len(r.content.Images))
	for _, img := range r.content.Images {
		known[img.URL] = true
	}
	out := make([]SelectedImage, 0, len(sel.Images))
	for _, img := range sel.Images {
		if !known[img.URL] {
			r.logger.Warn("model selected an image that was not scraped", "url", img.URL)
			continue
		}
		known[img.URL] = false
		out = append(out, img)
	}
	return out, nil
}

func (p *Processor) storeImage(ctx context.Context, r *run, index int, sel SelectedImage) (*domain.BookmarkImage, error) {
	img, err := p.fetcher.Fetch(ctx, sel.URL)
	if err != nil {
		return nil, err
	}

	alt := sel.Title
	for _, s := range r.content.Images {
		if s.URL == sel.URL && s.Alt != "" {
			alt = s.Alt
			break
		}
	}

	ref, err := p.deps.Images.SaveImage(ctx, domain.ImageChunk{
		ScrapedContentID: r.content.ID,
		BookmarkID:       r.bookmark.ID,
		UserID:           r.bookmark.UserID,
		Index:            index,
		OriginalURL:      sel.URL,
		AltText:          alt,
		MIMEType:         img.MIMEType,
		Data:             img.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	return &domain.BookmarkImage{
		URL:         sel.URL,
		Title:       sel.Title,
		Description: sel.Description,
		MIMEType:    img.MIMEType,
		Size:        len(img.Data),
		StorageRef:  ref,
	}, nil
}
