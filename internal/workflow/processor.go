package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/categorize"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/events"
	"github.com/phrazzld/bookmark-enricher/internal/generation"
	"github.com/phrazzld/bookmark-enricher/internal/platform/fetch"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/progress"
	"github.com/phrazzld/bookmark-enricher/internal/queue/handlers"
	"github.com/phrazzld/bookmark-enricher/internal/redact"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// MaxConcurrentFetches caps simultaneous image fetches across every run of
// a Processor.
const MaxConcurrentFetches = 5

// failureSaveTimeout bounds the write that records a failed run, which
// still happens when the run's context has been cancelled.
const failureSaveTimeout = 5 * time.Second

// Common errors
var (
	ErrNilBookmarkStore = errors.New("bookmark store cannot be nil")
	ErrNilImageStore    = errors.New("image store cannot be nil")
	ErrNilProvider      = errors.New("provider cannot be nil")
	ErrNilFetcher       = errors.New("fetcher cannot be nil")
	ErrNilCategorizer   = errors.New("categorizer cannot be nil")
	ErrNilPublisher     = errors.New("publisher cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")

	// ErrNoContent is returned when the scraped content has no text. It is a
	// not-found error so the message is not retried.
	ErrNoContent = fmt.Errorf("%w: scraped content has no text", store.ErrNotFound)
)

// Dependencies are the collaborators a Processor drives.
type Dependencies struct {
	Bookmarks   store.BookmarkStore
	Images      store.ImageStore
	Provider    generation.Provider
	Fetcher     fetch.Fetcher
	Categorizer *categorize.Categorizer
	Publisher   events.Publisher
}

func (d Dependencies) validate() error {
	switch {
	case d.Bookmarks == nil:
		return ErrNilBookmarkStore
	case d.Images == nil:
		return ErrNilImageStore
	case d.Provider == nil:
		return ErrNilProvider
	case d.Fetcher == nil:
		return ErrNilFetcher
	case d.Categorizer == nil:
		return ErrNilCategorizer
	case d.Publisher == nil:
		return ErrNilPublisher
	}
	return nil
}

// Config tunes a Processor.
type Config struct {
	// Model overrides the provider's default model for every request.
	Model string

	// FetchConcurrency limits image fetches within one run. It is further
	// capped by MaxConcurrentFetches.
	FetchConcurrency int
}

// Outcome is the payload of session.completed.
type Outcome struct {
	Bookmark *domain.Bookmark  `json:"bookmark"`
	Category categorize.Result `json:"category"`
}

// Processor runs the enrichment workflow. It is safe for concurrent use;
// each call to Process is an independent run.
type Processor struct {
	deps    Dependencies
	fetcher fetch.Fetcher
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

var _ handlers.BookmarkProcessor = (*Processor)(nil)

// NewProcessor creates a Processor. The fetcher is wrapped so that every
// run shares one MaxConcurrentFetches budget.
func NewProcessor(deps Dependencies, cfg Config, logger *slog.Logger) (*Processor, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.FetchConcurrency <= 0 || cfg.FetchConcurrency > MaxConcurrentFetches {
		cfg.FetchConcurrency = MaxConcurrentFetches
	}

	return &Processor{
		deps:    deps,
		fetcher: fetch.NewLimited(deps.Fetcher, MaxConcurrentFetches),
		cfg:     cfg,
		logger:  logger.With("component", "workflow"),
		now:     time.Now,
	}, nil
}

// run is the state of one Process call. Stages run sequentially, so only
// the image fan-out touches it from more than one goroutine, and that code
// does not mutate it.
type run struct {
	tracker  *progress.Tracker
	bookmark *domain.Bookmark
	content  *domain.ScrapedContent
	logger   *slog.Logger
}

func (r *run) request(stage *progress.Stage, model, prompt string) generation.Request {
	return generation.Request{
		Model:     model,
		Prompt:    prompt,
		SessionID: r.tracker.Session().ID,
		TaskID:    stage.Task().ID,
	}
}

// Process enriches one bookmark. Missing bookmarks or content return a
// store.ErrNotFound error before any model call is made. Any stage failure
// is recorded on the bookmark and returned.
func (p *Processor) Process(ctx context.Context, bookmarkID, userID uuid.UUID) error {
	log := p.loggerFor(ctx).With("bookmark_id", bookmarkID, "user_id", userID)

	// 1. Load the inputs
	bookmark, err := p.deps.Bookmarks.FindBookmark(ctx, bookmarkID, userID)
	if err != nil {
		return fmt.Errorf("failed to load bookmark: %w", err)
	}
	content, err := p.deps.Bookmarks.GetScrapedContent(ctx, bookmarkID)
	if err != nil {
		return fmt.Errorf("failed to load scraped content: %w", err)
	}
	if !content.HasText() {
		return ErrNoContent
	}

	// 2. Mark the bookmark as processing
	status := domain.ProcessingStatusProcessing
	startedAt := p.now().UTC()
	noError := ""
	bookmark, err = p.deps.Bookmarks.UpdateBookmark(ctx, bookmarkID, domain.BookmarkPatch{
		ProcessingStatus:    &status,
		ProcessingStartedAt: &startedAt,
		ProcessingError:     &noError,
	})
	if err != nil {
		return fmt.Errorf("failed to update bookmark status to processing: %w", err)
	}

	// 3. Open the session
	session := progress.NewSession(bookmarkID.String())
	log = log.With("session_id", session.ID)
	r := &run{
		tracker:  progress.NewTracker(p.deps.Publisher, session, log),
		bookmark: bookmark,
		content:  content,
		logger:   log,
	}
	if closer, ok := p.deps.Publisher.(interface{ CloseEntity(string) }); ok {
		defer closer.CloseEntity(session.RefID)
	}
	r.tracker.SessionStarted(ctx)
	log.Info("enrichment started", "images", len(content.Images))

	// 4. Run the stages
	category, err := p.runStages(ctx, r)
	if err != nil {
		p.fail(ctx, r, err)
		return err
	}

	// 5. Finalize
	completed := domain.ProcessingStatusCompleted
	completedAt := p.now().UTC()
	if err := p.save(ctx, r, domain.BookmarkPatch{
		CollectionID:          &category.CategoryID,
		ProcessingStatus:      &completed,
		ProcessingCompletedAt: &completedAt,
	}); err != nil {
		p.fail(ctx, r, err)
		return err
	}

	r.tracker.SessionCompleted(ctx, Outcome{Bookmark: r.bookmark.Clone(), Category: category})
	log.Info("enrichment completed",
		"category_id", category.CategoryID,
		"tags", len(r.bookmark.Tags),
		"images", len(r.bookmark.Images),
		"duration_ms", completedAt.Sub(startedAt).Milliseconds())
	return nil
}

func (p *Processor) runStages(ctx context.Context, r *run) (categorize.Result, error) {
	if err := p.summarize(ctx, r); err != nil {
		return categorize.Result{}, err
	}
	if err := p.generateTags(ctx, r); err != nil {
		return categorize.Result{}, err
	}
	if err := p.curateImages(ctx, r); err != nil {
		return categorize.Result{}, err
	}
	return p.deps.Categorizer.Categorize(ctx, r.tracker, r.bookmark, r.content)
}

// save applies patch, adopts the stored bookmark and publishes it.
func (p *Processor) save(ctx context.Context, r *run, patch domain.BookmarkPatch) error {
	updated, err := p.deps.Bookmarks.UpdateBookmark(ctx, r.bookmark.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	r.bookmark = updated
	r.tracker.Publish(ctx, events.BookmarkUpdated, updated.Clone())
	return nil
}

// fail records the failure on the bookmark and closes the session with
// session.error. The write outlives a cancelled run context.
func (p *Processor) fail(ctx context.Context, r *run, cause error) {
	r.logger.Error("enrichment failed", "error", cause)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSaveTimeout)
	defer cancel()

	status := domain.ProcessingStatusFailed
	msg := redact.Error(cause)
	if _, err := p.deps.Bookmarks.UpdateBookmark(saveCtx, r.bookmark.ID, domain.BookmarkPatch{
		ProcessingStatus: &status,
		ProcessingError:  &msg,
	}); err != nil {
		r.logger.Error("failed to record enrichment failure", "error", err)
	}
	r.tracker.SessionFailed(saveCtx, cause)
}

func (p *Processor) loggerFor(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != slog.Default() {
		return l.With("component", "workflow")
	}
	return p.logger
}
