package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/queue"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// ErrInvalidPayload is returned for bookmark messages missing their ids.
var ErrInvalidPayload = errors.New("invalid bookmark payload")

// BookmarkProcessor runs the enrichment workflow for one bookmark.
type BookmarkProcessor interface {
	Process(ctx context.Context, bookmarkID, userID uuid.UUID) error
}

// BookmarkHandler decodes bookmark messages and hands them to the
// enrichment workflow.
type BookmarkHandler struct {
	processor BookmarkProcessor
	logger    *slog.Logger
}

var _ queue.Handler = (*BookmarkHandler)(nil)

// NewBookmarkHandler creates a BookmarkHandler.
func NewBookmarkHandler(processor BookmarkProcessor, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{
		processor: processor,
		logger:    logger.With("component", "bookmark_handler"),
	}
}

// CanHandle accepts the current and legacy bookmark message types.
func (h *BookmarkHandler) CanHandle(msgType string) bool {
	return msgType == TypeBookmarkProcess || msgType == TypeBookmarkLegacy
}

// Handle processes a bookmark message. Malformed payloads and bookmarks
// that no longer exist fail permanently; every other error is retried.
func (h *BookmarkHandler) Handle(ctx context.Context, msg queue.Message) error {
	var payload BookmarkPayload
	if err := msg.Decode(&payload); err != nil {
		h.logger.Error("rejecting undecodable bookmark message", "msg_id", msg.ID, "error", err)
		return err
	}

	bookmarkID, userID, err := parseIDs(payload.Data)
	if err != nil {
		h.logger.Error("rejecting bookmark message", "msg_id", msg.ID, "error", err)
		return queue.Permanent(err)
	}

	log := logger.FromContext(ctx).With(
		"bookmark_id", bookmarkID,
		"user_id", userID,
		"source", payload.Metadata.Source,
		"priority", payload.Metadata.Priority,
	)
	log.Info("processing bookmark")

	if err := h.processor.Process(logger.WithLogger(ctx, log), bookmarkID, userID); err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("bookmark or its content no longer exists", "error", err)
			return queue.Permanent(fmt.Errorf("process bookmark %s: %w", bookmarkID, err))
		}
		return fmt.Errorf("process bookmark %s: %w", bookmarkID, err)
	}

	log.Info("bookmark processed")
	return nil
}

func parseIDs(data BookmarkData) (uuid.UUID, uuid.UUID, error) {
	if data.BookmarkID == "" || data.UserID == "" {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bookmarkId and userId are required", ErrInvalidPayload)
	}
	bookmarkID, err := uuid.Parse(data.BookmarkID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bookmarkId: %v", ErrInvalidPayload, err)
	}
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: userId: %v", ErrInvalidPayload, err)
	}
	return bookmarkID, userID, nil
}
