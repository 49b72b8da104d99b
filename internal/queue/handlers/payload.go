package handlers

import (
	"github.com/google/uuid"
)

// Message types accepted by BookmarkHandler. "bookmark" is the legacy name
// still produced by older API builds.
const (
	TypeBookmarkProcess = "bookmark_process"
	TypeBookmarkLegacy  = "bookmark"
)

// Priority hints carried in payload metadata. The processor does not act on
// them yet.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the known priority hints.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// BookmarkPayload is the JSON body of a bookmark processing message.
type BookmarkPayload struct {
	Type     string          `json:"type"`
	Data     BookmarkData    `json:"data"`
	Metadata PayloadMetadata `json:"metadata"`
}

// BookmarkData identifies the bookmark to enrich.
type BookmarkData struct {
	BookmarkID   string `json:"bookmarkId"`
	UserID       string `json:"userId"`
	SourceURL    string `json:"sourceUrl,omitempty"`
	CollectionID string `json:"collectionId,omitempty"`
}

// PayloadMetadata describes where a message came from.
type PayloadMetadata struct {
	Source   string `json:"source,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// NewBookmarkMessage builds the payload for enriching a bookmark.
// collectionID may be nil.
func NewBookmarkMessage(bookmarkID, userID uuid.UUID, sourceURL string, collectionID *uuid.UUID, source string) BookmarkPayload {
	p := BookmarkPayload{
		Type: TypeBookmarkProcess,
		Data: BookmarkData{
			BookmarkID: bookmarkID.String(),
			UserID:     userID.String(),
			SourceURL:  sourceURL,
		},
		Metadata: PayloadMetadata{
			Source:   source,
			Priority: PriorityMedium,
		},
	}
	if collectionID != nil {
		p.Data.CollectionID = collectionID.String()
	}
	return p
}
