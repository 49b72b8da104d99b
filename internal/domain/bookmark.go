package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus represents where a bookmark is in the enrichment pipeline.
type ProcessingStatus string

// Possible processing status values
const (
	ProcessingStatusIdle       ProcessingStatus = "idle"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// Valid reports whether s is a known status.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case ProcessingStatusIdle, ProcessingStatusProcessing,
		ProcessingStatusCompleted, ProcessingStatusFailed:
		return true
	default:
		return false
	}
}

// BookmarkImage is a curated image attached to a bookmark after enrichment.
type BookmarkImage struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
	Size        int    `json:"size,omitempty"`
	StorageRef  string `json:"storageRef,omitempty"`
}

// Bookmark is a saved link owned by a user. The enrichment fields are
// filled in by the worker; everything else is written by the front door.
type Bookmark struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	SourceURL    string     `json:"sourceUrl"`
	Title        string     `json:"title,omitempty"`
	CollectionID *uuid.UUID `json:"collectionId,omitempty"`

	Summary      string          `json:"summary,omitempty"`
	BriefSummary string          `json:"briefSummary,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Images       []BookmarkImage `json:"images,omitempty"`

	ProcessingStatus      ProcessingStatus `json:"processingStatus"`
	ProcessingStartedAt   *time.Time       `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time       `json:"processingCompletedAt,omitempty"`
	ProcessingError       string           `json:"processingError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks if the Bookmark has valid data.
func (b *Bookmark) Validate() error {
	if b.ID == uuid.Nil || b.UserID == uuid.Nil {
		return fmt.Errorf("%w: bookmark and user id are required", ErrInvalidID)
	}
	if b.SourceURL == "" {
		return fmt.Errorf("%w: source url is required", ErrValidation)
	}
	if !b.ProcessingStatus.Valid() {
		return ErrInvalidProcessingStatus
	}
	return nil
}

// Clone returns a deep copy, safe to hand to event subscribers while the
// workflow keeps mutating the original.
func (b *Bookmark) Clone() *Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	c.Tags = slices.Clone(b.Tags)
	c.Images = slices.Clone(b.Images)
	if b.CollectionID != nil {
		id := *b.CollectionID
		c.CollectionID = &id
	}
	if b.ProcessingStartedAt != nil {
		t := *b.ProcessingStartedAt
		c.ProcessingStartedAt = &t
	}
	if b.ProcessingCompletedAt != nil {
		t := *b.ProcessingCompletedAt
		c.ProcessingCompletedAt = &t
	}
	return &c
}

// BookmarkPatch is a partial update. Nil fields are left untouched; a nil
// Tags or Images slice means "unchanged" while an empty slice clears it.
type BookmarkPatch struct {
	Summary               *string
	BriefSummary          *string
	Tags                  []string
	Images                []BookmarkImage
	CollectionID          *uuid.UUID
	ProcessingStatus      *ProcessingStatus
	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time
	ProcessingError       *string
}

// IsEmpty reports whether the patch changes nothing.
func (p BookmarkPatch) IsEmpty() bool {
	return p.Summary == nil && p.BriefSummary == nil && p.Tags == nil &&
		p.Images == nil && p.CollectionID == nil && p.ProcessingStatus == nil &&
		p.ProcessingStartedAt == nil && p.ProcessingCompletedAt == nil &&
		p.ProcessingError == nil
}

// Validate rejects patches carrying an unknown processing status.
func (p BookmarkPatch) Validate() error {
	if p.ProcessingStatus != nil && !p.ProcessingStatus.Valid() {
		return ErrInvalidProcessingStatus
	}
	return nil
}

// Apply copies the set fields of p onto b.
func (p BookmarkPatch) Apply(b *Bookmark) {
	if p.Summary != nil {
		b.Summary = *p.Summary
	}
	if p.BriefSummary != nil {
		b.BriefSummary = *p.BriefSummary
	}
	if p.Tags != nil {
		b.Tags = slices.Clone(p.Tags)
	}
	if p.Images != nil {
		b.Images = slices.Clone(p.Images)
	}
	if p.CollectionID != nil {
		id := *p.CollectionID
		b.CollectionID = &id
	}
	if p.ProcessingStatus != nil {
		b.ProcessingStatus = *p.ProcessingStatus
	}
	if p.ProcessingStartedAt != nil {
		t := *p.ProcessingStartedAt
		b.ProcessingStartedAt = &t
	}
	if p.ProcessingCompletedAt != nil {
		t := *p.ProcessingCompletedAt
		b.ProcessingCompletedAt = &t
	}
	if p.ProcessingError != nil {
		b.ProcessingError = *p.ProcessingError
	}
}
