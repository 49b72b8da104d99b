// Package gcs stores fetched bookmark images in a Google Cloud Storage
// bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// ImageStore implements store.ImageStore on a GCS bucket. Object names are
// derived from the chunk's identity, so saving the same chunk again
// overwrites the earlier object.
type ImageStore struct {
	client *storage.Client
	bucket string
}

var _ store.ImageStore = (*ImageStore)(nil)

// NewImageStore creates an ImageStore writing to bucket.
func NewImageStore(client *storage.Client, bucket string) (*ImageStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	return &ImageStore{client: client, bucket: bucket}, nil
}

// ObjectName returns images/<scraped content id>/<index>.
func ObjectName(chunk domain.ImageChunk) string {
	return "images/" + chunk.ScrapedContentID.String() + "/" + strconv.Itoa(chunk.Index)
}

// SaveImage uploads the chunk and returns its gs:// URI.
func (s *ImageStore) SaveImage(ctx context.Context, chunk domain.ImageChunk) (string, error) {
	if len(chunk.Data) == 0 {
		return "", fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrEmptyContent)
	}

	name := ObjectName(chunk)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	// Images are small; a single multipart request is enough.
	w.ChunkSize = 0
	w.ContentType = chunk.MIMEType
	w.Metadata = map[string]string{
		"bookmark_id":  chunk.BookmarkID.String(),
		"user_id":      chunk.UserID.String(),
		"original_url": chunk.OriginalURL,
		"alt_text":     chunk.AltText,
	}

	if _, err := w.Write(chunk.Data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("write object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer for object %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}
