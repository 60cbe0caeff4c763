package localstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore keeps the bytes of locally stored uploads.
type BlobStore interface {
	Name() string
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	// URL returns an address clients can fetch key from.
	URL(ctx context.Context, key string) (string, error)
	// Check verifies the store is usable.
	Check(ctx context.Context) error
}

// NewStorageKey returns a date-partitioned key with a random UUID name and
// the extension of originalName.
func NewStorageKey(now time.Time, originalName string) (key, id string) {
	id = uuid.NewString()
	ext := strings.ToLower(path.Ext(originalName))
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), id, ext), id
}
