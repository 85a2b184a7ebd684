// Package storage provides opaque-reference blob storage for image bytes.
//
// The store holds no relational knowledge: callers receive reference strings
// and own their lifecycle. Deletes are idempotent and best-effort because the
// relational store is the source of truth once a referencing row has
// committed; a delete failure may leak a blob but must never fail the
// operation that scheduled it.
package storage

import (
	"context"
)

// Upload is one pending blob write.
type Upload struct {
	Filename string
	Data     []byte
}

// BlobStore is the adapter over non-transactional image storage.
type BlobStore interface {
	// Save validates and writes a single blob, returning its opaque
	// reference. A failed Save never leaves a partially-written object.
	Save(ctx context.Context, up Upload) (string, error)

	// SaveMany writes all uploads or none: on failure it removes the blobs
	// it had already written before returning the error.
	SaveMany(ctx context.Context, ups []Upload) ([]string, error)

	// Delete removes one blob. Deleting a reference that does not exist is
	// not an error.
	Delete(ctx context.Context, ref string) error

	// DeleteMany removes blobs best-effort, logging failures instead of
	// returning them.
	DeleteMany(ctx context.Context, refs []string)
}
