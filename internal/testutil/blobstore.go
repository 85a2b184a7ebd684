// Package testutil provides shared in-memory fakes for service tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"quill/internal/models"
	"quill/internal/storage"
)

// MemBlobStore is an in-memory storage.BlobStore with failure injection. It
// records every delete attempt so tests can assert compensation and retire
// behavior without touching the filesystem.
type MemBlobStore struct {
	mu  sync.Mutex
	seq int

	// Objects maps reference -> blob bytes.
	Objects map[string][]byte

	// SaveErr, when set, makes every Save fail before writing.
	SaveErr error

	// FailDelete lists references whose Delete should fail.
	FailDelete map[string]bool

	// DeleteCalls records references passed to Delete, in order.
	DeleteCalls []string
}

// NewMemBlobStore returns an empty store.
func NewMemBlobStore() *MemBlobStore {
	return &MemBlobStore{
		Objects:    make(map[string][]byte),
		FailDelete: make(map[string]bool),
	}
}

var _ storage.BlobStore = (*MemBlobStore)(nil)

func (m *MemBlobStore) Save(ctx context.Context, up storage.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	if len(up.Data) == 0 {
		return "", models.NewValidationError("Empty file")
	}

	m.seq++
	ref := fmt.Sprintf("/uploads/blog-images/mem-%04d%s", m.seq, strings.ToLower(filepath.Ext(up.Filename)))
	m.Objects[ref] = append([]byte(nil), up.Data...)
	return ref, nil
}

func (m *MemBlobStore) SaveMany(ctx context.Context, ups []storage.Upload) ([]string, error) {
	refs := make([]string, 0, len(ups))
	for _, up := range ups {
		ref, err := m.Save(ctx, up)
		if err != nil {
			m.DeleteMany(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (m *MemBlobStore) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, ref)
	if m.FailDelete[ref] {
		return models.NewStorageError(fmt.Errorf("injected delete failure for %s", ref))
	}
	delete(m.Objects, ref)
	return nil
}

func (m *MemBlobStore) DeleteMany(ctx context.Context, refs []string) {
	for _, ref := range refs {
		_ = m.Delete(ctx, ref)
	}
}

// Len returns the number of stored blobs.
func (m *MemBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

// Has reports whether ref is currently stored.
func (m *MemBlobStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[ref]
	return ok
}
