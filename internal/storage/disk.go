package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"quill/internal/models"

	"github.com/google/uuid"

	_ "image/gif"  // register decoders for content sniffing
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxUploadBytes caps a single image at 5 MiB.
	DefaultMaxUploadBytes = 5 * 1024 * 1024

	// refPrefix is the URL namespace all references live under.
	refPrefix = "/uploads/blog-images"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// DiskStore stores blobs as files under a root directory. References have the
// form /uploads/blog-images/<uuid><ext>.
type DiskStore struct {
	root     string
	maxBytes int64
	log      *slog.Logger
}

// NewDiskStore creates a DiskStore rooted at dir. maxBytes <= 0 selects the
// default 5 MiB cap.
func NewDiskStore(dir string, maxBytes int64, log *slog.Logger) *DiskStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = slog.Default()
	}
	return &DiskStore{root: dir, maxBytes: maxBytes, log: log}
}

// Save validates and writes one blob. The bytes land in a temp file first and
// are renamed into place, so a failed write never leaves a partial object.
func (s *DiskStore) Save(ctx context.Context, up Upload) (string, error) {
	if err := s.validate(up); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return "", models.NewStorageError(err)
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	name := uuid.NewString() + ext
	final := filepath.Join(s.root, name)

	tmp, err := os.CreateTemp(s.root, ".staging-*")
	if err != nil {
		return "", models.NewStorageError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(up.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", models.NewStorageError(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", models.NewStorageError(err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", models.NewStorageError(err)
	}

	return path.Join(refPrefix, name), nil
}

// SaveMany stages all uploads or none.
func (s *DiskStore) SaveMany(ctx context.Context, ups []Upload) ([]string, error) {
	refs := make([]string, 0, len(ups))
	for _, up := range ups {
		ref, err := s.Save(ctx, up)
		if err != nil {
			s.DeleteMany(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Delete removes one blob. A missing blob is not an error.
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	full, err := s.refPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return models.NewStorageError(err)
	}
	return nil
}

// DeleteMany removes blobs best-effort. Failures are logged as leaked
// storage; the relational commit they follow has already succeeded.
func (s *DiskStore) DeleteMany(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.Delete(ctx, ref); err != nil {
			s.log.WarnContext(ctx, "leaked blob: delete failed",
				slog.String("reference", ref),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *DiskStore) validate(up Upload) error {
	if len(up.Data) == 0 {
		return models.NewValidationError("Empty file")
	}
	if int64(len(up.Data)) > s.maxBytes {
		return models.NewValidationError(
			fmt.Sprintf("File size exceeds %dMB limit", s.maxBytes/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return models.NewValidationError("Invalid file type. Only images are allowed.")
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(up.Data)); err != nil {
		return models.NewValidationError("File content is not a supported image")
	}

	return nil
}

// refPath maps an opaque reference back to a filesystem path, rejecting
// anything outside the store's namespace.
func (s *DiskStore) refPath(ref string) (string, error) {
	name := strings.TrimPrefix(ref, refPrefix+"/")
	if name == ref || name == "" || name != filepath.Base(name) {
		return "", models.NewValidationError("Invalid blob reference")
	}
	return filepath.Join(s.root, name), nil
}
