package service

import (
	"context"

	"quill/internal/audit"
	"quill/internal/models"
	"quill/internal/storage"
)

// ImageService handles standalone image uploads not attached to a post, such
// as editor assets. Admin only.
type ImageService struct {
	blobs storage.BlobStore
	audit audit.Sink
}

// NewImageService creates a new image service
func NewImageService(blobs storage.BlobStore, sink audit.Sink) *ImageService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &ImageService{blobs: blobs, audit: sink}
}

// Upload stores one image and returns its reference. The caller owns the
// reference's lifecycle from here on.
func (s *ImageService) Upload(ctx context.Context, actor models.Actor, img ImageUpload) (string, error) {
	if !actor.IsAdmin() {
		return "", models.NewForbiddenError("Only admins can upload images")
	}

	ref, err := s.blobs.Save(ctx, storage.Upload{Filename: img.Filename, Data: img.Data})
	if err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			return "", err
		}
		return "", models.NewStorageError(err)
	}

	s.audit.Record(ctx, "images.upload",
		auditJSON(map[string]string{"filename": img.Filename}), ref, &actor.ID)
	return ref, nil
}
