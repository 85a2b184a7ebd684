// Package service contains the business logic sitting between handlers and
// repositories. Services receive an explicit Actor on every mutating call and
// run their authorization guards before any side effect.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"quill/internal/audit"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/slug"
	"quill/internal/storage"

	"gorm.io/gorm"
)

// ImageUpload is one image file submitted with a post.
type ImageUpload struct {
	Filename string
	AltText  string
	Data     []byte
}

// CreatePostInput carries the fields for a new post.
type CreatePostInput struct {
	Title      string
	Content    string
	CategoryID *uint
	Images     []ImageUpload
}

// UpdatePostInput carries the fields for a post edit. A nil or empty Images
// slice leaves the existing media untouched; providing files replaces the
// whole image set. The author and category references are fixed at creation
// and cannot be edited.
type UpdatePostInput struct {
	Title   string
	Content string
	Images  []ImageUpload
}

// PostService orchestrates post writes across the relational store and the
// blob store. Blobs are staged before the relational transaction commits and
// compensated if it fails, so a referenced blob always exists; orphan blobs
// may briefly exist and are cleaned up best-effort.
type PostService struct {
	posts repository.PostRepository
	blobs storage.BlobStore
	audit audit.Sink
	log   *slog.Logger
}

// NewPostService creates a new post service
func NewPostService(posts repository.PostRepository, blobs storage.BlobStore, sink audit.Sink, log *slog.Logger) *PostService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostService{posts: posts, blobs: blobs, audit: sink, log: log}
}

// CreatePost publishes a new post authored by the actor. Only admins may
// create posts.
func (s *PostService) CreatePost(ctx context.Context, actor models.Actor, input CreatePostInput) (*models.Post, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can create posts")
	}

	postSlug := slug.Generate(input.Title)
	if postSlug == "" {
		return nil, models.NewValidationError("Title must contain at least one letter or digit")
	}

	// Stage image blobs before touching the relational store. SaveMany is
	// all-or-nothing, so a staging failure needs no compensation here.
	refs, err := s.stageImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      input.Title,
		Slug:       postSlug,
		Content:    input.Content,
		AuthorID:   actor.ID,
		CategoryID: input.CategoryID,
	}

	// The commit and everything after it must survive a client disconnect:
	// abandoning mid-flight would strand staged blobs with no one left to
	// compensate them.
	cctx := context.WithoutCancel(ctx)

	if err := s.posts.CreateWithImages(cctx, post, attachRefs(refs, input.Images)); err != nil {
		s.blobs.DeleteMany(cctx, refs)
		return nil, translateCommitError(err, post)
	}

	s.recordAudit(cctx, "posts.create", auditSummary(input.Title, input.CategoryID, len(input.Images)), post, actor)
	return post, nil
}

// UpdatePost edits an existing post. The actor must be its author or an
// admin; the guard runs before any blob is staged.
func (s *PostService) UpdatePost(ctx context.Context, actor models.Actor, id uint, input UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Post", id)
	}
	if !actor.CanMutate(post.AuthorID) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	postSlug := slug.Generate(input.Title)
	if postSlug == "" {
		return nil, models.NewValidationError("Title must contain at least one letter or digit")
	}

	refs, err := s.stageImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Slug = postSlug
	post.Content = input.Content

	cctx := context.WithoutCancel(ctx)

	var newImages []repository.NewImage
	if len(input.Images) > 0 {
		newImages = attachRefs(refs, input.Images)
	}

	displaced, err := s.posts.UpdateReplacingImages(cctx, post, newImages)
	if err != nil {
		s.blobs.DeleteMany(cctx, refs)
		return nil, translateCommitError(err, post)
	}

	// The displaced blobs are unreferenced after the commit. Retiring them
	// is best-effort; a failure leaks a blob but the post is consistent.
	s.blobs.DeleteMany(cctx, displaced)

	s.recordAudit(cctx, "posts.update", auditSummary(input.Title, post.CategoryID, len(input.Images)), post, actor)
	return post, nil
}

// DeletePost removes a post and everything hanging off it. The actor must be
// its author or an admin.
func (s *PostService) DeletePost(ctx context.Context, actor models.Actor, id uint) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return translateLookupError(err, "Post", id)
	}
	if !actor.CanMutate(post.AuthorID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	cctx := context.WithoutCancel(ctx)

	refs, err := s.posts.DeleteCascade(cctx, id)
	if err != nil {
		return translateLookupError(err, "Post", id)
	}

	s.blobs.DeleteMany(cctx, refs)

	s.recordAudit(cctx, "posts.delete", map[string]uint{"id": id}, nil, actor)
	return nil
}

// GetPost fetches one post by ID.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Post", id)
	}
	return post, nil
}

// GetPostBySlug fetches one post by its slug.
func (s *PostService) GetPostBySlug(ctx context.Context, postSlug string) (*models.Post, error) {
	post, err := s.posts.GetBySlug(ctx, postSlug)
	if err != nil {
		return nil, translateLookupError(err, "Post", postSlug)
	}
	return post, nil
}

// ListPosts returns one page of posts under the given filter.
func (s *PostService) ListPosts(ctx context.Context, filter repository.PostFilter) (*repository.PostPage, error) {
	page, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return page, nil
}

func (s *PostService) stageImages(ctx context.Context, images []ImageUpload) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	uploads := make([]storage.Upload, 0, len(images))
	for _, img := range images {
		uploads = append(uploads, storage.Upload{Filename: img.Filename, Data: img.Data})
	}
	refs, err := s.blobs.SaveMany(ctx, uploads)
	if err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			return nil, err
		}
		return nil, models.NewStorageError(err)
	}
	return refs, nil
}

func (s *PostService) recordAudit(ctx context.Context, endpoint string, payload, response interface{}, actor models.Actor) {
	userID := actor.ID
	s.audit.Record(ctx, endpoint, auditJSON(payload), auditJSON(response), &userID)
}

func auditJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// auditSummary is the payload recorded for post writes. Image bytes are
// summarized as a count so audit rows stay small.
func auditSummary(title string, categoryID *uint, imageCount int) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"category_id": categoryID,
		"image_count": imageCount,
	}
}

func attachRefs(refs []string, images []ImageUpload) []repository.NewImage {
	rows := make([]repository.NewImage, 0, len(refs))
	for i, ref := range refs {
		row := repository.NewImage{Reference: ref}
		if i < len(images) {
			row.AltText = images[i].AltText
		}
		rows = append(rows, row)
	}
	return rows
}

// translateCommitError maps relational commit failures onto API errors.
func translateCommitError(err error, post *models.Post) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewConflictError(fmt.Sprintf("A post with slug %q already exists", post.Slug))
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		if post.CategoryID != nil {
			return models.NewNotFoundError("Category", *post.CategoryID)
		}
		return models.NewNotFoundError("User", post.AuthorID)
	default:
		return models.NewStorageError(err)
	}
}

// translateLookupError maps read failures onto API errors.
func translateLookupError(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
