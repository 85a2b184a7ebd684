package service

import (
	"context"
	"strings"

	"quill/internal/audit"
	"quill/internal/models"
	"quill/internal/repository"
)

const maxCommentLength = 500

// CommentService manages comments on posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	audit    audit.Sink
}

// NewCommentService creates a new comment service
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, sink audit.Sink) *CommentService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &CommentService{comments: comments, posts: posts, audit: sink}
}

// AddComment attaches a comment by the actor to a post.
func (s *CommentService) AddComment(ctx context.Context, actor models.Actor, postID uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Comment body is required")
	}
	if len(body) > maxCommentLength {
		return nil, models.NewValidationError("Comment exceeds 500 characters")
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, translateLookupError(err, "Post", postID)
	}

	comment := &models.Comment{PostID: postID, UserID: actor.ID, Body: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.audit.Record(ctx, "comments.create",
		auditJSON(map[string]uint{"post_id": postID}), "", &actor.ID)
	return comment, nil
}

// UpdateComment edits a comment. The actor must be its author or an admin.
func (s *CommentService) UpdateComment(ctx context.Context, actor models.Actor, id uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Comment body is required")
	}
	if len(body) > maxCommentLength {
		return nil, models.NewValidationError("Comment exceeds 500 characters")
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Comment", id)
	}
	if !actor.CanMutate(comment.UserID) {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}

	comment.Body = body
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// DeleteComment removes a comment. The actor must be its author or an admin.
func (s *CommentService) DeleteComment(ctx context.Context, actor models.Actor, id uint) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return translateLookupError(err, "Comment", id)
	}
	if !actor.CanMutate(comment.UserID) {
		return models.NewForbiddenError("You can only delete your own comments")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return translateLookupError(err, "Comment", id)
	}
	s.audit.Record(ctx, "comments.delete", auditJSON(map[string]uint{"id": id}), "", &actor.ID)
	return nil
}

// ListComments returns a post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, translateLookupError(err, "Post", postID)
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
