package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/repository"
)

// LikeService manages post likes.
type LikeService struct {
	likes repository.LikeRepository
	posts repository.PostRepository
}

// NewLikeService creates a new like service
func NewLikeService(likes repository.LikeRepository, posts repository.PostRepository) *LikeService {
	return &LikeService{likes: likes, posts: posts}
}

// Like records the actor's like on a post. Liking twice is a no-op.
func (s *LikeService) Like(ctx context.Context, actor models.Actor, postID uint) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return translateLookupError(err, "Post", postID)
	}
	if err := s.likes.Like(ctx, postID, actor.ID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Unlike removes the actor's like. Removing an absent like is a no-op.
func (s *LikeService) Unlike(ctx context.Context, actor models.Actor, postID uint) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return translateLookupError(err, "Post", postID)
	}
	if err := s.likes.Unlike(ctx, postID, actor.ID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Count returns the number of likes on a post.
func (s *LikeService) Count(ctx context.Context, postID uint) (int64, error) {
	count, err := s.likes.Count(ctx, postID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
