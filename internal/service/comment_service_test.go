package service

import (
	"context"
	"strings"
	"testing"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentLifecycle(t *testing.T) {
	f := newPostFixture(t)
	svc := NewCommentService(repository.NewCommentRepository(f.db), repository.NewPostRepository(f.db), nil)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{Title: "Discuss"})
	require.NoError(t, err)

	comment, err := svc.AddComment(ctx, f.user, post.ID, "  nice post  ")
	require.NoError(t, err)
	assert.Equal(t, "nice post", comment.Body)
	assert.Equal(t, f.user.ID, comment.UserID)

	t.Run("author can edit", func(t *testing.T) {
		updated, err := svc.UpdateComment(ctx, f.user, comment.ID, "edited")
		require.NoError(t, err)
		assert.Equal(t, "edited", updated.Body)
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		stranger := testutil.SeedUser(t, f.db, "stranger", models.RoleUser)
		_, err := svc.UpdateComment(ctx, models.Actor{ID: stranger.ID, Role: models.RoleUser}, comment.ID, "hijack")
		require.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("admin can delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteComment(ctx, f.admin, comment.ID))
		comments, err := svc.ListComments(ctx, post.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})
}

func TestAddCommentValidation(t *testing.T) {
	f := newPostFixture(t)
	svc := NewCommentService(repository.NewCommentRepository(f.db), repository.NewPostRepository(f.db), nil)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{Title: "Discuss"})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, f.user, post.ID, "   ")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = svc.AddComment(ctx, f.user, post.ID, strings.Repeat("a", 501))
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = svc.AddComment(ctx, f.user, 9999, "hello")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestLikesAreIdempotent(t *testing.T) {
	f := newPostFixture(t)
	svc := NewLikeService(repository.NewLikeRepository(f.db), repository.NewPostRepository(f.db))
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{Title: "Popular"})
	require.NoError(t, err)

	require.NoError(t, svc.Like(ctx, f.user, post.ID))
	require.NoError(t, svc.Like(ctx, f.user, post.ID))

	count, err := svc.Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.Unlike(ctx, f.user, post.ID))
	require.NoError(t, svc.Unlike(ctx, f.user, post.ID))

	count, err = svc.Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
