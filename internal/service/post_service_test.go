package service

import (
	"context"
	"fmt"
	"testing"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type postFixture struct {
	db    *gorm.DB
	blobs *testutil.MemBlobStore
	svc   *PostService
	admin models.Actor
	user  models.Actor
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	db := testutil.NewDB(t)
	blobs := testutil.NewMemBlobStore()

	adminRow := testutil.SeedUser(t, db, "admin", models.RoleAdmin)
	userRow := testutil.SeedUser(t, db, "reader", models.RoleUser)

	return &postFixture{
		db:    db,
		blobs: blobs,
		svc:   NewPostService(repository.NewPostRepository(db), blobs, nil, nil),
		admin: models.Actor{ID: adminRow.ID, Role: models.RoleAdmin},
		user:  models.Actor{ID: userRow.ID, Role: models.RoleUser},
	}
}

func (f *postFixture) postCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&count).Error)
	return count
}

func (f *postFixture) imageRowCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Image{}).Count(&count).Error)
	return count
}

func twoImages() []ImageUpload {
	return []ImageUpload{
		{Filename: "one.png", AltText: "first", Data: []byte("png-bytes-1")},
		{Filename: "two.jpg", Data: []byte("jpg-bytes-2")},
	}
}

func TestCreatePost(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:   "Hello, World!!! 2024",
		Content: "body",
		Images:  twoImages(),
	})
	require.NoError(t, err)

	assert.Equal(t, "hello-world-2024", post.Slug)
	assert.Equal(t, f.admin.ID, post.AuthorID)
	require.Len(t, post.Images, 2)
	assert.Equal(t, "first", post.Images[0].AltText)

	// Every committed image row points at an existing blob.
	for _, ref := range post.ImageRefs() {
		assert.True(t, f.blobs.Has(ref), "row references missing blob %s", ref)
	}
	assert.Equal(t, 2, f.blobs.Len())
}

func TestCreatePostCompensatesOnDuplicateSlug(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{Title: "Taken Title"})
	require.NoError(t, err)

	_, err = f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:  "Taken Title",
		Images: twoImages(),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	// The failed commit must leave neither rows nor blobs behind.
	assert.Equal(t, int64(1), f.postCount(t))
	assert.Zero(t, f.imageRowCount(t))
	assert.Zero(t, f.blobs.Len(), "staged blobs were not compensated")
	assert.Len(t, f.blobs.DeleteCalls, 2)
}

func TestCreatePostGuards(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	t.Run("non-admin is rejected before staging", func(t *testing.T) {
		_, err := f.svc.CreatePost(ctx, f.user, CreatePostInput{
			Title:  "Sneaky",
			Images: twoImages(),
		})
		require.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
		assert.Zero(t, f.blobs.Len())
		assert.Zero(t, f.postCount(t))
	})

	t.Run("degenerate title is rejected before staging", func(t *testing.T) {
		_, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
			Title:  "!!! ??? ***",
			Images: twoImages(),
		})
		require.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		assert.Zero(t, f.blobs.Len())
		assert.Zero(t, f.postCount(t))
	})

	t.Run("unknown category maps to not found", func(t *testing.T) {
		missing := uint(9999)
		_, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
			Title:      "With Category",
			CategoryID: &missing,
			Images:     twoImages(),
		})
		require.Error(t, err)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
		assert.Zero(t, f.blobs.Len(), "staged blobs were not compensated")
	})
}

func TestCreatePostStagingFailure(t *testing.T) {
	f := newPostFixture(t)
	f.blobs.SaveErr = assert.AnError
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:  "Will Not Land",
		Images: twoImages(),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeStorage, models.ErrorCode(err))
	assert.Zero(t, f.postCount(t), "staging failed, nothing may commit")
}

func TestCreatePostWithoutImagesSkipsStorage(t *testing.T) {
	f := newPostFixture(t)
	f.blobs.SaveErr = assert.AnError // would fail any Save

	post, err := f.svc.CreatePost(context.Background(), f.admin, CreatePostInput{Title: "Text Only"})
	require.NoError(t, err)
	assert.Empty(t, post.Images)
	assert.Zero(t, f.blobs.Len())
}

func TestUpdatePostReplacesImages(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:  "Original",
		Images: twoImages(),
	})
	require.NoError(t, err)
	oldRefs := post.ImageRefs()

	updated, err := f.svc.UpdatePost(ctx, f.admin, post.ID, UpdatePostInput{
		Title:   "Original But Better",
		Content: "new body",
		Images:  []ImageUpload{{Filename: "three.webp", Data: []byte("webp-bytes")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "original-but-better", updated.Slug)
	require.Len(t, updated.Images, 1)
	newRef := updated.Images[0].Reference

	assert.True(t, f.blobs.Has(newRef))
	for _, ref := range oldRefs {
		assert.False(t, f.blobs.Has(ref), "displaced blob %s was not retired", ref)
	}
	assert.Equal(t, 1, f.blobs.Len())
}

func TestUpdatePostRetireFailureIsSwallowed(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:  "Leaky",
		Images: twoImages(),
	})
	require.NoError(t, err)
	oldRefs := post.ImageRefs()
	f.blobs.FailDelete[oldRefs[0]] = true

	updated, err := f.svc.UpdatePost(ctx, f.admin, post.ID, UpdatePostInput{
		Title:  "Leaky",
		Images: []ImageUpload{{Filename: "new.png", Data: []byte("x")}},
	})
	require.NoError(t, err, "a failed retire must not fail the update")

	// The leaked blob lingers but the post is fully consistent.
	assert.True(t, f.blobs.Has(oldRefs[0]))
	assert.False(t, f.blobs.Has(oldRefs[1]))
	require.Len(t, updated.Images, 1)
	assert.True(t, f.blobs.Has(updated.Images[0].Reference))
}

func TestUpdatePostKeepsImagesWhenNoneProvided(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:  "Stable Media",
		Images: twoImages(),
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdatePost(ctx, f.admin, post.ID, UpdatePostInput{
		Title:   "Stable Media",
		Content: "only the text changed",
	})
	require.NoError(t, err)
	assert.Equal(t, "only the text changed", updated.Content)
	assert.Equal(t, int64(2), f.imageRowCount(t))
}

func TestUpdatePostKeepsCategory(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, f.db, "engineering")
	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:      "Filed Under Engineering",
		CategoryID: &category.ID,
	})
	require.NoError(t, err)

	// Edits carry no category field; the reference set at creation survives.
	updated, err := f.svc.UpdatePost(ctx, f.admin, post.ID, UpdatePostInput{
		Title:   "Filed Under Engineering Still",
		Content: "revised body",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, category.ID, *updated.CategoryID)

	reloaded, err := f.svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.CategoryID)
	assert.Equal(t, category.ID, *reloaded.CategoryID)
	assert.Equal(t, 2, f.blobs.Len())
}

func TestUpdatePostForbiddenLeavesNoTrace(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{Title: "Owned"})
	require.NoError(t, err)

	_, err = f.svc.UpdatePost(ctx, f.user, post.ID, UpdatePostInput{
		Title:  "Hijacked",
		Images: twoImages(),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	// Guard runs before staging: nothing was written anywhere.
	assert.Zero(t, f.blobs.Len())
	got, err := f.svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owned", got.Title)
}

func TestDeletePost(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:  "Doomed",
		Images: twoImages(),
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Comment{PostID: post.ID, UserID: f.user.ID, Body: "bye"}).Error)
	require.NoError(t, f.db.Create(&models.Like{PostID: post.ID, UserID: f.user.ID}).Error)

	require.NoError(t, f.svc.DeletePost(ctx, f.admin, post.ID))

	assert.Zero(t, f.postCount(t))
	assert.Zero(t, f.imageRowCount(t))
	assert.Zero(t, f.blobs.Len(), "image blobs must be retired with the post")

	err = f.svc.DeletePost(ctx, f.admin, post.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestListPostsPagination(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
			Title: fmt.Sprintf("Post Number %d", i),
		})
		require.NoError(t, err)
	}

	page, err := f.svc.ListPosts(ctx, repository.PostFilter{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 10)
}
