package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostRepository_CreateWithImages(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "alice", models.RoleUser)

	post := &models.Post{
		Title:    "First Post",
		Slug:     "first-post",
		Content:  "hello",
		AuthorID: author.ID,
	}
	images := []NewImage{
		{Reference: "/uploads/blog-images/a.png", AltText: "a"},
		{Reference: "/uploads/blog-images/b.png"},
	}
	require.NoError(t, repo.CreateWithImages(ctx, post, images))
	assert.NotZero(t, post.ID)
	assert.Len(t, post.Images, 2)

	got, err := repo.GetBySlug(ctx, "first-post")
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/blog-images/a.png", "/uploads/blog-images/b.png"}, got.ImageRefs())
}

func TestPostRepository_CreateDuplicateSlug(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "alice", models.RoleUser)

	first := &models.Post{Title: "T", Slug: "same-slug", AuthorID: author.ID}
	require.NoError(t, repo.CreateWithImages(ctx, first, nil))

	dup := &models.Post{Title: "T", Slug: "same-slug", AuthorID: author.ID}
	err := repo.CreateWithImages(ctx, dup, []NewImage{{Reference: "/uploads/blog-images/x.png"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// The failed transaction must not leave image rows behind.
	var imageCount int64
	require.NoError(t, db.Model(&models.Image{}).Count(&imageCount).Error)
	assert.Zero(t, imageCount)
}

func TestPostRepository_UpdateReplacingImages(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "alice", models.RoleUser)
	post := &models.Post{Title: "T", Slug: "t", AuthorID: author.ID}
	require.NoError(t, repo.CreateWithImages(ctx, post, []NewImage{
		{Reference: "/uploads/blog-images/old-1.png"},
		{Reference: "/uploads/blog-images/old-2.png"},
	}))

	t.Run("nil images leave media untouched", func(t *testing.T) {
		post.Content = "edited"
		displaced, err := repo.UpdateReplacingImages(ctx, post, nil)
		require.NoError(t, err)
		assert.Empty(t, displaced)

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Content)
		assert.Len(t, got.Images, 2)
	})

	t.Run("non-nil images replace the set", func(t *testing.T) {
		displaced, err := repo.UpdateReplacingImages(ctx, post, []NewImage{
			{Reference: "/uploads/blog-images/new-1.png", AltText: "new"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			"/uploads/blog-images/old-1.png",
			"/uploads/blog-images/old-2.png",
		}, displaced)

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"/uploads/blog-images/new-1.png"}, got.ImageRefs())
	})
}

func TestPostRepository_DeleteCascade(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "alice", models.RoleUser)
	post := &models.Post{Title: "T", Slug: "t", AuthorID: author.ID}
	require.NoError(t, repo.CreateWithImages(ctx, post, []NewImage{
		{Reference: "/uploads/blog-images/a.png"},
	}))
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: author.ID, Body: "hi"}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: author.ID}).Error)

	refs, err := repo.DeleteCascade(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/blog-images/a.png"}, refs)

	for table, model := range map[string]interface{}{
		"comments": &models.Comment{},
		"likes":    &models.Like{},
		"images":   &models.Image{},
		"posts":    &models.Post{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%s not emptied", table)
	}

	_, err = repo.DeleteCascade(ctx, post.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestPostRepository_ListPagination(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "alice", models.RoleUser)
	category := testutil.SeedCategory(t, db, "go")

	for i := 0; i < 25; i++ {
		post := &models.Post{
			Title:    fmt.Sprintf("Post %d", i),
			Slug:     fmt.Sprintf("post-%d", i),
			AuthorID: author.ID,
		}
		if i%2 == 0 {
			post.CategoryID = &category.ID
		}
		require.NoError(t, repo.CreateWithImages(ctx, post, nil))
	}

	t.Run("defaults", func(t *testing.T) {
		page, err := repo.List(ctx, PostFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 10, page.PageSize)
		assert.Equal(t, int64(25), page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)
		assert.Len(t, page.Items, 10)
	})

	t.Run("page size clamped to 50", func(t *testing.T) {
		page, err := repo.List(ctx, PostFilter{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, 50, page.PageSize)
		assert.Equal(t, 1, page.TotalPages)
		assert.Len(t, page.Items, 25)
	})

	t.Run("last page is partial", func(t *testing.T) {
		page, err := repo.List(ctx, PostFilter{Page: 3, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
	})

	t.Run("category filter", func(t *testing.T) {
		page, err := repo.List(ctx, PostFilter{CategoryID: &category.ID, PageSize: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(13), page.TotalCount)
	})

	t.Run("empty page beyond range", func(t *testing.T) {
		page, err := repo.List(ctx, PostFilter{Page: 99})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, int64(25), page.TotalCount)
	})
}

func TestNormalizePagination(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
	}{
		{"zero values", 0, 0, 1, 10},
		{"negative values", -3, -5, 1, 10},
		{"over the cap", 2, 200, 2, 50},
		{"in range", 4, 25, 4, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := normalizePagination(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, size)
		})
	}
}
