// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"math"

	"quill/internal/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// NewImage is one image row to attach to a post. The reference must already
// point at a committed blob.
type NewImage struct {
	Reference string
	AltText   string
}

// PostFilter narrows and paginates a post listing.
type PostFilter struct {
	CategoryID *uint
	AuthorID   *uint
	Page       int
	PageSize   int
}

// PostPage is one page of a post listing with totals computed under the same
// filter.
type PostPage struct {
	Items      []models.Post `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// PostRepository defines the interface for post data operations. All
// multi-row mutations run inside a single explicit transaction.
type PostRepository interface {
	// CreateWithImages inserts the post and its image rows atomically.
	CreateWithImages(ctx context.Context, post *models.Post, images []NewImage) error

	// UpdateReplacingImages saves the post's scalar columns. When images is
	// non-nil the existing image rows are replaced and the displaced blob
	// references are returned; a nil slice leaves media untouched and
	// returns no references.
	UpdateReplacingImages(ctx context.Context, post *models.Post, images []NewImage) ([]string, error)

	// DeleteCascade removes the post together with its images, comments and
	// likes, returning the blob references of the removed image rows.
	DeleteCascade(ctx context.Context, id uint) ([]string, error)

	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) (*PostPage, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreateWithImages(ctx context.Context, post *models.Post, images []NewImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images", "Author", "Category").Create(post).Error; err != nil {
			return err
		}
		for _, img := range images {
			row := models.Image{
				PostID:    post.ID,
				Reference: img.Reference,
				AltText:   img.AltText,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			post.Images = append(post.Images, row)
		}
		return nil
	})
}

func (r *postRepository) UpdateReplacingImages(ctx context.Context, post *models.Post, images []NewImage) ([]string, error) {
	var displaced []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images", "Author", "Category").Save(post).Error; err != nil {
			return err
		}
		if images == nil {
			return nil
		}

		var old []models.Image
		if err := tx.Where("post_id = ?", post.ID).Find(&old).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Image{}).Error; err != nil {
			return err
		}

		post.Images = post.Images[:0]
		for _, img := range images {
			row := models.Image{
				PostID:    post.ID,
				Reference: img.Reference,
				AltText:   img.AltText,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			post.Images = append(post.Images, row)
		}

		for _, o := range old {
			displaced = append(displaced, o.Reference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return displaced, nil
}

func (r *postRepository) DeleteCascade(ctx context.Context, id uint) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return err
		}

		var images []models.Image
		if err := tx.Where("post_id = ?", id).Find(&images).Error; err != nil {
			return err
		}

		// Children first so the delete works regardless of whether the
		// database enforces ON DELETE CASCADE.
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, id).Error; err != nil {
			return err
		}

		for _, img := range images {
			refs = append(refs, img.Reference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("Author").
		Preload("Category").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("Author").
		Preload("Category").
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) (*PostPage, error) {
	page, pageSize := normalizePagination(filter.Page, filter.PageSize)

	query := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []models.Post
	err := query.
		Preload("Images").
		Preload("Author").
		Preload("Category").
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	return &PostPage{
		Items:      posts,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// normalizePagination clamps page to >= 1 and pageSize to [1, maxPageSize],
// defaulting a non-positive pageSize to defaultPageSize.
func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
