package models

import (
	"time"
)

// Post is a published blog entry. The slug is derived from the title and is
// unique across all posts. Author and category references are immutable once
// the post exists; both restrict deletion of the referenced row.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:300;not null" json:"title"`
	Slug       string    `gorm:"size:320;uniqueIndex;not null" json:"slug"`
	Content    string    `gorm:"type:text" json:"content"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author,omitempty"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Images     []Image   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"images"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ImageRefs returns the blob references of the post's loaded images.
func (p *Post) ImageRefs() []string {
	refs := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		refs = append(refs, img.Reference)
	}
	return refs
}

// Image is one attachment row of a post. Reference is the opaque blob-store
// reference; the row must never outlive its post, and the referenced blob
// must exist whenever the row is visible outside an open transaction.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Reference string    `gorm:"not null" json:"reference"`
	AltText   string    `gorm:"size:100" json:"alt_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups posts. Deleting a category is rejected while any post
// references it.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `json:"description"`
}
