// Package seed creates demo data for development databases. It writes
// through the blob store so every seeded image row has real bytes behind it.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"time"

	"quill/internal/models"
	"quill/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var categoryNames = []string{
	"Engineering", "Design", "Product", "Announcements", "Tutorials", "Opinion",
}

// Options controls how much data the seeder generates.
type Options struct {
	Users     int
	Posts     int
	Clean     bool
	MaxDays   int // spread created_at over this many days back
	WithMedia bool
}

// DefaultOptions matches a small but browsable development dataset.
func DefaultOptions() Options {
	return Options{Users: 15, Posts: 40, Clean: true, MaxDays: 90, WithMedia: true}
}

// Seeder populates the database with generated content.
type Seeder struct {
	db    *gorm.DB
	blobs storage.BlobStore
	rng   *rand.Rand
}

// NewSeeder creates a Seeder bound to the given database and blob store.
func NewSeeder(db *gorm.DB, blobs storage.BlobStore) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:    db,
		blobs: blobs,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes the full seeding pass.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	log.Println("🌱 Starting database seeding...")

	if opts.Clean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
	}

	users, err := s.createUsers(opts.Users)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ Created %d users (1 admin)", len(users))

	categories, err := s.createCategories()
	if err != nil {
		return fmt.Errorf("failed to create categories: %w", err)
	}
	log.Printf("✓ Created %d categories", len(categories))

	posts, err := s.createPosts(ctx, users, categories, opts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ Created %d posts", len(posts))

	comments, err := s.createComments(users, posts)
	if err != nil {
		return fmt.Errorf("failed to create comments: %w", err)
	}
	log.Printf("✓ Created %d comments", comments)

	likes, err := s.addLikes(users, posts)
	if err != nil {
		return fmt.Errorf("failed to add likes: %w", err)
	}
	log.Printf("✓ Added %d likes", likes)

	tasks, err := s.createTasks(users)
	if err != nil {
		return fmt.Errorf("failed to create tasks: %w", err)
	}
	log.Printf("✓ Created %d tasks", tasks)

	log.Println("✨ Seeding complete. All users have the password: password123")
	return nil
}

// ClearAll removes seeded content, children before parents.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.Like{}, &models.Comment{}, &models.Image{}, &models.Task{},
		&models.Post{}, &models.Category{}, &models.AuditLog{}, &models.User{},
	}
	for _, table := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	admin := models.User{
		Username:       "admin",
		Email:          "admin@example.com",
		PasswordHash:   string(hash),
		Role:           models.RoleAdmin,
		EmailConfirmed: true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 1; i < count; i++ {
		user := models.User{
			Username:       fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(10, 99)),
			Email:          gofakeit.Email(),
			PasswordHash:   string(hash),
			Role:           models.RoleUser,
			Website:        gofakeit.DomainName(),
			EmailConfirmed: true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createCategories() ([]models.Category, error) {
	categories := make([]models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category := models.Category{Name: name, Description: gofakeit.Sentence(8)}
		if err := s.db.Create(&category).Error; err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func (s *Seeder) createPosts(ctx context.Context, users []models.User, categories []models.Category, opts Options) ([]models.Post, error) {
	admin := users[0]
	posts := make([]models.Post, 0, opts.Posts)
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}

	for i := 0; i < opts.Posts; i++ {
		title := fmt.Sprintf("%s %d", gofakeit.Sentence(5), i)
		post := models.Post{
			Title:    title,
			Slug:     fmt.Sprintf("seed-post-%d-%s", i, gofakeit.LetterN(6)),
			Content:  gofakeit.Paragraph(2, 4, 8, "\n\n"),
			AuthorID: admin.ID,
			CreatedAt: time.Now().Add(
				-time.Duration(s.rng.Intn(maxDays))*24*time.Hour -
					time.Duration(s.rng.Intn(24))*time.Hour),
		}
		if s.rng.Intn(4) > 0 {
			post.CategoryID = &categories[s.rng.Intn(len(categories))].ID
		}

		if opts.WithMedia && s.rng.Intn(3) > 0 {
			ref, err := s.blobs.Save(ctx, storage.Upload{
				Filename: "seed.png",
				Data:     s.pngBytes(),
			})
			if err != nil {
				return nil, err
			}
			post.Images = []models.Image{{Reference: ref, AltText: gofakeit.Sentence(4)}}
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) createComments(users []models.User, posts []models.Post) (int, error) {
	count := 0
	for _, post := range posts {
		for i := 0; i < s.rng.Intn(5); i++ {
			comment := models.Comment{
				PostID: post.ID,
				UserID: users[s.rng.Intn(len(users))].ID,
				Body:   gofakeit.Sentence(10),
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) addLikes(users []models.User, posts []models.Post) (int, error) {
	count := 0
	for _, post := range posts {
		likers := s.rng.Intn(len(users))
		for _, user := range users[:likers] {
			like := models.Like{PostID: post.ID, UserID: user.ID}
			if err := s.db.Create(&like).Error; err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) createTasks(users []models.User) (int, error) {
	count := 0
	for _, user := range users {
		for i := 0; i < s.rng.Intn(4); i++ {
			task := models.Task{
				UserID:     user.ID,
				Title:      gofakeit.Sentence(4),
				DueAt:      time.Now().Add(time.Duration(s.rng.Intn(14*24)) * time.Hour),
				AssignedAt: time.Now(),
				Completed:  s.rng.Intn(3) == 0,
			}
			if err := s.db.Create(&task).Error; err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// pngBytes renders a tiny solid-color PNG so seeded blobs pass image sniffing.
func (s *Seeder) pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fill := color.RGBA{
		R: uint8(s.rng.Intn(256)),
		G: uint8(s.rng.Intn(256)),
		B: uint8(s.rng.Intn(256)),
		A: 255,
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
