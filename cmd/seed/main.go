// Command main runs the database seeder for Quill.
package main

import (
	"context"
	"flag"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/seed"
	"quill/internal/storage"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "Number of posts to create")
	flag.BoolVar(&opts.Clean, "clean", opts.Clean, "Clean database before seeding")
	flag.BoolVar(&opts.WithMedia, "media", opts.WithMedia, "Attach generated images to posts")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", opts.Users, opts.Posts, opts.Clean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	blobs := storage.NewDiskStore(cfg.UploadDir, cfg.ImageMaxUploadMB*1024*1024, middleware.Logger)

	if err := seed.NewSeeder(db, blobs).Run(context.Background(), opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
