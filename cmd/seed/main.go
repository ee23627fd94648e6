// Command seed populates the development database with demo users and
// completed posts, pushing every photo through the real upload pipeline.
package main

import (
	"context"
	"flag"
	"log"

	"heirloom/internal/config"
	"heirloom/internal/database"
	"heirloom/internal/repository"
	"heirloom/internal/seed"
	"heirloom/internal/service"
	"heirloom/internal/storage"
)

func main() {
	users := flag.Int("users", 4, "number of family members to create")
	postsPerUser := flag.Int("posts", 5, "completed posts per member")
	password := flag.String("password", "family-demo", "login password for every seeded account")
	wipe := flag.Bool("wipe", false, "delete all existing rows first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Env == "production" || cfg.Env == "prod" {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	if *wipe {
		if err := seed.Wipe(db); err != nil {
			log.Fatalf("Wipe failed: %v", err)
		}
		log.Println("existing rows removed")
	}

	store, err := storage.NewDisk(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Storage initialization failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	isAdmin := func(ctx context.Context, userID uint) (bool, error) {
		user, err := userRepo.GetByID(ctx, userID)
		if err != nil {
			return false, err
		}
		return user.IsAdmin, nil
	}

	uploads := service.NewUploadService(postRepo, photoRepo, store,
		cfg.MaxUploadBytes(), cfg.MaxPhotosPerPost, isAdmin)
	posts := service.NewPostService(postRepo, photoRepo, store,
		service.FeedConfig{
			PerPage:    cfg.FeedPerPage,
			MaxPerPage: cfg.FeedMaxPerPage,
			MaxPage:    cfg.FeedMaxPage,
		}, isAdmin)

	opts := seed.Options{
		Users:        *users,
		PostsPerUser: *postsPerUser,
		Password:     *password,
	}
	if err := seed.Run(context.Background(), db, uploads, posts, opts); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	log.Println("seed complete")
}
