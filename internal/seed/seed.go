// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"

	"heirloom/internal/models"
	"heirloom/internal/service"

	"gorm.io/gorm"
)

// Options controls what a seed run produces.
type Options struct {
	Users        int
	PostsPerUser int
	// AdminEmail, when set, promotes (or creates) that account as admin.
	AdminEmail string
	// Password is the plaintext login for every seeded account.
	Password string
}

// DefaultOptions seeds a small family: a handful of members, each with a
// few completed posts so the feed has content immediately.
func DefaultOptions() Options {
	return Options{
		Users:        4,
		PostsPerUser: 5,
		Password:     "family-demo",
	}
}

// Run populates the database with demo users and completed posts. Photos go
// through the real upload pipeline so originals and thumbnails exist on disk.
func Run(ctx context.Context, db *gorm.DB, uploads *service.UploadService, posts *service.PostService, opts Options) error {
	f, err := NewFactory(db, uploads, posts, opts)
	if err != nil {
		return fmt.Errorf("init seed factory: %w", err)
	}

	users, err := f.CreateFamily(ctx)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	log.Printf("seeded %d users (password %q)", len(users), opts.Password)

	total := 0
	for _, user := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			if _, err := f.CreateCompletedPost(ctx, user); err != nil {
				return fmt.Errorf("seed post for user %d: %w", user.ID, err)
			}
			total++
		}
	}
	log.Printf("seeded %d completed posts", total)
	return nil
}

// Wipe removes all seeded rows. Stored blobs are left behind; the upload
// directory is disposable in development.
func Wipe(db *gorm.DB) error {
	for _, model := range []any{&models.Photo{}, &models.Post{}, &models.User{}} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
