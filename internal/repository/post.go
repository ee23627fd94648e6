package repository

import (
	"context"
	"errors"
	"time"

	"heirloom/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Save(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Feed(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Neighbors(ctx context.Context, post *models.Post) (prev, next *models.Post, err error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("User").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	post.PhotosCount = len(post.Photos)
	return &post, nil
}

func (r *postRepository) Save(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// Delete removes a post and its photo rows in one transaction. Blob cleanup
// on disk is the caller's job; rows go first so a crash never leaves
// orphaned rows pointing at deleted files.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

// displayOrder sorts by the explicit display date when set, falling back to
// the creation time, newest first. ID breaks ties so pagination is stable.
const displayOrder = "COALESCE(display_date, created_at) DESC, id DESC"

// Feed returns completed posts in display order with the cover photo
// preloaded and the photo count populated.
func (r *postRepository) Feed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Select("posts.*, (SELECT COUNT(*) FROM photos WHERE photos.post_id = posts.id) AS photos_count").
		Where("is_completed = ?", true).
		Preload("Photos", "position = 0").
		Preload("User").
		Order(displayOrder).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Neighbors finds the adjacent completed posts in display order. prev is the
// next-newer post, next the next-older one; either may be nil at the ends of
// the feed.
func (r *postRepository) Neighbors(ctx context.Context, post *models.Post) (*models.Post, *models.Post, error) {
	ts := post.DisplayTimestamp()

	prev, err := r.adjacent(ctx, post.ID, ts, true)
	if err != nil {
		return nil, nil, err
	}
	next, err := r.adjacent(ctx, post.ID, ts, false)
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func (r *postRepository) adjacent(ctx context.Context, id uint, ts time.Time, newer bool) (*models.Post, error) {
	q := r.db.WithContext(ctx).Where("is_completed = ?", true)
	// tuple comparison on (display timestamp, id) so ties stay stable
	if newer {
		q = q.Where(
			"COALESCE(display_date, created_at) > ? OR (COALESCE(display_date, created_at) = ? AND id > ?)",
			ts, ts, id,
		).Order("COALESCE(display_date, created_at) ASC, id ASC")
	} else {
		q = q.Where(
			"COALESCE(display_date, created_at) < ? OR (COALESCE(display_date, created_at) = ? AND id < ?)",
			ts, ts, id,
		).Order("COALESCE(display_date, created_at) DESC, id DESC")
	}

	var neighbor models.Post
	err := q.First(&neighbor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &neighbor, nil
}
