package repository

import (
	"context"

	"heirloom/internal/models"

	"gorm.io/gorm"
)

// PhotoRepository defines the interface for photo data operations
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id uint) (*models.Photo, error)
	Save(ctx context.Context, photo *models.Photo) error
	CountByPost(ctx context.Context, postID uint) (int64, error)
	UncroppedCount(ctx context.Context, postID uint) (int64, error)
	NextPosition(ctx context.Context, postID uint) (int, error)
}

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *photoRepository) GetByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *photoRepository) Save(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Save(photo).Error
}

func (r *photoRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// UncroppedCount counts the post's photos that still lack a thumbnail. Zero
// means every photo has been cropped.
func (r *photoRepository) UncroppedCount(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("post_id = ? AND thumbnail_path IS NULL", postID).
		Count(&count).Error
	return count, err
}

// NextPosition returns the position for a photo appended to the post.
// Positions are dense from zero in upload order.
func (r *photoRepository) NextPosition(ctx context.Context, postID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return int(count), err
}
