package repository

import (
	"context"
	"testing"

	"heirloom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPhotoRepositoryNextPosition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	user := seedUser(t, db)
	post := seedPost(t, db, user.ID, models.PostStateIngested, nil)

	pos, err := repo.NextPosition(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	seedPhoto(t, db, user.ID, post.ID, 0, false)
	seedPhoto(t, db, user.ID, post.ID, 1, false)

	pos, err = repo.NextPosition(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}

func TestPhotoRepositoryUncroppedCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	user := seedUser(t, db)
	post := seedPost(t, db, user.ID, models.PostStateIngested, nil)

	seedPhoto(t, db, user.ID, post.ID, 0, true)
	seedPhoto(t, db, user.ID, post.ID, 1, false)
	seedPhoto(t, db, user.ID, post.ID, 2, false)

	count, err := repo.UncroppedCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	total, err := repo.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestPhotoRepositorySaveThumbnail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	user := seedUser(t, db)
	post := seedPost(t, db, user.ID, models.PostStateIngested, nil)
	photo := seedPhoto(t, db, user.ID, post.ID, 0, false)

	thumb := "photos/thumbnails/abc.jpg"
	photo.ThumbnailPath = &thumb
	require.NoError(t, repo.Save(ctx, photo))

	got, err := repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ThumbnailPath)
	assert.Equal(t, thumb, *got.ThumbnailPath)

	count, err := repo.UncroppedCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPhotoRepositoryGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhotoRepository(db)

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
