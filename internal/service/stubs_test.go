package service

import (
	"context"
	"fmt"
	"sort"

	"heirloom/internal/models"

	"gorm.io/gorm"
)

// memDB is an in-memory stand-in for the posts and photos tables, shared by
// the repo fakes so pipeline tests exercise real cross-entity behavior.
type memDB struct {
	nextPostID  uint
	nextPhotoID uint
	posts       map[uint]*models.Post
	photos      map[uint]*models.Photo
}

func newMemDB() *memDB {
	return &memDB{
		posts:  make(map[uint]*models.Post),
		photos: make(map[uint]*models.Photo),
	}
}

func (db *memDB) postPhotos(postID uint) []models.Photo {
	var out []models.Photo
	for _, p := range db.photos {
		if p.PostID == postID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

type memPostRepo struct{ db *memDB }

func (r *memPostRepo) Create(_ context.Context, post *models.Post) error {
	r.db.nextPostID++
	post.ID = r.db.nextPostID
	r.db.posts[post.ID] = post
	return nil
}

func (r *memPostRepo) GetByID(_ context.Context, id uint) (*models.Post, error) {
	post, ok := r.db.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	post.Photos = r.db.postPhotos(id)
	post.PhotosCount = len(post.Photos)
	return post, nil
}

func (r *memPostRepo) Save(_ context.Context, post *models.Post) error {
	if _, ok := r.db.posts[post.ID]; !ok {
		return fmt.Errorf("save of unknown post %d", post.ID)
	}
	r.db.posts[post.ID] = post
	return nil
}

func (r *memPostRepo) Delete(_ context.Context, id uint) error {
	for photoID, p := range r.db.photos {
		if p.PostID == id {
			delete(r.db.photos, photoID)
		}
	}
	delete(r.db.posts, id)
	return nil
}

func (r *memPostRepo) Feed(_ context.Context, limit, offset int) ([]*models.Post, error) {
	var completed []*models.Post
	for _, p := range r.db.posts {
		if p.IsCompleted {
			completed = append(completed, p)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		ti, tj := completed[i].DisplayTimestamp(), completed[j].DisplayTimestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return completed[i].ID > completed[j].ID
	})
	if offset > len(completed) {
		offset = len(completed)
	}
	completed = completed[offset:]
	if limit < len(completed) {
		completed = completed[:limit]
	}
	for _, p := range completed {
		p.Photos = r.db.postPhotos(p.ID)
		p.PhotosCount = len(p.Photos)
	}
	return completed, nil
}

func (r *memPostRepo) Neighbors(_ context.Context, post *models.Post) (*models.Post, *models.Post, error) {
	all, _ := r.Feed(context.Background(), len(r.db.posts)+1, 0)
	var prev, next *models.Post
	for i, p := range all {
		if p.ID == post.ID {
			if i > 0 {
				prev = all[i-1]
			}
			if i+1 < len(all) {
				next = all[i+1]
			}
			break
		}
	}
	return prev, next, nil
}

type memPhotoRepo struct{ db *memDB }

func (r *memPhotoRepo) Create(_ context.Context, photo *models.Photo) error {
	r.db.nextPhotoID++
	photo.ID = r.db.nextPhotoID
	r.db.photos[photo.ID] = photo
	return nil
}

func (r *memPhotoRepo) GetByID(_ context.Context, id uint) (*models.Photo, error) {
	photo, ok := r.db.photos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return photo, nil
}

func (r *memPhotoRepo) Save(_ context.Context, photo *models.Photo) error {
	r.db.photos[photo.ID] = photo
	return nil
}

func (r *memPhotoRepo) CountByPost(_ context.Context, postID uint) (int64, error) {
	return int64(len(r.db.postPhotos(postID))), nil
}

func (r *memPhotoRepo) UncroppedCount(_ context.Context, postID uint) (int64, error) {
	var n int64
	for _, p := range r.db.photos {
		if p.PostID == postID && p.ThumbnailPath == nil {
			n++
		}
	}
	return n, nil
}

func (r *memPhotoRepo) NextPosition(_ context.Context, postID uint) (int, error) {
	return len(r.db.postPhotos(postID)), nil
}

// memStore keeps blobs in a map.
type memStore struct {
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Write(rel string, data []byte) error {
	s.blobs[rel] = data
	return nil
}

func (s *memStore) Read(rel string) ([]byte, error) {
	data, ok := s.blobs[rel]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", rel)
	}
	return data, nil
}

func (s *memStore) Delete(rel string) error {
	delete(s.blobs, rel)
	return nil
}

func (s *memStore) Exists(rel string) bool {
	_, ok := s.blobs[rel]
	return ok
}

func (s *memStore) AbsolutePath(rel string) string { return "/mem/" + rel }

func (s *memStore) MakeDirectory(string) error { return nil }

func noAdmin(_ context.Context, _ uint) (bool, error) { return false, nil }

func allAdmin(_ context.Context, _ uint) (bool, error) { return true, nil }
