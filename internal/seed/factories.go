package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"heirloom/internal/models"
	"heirloom/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and pushes photos through the real upload
// pipeline so seeded posts are indistinguishable from organic ones.
type Factory struct {
	db      *gorm.DB
	uploads *service.UploadService
	posts   *service.PostService
	opts    Options
	hash    string
	rng     *rand.Rand
}

// NewFactory creates a new Factory bound to the provided dependencies.
func NewFactory(db *gorm.DB, uploads *service.UploadService, posts *service.PostService, opts Options) (*Factory, error) {
	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Factory{
		db:      db,
		uploads: uploads,
		posts:   posts,
		opts:    opts,
		hash:    string(hash),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// CreateFamily creates the configured number of users, making the first one
// the admin (or the account named by AdminEmail).
func (f *Factory) CreateFamily(_ context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, f.opts.Users)
	for i := 0; i < f.opts.Users; i++ {
		name := gofakeit.FirstName()
		user := &models.User{
			Name:     name,
			Email:    fmt.Sprintf("%s%d@example.com", strings.ToLower(name), i),
			Password: f.hash,
			IsAdmin:  i == 0,
		}
		if f.opts.AdminEmail != "" {
			user.IsAdmin = user.Email == f.opts.AdminEmail
		}
		if err := f.db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateCompletedPost generates a photo, uploads it, crops it when needed,
// captions it, and backdates it into the last two years.
func (f *Factory) CreateCompletedPost(ctx context.Context, user *models.User) (*models.Post, error) {
	tempPath, err := f.writeDemoJPEG()
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(tempPath) }()

	res, err := f.uploads.Ingest(ctx, service.IngestInput{
		UserID:   user.ID,
		Filename: filepath.Base(tempPath),
		TempPath: tempPath,
	})
	if err != nil {
		return nil, err
	}

	if res.CropRequired {
		anchors := []string{"center", "top", "bottom", "left", "right"}
		_, _, err = f.uploads.Crop(ctx, service.CropInput{
			UserID:  user.ID,
			PhotoID: res.Photo.ID,
			Anchor:  anchors[f.rng.Intn(len(anchors))],
		})
		if err != nil {
			return nil, err
		}
	}

	post, err := f.posts.Caption(ctx, service.CaptionInput{
		UserID:  user.ID,
		PostID:  res.Post.ID,
		Caption: gofakeit.Sentence(f.rng.Intn(8) + 2),
	})
	if err != nil {
		return nil, err
	}

	// realistic display-date spread over the past two years
	daysBack := f.rng.Intn(730)
	displayDate := time.Now().Add(-time.Duration(daysBack) * 24 * time.Hour)
	post.DisplayDate = &displayDate
	if err := f.db.Save(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// writeDemoJPEG renders a random-sized flat-color JPEG to a temp file.
func (f *Factory) writeDemoJPEG() (string, error) {
	dims := [][2]int{{1200, 800}, {800, 1200}, {1024, 768}, {900, 900}, {640, 480}}
	d := dims[f.rng.Intn(len(dims))]

	img := image.NewRGBA(image.Rect(0, 0, d[0], d[1]))
	fill := color.RGBA{
		R: uint8(f.rng.Intn(256)),
		G: uint8(f.rng.Intn(256)),
		B: uint8(f.rng.Intn(256)),
		A: 0xff,
	}
	for y := 0; y < d[1]; y++ {
		for x := 0; x < d[0]; x++ {
			img.Set(x, y, fill)
		}
	}

	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "heirloom-seed-*.jpg")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", err
	}
	return tmp.Name(), tmp.Close()
}
