// Package service contains the application's business logic.
package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"heirloom/internal/cache"
	"heirloom/internal/imgproc"
	"heirloom/internal/models"
	"heirloom/internal/observability"
	"heirloom/internal/repository"
	"heirloom/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	originalsDir  = "photos/originals"
	thumbnailsDir = "photos/thumbnails"
)

// UploadService runs the photo ingestion and crop pipeline.
type UploadService struct {
	posts            repository.PostRepository
	photos           repository.PhotoRepository
	store            storage.Store
	maxUploadBytes   int64
	maxPhotosPerPost int
	isAdmin          func(ctx context.Context, userID uint) (bool, error)
}

// NewUploadService creates a new upload service.
func NewUploadService(
	posts repository.PostRepository,
	photos repository.PhotoRepository,
	store storage.Store,
	maxUploadBytes int64,
	maxPhotosPerPost int,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *UploadService {
	return &UploadService{
		posts:            posts,
		photos:           photos,
		store:            store,
		maxUploadBytes:   maxUploadBytes,
		maxPhotosPerPost: maxPhotosPerPost,
		isAdmin:          isAdmin,
	}
}

// IngestInput describes one uploaded file. TempPath is the server-side
// temporary file the transport layer saved the upload to; the service never
// touches the network.
type IngestInput struct {
	UserID   uint
	PostID   *uint
	Filename string
	TempPath string
}

// IngestResult reports what ingestion produced. CropRequired is false when
// the original was square and the thumbnail was rendered automatically.
type IngestResult struct {
	Photo        *models.Photo
	Post         *models.Post
	CropRequired bool
}

// CropInput describes a crop request. When X, Y and Size are all present
// they win over Anchor; otherwise Anchor (empty means center) selects the
// square region.
type CropInput struct {
	UserID  uint
	PhotoID uint
	Anchor  string
	X       *int
	Y       *int
	Size    *int
}

// Ingest validates, classifies and stores one uploaded photo, attaching it
// to a new or existing post. Square originals are cropped automatically so
// the client can skip the crop step entirely.
func (s *UploadService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "upload.ingest")
	defer span.End()
	start := time.Now()

	info, err := os.Stat(in.TempPath)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("stat upload: %w", err))
	}
	if info.Size() == 0 {
		return nil, models.NewValidationError("Uploaded file is empty")
	}
	if info.Size() > s.maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf(
			"Uploaded file exceeds the %d MB limit", s.maxUploadBytes/(1024*1024)))
	}

	format := imgproc.DetectFormat(in.TempPath, in.Filename)
	span.SetAttributes(attribute.String("photo.format", format.String()))

	// Capture time is read before any transcode touches the bytes.
	var takenAt *time.Time
	if ts, ok := imgproc.ExtractTakenAt(in.TempPath); ok {
		takenAt = &ts
	}

	relPath, width, height, err := s.storeOriginal(in.TempPath, format)
	if err != nil {
		return nil, err
	}

	post, err := s.resolvePost(ctx, in.UserID, in.PostID)
	if err != nil {
		s.discardBlob(ctx, relPath)
		return nil, err
	}

	position, err := s.photos.NextPosition(ctx, post.ID)
	if err != nil {
		s.discardBlob(ctx, relPath)
		return nil, models.NewInternalError(err)
	}

	photo := &models.Photo{
		UserID:       in.UserID,
		PostID:       post.ID,
		Position:     position,
		OriginalPath: relPath,
		Width:        width,
		Height:       height,
		TakenAt:      takenAt,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		s.discardBlob(ctx, relPath)
		return nil, models.NewInternalError(err)
	}

	cropRequired := true
	if photo.IsSquare() {
		// Square originals have exactly one possible crop.
		if err := s.renderThumbnail(ctx, photo, post, imgproc.Rect{X: 0, Y: 0, Size: width}, observability.CropModeAuto); err != nil {
			observability.Logger.WarnContext(ctx, "auto-crop failed, leaving photo uncropped",
				"photo_id", photo.ID, "error", err)
		} else {
			cropRequired = false
		}
	}

	observability.UploadsTotal.WithLabelValues(format.String()).Inc()
	observability.UploadPipelineDuration.Observe(time.Since(start).Seconds())

	return &IngestResult{Photo: photo, Post: post, CropRequired: cropRequired}, nil
}

// Crop renders the thumbnail for a photo from either explicit coordinates or
// a named anchor, and advances the post's completion state.
func (s *UploadService) Crop(ctx context.Context, in CropInput) (*models.Photo, *models.Post, error) {
	ctx, span := observability.Tracer.Start(ctx, "upload.crop")
	defer span.End()

	photo, err := s.photos.GetByID(ctx, in.PhotoID)
	if err != nil {
		return nil, nil, models.NewNotFoundError("Photo", in.PhotoID)
	}

	post, err := s.posts.GetByID(ctx, photo.PostID)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	if err := s.authorize(ctx, in.UserID, post.UserID); err != nil {
		return nil, nil, err
	}

	var rect imgproc.Rect
	mode := observability.CropModeAnchor
	if in.X != nil && in.Y != nil && in.Size != nil {
		rect = imgproc.ClampCrop(photo.Width, photo.Height, *in.X, *in.Y, *in.Size)
		mode = observability.CropModeCoords
	} else {
		anchor, err := imgproc.ParseAnchor(in.Anchor)
		if err != nil {
			return nil, nil, models.NewValidationError("Anchor must be one of center, top, bottom, left, right")
		}
		rect = imgproc.ResolveAnchor(photo.Width, photo.Height, anchor)
	}
	span.SetAttributes(attribute.String("crop.mode", mode))

	if err := s.renderThumbnail(ctx, photo, post, rect, mode); err != nil {
		return nil, nil, err
	}
	return photo, post, nil
}

// renderThumbnail renders and stores the thumbnail, persists the photo, and
// runs the post's crop transition. Re-cropping an already-cropped photo
// overwrites the thumbnail and leaves the state machine untouched.
func (s *UploadService) renderThumbnail(ctx context.Context, photo *models.Photo, post *models.Post, rect imgproc.Rect, mode string) error {
	original, err := s.store.Read(photo.OriginalPath)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("read original: %w", err))
	}

	thumb, err := imgproc.RenderThumbnail(original, rect)
	if err != nil {
		return models.NewUnsupportedMediaError("Could not render thumbnail from this image", err)
	}

	thumbPath := thumbnailPathFor(photo.OriginalPath)
	if err := s.store.Write(thumbPath, thumb); err != nil {
		return models.NewInternalError(fmt.Errorf("write thumbnail: %w", err))
	}

	photo.ThumbnailPath = &thumbPath
	if err := s.photos.Save(ctx, photo); err != nil {
		return models.NewInternalError(err)
	}

	uncropped, err := s.photos.UncroppedCount(ctx, post.ID)
	if err != nil {
		return models.NewInternalError(err)
	}
	wasCompleted := post.IsCompleted
	post.RecordCrop(uncropped == 0)
	if err := s.posts.Save(ctx, post); err != nil {
		return models.NewInternalError(err)
	}
	if post.IsCompleted && !wasCompleted {
		// completion moves neighbor links on other posts too
		cache.InvalidateFeed(ctx)
		cache.InvalidatePostViews(ctx)
	}
	cache.InvalidatePost(ctx, post.ID)

	observability.ThumbnailsRendered.WithLabelValues(mode).Inc()
	return nil
}

// storeOriginal persists the upload under the originals directory. HEIC is
// transcoded to JPEG because browsers cannot render it; every other
// supported format keeps its original bytes.
func (s *UploadService) storeOriginal(tempPath string, format imgproc.Format) (string, int, int, error) {
	rel := path.Join(originalsDir, uuid.NewString()+"."+format.Extension())

	if format == imgproc.FormatHEIC {
		f, err := os.Open(tempPath)
		if err != nil {
			return "", 0, 0, models.NewInternalError(fmt.Errorf("open upload: %w", err))
		}
		defer func() { _ = f.Close() }()

		img, err := imgproc.DecodeHEIC(f)
		if err != nil {
			return "", 0, 0, models.NewUnsupportedMediaError("Could not decode HEIC image", err)
		}
		encoded, err := imgproc.EncodeJPEG(img, imgproc.TranscodeJPEGQuality)
		if err != nil {
			return "", 0, 0, models.NewInternalError(err)
		}
		if err := s.store.Write(rel, encoded); err != nil {
			return "", 0, 0, models.NewInternalError(err)
		}
		b := img.Bounds()
		return rel, b.Dx(), b.Dy(), nil
	}

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return "", 0, 0, models.NewInternalError(fmt.Errorf("read upload: %w", err))
	}
	width, height, err := imgproc.ProbeDimensions(data)
	if err != nil {
		return "", 0, 0, models.NewUnsupportedMediaError("Uploaded file is not a supported image", err)
	}
	if err := s.store.Write(rel, data); err != nil {
		return "", 0, 0, models.NewInternalError(err)
	}
	return rel, width, height, nil
}

// resolvePost creates a fresh post or validates appending to an existing one.
func (s *UploadService) resolvePost(ctx context.Context, userID uint, postID *uint) (*models.Post, error) {
	if postID == nil {
		post := &models.Post{UserID: userID, State: models.PostStateIngested}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, models.NewInternalError(err)
		}
		return post, nil
	}

	post, err := s.posts.GetByID(ctx, *postID)
	if err != nil {
		return nil, models.NewNotFoundError("Post", *postID)
	}
	if err := s.authorize(ctx, userID, post.UserID); err != nil {
		return nil, err
	}
	if post.IsCompleted {
		return nil, models.NewValidationError("Cannot add photos to a completed post")
	}
	count, err := s.photos.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if count >= int64(s.maxPhotosPerPost) {
		return nil, models.NewValidationError(fmt.Sprintf("A post can hold at most %d photos", s.maxPhotosPerPost))
	}
	return post, nil
}

func (s *UploadService) authorize(ctx context.Context, userID, ownerID uint) error {
	if userID == ownerID {
		return nil
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !admin {
		return models.NewForbiddenError("You do not have permission to modify this post")
	}
	return nil
}

// Download resolves a photo's original for download. Originals of
// incomplete posts are available to their owner and admins only.
func (s *UploadService) Download(ctx context.Context, userID, photoID uint) (absPath, filename string, err error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return "", "", models.NewNotFoundError("Photo", photoID)
	}
	post, err := s.posts.GetByID(ctx, photo.PostID)
	if err != nil {
		return "", "", models.NewInternalError(err)
	}
	if !post.IsCompleted {
		if err := s.authorize(ctx, userID, post.UserID); err != nil {
			return "", "", err
		}
	}
	if !s.store.Exists(photo.OriginalPath) {
		return "", "", models.NewNotFoundError("Photo", photoID)
	}
	return s.store.AbsolutePath(photo.OriginalPath), path.Base(photo.OriginalPath), nil
}

// discardBlob removes an orphaned original after a failed ingest.
func (s *UploadService) discardBlob(ctx context.Context, rel string) {
	if err := s.store.Delete(rel); err != nil {
		observability.Logger.WarnContext(ctx, "failed to remove orphaned original",
			"path", rel, "error", err)
	}
}

// thumbnailPathFor maps an original's path to its thumbnail path. Thumbnails
// are always JPEG and share the original's UUID stem.
func thumbnailPathFor(originalPath string) string {
	base := path.Base(originalPath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return path.Join(thumbnailsDir, stem+".jpg")
}
