package server

import (
	"os"
	"path/filepath"
	"strconv"

	"heirloom/internal/models"
	"heirloom/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// receiveUpload pulls the multipart "photo" file out of the request and
// saves it to a temporary file. The caller must remove the file.
func (s *Server) receiveUpload(c *fiber.Ctx) (tempPath, filename string, err error) {
	file, err := c.FormFile("photo")
	if err != nil {
		return "", "", models.NewValidationError("A photo file is required")
	}

	tempPath = filepath.Join(os.TempDir(), "heirloom-upload-"+uuid.NewString())
	if err := c.SaveFile(file, tempPath); err != nil {
		return "", "", models.NewInternalError(err)
	}
	return tempPath, file.Filename, nil
}

// parsePostID reads the optional post_id form value that appends the upload
// to an existing post.
func parsePostID(c *fiber.Ctx) (*uint, error) {
	raw := c.FormValue("post_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, models.NewValidationError("post_id must be a positive integer")
	}
	uid := uint(id)
	return &uid, nil
}

// UploadPhoto handles POST /api/photos/upload. The response's "next" field
// tells the client which step follows: cropping, or captioning when the
// square original was cropped automatically.
func (s *Server) UploadPhoto(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return mapServiceError(c, err)
	}

	tempPath, filename, err := s.receiveUpload(c)
	if err != nil {
		return mapServiceError(c, err)
	}
	defer func() { _ = os.Remove(tempPath) }()

	res, err := s.uploadService.Ingest(c.Context(), service.IngestInput{
		UserID:   currentUserID(c),
		PostID:   postID,
		Filename: filename,
		TempPath: tempPath,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	next := "caption"
	if res.CropRequired {
		next = "crop"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"photo": res.Photo,
		"post":  res.Post,
		"next":  next,
	})
}

// UploadPhotoAsync handles POST /api/photos/upload/async. Errors keep the
// {success, message} envelope that browser upload widgets parse, carried on
// the usual error status for the failure.
func (s *Server) UploadPhotoAsync(c *fiber.Ctx) error {
	fail := func(err error) error {
		message := "Upload failed"
		if appErr, ok := err.(*models.AppError); ok && appErr.Code != models.CodeInternal {
			message = appErr.Message
		}
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}

	postID, err := parsePostID(c)
	if err != nil {
		return fail(err)
	}

	tempPath, filename, err := s.receiveUpload(c)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.Remove(tempPath) }()

	res, err := s.uploadService.Ingest(c.Context(), service.IngestInput{
		UserID:   currentUserID(c),
		PostID:   postID,
		Filename: filename,
		TempPath: tempPath,
	})
	if err != nil {
		return fail(err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"photo_id":      res.Photo.ID,
		"post_id":       res.Post.ID,
		"width":         res.Photo.Width,
		"height":        res.Photo.Height,
		"crop_required": res.CropRequired,
	})
}

// CropPhoto handles POST /api/photos/:id/crop.
func (s *Server) CropPhoto(c *fiber.Ctx) error {
	photoID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Anchor string `json:"anchor"`
		X      *int   `json:"crop_x"`
		Y      *int   `json:"crop_y"`
		Size   *int   `json:"crop_size"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	photo, post, err := s.uploadService.Crop(c.Context(), service.CropInput{
		UserID:  currentUserID(c),
		PhotoID: photoID,
		Anchor:  req.Anchor,
		X:       req.X,
		Y:       req.Y,
		Size:    req.Size,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"photo": photo,
		"post":  post,
	})
}

// DownloadPhoto handles GET /api/photos/:id/download.
func (s *Server) DownloadPhoto(c *fiber.Ctx) error {
	photoID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	absPath, filename, err := s.uploadService.Download(c.Context(), currentUserID(c), photoID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Download(absPath, filename)
}
