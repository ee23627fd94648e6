package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"heirloom/internal/config"
	"heirloom/internal/database"
	"heirloom/internal/models"
	"heirloom/internal/service"
	"heirloom/internal/storage"
	"heirloom/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Port:             "0",
		Env:              "test",
		JWTSecret:        "handler-test-secret",
		UploadDir:        t.TempDir(),
		MaxUploadSizeMB:  10,
		MaxPhotosPerPost: 20,
		FeedPerPage:      20,
		FeedMaxPerPage:   50,
		FeedMaxPage:      1000,
	}

	srv, err := NewServerWithDeps(cfg, db, nil, store)
	require.NoError(t, err)

	app := fiber.New()
	srv.SetupRoutes(app)
	return srv, app
}

func createTestUser(t *testing.T, srv *Server, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: "Tester", Email: email, Password: "irrelevant-hash"}
	require.NoError(t, srv.userRepo.Create(context.Background(), user))
	token, err := srv.generateToken(user.ID, user.Name)
	require.NoError(t, err)
	return user, token
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

func TestUploadRequiresAuth(t *testing.T) {
	_, app := setupTestServer(t)

	body, contentType := multipartUpload(t, nil, "a.jpg", testutil.TinyJPEG(t, 10, 10))
	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadPhotoSync(t *testing.T) {
	srv, app := setupTestServer(t)
	_, token := createTestUser(t, srv, "sync@example.com")

	body, contentType := multipartUpload(t, nil, "wide.jpg", testutil.TinyJPEG(t, 1200, 800))
	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeJSON(t, resp)
	assert.Equal(t, "crop", payload["next"], "a landscape photo needs a crop decision")

	photo := payload["photo"].(map[string]any)
	assert.Equal(t, float64(1200), photo["width"])
	assert.Equal(t, float64(800), photo["height"])
}

func TestUploadPhotoSyncSquareSkipsCrop(t *testing.T) {
	srv, app := setupTestServer(t)
	_, token := createTestUser(t, srv, "square@example.com")

	body, contentType := multipartUpload(t, nil, "square.jpg", testutil.TinyJPEG(t, 300, 300))
	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeJSON(t, resp)
	assert.Equal(t, "caption", payload["next"])
}

func TestUploadPhotoAsyncEnvelope(t *testing.T) {
	srv, app := setupTestServer(t)
	_, token := createTestUser(t, srv, "async@example.com")

	// success case
	body, contentType := multipartUpload(t, nil, "wide.jpg", testutil.TinyJPEG(t, 640, 480))
	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload/async", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeJSON(t, resp)
	assert.Equal(t, true, payload["success"])
	assert.NotZero(t, payload["photo_id"])
	assert.NotZero(t, payload["post_id"])
	assert.Equal(t, float64(640), payload["width"])
	assert.Equal(t, float64(480), payload["height"])

	// a non-image upload keeps the envelope on a 415
	body, contentType = multipartUpload(t, nil, "junk.bin", []byte("not pixels"))
	req = httptest.NewRequest(http.MethodPost, "/api/photos/upload/async", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	payload = decodeJSON(t, resp)
	assert.Equal(t, false, payload["success"])
	assert.NotEmpty(t, payload["message"])

	// a missing file is a validation failure on a 422
	empty := &bytes.Buffer{}
	w := multipart.NewWriter(empty)
	require.NoError(t, w.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/photos/upload/async", empty)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	payload = decodeJSON(t, resp)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "A photo file is required", payload["message"])
}

func TestCropPhotoForbiddenForNonOwner(t *testing.T) {
	srv, app := setupTestServer(t)
	owner, _ := createTestUser(t, srv, "owner@example.com")
	_, intruderToken := createTestUser(t, srv, "intruder@example.com")

	res := ingestDirect(t, srv, owner.ID)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/photos/%d/crop", res.Photo.ID),
		bytes.NewReader([]byte(`{"anchor":"center"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+intruderToken)

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCropThenCaptionCompletesPost(t *testing.T) {
	srv, app := setupTestServer(t)
	owner, token := createTestUser(t, srv, "flow@example.com")

	res := ingestDirect(t, srv, owner.ID)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/photos/%d/crop", res.Photo.ID),
		bytes.NewReader([]byte(`{"anchor":"left"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decodeJSON(t, resp)
	post := payload["post"].(map[string]any)
	assert.Equal(t, string(models.PostStateCropped), post["state"])

	req = httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/posts/%d/caption", res.Post.ID),
		bytes.NewReader([]byte(`{"caption":"Summer 2024"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload = decodeJSON(t, resp)
	post = payload["post"].(map[string]any)
	assert.Equal(t, string(models.PostStateCompleted), post["state"])
	assert.Equal(t, true, post["is_completed"])
}

func TestFeedShape(t *testing.T) {
	srv, app := setupTestServer(t)
	owner, token := createTestUser(t, srv, "feed@example.com")

	res := ingestDirect(t, srv, owner.ID)
	_, _, err := srv.uploadService.Crop(context.Background(), service.CropInput{
		UserID: owner.ID, PhotoID: res.Photo.ID,
	})
	require.NoError(t, err)
	_, err = srv.postService.Caption(context.Background(), service.CaptionInput{
		UserID: owner.ID, PostID: res.Post.ID, Caption: "Picnic",
	})
	require.NoError(t, err)

	// a second, unfinished post must stay invisible
	ingestDirect(t, srv, owner.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeJSON(t, resp)
	items := payload["items"].([]any)
	require.Len(t, items, 1)

	item := items[0].(map[string]any)
	assert.Equal(t, "Picnic", item["caption"])
	assert.Contains(t, item["thumbnail_url"], "/storage/photos/thumbnails/")
	assert.Contains(t, item["url"], "/api/posts/")
	assert.Equal(t, false, item["is_collection"])
	assert.Equal(t, false, payload["has_more"])
}

func TestGetPostInvalidID(t *testing.T) {
	srv, app := setupTestServer(t)
	_, token := createTestUser(t, srv, "badid@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/posts/banana", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ingestDirect pushes a 1200x800 JPEG through the upload service without
// going over HTTP, for tests that need an existing photo.
func ingestDirect(t *testing.T, srv *Server, userID uint) *service.IngestResult {
	t.Helper()
	tempPath := filepath.Join(t.TempDir(), "direct.jpg")
	require.NoError(t, os.WriteFile(tempPath, testutil.TinyJPEG(t, 1200, 800), 0o600))

	res, err := srv.uploadService.Ingest(context.Background(), service.IngestInput{
		UserID:   userID,
		Filename: "direct.jpg",
		TempPath: tempPath,
	})
	require.NoError(t, err)
	return res
}
