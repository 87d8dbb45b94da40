package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"artfeed/internal/bootstrap"
	"artfeed/internal/config"
	"artfeed/internal/database"
	"artfeed/internal/repository"
	"artfeed/internal/service"
	"artfeed/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "test",
		JWTSecret:          "test-secret-0123456789abcdef0123456789abcdef",
		DBDriver:           "sqlite",
		MaxUploadSizeMB:    10,
		AllowedExtensions:  "png,jpg,jpeg,gif,webp",
		DisplayTZOffsetMin: 330,
		AdminUsername:      "admin",
		AdminPassword:      "adminpass",
	}
}

// newTestServer wires a Server against an in-memory database and a temp
// media directory. The prometheus middleware is left out so repeated test
// setups do not re-register collectors.
func newTestServer(t *testing.T, rdb *redis.Client) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	return newTestServerWithConfig(t, rdb, testConfig())
}

func newTestServerWithConfig(t *testing.T, rdb *redis.Client, cfg *config.Config) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()

	db, err := database.ConnectTest()
	require.NoError(t, err)

	media, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	s := &Server{
		config:      cfg,
		db:          db,
		redis:       rdb,
		userRepo:    userRepo,
		media:       media,
		authService: service.NewAuthService(userRepo, rdb, cfg.JWTSecret),
		feedService: service.NewFeedService(postRepo, cfg.DisplayTZOffsetMin),
		postService: service.NewPostService(postRepo, media),
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp, parsed
}

func registerAndLogin(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "",
		fiber.Map{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return login(t, app, username, password)
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "",
		fiber.Map{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func uploadImage(t *testing.T, app *fiber.App, token, filename, caption string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("not-really-pixels"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("caption", caption))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRegisterLoginFlow(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "",
		fiber.Map{"username": "alice", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password")

	// Duplicate username conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/register", "",
		fiber.Map{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Wrong password rejected, right one issues a token.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "",
		fiber.Map{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	login(t, app, "alice", "hunter22")
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "",
		fiber.Map{"username": "", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedRequiresAuth(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/feed", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadAndFeed(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)
	token := registerAndLogin(t, app, "alice", "hunter22")

	resp := uploadImage(t, app, token, "art.png", "my first piece")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/feed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	posts, ok := body["posts"].([]any)
	require.True(t, ok)
	require.Len(t, posts, 1)

	post := posts[0].(map[string]any)
	assert.Equal(t, "my first piece", post["caption"])
	assert.NotEmpty(t, post["display_time"])
	assert.Equal(t, false, post["liked"])
	assert.EqualValues(t, 0, post["like_count"])

	owner := post["user"].(map[string]any)
	assert.Equal(t, "alice", owner["username"])
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)
	token := registerAndLogin(t, app, "alice", "hunter22")

	resp := uploadImage(t, app, token, "art.exe", "nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/feed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts, ok := body["posts"].([]any)
	require.True(t, ok)
	assert.Empty(t, posts)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxUploadSizeMB = 1
	_, app, _ := newTestServerWithConfig(t, nil, cfg)
	token := registerAndLogin(t, app, "alice", "hunter22")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "huge.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 1<<20+1))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing was stored or persisted.
	resp, body := doJSON(t, app, http.MethodGet, "/api/feed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts, ok := body["posts"].([]any)
	require.True(t, ok)
	assert.Empty(t, posts)
}

func TestUploadRequiresImage(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)
	token := registerAndLogin(t, app, "alice", "hunter22")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("caption", "no file"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleLikeEndpoint(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)
	token := registerAndLogin(t, app, "alice", "hunter22")

	resp := uploadImage(t, app, token, "art.png", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/feed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := body["posts"].([]any)
	postID := int(posts[0].(map[string]any)["id"].(float64))

	likePath := fmt.Sprintf("/api/posts/%d/like", postID)

	resp, body = doJSON(t, app, http.MethodPost, likePath, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])
	assert.EqualValues(t, 1, body["like_count"])

	resp, body = doJSON(t, app, http.MethodPost, likePath, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["liked"])
	assert.EqualValues(t, 0, body["like_count"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts/9999/like", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedSortByLikes(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)
	alice := registerAndLogin(t, app, "alice", "hunter22")
	bob := registerAndLogin(t, app, "bob", "hunter22")

	require.Equal(t, http.StatusCreated, uploadImage(t, app, alice, "first.png", "older").StatusCode)
	require.Equal(t, http.StatusCreated, uploadImage(t, app, alice, "second.png", "newer").StatusCode)

	// Both viewers like the older post so it outranks the newer one.
	_, body := doJSON(t, app, http.MethodGet, "/api/feed", alice, nil)
	posts := body["posts"].([]any)
	require.Len(t, posts, 2)
	olderID := int(posts[1].(map[string]any)["id"].(float64))

	likePath := fmt.Sprintf("/api/posts/%d/like", olderID)
	for _, token := range []string{alice, bob} {
		resp, _ := doJSON(t, app, http.MethodPost, likePath, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/feed?sort=likes", alice, nil)
	posts = body["posts"].([]any)
	require.Len(t, posts, 2)

	top := posts[0].(map[string]any)
	assert.Equal(t, "older", top["caption"])
	assert.EqualValues(t, 2, top["like_count"])
	assert.Equal(t, true, top["liked"])

	second := posts[1].(map[string]any)
	assert.Equal(t, "newer", second["caption"])
	assert.Equal(t, false, second["liked"])
}

func TestDeletePostRequiresAdmin(t *testing.T) {
	t.Parallel()
	_, app, db := newTestServer(t, nil)
	require.NoError(t, bootstrap.EnsureAdmin(db, "admin", "adminpass"))

	alice := registerAndLogin(t, app, "alice", "hunter22")
	require.Equal(t, http.StatusCreated, uploadImage(t, app, alice, "art.png", "doomed").StatusCode)

	_, body := doJSON(t, app, http.MethodGet, "/api/feed", alice, nil)
	postID := int(body["posts"].([]any)[0].(map[string]any)["id"].(float64))
	deletePath := fmt.Sprintf("/api/posts/%d", postID)

	// Non-admin author cannot delete, not even their own post, and the post
	// survives the attempt untouched.
	resp, _ := doJSON(t, app, http.MethodDelete, deletePath, alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body = doJSON(t, app, http.MethodGet, "/api/feed", alice, nil)
	survivors := body["posts"].([]any)
	require.Len(t, survivors, 1)
	assert.Equal(t, "doomed", survivors[0].(map[string]any)["caption"])

	admin := login(t, app, "admin", "adminpass")
	resp, _ = doJSON(t, app, http.MethodDelete, deletePath, admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, deletePath, admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Liking the deleted post reports not found too.
	resp, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = doJSON(t, app, http.MethodGet, "/api/feed", alice, nil)
	posts, ok := body["posts"].([]any)
	require.True(t, ok)
	assert.Empty(t, posts)
}

func TestAdminListUsers(t *testing.T) {
	t.Parallel()
	_, app, db := newTestServer(t, nil)
	require.NoError(t, bootstrap.EnsureAdmin(db, "admin", "adminpass"))

	alice := registerAndLogin(t, app, "alice", "hunter22")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/users", alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := login(t, app, "admin", "adminpass")
	resp, body := doJSON(t, app, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	users, ok := body["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 2)

	names := make([]string, 0, len(users))
	for _, u := range users {
		entry := u.(map[string]any)
		names = append(names, entry["username"].(string))
		assert.NotContains(t, entry, "password")
	}
	assert.ElementsMatch(t, []string{"admin", "alice"}, names)

	// Paging narrows the window.
	resp, body = doJSON(t, app, http.MethodGet, "/api/admin/users?limit=1&offset=1", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["users"].([]any), 1)
}

func TestGetMedia(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)
	token := registerAndLogin(t, app, "alice", "hunter22")

	require.Equal(t, http.StatusCreated, uploadImage(t, app, token, "art.png", "").StatusCode)

	_, body := doJSON(t, app, http.MethodGet, "/api/feed", token, nil)
	ref := body["posts"].([]any)[0].(map[string]any)["media_ref"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/media/"+ref, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "not-really-pixels", string(data))

	// Dotted refs are rejected before touching the filesystem.
	req = httptest.NewRequest(http.MethodGet, "/api/media/.hidden", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}
