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

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *Server
	app   *fiber.App
	blobs *testutil.MemBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := &config.Config{
		Port:             "0",
		JWTSecret:        "test-secret-key-that-is-long-enough-for-hs256",
		Env:              "test",
		UploadDir:        t.TempDir(),
		ImageMaxUploadMB: 5,
	}

	db := testutil.NewDB(t)
	blobs := testutil.NewMemBlobStore()
	srv := NewServerWithDeps(cfg, db, nil, blobs)

	return &testEnv{srv: srv, app: srv.App(), blobs: blobs}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// signup creates an account through the API and returns its token and ID.
func (e *testEnv) signup(t *testing.T, username string) (string, uint) {
	t.Helper()
	resp := e.request(t, fiber.MethodPost, "/api/auth/signup", "", SignupRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "sup3rsecret",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token, body.User.ID
}

// adminToken promotes the user directly in the database and logs in again so
// the fresh token carries the admin role.
func (e *testEnv) adminToken(t *testing.T, username string) string {
	t.Helper()
	_, id := e.signup(t, username)
	require.NoError(t, e.srv.db.Model(&models.User{}).
		Where("id = ?", id).Update("role", models.RoleAdmin).Error)

	resp := e.request(t, fiber.MethodPost, "/api/auth/login", "", LoginRequest{
		Username: username,
		Password: "sup3rsecret",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	return body.Token
}

func multipartPost(t *testing.T, title, content string, images map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.WriteField("content", content))
	for name, data := range images {
		fw, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	token, _ := e.signup(t, "writer")

	t.Run("me requires token", func(t *testing.T) {
		resp := e.request(t, fiber.MethodGet, "/api/users/me", "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("me with token", func(t *testing.T) {
		resp := e.request(t, fiber.MethodGet, "/api/users/me", token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var user models.User
		decodeBody(t, resp, &user)
		assert.Equal(t, "writer", user.Username)
	})

	t.Run("token carries identity claims", func(t *testing.T) {
		parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
			return []byte(e.srv.config.JWTSecret), nil
		})
		require.NoError(t, err)
		claims, ok := parsed.Claims.(jwt.MapClaims)
		require.True(t, ok)
		assert.Equal(t, "writer", claims["username"])
		assert.Equal(t, string(models.RoleUser), claims["role"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := e.request(t, fiber.MethodPost, "/api/auth/login", "", LoginRequest{
			Username: "writer",
			Password: "wrong-password",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := e.request(t, fiber.MethodGet, "/api/users/me", "not-a-jwt", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPostEndpoints(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken(t, "chief")
	userToken, _ := e.signup(t, "reader")

	t.Run("non-admin cannot create", func(t *testing.T) {
		body, contentType := multipartPost(t, "Nope", "", nil)
		req := httptest.NewRequest(fiber.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+userToken)
		resp, err := e.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	var created models.Post
	t.Run("admin creates with images", func(t *testing.T) {
		body, contentType := multipartPost(t, "Hello, World!!! 2024", "first body", map[string][]byte{
			"a.png": []byte("png-a"),
			"b.png": []byte("png-b"),
		})
		req := httptest.NewRequest(fiber.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+admin)
		resp, err := e.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		decodeBody(t, resp, &created)
		assert.Equal(t, "hello-world-2024", created.Slug)
		assert.Len(t, created.Images, 2)
		assert.Equal(t, 2, e.blobs.Len())
	})

	t.Run("duplicate title conflicts", func(t *testing.T) {
		body, contentType := multipartPost(t, "Hello, World!!! 2024", "again", nil)
		req := httptest.NewRequest(fiber.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+admin)
		resp, err := e.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("fetch by slug", func(t *testing.T) {
		resp := e.request(t, fiber.MethodGet, "/api/posts/slug/hello-world-2024", "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var post models.Post
		decodeBody(t, resp, &post)
		assert.Equal(t, created.ID, post.ID)
	})

	t.Run("list", func(t *testing.T) {
		resp := e.request(t, fiber.MethodGet, "/api/posts/?page=1&pageSize=10", "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var page struct {
			Items      []models.Post `json:"items"`
			TotalCount int64         `json:"total_count"`
		}
		decodeBody(t, resp, &page)
		assert.Equal(t, int64(1), page.TotalCount)
	})

	t.Run("comment and like", func(t *testing.T) {
		resp := e.request(t, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", created.ID),
			userToken, commentRequest{Body: "great read"})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		resp = e.request(t, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/like", created.ID), userToken, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = e.request(t, fiber.MethodGet, fmt.Sprintf("/api/posts/%d/likes", created.ID), "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var likes struct {
			Likes int64 `json:"likes"`
		}
		decodeBody(t, resp, &likes)
		assert.Equal(t, int64(1), likes.Likes)
	})

	t.Run("delete retires blobs", func(t *testing.T) {
		resp := e.request(t, fiber.MethodDelete, fmt.Sprintf("/api/posts/%d", created.ID), admin, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Zero(t, e.blobs.Len())

		resp = e.request(t, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", created.ID), "", nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestCategoryEndpoints(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken(t, "chief")

	var category models.Category
	resp := e.request(t, fiber.MethodPost, "/api/categories", admin,
		categoryRequest{Name: "go", Description: "all things go"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &category)

	t.Run("delete while referenced conflicts", func(t *testing.T) {
		createResp := e.request(t, fiber.MethodPost, "/api/posts", admin,
			postFormRequest{Title: "Categorized", Content: "filed", CategoryID: &category.ID})
		require.Equal(t, fiber.StatusCreated, createResp.StatusCode)

		var post models.Post
		decodeBody(t, createResp, &post)
		require.NotNil(t, post.CategoryID)

		del := e.request(t, fiber.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), admin, nil)
		assert.Equal(t, fiber.StatusConflict, del.StatusCode)
	})

	t.Run("update cannot re-parent", func(t *testing.T) {
		var posts struct {
			Items []models.Post `json:"items"`
		}
		listResp := e.request(t, fiber.MethodGet, "/api/posts/", "", nil)
		decodeBody(t, listResp, &posts)
		require.NotEmpty(t, posts.Items)
		post := posts.Items[0]

		upd := e.request(t, fiber.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), admin,
			postFormRequest{Title: "Categorized", Content: "edited"})
		require.Equal(t, fiber.StatusOK, upd.StatusCode)

		var updated models.Post
		decodeBody(t, upd, &updated)
		require.NotNil(t, updated.CategoryID)
		assert.Equal(t, category.ID, *updated.CategoryID)
	})

	t.Run("delete after unreferencing", func(t *testing.T) {
		var posts struct {
			Items []models.Post `json:"items"`
		}
		listResp := e.request(t, fiber.MethodGet, "/api/posts/", "", nil)
		decodeBody(t, listResp, &posts)
		for _, p := range posts.Items {
			resp := e.request(t, fiber.MethodDelete, fmt.Sprintf("/api/posts/%d", p.ID), admin, nil)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
		}

		del := e.request(t, fiber.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), admin, nil)
		assert.Equal(t, fiber.StatusOK, del.StatusCode)
	})
}

func TestRoleToggleEndpoint(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken(t, "chief")
	_, targetID := e.signup(t, "promotee")

	resp := e.request(t, fiber.MethodPost, fmt.Sprintf("/api/users/%d/toggle-role", targetID), admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var user models.User
	decodeBody(t, resp, &user)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = e.request(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
