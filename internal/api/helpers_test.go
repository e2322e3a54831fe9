package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lessin/internal/config"
	"lessin/internal/database"
	"lessin/internal/storage"
)

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	store     *storage.LocalStore
	publisher *recordingPublisher
}

type recordingPublisher struct {
	mu       sync.Mutex
	threads  []uint
	payloads [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, threadID uint, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, threadID)
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.Open(config.DatabaseConfig{
		URL:      "sqlite://" + filepath.Join(dir, "api.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	store, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{API: config.APIConfig{CORSOrigins: []string{"*"}}}
	publisher := &recordingPublisher{}

	deps := Deps{
		DB:            db,
		Store:         store,
		Publisher:     publisher,
		Logger:        logger,
		PublicBaseURL: "http://files.test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	router := NewRouter(cfg, logger)
	RegisterRoutes(router, deps)

	return &testEnv{router: router, db: db, store: store, publisher: publisher}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postForm(method, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) delete(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodDelete, path, nil))
}

func (e *testEnv) upload(path string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	part, _ := writer.CreateFormFile("file", filename)
	_, _ = part.Write(content)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(req)
}

// signup 注册用户并返回其 ID。
func (e *testEnv) signup(t *testing.T, username string) uint {
	t.Helper()
	w := e.postForm(http.MethodPost, "/signup", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"s3cret-pass"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp userResponse
	decode(t, w, &resp)
	return resp.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
