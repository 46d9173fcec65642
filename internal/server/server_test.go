package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/estatease/estatease/internal/database"
	"github.com/estatease/estatease/internal/usecase"
)

// 1x1 transparent PNG
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// fakeStorage records uploads and fails paths containing failOn.
type fakeStorage struct {
	mu      sync.Mutex
	uploads []string
	failOn  string
}

func (f *fakeStorage) Upload(_ context.Context, bucket, path string, _ []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return io.ErrUnexpectedEOF
	}
	f.uploads = append(f.uploads, bucket+"/"+path)
	return nil
}

func (f *fakeStorage) GetPublicURL(_ context.Context, bucket, path string) (string, error) {
	return "https://cdn.test/" + bucket + "/" + path, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUsecase(t *testing.T, fs usecase.FileStorageProvider) usecase.Usecase {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo, err := database.New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return usecase.New(repo, fs, nil, nil, discardLogger())
}

func newTestServer(t *testing.T, svc Service) (*Server, *httptest.Server) {
	t.Helper()
	s := New(svc, discardLogger())
	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(ts.Close)
	return s, ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil && res.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func uploadImages(t *testing.T, url string, names ...string) (int, Res) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(tinyPNG)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	res, err := http.Post(url, w.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer res.Body.Close()

	var out Res
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

// decodeData re-decodes Res.Data into a typed value.
func decodeData(t *testing.T, data any, out any) {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}

func villaRequest() map[string]any {
	return map[string]any{
		"asset_type":     "villa",
		"title":          "Villa Sunset",
		"location":       "Canggu, Bali",
		"price":          "350000",
		"tenure":         "leasehold",
		"lease_duration": "25",
		"bedrooms":       "3",
		"bathrooms":      "2",
		"built_area":     "220",
		"amenities":      map[string]bool{"pool": true},
		"expected_yield": "8.5",
		"legal_checked":  true,
	}
}
