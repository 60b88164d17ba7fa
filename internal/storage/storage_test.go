package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Put(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base, "uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "projects/7/../7/cake.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/projects/7/cake.png", url)

	data, err := os.ReadFile(filepath.Join(base, "projects", "7", "cake.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestFileStore_PutStaysInsideBase(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base, "/uploads")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "../../escape.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.png", url)

	_, err = os.Stat(filepath.Join(base, "escape.png"))
	assert.NoError(t, err)
}

func TestFileStore_RejectsEmptyKeyAndCancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), " / ", "image/png", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Put(ctx, "a.png", "image/png", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFileStore_RequiresBasePath(t *testing.T) {
	_, err := NewFileStore("  ", "/uploads")
	assert.Error(t, err)
}

func TestRemoteStore_Put(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "projects/1/cake.png", r.FormValue("key"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "cake.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		body, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(body))

		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/cake.png"})
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "key-123", srv.Client())
	url, err := store.Put(context.Background(), "projects/1/cake.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cake.png", url)
}

func TestRemoteStore_PutFailures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"error status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"bad api key"}`))
		},
		"missing url": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewRemoteStore(srv.URL, "", nil).Put(context.Background(), "a.png", "image/png", []byte("x"))
			assert.ErrorIs(t, err, ErrUploadRejected)
		})
	}
}
