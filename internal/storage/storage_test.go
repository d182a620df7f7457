package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "exports")

		storage, err := NewLocalStorage(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, storage.Dir())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestLocalStorage_Save(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("writes file under name", func(t *testing.T) {
		path, err := storage.Save(context.Background(), "take.wav", bytes.NewReader([]byte("RIFF data")))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(storage.Dir(), "take.wav"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "RIFF data", string(content))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		entries, err := os.ReadDir(storage.Dir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), "."), "unexpected temp file %s", e.Name())
		}
	})

	t.Run("rejects path names", func(t *testing.T) {
		for _, name := range []string{"", "../escape.wav", "a/b.wav"} {
			_, err := storage.Save(context.Background(), name, bytes.NewReader(nil))
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Save(ctx, "late.wav", bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_UploadToS3(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.UploadToS3(context.Background(), "key", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrS3NotConfigured)
}

func TestNew_SelectsSink(t *testing.T) {
	local, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, local)

	remote, err := New(Config{Dir: t.TempDir(), S3: S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, remote)
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(t.TempDir(), S3Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrS3NotConfigured)
}

func TestS3Storage_Save_MockServer(t *testing.T) {
	var gotPath string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Prefix:          "exports/",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	url, err := storage.Save(context.Background(), "take.wav", bytes.NewReader([]byte("test content")))
	require.NoError(t, err)

	assert.Equal(t, "https://test-bucket.s3.us-east-1.amazonaws.com/exports/take.wav", url)
	assert.Contains(t, gotPath, "/test-bucket/exports/take.wav")
	assert.Contains(t, string(gotBody), "test content")

	_, err = os.Stat(filepath.Join(storage.Dir(), "take.wav"))
	assert.NoError(t, err, "expected local copy")
}
