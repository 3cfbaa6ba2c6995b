package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/uploads/")
	require.NoError(t, err)

	data := []byte("fake png bytes")
	url, err := store.Upload(data, "chest_xray.png", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestLocalUploadUniqueNames(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	url1, err := store.Upload([]byte("a"), "scan.jpg", "image/jpeg")
	require.NoError(t, err)
	url2, err := store.Upload([]byte("b"), "scan.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.NotEqual(t, url1, url2)
}

func TestLocalUploadExtensionFromContentType(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	url, err := store.Upload([]byte("data"), "upload", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"), "got %s", url)
}

func TestLocalDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Upload([]byte("data"), "scan.png", "image/png")
	require.NoError(t, err)

	require.NoError(t, store.Delete(url))

	_, statErr := os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	assert.True(t, os.IsNotExist(statErr))

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(url))
}

func TestLocalDeleteRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	assert.Error(t, store.Delete("/uploads/../etc/passwd"))
	assert.Error(t, store.Delete("/uploads/"))
}

func TestNewLocalCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, err := NewLocal(dir, "/uploads")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
