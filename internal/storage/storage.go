// Package storage handles uploaded image persistence. Uploads are
// best-effort from the caller's perspective; a failed upload must never
// fail the prediction that triggered it.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists uploaded images and returns publicly routable URLs.
type Store interface {
	// Upload writes the image bytes under a generated name derived from
	// filename and returns the URL the stored object is served at.
	Upload(data []byte, filename, contentType string) (string, error)
	// Delete removes a previously stored object by its URL. Missing
	// objects are not an error.
	Delete(url string) error
}

// Local stores images on the local filesystem and serves them under a
// URL prefix (typically "/uploads/").
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates a filesystem store rooted at dir. The directory is
// created if it does not exist.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Local{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir returns the directory uploads are written to, for wiring the
// static file handler.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Upload(data []byte, filename, contentType string) (string, error) {
	name := objectName(filename, contentType)
	path := filepath.Join(l.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return l.urlPrefix + name, nil
}

func (l *Local) Delete(url string) error {
	name := strings.TrimPrefix(url, l.urlPrefix)
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid object url: %s", url)
	}

	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// objectName builds a collision-resistant name: unix timestamp plus a
// random suffix, keeping the original extension when recognizable.
func objectName(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".dcm":
	default:
		ext = ""
	}
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	suffix := make([]byte, 6)
	_, _ = rand.Read(suffix)

	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), hex.EncodeToString(suffix), ext)
}
