// Package media persists downloaded attachments under a single media root
// and serves read-back for the API layer. Filenames are the only
// identifier persisted alongside messages.
package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tventura/watrack/pkg/waevent"
)

// extByMime maps known attachment MIME types to file extensions.
// Unrecognized types fall back to ".bin".
var extByMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/wav":       ".wav",
	"audio/aac":       ".aac",
	"application/pdf": ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain": ".txt",
}

// mimeByExt is the reverse mapping, used on read-back when a message row
// carries no stored MIME type.
var mimeByExt = func() map[string]string {
	m := make(map[string]string, len(extByMime))
	for mime, ext := range extByMime {
		m[ext] = mime
	}
	m[".jpeg"] = "image/jpeg"
	m[".bin"] = "application/octet-stream"
	return m
}()

// Ref is a stable reference to a stored attachment.
type Ref struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Store persists attachment bytes under a single root directory.
type Store struct {
	root   string
	logger *slog.Logger

	// now is injectable for deterministic filenames in tests.
	now func() time.Time
}

// NewStore creates the media root if needed and returns a Store.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("media: resolve root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("media: create root %s: %w", abs, err)
	}
	return &Store{
		root:   abs,
		logger: logger.With("component", "media"),
		now:    time.Now,
	}, nil
}

// Root returns the absolute media root directory.
func (s *Store) Root() string {
	return s.root
}

// Store writes attachment bytes once and returns the generated reference.
// The filename is {kind}_{timestamp}_{id-suffix}{ext}; it never overwrites
// an existing file.
func (s *Store) Store(data []byte, mimeType string, kind waevent.Kind, messageID string) (*Ref, error) {
	filename := s.filename(kind, messageID, mimeType)
	path := filepath.Join(s.root, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, filename)
		}
		return nil, fmt.Errorf("media: create %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("media: write %s: %w", filename, err)
	}

	s.logger.Debug("media stored", "filename", filename, "bytes", len(data))
	return &Ref{
		Filename: filename,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// Resolve reads an attachment back by filename. Filenames that escape the
// media root are rejected with ErrInvalidReference.
func (s *Store) Resolve(filename string) ([]byte, error) {
	path, err := s.safePath(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("media: read %s: %w", filename, err)
	}
	return data, nil
}

// Stat returns the size of a stored attachment without reading it.
func (s *Store) Stat(filename string) (int64, error) {
	path, err := s.safePath(filename)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return 0, fmt.Errorf("media: stat %s: %w", filename, err)
	}
	return info.Size(), nil
}

// safePath joins filename onto the root and verifies the result stays
// inside it.
func (s *Store) safePath(filename string) (string, error) {
	if filename == "" || strings.ContainsRune(filename, os.PathSeparator) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, filename)
	}
	path := filepath.Join(s.root, filename)
	if !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, filename)
	}
	return path, nil
}

// filename builds {kind}_{timestamp}_{suffix}{ext}. The suffix is the
// third underscore-separated segment of the client message id (the
// client's serial part), falling back to "unknown".
func (s *Store) filename(kind waevent.Kind, messageID, mimeType string) string {
	suffix := "unknown"
	if parts := strings.Split(messageID, "_"); len(parts) > 2 && parts[2] != "" {
		suffix = parts[2]
	}
	return fmt.Sprintf("%s_%d_%s%s", kind, s.now().UnixMilli(), suffix, ExtensionFor(mimeType))
}

// ExtensionFor maps a MIME type to a file extension, defaulting to ".bin".
func ExtensionFor(mimeType string) string {
	if ext, ok := extByMime[mimeType]; ok {
		return ext
	}
	return ".bin"
}

// MimeTypeFor guesses a MIME type from a filename's extension, defaulting
// to application/octet-stream.
func MimeTypeFor(filename string) string {
	if mime, ok := mimeByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return mime
	}
	return "application/octet-stream"
}
