package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tventura/watrack/pkg/waevent"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestStoreAndResolve(t *testing.T) {
	s := newTestStore(t)
	data := []byte("fake jpeg bytes")

	ref, err := s.Store(data, "image/jpeg", waevent.KindImage, "true_5511999999999@c.us_3EB0C431")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if ref.Filename != "image_1700000000000_3EB0C431.jpg" {
		t.Errorf("Filename = %q", ref.Filename)
	}
	if ref.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", ref.Size, len(data))
	}

	got, err := s.Resolve(ref.Filename)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Resolve returned %d bytes, want original content", len(got))
	}

	size, err := s.Stat(ref.Filename)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if size != ref.Size {
		t.Errorf("Stat = %d, want %d", size, ref.Size)
	}
}

func TestStoreUnknownSuffixAndMime(t *testing.T) {
	s := newTestStore(t)

	ref, err := s.Store([]byte{0x00}, "application/x-mystery", waevent.KindDocument, "shortid")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if ref.Filename != "document_1700000000000_unknown.bin" {
		t.Errorf("Filename = %q", ref.Filename)
	}
}

func TestStoreRefusesOverwrite(t *testing.T) {
	s := newTestStore(t)

	id := "true_x@c.us_SAME"
	if _, err := s.Store([]byte("a"), "image/png", waevent.KindImage, id); err != nil {
		t.Fatalf("first Store: %v", err)
	}
	_, err := s.Store([]byte("b"), "image/png", waevent.KindImage, id)
	if !errors.Is(err, ErrExists) {
		t.Errorf("second Store = %v, want ErrExists", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	t.Parallel()

	for _, name := range []string{"../../etc/passwd", "sub/file.jpg", "..", ""} {
		if _, err := s.Resolve(name); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("Resolve(%q) = %v, want ErrInvalidReference", name, err)
		}
	}
}

func TestResolveMissingFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Resolve("image_1_none.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve = %v, want ErrNotFound", err)
	}
}

func TestMimeTypeFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		filename string
		want     string
	}{
		{"voice_1_abc.ogg", "audio/ogg"},
		{"image_1_abc.JPG", "image/jpeg"},
		{"document_1_abc.bin", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := MimeTypeFor(tc.filename); got != tc.want {
			t.Errorf("MimeTypeFor(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()
	if got := ExtensionFor("video/mp4"); got != ".mp4" {
		t.Errorf("ExtensionFor(video/mp4) = %q", got)
	}
	if !strings.HasSuffix(ExtensionFor("something/else"), ".bin") {
		t.Errorf("unknown mime should map to .bin")
	}
}
