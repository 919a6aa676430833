// Package upload runs a batch of activity files through the upload and
// metadata-edit calls of an authenticated session, one at a time.
package upload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ReadMode says how a file's bytes are prepared for transport.
type ReadMode int

// Read modes.
const (
	ModeBinary ReadMode = iota + 1
	ModeText
)

func (m ReadMode) String() string {
	switch m {
	case ModeBinary:
		return "binary"
	case ModeText:
		return "text"
	default:
		return "unknown"
	}
}

// extensionModes is the whitelist of uploadable formats.
var extensionModes = map[string]ReadMode{
	"fit": ModeBinary,
	"gpx": ModeText,
	"tcx": ModeText,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Activity is one local file queued for upload. Name, Type and Notes are
// optional. The remote id is assigned at most once, after a Created or
// AlreadyExists outcome.
type Activity struct {
	Path  string
	Name  string
	Type  string
	Notes string

	remoteID    int64
	hasRemoteID bool
}

// NewActivity returns an Activity for path with no metadata.
func NewActivity(path string) *Activity {
	return &Activity{Path: path}
}

// Extension is the lowercase file extension without the dot.
func (a *Activity) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(a.Path), "."))
}

// Mode returns the read mode for the file's extension, or ErrInvalidExtension.
func (a *Activity) Mode() (ReadMode, error) {
	mode, ok := extensionModes[a.Extension()]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExtension, filepath.Ext(a.Path))
	}

	return mode, nil
}

// IsSupported reports whether path has an uploadable extension.
func IsSupported(path string) bool {
	_, err := NewActivity(path).Mode()
	return err == nil
}

// AssignRemoteID records the service identifier. A second call fails.
func (a *Activity) AssignRemoteID(id int64) error {
	if a.hasRemoteID {
		return fmt.Errorf("%w: %d", ErrRemoteIDAssigned, a.remoteID)
	}

	a.remoteID = id
	a.hasRemoteID = true

	return nil
}

// RemoteID returns the assigned identifier and whether one was assigned.
func (a *Activity) RemoteID() (int64, bool) {
	return a.remoteID, a.hasRemoteID
}

// UploadName is the base name folded to ASCII for the multipart filename.
// Accents are stripped; other non-ASCII runes are dropped.
func (a *Activity) UploadName() string {
	base := filepath.Base(a.Path)
	ext := filepath.Ext(base)
	stem := asciiFold(strings.TrimSuffix(base, ext))

	if strings.TrimSpace(stem) == "" {
		stem = "activity"
	}

	return stem + "." + a.Extension()
}

func asciiFold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)

	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}

	return out
}

// ReadContent loads the file for transport. Text formats lose a leading BOM.
func (a *Activity) ReadContent() ([]byte, error) {
	mode, err := a.Mode()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("upload: reading %s: %w", a.Path, err)
	}

	if mode == ModeText {
		data = bytes.TrimPrefix(data, utf8BOM)
	}

	return data, nil
}

func (a *Activity) String() string {
	return filepath.Base(a.Path)
}
