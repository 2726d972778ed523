// Package objectkey derives collision-free storage keys for uploaded
// files from the current time, a random identifier and the sanitized
// original filename.
package objectkey

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidPath indicates a custom upload path that is malformed or
// attempts to escape the configured root.
var ErrInvalidPath = errors.New("invalid upload path")

// DefaultMaxFilenameBytes bounds the sanitized filename component of a
// generated key. The extension is preserved when truncating.
const DefaultMaxFilenameBytes = 200

const timestampLayout = "20060102_150405"

// Request carries the caller-supplied inputs for key generation.
type Request struct {
	FileName   string
	CustomPath string // optional; replaces the configured prefix
}

// Generator defines the interface for storage key generation strategies.
type Generator interface {
	// GenerateKey creates a globally unique storage key for the request.
	GenerateKey(req Request) (string, error)
}

// TimestampedGenerator produces keys of the form
//
//	<prefix>/<YYYYMMDD_HHMMSS>_<32-hex-id>_<sanitized-filename>
//
// The timestamp is UTC and the identifier carries 128 bits of
// randomness, so keys do not collide across concurrent requests.
type TimestampedGenerator struct {
	// Prefix is the key root used when the request carries no custom
	// path. May be empty.
	Prefix string

	// MaxFilenameBytes caps the sanitized filename length
	// (default: DefaultMaxFilenameBytes).
	MaxFilenameBytes int

	// Now and NewID exist so tests can pin time and randomness.
	Now   func() time.Time
	NewID func() string
}

// NewTimestampedGenerator returns a generator rooted at prefix.
func NewTimestampedGenerator(prefix string) *TimestampedGenerator {
	return &TimestampedGenerator{Prefix: prefix}
}

func (g *TimestampedGenerator) GenerateKey(req Request) (string, error) {
	prefix := g.Prefix
	if req.CustomPath != "" {
		validated, err := ValidatePath(req.CustomPath)
		if err != nil {
			return "", err
		}
		prefix = validated
	}

	name := SanitizeFilename(req.FileName)
	name = truncateFilename(name, g.maxFilenameBytes())

	filename := fmt.Sprintf("%s_%s_%s", g.timestamp(), g.newID(), name)
	if prefix == "" {
		return filename, nil
	}
	return fmt.Sprintf("%s/%s", prefix, filename), nil
}

func (g *TimestampedGenerator) maxFilenameBytes() int {
	if g.MaxFilenameBytes > 0 {
		return g.MaxFilenameBytes
	}
	return DefaultMaxFilenameBytes
}

func (g *TimestampedGenerator) timestamp() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return now().UTC().Format(timestampLayout)
}

func (g *TimestampedGenerator) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SanitizeFilename strips path separators, control characters and
// leading dots from a client-supplied filename so it is safe to embed
// in a storage key. An empty result is replaced with "file".
func SanitizeFilename(filename string) string {
	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name := unsafeCharReplacer.Replace(b.String())
	name = strings.TrimLeft(name, ".")
	// Keys must never contain "..", even inside a single segment.
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "_")
	}
	if name == "" {
		return "file"
	}
	return name
}

// unsafeCharReplacer maps characters that are path separators or
// otherwise problematic in object keys to underscores.
var unsafeCharReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"#", "_",
	" ", "_",
)

// ValidatePath validates a caller-supplied destination path and returns
// its cleaned form. Absolute paths, backslashes, control characters and
// any ".." segment fail with ErrInvalidPath.
func ValidatePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("absolute path %q: %w", p, ErrInvalidPath)
	}
	if strings.ContainsRune(p, '\\') {
		return "", fmt.Errorf("backslash in path %q: %w", p, ErrInvalidPath)
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("control character in path: %w", ErrInvalidPath)
		}
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", fmt.Errorf("path traversal in %q: %w", p, ErrInvalidPath)
		}
	}
	cleaned := strings.Trim(path.Clean(p), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty path after cleaning %q: %w", p, ErrInvalidPath)
	}
	return cleaned, nil
}

// truncateFilename caps name at max bytes, keeping the extension intact
// when one fits.
func truncateFilename(name string, max int) string {
	if len(name) <= max {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= max {
		return trimToRuneBoundary(name, max)
	}
	base := name[:len(name)-len(ext)]
	return trimToRuneBoundary(base, max-len(ext)) + ext
}

// trimToRuneBoundary cuts s to at most max bytes without splitting a
// multi-byte rune.
func trimToRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	// Walk back over any trailing partial UTF-8 sequence.
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
