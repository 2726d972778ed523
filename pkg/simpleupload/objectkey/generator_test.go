package objectkey

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^uploads/\d{8}_\d{6}_[a-f0-9]{32}_report_final\.pdf$`)

func TestTimestampedGenerator_KeyShape(t *testing.T) {
	gen := NewTimestampedGenerator("uploads")

	key, err := gen.GenerateKey(Request{FileName: "report final.pdf"})
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, key)
}

func TestTimestampedGenerator_PinnedTimeAndID(t *testing.T) {
	gen := NewTimestampedGenerator("uploads")
	gen.Now = func() time.Time {
		return time.Date(2026, 8, 25, 13, 45, 9, 0, time.UTC)
	}
	gen.NewID = func() string { return strings.Repeat("ab", 16) }

	key, err := gen.GenerateKey(Request{FileName: "photo.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "uploads/20260825_134509_abababababababababababababababab_photo.jpg", key)
}

func TestTimestampedGenerator_EmptyPrefix(t *testing.T) {
	gen := NewTimestampedGenerator("")

	key, err := gen.GenerateKey(Request{FileName: "a.txt"})
	require.NoError(t, err)
	assert.NotContains(t, key, "/")
}

func TestTimestampedGenerator_CustomPath(t *testing.T) {
	gen := NewTimestampedGenerator("uploads")

	t.Run("ReplacesPrefix", func(t *testing.T) {
		key, err := gen.GenerateKey(Request{FileName: "a.txt", CustomPath: "invoices/2026"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "invoices/2026/"), key)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := gen.GenerateKey(Request{FileName: "a.txt", CustomPath: "../../etc"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("Absolute", func(t *testing.T) {
		_, err := gen.GenerateKey(Request{FileName: "a.txt", CustomPath: "/etc"})
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("EmbeddedTraversal", func(t *testing.T) {
		_, err := gen.GenerateKey(Request{FileName: "a.txt", CustomPath: "good/../../bad"})
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("TrailingSlashCleaned", func(t *testing.T) {
		key, err := gen.GenerateKey(Request{FileName: "a.txt", CustomPath: "reports/"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "reports/"), key)
		assert.NotContains(t, key, "//")
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Spaces", "report final.pdf", "report_final.pdf"},
		{"Slashes", "a/b/c.txt", "a_b_c.txt"},
		{"Backslashes", `a\b.txt`, "a_b.txt"},
		{"LeadingDots", "..hidden.txt", "hidden.txt"},
		{"ControlChars", "a\x00b\nc.txt", "abc.txt"},
		{"Empty", "", "file"},
		{"OnlyDots", "...", "file"},
		{"SpecialChars", `a:b*c?d"e<f>g|h.txt`, "a_b_c_d_e_f_g_h.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestGeneratedKeyNeverContainsTraversal(t *testing.T) {
	gen := NewTimestampedGenerator("uploads")

	for _, fn := range []string{
		"../../etc/passwd",
		"..\\..\\windows",
		"/absolute/path.txt",
		"nested/../sneaky.txt",
		"...dots.txt",
	} {
		key, err := gen.GenerateKey(Request{FileName: fn})
		require.NoError(t, err, fn)
		assert.NotContains(t, key, "..", fn)
		rest := strings.TrimPrefix(key, "uploads/")
		assert.NotContains(t, rest, "/", fn)
	}
}

func TestTruncationPreservesExtension(t *testing.T) {
	gen := NewTimestampedGenerator("uploads")
	gen.MaxFilenameBytes = 20

	key, err := gen.GenerateKey(Request{FileName: strings.Repeat("x", 100) + ".pdf"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)

	name := key[strings.LastIndex(key, "_")+1:]
	assert.LessOrEqual(t, len(name), 20)
}

func TestTruncationMultibyteSafe(t *testing.T) {
	gen := NewTimestampedGenerator("")
	gen.MaxFilenameBytes = 10

	key, err := gen.GenerateKey(Request{FileName: strings.Repeat("é", 50) + ".txt"})
	require.NoError(t, err)
	// The key must remain valid UTF-8 after the byte-level cut.
	assert.True(t, strings.HasSuffix(key, ".txt"), key)
	assert.True(t, isValidUTF8(key))
}

func isValidUTF8(s string) bool {
	return strings.ToValidUTF8(s, "") == s
}

func TestKeyCollisions(t *testing.T) {
	gen := NewTimestampedGenerator("uploads")
	// Pin the clock so every key lands in the same second; uniqueness
	// must come entirely from the random identifier.
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	gen.Now = func() time.Time { return now }

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		key, err := gen.GenerateKey(Request{FileName: "same.bin"})
		require.NoError(t, err)
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate key after %d generations: %s", i, key)
		}
		seen[key] = struct{}{}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"uploads", "uploads", false},
		{"a/b/c", "a/b/c", false},
		{"a/b/", "a/b", false},
		{"", "", true},
		{"   ", "", true},
		{"/abs", "", true},
		{"..", "", true},
		{"../x", "", true},
		{"x/..", "", true},
		{"x/../y", "", true},
		{`x\y`, "", true},
		{"x\x00y", "", true},
		{".", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ValidatePath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
