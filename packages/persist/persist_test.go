package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "abcd", Sanitize("a/b:c d!"))
	assert.Equal(t, "id-1_v2.0", Sanitize("id-1_v2.0"))
	assert.Equal(t, "caf", Sanitize("café"))
	assert.Empty(t, Sanitize("/:?*"))

	long := strings.Repeat("x", 500)
	assert.Len(t, Sanitize(long), 200)

	mixed := strings.Repeat("a/", 300)
	assert.Equal(t, strings.Repeat("a", 200), Sanitize(mixed))
}

func TestPersister_Path(t *testing.T) {
	day := time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)
	p := New("out", "response", "json", fixedClock(day))

	assert.Equal(t, filepath.Join("out", "response.abcd.2026-10-16.json"), p.Path("a/b:c d!"))
	assert.Equal(t, filepath.Join("out", "response..2026-10-16.json"), p.Path(""))
}

func TestPersister_PathUnknownDate(t *testing.T) {
	p := New("out", "page", "html", fixedClock(time.Time{}))

	assert.Equal(t, filepath.Join("out", "page.42.unknown-date.html"), p.Path("42"))
}

func TestPersister_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does", "not", "exist")
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	p := New(dir, "response", "html", fixedClock(day))

	path, err := p.Save("42", []byte("<html>first</html>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "response.42.2026-01-02.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>first</html>", string(data))

	// same day, same record: overwritten
	_, err = p.Save("42", []byte("second"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// next day: a new file
	next := New(dir, "response", "html", fixedClock(day.AddDate(0, 0, 1)))
	nextPath, err := next.Save("42", []byte("third"))
	require.NoError(t, err)
	assert.NotEqual(t, path, nextPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPersister_SaveBodyVerbatim(t *testing.T) {
	p := New(t.TempDir(), "bin", "txt")
	body := []byte{0x00, 0xff, '\r', '\n', 'x'}

	path, err := p.Save("r", body)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, data)
}

func TestPersister_SaveFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := New(blocker, "response", "html").Save("1", []byte("body"))
	assert.Error(t, err)
}

func TestValidExtension(t *testing.T) {
	for _, ext := range []string{"html", "json", "xml", "txt", "csv", "tsv", "yml"} {
		assert.True(t, ValidExtension(ext), ext)
	}
	assert.False(t, ValidExtension("yaml"))
	assert.False(t, ValidExtension("HTML"))
	assert.False(t, ValidExtension(""))
}
