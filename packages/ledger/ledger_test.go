package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_NoPath(t *testing.T) {
	l, err := Open(context.Background(), "", nil)
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.Persistent())
	l.Mark("id=1")
	assert.True(t, l.Has("id=1"))
	assert.NoError(t, l.Persist(context.Background()))
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	rec := &event.Recorder{}

	l, err := Open(context.Background(), path, rec)
	require.NoError(t, err)

	assert.Zero(t, l.Len())
	assert.Empty(t, rec.Events)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_CorruptFileStartsFresh(t *testing.T) {
	for name, content := range map[string]string{
		"not json":     "{{{",
		"wrong shape":  `["id=1"]`,
		"wrong values": `{"id=1": "yes"}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "progress.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			rec := &event.Recorder{}

			l, err := Open(context.Background(), path, rec)
			require.NoError(t, err)

			assert.Zero(t, l.Len())
			assert.Len(t, rec.OfKind(event.KindWarning), 1)
		})
	}
}

func TestOpen_CorruptSQLiteStartsFresh(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")
	garbage := []byte("this is not a sqlite database, just some bytes that happen to be here")
	require.NoError(t, os.WriteFile(path, garbage, 0644))
	rec := &event.Recorder{}

	l, err := Open(ctx, path, rec)
	require.NoError(t, err)
	defer l.Close()

	assert.Zero(t, l.Len())
	assert.Len(t, rec.OfKind(event.KindWarning), 1)

	aside, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, garbage, aside)

	require.NoError(t, l.MarkAndPersist(ctx, "id=1"))
	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.Has("id=1"))
}

func TestOpenReadOnly_MissingLedgerIsNotCreated(t *testing.T) {
	for _, path := range []string{
		filepath.Join(t.TempDir(), "progress.json"),
		filepath.Join(t.TempDir(), "progress.db"),
		"sqlite:" + filepath.Join(t.TempDir(), "progress.data"),
	} {
		t.Run(path, func(t *testing.T) {
			l, err := OpenReadOnly(context.Background(), path, nil)
			require.NoError(t, err)
			defer l.Close()

			assert.Zero(t, l.Len())
			assert.False(t, l.Persistent())
			_, statErr := os.Stat(strings.TrimPrefix(path, "sqlite:"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestOpenReadOnly_ReadsExistingLedger(t *testing.T) {
	ctx := context.Background()
	for _, path := range []string{
		filepath.Join(t.TempDir(), "progress.json"),
		filepath.Join(t.TempDir(), "progress.db"),
	} {
		t.Run(path, func(t *testing.T) {
			l, err := Open(ctx, path, nil)
			require.NoError(t, err)
			require.NoError(t, l.MarkAndPersist(ctx, "id=1"))
			require.NoError(t, l.Close())

			ro, err := OpenReadOnly(ctx, path, nil)
			require.NoError(t, err)
			defer ro.Close()

			assert.True(t, ro.Has("id=1"))
			assert.False(t, ro.Persistent())
		})
	}
}

func TestOpenReadOnly_CorruptSQLiteLeftInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just some bytes"), 0644))
	rec := &event.Recorder{}

	l, err := OpenReadOnly(context.Background(), path, rec)
	require.NoError(t, err)

	assert.Zero(t, l.Len())
	assert.Len(t, rec.OfKind(event.KindWarning), 1)
	_, statErr := os.Stat(path + ".corrupt")
	assert.True(t, os.IsNotExist(statErr))
}

func TestJSONLedger_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "progress.json")

	l, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, l.MarkAndPersist(ctx, "id=1"))
	require.NoError(t, l.MarkAndPersist(ctx, "id=2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]bool
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, map[string]bool{"id=1": true, "id=2": true}, onDisk)

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	assert.True(t, reopened.Has("id=1"))
	assert.True(t, reopened.Has("id=2"))
	assert.False(t, reopened.Has("id=3"))
}

func TestJSONLedger_FalseEntriesAreNotDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": true, "b": false}`), 0644))

	l, err := Open(context.Background(), path, nil)
	require.NoError(t, err)

	assert.True(t, l.Has("a"))
	assert.False(t, l.Has("b"))
	assert.Equal(t, 1, l.Len())
}

func TestJSONStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONStore(filepath.Join(dir, "progress.json"))

	require.NoError(t, store.Persist(context.Background(), map[string]bool{"x": true}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "progress.json", files[0].Name())
}

func TestSQLiteLedger_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	for _, path := range []string{
		filepath.Join(t.TempDir(), "progress.db"),
		"sqlite:" + filepath.Join(t.TempDir(), "progress.data"),
	} {
		t.Run(path, func(t *testing.T) {
			l, err := Open(ctx, path, nil)
			require.NoError(t, err)
			assert.True(t, l.Persistent())
			require.NoError(t, l.MarkAndPersist(ctx, "id=1"))
			require.NoError(t, l.MarkAndPersist(ctx, "id=2"))
			require.NoError(t, l.Close())

			reopened, err := Open(ctx, path, nil)
			require.NoError(t, err)
			defer reopened.Close()

			assert.Equal(t, 2, reopened.Len())
			assert.True(t, reopened.Has("id=1"))
			assert.True(t, reopened.Has("id=2"))
		})
	}
}

func TestSQLiteStore_OpenFailure(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing-dir", "progress.db"), nil)
	assert.Error(t, err)
}

func TestKeyMode(t *testing.T) {
	mode, err := ParseKeyMode("")
	require.NoError(t, err)
	assert.Equal(t, KeyData, mode)
	assert.Equal(t, "id=1", mode.Key(7, "id=1"))

	mode, err = ParseKeyMode("Record")
	require.NoError(t, err)
	assert.Equal(t, KeyRecord, mode)
	assert.Equal(t, "7:id=1", mode.Key(7, "id=1"))

	_, err = ParseKeyMode("hash")
	assert.Error(t, err)
}
