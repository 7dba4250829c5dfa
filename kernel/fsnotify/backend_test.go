package fsnotify_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/kernel"
	fsn "github.com/nabbar/famd/kernel/fsnotify"
)

func TestAddWatchDetectsCreate(t *testing.T) {
	dir := t.TempDir()

	b, err := fsn.New()
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.AddWatch(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))

	select {
	case ev := <-b.Events():
		assert.Equal(t, kernel.OpCreate, ev.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for create event")
	}
}

func TestWatchRefcounting(t *testing.T) {
	dir := t.TempDir()

	b, err := fsn.New()
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.AddWatch(dir))
	require.NoError(t, b.AddWatch(dir))
	// first RemoveWatch only decrements; the watch should stay armed.
	require.NoError(t, b.RemoveWatch(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "still-watched.txt"), []byte("x"), 0o644))

	select {
	case ev := <-b.Events():
		assert.Equal(t, kernel.OpCreate, ev.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("expected watch to remain armed after one of two refs dropped")
	}
}
