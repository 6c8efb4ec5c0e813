package wlf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsView(t *testing.T) {
	assert.True(t, isView("a/b.wlf"))
	assert.True(t, isView("a/b.HTML"))
	assert.False(t, isView("a/b.tmp"))
	assert.False(t, isView("a/b"))
}

func TestWatcherPurgesOnChange(t *testing.T) {
	views := t.TempDir()
	writeFile(t, filepath.Join(views, "page.wlf"), "v1")
	store := NewFileStore(views, t.TempDir())
	e := New(store, Options{})

	_, err := e.Compile(context.Background(), "page", true)
	require.NoError(t, err)
	require.True(t, store.HasCompiled("page"))

	w, err := NewWatcher(e, views, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	purged := make(chan []string, 1)
	w.OnPurge = func(paths []string, err error) {
		if err == nil {
			select {
			case purged <- paths:
			default:
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.MkdirAll(filepath.Join(views, "sub"), 0o755))
	writeFile(t, filepath.Join(views, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(views, "page.wlf"), "v2")

	select {
	case paths := <-purged:
		assert.Contains(t, paths, filepath.Join(views, "page.wlf"))
		assert.NotContains(t, paths, filepath.Join(views, "notes.txt"))
	case <-time.After(5 * time.Second):
		t.Fatal("no purge after a view changed")
	}
	assert.False(t, store.HasCompiled("page"))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
