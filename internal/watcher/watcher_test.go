package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralpages/reef/internal/logging"
)

// collector gathers handler batches for assertions.
type collector struct {
	mu      sync.Mutex
	batches [][]Change
}

func (c *collector) handle(changes []Change) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, changes)
	return nil
}

func (c *collector) wait(t *testing.T, n int, timeout time.Duration) [][]Change {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.batches) >= n {
			out := make([][]Change, len(c.batches))
			copy(out, c.batches)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d batch(es)", n)
	return nil
}

func TestWatcher_DebouncesRapidWritesIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	w, err := New(100*time.Millisecond, logging.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	col := &collector{}
	w.AddFilter(ExtensionFilter(".reef"))
	w.AddHandler(col.handle)
	require.NoError(t, w.AddPath(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	path := filepath.Join(dir, "home.reef")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("<Card/>"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	batches := col.wait(t, 1, 2*time.Second)
	require.Len(t, batches, 1, "rapid writes within the debounce window coalesce")
	require.Len(t, batches[0], 1, "same path deduplicates to one change")
	assert.Equal(t, path, batches[0][0].Path)
}

func TestWatcher_FiltersNonTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(50*time.Millisecond, logging.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	col := &collector{}
	w.AddFilter(ExtensionFilter(".reef"))
	w.AddHandler(col.handle)
	require.NoError(t, w.AddPath(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.reef"), []byte("<Card/>"), 0o644))

	batches := col.wait(t, 1, 2*time.Second)
	for _, batch := range batches {
		for _, change := range batch {
			assert.Equal(t, ".reef", filepath.Ext(change.Path))
		}
	}
}

func TestWatcher_AddRecursiveSeesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pages")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	w, err := New(50*time.Millisecond, logging.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	col := &collector{}
	w.AddFilter(ExtensionFilter(".reef"))
	w.AddHandler(col.handle)
	require.NoError(t, w.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	path := filepath.Join(sub, "about.reef")
	require.NoError(t, os.WriteFile(path, []byte("<Text value=\"hi\"/>"), 0o644))

	batches := col.wait(t, 1, 2*time.Second)
	assert.Equal(t, path, batches[0][0].Path)
}

func TestExtensionFilter(t *testing.T) {
	f := ExtensionFilter(".reef", ".rf")
	assert.True(t, f("a/b/page.reef"))
	assert.True(t, f("PAGE.REEF"))
	assert.True(t, f("x.rf"))
	assert.False(t, f("page.html"))
	assert.False(t, f("reef"))
}

func TestNoHiddenFilter(t *testing.T) {
	assert.True(t, NoHiddenFilter("templates/home.reef"))
	assert.True(t, NoHiddenFilter("./templates/home.reef"))
	assert.False(t, NoHiddenFilter("templates/.cache/home.reef"))
	assert.False(t, NoHiddenFilter(".git/config"))
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "modified", EventModified.String())
	assert.Equal(t, "deleted", EventDeleted.String())
	assert.Equal(t, "renamed", EventRenamed.String())
}
