package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/pipeline"
)

type countingTrainer struct {
	mu sync.Mutex
	n  int
}

func (c *countingTrainer) TrainLocal(ctx context.Context, folder string) (pipeline.TrainResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return pipeline.TrainResult{Folder: folder}, nil
}

func (c *countingTrainer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestRunDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	tr := &countingTrainer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, logger.Nop(), Options{Dir: dir, Folder: "raw", Ext: ".json", Debounce: 300 * time.Millisecond}, tr, nil)
	}()
	time.Sleep(200 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.json", i)), []byte(`{"a": 1}`), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return tr.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 1, tr.count())

	cancel()
	assert.NoError(t, <-done)
}

func TestRunMissingDir(t *testing.T) {
	err := Run(context.Background(), logger.Nop(), Options{Dir: filepath.Join(t.TempDir(), "nope")}, &countingTrainer{}, nil)
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "a.json", Op: fsnotify.Create}, ".json"))
	assert.True(t, relevant(fsnotify.Event{Name: "a.JSON", Op: fsnotify.Write}, ".json"))
	assert.False(t, relevant(fsnotify.Event{Name: "a.txt", Op: fsnotify.Create}, ".json"))
	assert.False(t, relevant(fsnotify.Event{Name: "a.json", Op: fsnotify.Chmod}, ".json"))
}
