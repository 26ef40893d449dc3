package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcherReportsScenarioChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, WithWatchLogger(zaptest.NewLogger(t)), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() { changed <- struct{}{} })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: a\n"), 0o644))
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for a.yaml")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherRejectsMissingPath(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestIsScenarioFile(t *testing.T) {
	assert.True(t, isScenarioFile("a/b.yaml"))
	assert.True(t, isScenarioFile("B.YML"))
	assert.False(t, isScenarioFile("notes.txt"))
	assert.False(t, isScenarioFile("yaml"))
}
