package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/handle/osfs"
)

func setup(t *testing.T) (string, *Watcher, *atomic.Int32) {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "0001"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".git", "objects"), 0o755))

	root, err := osfs.Open(base)
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })

	logger, _ := test.NewNullLogger()
	w, err := New(context.Background(), root, WithDebounce(20*time.Millisecond), WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var calls atomic.Int32
	go func() {
		defer close(done)
		_ = w.Run(ctx, func() { calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return base, w, &calls
}

func TestWatchNotifiesOnChange(t *testing.T) {
	base, _, calls := setup(t)

	require.NoError(t, os.WriteFile(filepath.Join(base, "0001", "case.mdx"), []byte("# Login"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchFollowsNewDirectories(t *testing.T) {
	base, _, calls := setup(t)

	require.NoError(t, os.MkdirAll(filepath.Join(base, "0002"), 0o755))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	before := calls.Load()

	require.NoError(t, os.WriteFile(filepath.Join(base, "0002", "case.mdx"), []byte("# Logout"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchIgnoresHiddenDirectories(t *testing.T) {
	base, _, calls := setup(t)

	require.NoError(t, os.WriteFile(filepath.Join(base, ".git", "objects", "pack"), []byte("x"), 0o644))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestRelevant(t *testing.T) {
	base := t.TempDir()
	w := &Watcher{base: base, log: logrus.StandardLogger()}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: filepath.Join(base, "a.md"), Op: fsnotify.Write}, true},
		{"remove", fsnotify.Event{Name: filepath.Join(base, "0001", "case.mdx"), Op: fsnotify.Remove}, true},
		{"rename", fsnotify.Event{Name: filepath.Join(base, "b.md"), Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(base, "a.md"), Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: filepath.Join(base, ".DS_Store"), Op: fsnotify.Write}, false},
		{"inside hidden dir", fsnotify.Event{Name: filepath.Join(base, ".git", "HEAD"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.ev))
		})
	}
}
