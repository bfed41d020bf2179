package memfs

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

func names(entries []handle.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	m := New("root")
	m.WriteFile("a.mdx", "A")
	m.WriteFile("sub/b.md", "B")
	m.Mkdir("empty")

	entries, err := m.Root().Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mdx", "empty", "sub"}, names(entries))
	assert.Equal(t, 1, m.ListCount(""))

	for _, e := range entries {
		switch e.Name {
		case "a.mdx":
			assert.Equal(t, handle.KindFile, e.Handle.Kind())
		default:
			assert.Equal(t, handle.KindDirectory, e.Handle.Kind())
		}
	}
}

func TestReadCountsAndFaults(t *testing.T) {
	ctx := context.Background()
	m := New("root")
	m.WriteFile("a.mdx", "A")

	f, err := m.Root().File(ctx, "a.mdx")
	require.NoError(t, err)

	_, err = f.Read(ctx)
	require.NoError(t, err)
	_, err = f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ReadCount("a.mdx"))
	assert.Equal(t, 2, m.TotalReads())

	boom := errors.New("boom")
	m.FailRead("a.mdx", boom)
	_, err = f.Read(ctx)
	assert.ErrorIs(t, err, handle.ErrIO)
	assert.ErrorIs(t, err, boom)

	m.FailRead("a.mdx", nil)
	_, err = f.Read(ctx)
	assert.NoError(t, err)

	m.FailWrite("a.mdx", boom)
	assert.ErrorIs(t, f.Write(ctx, []byte("x")), handle.ErrIO)
	got, _ := m.Contents("a.mdx")
	assert.Equal(t, "A", got)

	m.FailList("", boom)
	_, err = m.Root().Entries(ctx)
	assert.ErrorIs(t, err, handle.ErrIO)
}

func TestHold(t *testing.T) {
	ctx := context.Background()
	m := New("root")
	m.WriteFile("slow.mdx", "slow")
	f, err := m.Root().File(ctx, "slow.mdx")
	require.NoError(t, err)

	release := m.Hold("slow.mdx")
	done := make(chan string, 1)
	go func() {
		data, _ := f.Read(ctx)
		done <- string(data)
	}()

	select {
	case <-done:
		t.Fatal("read finished while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	select {
	case got := <-done:
		assert.Equal(t, "slow", got)
	case <-time.After(time.Second):
		t.Fatal("read did not finish after release")
	}
}

func TestHoldHonoursContext(t *testing.T) {
	m := New("root")
	m.WriteFile("slow.mdx", "slow")
	f, err := m.Root().File(context.Background(), "slow.mdx")
	require.NoError(t, err)
	release := m.Hold("slow.mdx")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChildKindMismatch(t *testing.T) {
	ctx := context.Background()
	m := New("root")
	m.WriteFile("dir/file.md", "")

	_, err := m.Root().File(ctx, "dir")
	assert.ErrorIs(t, err, handle.ErrNotFound)
	d, err := m.Root().Dir(ctx, "dir")
	require.NoError(t, err)
	_, err = d.Dir(ctx, "file.md")
	assert.ErrorIs(t, err, handle.ErrNotFound)
}

func TestPicker(t *testing.T) {
	m := New("cases")
	d, err := m.Picker().PickDirectory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cases", d.Name())
	loc, ok := d.(handle.Locator)
	require.True(t, ok)
	assert.Equal(t, "mem://cases/", loc.Location())
}
