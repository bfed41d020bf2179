package osfs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestOpenAndWalk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "suite", "0001", "case.mdx"), "# Login")
	writeFile(t, filepath.Join(dir, "top.md"), "top")

	root, err := Open(dir)
	require.NoError(t, err)
	defer root.Close()

	assert.Equal(t, filepath.Base(dir), root.Name())
	assert.Equal(t, dir, root.Location())

	entries, err := root.Entries(ctx)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name+":"+e.Handle.Kind().String())
	}
	sort.Strings(got)
	assert.Equal(t, []string{"suite:directory", "top.md:file"}, got)

	f, err := handle.ResolveFile(ctx, root, "suite/0001/case.mdx")
	require.NoError(t, err)
	text, err := handle.ReadText(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "# Login", text)

	sub, err := handle.ResolveDir(ctx, root, "suite/0001")
	require.NoError(t, err)
	assert.Equal(t, "0001", sub.Name())
	assert.Equal(t, filepath.Join(dir, "suite", "0001"), sub.(handle.Locator).Location())
}

func TestWriteAndCreate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root, err := Open(dir)
	require.NoError(t, err)
	defer root.Close()

	_, err = root.File(ctx, "missing.md")
	assert.ErrorIs(t, err, handle.ErrNotFound)

	f, err := handle.ResolveFile(ctx, root, "a/b/new.md", handle.Create())
	require.NoError(t, err)
	require.NoError(t, handle.WriteText(ctx, f, "first version that is long"))
	require.NoError(t, handle.WriteText(ctx, f, "short"))

	data, err := os.ReadFile(filepath.Join(dir, "a", "b", "new.md"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "a", "b", ".new.md.tmp"))
}

func TestFailedWriteKeepsContent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "0001", "case.mdx"), "# Login")
	// A directory in the way of the staging file makes the write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0001", ".case.mdx.tmp"), 0755))

	root, err := Open(dir)
	require.NoError(t, err)
	defer root.Close()

	f, err := handle.ResolveFile(ctx, root, "0001/case.mdx")
	require.NoError(t, err)
	err = handle.WriteText(ctx, f, "# Logout")
	assert.ErrorIs(t, err, handle.ErrIO)

	data, err := os.ReadFile(filepath.Join(dir, "0001", "case.mdx"))
	require.NoError(t, err)
	assert.Equal(t, "# Login", string(data))
}

func TestKindMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "d", "f.md"), "")
	root, err := Open(dir)
	require.NoError(t, err)
	defer root.Close()

	_, err = root.File(ctx, "d")
	assert.ErrorIs(t, err, handle.ErrNotFound)
	d, err := root.Dir(ctx, "d")
	require.NoError(t, err)
	_, err = d.Dir(ctx, "f.md")
	assert.ErrorIs(t, err, handle.ErrNotFound)
	_, err = root.File(ctx, "../escape")
	assert.ErrorIs(t, err, handle.ErrNotFound)
}

func TestEscapingSymlinkIsHidden(t *testing.T) {
	ctx := context.Background()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.md"), "secret")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inside.md"), "inside")
	if err := os.Symlink(filepath.Join(outside, "secret.md"), filepath.Join(dir, "link.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	root, err := Open(dir)
	require.NoError(t, err)
	defer root.Close()

	entries, err := root.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inside.md", entries[0].Name)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "file.md"), "")

	_, err := Open(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, handle.ErrNotFound)
	_, err = Open(filepath.Join(dir, "file.md"))
	assert.ErrorIs(t, err, handle.ErrNotFound)
}

func TestPathPicker(t *testing.T) {
	ctx := context.Background()
	_, err := PathPicker{}.PickDirectory(ctx)
	assert.ErrorIs(t, err, handle.ErrCancelled)

	dir := t.TempDir()
	d, err := PathPicker{Path: dir}.PickDirectory(ctx)
	require.NoError(t, err)
	defer d.(*Dir).Close()
	assert.Equal(t, filepath.Base(dir), d.Name())
}

func TestPromptPicker(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name       string
		input      string
		def        string
		wantCancel bool
	}{
		{name: "typed path", input: dir + "\n"},
		{name: "typed path without newline", input: dir},
		{name: "empty uses default", input: "\n", def: dir},
		{name: "empty without default cancels", input: "\n", wantCancel: true},
		{name: "eof cancels", input: "", def: dir, wantCancel: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			d, err := PromptPicker{In: strings.NewReader(tt.input), Out: &out, Default: tt.def}.PickDirectory(ctx)
			if tt.wantCancel {
				assert.ErrorIs(t, err, handle.ErrCancelled)
				return
			}
			require.NoError(t, err)
			defer d.(*Dir).Close()
			assert.Equal(t, dir, d.(*Dir).Location())
			assert.Contains(t, out.String(), "Directory to open")
		})
	}
}
