// Package osfs backs handles with the local filesystem. Every handle is
// confined to the directory the user picked through an *os.Root, so a handle
// can never reach outside it, symlinks included.
package osfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// Dir is a directory handle inside an opened root.
type Dir struct {
	root *os.Root
	abs  string
	rel  string
}

// Open opens dir as a new root. The returned handle owns the root and
// should be closed when the session is done with it.
func Open(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, handle.Wrap("open", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, handle.Wrap("open", dir, err)
	}
	if !info.IsDir() {
		return nil, &handle.PathError{Op: "open", Path: dir, Err: fmt.Errorf("%w: not a directory", handle.ErrNotFound)}
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, handle.Wrap("open", dir, err)
	}
	return &Dir{root: root, abs: abs}, nil
}

func (d *Dir) Kind() handle.Kind { return handle.KindDirectory }

func (d *Dir) Name() string {
	if d.rel == "" {
		return filepath.Base(d.abs)
	}
	return path.Base(d.rel)
}

// Location is the absolute host path of the directory.
func (d *Dir) Location() string {
	return filepath.Join(d.abs, filepath.FromSlash(d.rel))
}

// Close releases the root. Only the handle returned by Open owns it.
func (d *Dir) Close() error {
	if d.rel != "" {
		return nil
	}
	return d.root.Close()
}

func (d *Dir) name(child string) string {
	if d.rel == "" {
		return child
	}
	return d.rel + "/" + child
}

func (d *Dir) self() string {
	if d.rel == "" {
		return "."
	}
	return d.rel
}

func (d *Dir) Entries(ctx context.Context) ([]handle.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := d.root.Open(d.self())
	if err != nil {
		return nil, handle.Wrap("list", d.rel, err)
	}
	defer f.Close()

	dirents, err := f.ReadDir(-1)
	if err != nil {
		return nil, handle.Wrap("list", d.rel, err)
	}

	entries := make([]handle.Entry, 0, len(dirents))
	for _, de := range dirents {
		isDir := de.IsDir()
		if de.Type()&fs.ModeSymlink != 0 {
			// Links that escape the root or dangle are invisible.
			info, err := d.root.Stat(d.name(de.Name()))
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}
		var h handle.Handle
		if isDir {
			h = &Dir{root: d.root, abs: d.abs, rel: d.name(de.Name())}
		} else {
			h = &File{root: d.root, abs: d.abs, rel: d.name(de.Name())}
		}
		entries = append(entries, handle.Entry{Name: de.Name(), Handle: h})
	}
	return entries, nil
}

func (d *Dir) File(ctx context.Context, name string, opts ...handle.ChildOption) (handle.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	rel := d.name(name)
	info, err := d.root.Stat(rel)
	switch {
	case err == nil && info.IsDir():
		return nil, &handle.PathError{Op: "open", Path: rel, Err: fmt.Errorf("%w: is a directory", handle.ErrNotFound)}
	case errors.Is(err, fs.ErrNotExist) && handle.ApplyChildOptions(opts).CreateIfMissing:
		f, err := d.root.Create(rel)
		if err != nil {
			return nil, handle.Wrap("create", rel, err)
		}
		f.Close()
	case err != nil:
		return nil, handle.Wrap("open", rel, err)
	}
	return &File{root: d.root, abs: d.abs, rel: rel}, nil
}

func (d *Dir) Dir(ctx context.Context, name string, opts ...handle.ChildOption) (handle.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	rel := d.name(name)
	info, err := d.root.Stat(rel)
	switch {
	case err == nil && !info.IsDir():
		return nil, &handle.PathError{Op: "open", Path: rel, Err: fmt.Errorf("%w: not a directory", handle.ErrNotFound)}
	case errors.Is(err, fs.ErrNotExist) && handle.ApplyChildOptions(opts).CreateIfMissing:
		if err := d.root.Mkdir(rel, 0755); err != nil {
			return nil, handle.Wrap("mkdir", rel, err)
		}
	case err != nil:
		return nil, handle.Wrap("open", rel, err)
	}
	return &Dir{root: d.root, abs: d.abs, rel: rel}, nil
}

// File is a file handle inside an opened root.
type File struct {
	root *os.Root
	abs  string
	rel  string
}

func (f *File) Kind() handle.Kind { return handle.KindFile }
func (f *File) Name() string      { return path.Base(f.rel) }

func (f *File) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := f.root.Open(f.rel)
	if err != nil {
		return nil, handle.Wrap("read", f.rel, err)
	}
	defer fh.Close()
	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, handle.Wrap("read", f.rel, err)
	}
	return data, nil
}

// Write replaces the file by writing a hidden sibling and renaming it over
// the original, so a failed write leaves the old content in place.
func (f *File) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := fs.FileMode(0644)
	if info, err := f.root.Stat(f.rel); err == nil {
		perm = info.Mode().Perm()
	}

	tmp := path.Join(path.Dir(f.rel), "."+path.Base(f.rel)+".tmp")
	fh, err := f.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return handle.Wrap("write", f.rel, err)
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		f.root.Remove(tmp)
		return handle.Wrap("write", f.rel, err)
	}
	if err := fh.Close(); err != nil {
		f.root.Remove(tmp)
		return handle.Wrap("write", f.rel, err)
	}
	// os.Root has no Rename yet; both names were resolved inside the root.
	if err := os.Rename(f.host(tmp), f.host(f.rel)); err != nil {
		f.root.Remove(tmp)
		return handle.Wrap("write", f.rel, err)
	}
	return nil
}

func (f *File) host(rel string) string {
	return filepath.Join(f.abs, filepath.FromSlash(rel))
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || path.Base(name) != name {
		return &handle.PathError{Op: "open", Path: name, Err: fmt.Errorf("%w: invalid name", handle.ErrNotFound)}
	}
	return nil
}
