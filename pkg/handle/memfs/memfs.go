// Package memfs is an in-memory handle backend. It counts reads and can
// inject failures or hold reads open, which makes it the backend of choice
// for tests of the tree builder, search engine and session.
package memfs

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

type node struct {
	name     string
	dir      bool
	data     []byte
	children map[string]*node
}

// FS is an in-memory directory tree.
type FS struct {
	mu        sync.Mutex
	name      string
	root      *node
	reads     map[string]int
	lists     map[string]int
	failRead  map[string]error
	failWrite map[string]error
	failList  map[string]error
	gates     map[string]chan struct{}
}

// New returns an empty tree whose root directory is called name.
func New(name string) *FS {
	return &FS{
		name:      name,
		root:      &node{name: name, dir: true, children: map[string]*node{}},
		reads:     map[string]int{},
		lists:     map[string]int{},
		failRead:  map[string]error{},
		failWrite: map[string]error{},
		failList:  map[string]error{},
		gates:     map[string]chan struct{}{},
	}
}

// Root returns the handle for the root directory.
func (m *FS) Root() handle.Directory {
	return &dirHandle{fs: m, path: ""}
}

// WriteFile creates or replaces a file, creating parent directories.
func (m *FS) WriteFile(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir, name := path.Split(clean(p))
	parent := m.mkdirLocked(dir)
	parent.children[name] = &node{name: name, data: []byte(content)}
}

// Mkdir creates a directory and its parents.
func (m *FS) Mkdir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(p)
}

// Remove deletes a file or directory tree.
func (m *FS) Remove(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir, name := path.Split(clean(p))
	if parent := m.lookupLocked(dir); parent != nil && parent.dir {
		delete(parent.children, name)
	}
}

// Contents returns the current bytes of a file as a string.
func (m *FS) Contents(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.lookupLocked(p)
	if n == nil || n.dir {
		return "", false
	}
	return string(n.data), true
}

// ReadCount reports how many times the file at p was read.
func (m *FS) ReadCount(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[clean(p)]
}

// TotalReads reports the number of file reads across the tree.
func (m *FS) TotalReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.reads {
		total += n
	}
	return total
}

// ListCount reports how many times the directory at p was listed.
func (m *FS) ListCount(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists[clean(p)]
}

// FailRead makes reads of p fail with err until cleared with a nil err.
func (m *FS) FailRead(p string, err error) { m.setFault(m.failRead, p, err) }

// FailWrite makes writes to p fail with err until cleared with a nil err.
func (m *FS) FailWrite(p string, err error) { m.setFault(m.failWrite, p, err) }

// FailList makes listing the directory p fail with err until cleared.
func (m *FS) FailList(p string, err error) { m.setFault(m.failList, p, err) }

func (m *FS) setFault(faults map[string]error, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(faults, clean(p))
		return
	}
	faults[clean(p)] = err
}

// Hold blocks every read of p until the returned release func is called.
func (m *FS) Hold(p string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[clean(p)] = gate
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.gates, clean(p))
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Picker returns a picker that always yields the root directory.
func (m *FS) Picker() handle.Picker {
	return PickerFunc(func(context.Context) (handle.Directory, error) {
		return m.Root(), nil
	})
}

// PickerFunc adapts a function to handle.Picker.
type PickerFunc func(ctx context.Context) (handle.Directory, error)

func (f PickerFunc) PickDirectory(ctx context.Context) (handle.Directory, error) {
	return f(ctx)
}

func (m *FS) mkdirLocked(p string) *node {
	cur := m.root
	for _, seg := range segments(p) {
		next, ok := cur.children[seg]
		if !ok || !next.dir {
			next = &node{name: seg, dir: true, children: map[string]*node{}}
			cur.children[seg] = next
		}
		cur = next
	}
	return cur
}

func (m *FS) lookupLocked(p string) *node {
	cur := m.root
	for _, seg := range segments(p) {
		if !cur.dir {
			return nil
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clean(p string) string {
	return strings.Join(segments(p), "/")
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

type dirHandle struct {
	fs   *FS
	path string
}

func (d *dirHandle) Kind() handle.Kind { return handle.KindDirectory }

func (d *dirHandle) Name() string {
	if d.path == "" {
		return d.fs.name
	}
	return path.Base(d.path)
}

func (d *dirHandle) Location() string { return "mem://" + d.fs.name + "/" + d.path }

func (d *dirHandle) Entries(ctx context.Context) ([]handle.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	d.fs.lists[d.path]++
	if err := d.fs.failList[d.path]; err != nil {
		return nil, handle.Wrap("list", d.path, err)
	}
	n := d.fs.lookupLocked(d.path)
	if n == nil || !n.dir {
		return nil, &handle.PathError{Op: "list", Path: d.path, Err: handle.ErrNotFound}
	}
	entries := make([]handle.Entry, 0, len(n.children))
	for name, child := range n.children {
		p := join(d.path, name)
		var h handle.Handle
		if child.dir {
			h = &dirHandle{fs: d.fs, path: p}
		} else {
			h = &fileHandle{fs: d.fs, path: p}
		}
		entries = append(entries, handle.Entry{Name: name, Handle: h})
	}
	return entries, nil
}

func (d *dirHandle) File(ctx context.Context, name string, opts ...handle.ChildOption) (handle.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := handle.ApplyChildOptions(opts)
	p := join(d.path, name)
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	parent := d.fs.lookupLocked(d.path)
	if parent == nil || !parent.dir {
		return nil, &handle.PathError{Op: "open", Path: d.path, Err: handle.ErrNotFound}
	}
	child, ok := parent.children[name]
	switch {
	case ok && child.dir:
		return nil, &handle.PathError{Op: "open", Path: p, Err: fmt.Errorf("%w: is a directory", handle.ErrNotFound)}
	case !ok && !o.CreateIfMissing:
		return nil, &handle.PathError{Op: "open", Path: p, Err: handle.ErrNotFound}
	case !ok:
		parent.children[name] = &node{name: name}
	}
	return &fileHandle{fs: d.fs, path: p}, nil
}

func (d *dirHandle) Dir(ctx context.Context, name string, opts ...handle.ChildOption) (handle.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := handle.ApplyChildOptions(opts)
	p := join(d.path, name)
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	parent := d.fs.lookupLocked(d.path)
	if parent == nil || !parent.dir {
		return nil, &handle.PathError{Op: "open", Path: d.path, Err: handle.ErrNotFound}
	}
	child, ok := parent.children[name]
	switch {
	case ok && !child.dir:
		return nil, &handle.PathError{Op: "open", Path: p, Err: fmt.Errorf("%w: not a directory", handle.ErrNotFound)}
	case !ok && !o.CreateIfMissing:
		return nil, &handle.PathError{Op: "open", Path: p, Err: handle.ErrNotFound}
	case !ok:
		parent.children[name] = &node{name: name, dir: true, children: map[string]*node{}}
	}
	return &dirHandle{fs: d.fs, path: p}, nil
}

type fileHandle struct {
	fs   *FS
	path string
}

func (f *fileHandle) Kind() handle.Kind { return handle.KindFile }
func (f *fileHandle) Name() string      { return path.Base(f.path) }

func (f *fileHandle) Read(ctx context.Context) ([]byte, error) {
	f.fs.mu.Lock()
	gate := f.fs.gates[f.path]
	f.fs.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.fs.reads[f.path]++
	if err := f.fs.failRead[f.path]; err != nil {
		return nil, handle.Wrap("read", f.path, err)
	}
	n := f.fs.lookupLocked(f.path)
	if n == nil || n.dir {
		return nil, &handle.PathError{Op: "read", Path: f.path, Err: handle.ErrNotFound}
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

func (f *fileHandle) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if err := f.fs.failWrite[f.path]; err != nil {
		return handle.Wrap("write", f.path, err)
	}
	dir, name := path.Split(f.path)
	parent := f.fs.lookupLocked(dir)
	if parent == nil || !parent.dir {
		return &handle.PathError{Op: "write", Path: f.path, Err: handle.ErrNotFound}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	parent.children[name] = &node{name: name, data: buf}
	return nil
}
