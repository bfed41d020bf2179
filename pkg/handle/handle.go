// Package handle defines capability-scoped references to files and
// directories. A handle is obtained from a Picker or by walking down from a
// directory handle that is already held; nothing in this package accepts an
// absolute host path.
package handle

import "context"

// Kind distinguishes file handles from directory handles.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference owned by the host storage layer.
type Handle interface {
	Kind() Kind
	Name() string
}

// File is a handle to a single file.
type File interface {
	Handle
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the whole content of the file.
	Write(ctx context.Context, data []byte) error
}

// Entry is one child of a directory listing.
type Entry struct {
	Name   string
	Handle Handle
}

// Directory is a handle to a directory. Children are reachable only through
// Entries, File and Dir.
type Directory interface {
	Handle
	// Entries lists the direct children. The order is unspecified.
	Entries(ctx context.Context) ([]Entry, error)
	File(ctx context.Context, name string, opts ...ChildOption) (File, error)
	Dir(ctx context.Context, name string, opts ...ChildOption) (Directory, error)
}

// Picker lets the user choose a root directory. A user abort is reported as
// ErrCancelled.
type Picker interface {
	PickDirectory(ctx context.Context) (Directory, error)
}

// Locator is implemented by handles that can describe where they live, for
// remembering recently opened roots. It is never used to address storage.
type Locator interface {
	Location() string
}

// ChildOptions controls child lookups.
type ChildOptions struct {
	CreateIfMissing bool
}

type ChildOption func(*ChildOptions)

// Create makes File and Dir create the child when it does not exist.
func Create() ChildOption {
	return func(o *ChildOptions) {
		o.CreateIfMissing = true
	}
}

// ApplyChildOptions folds opts into a ChildOptions value. Backends call it.
func ApplyChildOptions(opts []ChildOption) ChildOptions {
	var o ChildOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
