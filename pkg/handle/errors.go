package handle

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrUnsupported means no capability layer is available in this
	// environment. It is fatal to every operation.
	ErrUnsupported = errors.New("directory access is not supported")
	// ErrCancelled means the user aborted a picker. Callers treat it as a no-op.
	ErrCancelled = errors.New("cancelled")
	// ErrNotFound means a path segment did not resolve to a child.
	ErrNotFound = errors.New("not found")
	// ErrIO covers read, write and list failures.
	ErrIO = errors.New("i/o error")
)

// PathError records the operation and root-relative path that failed.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }

// Wrap classifies a backend error into the handle error taxonomy. A
// *PathError is returned unchanged. Errors that already carry one of the
// sentinels keep it; missing files become ErrNotFound and anything else
// becomes ErrIO.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	if isClassified(err) {
		return &PathError{Op: op, Path: path, Err: err}
	}
	kind := ErrIO
	if errors.Is(err, fs.ErrNotExist) {
		kind = ErrNotFound
	}
	return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", kind, err)}
}

func isClassified(err error) bool {
	return errors.Is(err, ErrIO) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrUnsupported)
}
