package handle

import (
	"context"
	"fmt"
	"strings"
)

// Split breaks a root-relative, slash-separated path into segments. Empty
// segments are dropped; "." and ".." are rejected so a walk can never leave
// the directory it started from.
func Split(p string) ([]string, error) {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return nil, fmt.Errorf("%w: invalid path segment %q in %q", ErrNotFound, seg, p)
		}
		parts = append(parts, seg)
	}
	return parts, nil
}

// Clean returns p in canonical tree form ("a/b/c").
func Clean(p string) (string, error) {
	parts, err := Split(p)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "/"), nil
}

// ResolveDir walks from root through every segment of p. An empty p
// resolves to root itself.
func ResolveDir(ctx context.Context, root Directory, p string, opts ...ChildOption) (Directory, error) {
	parts, err := Split(p)
	if err != nil {
		return nil, err
	}
	dir := root
	for i, seg := range parts {
		next, err := dir.Dir(ctx, seg, opts...)
		if err != nil {
			return nil, Wrap("resolve", strings.Join(parts[:i+1], "/"), err)
		}
		dir = next
	}
	return dir, nil
}

// ResolveFile walks to the parent directory of p and returns the file handle
// for its last segment. Any missing segment yields ErrNotFound.
func ResolveFile(ctx context.Context, root Directory, p string, opts ...ChildOption) (File, error) {
	parts, err := Split(p)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, &PathError{Op: "resolve", Path: p, Err: ErrNotFound}
	}
	dir, err := ResolveDir(ctx, root, strings.Join(parts[:len(parts)-1], "/"), opts...)
	if err != nil {
		return nil, err
	}
	f, err := dir.File(ctx, parts[len(parts)-1], opts...)
	if err != nil {
		return nil, Wrap("resolve", strings.Join(parts, "/"), err)
	}
	return f, nil
}
