package tree

import (
	"errors"
	"strings"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// Type is the immutable kind of a node.
type Type int

const (
	TypeFile Type = iota
	TypeDirectory
)

func (t Type) String() string {
	if t == TypeDirectory {
		return "directory"
	}
	return "file"
}

// Node is one entry of the case tree. Files never have Children; a
// directory always has a non-nil Children slice, possibly empty.
type Node struct {
	Name   string
	Path   string // root-relative, "/"-joined
	Type   Type
	Handle handle.Handle

	Children    []*Node
	Attachments []*Node // image files directly inside a directory
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Type == TypeDirectory }

// File returns the node's file handle.
func (n *Node) File() (handle.File, bool) {
	f, ok := n.Handle.(handle.File)
	return f, ok && n.Type == TypeFile
}

// Dir returns the node's directory handle.
func (n *Node) Dir() (handle.Directory, bool) {
	d, ok := n.Handle.(handle.Directory)
	return d, ok && n.Type == TypeDirectory
}

// ChildPath constructs a child path from parent + name.
func ChildPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// SkipDir can be returned from a WalkFunc to skip a directory's children.
var SkipDir = errors.New("skip this directory")

// WalkFunc is called for each node in pre-order.
type WalkFunc func(n *Node) error

// Walk visits nodes depth-first in display order. Attachments are not
// visited.
func Walk(nodes []*Node, fn WalkFunc) error {
	for _, n := range nodes {
		err := fn(n)
		if errors.Is(err, SkipDir) {
			continue
		}
		if err != nil {
			return err
		}
		if n.IsDir() {
			if err := Walk(n.Children, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find resolves a path in the tree. Attachments are found too.
func Find(nodes []*Node, path string) *Node {
	for _, n := range nodes {
		if n.Path == path {
			return n
		}
		if !n.IsDir() || !strings.HasPrefix(path, n.Path+"/") {
			continue
		}
		for _, a := range n.Attachments {
			if a.Path == path {
				return a
			}
		}
		return Find(n.Children, path)
	}
	return nil
}

// Flatten returns all nodes in a flat map keyed by path.
func Flatten(nodes []*Node) map[string]*Node {
	result := make(map[string]*Node)
	_ = Walk(nodes, func(n *Node) error {
		result[n.Path] = n
		return nil
	})
	return result
}

// Count counts all nodes in a tree, attachments excluded.
func Count(nodes []*Node) int {
	count := 0
	_ = Walk(nodes, func(*Node) error {
		count++
		return nil
	})
	return count
}

// Paths lists node paths in display order.
func Paths(nodes []*Node) []string {
	var paths []string
	_ = Walk(nodes, func(n *Node) error {
		paths = append(paths, n.Path)
		return nil
	})
	return paths
}

// Crumb is one step of a breadcrumb trail.
type Crumb struct {
	Name string
	Path string
}

// Breadcrumbs returns the trail from the root (named rootName, path "") down
// to path.
func Breadcrumbs(rootName, path string) []Crumb {
	crumbs := []Crumb{{Name: rootName, Path: ""}}
	cur := ""
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		cur = ChildPath(cur, part)
		crumbs = append(crumbs, Crumb{Name: part, Path: cur})
	}
	return crumbs
}
