// Package tree builds and navigates the in-memory case tree of an opened
// root directory.
package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// DefaultConcurrency bounds simultaneous directory listings.
const DefaultConcurrency = 8

type buildOptions struct {
	concurrency int
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithConcurrency sets how many directories may be listed at once.
func WithConcurrency(n int) BuildOption {
	return func(o *buildOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// Build lists dir recursively and returns its sorted children. prefix is
// the path of dir inside the root ("" for the root itself). A listing
// failure anywhere fails the whole build; no partial tree is returned.
func Build(ctx context.Context, dir handle.Directory, prefix string, opts ...BuildOption) ([]*Node, error) {
	children, _, err := newBuilder(opts).dir(ctx, dir, prefix)
	return children, err
}

// BuildRoot builds the tree of dir and wraps it in a synthetic root node
// with an empty path, carrying the root's own attachments.
func BuildRoot(ctx context.Context, dir handle.Directory, opts ...BuildOption) (*Node, error) {
	children, attachments, err := newBuilder(opts).dir(ctx, dir, "")
	if err != nil {
		return nil, err
	}
	return &Node{
		Name:        dir.Name(),
		Type:        TypeDirectory,
		Handle:      dir,
		Children:    children,
		Attachments: attachments,
	}, nil
}

type builder struct {
	sem chan struct{}
}

func newBuilder(opts []BuildOption) *builder {
	o := buildOptions{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	return &builder{sem: make(chan struct{}, o.concurrency)}
}

// list holds a semaphore slot only for the listing itself, never while
// waiting on subdirectories.
func (b *builder) list(ctx context.Context, dir handle.Directory, prefix string) ([]handle.Entry, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-b.sem }()

	entries, err := dir.Entries(ctx)
	if err == nil {
		return entries, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !errors.Is(err, handle.ErrIO) {
		err = &handle.PathError{Op: "list", Path: prefix, Err: fmt.Errorf("%w: %w", handle.ErrIO, err)}
	}
	return nil, err
}

func (b *builder) dir(ctx context.Context, dir handle.Directory, prefix string) (children, attachments []*Node, err error) {
	entries, err := b.list(ctx, dir, prefix)
	if err != nil {
		return nil, nil, err
	}

	children = []*Node{}
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		p := ChildPath(prefix, e.Name)
		switch Classify(e.Name, e.Handle.Kind()) {
		case ClassAttachment:
			attachments = append(attachments, &Node{Name: e.Name, Path: p, Type: TypeFile, Handle: e.Handle})
		case ClassDocument:
			children = append(children, &Node{Name: e.Name, Path: p, Type: TypeFile, Handle: e.Handle})
		case ClassDirectory:
			sub, ok := e.Handle.(handle.Directory)
			if !ok {
				continue
			}
			n := &Node{Name: e.Name, Path: p, Type: TypeDirectory, Handle: sub}
			children = append(children, n)
			g.Go(func() error {
				c, a, err := b.dir(gctx, sub, p)
				if err != nil {
					return err
				}
				n.Children, n.Attachments = c, a
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	Sort(children)
	sort.SliceStable(attachments, func(i, j int) bool {
		return nameLess(attachments[i].Name, attachments[j].Name)
	})
	return children, attachments, nil
}

// Sort orders nodes directories first, then by name.
func Sort(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return nameLess(a.Name, b.Name)
	})
}

// nameLess compares NFC-normalised names byte-wise, falling back to the raw
// names so that the order stays total when two spellings normalise equally.
func nameLess(a, b string) bool {
	na, nb := norm.NFC.String(a), norm.NFC.String(b)
	if na != nb {
		return na < nb
	}
	return a < b
}
