// Package search filters a case tree by name and document content.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/metrics"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

// DefaultConcurrency bounds simultaneous content reads.
const DefaultConcurrency = 8

// Match reports whether text matches a query it was built for.
type Match func(text string) bool

// MatcherFunc builds a Match for a non-empty query.
type MatcherFunc func(query string) Match

// LowerMatcher matches substrings after lowercasing both sides with the
// Unicode default casing. Characters that only case-fold to a longer form
// ("ß" and "ss") do not match each other.
func LowerMatcher(query string) Match {
	lowered := cases.Lower(language.Und).String(query)
	return func(text string) bool {
		// A Caser is stateful; each call gets its own.
		return strings.Contains(cases.Lower(language.Und).String(text), lowered)
	}
}

// Engine filters trees. It is safe for concurrent use; concurrent filters
// share its cache.
type Engine struct {
	cache       *Cache
	concurrency int
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	matcher     MatcherFunc
	buildOpts   []tree.BuildOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets how many document reads may run at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger used for content read failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records filter and read metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMatcher replaces the default lowercase substring matcher.
func WithMatcher(fn MatcherFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.matcher = fn
		}
	}
}

// WithBuildOptions passes options to the tree builder used by FilterDir.
func WithBuildOptions(opts ...tree.BuildOption) Option {
	return func(e *Engine) {
		e.buildOpts = append(e.buildOpts, opts...)
	}
}

// New creates an engine reading documents through cache.
func New(cache *Cache, opts ...Option) *Engine {
	e := &Engine{
		cache:       cache,
		concurrency: DefaultConcurrency,
		log:         logrus.StandardLogger(),
		matcher:     LowerMatcher,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache(e.metrics)
	}
	return e
}

// Cache returns the engine's content cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Filter returns the subset of nodes matching query. An empty query returns
// nodes unchanged without any I/O.
//
// A file matches when its name contains the query, or when it is a document
// whose content contains it. A directory is kept, as a copy holding only its
// matching children, when at least one descendant matches; its own name is
// not tested. Relative order is preserved. A document that cannot be read
// is logged and treated as not matching by content; only cancellation of
// ctx fails the filter.
func (e *Engine) Filter(ctx context.Context, nodes []*tree.Node, query string) ([]*tree.Node, error) {
	if query == "" {
		return nodes, nil
	}
	f := &filterRun{
		engine: e,
		query:  query,
		match:  e.matcher(query),
		sem:    make(chan struct{}, e.concurrency),
	}
	return f.nodes(ctx, nodes)
}

// FilterDir lists dir afresh and filters the result. Unlike Filter it
// fails when any directory cannot be listed.
func (e *Engine) FilterDir(ctx context.Context, dir handle.Directory, prefix, query string) ([]*tree.Node, error) {
	start := time.Now()
	nodes, err := tree.Build(ctx, dir, prefix, e.buildOpts...)
	e.metrics.RecordTreeBuild(time.Since(start), tree.Count(nodes), err)
	if err != nil {
		return nil, err
	}
	return e.Filter(ctx, nodes, query)
}

type filterRun struct {
	engine *Engine
	query  string
	match  Match
	sem    chan struct{}
}

// nodes evaluates siblings concurrently and only decides once all of them
// have finished.
func (f *filterRun) nodes(ctx context.Context, nodes []*tree.Node) ([]*tree.Node, error) {
	slots := make([]*tree.Node, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		g.Go(func() error {
			if n.IsDir() {
				kids, err := f.nodes(gctx, n.Children)
				if err != nil {
					return err
				}
				if len(kids) > 0 {
					cp := *n
					cp.Children = kids
					slots[i] = &cp
				}
				return nil
			}
			ok, err := f.file(gctx, n)
			if err != nil {
				return err
			}
			if ok {
				slots[i] = n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*tree.Node, 0, len(nodes))
	for _, n := range slots {
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *filterRun) file(ctx context.Context, n *tree.Node) (bool, error) {
	if f.match(n.Name) {
		return true, nil
	}
	if !tree.IsDocument(n.Name) {
		return false, nil
	}
	fh, ok := n.File()
	if !ok {
		return false, nil
	}

	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	text, err := f.engine.cache.Content(ctx, n.Path, fh)
	<-f.sem

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		f.engine.log.WithFields(logrus.Fields{
			"path":  n.Path,
			"query": f.query,
		}).WithError(err).Warn("Failed to read document for search")
		f.engine.metrics.RecordContentReadError()
		return false, nil
	}
	return f.match(text), nil
}
