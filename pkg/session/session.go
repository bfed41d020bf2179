// Package session coordinates the open root directory, its tree, the open
// document and the active search. All presentation layers drive a Session
// and render its snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/metrics"
	"github.com/mattsolo1/grove-casebook/pkg/search"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

// Session holds the state of one browsing session. I/O always happens
// outside the mutex; results are applied under it only if no newer request
// has been issued in the meantime.
type Session struct {
	picker      handle.Picker
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	rules       tree.Rules
	concurrency int
	cache       *search.Cache
	engine      *search.Engine

	mu        sync.Mutex
	root      handle.Directory
	rootNode  *tree.Node
	openFile  *OpenFile
	loading   int
	lastErr   string
	query     string
	filtered  []*tree.Node
	selected  string
	pickSeq   uint64
	rootSeq   uint64
	filterSeq uint64
	changes   chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records build, search and save metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithRules replaces the default presentation rules.
func WithRules(rules tree.Rules) Option {
	return func(s *Session) {
		s.rules = rules
	}
}

// WithConcurrency bounds concurrent listings and reads.
func WithConcurrency(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCache shares a content cache with the session.
func WithCache(c *search.Cache) Option {
	return func(s *Session) {
		s.cache = c
	}
}

// New creates a session that picks its root with picker. A nil picker means
// no capability layer is available.
func New(picker handle.Picker, opts ...Option) *Session {
	s := &Session{
		picker:      picker,
		log:         logrus.StandardLogger(),
		rules:       tree.DefaultRules(),
		concurrency: search.DefaultConcurrency,
		changes:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = search.NewCache(s.metrics)
	}
	s.engine = search.New(s.cache,
		search.WithConcurrency(s.concurrency),
		search.WithLogger(s.log),
		search.WithMetrics(s.metrics),
		search.WithBuildOptions(s.buildOpts()...),
	)
	return s
}

// Rules returns the presentation rules in effect.
func (s *Session) Rules() tree.Rules { return s.rules }

// Cache returns the session's content cache.
func (s *Session) Cache() *search.Cache { return s.cache }

// DropStaleContent clears the content cache when no query is active and
// reports whether it did. An active query keeps its cache; it is cleared
// when the query ends.
func (s *Session) DropStaleContent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query != "" {
		return false
	}
	s.cache.Clear()
	return true
}

// Changes delivers a signal after every state change. Signals coalesce;
// receivers should take a fresh Snapshot.
func (s *Session) Changes() <-chan struct{} { return s.changes }

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Session) beginLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	s.notify()
}

func (s *Session) endLoading() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	s.notify()
}

// fail records err as the last error and returns it.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.log.WithError(err).Debug("Session operation failed")
	return err
}

func (s *Session) buildOpts() []tree.BuildOption {
	return []tree.BuildOption{tree.WithConcurrency(s.concurrency)}
}

func (s *Session) build(ctx context.Context, dir handle.Directory) (*tree.Node, error) {
	start := time.Now()
	root, err := tree.BuildRoot(ctx, dir, s.buildOpts()...)
	nodes := 0
	if root != nil {
		nodes = tree.Count(root.Children)
	}
	s.metrics.RecordTreeBuild(time.Since(start), nodes, err)
	return root, err
}

// OpenDirectory asks the picker for a root and loads its tree. A cancelled
// pick is not an error and leaves the session unchanged. On failure the
// previous root and tree stay in place.
func (s *Session) OpenDirectory(ctx context.Context) error {
	if s.picker == nil {
		return s.fail(fmt.Errorf("open directory: %w", handle.ErrUnsupported))
	}

	s.beginLoading()
	defer s.endLoading()

	s.mu.Lock()
	s.pickSeq++
	seq := s.pickSeq
	s.mu.Unlock()

	dir, err := s.picker.PickDirectory(ctx)
	if errors.Is(err, handle.ErrCancelled) {
		s.log.Debug("Directory selection cancelled")
		return nil
	}
	if err != nil {
		return s.fail(fmt.Errorf("open directory: %w", err))
	}
	if dir == nil {
		return nil
	}

	root, err := s.build(ctx, dir)
	if err != nil {
		closeHandle(dir)
		return s.fail(fmt.Errorf("read directory %s: %w", dir.Name(), err))
	}

	s.mu.Lock()
	if seq != s.pickSeq {
		s.mu.Unlock()
		closeHandle(dir)
		return ErrSuperseded
	}
	old := s.root
	s.root = dir
	s.rootSeq++
	s.rootNode = root
	s.openFile = nil
	s.query = ""
	s.filtered = nil
	s.selected = ""
	s.lastErr = ""
	s.filterSeq++
	s.mu.Unlock()

	s.cache.Clear()
	if old != nil && old != dir {
		closeHandle(old)
	}
	s.log.WithFields(logrus.Fields{
		"root":  dir.Name(),
		"nodes": tree.Count(root.Children),
	}).Info("Opened directory")
	s.notify()
	return nil
}

// OpenFile resolves path from the root by walking handles, reads it and
// makes it the open file. On failure the previous open file is kept.
func (s *Session) OpenFile(ctx context.Context, path string) error {
	s.mu.Lock()
	root, seq := s.root, s.rootSeq
	s.mu.Unlock()
	if root == nil {
		return s.fail(ErrNoRoot)
	}

	clean, err := handle.Clean(path)
	if err != nil {
		return s.fail(fmt.Errorf("open file %s: %w", path, err))
	}

	s.beginLoading()
	defer s.endLoading()

	f, err := handle.ResolveFile(ctx, root, clean)
	if err != nil {
		return s.fail(fmt.Errorf("open file: %w", err))
	}
	content, err := handle.ReadText(ctx, f)
	if err != nil {
		return s.fail(fmt.Errorf("open file: %w", err))
	}

	s.mu.Lock()
	if seq != s.rootSeq {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.openFile = &OpenFile{Path: clean, Content: content, Handle: f}
	s.selected = clean
	s.lastErr = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// SaveFile writes content to the open file. The in-memory content is only
// replaced once the write has succeeded.
func (s *Session) SaveFile(ctx context.Context, content string) error {
	s.mu.Lock()
	of := s.openFile
	s.mu.Unlock()
	if of == nil {
		return s.fail(ErrNoOpenFile)
	}

	s.beginLoading()
	defer s.endLoading()

	err := handle.WriteText(ctx, of.Handle, content)
	s.metrics.RecordSave(err)
	if err != nil {
		return s.fail(fmt.Errorf("save %s: %w", of.Path, err))
	}

	s.mu.Lock()
	if s.openFile == of {
		of.Content = content
	}
	s.lastErr = ""
	s.mu.Unlock()
	s.log.WithField("path", of.Path).Debug("Saved file")
	s.notify()
	return nil
}

// RefreshFiles rebuilds the tree from the current root. The open file is
// kept, and an active query is filtered again against the new tree.
func (s *Session) RefreshFiles(ctx context.Context) error {
	s.mu.Lock()
	root, seq := s.root, s.rootSeq
	s.mu.Unlock()
	if root == nil {
		return s.fail(ErrNoRoot)
	}

	s.beginLoading()
	defer s.endLoading()

	node, err := s.build(ctx, root)
	if err != nil {
		return s.fail(fmt.Errorf("refresh: %w", err))
	}

	s.mu.Lock()
	if seq != s.rootSeq {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.rootNode = node
	s.lastErr = ""
	query := s.query
	s.mu.Unlock()
	s.notify()

	if query != "" {
		if _, err := s.Filter(ctx, query); err != nil && !errors.Is(err, ErrSuperseded) {
			return err
		}
	}
	return nil
}

// Filter applies query to the tree. Only the most recently issued filter
// is ever applied; an older one finishing later returns ErrSuperseded and
// changes nothing. An empty query applies immediately and, when it ends a
// search, clears the content cache.
func (s *Session) Filter(ctx context.Context, query string) ([]*tree.Node, error) {
	start := time.Now()

	s.mu.Lock()
	s.filterSeq++
	seq := s.filterSeq
	prev := s.query
	s.query = query
	var nodes []*tree.Node
	if s.rootNode != nil {
		nodes = s.rootNode.Children
	}
	if query == "" {
		s.filtered = nil
		s.mu.Unlock()
		if prev != "" {
			s.cache.Clear()
		}
		s.metrics.RecordFilter(metrics.OutcomeCleared, time.Since(start))
		s.notify()
		return nodes, nil
	}
	s.mu.Unlock()
	s.notify()

	out, err := s.engine.Filter(ctx, nodes, query)

	s.mu.Lock()
	if seq != s.filterSeq {
		s.mu.Unlock()
		s.metrics.RecordFilter(metrics.OutcomeSuperseded, time.Since(start))
		s.log.WithField("query", query).Debug("Discarding superseded filter")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.metrics.RecordFilter(metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("filter %q: %w", query, err)
	}
	s.filtered = out
	s.mu.Unlock()
	s.metrics.RecordFilter(metrics.OutcomeApplied, time.Since(start))
	s.notify()
	return out, nil
}

// FilterLive lists the folder at dirPath afresh and filters it with query,
// without touching the session's tree or active query. Unlike Filter, a
// folder that cannot be listed fails the whole search.
func (s *Session) FilterLive(ctx context.Context, dirPath, query string) ([]*tree.Node, error) {
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	if root == nil {
		return nil, s.fail(ErrNoRoot)
	}

	clean, err := handle.Clean(dirPath)
	if err != nil {
		return nil, s.fail(err)
	}
	dir, err := handle.ResolveDir(ctx, root, clean)
	if err != nil {
		return nil, s.fail(err)
	}

	start := time.Now()
	out, err := s.engine.FilterDir(ctx, dir, clean, query)
	if err != nil {
		s.metrics.RecordFilter(metrics.OutcomeFailed, time.Since(start))
		return nil, s.fail(fmt.Errorf("search %s: %w", clean, err))
	}
	s.metrics.RecordFilter(metrics.OutcomeApplied, time.Since(start))
	return out, nil
}

// Activate handles a click on a tree node. A directory is selected and its
// presentation rules may open a document in it; a file is opened.
func (s *Session) Activate(ctx context.Context, path string) error {
	s.mu.Lock()
	var nodes []*tree.Node
	if s.rootNode != nil {
		nodes = s.rootNode.Children
	}
	s.mu.Unlock()
	if nodes == nil {
		return s.fail(ErrNoRoot)
	}

	n := tree.Find(nodes, path)
	if n == nil {
		return s.fail(&handle.PathError{Op: "activate", Path: path, Err: handle.ErrNotFound})
	}
	if !n.IsDir() {
		return s.OpenFile(ctx, n.Path)
	}

	s.mu.Lock()
	s.selected = n.Path
	s.mu.Unlock()
	s.notify()

	if p, ok := s.rules.AutoOpen(n); ok {
		return s.OpenFile(ctx, p)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Root:      s.root,
		Loading:   s.loading > 0,
		LastError: s.lastErr,
		Query:     s.query,
		Filtered:  s.filtered,
		Selected:  s.selected,
	}
	if s.rootNode != nil {
		st.RootName = s.rootNode.Name
		st.Tree = s.rootNode.Children
		st.Attachments = s.rootNode.Attachments
	}
	if s.openFile != nil {
		of := *s.openFile
		st.OpenFile = &of
	}
	switch {
	case st.Loading:
		st.Status = StatusLoading
	case s.root != nil:
		st.Status = StatusReady
	default:
		st.Status = StatusEmpty
	}
	return st
}

// Breadcrumbs returns the trail to the open file, or to the selected node
// when no file is open.
func (s *Session) Breadcrumbs() []tree.Crumb {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rootNode == nil {
		return nil
	}
	p := s.selected
	if s.openFile != nil {
		p = s.openFile.Path
	}
	return tree.Breadcrumbs(s.rootNode.Name, p)
}

// Close forgets the root directory and everything derived from it.
func (s *Session) Close() error {
	s.mu.Lock()
	old := s.root
	s.root = nil
	s.rootNode = nil
	s.openFile = nil
	s.query = ""
	s.filtered = nil
	s.selected = ""
	s.pickSeq++
	s.rootSeq++
	s.filterSeq++
	s.mu.Unlock()

	s.cache.Clear()
	s.notify()
	if c, ok := old.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeHandle(h handle.Handle) {
	if c, ok := h.(io.Closer); ok {
		_ = c.Close()
	}
}
