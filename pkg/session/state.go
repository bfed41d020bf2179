package session

import (
	"errors"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

var (
	// ErrNoRoot is returned by operations that need an open directory.
	ErrNoRoot = errors.New("no directory is open")
	// ErrNoOpenFile is returned by operations that need an open document.
	ErrNoOpenFile = errors.New("no file is open")
	// ErrSuperseded is returned when a newer operation replaced the result
	// of this one before it finished. The result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Status is the lifecycle stage of a session.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	default:
		return "empty"
	}
}

// OpenFile is the document being viewed or edited.
type OpenFile struct {
	Path    string
	Content string
	Handle  handle.File
}

// State is a point-in-time copy of the session. Tree nodes are shared and
// must be treated as read-only.
type State struct {
	Status      Status
	Root        handle.Directory
	RootName    string
	Tree        []*tree.Node
	Attachments []*tree.Node // attachments of the root directory itself
	OpenFile    *OpenFile
	Loading     bool
	LastError   string
	Query       string
	Filtered    []*tree.Node // nil until a filter for Query has been applied
	Selected    string
}

// Visible returns the nodes to display: the filtered tree while a query is
// active and its result is known, the full tree otherwise.
func (st State) Visible() []*tree.Node {
	if st.Query != "" && st.Filtered != nil {
		return st.Filtered
	}
	return st.Tree
}
