package browser

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-casebook/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-casebook/pkg/session"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

// expandDepth is how deep directories start unfolded.
const expandDepth = 2

// displayNode represents a single line in the tree pane.
type displayNode struct {
	node       *tree.Node
	attachment bool

	// Pre-calculated for rendering
	prefix string
	depth  int
}

// isFoldable returns true if this node can be collapsed/expanded
func (n *displayNode) isFoldable() bool {
	return !n.attachment && n.node.IsDir()
}

// Model is the main model for the case browser TUI
type Model struct {
	ctx      context.Context
	session  *session.Session
	editor   string
	external <-chan struct{}

	state        session.State
	displayNodes []*displayNode
	collapsed    map[string]bool // by node path; absent means the depth default
	cursor       int
	scrollOffset int
	lastKey      string // For detecting 'gg'

	keys        KeyMap
	help        help.Model
	width       int
	height      int
	filterInput textinput.Model
	attachInput textinput.Model
	preview     viewport.Model
	previewKey  string // path and content currently shown in preview
	confirm     confirm.Model

	statusMessage string
}

type Option func(*Model)

// WithEditor sets the editor command used by the edit key.
func WithEditor(editor string) Option {
	return func(m *Model) { m.editor = editor }
}

// WithExternalChanges makes the browser refresh (and drop cached content)
// whenever ch fires.
func WithExternalChanges(ch <-chan struct{}) Option {
	return func(m *Model) { m.external = ch }
}

// WithContext sets the context for session operations.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// New creates a browser over an already opened session.
func New(s *session.Session, opts ...Option) Model {
	filterInput := textinput.New()
	filterInput.Placeholder = "Search names and content..."
	filterInput.Prompt = "/ "
	filterInput.CharLimit = 256

	attachInput := textinput.New()
	attachInput.Placeholder = "Path of a local file to attach"
	attachInput.Prompt = "attach: "

	m := Model{
		ctx:         context.Background(),
		session:     s,
		collapsed:   make(map[string]bool),
		keys:        keys,
		help:        help.New(),
		filterInput: filterInput,
		attachInput: attachInput,
		preview:     viewport.New(0, 0),
		confirm:     confirm.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.session), waitForExternalChange(m.external))
}

// sync takes a fresh snapshot and rebuilds everything derived from it.
func (m *Model) sync() {
	m.state = m.session.Snapshot()
	m.buildDisplayTree()

	key := ""
	content := ""
	if of := m.state.OpenFile; of != nil {
		key = of.Path + "\x00" + of.Content
		content = of.Content
	}
	if key != m.previewKey {
		m.previewKey = key
		m.preview.SetContent(content)
		m.preview.GotoTop()
	}
}

// buildDisplayTree flattens the visible tree into display lines. While a
// search is active every directory is unfolded.
func (m *Model) buildDisplayTree() {
	m.displayNodes = nil
	root := &tree.Node{
		Type:        tree.TypeDirectory,
		Children:    m.state.Visible(),
		Attachments: m.state.Attachments,
	}
	m.appendChildren(root, 0, "", m.state.Query != "")

	if m.cursor >= len(m.displayNodes) {
		m.cursor = len(m.displayNodes) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.adjustScroll()
}

func (m *Model) appendChildren(dir *tree.Node, depth int, indent string, expandAll bool) {
	children := m.session.Rules().Children(dir)
	total := len(children) + len(dir.Attachments)

	i := 0
	next := func() (branch, cont string) {
		i++
		if i == total {
			return "└─ ", "   "
		}
		return "├─ ", "│  "
	}

	for _, c := range children {
		branch, cont := next()
		m.displayNodes = append(m.displayNodes, &displayNode{node: c, prefix: indent + branch, depth: depth})
		if c.IsDir() && (expandAll || !m.isCollapsed(c, depth)) {
			m.appendChildren(c, depth+1, indent+cont, expandAll)
		}
	}
	for _, a := range dir.Attachments {
		branch, _ := next()
		m.displayNodes = append(m.displayNodes, &displayNode{node: a, attachment: true, prefix: indent + branch, depth: depth})
	}
}

func (m *Model) isCollapsed(n *tree.Node, depth int) bool {
	if v, ok := m.collapsed[n.Path]; ok {
		return v
	}
	return depth >= expandDepth
}

// toggleFold collapses or expands the directory under the cursor
func (m *Model) toggleFold() {
	dn := m.selectedNode()
	if dn == nil || !dn.isFoldable() {
		return
	}
	m.collapsed[dn.node.Path] = !m.isCollapsed(dn.node, dn.depth)
	m.buildDisplayTree()
}

func (m *Model) selectedNode() *displayNode {
	if m.cursor < 0 || m.cursor >= len(m.displayNodes) {
		return nil
	}
	return m.displayNodes[m.cursor]
}

// getViewportHeight returns the number of tree lines that fit on screen.
func (m *Model) getViewportHeight() int {
	// header, blank, search line, status line, blank, help
	h := m.height - 6
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) adjustScroll() {
	viewportHeight := m.getViewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+viewportHeight {
		m.scrollOffset = m.cursor - viewportHeight + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// treeWidth is the width of the tree pane; the preview gets the rest.
func (m *Model) treeWidth() int {
	w := m.width * 2 / 5
	if w < 24 {
		w = 24
	}
	return w
}
