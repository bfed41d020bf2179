package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-casebook/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.preview.Width = m.width - m.treeWidth() - 2
		m.preview.Height = m.getViewportHeight()
		m.adjustScroll()
		return m, nil

	case sessionChangedMsg:
		m.sync()
		return m, waitForChange(m.session)

	case externalChangeMsg:
		m.statusMessage = "Files changed on disk, refreshing..."
		return m, tea.Batch(refreshCmd(m.ctx, m.session, true), waitForExternalChange(m.external))

	case opDoneMsg:
		if msg.err != nil {
			// LastError already carries the message; show it once.
			m.statusMessage = ""
		} else {
			m.statusMessage = msg.status
		}
		m.sync()
		return m, nil

	case editorFinishedMsg:
		status, cmd := finishEdit(m.ctx, m.session, msg)
		m.statusMessage = status
		return m, cmd

	case attachedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Attach failed: %v", msg.err)
			return m, nil
		}
		m.sync()
		m.confirm.Activate(fmt.Sprintf("Attached. Append to the document?\n\n%s", msg.markdown), msg.markdown)
		return m, nil

	case confirm.ConfirmedMsg:
		of := m.state.OpenFile
		if of == nil {
			return m, nil
		}
		content := strings.TrimRight(of.Content, "\n") + "\n\n" + msg.Payload + "\n"
		return m, saveCmd(m.ctx, m.session, content, "Attachment embedded")

	case confirm.CancelledMsg:
		m.statusMessage = "Attachment stored without embedding"
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm.Active {
		var cmd tea.Cmd
		m.confirm, cmd = m.confirm.Update(msg)
		return m, cmd
	}
	if m.help.ShowAll {
		m.help.ShowAll = false
		return m, nil
	}
	if m.filterInput.Focused() {
		return m.handleSearchKey(msg)
	}
	if m.attachInput.Focused() {
		return m.handleAttachKey(msg)
	}

	// gg needs two presses
	if msg.String() == "g" {
		if m.lastKey == "g" {
			m.lastKey = ""
			m.cursor = 0
			m.adjustScroll()
			return m, nil
		}
		m.lastKey = "g"
		return m, nil
	}
	m.lastKey = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.adjustScroll()
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.displayNodes)-1 {
			m.cursor++
		}
		m.adjustScroll()
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= m.getViewportHeight() / 2
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.adjustScroll()
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += m.getViewportHeight() / 2
		if m.cursor > len(m.displayNodes)-1 {
			m.cursor = len(m.displayNodes) - 1
		}
		m.adjustScroll()
	case key.Matches(msg, m.keys.GoToBottom):
		m.cursor = len(m.displayNodes) - 1
		m.adjustScroll()
	case key.Matches(msg, m.keys.ToggleFold):
		m.toggleFold()
	case key.Matches(msg, m.keys.Open):
		dn := m.selectedNode()
		if dn == nil {
			return m, nil
		}
		if dn.attachment {
			m.statusMessage = fmt.Sprintf("%s is a %s attachment", dn.node.Name, tree.AttachmentKind(dn.node.Name))
			return m, nil
		}
		m.statusMessage = ""
		return m, activateCmd(m.ctx, m.session, dn.node.Path)
	case key.Matches(msg, m.keys.Search):
		m.filterInput.SetValue(m.state.Query)
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.Back):
		if m.state.Query != "" {
			m.filterInput.SetValue("")
			return m, filterCmd(m.ctx, m.session, "")
		}
	case key.Matches(msg, m.keys.Edit):
		if m.state.OpenFile == nil {
			m.statusMessage = "No file is open"
			return m, nil
		}
		return m, openInEditor(m.ctx, m.editor, m.state.OpenFile)
	case key.Matches(msg, m.keys.Refresh):
		m.statusMessage = "Refreshing..."
		return m, refreshCmd(m.ctx, m.session, false)
	case key.Matches(msg, m.keys.Attach):
		if m.state.OpenFile == nil {
			m.statusMessage = "Open a document before attaching files"
			return m, nil
		}
		m.attachInput.SetValue("")
		return m, m.attachInput.Focus()
	case key.Matches(msg, m.keys.PreviewUp):
		m.preview.LineUp(3)
	case key.Matches(msg, m.keys.PreviewDown):
		m.preview.LineDown(3)
	}
	return m, nil
}

// handleSearchKey filters on every keystroke; enter keeps the query and
// returns to the tree, esc clears it.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		return m, filterCmd(m.ctx, m.session, "")
	}

	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if v := m.filterInput.Value(); v != before {
		m.cursor = 0
		m.scrollOffset = 0
		return m, tea.Batch(cmd, filterCmd(m.ctx, m.session, v))
	}
	return m, cmd
}

func (m Model) handleAttachKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		p := strings.TrimSpace(m.attachInput.Value())
		m.attachInput.Blur()
		if p == "" {
			return m, nil
		}
		m.statusMessage = "Attaching..."
		return m, attachCmd(m.ctx, m.session, expandHome(p))
	case tea.KeyEsc:
		m.attachInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.attachInput, cmd = m.attachInput.Update(msg)
	return m, cmd
}
