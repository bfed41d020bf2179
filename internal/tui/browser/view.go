package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-casebook/pkg/session"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

func (m Model) View() string {
	if m.state.Status == session.StatusEmpty {
		return "No directory open. Run with --root or pick a directory.\n"
	}
	if m.help.ShowAll {
		return m.help.View(m.keys)
	}
	if m.confirm.Active {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.confirm.View())
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.treeWidth()).Render(m.renderTree()),
		previewStyle.Height(m.getViewportHeight()).Render(m.renderPreview()),
	)

	fullView := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		"",
		body,
		m.renderInputLine(),
		m.renderStatus(),
		m.help.View(m.keys),
	)
	return fullView
}

func (m Model) renderHeader() string {
	crumbs := m.session.Breadcrumbs()
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	header := headerStyle.Render(strings.Join(names, " › "))
	if loc := location(m.state.Root); loc != "" {
		header += "  " + mutedStyle.Render(loc)
	}
	if m.state.Loading {
		header += "  " + infoStyle.Render("loading…")
	}
	return header
}

func (m Model) renderTree() string {
	if len(m.displayNodes) == 0 {
		if m.state.Query != "" {
			return mutedStyle.Render("No matches.")
		}
		return mutedStyle.Render("Empty directory.")
	}

	var b strings.Builder
	viewportHeight := m.getViewportHeight()
	start := m.scrollOffset
	end := m.scrollOffset + viewportHeight
	if end > len(m.displayNodes) {
		end = len(m.displayNodes)
	}

	openPath := ""
	if m.state.OpenFile != nil {
		openPath = m.state.OpenFile.Path
	}

	for i := start; i < end; i++ {
		dn := m.displayNodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = selectedStyle.Render("▶ ")
		}

		name := dn.node.Name
		switch {
		case dn.attachment:
			name = mutedStyle.Render(fmt.Sprintf("%s [%s]", name, tree.AttachmentKind(name)))
		case dn.node.IsDir():
			fold := "▼ "
			if m.state.Query == "" && m.isCollapsed(dn.node, dn.depth) {
				fold = "▶ "
			}
			style := dirStyle
			if dn.node.Path == m.state.Selected {
				style = style.Bold(true)
			}
			name = fold + style.Render(name)
		case dn.node.Path == openPath:
			name = openStyle.Render(name)
		}

		line := cursor + mutedStyle.Render(dn.prefix) + name
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderPreview() string {
	if m.state.OpenFile == nil {
		return mutedStyle.Render("Select a document to preview it.")
	}
	return m.preview.View()
}

func (m Model) renderInputLine() string {
	switch {
	case m.filterInput.Focused():
		return m.filterInput.View()
	case m.attachInput.Focused():
		return m.attachInput.View()
	case m.state.Query != "":
		return infoStyle.Render(fmt.Sprintf("search: %s", m.state.Query)) + mutedStyle.Render("  (esc to clear)")
	}
	return ""
}

func (m Model) renderStatus() string {
	if m.state.LastError != "" {
		return errorStyle.Render("Error: " + m.state.LastError)
	}
	if m.statusMessage != "" {
		return infoStyle.Render(m.statusMessage)
	}
	return ""
}
