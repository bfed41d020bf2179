package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-casebook/pkg/editor"
	"github.com/mattsolo1/grove-casebook/pkg/session"
)

// sessionChangedMsg is sent whenever the session signals a state change.
type sessionChangedMsg struct{}

// externalChangeMsg is sent when files changed outside the browser.
type externalChangeMsg struct{}

// opDoneMsg reports the end of a session operation.
type opDoneMsg struct {
	op     string
	status string
	err    error
}

// editorFinishedMsg is sent when the external editor exits
type editorFinishedMsg struct {
	edit *editor.Session
	err  error
}

// attachedMsg is sent after a file was stored next to the open document.
type attachedMsg struct {
	markdown string
	err      error
}

func waitForChange(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Changes()
		return sessionChangedMsg{}
	}
}

func waitForExternalChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return externalChangeMsg{}
	}
}

func activateCmd(ctx context.Context, s *session.Session, path string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "open", err: s.Activate(ctx, path)}
	}
}

func filterCmd(ctx context.Context, s *session.Session, query string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Filter(ctx, query)
		if errors.Is(err, session.ErrSuperseded) {
			// A newer keystroke owns the result.
			return nil
		}
		return opDoneMsg{op: "search", err: err}
	}
}

func refreshCmd(ctx context.Context, s *session.Session, clearCache bool) tea.Cmd {
	return func() tea.Msg {
		if clearCache {
			s.DropStaleContent()
		}
		return opDoneMsg{op: "refresh", status: "Refreshed", err: s.RefreshFiles(ctx)}
	}
}

func saveCmd(ctx context.Context, s *session.Session, content, status string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "save", status: status, err: s.SaveFile(ctx, content)}
	}
}

func attachCmd(ctx context.Context, s *session.Session, localPath string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return attachedMsg{err: fmt.Errorf("read attachment: %w", err)}
		}
		markdown, err := s.AddAttachment(ctx, filepath.Base(localPath), data)
		return attachedMsg{markdown: markdown, err: err}
	}
}

// openInEditor edits the open document through a temporary copy
func openInEditor(ctx context.Context, ed string, of *session.OpenFile) tea.Cmd {
	edit, err := editor.Prepare(of.Path, of.Content)
	if err != nil {
		return func() tea.Msg { return editorFinishedMsg{err: err} }
	}
	return tea.ExecProcess(edit.Command(ctx, ed), func(err error) tea.Msg {
		return editorFinishedMsg{edit: edit, err: err}
	})
}

// finishEdit saves the edited copy back when it changed.
func finishEdit(ctx context.Context, s *session.Session, msg editorFinishedMsg) (string, tea.Cmd) {
	if msg.err != nil {
		if msg.edit != nil {
			msg.edit.Cleanup()
		}
		return fmt.Sprintf("Editor failed: %v", msg.err), nil
	}
	content, changed, err := msg.edit.Result()
	if err != nil {
		return err.Error(), nil
	}
	if !changed {
		return "No changes", nil
	}
	return "Saving...", saveCmd(ctx, s, editor.Stamp(content, time.Now()), "Saved")
}
