// Package editor round-trips document content through an external editor.
// Documents live behind handles, so the editor works on a temporary copy.
package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattsolo1/grove-casebook/pkg/frontmatter"
)

// Resolve returns the editor command to run: configured, else $EDITOR,
// else vim.
func Resolve(configured string) string {
	if configured != "" {
		return configured
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vim" // fallback
}

// Session is one pending edit of a document.
type Session struct {
	Path     string
	original string
}

// Prepare writes content to a temporary file named after the document so
// the editor picks a sensible mode.
func Prepare(name, content string) (*Session, error) {
	dir, err := os.MkdirTemp("", "cb-edit-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	p := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	return &Session{Path: p, original: content}, nil
}

// Command builds the editor process for the temporary file. The editor
// string may carry arguments ("code --wait").
func (s *Session) Command(ctx context.Context, editor string) *exec.Cmd {
	args := strings.Fields(Resolve(editor))
	args = append(args, s.Path)
	return exec.CommandContext(ctx, args[0], args[1:]...)
}

// Result reads the edited content back and removes the temporary copy.
func (s *Session) Result() (content string, changed bool, err error) {
	defer s.Cleanup()
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", false, fmt.Errorf("read edited file: %w", err)
	}
	content = string(data)
	return content, content != s.original, nil
}

func (s *Session) Cleanup() {
	os.RemoveAll(filepath.Dir(s.Path))
}

// Edit runs the editor on content attached to the given terminal streams
// and returns the edited text.
func Edit(ctx context.Context, editor, name, content string, stdin io.Reader, stdout, stderr io.Writer) (string, bool, error) {
	s, err := Prepare(name, content)
	if err != nil {
		return "", false, err
	}
	cmd := s.Command(ctx, editor)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		s.Cleanup()
		return "", false, fmt.Errorf("run editor: %w", err)
	}
	return s.Result()
}

// Stamp updates the modified timestamp of a document that carries
// frontmatter. Documents without frontmatter are returned unchanged.
func Stamp(content string, now time.Time) string {
	fm, body, err := frontmatter.Parse(content)
	if err != nil || fm == nil {
		return content
	}
	fm.Modified = frontmatter.FormatTimestamp(now)
	return frontmatter.BuildContent(fm, body)
}
