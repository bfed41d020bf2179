package osfs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// PathPicker opens a directory given up front, typically from --root.
type PathPicker struct {
	Path string
}

func (p PathPicker) PickDirectory(ctx context.Context) (handle.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, handle.ErrCancelled
	}
	return Open(p.Path)
}

// PromptPicker asks for a directory on In. An empty answer picks Default,
// or cancels when there is no default; end of input always cancels.
type PromptPicker struct {
	In      io.Reader
	Out     io.Writer
	Default string
}

func (p PromptPicker) PickDirectory(ctx context.Context) (handle.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Default != "" {
		fmt.Fprintf(p.Out, "Directory to open [%s]: ", p.Default)
	} else {
		fmt.Fprint(p.Out, "Directory to open (empty to cancel): ")
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, handle.ErrCancelled
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		answer = p.Default
	}
	if answer == "" {
		return nil, handle.ErrCancelled
	}
	return Open(answer)
}
