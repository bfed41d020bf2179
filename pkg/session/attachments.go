package session

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

var imageRefPattern = regexp.MustCompile(`!\[.*?\]\((\./[^)]+)\)`)

// ImageRefs returns the relative image references ("./shot.png") in a
// markdown document, in order of appearance and without duplicates.
func ImageRefs(content string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, m := range imageRefPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}
	return refs
}

// Image is an image referenced by the open document.
type Image struct {
	Ref  string // as written in the document
	Path string // root-relative
	Type tree.AttachmentType
	Data []byte
}

// ResolveImages loads every "./" image reference of the open document,
// relative to the document's directory. References that cannot be loaded
// are logged and skipped.
func (s *Session) ResolveImages(ctx context.Context) ([]Image, error) {
	s.mu.Lock()
	root, of := s.root, s.openFile
	var content string
	if of != nil {
		content = of.Content
	}
	s.mu.Unlock()
	if root == nil {
		return nil, ErrNoRoot
	}
	if of == nil {
		return nil, ErrNoOpenFile
	}

	dir := path.Dir(of.Path)
	if dir == "." {
		dir = ""
	}

	var images []Image
	for _, ref := range ImageRefs(content) {
		p := tree.ChildPath(dir, strings.TrimPrefix(ref, "./"))
		f, err := handle.ResolveFile(ctx, root, p)
		if err == nil {
			var data []byte
			data, err = f.Read(ctx)
			if err == nil {
				images = append(images, Image{Ref: ref, Path: p, Type: tree.AttachmentKind(p), Data: data})
				continue
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.WithFields(logrus.Fields{
			"ref":  ref,
			"file": of.Path,
		}).WithError(err).Warn("Failed to load image")
	}
	return images, nil
}

// AddAttachment stores data as name next to the open document and returns
// the markdown that embeds it. The tree is refreshed afterwards so the new
// attachment shows up.
func (s *Session) AddAttachment(ctx context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	root, of := s.root, s.openFile
	s.mu.Unlock()
	if root == nil {
		return "", s.fail(ErrNoRoot)
	}
	if of == nil {
		return "", s.fail(ErrNoOpenFile)
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", s.fail(fmt.Errorf("add attachment %q: %w", name, handle.ErrNotFound))
	}

	dirPath := path.Dir(of.Path)
	if dirPath == "." {
		dirPath = ""
	}
	dir, err := handle.ResolveDir(ctx, root, dirPath)
	if err != nil {
		return "", s.fail(fmt.Errorf("add attachment: %w", err))
	}
	f, err := dir.File(ctx, name, handle.Create())
	if err != nil {
		return "", s.fail(fmt.Errorf("add attachment: %w", err))
	}
	if err := f.Write(ctx, data); err != nil {
		return "", s.fail(fmt.Errorf("add attachment: %w", err))
	}

	if err := s.RefreshFiles(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to refresh after adding attachment")
	}
	return fmt.Sprintf("![%s](./%s)", name, name), nil
}
