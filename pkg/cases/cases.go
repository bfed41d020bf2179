// Package cases creates numbered test case folders ("0001/case.mdx").
package cases

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mattsolo1/grove-casebook/pkg/frontmatter"
	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

// Options controls how a case is created.
type Options struct {
	Title    string
	Body     string
	Priority string
	Severity string
	Tags     []string
	Now      func() time.Time
}

// NextNumber returns the number after the highest case folder in dir, or 1.
func NextNumber(ctx context.Context, dir handle.Directory) (int, error) {
	entries, err := dir.Entries(ctx)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, e := range entries {
		if e.Handle.Kind() != handle.KindDirectory || !tree.IsCaseFolder(e.Name) {
			continue
		}
		n, _ := strconv.Atoi(e.Name)
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// Create writes a new case folder under dirPath (relative to root) and
// returns the root-relative path of its case document.
func Create(ctx context.Context, root handle.Directory, dirPath string, opts Options) (string, error) {
	dirPath, err := handle.Clean(dirPath)
	if err != nil {
		return "", err
	}
	dir, err := handle.ResolveDir(ctx, root, dirPath, handle.Create())
	if err != nil {
		return "", fmt.Errorf("open %q: %w", dirPath, err)
	}
	n, err := NextNumber(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", dirPath, err)
	}
	if n > 9999 {
		return "", fmt.Errorf("%q already holds the maximum number of cases", dirPath)
	}
	id := fmt.Sprintf("%04d", n)

	caseDir, err := dir.Dir(ctx, id, handle.Create())
	if err != nil {
		return "", fmt.Errorf("create case folder: %w", err)
	}
	f, err := caseDir.File(ctx, tree.CaseDocument, handle.Create())
	if err != nil {
		return "", fmt.Errorf("create case document: %w", err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := frontmatter.FormatTimestamp(now())
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Case " + id
	}
	fm := &frontmatter.Frontmatter{
		ID:       id,
		Title:    title,
		Suite:    dirPath,
		Priority: opts.Priority,
		Severity: opts.Severity,
		Tags:     frontmatter.MergeTags(frontmatter.ExtractPathTags(dirPath), opts.Tags),
		Created:  stamp,
		Modified: stamp,
	}
	body := opts.Body
	if strings.TrimSpace(body) == "" {
		body = fmt.Sprintf("# %s\n", title)
	}
	if err := handle.WriteText(ctx, f, frontmatter.BuildContent(fm, body)); err != nil {
		return "", fmt.Errorf("write case document: %w", err)
	}
	return path.Join(dirPath, id, tree.CaseDocument), nil
}
