// Package importer converts a JSON test management export into a case
// folder tree: one directory per suite, one NNNN/case.mdx per case.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-casebook/pkg/frontmatter"
	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

const maxNameLen = 100

var unsafeName = regexp.MustCompile(`[<>:"/\\|?*]`)

// CleanName turns a suite title into a directory name.
func CleanName(title string) string {
	name := strings.TrimSpace(unsafeName.ReplaceAllString(title, "_"))
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	return name
}

type Importer struct {
	options Options
	report  *Report
	output  io.Writer
	logger  logrus.FieldLogger
}

func New(options Options, output io.Writer, logger logrus.FieldLogger) *Importer {
	if logger == nil {
		logger = logrus.New()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if output == nil {
		output = io.Discard
	}
	return &Importer{
		options: options,
		report:  NewReport(),
		output:  output,
		logger:  logger.WithField("component", "importer"),
	}
}

func (im *Importer) Report() *Report {
	return im.report
}

// Import writes every suite of exp under dst. A failure to write one case
// is recorded in the report and the import continues; a failure to create
// a suite directory aborts.
func (im *Importer) Import(ctx context.Context, dst handle.Directory, exp *Export) (*Report, error) {
	defer im.report.Complete()
	for _, s := range exp.Suites {
		if err := im.importSuite(ctx, dst, "", s); err != nil {
			return im.report, err
		}
	}
	return im.report, nil
}

func (im *Importer) importSuite(ctx context.Context, parent handle.Directory, parentPath string, s Suite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := CleanName(s.Title)
	if name == "" {
		name = "untitled"
	}
	suitePath := tree.ChildPath(parentPath, name)
	im.report.Suites++

	var dir handle.Directory
	if !im.options.DryRun {
		var err error
		dir, err = parent.Dir(ctx, name, handle.Create())
		if err != nil {
			return fmt.Errorf("failed to create suite %s: %w", suitePath, err)
		}
	}

	if s.Description != "" || s.Preconditions != "" {
		im.write(ctx, dir, suitePath, "README.md", suiteReadme(s))
		im.report.Readmes++
	}

	for i, c := range s.Cases {
		caseName := fmt.Sprintf("%04d", i+1)
		casePath := tree.ChildPath(suitePath, caseName)
		im.report.Cases++
		content := frontmatter.BuildContent(im.caseMeta(suitePath, caseName, c), caseBody(c))

		var caseDir handle.Directory
		if !im.options.DryRun {
			var err error
			caseDir, err = dir.Dir(ctx, caseName, handle.Create())
			if err != nil {
				im.report.AddError(casePath, err)
				im.logger.WithField("path", casePath).WithError(err).Warn("Failed to create case folder")
				continue
			}
		}
		im.write(ctx, caseDir, casePath, tree.CaseDocument, content)
	}

	for _, sub := range s.Suites {
		if err := im.importSuite(ctx, dir, suitePath, sub); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) write(ctx context.Context, dir handle.Directory, dirPath, name, content string) {
	p := tree.ChildPath(dirPath, name)
	if im.options.Verbose {
		fmt.Fprintf(im.output, "  %s\n", p)
	}
	if im.options.DryRun {
		im.report.WrittenFiles = append(im.report.WrittenFiles, p)
		return
	}

	if !im.options.Overwrite {
		_, err := dir.File(ctx, name)
		if err == nil {
			im.report.SkippedFiles++
			im.logger.WithField("path", p).Debug("File exists, skipping")
			return
		}
		if !errors.Is(err, handle.ErrNotFound) {
			im.report.AddError(p, err)
			return
		}
	}

	f, err := dir.File(ctx, name, handle.Create())
	if err == nil {
		err = handle.WriteText(ctx, f, content)
	}
	if err != nil {
		im.report.AddError(p, err)
		im.logger.WithField("path", p).WithError(err).Warn("Failed to write imported file")
		return
	}
	im.report.WrittenFiles = append(im.report.WrittenFiles, p)
}

func (im *Importer) caseMeta(suitePath, caseName string, c Case) *frontmatter.Frontmatter {
	id := caseName
	if c.ID != 0 {
		id = strconv.Itoa(c.ID)
	}
	now := frontmatter.FormatTimestamp(im.options.Now())
	fm := &frontmatter.Frontmatter{
		ID:       id,
		Title:    c.Title,
		Suite:    suitePath,
		Severity: c.Severity,
		Tags:     frontmatter.ExtractPathTags(suitePath),
		Created:  now,
		Modified: now,
	}
	if c.Priority != "undefined" {
		fm.Priority = c.Priority
	}
	for _, cf := range c.CustomFields {
		if cf.Value == "" {
			continue
		}
		if fm.Fields == nil {
			fm.Fields = map[string]string{}
		}
		fm.Fields[cf.Title] = cf.Value
	}
	return fm
}

func suiteReadme(s Suite) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", s.Title)
	if s.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", s.Description)
	}
	if s.Preconditions != "" {
		fmt.Fprintf(&sb, "## 前提条件\n\n%s\n", s.Preconditions)
	}
	return sb.String()
}

func caseBody(c Case) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&sb, "## 説明\n\n%s\n\n", c.Description)
	}
	if c.Preconditions != "" {
		fmt.Fprintf(&sb, "## 前提条件\n\n%s\n\n", c.Preconditions)
	}
	if len(c.Steps) > 0 {
		sb.WriteString("## テストステップ\n\n")
		for _, st := range c.Steps {
			fmt.Fprintf(&sb, "### ステップ %d\n\n", st.Position)
			fmt.Fprintf(&sb, "**操作**: %s\n\n", st.Action)
			if st.ExpectedResult != "" {
				fmt.Fprintf(&sb, "**期待結果**:\n%s\n\n", st.ExpectedResult)
			}
			if st.Data != "" {
				fmt.Fprintf(&sb, "**データ**: %s\n\n", st.Data)
			}
		}
	}
	if c.Postconditions != "" {
		fmt.Fprintf(&sb, "## 事後条件\n\n%s\n\n", c.Postconditions)
	}
	return sb.String()
}
