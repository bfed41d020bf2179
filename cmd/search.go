package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/frontmatter"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

func NewSearchCmd(app **config.App) *cobra.Command {
	var (
		searchTree  bool
		searchJSON  bool
		searchLimit int
		searchSort  string
		searchLive  bool
		searchIn    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents by name and content",
		Long: `Search the documents of the root directory. A document matches when its
name or its content contains the query, ignoring case. Folders are kept
when something inside them matches.

Examples:
  cb search login                # Matching documents with their titles
  cb search "期待結果" --tree      # Pruned tree of matches
  cb search payment --json       # Pruned tree as JSON
  cb search timeout --in Auth    # Only below Auth, listed afresh
  cb search login --sort modified # Most recently modified first

With --live (or --in) folders are listed again instead of using the tree
loaded at startup, and a folder that cannot be listed fails the search.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			ctx := cmd.Context()
			if err := a.Open(ctx); err != nil {
				return err
			}

			query := strings.Join(args, " ")
			var results []*tree.Node
			var err error
			if searchLive || searchIn != "" {
				results, err = a.Session.FilterLive(ctx, searchIn, query)
			} else {
				results, err = a.Session.Filter(ctx, query)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if searchJSON {
				return outputJSON(out, toJSON(results))
			}
			if searchTree {
				printTree(out, results, a.Session.Rules(), treeOptions{raw: true})
				return nil
			}

			var rows []searchRow
			_ = tree.Walk(results, func(n *tree.Node) error {
				if !n.IsDir() {
					rows = append(rows, newSearchRow(ctx, a, n))
				}
				return nil
			})
			if len(rows) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}

			switch searchSort {
			case "name":
			case "modified":
				// Newest first; documents without a timestamp go last.
				sort.SliceStable(rows, func(i, j int) bool {
					return rows[i].modified.After(rows[j].modified)
				})
			default:
				return fmt.Errorf("unknown sort %q (use name or modified)", searchSort)
			}
			if searchLimit > 0 && len(rows) > searchLimit {
				rows = rows[:searchLimit]
			}

			a.Logger.WithField("query", query).WithField("result_count", len(rows)).Debug("Search results")
			fmt.Fprintf(out, "Found %d results:\n\n", len(rows))

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tTITLE\tMODIFIED")
			for _, r := range rows {
				modified := "-"
				if !r.modified.IsZero() {
					modified = r.modified.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.path, truncateString(r.title, 60), modified)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&searchTree, "tree", false, "Show matches as a pruned tree")
	cmd.Flags().BoolVar(&searchJSON, "json", false, "Output the pruned tree as JSON")
	cmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum results (0 for no limit)")
	cmd.Flags().StringVar(&searchSort, "sort", "name", "Order of results: name or modified")
	cmd.Flags().BoolVar(&searchLive, "live", false, "List the folders afresh instead of using the loaded tree")
	cmd.Flags().StringVar(&searchIn, "in", "", "Only search below this folder (implies --live)")

	return cmd
}

type searchRow struct {
	path     string
	title    string
	modified time.Time
}

// newSearchRow reads title and modified time from the document's
// frontmatter. Content was read during the filter and is served from cache.
func newSearchRow(ctx context.Context, a *config.App, n *tree.Node) searchRow {
	row := searchRow{path: n.Path, title: n.Name}
	f, ok := n.File()
	if !ok || !tree.IsDocument(n.Name) {
		return row
	}
	content, err := a.Session.Cache().Content(ctx, n.Path, f)
	if err != nil {
		return row
	}
	row.title = frontmatter.Title(content, n.Name)
	if fm, _, err := frontmatter.Parse(content); err == nil && fm != nil {
		if t, err := frontmatter.ParseTimestamp(fm.Modified); err == nil {
			row.modified = t
		}
	}
	return row
}
