package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

type treeOptions struct {
	attachments bool
	raw         bool // ignore presentation rules
}

// printTree draws nodes with box-drawing guides, directories first as
// ordered by the builder.
func printTree(w io.Writer, nodes []*tree.Node, rules tree.Rules, opts treeOptions) {
	root := &tree.Node{Type: tree.TypeDirectory, Children: nodes}
	printChildren(w, root, rules, opts, "")
}

func printChildren(w io.Writer, dir *tree.Node, rules tree.Rules, opts treeOptions, indent string) {
	children := dir.Children
	if !opts.raw {
		children = rules.Children(dir)
	}
	var attachments []*tree.Node
	if opts.attachments {
		attachments = dir.Attachments
	}

	total := len(children) + len(attachments)
	i := 0
	emit := func(label string) (next string) {
		i++
		branch, cont := "├── ", "│   "
		if i == total {
			branch, cont = "└── ", "    "
		}
		fmt.Fprintf(w, "%s%s%s\n", indent, branch, label)
		return indent + cont
	}

	for _, c := range children {
		if c.IsDir() {
			next := emit(c.Name + "/")
			printChildren(w, c, rules, opts, next)
			continue
		}
		emit(c.Name)
	}
	for _, a := range attachments {
		emit(fmt.Sprintf("%s [%s]", a.Name, tree.AttachmentKind(a.Name)))
	}
}

type nodeJSON struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	Children    []nodeJSON `json:"children,omitempty"`
	Attachments []string   `json:"attachments,omitempty"`
}

func toJSON(nodes []*tree.Node) []nodeJSON {
	out := make([]nodeJSON, 0, len(nodes))
	for _, n := range nodes {
		j := nodeJSON{Name: n.Name, Path: n.Path, Type: n.Type.String()}
		if n.IsDir() {
			j.Children = toJSON(n.Children)
			for _, a := range n.Attachments {
				j.Attachments = append(j.Attachments, a.Path)
			}
		}
		out = append(out, j)
	}
	return out
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
