package tree

import "regexp"

// CaseDocument is the document that describes a test case folder.
const CaseDocument = "case.mdx"

var caseFolderPattern = regexp.MustCompile(`^\d{4}$`)

// IsCaseFolder reports whether a directory name follows the numbered test
// case convention ("0001").
func IsCaseFolder(name string) bool {
	return caseFolderPattern.MatchString(name)
}

// Rule is a presentation rule layered on top of the raw tree. Rules never
// change what Build returns; they only affect rendering and activation.
type Rule interface {
	// Visible reports whether child is rendered under dir.
	Visible(dir, child *Node) bool
	// AutoOpen returns the path of a file to open when dir is activated.
	AutoOpen(dir *Node) (string, bool)
}

// CaseFolderRule hides case.mdx inside test case folders and opens it when
// the folder is activated.
type CaseFolderRule struct{}

func (CaseFolderRule) Visible(dir, child *Node) bool {
	return !(IsCaseFolder(dir.Name) && !child.IsDir() && child.Name == CaseDocument)
}

func (CaseFolderRule) AutoOpen(dir *Node) (string, bool) {
	if !dir.IsDir() || !IsCaseFolder(dir.Name) {
		return "", false
	}
	for _, c := range dir.Children {
		if !c.IsDir() && c.Name == CaseDocument {
			return c.Path, true
		}
	}
	return "", false
}

// Rules applies several rules together.
type Rules []Rule

// DefaultRules returns the rules used by the session unless overridden.
func DefaultRules() Rules {
	return Rules{CaseFolderRule{}}
}

// Visible requires every rule to agree.
func (r Rules) Visible(dir, child *Node) bool {
	for _, rule := range r {
		if !rule.Visible(dir, child) {
			return false
		}
	}
	return true
}

// AutoOpen returns the first rule's answer.
func (r Rules) AutoOpen(dir *Node) (string, bool) {
	for _, rule := range r {
		if p, ok := rule.AutoOpen(dir); ok {
			return p, true
		}
	}
	return "", false
}

// Children returns the rendered children of dir.
func (r Rules) Children(dir *Node) []*Node {
	out := make([]*Node, 0, len(dir.Children))
	for _, c := range dir.Children {
		if r.Visible(dir, c) {
			out = append(out, c)
		}
	}
	return out
}
