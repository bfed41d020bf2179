package frontmatter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n(.*)`)

// Frontmatter represents the structured metadata at the beginning of a case document
type Frontmatter struct {
	ID       string            `yaml:"id"`
	Title    string            `yaml:"title"`
	Suite    string            `yaml:"suite,omitempty"` // Slash-separated suite path
	Priority string            `yaml:"priority,omitempty"`
	Severity string            `yaml:"severity,omitempty"`
	Tags     []string          `yaml:"tags,flow"`
	Fields   map[string]string `yaml:"fields,omitempty"` // Custom fields from the export
	Created  string            `yaml:"created"`
	Modified string            `yaml:"modified"`
}

// Parse extracts frontmatter from content and returns the parsed data and body
func Parse(content string) (*Frontmatter, string, error) {
	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) != 3 {
		// No frontmatter found
		return nil, content, nil
	}

	frontmatterStr := matches[1]
	bodyContent := matches[2]

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(frontmatterStr), &fm); err != nil {
		return nil, content, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	// Ensure arrays are never nil
	if fm.Tags == nil {
		fm.Tags = []string{}
	}

	return &fm, bodyContent, nil
}

// Build creates the YAML frontmatter string from a Frontmatter struct
func Build(fm *Frontmatter) string {
	var sb strings.Builder

	sb.WriteString("---\n")

	// Always include these fields in a consistent order
	sb.WriteString(fmt.Sprintf("id: %s\n", formatScalar(fm.ID)))
	sb.WriteString(fmt.Sprintf("title: %s\n", formatScalar(fm.Title)))

	// Optional fields
	if fm.Suite != "" {
		sb.WriteString(fmt.Sprintf("suite: %s\n", formatScalar(fm.Suite)))
	}
	if fm.Priority != "" {
		sb.WriteString(fmt.Sprintf("priority: %s\n", formatScalar(fm.Priority)))
	}
	if fm.Severity != "" {
		sb.WriteString(fmt.Sprintf("severity: %s\n", formatScalar(fm.Severity)))
	}
	sb.WriteString(fmt.Sprintf("tags: %s\n", formatYAMLArray(fm.Tags)))

	if len(fm.Fields) > 0 {
		keys := make([]string, 0, len(fm.Fields))
		for k := range fm.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("fields:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", formatScalar(k), formatScalar(fm.Fields[k])))
		}
	}

	// Timestamps
	sb.WriteString(fmt.Sprintf("created: %s\n", fm.Created))
	sb.WriteString(fmt.Sprintf("modified: %s\n", fm.Modified))

	sb.WriteString("---")

	return sb.String()
}

// BuildContent combines frontmatter and body content into a complete document
func BuildContent(fm *Frontmatter, bodyContent string) string {
	frontmatterStr := Build(fm)

	// Ensure proper spacing between frontmatter and body
	if !strings.HasPrefix(bodyContent, "\n") {
		return frontmatterStr + "\n\n" + bodyContent
	}
	return frontmatterStr + "\n" + bodyContent
}

// Title returns the document title: the frontmatter title, else the first
// H1 heading of the body, else fallback.
func Title(content, fallback string) string {
	fm, body, err := Parse(content)
	if err == nil && fm != nil && fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return fallback
}

// FormatTimestamp formats a time.Time into the standard frontmatter timestamp format
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// ParseTimestamp parses a frontmatter timestamp string into time.Time
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", s)
}

// formatYAMLArray formats a string slice as a YAML flow-style array
func formatYAMLArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}

	quotedItems := make([]string, len(items))
	for i, item := range items {
		if needsQuoting(item) {
			quotedItems[i] = strconv.Quote(item)
		} else {
			quotedItems[i] = item
		}
	}

	return fmt.Sprintf("[%s]", strings.Join(quotedItems, ", "))
}

// formatScalar quotes a plain value when YAML would otherwise misread it
func formatScalar(s string) string {
	if s == "" {
		return `""`
	}
	if needsQuoting(s) || strings.ContainsAny(s[:1], "-?!&*#|>%@` ") || strings.ContainsAny(s, "\n\t#") ||
		strings.HasSuffix(s, " ") || isYAMLKeyword(s) {
		return strconv.Quote(s)
	}
	return s
}

// needsQuoting checks if a string needs to be quoted in YAML
func needsQuoting(s string) bool {
	return strings.ContainsAny(s, ",:[]{}\"'")
}

func isYAMLKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ExtractPathTags generates tags from a suite path (e.g., "auth/login" -> ["auth", "login"])
func ExtractPathTags(suitePath string) []string {
	if suitePath == "" {
		return []string{}
	}

	parts := strings.Split(suitePath, "/")
	tags := []string{}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// MergeTags combines multiple tag sources and removes duplicates
func MergeTags(sources ...[]string) []string {
	seen := make(map[string]bool)
	result := []string{}

	for _, tags := range sources {
		for _, tag := range tags {
			if tag != "" && !seen[tag] {
				seen[tag] = true
				result = append(result, tag)
			}
		}
	}

	return result
}
