package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/handle/memfs"
	"github.com/mattsolo1/grove-casebook/pkg/session"
)

func runSearch(t *testing.T, fs *memfs.FS, args ...string) (string, error) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	app := &config.App{
		Session: session.New(fs.Picker(), session.WithLogger(log)),
		Logger:  log,
	}

	var out bytes.Buffer
	cmd := NewSearchCmd(&app)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func searchFixture() *memfs.FS {
	fs := memfs.New("cases")
	fs.WriteFile("Auth/0001/case.mdx", "---\ntitle: Logout keeps draft\nmodified: \"2024-01-01 10:00:00\"\n---\n# Logout\n")
	fs.WriteFile("Auth/0002/case.mdx", "---\ntitle: Logout clears token\nmodified: \"2024-06-01 10:00:00\"\n---\n# Logout\n")
	fs.WriteFile("guide.md", "How to test logout")
	return fs
}

// lineIndex returns the output line holding s, or -1.
func lineIndex(out, s string) int {
	for i, line := range strings.Split(out, "\n") {
		if strings.Contains(line, s) {
			return i
		}
	}
	return -1
}

func TestSearchSortByModified(t *testing.T) {
	out, err := runSearch(t, searchFixture(), "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 3 results")
	assert.Contains(t, out, "2024-06-01 10:00")
	assert.Less(t, lineIndex(out, "Auth/0001/case.mdx"), lineIndex(out, "Auth/0002/case.mdx"))

	out, err = runSearch(t, searchFixture(), "logout", "--sort", "modified")
	require.NoError(t, err)
	newest := lineIndex(out, "Logout clears token")
	older := lineIndex(out, "Logout keeps draft")
	undated := lineIndex(out, "guide.md")
	require.NotEqual(t, -1, newest)
	assert.Less(t, newest, older)
	assert.Less(t, older, undated)

	_, err = runSearch(t, searchFixture(), "logout", "--sort", "size")
	assert.ErrorContains(t, err, "unknown sort")
}

func TestSearchLive(t *testing.T) {
	out, err := runSearch(t, searchFixture(), "logout", "--in", "Auth")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 results")
	assert.Equal(t, -1, lineIndex(out, "guide.md"))
}
