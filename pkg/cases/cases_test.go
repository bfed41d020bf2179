package cases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/frontmatter"
	"github.com/mattsolo1/grove-casebook/pkg/handle/memfs"
)

func fixedNow() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

func TestNextNumber(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")

	n, err := NextNumber(ctx, fs.Root())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fs.WriteFile("0001/case.mdx", "a")
	fs.WriteFile("0007/case.mdx", "b")
	fs.Mkdir("12345")
	fs.WriteFile("0009", "a file, not a case")
	fs.Mkdir("notes")

	n, err = NextNumber(ctx, fs.Root())
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")
	fs.WriteFile("Login/0001/case.mdx", "existing")

	p, err := Create(ctx, fs.Root(), "Login", Options{
		Title:    "Password reset",
		Priority: "high",
		Tags:     []string{"smoke"},
		Now:      fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "Login/0002/case.mdx", p)

	content, ok := fs.Contents(p)
	require.True(t, ok)
	fm, body, err := frontmatter.Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "0002", fm.ID)
	assert.Equal(t, "Password reset", fm.Title)
	assert.Equal(t, "Login", fm.Suite)
	assert.Equal(t, "high", fm.Priority)
	assert.Equal(t, []string{"Login", "smoke"}, fm.Tags)
	assert.Equal(t, "2024-03-01 09:30:00", fm.Created)
	assert.Equal(t, "# Password reset", strings.TrimSpace(body))
}

func TestCreateMakesMissingDirectories(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")

	p, err := Create(ctx, fs.Root(), "Checkout/Payments", Options{Body: "custom body\n", Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, "Checkout/Payments/0001/case.mdx", p)

	content, _ := fs.Contents(p)
	assert.Contains(t, content, "title: Case 0001\n")
	assert.True(t, strings.HasSuffix(content, "\n\ncustom body\n"))
}

func TestCreateRejectsEscapingPath(t *testing.T) {
	fs := memfs.New("cases")
	_, err := Create(context.Background(), fs.Root(), "../outside", Options{})
	assert.Error(t, err)
}
