package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/handle/memfs"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		kind handle.Kind
		want Class
	}{
		{"case.mdx", handle.KindFile, ClassDocument},
		{"notes.md", handle.KindFile, ClassDocument},
		{"shot.PNG", handle.KindFile, ClassAttachment},
		{"diagram.svg", handle.KindFile, ClassAttachment},
		{"photo.jpeg", handle.KindFile, ClassAttachment},
		{"README.md", handle.KindFile, ClassReserved},
		{"Meta.mdx", handle.KindFile, ClassReserved},
		{"readme.mdx", handle.KindFile, ClassReserved},
		{"NOTES.MD", handle.KindFile, ClassIgnored},
		{"data.json", handle.KindFile, ClassIgnored},
		{"Makefile", handle.KindFile, ClassIgnored},
		{"suite", handle.KindDirectory, ClassDirectory},
		{"0001", handle.KindDirectory, ClassDirectory},
		{".git", handle.KindDirectory, ClassHiddenDir},
		{"images.png", handle.KindDirectory, ClassDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name, tt.kind))
		})
	}
}

func TestAttachmentKind(t *testing.T) {
	tests := map[string]AttachmentType{
		"a.png":     AttachmentImage,
		"b.WEBP":    AttachmentImage,
		"log.txt":   AttachmentText,
		"conf.yml":  AttachmentText,
		"dump.tar":  AttachmentArchive,
		"x.7z":      AttachmentArchive,
		"video.mp4": AttachmentOther,
		"noext":     AttachmentOther,
	}
	for name, want := range tests {
		assert.Equal(t, want, AttachmentKind(name), name)
	}
}

func sampleFS() *memfs.FS {
	m := memfs.New("root")
	m.WriteFile("0001/case.mdx", "# Login succeeds")
	m.WriteFile("0001/notes.png", "png")
	m.WriteFile("0002/case.mdx", "# Logout")
	m.WriteFile("suite/b.md", "b")
	m.WriteFile("suite/a.mdx", "a")
	m.WriteFile("suite/nested/deep.md", "deep")
	m.WriteFile("suite/README.md", "readme")
	m.WriteFile(".git/config.md", "hidden")
	m.WriteFile("top.md", "top")
	m.WriteFile("cover.jpg", "jpg")
	m.WriteFile("data.csv", "csv")
	return m
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	m := sampleFS()

	nodes, err := Build(ctx, m.Root(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0001",
		"0001/case.mdx",
		"0002",
		"0002/case.mdx",
		"suite",
		"suite/nested",
		"suite/nested/deep.md",
		"suite/a.mdx",
		"suite/b.md",
		"top.md",
	}, Paths(nodes))

	c1 := Find(nodes, "0001")
	require.NotNil(t, c1)
	assert.True(t, c1.IsDir())
	require.Len(t, c1.Attachments, 1)
	assert.Equal(t, "0001/notes.png", c1.Attachments[0].Path)
	assert.Equal(t, TypeFile, c1.Attachments[0].Type)

	top := Find(nodes, "top.md")
	require.NotNil(t, top)
	assert.Nil(t, top.Children)
	_, ok := top.File()
	assert.True(t, ok)

	nested := Find(nodes, "suite/nested")
	require.NotNil(t, nested)
	assert.NotNil(t, nested.Children)
	assert.Empty(t, nested.Attachments)

	assert.Equal(t, c1.Attachments[0], Find(nodes, "0001/notes.png"))
	assert.Nil(t, Find(nodes, "suite/README.md"))
	assert.Equal(t, 10, Count(nodes))
}

func TestBuildRoot(t *testing.T) {
	root, err := BuildRoot(context.Background(), sampleFS().Root())
	require.NoError(t, err)
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, "", root.Path)
	assert.True(t, root.IsDir())
	require.Len(t, root.Attachments, 1)
	assert.Equal(t, "cover.jpg", root.Attachments[0].Path)
	assert.Len(t, root.Children, 4)
}

func TestBuildPrefix(t *testing.T) {
	ctx := context.Background()
	m := sampleFS()
	suite, err := m.Root().Dir(ctx, "suite")
	require.NoError(t, err)

	nodes, err := Build(ctx, suite, "suite")
	require.NoError(t, err)
	assert.Equal(t, []string{"suite/nested", "suite/nested/deep.md", "suite/a.mdx", "suite/b.md"}, Paths(nodes))
}

func TestBuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := sampleFS()
	first, err := Build(ctx, m.Root(), "")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Build(ctx, m.Root(), "", WithConcurrency(1+i%4))
		require.NoError(t, err)
		assert.Equal(t, Paths(first), Paths(again))
	}
}

func TestBuildListingFailure(t *testing.T) {
	ctx := context.Background()
	m := sampleFS()
	m.FailList("suite/nested", errors.New("permission denied"))

	nodes, err := Build(ctx, m.Root(), "")
	require.Error(t, err)
	assert.Nil(t, nodes)
	assert.ErrorIs(t, err, handle.ErrIO)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, sampleFS().Root(), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortIsTotal(t *testing.T) {
	precomposed := "\u00e9.md"
	decomposed := "e\u0301.md"
	nodes := []*Node{
		{Name: "b.md"},
		{Name: "B", Type: TypeDirectory},
		{Name: precomposed},
		{Name: decomposed},
		{Name: "a.md"},
		{Name: "A.md"},
	}
	Sort(nodes)
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"B", "A.md", "a.md", "b.md", decomposed, precomposed}, names)
}

func TestCaseFolderRule(t *testing.T) {
	nodes, err := Build(context.Background(), sampleFS().Root(), "")
	require.NoError(t, err)
	rules := DefaultRules()

	c1 := Find(nodes, "0001")
	assert.Empty(t, rules.Children(c1))
	p, ok := rules.AutoOpen(c1)
	require.True(t, ok)
	assert.Equal(t, "0001/case.mdx", p)

	suite := Find(nodes, "suite")
	assert.Len(t, rules.Children(suite), 3)
	_, ok = rules.AutoOpen(suite)
	assert.False(t, ok)

	assert.True(t, IsCaseFolder("0042"))
	assert.False(t, IsCaseFolder("42"))
	assert.False(t, IsCaseFolder("00421"))
}

func TestWalkSkipDir(t *testing.T) {
	nodes, err := Build(context.Background(), sampleFS().Root(), "")
	require.NoError(t, err)

	var seen []string
	err = Walk(nodes, func(n *Node) error {
		seen = append(seen, n.Path)
		if n.Path == "suite" {
			return SkipDir
		}
		return nil
	})
	require.NoError(t, err)
	assert.NotContains(t, seen, "suite/a.mdx")
	assert.Contains(t, seen, "top.md")

	stop := errors.New("stop")
	err = Walk(nodes, func(*Node) error { return stop })
	assert.ErrorIs(t, err, stop)

	flat := Flatten(nodes)
	assert.Len(t, flat, 10)
	assert.Same(t, Find(nodes, "suite/nested/deep.md"), flat["suite/nested/deep.md"])
}

func TestBreadcrumbs(t *testing.T) {
	assert.Equal(t, []Crumb{
		{Name: "cases", Path: ""},
		{Name: "suite", Path: "suite"},
		{Name: "0001", Path: "suite/0001"},
		{Name: "case.mdx", Path: "suite/0001/case.mdx"},
	}, Breadcrumbs("cases", "suite/0001/case.mdx"))
	assert.Equal(t, []Crumb{{Name: "cases"}}, Breadcrumbs("cases", ""))
}

func TestChildPath(t *testing.T) {
	assert.Equal(t, "a", ChildPath("", "a"))
	assert.Equal(t, "a/b", ChildPath("a", "b"))
}
