package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/frontmatter"
	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/handle/memfs"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

const sampleExport = `{
  "suites": [
    {
      "title": "認証/ログイン",
      "description": "Login flows",
      "preconditions": "A registered user",
      "cases": [
        {
          "id": 101,
          "title": "ログインできること",
          "priority": "high",
          "severity": "major",
          "description": "Valid credentials log the user in",
          "custom_fields": [{"title": "component", "value": "web"}, {"title": "empty", "value": ""}],
          "steps": [
            {"position": 1, "action": "Open the login page", "expected_result": "Form is shown"},
            {"position": 2, "action": "Submit", "data": "user@example.com"}
          ],
          "postconditions": "Session exists"
        },
        {"title": "Second case", "priority": "undefined"}
      ],
      "suites": [
        {"title": "SSO", "cases": [{"title": "SSO redirect"}]}
      ]
    }
  ]
}`

var fixedNow = func() time.Time { return time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC) }

func decodeSample(t *testing.T) *Export {
	t.Helper()
	exp, err := Decode(strings.NewReader(sampleExport))
	require.NoError(t, err)
	return exp
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Login", "Login"},
		{"  padded  ", "padded"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{strings.Repeat("あ", 120), strings.Repeat("あ", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.in))
		})
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")
	logger, _ := test.NewNullLogger()

	im := New(Options{Now: fixedNow}, nil, logger)
	report, err := im.Import(ctx, fs.Root(), decodeSample(t))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Suites)
	assert.Equal(t, 3, report.Cases)
	assert.Equal(t, 1, report.Readmes)
	assert.Equal(t, 0, report.FailedFiles)
	assert.Equal(t, []string{
		"認証_ログイン/README.md",
		"認証_ログイン/0001/case.mdx",
		"認証_ログイン/0002/case.mdx",
		"認証_ログイン/SSO/0001/case.mdx",
	}, report.WrittenFiles)

	readme, ok := fs.Contents("認証_ログイン/README.md")
	require.True(t, ok)
	assert.Equal(t, "# 認証/ログイン\n\nLogin flows\n\n## 前提条件\n\nA registered user\n", readme)

	doc, ok := fs.Contents("認証_ログイン/0001/case.mdx")
	require.True(t, ok)
	fm, body, err := frontmatter.Parse(doc)
	require.NoError(t, err)
	require.NotNil(t, fm)
	assert.Equal(t, "101", fm.ID)
	assert.Equal(t, "ログインできること", fm.Title)
	assert.Equal(t, "認証_ログイン", fm.Suite)
	assert.Equal(t, "high", fm.Priority)
	assert.Equal(t, "major", fm.Severity)
	assert.Equal(t, []string{"認証_ログイン"}, fm.Tags)
	assert.Equal(t, map[string]string{"component": "web"}, fm.Fields)
	assert.Equal(t, "2025-07-15 09:30:00", fm.Created)

	assert.Contains(t, body, "# ログインできること\n\n## 説明\n\nValid credentials log the user in\n\n")
	assert.Contains(t, body, "### ステップ 1\n\n**操作**: Open the login page\n\n**期待結果**:\nForm is shown\n\n")
	assert.Contains(t, body, "### ステップ 2\n\n**操作**: Submit\n\n**データ**: user@example.com\n\n")
	assert.Contains(t, body, "## 事後条件\n\nSession exists\n\n")

	second, ok := fs.Contents("認証_ログイン/0002/case.mdx")
	require.True(t, ok)
	fm2, _, err := frontmatter.Parse(second)
	require.NoError(t, err)
	assert.Equal(t, "0002", fm2.ID)
	assert.Empty(t, fm2.Priority)

	nested, ok := fs.Contents("認証_ログイン/SSO/0001/case.mdx")
	require.True(t, ok)
	fm3, _, err := frontmatter.Parse(nested)
	require.NoError(t, err)
	assert.Equal(t, "認証_ログイン/SSO", fm3.Suite)
	assert.Equal(t, []string{"認証_ログイン", "SSO"}, fm3.Tags)
}

func TestImportedTreeIsBrowsable(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")
	_, err := New(Options{Now: fixedNow}, nil, nil).Import(ctx, fs.Root(), decodeSample(t))
	require.NoError(t, err)

	nodes, err := tree.Build(ctx, fs.Root(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"認証_ログイン",
		"認証_ログイン/0001",
		"認証_ログイン/0001/case.mdx",
		"認証_ログイン/0002",
		"認証_ログイン/0002/case.mdx",
		"認証_ログイン/SSO",
		"認証_ログイン/SSO/0001",
		"認証_ログイン/SSO/0001/case.mdx",
	}, tree.Paths(nodes), "suite README files are reserved and stay hidden")
}

func TestImportSkipsExisting(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")
	fs.WriteFile("認証_ログイン/0001/case.mdx", "# Edited by hand\n")

	report, err := New(Options{Now: fixedNow}, nil, nil).Import(ctx, fs.Root(), decodeSample(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedFiles)
	got, _ := fs.Contents("認証_ログイン/0001/case.mdx")
	assert.Equal(t, "# Edited by hand\n", got)

	report, err = New(Options{Now: fixedNow, Overwrite: true}, nil, nil).Import(ctx, fs.Root(), decodeSample(t))
	require.NoError(t, err)
	assert.Equal(t, 0, report.SkippedFiles)
	got, _ = fs.Contents("認証_ログイン/0001/case.mdx")
	assert.True(t, strings.HasPrefix(got, "---\nid: \"101\"\n"), got)
}

func TestImportDryRun(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")
	var out strings.Builder

	report, err := New(Options{DryRun: true, Verbose: true, Now: fixedNow}, &out, nil).Import(ctx, fs.Root(), decodeSample(t))
	require.NoError(t, err)
	assert.Len(t, report.WrittenFiles, 4)
	assert.Contains(t, out.String(), "  認証_ログイン/SSO/0001/case.mdx\n")

	entries, err := fs.Root().Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportWriteFailureContinues(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New("cases")
	fs.FailWrite("認証_ログイン/0001/case.mdx", handle.ErrIO)
	logger, hook := test.NewNullLogger()

	report, err := New(Options{Now: fixedNow}, nil, logger).Import(ctx, fs.Root(), decodeSample(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedFiles)
	assert.True(t, errors.Is(report.ProcessingErrors["認証_ログイン/0001/case.mdx"], handle.ErrIO))
	_, ok := fs.Contents("認証_ログイン/SSO/0001/case.mdx")
	assert.True(t, ok)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to write imported file", hook.LastEntry().Message)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader("{not json"))
	assert.Error(t, err)
}
