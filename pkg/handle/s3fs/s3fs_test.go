package s3fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// fakeAPI is an in-memory object store with just enough of the S3 listing
// semantics (prefix, delimiter, max keys) for the backend.
type fakeAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	listErr error
}

func newFake(objects map[string]string) *fakeAPI {
	f := &fakeAPI{objects: map[string][]byte{}}
	for k, v := range objects {
		f.objects[k] = []byte(v)
	}
	return f
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seen := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if in.MaxKeys != nil && int(*in.MaxKeys) < len(out.Contents) {
		out.Contents = out.Contents[:*in.MaxKeys]
	}
	return out, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	api := newFake(map[string]string{
		"cases/top.md":              "top",
		"cases/suite/":              "",
		"cases/suite/0001/case.mdx": "# Login",
		"cases/suite/0001/shot.png": "png",
		"other/ignored.md":          "",
	})
	root := NewBucket(api, "qa").Root("/cases/")
	assert.Equal(t, "cases", root.Name())
	assert.Equal(t, "s3://qa/cases/", root.(handle.Locator).Location())

	entries, err := root.Entries(ctx)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name+":"+e.Handle.Kind().String())
	}
	sort.Strings(got)
	assert.Equal(t, []string{"suite:directory", "top.md:file"}, got)

	suite, err := root.Dir(ctx, "suite")
	require.NoError(t, err)
	entries, err = suite.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "marker object must not be listed")
	assert.Equal(t, "0001", entries[0].Name)
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	api := newFake(map[string]string{"cases/suite/0001/case.mdx": "# Login"})
	root := NewBucket(api, "qa").Root("cases")

	f, err := handle.ResolveFile(ctx, root, "suite/0001/case.mdx")
	require.NoError(t, err)
	text, err := handle.ReadText(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "# Login", text)

	require.NoError(t, handle.WriteText(ctx, f, "# Logout"))
	assert.Equal(t, "# Logout", string(api.objects["cases/suite/0001/case.mdx"]))

	_, err = handle.ResolveFile(ctx, root, "suite/0002/case.mdx")
	assert.ErrorIs(t, err, handle.ErrNotFound)
	_, err = root.File(ctx, "missing.md")
	assert.ErrorIs(t, err, handle.ErrNotFound)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	api := newFake(nil)
	root := NewBucket(api, "qa").Root("")
	assert.Equal(t, "qa", root.Name())

	f, err := handle.ResolveFile(ctx, root, "new/shot.png", handle.Create())
	require.NoError(t, err)
	require.NoError(t, f.Write(ctx, []byte("png")))

	_, ok := api.objects["new/"]
	assert.True(t, ok, "directory marker written")
	assert.Equal(t, "png", string(api.objects["new/shot.png"]))
}

func TestListFailure(t *testing.T) {
	api := newFake(nil)
	api.listErr = errors.New("access denied")
	_, err := Picker{Bucket: NewBucket(api, "qa")}.PickDirectory(context.Background())
	assert.ErrorIs(t, err, handle.ErrIO)

	_, err = Picker{}.PickDirectory(context.Background())
	assert.ErrorIs(t, err, handle.ErrUnsupported)
}
