// Package s3fs exposes an S3 bucket prefix as a directory handle. Directories
// are virtual: a "directory" is a common key prefix ending in "/".
package s3fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// API is the subset of *s3.Client the backend needs.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewClient builds a path-style S3 client. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// Bucket is a handle factory bound to one bucket.
type Bucket struct {
	api    API
	bucket string
}

func NewBucket(api API, bucket string) *Bucket {
	return &Bucket{api: api, bucket: bucket}
}

// Root returns the directory handle for prefix ("" is the bucket root).
func (b *Bucket) Root(prefix string) handle.Directory {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &dir{b: b, prefix: prefix}
}

// Picker yields the configured bucket prefix as the root directory.
type Picker struct {
	Bucket *Bucket
	Prefix string
}

func (p Picker) PickDirectory(ctx context.Context) (handle.Directory, error) {
	if p.Bucket == nil {
		return nil, handle.ErrUnsupported
	}
	d := p.Bucket.Root(p.Prefix)
	if _, err := d.Entries(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

type dir struct {
	b      *Bucket
	prefix string
}

func (d *dir) Kind() handle.Kind { return handle.KindDirectory }

func (d *dir) Name() string {
	if d.prefix == "" {
		return d.b.bucket
	}
	return path.Base(strings.TrimSuffix(d.prefix, "/"))
}

func (d *dir) Location() string {
	return "s3://" + d.b.bucket + "/" + d.prefix
}

func (d *dir) Entries(ctx context.Context) ([]handle.Entry, error) {
	p := s3.NewListObjectsV2Paginator(d.b.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.b.bucket),
		Prefix:    aws.String(d.prefix),
		Delimiter: aws.String("/"),
	})

	var entries []handle.Entry
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, handle.Wrap("list", d.prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			sub := aws.ToString(cp.Prefix)
			name := strings.TrimSuffix(strings.TrimPrefix(sub, d.prefix), "/")
			if name == "" {
				continue
			}
			entries = append(entries, handle.Entry{Name: name, Handle: &dir{b: d.b, prefix: sub}})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, d.prefix)
			// Skip directory marker objects.
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			entries = append(entries, handle.Entry{Name: name, Handle: &file{b: d.b, key: key}})
		}
	}
	return entries, nil
}

func (d *dir) File(ctx context.Context, name string, opts ...handle.ChildOption) (handle.File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	key := d.prefix + name
	_, err := d.b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.b.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
	case isNotFound(err) && handle.ApplyChildOptions(opts).CreateIfMissing:
		if err := d.b.put(ctx, key, nil); err != nil {
			return nil, handle.Wrap("create", key, err)
		}
	case isNotFound(err):
		return nil, &handle.PathError{Op: "open", Path: key, Err: handle.ErrNotFound}
	default:
		return nil, handle.Wrap("open", key, err)
	}
	return &file{b: d.b, key: key}, nil
}

func (d *dir) Dir(ctx context.Context, name string, opts ...handle.ChildOption) (handle.Directory, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	sub := d.prefix + name + "/"
	out, err := d.b.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.b.bucket),
		Prefix:  aws.String(sub),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, handle.Wrap("open", sub, err)
	}
	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		if !handle.ApplyChildOptions(opts).CreateIfMissing {
			return nil, &handle.PathError{Op: "open", Path: sub, Err: handle.ErrNotFound}
		}
		if err := d.b.put(ctx, sub, nil); err != nil {
			return nil, handle.Wrap("mkdir", sub, err)
		}
	}
	return &dir{b: d.b, prefix: sub}, nil
}

type file struct {
	b   *Bucket
	key string
}

func (f *file) Kind() handle.Kind { return handle.KindFile }
func (f *file) Name() string      { return path.Base(f.key) }

func (f *file) Read(ctx context.Context) ([]byte, error) {
	out, err := f.b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.b.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &handle.PathError{Op: "read", Path: f.key, Err: handle.ErrNotFound}
		}
		return nil, handle.Wrap("read", f.key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, handle.Wrap("read", f.key, err)
	}
	return data, nil
}

func (f *file) Write(ctx context.Context, data []byte) error {
	if err := f.b.put(ctx, f.key, data); err != nil {
		return handle.Wrap("write", f.key, err)
	}
	return nil
}

func (b *Bucket) put(ctx context.Context, key string, data []byte) error {
	_, err := b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return err
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return &handle.PathError{Op: "open", Path: name, Err: fmt.Errorf("%w: invalid name", handle.ErrNotFound)}
	}
	return nil
}
