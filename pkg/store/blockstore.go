package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Blockstore is the key/value layer under Local. Keys are safe file names.
type Blockstore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Has(ctx context.Context, key string) (bool, error)
}

// DirBlockstore stores blocks as files sharded by the last two characters of
// the key.
type DirBlockstore struct {
	dir string
}

// NewDirBlockstore creates the directory if needed.
func NewDirBlockstore(dir string) (*DirBlockstore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirBlockstore{dir: dir}, nil
}

func (b *DirBlockstore) path(key string) string {
	shard := key
	if len(key) > 2 {
		shard = key[len(key)-2:]
	}
	return filepath.Join(b.dir, shard, key)
}

// Get returns the block or ErrBlockNotFound.
func (b *DirBlockstore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlockNotFound
	}
	return data, err
}

// Put writes the block unless it already exists. Blocks are keyed by content,
// so an existing block never needs rewriting.
func (b *DirBlockstore) Put(ctx context.Context, key string, data []byte) error {
	path := b.path(key)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Has reports whether the block exists.
func (b *DirBlockstore) Has(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// S3Config configures an S3Blockstore.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Blockstore stores blocks as objects in an S3-compatible bucket.
type S3Blockstore struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// NewS3Blockstore creates a client. The bucket is created on first use if it
// does not exist.
func NewS3Blockstore(cfg S3Config) (*S3Blockstore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Blockstore{client: client, bucket: bucket, region: region, prefix: prefix}, nil
}

func (b *S3Blockstore) ensureBucket(ctx context.Context) error {
	b.initOnce.Do(func() {
		exists, err := b.client.BucketExists(ctx, b.bucket)
		if err != nil {
			b.initErr = err
			return
		}
		if exists {
			return
		}
		b.initErr = b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region})
	})
	return b.initErr
}

// Get returns the block or ErrBlockNotFound.
func (b *S3Blockstore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := b.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.prefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put uploads the block.
func (b *S3Blockstore) Put(ctx context.Context, key string, data []byte) error {
	if err := b.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := b.client.PutObject(ctx, b.bucket, b.prefix+key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// Has reports whether the block exists.
func (b *S3Blockstore) Has(ctx context.Context, key string) (bool, error) {
	if err := b.ensureBucket(ctx); err != nil {
		return false, fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := b.client.StatObject(ctx, b.bucket, b.prefix+key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

var (
	_ Blockstore = (*DirBlockstore)(nil)
	_ Blockstore = (*S3Blockstore)(nil)
)
