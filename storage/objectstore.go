// Package storage adapts the remote object store the block engine reads
// and writes blocks through.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vaultfm/config"
	vaulterr "vaultfm/errors"
	"vaultfm/logger"
)

// ObjectStore puts, gets, and deletes opaque byte blobs at partitioned
// keys. It satisfies block.ObjectStore.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
}

// NewObjectStore connects to MinIO and ensures the configured bucket
// exists, creating it if necessary.
func NewObjectStore(ctx context.Context, cfg *config.Config) (*ObjectStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created object store bucket", logger.String("bucket", cfg.MinioBucket))
	}

	timeout := time.Duration(cfg.ObjectStoreTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ObjectStore{client: client, bucket: cfg.MinioBucket, timeout: timeout}, nil
}

// BlockKey computes the partitioned key for a block id, spreading the
// keyspace across a two-level prefix derived from its first four hex
// characters so no single prefix absorbs all write throughput.
func BlockKey(blockID string) string {
	clean := strings.ReplaceAll(blockID, "-", "")
	if len(clean) < 4 {
		clean = clean + strings.Repeat("0", 4-len(clean))
	}
	return fmt.Sprintf("blocks/%s/%s/%s.bin", clean[0:2], clean[2:4], blockID)
}

// isNotFound reports whether err is MinIO's way of saying the object
// does not exist, matching on the response code the way the teacher's
// own MinIO adapter matches on the error text.
func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" || resp.Code == "NoSuchBucket"
}

// wrapErr classifies a MinIO/context failure into the right vaulterr.Kind:
// a genuine missing object is NotFound, everything else (including a
// deadline expiry) is TransientIO.
func wrapErr(msg string, err error) error {
	if isNotFound(err) {
		return vaulterr.Wrap(vaulterr.NotFound, msg, err)
	}
	return vaulterr.Wrap(vaulterr.TransientIO, msg, err)
}

// Put overwrites (or creates) the object at key.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return wrapErr("put object "+key, err)
	}
	return nil
}

// Get returns the full contents of the object at key, or a NotFound-class
// error (see errors.Kind) if it does not exist.
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapErr("get object "+key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapErr("read object "+key, err)
	}
	return data, nil
}

// Delete removes the object at key; deleting an absent key is not an error.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return wrapErr("delete object "+key, err)
	}
	return nil
}
