package blob

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioConfig configures a MinIO blob store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicURL is the base URL returned for stored objects. Defaults
	// to the endpoint.
	PublicURL string
}

// Minio is a MinIO-backed blob store.
type Minio struct {
	client *minio.Client
	bucket string
	base   string
}

// NewMinio connects to MinIO and returns a blob store, creating the
// bucket if it does not exist.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "blob: failed to create client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "blob: failed to check bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "blob: failed to create bucket")
		}
	}

	base := cfg.PublicURL
	if base == "" {
		base = cfg.Endpoint
	}

	return &Minio{
		client: client,
		bucket: cfg.Bucket,
		base:   base,
	}, nil
}

// Put stores the data under a timestamped object name, returning the
// URL of the stored object.
func (m *Minio) Put(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	objectName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name)

	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, "blob: put failed")
	}

	return fmt.Sprintf("%s/%s/%s", m.base, m.bucket, objectName), nil
}
