// Package artifacts stores diagnostic captures (page snapshots, raw payloads)
// produced during automation runs. Saving is best-effort: callers log
// failures and continue.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/brandbolt/roasrobo/internal/pkg/logger"
)

// Store saves a named artifact and returns where it landed.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// LocalStore writes artifacts to a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a local artifact store rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (l *LocalStore) Save(_ context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(l.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", path, err)
	}
	return path, nil
}

// S3Store uploads artifacts to an S3 bucket under a key prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed artifact store using the default AWS
// credential chain. Bucket access failures surface on first Save, not here.
func NewS3Store(ctx context.Context, bucket, prefix, region string) (*S3Store, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	logger.Info("artifact store configured", "bucket", bucket, "prefix", prefix, "region", region)
	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: bucket, prefix: prefix}, nil
}

func (s *S3Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return "text/html"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
