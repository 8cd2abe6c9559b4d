package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxArtifactBytes bounds a single downloaded artifact.
const maxArtifactBytes = 512 << 20

// ObjectGetter is the subset of the S3 client used to fetch a bundle.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS config chain. A
// non-empty endpoint switches to path-style addressing against it
// (MinIO, localstack).
func NewS3Client(ctx context.Context, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// FetchS3 downloads the bundle stored under bucket/prefix into dst, which must
// exist. The manifest is optional; the files it names (or the defaults) are not.
func FetchS3(ctx context.Context, client ObjectGetter, bucket, prefix, dst string) error {
	m := DefaultManifest()

	data, err := getObject(ctx, client, bucket, path.Join(prefix, ManifestFile))
	switch {
	case err == nil:
		if err := parseManifest(data, &m); err != nil {
			return fmt.Errorf("s3://%s/%s: %w", bucket, path.Join(prefix, ManifestFile), err)
		}
		if err := os.WriteFile(filepath.Join(dst, ManifestFile), data, 0o600); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	case isNoSuchKey(err):
	default:
		return err
	}

	for _, name := range []string{m.Labels, m.Scaler, m.Model} {
		key := path.Join(prefix, name)
		data, err := getObject(ctx, client, bucket, key)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, name), data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func getObject(ctx context.Context, client ObjectGetter, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	if len(data) > maxArtifactBytes {
		return nil, fmt.Errorf("s3://%s/%s exceeds %d bytes", bucket, key, maxArtifactBytes)
	}
	return data, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
