// Package blob opens inputs that live either on local disk or in S3.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/labbench/internal/ctxlog"
)

const (
	// DefaultRegion is used when neither a flag nor AWS_REGION names one.
	DefaultRegion = "us-east-1"

	s3Scheme = "s3://"
)

// IsS3URL reports whether location uses the s3:// scheme.
func IsS3URL(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(s string) (bucket, key string, err error) {
	if !IsS3URL(s) {
		return "", "", errors.New("must start with s3://")
	}
	parts := strings.SplitN(strings.TrimPrefix(s, s3Scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid s3 url, expected s3://bucket/key")
	}
	return parts[0], parts[1], nil
}

// ObjectGetter is the part of the S3 client used to read objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener resolves locations to readers. The S3 client is built on first use
// so local-only runs never touch AWS configuration.
type Opener struct {
	region string

	once   sync.Once
	client ObjectGetter
	err    error
}

// NewOpener returns an Opener for region. An empty region falls back to
// AWS_REGION, then DefaultRegion.
func NewOpener(region string) *Opener {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = DefaultRegion
	}
	return &Opener{region: region}
}

// NewOpenerWithClient returns an Opener backed by an existing client.
func NewOpenerWithClient(client ObjectGetter) *Opener {
	o := &Opener{client: client}
	o.once.Do(func() {})
	return o
}

// Region is the AWS region used for S3 reads.
func (o *Opener) Region() string { return o.region }

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.once.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(o.region))
		if err != nil {
			o.err = fmt.Errorf("failed to load aws config: %w", err)
			return
		}
		o.client = s3.NewFromConfig(cfg)
	})
	return o.client, o.err
}

// Open returns a reader for a local path or an s3://bucket/key object.
// The caller closes it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsS3URL(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Fetching object.", "bucket", bucket, "key", key)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", location, err)
	}
	return out.Body, nil
}

// ReadAll reads the whole content at location.
func (o *Opener) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, err := o.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}
