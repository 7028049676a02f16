package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 stores photos as public-read objects addressed by URL.
type S3 struct {
	client     *s3.Client
	bucket     string
	region     string
	publicBase string
	now        func() time.Time
}

// NewS3 loads AWS credentials from the default chain (env, shared config, instance role).
func NewS3(ctx context.Context, bucket, region, publicBase string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3(s3.NewFromConfig(cfg), bucket, region, publicBase), nil
}

func newS3(client *s3.Client, bucket, region, publicBase string) *S3 {
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3{client: client, bucket: bucket, region: region, publicBase: strings.TrimRight(publicBase, "/"), now: time.Now}
}

func (s *S3) Put(ctx context.Context, img *Image) (string, error) {
	key := ObjectKey(s.now(), img.Ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(img.Data),
		ContentType:  aws.String(img.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		metrics.UploadFailTotal.Inc()
		logger.L().WithError(err).WithField("key", key).Error("s3_put_error")
		return "", apperr.Upload(err)
	}
	logger.L().WithField("key", key).WithField("bytes", len(img.Data)).Debug("s3_put_ok")
	return s.URL(key), nil
}

func (s *S3) Delete(ctx context.Context, rawURL string) error {
	key := s.KeyFromURL(rawURL)
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3) URL(key string) string { return s.publicBase + "/" + key }

// KeyFromURL recovers the object key from a URL produced by URL; foreign URLs give "".
func (s *S3) KeyFromURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, s.publicBase+"/") {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base, _ := url.Parse(s.publicBase)
	key := strings.TrimPrefix(u.Path, strings.TrimRight(base.Path, "/"))
	return strings.TrimPrefix(key, "/")
}

func (s *S3) Name() string { return "s3" }

func (s *S3) Heartbeat(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
