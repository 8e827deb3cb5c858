package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store reads and writes objects below a bucket/prefix pair.
type S3Store struct {
	client     *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
	bucket     string
	prefix     string
}

// NewS3Store opens a store rooted at an s3:// or s3a:// URL. Static
// credentials are used when provided; otherwise the default chain applies.
func NewS3Store(rawURL, region, accessKey, secretKey string) (*S3Store, error) {
	bucket, prefix, err := splitS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	cfg := &aws.Config{Region: aws.String(region)}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	return &S3Store{
		client:     s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     bucket,
		prefix:     prefix,
	}, nil
}

func splitS3URL(rawURL string) (bucket, prefix string, err error) {
	rest := rawURL
	for _, scheme := range []string{"s3a://", "s3://"} {
		if strings.HasPrefix(rest, scheme) {
			rest = strings.TrimPrefix(rest, scheme)
			bucket, prefix, _ = strings.Cut(rest, "/")
			if bucket == "" {
				return "", "", fmt.Errorf("no bucket in S3 URL %q", rawURL)
			}
			if prefix != "" && !strings.HasSuffix(prefix, "/") {
				prefix += "/"
			}
			return bucket, prefix, nil
		}
	}
	return "", "", fmt.Errorf("not an S3 URL: %q", rawURL)
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx,
		&s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(s.prefix + prefix),
		},
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, strings.TrimPrefix(*obj.Key, s.prefix))
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("listing s3://%s/%s%s: %w", s.bucket, s.prefix, prefix, err)
	}
	return keys, nil
}

func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	buf := &aws.WriteAtBuffer{}
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.prefix + key),
		})
		if err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return nil
}

// Check uploads and removes a probe object, surfacing credential or bucket
// problems before any dataset is touched.
func (s *S3Store) Check(ctx context.Context) error {
	const probeKey = "_connection_check"
	if err := s.Upload(ctx, probeKey, strings.NewReader("ok")); err != nil {
		return fmt.Errorf("S3 access check failed: %w", err)
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + probeKey),
	})
	if err != nil {
		return fmt.Errorf("S3 access check cleanup failed: %w", err)
	}
	return nil
}
