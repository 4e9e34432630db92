package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"productsapi/config"
)

// R2Storage uploads to a Cloudflare R2 bucket through the S3 API. The client
// is created on first use.
type R2Storage struct {
	cfg config.R2Config

	once    sync.Once
	client  *s3.Client
	initErr error
}

func NewR2Storage(cfg config.R2Config) *R2Storage {
	return &R2Storage{cfg: cfg}
}

func (s *R2Storage) init(ctx context.Context) error {
	s.once.Do(func() {
		if s.cfg.Bucket == "" || s.cfg.AccountID == "" || s.cfg.PublicURL == "" {
			s.initErr = fmt.Errorf("missing required R2 settings")
			return
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("auto"), // Important for R2
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.cfg.AccessKeyID,
				s.cfg.SecretAccessKey,
				"",
			)),
		)
		if err != nil {
			s.initErr = fmt.Errorf("failed to load R2 config: %v", err)
			return
		}

		endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.cfg.AccountID)
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	})
	return s.initErr
}

func (s *R2Storage) Save(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if err := s.init(ctx); err != nil {
		return "", err
	}

	key := filepath.Base(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %v", err)
	}

	return PublicURL(s.cfg.PublicURL, key), nil
}

// PublicURL joins the bucket's public base URL and an object key.
func PublicURL(base, key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), url.PathEscape(key))
}
