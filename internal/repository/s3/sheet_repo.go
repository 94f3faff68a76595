package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appConfig "github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/repository/tabular"
)

// ObjectGetter is the subset of the S3 client used by SheetSource
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SheetSource downloads the risk extract spreadsheet from a bucket
type SheetSource struct {
	client ObjectGetter
	bucket string
	key    string
	sheet  string
}

// NewSheetSource creates an S3 backed table source
func NewSheetSource(ctx context.Context, cfg appConfig.S3Config, sheet string) (*SheetSource, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO / Localstack
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewSheetSourceWithClient(client, cfg.Bucket, cfg.Key, sheet), nil
}

// NewSheetSourceWithClient creates a source over an existing client
func NewSheetSourceWithClient(client ObjectGetter, bucket, key, sheet string) *SheetSource {
	return &SheetSource{client: client, bucket: bucket, key: key, sheet: sheet}
}

// ParseURI splits s3://bucket/key
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: not an s3 uri: %s", domain.ErrConfig, uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: s3 uri must name a bucket and key: %s", domain.ErrConfig, uri)
	}
	return bucket, key, nil
}

// Describe returns the object URI
func (s *SheetSource) Describe() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// Read downloads the object and decodes it by its key extension
func (s *SheetSource) Read(ctx context.Context) (*tabular.Table, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: data file not found: %s", domain.ErrDataSource, s.Describe())
		}
		return nil, fmt.Errorf("%w: failed to download %s: %w", domain.ErrDataSource, s.Describe(), err)
	}
	defer out.Body.Close()

	// excelize needs random access, so buffer the whole object
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", domain.ErrDataSource, s.Describe(), err)
	}

	return tabular.Decode(s.key, bytes.NewReader(data), s.sheet)
}
