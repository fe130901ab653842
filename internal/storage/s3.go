package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joshsymonds/rcmatrix/internal/report"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// S3API is the subset of the S3 client used for publishing.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options locates the bucket exports are published to.
type S3Options struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3Publisher uploads export files to S3.
type S3Publisher struct {
	client S3API
	logger logger.Logger
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher using the default AWS credential chain.
func NewS3Publisher(ctx context.Context, opts S3Options, log logger.Logger) (*S3Publisher, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return NewS3PublisherWithClient(client, opts.Bucket, opts.Prefix, log), nil
}

// NewS3PublisherWithClient creates a publisher around an existing client.
func NewS3PublisherWithClient(client S3API, bucket, prefix string, log logger.Logger) *S3Publisher {
	return &S3Publisher{
		client: client,
		logger: log,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Publish uploads the files under <prefix>/<analysisID>/<basename> and returns
// their s3:// URIs.
func (p *S3Publisher) Publish(ctx context.Context, analysisID string, files []string) ([]string, error) {
	uris := make([]string, 0, len(files))
	for _, file := range files {
		uri, err := p.publishFile(ctx, analysisID, file)
		if err != nil {
			return uris, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func (p *S3Publisher) publishFile(ctx context.Context, analysisID, file string) (string, error) {
	f, err := os.Open(file) // #nosec G304 - files come from WriteExports
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	key := path.Join(p.prefix, analysisID, filepath.Base(file))
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeFor(file)),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", filepath.Base(file), p.bucket, key, err)
	}

	uri := "s3://" + p.bucket + "/" + key
	p.logger.Info("Published export", "uri", uri)
	return uri, nil
}

// contentTypeFor maps an export file to its format's content type.
func contentTypeFor(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	for _, name := range report.ListFormats() {
		f, err := report.GetFormat(name, logger.GetGlobalLogger())
		if err != nil {
			continue
		}
		if f.Extension() == ext {
			return f.ContentType()
		}
	}
	return "application/octet-stream"
}
