package uploads

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/naeap/journal/internal/domain"
)

// S3Options locates the bucket attachments are written to. Endpoint is only
// set for S3-compatible services; AWS is used otherwise.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type putter interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 uploads attachments to an S3 bucket with the multipart upload manager.
type S3 struct {
	bucket   string
	uploader putter
}

// NewS3 builds the AWS config and the upload manager.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3: bucket must be set")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{AccessKeyID: opts.AccessKey, SecretAccessKey: opts.SecretKey},
		}))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               opts.Endpoint,
					SigningRegion:     opts.Region,
					HostnameImmutable: true,
				}, nil
			})))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// S3-compatible services rarely support virtual-hosted buckets.
		o.UsePathStyle = opts.Endpoint != ""
	})

	return &S3{bucket: opts.Bucket, uploader: manager.NewUploader(client)}, nil
}

// Upload writes f under folder and returns its s3:// location.
func (s *S3) Upload(ctx context.Context, folder string, f File) (domain.Attachment, error) {
	if f.Name == "" || f.Body == nil {
		return domain.Attachment{}, errors.New("upload: missing file")
	}

	key := Key(folder, f.Name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f.Body,
	}
	if f.ContentType != "" {
		in.ContentType = aws.String(f.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return domain.Attachment{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	return attachment(f, fmt.Sprintf("s3://%s/%s", s.bucket, key)), nil
}
