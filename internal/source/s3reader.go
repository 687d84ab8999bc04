package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStoreConfig configures an S3-compatible object store. It covers
// both named variants in spec.md's ossType enum ("tos", "aliyun") plus any
// other S3-compatible endpoint, since both providers speak the S3 API and
// differ only in endpoint/region/credential values, not in protocol.
type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Reader lists and downloads every object under a bucket/prefix from an
// S3-compatible store.
type S3Reader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Reader builds an S3Reader against cfg, listing objects under
// prefix.
func NewS3Reader(ctx context.Context, cfg ObjectStoreConfig, prefix string) (*S3Reader, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint == "" {
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
				SigningRegion:     cfg.Region,
			}, nil
		},
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Reader{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// Read lists every object under the reader's prefix, downloads each one
// whose key has an extractor-recognized extension, and returns them.
func (r *S3Reader) Read(ctx context.Context) ([]File, error) {
	var files []File

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s/%s: %w", r.bucket, r.prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || !IsSupportedFile(key) {
				continue
			}

			out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(r.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to download object %s: %w", key, err)
			}

			data, err := io.ReadAll(out.Body)
			out.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read object %s: %w", key, err)
			}

			files = append(files, File{Name: key, Data: data})
		}
	}

	return files, nil
}
