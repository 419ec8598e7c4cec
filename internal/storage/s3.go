package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/quantica-technologies/kafka-backup-harness/internal/config"
	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/metrics"
)

// S3Client implements API against AWS S3 or an S3-compatible emulator
type S3Client struct {
	client *s3.Client
	region string
}

// NewS3Client creates an S3-backed storage client
func NewS3Client(ctx context.Context, cfg config.S3Config) (*S3Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretAccessKey,
					"",
				),
			),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = !cfg.VirtualHostAddressing
	})

	return &S3Client{client: client, region: cfg.Region}, nil
}

func (c *S3Client) BucketAccess(ctx context.Context, name string) (domain.AccessState, error) {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	metrics.ObserveStorage("head_bucket", nil)
	if err == nil {
		return domain.AccessGranted, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return domain.AccessAbsent, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return domain.AccessAbsent, nil
		case http.StatusForbidden, http.StatusMovedPermanently:
			// exists but owned by another principal, or lives in
			// another region we cannot address
			return domain.AccessDenied, nil
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied" {
		return domain.AccessDenied, nil
	}

	return domain.AccessAbsent, fmt.Errorf("failed to check bucket %s: %w", name, err)
}

func (c *S3Client) CreateBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
	}
	// us-east-1 rejects an explicit location constraint
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	_, err := c.client.CreateBucket(ctx, input)
	metrics.ObserveStorage("create_bucket", err)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

func (c *S3Client) DeleteBucketRecursive(ctx context.Context, name string) error {
	if err := c.purgeObjects(ctx, name); err != nil {
		return err
	}
	if err := c.abortMultipartUploads(ctx, name); err != nil {
		return err
	}

	_, err := c.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	})
	metrics.ObserveStorage("delete_bucket", err)
	if err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	return nil
}

func (c *S3Client) purgeObjects(ctx context.Context, name string) error {
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects in %s: %w", name, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		identifiers := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(name),
			Delete: &types.Delete{
				Objects: identifiers,
				Quiet:   aws.Bool(true),
			},
		})
		metrics.ObserveStorage("delete_objects", err)
		if err != nil {
			return fmt.Errorf("failed to delete objects in %s: %w", name, err)
		}
	}
	return nil
}

// abortMultipartUploads purges incomplete multipart remnants, which
// occupy storage and block bucket deletion even though they never show
// up in an object listing
func (c *S3Client) abortMultipartUploads(ctx context.Context, name string) error {
	input := &s3.ListMultipartUploadsInput{
		Bucket: aws.String(name),
	}

	for {
		page, err := c.client.ListMultipartUploads(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to list multipart uploads in %s: %w", name, err)
		}

		for _, upload := range page.Uploads {
			_, err := c.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(name),
				Key:      upload.Key,
				UploadId: upload.UploadId,
			})
			metrics.ObserveStorage("abort_multipart_upload", err)
			if err != nil {
				return fmt.Errorf("failed to abort multipart upload %s in %s: %w",
					aws.ToString(upload.UploadId), name, err)
			}
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			return nil
		}
		input.KeyMarker = page.NextKeyMarker
		input.UploadIdMarker = page.NextUploadIdMarker
	}
}

func (c *S3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []domain.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.ObserveStorage("list_objects", err)
			return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			info := domain.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: aws.ToString(obj.ETag),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}

	metrics.ObserveStorage("list_objects", nil)
	return objects, nil
}

func (c *S3Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	metrics.ObserveStorage("get_object", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	return result.Body, nil
}

func (c *S3Client) PutObject(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	metrics.ObserveStorage("put_object", err)
	if err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", bucket, key, err)
	}
	return nil
}
