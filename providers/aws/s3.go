package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type s3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetBucketNotificationConfiguration(ctx context.Context, in *s3.GetBucketNotificationConfigurationInput, opts ...func(*s3.Options)) (*s3.GetBucketNotificationConfigurationOutput, error)
	GetBucketOwnershipControls(ctx context.Context, in *s3.GetBucketOwnershipControlsInput, opts ...func(*s3.Options)) (*s3.GetBucketOwnershipControlsOutput, error)
	GetBucketPolicy(ctx context.Context, in *s3.GetBucketPolicyInput, opts ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	GetPublicAccessBlock(ctx context.Context, in *s3.GetPublicAccessBlockInput, opts ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
	GetBucketEncryption(ctx context.Context, in *s3.GetBucketEncryptionInput, opts ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketLifecycleConfiguration(ctx context.Context, in *s3.GetBucketLifecycleConfigurationInput, opts ...func(*s3.Options)) (*s3.GetBucketLifecycleConfigurationOutput, error)
	GetBucketVersioning(ctx context.Context, in *s3.GetBucketVersioningInput, opts ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
}

func (p *Provider) s3Resolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_s3_bucket":     p.resolveBucket,
		"aws_s3_bucket_acl": p.resolveBucketACL,
		"aws_s3_bucket_notification": p.bucketFeature(func(ctx context.Context, bucket string) error {
			_, err := p.s3.GetBucketNotificationConfiguration(ctx, &s3.GetBucketNotificationConfigurationInput{Bucket: &bucket})
			return err
		}),
		"aws_s3_bucket_ownership_controls": p.bucketFeature(func(ctx context.Context, bucket string) error {
			_, err := p.s3.GetBucketOwnershipControls(ctx, &s3.GetBucketOwnershipControlsInput{Bucket: &bucket})
			return err
		}),
		"aws_s3_bucket_policy": p.bucketFeature(func(ctx context.Context, bucket string) error {
			_, err := p.s3.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: &bucket})
			return err
		}),
		"aws_s3_bucket_public_access_block": p.bucketFeature(func(ctx context.Context, bucket string) error {
			_, err := p.s3.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: &bucket})
			return err
		}),
		"aws_s3_bucket_server_side_encryption_configuration": p.bucketFeature(func(ctx context.Context, bucket string) error {
			_, err := p.s3.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: &bucket})
			return err
		}),
		"aws_s3_bucket_lifecycle_configuration": p.bucketFeature(func(ctx context.Context, bucket string) error {
			_, err := p.s3.GetBucketLifecycleConfiguration(ctx, &s3.GetBucketLifecycleConfigurationInput{Bucket: &bucket})
			return err
		}),
		"aws_s3_bucket_versioning": p.resolveBucketVersioning,
	}
}

// Absence codes across the per-bucket feature APIs.
var s3AbsenceCodes = []string{
	"NotFound",
	"NoSuchBucket",
	"NoSuchBucketPolicy",
	"NoSuchPublicAccessBlockConfiguration",
	"NoSuchLifecycleConfiguration",
	"OwnershipControlsNotFoundError",
	"ServerSideEncryptionConfigurationNotFoundError",
	"NoSuchConfiguration",
}

func (p *Provider) resolveBucket(ctx context.Context, change *ir.ResourceChange) (string, error) {
	bucket := change.AfterString("bucket")
	if bucket == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &bucket}); err != nil {
		return "", notFoundOr(err, "checking bucket", s3AbsenceCodes...)
	}
	return bucket, nil
}

// bucketFeature builds a resolver for the per-bucket configuration
// resources, which all import under the bucket name once their Get call
// succeeds.
func (p *Provider) bucketFeature(get func(ctx context.Context, bucket string) error) provider.ResolveFunc {
	return func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		bucket := change.AfterString("bucket")
		if bucket == "" {
			return "", provider.ErrNotFound
		}
		if err := get(ctx, bucket); err != nil {
			return "", notFoundOr(err, "checking bucket configuration", s3AbsenceCodes...)
		}
		return bucket, nil
	}
}

// resolveBucketVersioning treats a bucket that never had versioning
// configured (empty status) as absent.
func (p *Provider) resolveBucketVersioning(ctx context.Context, change *ir.ResourceChange) (string, error) {
	bucket := change.AfterString("bucket")
	if bucket == "" {
		return "", provider.ErrNotFound
	}
	out, err := p.s3.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: &bucket})
	if err != nil {
		return "", notFoundOr(err, "checking bucket versioning", s3AbsenceCodes...)
	}
	if out.Status == "" {
		return "", provider.ErrNotFound
	}
	return bucket, nil
}

// resolveBucketACL imports as "bucket[,expected_bucket_owner][,acl]".
func (p *Provider) resolveBucketACL(ctx context.Context, change *ir.ResourceChange) (string, error) {
	bucket := change.AfterString("bucket")
	if bucket == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return "", notFoundOr(err, "checking bucket", s3AbsenceCodes...)
	}

	id := bucket
	if owner := change.AfterString("expected_bucket_owner"); owner != "" {
		id += "," + owner
	}
	if acl := change.AfterString("acl"); acl != "" {
		id += "," + acl
	}
	return id, nil
}
