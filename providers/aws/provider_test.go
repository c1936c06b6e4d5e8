package aws

import (
	"context"
	"io"
	"log/slog"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

func testProvider(t *testing.T) *Provider {
	t.Helper()
	p := &Provider{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, p.register())
	return p
}

func createChange(resourceType string, after map[string]any) *ir.ResourceChange {
	return &ir.ResourceChange{
		Address: resourceType + ".this",
		Type:    resourceType,
		Change:  &ir.Change{Actions: []string{"create"}, After: after},
	}
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func TestAuthFromConfig(t *testing.T) {
	cfg := provider.Config{Expressions: map[string]any{
		"region":  "eu-west-1",
		"profile": "ops",
		"assume_role": []any{map[string]any{
			"role_arn": "arn:aws:iam::123456789012:role/importer",
		}},
	}}

	auth := AuthFromConfig(cfg)
	assert.Equal(t, "eu-west-1", auth.Region)
	assert.Equal(t, "ops", auth.Profile)
	assert.Equal(t, "arn:aws:iam::123456789012:role/importer", auth.RoleARN)
}

type fakeS3 struct {
	s3API
	headErr error
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestResolveBucket(t *testing.T) {
	p := testProvider(t)
	p.s3 = &fakeS3{}

	id, err := p.ResolveID(context.Background(), "aws_s3_bucket",
		createChange("aws_s3_bucket", map[string]any{"bucket": "assets"}))
	require.NoError(t, err)
	assert.Equal(t, "assets", id)
}

func TestResolveBucketAbsent(t *testing.T) {
	p := testProvider(t)
	p.s3 = &fakeS3{headErr: apiError("NotFound")}

	_, err := p.ResolveID(context.Background(), "aws_s3_bucket",
		createChange("aws_s3_bucket", map[string]any{"bucket": "assets"}))
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestResolveBucketForbiddenIsLookupError(t *testing.T) {
	p := testProvider(t)
	p.s3 = &fakeS3{headErr: apiError("Forbidden")}

	_, err := p.ResolveID(context.Background(), "aws_s3_bucket",
		createChange("aws_s3_bucket", map[string]any{"bucket": "assets"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, provider.ErrNotFound)
}

func TestResolveBucketACL(t *testing.T) {
	p := testProvider(t)
	p.s3 = &fakeS3{}

	id, err := p.ResolveID(context.Background(), "aws_s3_bucket_acl",
		createChange("aws_s3_bucket_acl", map[string]any{"bucket": "assets", "acl": "private"}))
	require.NoError(t, err)
	assert.Equal(t, "assets,private", id)
}

type fakeEC2 struct {
	ec2API
	pages     []*ec2.DescribeSecurityGroupsOutput
	describes int
}

func (f *fakeEC2) DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, opts ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if f.describes >= len(f.pages) {
		return &ec2.DescribeSecurityGroupsOutput{}, nil
	}
	out := f.pages[f.describes]
	f.describes++
	return out, nil
}

func TestResolveSecurityGroupPaginates(t *testing.T) {
	p := testProvider(t)
	p.ec2 = &fakeEC2{pages: []*ec2.DescribeSecurityGroupsOutput{
		{
			SecurityGroups: []ec2types.SecurityGroup{
				{GroupId: awssdk.String("sg-other"), GroupName: awssdk.String("webish")},
			},
			NextToken: awssdk.String("2"),
		},
		{
			SecurityGroups: []ec2types.SecurityGroup{
				{GroupId: awssdk.String("sg-123"), GroupName: awssdk.String("web")},
			},
		},
	}}

	id, err := p.ResolveID(context.Background(), "aws_security_group",
		createChange("aws_security_group", map[string]any{"name": "web"}))
	require.NoError(t, err)
	assert.Equal(t, "sg-123", id)
}

func TestResolveSecurityGroupRuleComposite(t *testing.T) {
	p := testProvider(t)
	p.ec2 = &fakeEC2{pages: []*ec2.DescribeSecurityGroupsOutput{{
		SecurityGroups: []ec2types.SecurityGroup{{GroupId: awssdk.String("sg-123")}},
	}}}

	id, err := p.ResolveID(context.Background(), "aws_security_group_rule",
		createChange("aws_security_group_rule", map[string]any{
			"security_group_id": "sg-123",
			"type":              "ingress",
			"protocol":          "tcp",
			"from_port":         float64(80),
			"to_port":           float64(80),
			"cidr_blocks":       []any{"10.0.0.0/8"},
		}))
	require.NoError(t, err)
	assert.Equal(t, "sg-123_ingress_tcp_80_80_10.0.0.0/8", id)
}

type fakeECS struct {
	ecsAPI
	services []ecstypes.Service
}

func (f *fakeECS) DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, opts ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	return &ecs.DescribeServicesOutput{Services: f.services}, nil
}

func TestResolveECSServiceExcludesInactive(t *testing.T) {
	p := testProvider(t)
	p.ecs = &fakeECS{services: []ecstypes.Service{
		{ServiceName: awssdk.String("api"), Status: awssdk.String("INACTIVE")},
	}}

	_, err := p.ResolveID(context.Background(), "aws_ecs_service",
		createChange("aws_ecs_service", map[string]any{"cluster": "prod", "name": "api"}))
	assert.ErrorIs(t, err, provider.ErrNotFound)

	p.ecs = &fakeECS{services: []ecstypes.Service{
		{ServiceName: awssdk.String("api"), Status: awssdk.String("ACTIVE")},
	}}
	id, err := p.ResolveID(context.Background(), "aws_ecs_service",
		createChange("aws_ecs_service", map[string]any{"cluster": "prod", "name": "api"}))
	require.NoError(t, err)
	assert.Equal(t, "prod/api", id)
}

type fakeSQS struct {
	url string
	err error
}

func (f *fakeSQS) GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, opts ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: &f.url}, nil
}

func TestResolveSQSQueue(t *testing.T) {
	p := testProvider(t)
	p.sqs = &fakeSQS{url: "https://sqs.eu-west-1.amazonaws.com/123456789012/jobs"}

	id, err := p.ResolveID(context.Background(), "aws_sqs_queue",
		createChange("aws_sqs_queue", map[string]any{"name": "jobs"}))
	require.NoError(t, err)
	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/123456789012/jobs", id)

	p.sqs = &fakeSQS{err: apiError("AWS.SimpleQueueService.NonExistentQueue")}
	_, err = p.ResolveID(context.Background(), "aws_sqs_queue",
		createChange("aws_sqs_queue", map[string]any{"name": "jobs"}))
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

type fakeCloudFront struct {
	pages []*cloudfront.ListDistributionsOutput
	lists int
}

func (f *fakeCloudFront) ListDistributions(ctx context.Context, in *cloudfront.ListDistributionsInput, opts ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error) {
	if f.lists >= len(f.pages) {
		return &cloudfront.ListDistributionsOutput{DistributionList: &cftypes.DistributionList{}}, nil
	}
	out := f.pages[f.lists]
	f.lists++
	return out, nil
}

func TestResolveDistributionMatchesAllAliases(t *testing.T) {
	p := testProvider(t)
	p.cloudfront = &fakeCloudFront{pages: []*cloudfront.ListDistributionsOutput{
		{DistributionList: &cftypes.DistributionList{
			Items: []cftypes.DistributionSummary{{
				Id:      awssdk.String("E1PARTIAL"),
				Aliases: &cftypes.Aliases{Items: []string{"cdn.example.com"}},
			}},
			NextMarker:  awssdk.String("E1PARTIAL"),
			IsTruncated: awssdk.Bool(true),
		}},
		{DistributionList: &cftypes.DistributionList{
			Items: []cftypes.DistributionSummary{{
				Id:      awssdk.String("E2FULL"),
				Aliases: &cftypes.Aliases{Items: []string{"cdn.example.com", "www.example.com"}},
			}},
		}},
	}}

	id, err := p.ResolveID(context.Background(), "aws_cloudfront_distribution",
		createChange("aws_cloudfront_distribution", map[string]any{
			"aliases": []any{"cdn.example.com", "www.example.com"},
		}))
	require.NoError(t, err)
	assert.Equal(t, "E2FULL", id)
}

func TestResolveDistributionWithoutAliases(t *testing.T) {
	p := testProvider(t)
	p.cloudfront = &fakeCloudFront{}

	_, err := p.ResolveID(context.Background(), "aws_cloudfront_distribution",
		createChange("aws_cloudfront_distribution", map[string]any{}))
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

type fakeCodeBuild struct {
	projects    []cbtypes.Project
	credentials []cbtypes.SourceCredentialsInfo
}

func (f *fakeCodeBuild) BatchGetProjects(ctx context.Context, in *codebuild.BatchGetProjectsInput, opts ...func(*codebuild.Options)) (*codebuild.BatchGetProjectsOutput, error) {
	return &codebuild.BatchGetProjectsOutput{Projects: f.projects}, nil
}

func (f *fakeCodeBuild) ListSourceCredentials(ctx context.Context, in *codebuild.ListSourceCredentialsInput, opts ...func(*codebuild.Options)) (*codebuild.ListSourceCredentialsOutput, error) {
	return &codebuild.ListSourceCredentialsOutput{SourceCredentialsInfos: f.credentials}, nil
}

func TestResolveCodebuildProject(t *testing.T) {
	p := testProvider(t)
	p.codebuild = &fakeCodeBuild{projects: []cbtypes.Project{{Name: awssdk.String("builder")}}}

	id, err := p.ResolveID(context.Background(), "aws_codebuild_project",
		createChange("aws_codebuild_project", map[string]any{"name": "builder"}))
	require.NoError(t, err)
	assert.Equal(t, "builder", id)

	p.codebuild = &fakeCodeBuild{}
	_, err = p.ResolveID(context.Background(), "aws_codebuild_project",
		createChange("aws_codebuild_project", map[string]any{"name": "builder"}))
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestResolveSourceCredential(t *testing.T) {
	p := testProvider(t)
	p.codebuild = &fakeCodeBuild{credentials: []cbtypes.SourceCredentialsInfo{
		{Arn: awssdk.String("arn:aws:codebuild:eu-west-1:123456789012:token/bitbucket"),
			AuthType:   cbtypes.AuthTypeBasicAuth,
			ServerType: cbtypes.ServerTypeBitbucket},
	}}

	id, err := p.ResolveID(context.Background(), "aws_codebuild_source_credential",
		createChange("aws_codebuild_source_credential", map[string]any{
			"auth_type":   "BASIC_AUTH",
			"server_type": "BITBUCKET",
		}))
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:codebuild:eu-west-1:123456789012:token/bitbucket", id)

	_, err = p.ResolveID(context.Background(), "aws_codebuild_source_credential",
		createChange("aws_codebuild_source_credential", map[string]any{
			"auth_type":   "PERSONAL_ACCESS_TOKEN",
			"server_type": "GITHUB",
		}))
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestUnknownResourceType(t *testing.T) {
	p := testProvider(t)
	_, err := p.ResolveID(context.Background(), "aws_made_up",
		createChange("aws_made_up", nil))
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestNameFromARN(t *testing.T) {
	assert.Equal(t, "prod", nameFromARN("arn:aws:ecs:eu-west-1:123456789012:cluster/prod"))
	assert.Equal(t, "prod", nameFromARN("prod"))
}
