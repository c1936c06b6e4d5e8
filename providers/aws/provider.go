package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/picklr-io/tfadopt/internal/provider"
)

// AuthConfig carries the provider-block credentials extracted from the
// resolved plan configuration. All fields are optional; the SDK default
// chain fills the gaps.
type AuthConfig struct {
	Profile   string
	RoleARN   string
	AccessKey string
	SecretKey string
	Region    string
}

// AuthFromConfig reads the aws provider arguments out of a resolved
// provider block.
func AuthFromConfig(cfg provider.Config) AuthConfig {
	auth := AuthConfig{
		Profile:   cfg.String("profile"),
		AccessKey: cfg.String("access_key"),
		SecretKey: cfg.String("secret_key"),
		Region:    cfg.String("region"),
	}
	if block := cfg.Block("assume_role"); block != nil {
		auth.RoleARN, _ = block["role_arn"].(string)
	}
	return auth
}

// Provider resolves AWS resource types to real external IDs. All lookups
// are read-only.
type Provider struct {
	*provider.ResolverSet

	log *slog.Logger

	ec2         ec2API
	s3          s3API
	iam         iamAPI
	sts         stsAPI
	lambda      lambdaAPI
	ecs         ecsAPI
	rds         rdsAPI
	elbv2       elbv2API
	sqs         sqsAPI
	sns         snsAPI
	acm         acmAPI
	route53     route53API
	ecr         ecrAPI
	elasticache elasticacheAPI
	logs        logsAPI
	events      eventsAPI
	cloudfront  cloudfrontAPI
	codebuild   codebuildAPI
}

type stsAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, opts ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// New builds a provider with one SDK session for all service clients.
func New(ctx context.Context, auth AuthConfig, log *slog.Logger) (*Provider, error) {
	cfg, err := loadConfig(ctx, auth)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		log:         log,
		ec2:         ec2.NewFromConfig(cfg),
		s3:          s3.NewFromConfig(cfg),
		iam:         iam.NewFromConfig(cfg),
		sts:         sts.NewFromConfig(cfg),
		lambda:      lambda.NewFromConfig(cfg),
		ecs:         ecs.NewFromConfig(cfg),
		rds:         rds.NewFromConfig(cfg),
		elbv2:       elasticloadbalancingv2.NewFromConfig(cfg),
		sqs:         sqs.NewFromConfig(cfg),
		sns:         sns.NewFromConfig(cfg),
		acm:         acm.NewFromConfig(cfg),
		route53:     route53.NewFromConfig(cfg),
		ecr:         ecr.NewFromConfig(cfg),
		elasticache: elasticache.NewFromConfig(cfg),
		logs:        cloudwatchlogs.NewFromConfig(cfg),
		events:      eventbridge.NewFromConfig(cfg),
		cloudfront:  cloudfront.NewFromConfig(cfg),
		codebuild:   codebuild.NewFromConfig(cfg),
	}
	if err := p.register(); err != nil {
		return nil, err
	}
	return p, nil
}

func loadConfig(ctx context.Context, auth AuthConfig) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if auth.Region != "" {
		opts = append(opts, config.WithRegion(auth.Region))
	}
	if auth.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(auth.Profile))
	}
	if auth.AccessKey != "" && auth.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(auth.AccessKey, auth.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}

	if auth.RoleARN != "" {
		stsClient := sts.NewFromConfig(cfg)
		cfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsClient, auth.RoleARN))
	}
	return cfg, nil
}

func (p *Provider) register() error {
	p.ResolverSet = provider.NewResolverSet("aws")

	groups := []map[string]provider.ResolveFunc{
		p.ec2Resolvers(),
		p.vpcResolvers(),
		p.s3Resolvers(),
		p.iamResolvers(),
		p.lambdaResolvers(),
		p.ecsResolvers(),
		p.rdsResolvers(),
		p.elbResolvers(),
		p.messagingResolvers(),
		p.cloudwatchResolvers(),
		p.cloudfrontResolvers(),
		p.codebuildResolvers(),
	}
	for _, g := range groups {
		for resourceType, fn := range g {
			if err := p.Handle(resourceType, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// accountID resolves the caller account once per lookup that needs it.
func (p *Provider) accountID(ctx context.Context) (string, error) {
	out, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolving caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// nameFromARN returns the final path segment of an ARN, or the input
// unchanged when it is already a bare name.
func nameFromARN(s string) string {
	if !strings.HasPrefix(s, "arn:") {
		return s
	}
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// isNotFound reports whether the API error carries one of the service's
// absence codes.
func isNotFound(err error, codes ...string) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	for _, code := range codes {
		if ae.ErrorCode() == code {
			return true
		}
	}
	return false
}

// notFoundOr maps an absence code to ErrNotFound and wraps anything else.
func notFoundOr(err error, what string, codes ...string) error {
	if isNotFound(err, codes...) {
		return provider.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}
