package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	acmtypes "github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type sqsAPI interface {
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, opts ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

type snsAPI interface {
	ListTopics(ctx context.Context, in *sns.ListTopicsInput, opts ...func(*sns.Options)) (*sns.ListTopicsOutput, error)
}

type acmAPI interface {
	ListCertificates(ctx context.Context, in *acm.ListCertificatesInput, opts ...func(*acm.Options)) (*acm.ListCertificatesOutput, error)
}

type route53API interface {
	ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

type ecrAPI interface {
	DescribeRepositories(ctx context.Context, in *ecr.DescribeRepositoriesInput, opts ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
}

type elasticacheAPI interface {
	DescribeCacheClusters(ctx context.Context, in *elasticache.DescribeCacheClustersInput, opts ...func(*elasticache.Options)) (*elasticache.DescribeCacheClustersOutput, error)
	DescribeCacheSubnetGroups(ctx context.Context, in *elasticache.DescribeCacheSubnetGroupsInput, opts ...func(*elasticache.Options)) (*elasticache.DescribeCacheSubnetGroupsOutput, error)
}

func (p *Provider) messagingResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_sqs_queue":                p.resolveSQSQueue,
		"aws_sns_topic":                p.resolveSNSTopic,
		"aws_acm_certificate":          p.resolveACMCertificate,
		"aws_route53_record":           p.resolveRoute53Record,
		"aws_ecr_repository":           p.resolveECRRepository,
		"aws_elasticache_cluster":      p.resolveCacheCluster,
		"aws_elasticache_subnet_group": p.resolveCacheSubnetGroup,
	}
}

// resolveSQSQueue imports the queue URL.
func (p *Provider) resolveSQSQueue(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	out, err := p.sqs.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: &name})
	if err != nil {
		return "", notFoundOr(err, "getting queue url",
			"QueueDoesNotExist", "AWS.SimpleQueueService.NonExistentQueue")
	}
	return aws.ToString(out.QueueUrl), nil
}

// resolveSNSTopic scans the account's topics for an ARN ending in the
// planned name. Topic ARNs always end in ":<name>".
func (p *Provider) resolveSNSTopic(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]snstypes.Topic, string, bool, error) {
		in := &sns.ListTopicsInput{}
		if token != "" {
			in.NextToken = aws.String(token)
		}
		out, err := p.sns.ListTopics(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("listing topics: %w", err)
		}
		next := aws.ToString(out.NextToken)
		return out.Topics, next, next != "", nil
	})

	topic, err := provider.FindFirst(ctx, pager, func(t snstypes.Topic) bool {
		return strings.HasSuffix(aws.ToString(t.TopicArn), ":"+name)
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(topic.TopicArn), nil
}

// resolveACMCertificate searches issued certificates for the planned
// domain and imports the certificate ARN.
func (p *Provider) resolveACMCertificate(ctx context.Context, change *ir.ResourceChange) (string, error) {
	domain := change.AfterString("domain_name")
	if domain == "" {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]acmtypes.CertificateSummary, string, bool, error) {
		in := &acm.ListCertificatesInput{
			CertificateStatuses: []acmtypes.CertificateStatus{acmtypes.CertificateStatusIssued},
		}
		if token != "" {
			in.NextToken = aws.String(token)
		}
		out, err := p.acm.ListCertificates(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("listing certificates: %w", err)
		}
		next := aws.ToString(out.NextToken)
		return out.CertificateSummaryList, next, next != "", nil
	})

	cert, err := provider.FindFirst(ctx, pager, func(c acmtypes.CertificateSummary) bool {
		return aws.ToString(c.DomainName) == domain
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(cert.CertificateArn), nil
}

// resolveRoute53Record verifies the record set exists in its zone and
// imports as "zone-id_name_type".
func (p *Provider) resolveRoute53Record(ctx context.Context, change *ir.ResourceChange) (string, error) {
	zoneID := change.AfterString("zone_id")
	name := change.AfterString("name")
	recordType := change.AfterString("type")
	if zoneID == "" || name == "" || recordType == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.route53.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    &zoneID,
		StartRecordName: &name,
	})
	if err != nil {
		return "", notFoundOr(err, "listing record sets", "NoSuchHostedZone")
	}

	for _, rs := range out.ResourceRecordSets {
		if strings.TrimSuffix(aws.ToString(rs.Name), ".") == strings.TrimSuffix(name, ".") &&
			string(rs.Type) == recordType {
			return fmt.Sprintf("%s_%s_%s", zoneID, name, recordType), nil
		}
	}
	return "", provider.ErrNotFound
}

func (p *Provider) resolveECRRepository(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})
	if err != nil {
		return "", notFoundOr(err, "describing repository", "RepositoryNotFoundException")
	}
	return name, nil
}

func (p *Provider) resolveCacheCluster(ctx context.Context, change *ir.ResourceChange) (string, error) {
	id := change.AfterString("cluster_id")
	if id == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.elasticache.DescribeCacheClusters(ctx, &elasticache.DescribeCacheClustersInput{
		CacheClusterId: &id,
	})
	if err != nil {
		return "", notFoundOr(err, "describing cache cluster", "CacheClusterNotFound", "CacheClusterNotFoundFault")
	}
	return id, nil
}

func (p *Provider) resolveCacheSubnetGroup(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.elasticache.DescribeCacheSubnetGroups(ctx, &elasticache.DescribeCacheSubnetGroupsInput{
		CacheSubnetGroupName: &name,
	})
	if err != nil {
		return "", notFoundOr(err, "describing cache subnet group", "CacheSubnetGroupNotFound", "CacheSubnetGroupNotFoundFault")
	}
	return name, nil
}
