package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type ecsAPI interface {
	DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, opts ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	DescribeTaskDefinition(ctx context.Context, in *ecs.DescribeTaskDefinitionInput, opts ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error)
	DescribeClusters(ctx context.Context, in *ecs.DescribeClustersInput, opts ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error)
}

func (p *Provider) ecsResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_ecs_service":                    p.resolveECSService,
		"aws_ecs_task_definition":            p.resolveTaskDefinition,
		"aws_ecs_cluster_capacity_providers": p.resolveClusterCapacityProviders,
	}
}

// clusterName accepts either a bare name or a cluster ARN in the plan.
func clusterName(change *ir.ResourceChange, key string) string {
	cluster := change.AfterString(key)
	if cluster == "" {
		return ""
	}
	return nameFromARN(cluster)
}

// resolveECSService imports as "cluster/service". Deleted services linger
// as INACTIVE in describe output and do not count as existing.
func (p *Provider) resolveECSService(ctx context.Context, change *ir.ResourceChange) (string, error) {
	cluster := clusterName(change, "cluster")
	name := change.AfterString("name")
	if cluster == "" || name == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  &cluster,
		Services: []string{name},
	})
	if err != nil {
		return "", notFoundOr(err, "describing service", "ClusterNotFoundException", "ServiceNotFoundException")
	}

	for _, svc := range out.Services {
		if aws.ToString(svc.ServiceName) == name && aws.ToString(svc.Status) != "INACTIVE" {
			return cluster + "/" + name, nil
		}
	}
	return "", provider.ErrNotFound
}

// resolveTaskDefinition imports the ARN of the family's latest active
// revision.
func (p *Provider) resolveTaskDefinition(ctx context.Context, change *ir.ResourceChange) (string, error) {
	family := change.AfterString("family")
	if family == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.ecs.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: &family,
	})
	if err != nil {
		return "", notFoundOr(err, "describing task definition", "ClientException", lambdaAbsenceCode)
	}
	if out.TaskDefinition == nil || out.TaskDefinition.Status == ecstypes.TaskDefinitionStatusInactive {
		return "", provider.ErrNotFound
	}
	return aws.ToString(out.TaskDefinition.TaskDefinitionArn), nil
}

func (p *Provider) resolveClusterCapacityProviders(ctx context.Context, change *ir.ResourceChange) (string, error) {
	cluster := clusterName(change, "cluster_name")
	if cluster == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.ecs.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: []string{cluster}})
	if err != nil {
		return "", notFoundOr(err, "describing cluster", "ClusterNotFoundException")
	}
	for _, c := range out.Clusters {
		if aws.ToString(c.ClusterName) == cluster && aws.ToString(c.Status) == "ACTIVE" {
			return cluster, nil
		}
	}
	return "", provider.ErrNotFound
}
