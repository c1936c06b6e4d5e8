package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type rdsAPI interface {
	DescribeDBInstances(ctx context.Context, in *rds.DescribeDBInstancesInput, opts ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	DescribeDBSubnetGroups(ctx context.Context, in *rds.DescribeDBSubnetGroupsInput, opts ...func(*rds.Options)) (*rds.DescribeDBSubnetGroupsOutput, error)
}

func (p *Provider) rdsResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_db_instance":     p.resolveDBInstance,
		"aws_db_subnet_group": p.resolveDBSubnetGroup,
	}
}

func (p *Provider) resolveDBInstance(ctx context.Context, change *ir.ResourceChange) (string, error) {
	identifier := change.AfterString("identifier")
	if identifier == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: &identifier,
	})
	if err != nil {
		return "", notFoundOr(err, "describing db instance", "DBInstanceNotFound", "DBInstanceNotFoundFault")
	}
	return identifier, nil
}

func (p *Provider) resolveDBSubnetGroup(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.rds.DescribeDBSubnetGroups(ctx, &rds.DescribeDBSubnetGroupsInput{
		DBSubnetGroupName: &name,
	})
	if err != nil {
		return "", notFoundOr(err, "describing db subnet group", "DBSubnetGroupNotFound", "DBSubnetGroupNotFoundFault")
	}
	return name, nil
}
