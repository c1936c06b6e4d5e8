package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

func (p *Provider) vpcResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_subnet":                  p.resolveSubnet,
		"aws_route_table":             p.resolveRouteTable,
		"aws_route_table_association": p.resolveRouteTableAssociation,
	}
}

// nameTag pulls the Name tag from the planned attributes.
func nameTag(change *ir.ResourceChange) string {
	tags, _ := change.After()["tags"].(map[string]any)
	name, _ := tags["Name"].(string)
	return name
}

func (p *Provider) resolveSubnet(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := nameTag(change)
	if name == "" {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]ec2types.Subnet, string, bool, error) {
		in := &ec2.DescribeSubnetsInput{
			Filters: []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{name}}},
		}
		if token != "" {
			in.NextToken = aws.String(token)
		}
		out, err := p.ec2.DescribeSubnets(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("describing subnets: %w", err)
		}
		next := aws.ToString(out.NextToken)
		return out.Subnets, next, next != "", nil
	})

	subnet, err := provider.FindFirst(ctx, pager, func(ec2types.Subnet) bool { return true })
	if err != nil {
		return "", err
	}
	return aws.ToString(subnet.SubnetId), nil
}

func (p *Provider) routeTableByName(ctx context.Context, name string) (*ec2types.RouteTable, error) {
	pager := provider.NewPager(func(ctx context.Context, token string) ([]ec2types.RouteTable, string, bool, error) {
		in := &ec2.DescribeRouteTablesInput{
			Filters: []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{name}}},
		}
		if token != "" {
			in.NextToken = aws.String(token)
		}
		out, err := p.ec2.DescribeRouteTables(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("describing route tables: %w", err)
		}
		next := aws.ToString(out.NextToken)
		return out.RouteTables, next, next != "", nil
	})

	rt, err := provider.FindFirst(ctx, pager, func(ec2types.RouteTable) bool { return true })
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (p *Provider) resolveRouteTable(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := nameTag(change)
	if name == "" {
		return "", provider.ErrNotFound
	}
	rt, err := p.routeTableByName(ctx, name)
	if err != nil {
		return "", err
	}
	return aws.ToString(rt.RouteTableId), nil
}

// resolveRouteTableAssociation imports as "subnet-id/rtb-id", accepted
// only when the association actually exists on the table.
func (p *Provider) resolveRouteTableAssociation(ctx context.Context, change *ir.ResourceChange) (string, error) {
	subnetID := change.AfterString("subnet_id")
	rtbID := change.AfterString("route_table_id")
	if subnetID == "" || rtbID == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		RouteTableIds: []string{rtbID},
	})
	if err != nil {
		return "", notFoundOr(err, "describing route table", "InvalidRouteTableID.NotFound")
	}

	for _, rt := range out.RouteTables {
		for _, assoc := range rt.Associations {
			if aws.ToString(assoc.SubnetId) == subnetID {
				return subnetID + "/" + rtbID, nil
			}
		}
	}
	return "", provider.ErrNotFound
}
