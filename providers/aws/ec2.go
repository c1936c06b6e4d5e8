package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type ec2API interface {
	DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, opts ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, opts ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeRouteTables(ctx context.Context, in *ec2.DescribeRouteTablesInput, opts ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error)
}

func (p *Provider) ec2Resolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_security_group":      p.resolveSecurityGroup,
		"aws_security_group_rule": p.resolveSecurityGroupRule,
	}
}

func (p *Provider) securityGroupPager(name string) *provider.Pager[ec2types.SecurityGroup] {
	return provider.NewPager(func(ctx context.Context, token string) ([]ec2types.SecurityGroup, string, bool, error) {
		in := &ec2.DescribeSecurityGroupsInput{
			Filters: []ec2types.Filter{{Name: aws.String("group-name"), Values: []string{name}}},
		}
		if token != "" {
			in.NextToken = aws.String(token)
		}
		out, err := p.ec2.DescribeSecurityGroups(ctx, in)
		if err != nil {
			if isNotFound(err, "InvalidGroup.NotFound") {
				return nil, "", false, nil
			}
			return nil, "", false, fmt.Errorf("describing security groups: %w", err)
		}
		next := aws.ToString(out.NextToken)
		return out.SecurityGroups, next, next != "", nil
	})
}

func (p *Provider) resolveSecurityGroup(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	group, err := provider.FindFirst(ctx, p.securityGroupPager(name), func(g ec2types.SecurityGroup) bool {
		return aws.ToString(g.GroupName) == name
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(group.GroupId), nil
}

// resolveSecurityGroupRule builds the composite rule ID after checking
// that the parent group exists. Individual rules are not verified: the
// legacy rule resource has no describe call keyed the way terraform
// imports it.
func (p *Provider) resolveSecurityGroupRule(ctx context.Context, change *ir.ResourceChange) (string, error) {
	groupID := change.AfterString("security_group_id")
	ruleType := change.AfterString("type")
	protocol := change.AfterString("protocol")
	if groupID == "" || ruleType == "" {
		return "", provider.ErrNotFound
	}

	_, err := p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		return "", notFoundOr(err, "describing security group", "InvalidGroup.NotFound", "InvalidGroupId.Malformed")
	}

	parts := []string{
		groupID,
		ruleType,
		protocol,
		afterNumber(change, "from_port"),
		afterNumber(change, "to_port"),
	}
	parts = append(parts, ruleSources(change)...)
	return strings.Join(parts, "_"), nil
}

func ruleSources(change *ir.ResourceChange) []string {
	var sources []string
	for _, key := range []string{"cidr_blocks", "ipv6_cidr_blocks", "prefix_list_ids"} {
		blocks, _ := change.After()[key].([]any)
		for _, b := range blocks {
			if s, ok := b.(string); ok {
				sources = append(sources, s)
			}
		}
	}
	if sg := change.AfterString("source_security_group_id"); sg != "" {
		sources = append(sources, sg)
	}
	if self, _ := change.After()["self"].(bool); self {
		sources = append(sources, "self")
	}
	return sources
}

func afterNumber(change *ir.ResourceChange, key string) string {
	switch v := change.After()[key].(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return "0"
	}
}
