package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type logsAPI interface {
	DescribeLogGroups(ctx context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DescribeMetricFilters(ctx context.Context, in *cloudwatchlogs.DescribeMetricFiltersInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeMetricFiltersOutput, error)
}

type eventsAPI interface {
	DescribeRule(ctx context.Context, in *eventbridge.DescribeRuleInput, opts ...func(*eventbridge.Options)) (*eventbridge.DescribeRuleOutput, error)
	ListTargetsByRule(ctx context.Context, in *eventbridge.ListTargetsByRuleInput, opts ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error)
}

func (p *Provider) cloudwatchResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_cloudwatch_log_group":         p.resolveLogGroup,
		"aws_cloudwatch_log_metric_filter": p.resolveLogMetricFilter,
		"aws_cloudwatch_event_rule":        p.resolveEventRule,
		"aws_cloudwatch_event_target":      p.resolveEventTarget,
	}
}

// resolveLogGroup describes by prefix and requires an exact name match,
// since the prefix API also returns longer names.
func (p *Provider) resolveLogGroup(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]logstypes.LogGroup, string, bool, error) {
		in := &cloudwatchlogs.DescribeLogGroupsInput{LogGroupNamePrefix: &name}
		if token != "" {
			in.NextToken = aws.String(token)
		}
		out, err := p.logs.DescribeLogGroups(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("describing log groups: %w", err)
		}
		next := aws.ToString(out.NextToken)
		return out.LogGroups, next, next != "", nil
	})

	group, err := provider.FindFirst(ctx, pager, func(g logstypes.LogGroup) bool {
		return aws.ToString(g.LogGroupName) == name
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(group.LogGroupName), nil
}

// resolveLogMetricFilter imports as "log-group:filter-name".
func (p *Provider) resolveLogMetricFilter(ctx context.Context, change *ir.ResourceChange) (string, error) {
	group := change.AfterString("log_group_name")
	name := change.AfterString("name")
	if group == "" || name == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.logs.DescribeMetricFilters(ctx, &cloudwatchlogs.DescribeMetricFiltersInput{
		LogGroupName:     &group,
		FilterNamePrefix: &name,
	})
	if err != nil {
		return "", notFoundOr(err, "describing metric filters", lambdaAbsenceCode)
	}

	for _, f := range out.MetricFilters {
		if aws.ToString(f.FilterName) == name {
			return group + ":" + name, nil
		}
	}
	return "", provider.ErrNotFound
}

func (p *Provider) resolveEventRule(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.events.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: &name}); err != nil {
		return "", notFoundOr(err, "describing rule", lambdaAbsenceCode)
	}
	return name, nil
}

// resolveEventTarget imports as "rule/target-id".
func (p *Provider) resolveEventTarget(ctx context.Context, change *ir.ResourceChange) (string, error) {
	rule := change.AfterString("rule")
	targetID := change.AfterString("target_id")
	if rule == "" || targetID == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.events.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{Rule: &rule})
	if err != nil {
		return "", notFoundOr(err, "listing rule targets", lambdaAbsenceCode)
	}

	for _, t := range out.Targets {
		if aws.ToString(t.Id) == targetID {
			return rule + "/" + targetID, nil
		}
	}
	return "", provider.ErrNotFound
}
