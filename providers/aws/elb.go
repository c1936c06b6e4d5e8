package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type elbv2API interface {
	DescribeTargetGroups(ctx context.Context, in *elasticloadbalancingv2.DescribeTargetGroupsInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeTargetGroupsOutput, error)
	DescribeListeners(ctx context.Context, in *elasticloadbalancingv2.DescribeListenersInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeListenersOutput, error)
}

func (p *Provider) elbResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_lb_target_group": p.resolveTargetGroup,
		"aws_lb_listener":     p.resolveListener,
	}
}

func (p *Provider) resolveTargetGroup(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]elbv2types.TargetGroup, string, bool, error) {
		in := &elasticloadbalancingv2.DescribeTargetGroupsInput{}
		if token != "" {
			in.Marker = aws.String(token)
		}
		out, err := p.elbv2.DescribeTargetGroups(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("describing target groups: %w", err)
		}
		next := aws.ToString(out.NextMarker)
		return out.TargetGroups, next, next != "", nil
	})

	tg, err := provider.FindFirst(ctx, pager, func(tg elbv2types.TargetGroup) bool {
		return aws.ToString(tg.TargetGroupName) == name
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(tg.TargetGroupArn), nil
}

// resolveListener matches the load balancer's listeners on port and
// protocol and imports the listener ARN.
func (p *Provider) resolveListener(ctx context.Context, change *ir.ResourceChange) (string, error) {
	lbARN := change.AfterString("load_balancer_arn")
	protocol := change.AfterString("protocol")
	port := afterNumber(change, "port")
	if lbARN == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.elbv2.DescribeListeners(ctx, &elasticloadbalancingv2.DescribeListenersInput{
		LoadBalancerArn: &lbARN,
	})
	if err != nil {
		return "", notFoundOr(err, "describing listeners", "LoadBalancerNotFound", "ListenerNotFound")
	}

	for _, l := range out.Listeners {
		if fmt.Sprint(aws.ToInt32(l.Port)) == port &&
			strings.EqualFold(string(l.Protocol), protocol) {
			return aws.ToString(l.ListenerArn), nil
		}
	}
	return "", provider.ErrNotFound
}
