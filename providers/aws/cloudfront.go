package aws

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type cloudfrontAPI interface {
	ListDistributions(ctx context.Context, in *cloudfront.ListDistributionsInput, opts ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
}

func (p *Provider) cloudfrontResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_cloudfront_distribution": p.resolveDistribution,
	}
}

// resolveDistribution scans the account's distributions for one carrying
// every planned alias and imports the distribution ID. Distributions have
// no name attribute, so the alias set is the only usable key.
func (p *Provider) resolveDistribution(ctx context.Context, change *ir.ResourceChange) (string, error) {
	raw, _ := change.After()["aliases"].([]any)
	var aliases []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			aliases = append(aliases, s)
		}
	}
	if len(aliases) == 0 {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]cftypes.DistributionSummary, string, bool, error) {
		in := &cloudfront.ListDistributionsInput{}
		if token != "" {
			in.Marker = aws.String(token)
		}
		out, err := p.cloudfront.ListDistributions(ctx, in)
		if err != nil {
			return nil, "", false, fmt.Errorf("listing distributions: %w", err)
		}
		if out.DistributionList == nil {
			return nil, "", false, nil
		}
		return out.DistributionList.Items,
			aws.ToString(out.DistributionList.NextMarker),
			aws.ToBool(out.DistributionList.IsTruncated), nil
	})

	dist, err := provider.FindFirst(ctx, pager, func(d cftypes.DistributionSummary) bool {
		if d.Aliases == nil {
			return false
		}
		for _, alias := range aliases {
			if !slices.Contains(d.Aliases.Items, alias) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(dist.Id), nil
}
