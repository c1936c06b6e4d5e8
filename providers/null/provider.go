// Package null handles the resource types that have no external
// counterpart. Reporting them as not found keeps them out of the import
// artifact while still accounting for them in the summary.
package null

import (
	"context"
	"log/slog"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type Provider struct {
	*provider.ResolverSet
}

func New(log *slog.Logger) (*Provider, error) {
	p := &Provider{ResolverSet: provider.NewResolverSet("null")}
	for _, resourceType := range []string{"null_resource", "terraform_data"} {
		if err := p.Handle(resourceType, absent); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func absent(ctx context.Context, change *ir.ResourceChange) (string, error) {
	return "", provider.ErrNotFound
}
