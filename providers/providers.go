// Package providers wires the per-provider resolver sets into a registry
// from the plan's resolved provider configuration.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/picklr-io/tfadopt/internal/provider"
	"github.com/picklr-io/tfadopt/providers/aws"
	"github.com/picklr-io/tfadopt/providers/bitbucket"
	"github.com/picklr-io/tfadopt/providers/docker"
	"github.com/picklr-io/tfadopt/providers/kubernetes"
	"github.com/picklr-io/tfadopt/providers/null"
)

// Build instantiates a resolver for every supported provider block and
// registers it under the block's configuration key. Unsupported provider
// names are logged and skipped so a plan mixing in exotic providers still
// resolves what it can; a supported provider that fails to initialize is
// an error.
func Build(ctx context.Context, configs []provider.Config, log *slog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	for _, cfg := range configs {
		resolver, err := build(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", cfg.Alias, err)
		}
		if resolver == nil {
			log.Warn("unsupported provider, its resources will be skipped", "provider", cfg.Alias)
			continue
		}
		if err := registry.Register(cfg.Alias, resolver); err != nil {
			return nil, err
		}
		log.Debug("provider registered", "provider", cfg.Alias, "types", len(resolver.ResourceTypes()))
	}
	return registry, nil
}

func build(ctx context.Context, cfg provider.Config, log *slog.Logger) (provider.Resolver, error) {
	switch cfg.Name {
	case "aws":
		return aws.New(ctx, aws.AuthFromConfig(cfg), log)
	case "bitbucket":
		return bitbucket.New(ctx, bitbucket.ConfigFrom(cfg), log)
	case "kubernetes":
		return kubernetes.New(kubernetes.ConfigFrom(cfg), log)
	case "docker":
		return docker.New(log)
	case "null":
		return null.New(log)
	default:
		return nil, nil
	}
}
