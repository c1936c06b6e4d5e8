package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

// dockerAPI is the daemon surface the resolvers need. *client.Client
// satisfies it.
type dockerAPI interface {
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	VolumeInspect(ctx context.Context, volumeID string) (volume.Volume, error)
}

// Provider resolves local docker resources against the daemon. All
// lookups are read-only.
type Provider struct {
	*provider.ResolverSet

	client dockerAPI
	log    *slog.Logger
}

func New(log *slog.Logger) (*Provider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return NewWithClient(cli, log)
}

// NewWithClient wires a prebuilt daemon client.
func NewWithClient(cli dockerAPI, log *slog.Logger) (*Provider, error) {
	p := &Provider{client: cli, log: log}

	p.ResolverSet = provider.NewResolverSet("docker")
	for resourceType, fn := range map[string]provider.ResolveFunc{
		"docker_image":     p.resolveImage,
		"docker_container": p.resolveContainer,
		"docker_network":   p.resolveNetwork,
		"docker_volume":    p.resolveVolume,
	} {
		if err := p.Handle(resourceType, fn); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) resolveImage(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	inspect, _, err := p.client.ImageInspectWithRaw(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", provider.ErrNotFound
		}
		return "", fmt.Errorf("inspecting image: %w", err)
	}
	return inspect.ID, nil
}

// resolveContainer matches on exact container name, including stopped
// containers.
func (p *Provider) resolveContainer(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	containers, err := p.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return "", fmt.Errorf("listing containers: %w", err)
	}

	// The name filter matches substrings, so compare exactly. The daemon
	// reports names with a leading slash.
	for _, c := range containers {
		for _, n := range c.Names {
			if strings.TrimPrefix(n, "/") == name {
				return c.ID, nil
			}
		}
	}
	return "", provider.ErrNotFound
}

func (p *Provider) resolveNetwork(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	networks, err := p.client.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return "", fmt.Errorf("listing networks: %w", err)
	}
	for _, n := range networks {
		if n.Name == name {
			return n.ID, nil
		}
	}
	return "", provider.ErrNotFound
}

func (p *Provider) resolveVolume(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	vol, err := p.client.VolumeInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", provider.ErrNotFound
		}
		return "", fmt.Errorf("inspecting volume: %w", err)
	}
	return vol.Name, nil
}
