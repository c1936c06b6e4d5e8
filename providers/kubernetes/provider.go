package kubernetes

import (
	"context"
	"fmt"
	"log/slog"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

// Config is the kubernetes provider block. With no explicit kubeconfig
// the default loading rules apply, then in-cluster config.
type Config struct {
	ConfigPath    string
	ConfigContext string
}

// ConfigFrom reads the kubernetes arguments out of a resolved provider
// block.
func ConfigFrom(cfg provider.Config) Config {
	return Config{
		ConfigPath:    cfg.String("config_path"),
		ConfigContext: cfg.String("config_context"),
	}
}

// Provider resolves kubernetes resources to their import IDs:
// "namespace/name" for namespaced kinds, the bare name for
// cluster-scoped ones.
type Provider struct {
	*provider.ResolverSet

	client kubernetes.Interface
	log    *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Provider, error) {
	restCfg, err := restConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("building kubernetes client: %w", err)
	}
	return NewWithClient(client, log)
}

// NewWithClient wires a prebuilt clientset.
func NewWithClient(client kubernetes.Interface, log *slog.Logger) (*Provider, error) {
	p := &Provider{client: client, log: log}
	if err := p.register(); err != nil {
		return nil, err
	}
	return p, nil
}

func restConfig(cfg Config) (*rest.Config, error) {
	loading := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.ConfigPath != "" {
		loading.ExplicitPath = cfg.ConfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.ConfigContext}

	restCfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loading, overrides).ClientConfig()
	if err == nil {
		return restCfg, nil
	}
	if restCfg, inClusterErr := rest.InClusterConfig(); inClusterErr == nil {
		return restCfg, nil
	}
	return nil, fmt.Errorf("loading kubeconfig: %w", err)
}

// objectMeta extracts name and namespace from the planned metadata block.
// Terraform encodes the block as a single-element list.
func objectMeta(change *ir.ResourceChange) (name, namespace string) {
	var meta map[string]any
	switch v := change.After()["metadata"].(type) {
	case []any:
		if len(v) > 0 {
			meta, _ = v[0].(map[string]any)
		}
	case map[string]any:
		meta = v
	}
	name, _ = meta["name"].(string)
	namespace, _ = meta["namespace"].(string)
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return name, namespace
}

type namespacedGet func(ctx context.Context, namespace, name string) error

type clusterGet func(ctx context.Context, name string) error

func (p *Provider) namespaced(get namespacedGet) provider.ResolveFunc {
	return func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		name, namespace := objectMeta(change)
		if name == "" {
			return "", provider.ErrNotFound
		}
		if err := get(ctx, namespace, name); err != nil {
			if k8serrors.IsNotFound(err) {
				return "", provider.ErrNotFound
			}
			return "", fmt.Errorf("getting %s/%s: %w", namespace, name, err)
		}
		return namespace + "/" + name, nil
	}
}

func (p *Provider) clusterScoped(get clusterGet) provider.ResolveFunc {
	return func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		name, _ := objectMeta(change)
		if name == "" {
			return "", provider.ErrNotFound
		}
		if err := get(ctx, name); err != nil {
			if k8serrors.IsNotFound(err) {
				return "", provider.ErrNotFound
			}
			return "", fmt.Errorf("getting %s: %w", name, err)
		}
		return name, nil
	}
}

func (p *Provider) register() error {
	c := p.client
	opts := metav1.GetOptions{}

	resolvers := map[string]provider.ResolveFunc{
		"kubernetes_namespace": p.clusterScoped(func(ctx context.Context, name string) error {
			_, err := c.CoreV1().Namespaces().Get(ctx, name, opts)
			return err
		}),
		"kubernetes_pod": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.CoreV1().Pods(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_deployment": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.AppsV1().Deployments(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_service": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.CoreV1().Services(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_config_map": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.CoreV1().ConfigMaps(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_secret": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.CoreV1().Secrets(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_persistent_volume_claim": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.CoreV1().PersistentVolumeClaims(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_stateful_set": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.AppsV1().StatefulSets(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_daemon_set": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.AppsV1().DaemonSets(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_ingress": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.NetworkingV1().Ingresses(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_service_account": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.CoreV1().ServiceAccounts(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_role": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.RbacV1().Roles(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_role_binding": p.namespaced(func(ctx context.Context, ns, name string) error {
			_, err := c.RbacV1().RoleBindings(ns).Get(ctx, name, opts)
			return err
		}),
		"kubernetes_cluster_role": p.clusterScoped(func(ctx context.Context, name string) error {
			_, err := c.RbacV1().ClusterRoles().Get(ctx, name, opts)
			return err
		}),
		"kubernetes_cluster_role_binding": p.clusterScoped(func(ctx context.Context, name string) error {
			_, err := c.RbacV1().ClusterRoleBindings().Get(ctx, name, opts)
			return err
		}),
	}

	p.ResolverSet = provider.NewResolverSet("kubernetes")
	for resourceType, fn := range resolvers {
		if err := p.Handle(resourceType, fn); err != nil {
			return err
		}
	}
	return nil
}
