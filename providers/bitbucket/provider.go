package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

const defaultBaseURL = "https://api.bitbucket.org/2.0"

// Config is the bitbucket provider block: app-password basic auth.
type Config struct {
	Username string
	Password string
	BaseURL  string
}

// ConfigFrom reads the bitbucket arguments out of a resolved provider
// block.
func ConfigFrom(cfg provider.Config) Config {
	return Config{
		Username: cfg.String("username"),
		Password: cfg.String("password"),
	}
}

// Provider resolves bitbucket pipeline resources through the v2 REST API.
type Provider struct {
	*provider.ResolverSet

	client  *retryablehttp.Client
	baseURL string
	auth    Config
	log     *slog.Logger
}

// New builds the provider and verifies the credentials with a /user call
// so auth failures surface at startup instead of per resource.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Provider, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("bitbucket provider requires username and password")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	p := &Provider{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		auth:    cfg,
		log:     log,
	}
	if err := p.get(ctx, "/user", nil); err != nil {
		return nil, fmt.Errorf("bitbucket auth check: %w", err)
	}

	p.ResolverSet = provider.NewResolverSet("bitbucket")
	for resourceType, fn := range map[string]provider.ResolveFunc{
		"bitbucket_deployment":          p.resolveDeployment,
		"bitbucket_deployment_variable": p.resolveDeploymentVariable,
		"bitbucket_repository_variable": p.resolveRepositoryVariable,
	} {
		if err := p.Handle(resourceType, fn); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// get fetches one API path and decodes the response into out when it is
// non-nil. A 404 maps to ErrNotFound.
func (p *Provider) get(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.auth.Username, p.auth.Password)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return provider.ErrNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}

type pagedResponse[T any] struct {
	Values []T    `json:"values"`
	Next   string `json:"next"`
}

// pager walks a paged listing with the page query parameter, carried
// between fetches as the pager token. An empty values page terminates
// the walk even when the response still advertises a next page.
func pager[T any](p *Provider, path string) *provider.Pager[T] {
	return provider.NewPager(func(ctx context.Context, token string) ([]T, string, bool, error) {
		page := 1
		if token != "" {
			n, err := strconv.Atoi(token)
			if err != nil {
				return nil, "", false, fmt.Errorf("paging %s: bad page token %q", path, token)
			}
			page = n
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		var resp pagedResponse[T]
		if err := p.get(ctx, fmt.Sprintf("%s%spage=%d", path, sep, page), &resp); err != nil {
			return nil, "", false, err
		}
		if len(resp.Values) == 0 {
			return nil, "", false, nil
		}
		return resp.Values, strconv.Itoa(page + 1), resp.Next != "", nil
	})
}

type environment struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type pipelineVariable struct {
	UUID string `json:"uuid"`
	Key  string `json:"key"`
}

// resolveDeployment matches a deployment environment by name and imports
// as "repository:environment-uuid".
func (p *Provider) resolveDeployment(ctx context.Context, change *ir.ResourceChange) (string, error) {
	repo := change.AfterString("repository")
	name := change.AfterString("name")
	if repo == "" || name == "" {
		return "", provider.ErrNotFound
	}

	env, err := p.environmentByName(ctx, repo, name)
	if err != nil {
		return "", err
	}
	return repo + ":" + env.UUID, nil
}

func (p *Provider) environmentByName(ctx context.Context, repo, name string) (environment, error) {
	path := fmt.Sprintf("/repositories/%s/environments/", repo)
	return provider.FindFirst(ctx, pager[environment](p, path), func(e environment) bool {
		return e.Name == name
	})
}

// resolveDeploymentVariable expects the deployment reference
// "repository:environment-uuid" in the planned attributes and imports as
// "repository:environment-uuid/variable-uuid".
func (p *Provider) resolveDeploymentVariable(ctx context.Context, change *ir.ResourceChange) (string, error) {
	deployment := change.AfterString("deployment")
	key := change.AfterString("key")
	if deployment == "" || key == "" {
		return "", provider.ErrNotFound
	}
	repo, envUUID, ok := strings.Cut(deployment, ":")
	if !ok {
		return "", fmt.Errorf("malformed deployment reference %q", deployment)
	}

	path := fmt.Sprintf("/repositories/%s/deployments_config/environments/%s/variables",
		repo, url.PathEscape(envUUID))
	v, err := provider.FindFirst(ctx, pager[pipelineVariable](p, path), func(v pipelineVariable) bool {
		return v.Key == key
	})
	if err != nil {
		return "", err
	}
	return deployment + "/" + v.UUID, nil
}

// resolveRepositoryVariable imports as "repository/key/variable-uuid".
func (p *Provider) resolveRepositoryVariable(ctx context.Context, change *ir.ResourceChange) (string, error) {
	repo := change.AfterString("repository")
	key := change.AfterString("key")
	if repo == "" || key == "" {
		return "", provider.ErrNotFound
	}

	path := fmt.Sprintf("/repositories/%s/pipelines_config/variables/", repo)
	v, err := provider.FindFirst(ctx, pager[pipelineVariable](p, path), func(v pipelineVariable) bool {
		return v.Key == key
	})
	if err != nil {
		return "", err
	}
	return repo + "/" + key + "/" + v.UUID, nil
}
