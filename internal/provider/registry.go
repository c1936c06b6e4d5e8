package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the Resolver for each provider alias. It is built once
// at startup from the plan's resolved provider configuration and is
// read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[string]Resolver),
	}
}

// Register adds a resolver under an alias. Duplicate aliases are a
// construction error.
func (r *Registry) Register(alias string, res Resolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resolvers[alias]; exists {
		return fmt.Errorf("provider alias already registered: %s", alias)
	}
	r.resolvers[alias] = res
	return nil
}

// Get returns the resolver registered under alias.
func (r *Registry) Get(alias string) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resolvers[alias]
	return res, ok
}

// Aliases returns the registered provider aliases.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := make([]string, 0, len(r.resolvers))
	for a := range r.resolvers {
		aliases = append(aliases, a)
	}
	return aliases
}

// Config is one provider block from the resolved provider_config subtree:
// the wrapper nodes are already collapsed, so Expressions holds plain
// literals (credentials, region, endpoints).
type Config struct {
	// Name is the provider name, e.g. "aws".
	Name string
	// Alias is the full configuration key, e.g. "aws" or "aws.west".
	Alias string
	// Expressions holds the resolved provider arguments.
	Expressions map[string]any
}

// ParseConfigs flattens a resolved provider_config tree into per-provider
// configs. Entries that are not objects are skipped: they cannot carry
// provider arguments.
func ParseConfigs(resolved map[string]any) []Config {
	configs := make([]Config, 0, len(resolved))
	for key, v := range resolved {
		block, ok := v.(map[string]any)
		if !ok {
			continue
		}
		name, _ := block["name"].(string)
		if name == "" {
			name = strings.SplitN(key, ".", 2)[0]
		}
		exprs, _ := block["expressions"].(map[string]any)
		configs = append(configs, Config{Name: name, Alias: key, Expressions: exprs})
	}
	return configs
}

// String returns the expression value for key when it is a plain string.
func (c Config) String(key string) string {
	s, _ := c.Expressions[key].(string)
	return s
}

// Block returns the first object of a block-typed expression (terraform
// encodes nested blocks as single-element sequences).
func (c Config) Block(key string) map[string]any {
	switch v := c.Expressions[key].(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}
