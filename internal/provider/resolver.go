// Package provider defines the resolution capability the import pipeline
// dispatches to: given a planned resource's attributes, a Resolver either
// recovers the real external identifier, reports that the resource does
// not exist, or fails with a lookup error.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/picklr-io/tfadopt/internal/ir"
)

// ErrNotFound reports that a resource legitimately does not exist in the
// external system. It is an expected per-resource outcome, not a failure;
// any other error from a Resolver is a lookup failure (transport, auth,
// throttling).
var ErrNotFound = errors.New("resource not found")

// Resolver maps planned resource attributes to real external identifiers
// for the resource types of one provider. Implementations are read-only
// against the external system and must honor ctx cancellation, since
// every call performs network I/O.
type Resolver interface {
	// Name is the provider alias resources dispatch under, e.g. "aws".
	Name() string

	// ResourceTypes lists the resource types this resolver handles.
	ResourceTypes() []string

	// ResolveID returns the external identifier for the planned resource,
	// ErrNotFound when it does not exist, or any other error on lookup
	// failure.
	ResolveID(ctx context.Context, resourceType string, change *ir.ResourceChange) (string, error)
}

// ResolveFunc resolves a single resource type.
type ResolveFunc func(ctx context.Context, change *ir.ResourceChange) (string, error)

// ResolverSet implements Resolver over an explicit resource-type table,
// replacing attribute-name dispatch with a registry validated for
// duplicate keys at construction time.
type ResolverSet struct {
	name  string
	funcs map[string]ResolveFunc
}

// NewResolverSet returns an empty resolver set for the named provider.
func NewResolverSet(name string) *ResolverSet {
	return &ResolverSet{
		name:  name,
		funcs: make(map[string]ResolveFunc),
	}
}

// Handle registers fn for resourceType. Registering a type twice is a
// construction bug and returns an error.
func (s *ResolverSet) Handle(resourceType string, fn ResolveFunc) error {
	if _, exists := s.funcs[resourceType]; exists {
		return fmt.Errorf("duplicate resolver for resource type %s", resourceType)
	}
	s.funcs[resourceType] = fn
	return nil
}

func (s *ResolverSet) Name() string { return s.name }

func (s *ResolverSet) ResourceTypes() []string {
	types := make([]string, 0, len(s.funcs))
	for t := range s.funcs {
		types = append(types, t)
	}
	return types
}

// Handles reports whether resourceType has a registered resolver.
func (s *ResolverSet) Handles(resourceType string) bool {
	_, ok := s.funcs[resourceType]
	return ok
}

func (s *ResolverSet) ResolveID(ctx context.Context, resourceType string, change *ir.ResourceChange) (string, error) {
	fn, ok := s.funcs[resourceType]
	if !ok {
		return "", fmt.Errorf("%s: no resolver for resource type %s: %w", s.name, resourceType, ErrNotFound)
	}
	return fn(ctx, change)
}

// AliasForType derives the provider alias from a resource type's first
// underscore-delimited segment: aws_security_group -> aws.
func AliasForType(resourceType string) string {
	if i := strings.Index(resourceType, "_"); i > 0 {
		return resourceType[:i]
	}
	return resourceType
}
