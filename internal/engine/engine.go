package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

// DefaultParallelism bounds concurrent resolver calls.
const DefaultParallelism = 10

// Options tune the resolution run.
type Options struct {
	Parallelism   int
	LookupTimeout time.Duration
	Retry         *RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	if o.Retry == nil {
		o.Retry = DefaultRetryPolicy()
	}
	return o
}

// Summary counts per-resource outcomes of one resolution run.
type Summary struct {
	Resolved int
	NotFound int
	Errored  int
	Skipped  int
}

// ResolutionEngine maps filtered resource changes to real external IDs
// through the registered resolvers. Lookups are independent and run on a
// bounded worker pool; per-resource failures never abort the run.
type ResolutionEngine struct {
	registry     *provider.Registry
	providerKeys map[string]string
	opts         Options
	log          *slog.Logger
}

// NewResolutionEngine builds an engine. providerKeys maps a resource
// address (without index suffix) to the provider configuration key it was
// declared under; addresses missing from the map fall back to the alias
// derived from the resource type.
func NewResolutionEngine(registry *provider.Registry, providerKeys map[string]string, opts Options, log *slog.Logger) *ResolutionEngine {
	return &ResolutionEngine{
		registry:     registry,
		providerKeys: providerKeys,
		opts:         opts.withDefaults(),
		log:          log,
	}
}

// stripIndex removes a trailing [i] or ["key"] instance suffix from an
// address so it matches the configuration tree, which is keyed by the
// unexpanded resource block.
func stripIndex(address string) string {
	if !strings.HasSuffix(address, "]") {
		return address
	}
	if i := strings.LastIndex(address, "["); i > 0 {
		return address[:i]
	}
	return address
}

func (e *ResolutionEngine) aliasFor(change *ir.ResourceChange) string {
	if key, ok := e.providerKeys[stripIndex(change.Address)]; ok {
		return key
	}
	return provider.AliasForType(change.Type)
}

// Resolve looks up the external ID of every change and returns the
// directives in input order. It returns an error only when the context is
// cancelled; individual failures are counted in the summary.
func (e *ResolutionEngine) Resolve(ctx context.Context, changes []*ir.ResourceChange) ([]ir.ImportDirective, Summary, error) {
	results := make([]*ir.ImportDirective, len(changes))

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, e.opts.Parallelism)

	for i, change := range changes {
		alias := e.aliasFor(change)
		resolver, ok := e.registry.Get(alias)
		if !ok || !handles(resolver, change.Type) {
			e.log.Warn("no resolver, skipping",
				"address", change.Address, "type", change.Type, "provider", alias)
			summary.Skipped++
			continue
		}

		wg.Add(1)
		go func(i int, change *ir.ResourceChange, resolver provider.Resolver) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			id, err := e.resolveOne(ctx, resolver, change)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[i] = &ir.ImportDirective{Address: change.Address, ID: id}
				summary.Resolved++
				e.log.Info("resolved", "address", change.Address, "id", id)
			case errors.Is(err, provider.ErrNotFound):
				summary.NotFound++
				e.log.Info("not found", "address", change.Address, "type", change.Type)
			case errors.Is(err, context.Canceled):
				// pipeline cancellation, reported after the pool drains
			default:
				summary.Errored++
				e.log.Error("lookup failed",
					"address", change.Address, "type", change.Type, "error", err)
			}
		}(i, change, resolver)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, summary, err
	}

	directives := make([]ir.ImportDirective, 0, summary.Resolved)
	for _, r := range results {
		if r != nil {
			directives = append(directives, *r)
		}
	}
	return directives, summary, nil
}

func (e *ResolutionEngine) resolveOne(ctx context.Context, resolver provider.Resolver, change *ir.ResourceChange) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
	defer cancel()

	var id string
	err := RetryWithBackoff(callCtx, e.opts.Retry, func() error {
		var err error
		id, err = resolver.ResolveID(callCtx, change.Type, change)
		return err
	}, IsTransientError)
	return id, err
}

func handles(r provider.Resolver, resourceType string) bool {
	for _, t := range r.ResourceTypes() {
		if t == resourceType {
			return true
		}
	}
	return false
}
