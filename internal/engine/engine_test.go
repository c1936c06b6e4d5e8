package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

func testChange(address, resourceType, key string) *ir.ResourceChange {
	return &ir.ResourceChange{
		Address: address,
		Type:    resourceType,
		Change: &ir.Change{
			Actions: []string{"create"},
			After:   map[string]any{"name": key},
		},
	}
}

func testRegistry(t *testing.T, known map[string]string, lookupErr error) *provider.Registry {
	t.Helper()
	set := provider.NewResolverSet("aws")
	require.NoError(t, set.Handle("aws_s3_bucket", func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		if lookupErr != nil {
			return "", lookupErr
		}
		id, ok := known[change.AfterString("name")]
		if !ok {
			return "", provider.ErrNotFound
		}
		return id, nil
	}))

	reg := provider.NewRegistry()
	require.NoError(t, reg.Register("aws", set))
	return reg
}

func TestResolveOutcomes(t *testing.T) {
	reg := testRegistry(t, map[string]string{"assets": "assets-prod"}, nil)
	eng := NewResolutionEngine(reg, nil, Options{}, discardLogger())

	changes := []*ir.ResourceChange{
		testChange("aws_s3_bucket.assets", "aws_s3_bucket", "assets"),
		testChange("aws_s3_bucket.missing", "aws_s3_bucket", "missing"),
		testChange("aws_instance.web", "aws_instance", "web"),
	}

	directives, summary, err := eng.Resolve(context.Background(), changes)
	require.NoError(t, err)

	assert.Equal(t, Summary{Resolved: 1, NotFound: 1, Skipped: 1}, summary)
	require.Len(t, directives, 1)
	assert.Equal(t, ir.ImportDirective{Address: "aws_s3_bucket.assets", ID: "assets-prod"}, directives[0])
}

func TestResolveLookupErrorContinues(t *testing.T) {
	reg := testRegistry(t, nil, errors.New("access denied"))
	eng := NewResolutionEngine(reg, nil, Options{}, discardLogger())

	directives, summary, err := eng.Resolve(context.Background(), []*ir.ResourceChange{
		testChange("aws_s3_bucket.a", "aws_s3_bucket", "a"),
		testChange("aws_s3_bucket.b", "aws_s3_bucket", "b"),
	})
	require.NoError(t, err)
	assert.Empty(t, directives)
	assert.Equal(t, Summary{Errored: 2}, summary)
}

func TestResolvePreservesInputOrder(t *testing.T) {
	known := map[string]string{}
	var changes []*ir.ResourceChange
	addresses := []string{"e", "a", "c", "b", "d"}
	for _, n := range addresses {
		known[n] = "id-" + n
		changes = append(changes, testChange("aws_s3_bucket."+n, "aws_s3_bucket", n))
	}

	reg := testRegistry(t, known, nil)
	eng := NewResolutionEngine(reg, nil, Options{Parallelism: 3}, discardLogger())

	directives, summary, err := eng.Resolve(context.Background(), changes)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Resolved)

	var got []string
	for _, d := range directives {
		got = append(got, d.Address)
	}
	assert.Equal(t, []string{
		"aws_s3_bucket.e", "aws_s3_bucket.a", "aws_s3_bucket.c",
		"aws_s3_bucket.b", "aws_s3_bucket.d",
	}, got)
}

func TestResolveBoundsParallelism(t *testing.T) {
	var inFlight, peak atomic.Int32

	set := provider.NewResolverSet("aws")
	require.NoError(t, set.Handle("aws_s3_bucket", func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "id", nil
	}))
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register("aws", set))

	eng := NewResolutionEngine(reg, nil, Options{Parallelism: 2}, discardLogger())
	var changes []*ir.ResourceChange
	for i := 0; i < 10; i++ {
		changes = append(changes, testChange("aws_s3_bucket.n", "aws_s3_bucket", "n"))
	}

	_, summary, err := eng.Resolve(context.Background(), changes)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Resolved)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestResolveCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	set := provider.NewResolverSet("aws")
	require.NoError(t, set.Handle("aws_s3_bucket", func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}))
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register("aws", set))

	eng := NewResolutionEngine(reg, nil, Options{}, discardLogger())
	_, _, err := eng.Resolve(ctx, []*ir.ResourceChange{
		testChange("aws_s3_bucket.a", "aws_s3_bucket", "a"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAliasFromProviderKeys(t *testing.T) {
	set := provider.NewResolverSet("aws")
	var seen atomic.Int32
	require.NoError(t, set.Handle("aws_s3_bucket", func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		seen.Add(1)
		return "id", nil
	}))
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register("aws.west", set))

	keys := map[string]string{
		"module.storage.aws_s3_bucket.assets": "aws.west",
	}
	eng := NewResolutionEngine(reg, keys, Options{}, discardLogger())

	// The indexed instance maps through the unexpanded block address.
	_, summary, err := eng.Resolve(context.Background(), []*ir.ResourceChange{
		testChange(`module.storage.aws_s3_bucket.assets["primary"]`, "aws_s3_bucket", "assets"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, int32(1), seen.Load())
}

func TestStripIndex(t *testing.T) {
	assert.Equal(t, "aws_s3_bucket.a", stripIndex("aws_s3_bucket.a[0]"))
	assert.Equal(t, "aws_s3_bucket.a", stripIndex(`aws_s3_bucket.a["key"]`))
	assert.Equal(t, "aws_s3_bucket.a", stripIndex("aws_s3_bucket.a"))
}
