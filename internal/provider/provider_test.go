package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/tfadopt/internal/ir"
)

func TestAliasForType(t *testing.T) {
	assert.Equal(t, "aws", AliasForType("aws_s3_bucket"))
	assert.Equal(t, "kubernetes", AliasForType("kubernetes_deployment"))
	assert.Equal(t, "docker", AliasForType("docker_image"))
	assert.Equal(t, "random", AliasForType("random"))
}

func TestResolverSet(t *testing.T) {
	set := NewResolverSet("aws")
	require.NoError(t, set.Handle("aws_s3_bucket", func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		return change.AfterString("bucket"), nil
	}))

	err := set.Handle("aws_s3_bucket", func(ctx context.Context, change *ir.ResourceChange) (string, error) {
		return "", nil
	})
	assert.Error(t, err)

	assert.True(t, set.Handles("aws_s3_bucket"))
	assert.False(t, set.Handles("aws_instance"))
	assert.Contains(t, set.ResourceTypes(), "aws_s3_bucket")

	change := &ir.ResourceChange{
		Type: "aws_s3_bucket",
		Change: &ir.Change{
			Actions: []string{"create"},
			After:   map[string]any{"bucket": "assets"},
		},
	}
	id, err := set.ResolveID(context.Background(), "aws_s3_bucket", change)
	require.NoError(t, err)
	assert.Equal(t, "assets", id)

	_, err = set.ResolveID(context.Background(), "aws_instance", change)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	set := NewResolverSet("aws")
	require.NoError(t, reg.Register("aws", set))
	require.NoError(t, reg.Register("aws.west", set))

	assert.Error(t, reg.Register("aws", set))

	got, ok := reg.Get("aws.west")
	require.True(t, ok)
	assert.Equal(t, set, got)

	_, ok = reg.Get("google")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"aws", "aws.west"}, reg.Aliases())
}

func TestPager(t *testing.T) {
	pages := map[string][]string{
		"":  {"a", "b"},
		"2": {"c"},
	}
	pager := NewPager(func(ctx context.Context, token string) ([]string, string, bool, error) {
		items := pages[token]
		if token == "" {
			return items, "2", true, nil
		}
		return items, "", false, nil
	})

	first, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, first)
	assert.True(t, pager.More())

	second, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, second)
	assert.False(t, pager.More())

	drained, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drained)
}

func TestPagerError(t *testing.T) {
	boom := errors.New("throttled")
	pager := NewPager(func(ctx context.Context, token string) ([]string, string, bool, error) {
		return nil, "", true, boom
	})

	_, err := pager.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, pager.More())
}

func TestFindFirst(t *testing.T) {
	calls := 0
	pager := NewPager(func(ctx context.Context, token string) ([]string, string, bool, error) {
		calls++
		switch calls {
		case 1:
			return []string{"alpha", "beta"}, "2", true, nil
		default:
			return []string{"gamma"}, "", false, nil
		}
	})

	got, err := FindFirst(context.Background(), pager, func(s string) bool { return s == "beta" })
	require.NoError(t, err)
	assert.Equal(t, "beta", got)
	assert.Equal(t, 1, calls)
}

func TestFindFirstExhausted(t *testing.T) {
	pager := NewPager(func(ctx context.Context, token string) ([]string, string, bool, error) {
		return []string{"alpha"}, "", false, nil
	})

	_, err := FindFirst(context.Background(), pager, func(s string) bool { return false })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseConfigs(t *testing.T) {
	resolved := map[string]any{
		"aws": map[string]any{
			"name": "aws",
			"expressions": map[string]any{
				"region":  "eu-west-1",
				"profile": "ops",
			},
		},
		"aws.west": map[string]any{
			"name":  "aws",
			"alias": "west",
			"expressions": map[string]any{
				"region": "us-west-2",
			},
		},
		"junk": "not a block",
	}

	configs := ParseConfigs(resolved)
	require.Len(t, configs, 2)

	byAlias := map[string]Config{}
	for _, c := range configs {
		byAlias[c.Alias] = c
	}
	assert.Equal(t, "aws", byAlias["aws"].Name)
	assert.Equal(t, "eu-west-1", byAlias["aws"].String("region"))
	assert.Equal(t, "us-west-2", byAlias["aws.west"].String("region"))
	assert.Empty(t, byAlias["aws"].String("missing"))
}

func TestConfigBlock(t *testing.T) {
	c := Config{Expressions: map[string]any{
		"assume_role": []any{map[string]any{"role_arn": "arn:aws:iam::123:role/ops"}},
		"endpoints":   map[string]any{"s3": "http://localhost:4566"},
	}}

	assert.Equal(t, "arn:aws:iam::123:role/ops", c.Block("assume_role")["role_arn"])
	assert.Equal(t, "http://localhost:4566", c.Block("endpoints")["s3"])
	assert.Nil(t, c.Block("absent"))
}
