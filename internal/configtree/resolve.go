// Package configtree collapses the expression trees embedded in a
// terraform plan's configuration subtree (variable placeholders,
// reference wrappers, constant_value wrappers) back into plain literal
// values, and extracts the provider_config_key mapping that ties
// resource addresses to provider aliases.
package configtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/picklr-io/tfadopt/internal/ir"
)

// ErrMalformedConfig reports a configuration subtree whose shape does not
// match what terraform emits (a non-object where an object is required).
var ErrMalformedConfig = errors.New("malformed configuration tree")

// SubstituteVariables returns a copy of tree in which every string leaf of
// the form "var.<name>" is replaced by vars[name] when that variable is
// known. Unknown placeholders are left untouched. The input is never
// mutated.
func SubstituteVariables(tree any, vars map[string]any) any {
	switch node := tree.(type) {
	case string:
		if name, ok := strings.CutPrefix(node, "var."); ok {
			if v, present := vars[name]; present {
				return v
			}
		}
		return node
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = SubstituteVariables(v, vars)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = SubstituteVariables(v, vars)
		}
		return out
	default:
		return tree
	}
}

// UnwrapReferences collapses reference wrapper nodes: a map holding key
// "references" whose value is a single-element sequence whose element is a
// map holding "value" becomes that inner value. The rule applies at every
// position, map values and sequence elements alike. Idempotent.
func UnwrapReferences(tree any) any {
	if inner, ok := referenceValue(tree); ok {
		return UnwrapReferences(inner)
	}
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = UnwrapReferences(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = UnwrapReferences(v)
		}
		return out
	default:
		return tree
	}
}

func referenceValue(node any) (any, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	refs, ok := m["references"].([]any)
	if !ok || len(refs) != 1 {
		return nil, false
	}
	elem, ok := refs[0].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := elem["value"]
	return v, ok
}

// FoldConstants collapses constant_value wrapper nodes to the wrapped
// literal. The wrapped value is returned verbatim: it is user data and may
// itself contain a key named constant_value.
func FoldConstants(tree any) any {
	switch node := tree.(type) {
	case map[string]any:
		if v, ok := node["constant_value"]; ok {
			return v
		}
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = FoldConstants(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = FoldConstants(v)
		}
		return out
	default:
		return tree
	}
}

// ResolveProviderConfig simplifies the plan's provider_config subtree to a
// plain literal tree: variables first (wrappers may hold placeholders at
// leaf position), then reference unwrapping, then constant folding.
func ResolveProviderConfig(plan *ir.Plan) (map[string]any, error) {
	if plan == nil || plan.Configuration == nil || plan.Configuration.ProviderConfig == nil {
		return nil, fmt.Errorf("%w: plan has no provider_config", ErrMalformedConfig)
	}

	var tree any = plan.Configuration.ProviderConfig
	tree = SubstituteVariables(tree, plan.VariableValues())
	tree = UnwrapReferences(tree)
	tree = FoldConstants(tree)

	resolved, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: provider_config did not resolve to an object", ErrMalformedConfig)
	}
	return resolved, nil
}

// ExtractProviderConfigKeys walks the full configuration tree and records
// every provider_config_key it finds, keyed by the dotted path of the map
// that holds it. Path building mirrors terraform addressing rather than
// raw JSON structure: "module_calls" contributes a "module" segment,
// "resources" contributes nothing, and sequence elements carrying an
// "address" field use that address in place of a positional index.
func ExtractProviderConfigKeys(tree any) map[string]string {
	keys := make(map[string]string)
	scanConfigKeys(tree, "", keys)
	return keys
}

func scanConfigKeys(node any, path string, out map[string]string) {
	switch n := node.(type) {
	case map[string]any:
		for key, value := range n {
			if key == "provider_config_key" {
				if alias, ok := value.(string); ok {
					out[path] = alias
				}
			}
			scanConfigKeys(value, childPath(path, key), out)
		}
	case []any:
		for i, item := range n {
			if m, ok := item.(map[string]any); ok {
				if addr, ok := m["address"].(string); ok {
					scanConfigKeys(item, joinPath(path, addr), out)
					continue
				}
			}
			scanConfigKeys(item, fmt.Sprintf("%s[%d]", path, i), out)
		}
	}
}

func childPath(path, key string) string {
	switch key {
	case "module_calls":
		return joinPath(path, "module")
	case "resources":
		return path
	default:
		return joinPath(path, key)
	}
}

func joinPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
