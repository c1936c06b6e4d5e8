package ir

// Plan is the document produced by `terraform show -json` for a saved plan.
// Only the portions the import pipeline consumes are modelled; everything
// else in the document is ignored during decoding.
type Plan struct {
	FormatVersion    string              `json:"format_version"`
	TerraformVersion string              `json:"terraform_version"`
	Variables        map[string]Variable `json:"variables"`
	ResourceChanges  []*ResourceChange   `json:"resource_changes"`
	Configuration    *Configuration      `json:"configuration"`
}

// Variable is a root-module input variable and its resolved value.
type Variable struct {
	Value any `json:"value"`
}

// ResourceChange is one planned change to a single addressable resource.
// Address is unique within a plan.
type ResourceChange struct {
	Address      string  `json:"address"`
	Mode         string  `json:"mode"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	ProviderName string  `json:"provider_name"`
	Change       *Change `json:"change"`
}

// Change holds the planned action set and the attribute maps around it.
// After carries the planned attribute values resolvers match against.
type Change struct {
	Actions []string       `json:"actions"`
	Before  map[string]any `json:"before"`
	After   map[string]any `json:"after"`
}

// Configuration is the plan's configuration subtree. ProviderConfig and
// RootModule stay untyped: they are expression trees full of
// references/constant_value wrapper nodes that configtree collapses.
type Configuration struct {
	ProviderConfig map[string]any `json:"provider_config"`
	RootModule     map[string]any `json:"root_module"`
}

// After returns the planned attribute map for a change, or nil.
func (rc *ResourceChange) After() map[string]any {
	if rc == nil || rc.Change == nil {
		return nil
	}
	return rc.Change.After
}

// AfterString returns the planned string value of an attribute, with ""
// standing in for absent, null, or non-string values.
func (rc *ResourceChange) AfterString(key string) string {
	s, _ := rc.After()[key].(string)
	return s
}

// ImportDirective instructs terraform to adopt an existing external
// resource under an address instead of creating it. ID is never empty.
type ImportDirective struct {
	Address string
	ID      string
}

// VariableValues flattens the plan's variables into name -> value form.
func (p *Plan) VariableValues() map[string]any {
	vars := make(map[string]any, len(p.Variables))
	for name, v := range p.Variables {
		vars[name] = v.Value
	}
	return vars
}
