package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/picklr-io/tfadopt/internal/ir"
)

// planRunner is the terraform surface the extractor needs.
type planRunner interface {
	Plan(ctx context.Context, targets []string) error
	Show(ctx context.Context) ([]byte, error)
}

// PlanExtractor produces a parsed plan by shelling out to terraform:
// plan to a file, then show it as JSON.
type PlanExtractor struct {
	runner planRunner
	log    *slog.Logger
}

func NewPlanExtractor(runner planRunner, log *slog.Logger) *PlanExtractor {
	return &PlanExtractor{runner: runner, log: log}
}

func (x *PlanExtractor) Extract(ctx context.Context, targets []string) (*ir.Plan, error) {
	x.log.Info("planning", "targets", len(targets))
	if err := x.runner.Plan(ctx, targets); err != nil {
		return nil, fmt.Errorf("terraform plan: %w", err)
	}

	raw, err := x.runner.Show(ctx)
	if err != nil {
		return nil, fmt.Errorf("terraform show: %w", err)
	}

	var plan ir.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan JSON: %w", err)
	}
	x.log.Info("plan parsed",
		"terraform_version", plan.TerraformVersion,
		"resource_changes", len(plan.ResourceChanges))
	return &plan, nil
}

// FilterImportable keeps the changes whose action set is exactly
// {create}. Updates, deletes, no-ops, reads and replacements (which
// carry both delete and create) are excluded.
func FilterImportable(changes []*ir.ResourceChange) []*ir.ResourceChange {
	var out []*ir.ResourceChange
	for _, rc := range changes {
		if rc.Change == nil {
			continue
		}
		if len(rc.Change.Actions) == 1 && rc.Change.Actions[0] == "create" {
			out = append(out, rc)
		}
	}
	return out
}
