package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/picklr-io/tfadopt/internal/configtree"
	"github.com/picklr-io/tfadopt/internal/engine"
	"github.com/picklr-io/tfadopt/internal/logging"
	"github.com/picklr-io/tfadopt/internal/provider"
	"github.com/picklr-io/tfadopt/internal/terraform"
	"github.com/picklr-io/tfadopt/providers"
)

var (
	runConfigDir   string
	runOptions     []string
	runTargets     []string
	runLogLevel    string
	runParallelism int
	runApply       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Plan, resolve and write import blocks",
	Long: `Runs terraform plan in the configuration directory, resolves the
real-world IDs of the resources the plan would create, and appends
import blocks for the ones that already exist.

With --apply, tfadopt re-plans afterwards and applies automatically
when the plan contains nothing but imports.`,
	RunE: runAdopt,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigDir, "config", "c", "", "Terraform configuration directory")
	runCmd.Flags().StringArrayVarP(&runOptions, "option", "o", nil, "Extra terraform option, repeatable (e.g. -var-file=dev.tfvars)")
	runCmd.Flags().StringArrayVarP(&runTargets, "target", "t", nil, "Resource address to target, repeatable")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	runCmd.Flags().IntVar(&runParallelism, "parallelism", engine.DefaultParallelism, "Concurrent resource lookups")
	runCmd.Flags().BoolVar(&runApply, "apply", false, "Apply automatically when the plan is import-only")
	runCmd.MarkFlagRequired("config")
}

func runAdopt(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.New(os.Stderr, runLogLevel)

	runner := terraform.NewRunner(runConfigDir, runOptions, log)

	plan, err := engine.NewPlanExtractor(runner, log).Extract(ctx, runTargets)
	if err != nil {
		return err
	}

	creations := engine.FilterImportable(plan.ResourceChanges)
	if len(creations) == 0 {
		fmt.Println("No resources to create; nothing to import.")
		return nil
	}
	log.Info("creations found in plan", "count", len(creations))

	resolved, err := configtree.ResolveProviderConfig(plan)
	if err != nil {
		return fmt.Errorf("resolving provider configuration: %w", err)
	}
	registry, err := providers.Build(ctx, provider.ParseConfigs(resolved), log)
	if err != nil {
		return err
	}

	var providerKeys map[string]string
	if plan.Configuration != nil {
		providerKeys = configtree.ExtractProviderConfigKeys(plan.Configuration.RootModule)
	}

	eng := engine.NewResolutionEngine(registry, providerKeys, engine.Options{
		Parallelism: runParallelism,
	}, log)

	directives, summary, err := eng.Resolve(ctx, creations)
	if err != nil {
		return err
	}

	writer := engine.NewImportBlockWriter(runner.Dir(), engine.ArtifactName(runTargets))
	writer.AddAll(directives)
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Println("\nImport resolution summary:")
	fmt.Printf("  Resolved:  %d\n", summary.Resolved)
	fmt.Printf("  Not found: %d\n", summary.NotFound)
	fmt.Printf("  Errored:   %d\n", summary.Errored)
	fmt.Printf("  Skipped:   %d\n", summary.Skipped)
	if summary.Resolved > 0 {
		fmt.Printf("\nWrote %d import block(s) to %s\n", summary.Resolved, writer.Path())
	}

	if runApply && summary.Resolved > 0 {
		applied, err := runner.ApplyIfOnlyImport(ctx, runTargets)
		if err != nil {
			return err
		}
		if applied {
			fmt.Println("Applied import-only plan.")
		}
	}
	return nil
}
