package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tfadopt",
	Short: "Adopt existing infrastructure into terraform",
	Long: `tfadopt inspects a terraform plan, looks up which of the resources
terraform wants to create already exist in the real world, and appends
import blocks for them to your configuration.

A following terraform apply then adopts those resources into state
instead of creating duplicates.`,
	SilenceUsage: true,
}

// Execute runs the root command with interrupt handling: Ctrl-C cancels
// in-flight lookups and any running terraform child process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
