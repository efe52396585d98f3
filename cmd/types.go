package cmd

import (
	"github.com/lambentLogic/spectrum/core"
	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/spf13/cobra"
)

// typesCmd lists the structural weight types present in a model.
var typesCmd = &cobra.Command{
	Use:   "types [model-path]",
	Short: "List the structural weight types discoverable in a model.",
	Long: `Enumerate the distinct structural types of a checkpoint's tensors, derived
from their names. These are the values accepted by the --types flag of scan.

Examples:
  # List the types of a local checkpoint
  spectrum types ./Llama-3-8B

  # Emit them as JSON for scripting
  spectrum types ./Llama-3-8B --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTypes(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot list weight types", err)
		}
	},
}
