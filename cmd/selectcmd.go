package cmd

import (
	"github.com/lambentLogic/spectrum/core"
	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/spf13/cobra"
)

// selectCmd re-runs selection against an existing SNR report.
var selectCmd = &cobra.Command{
	Use:   "select <report-path>",
	Short: "Re-run top/bottom percent selection from a saved SNR report.",
	Long: `Recompute the unfrozen-parameters selection from a previously written SNR
report without touching the model. Use this to try different percentages
after a single expensive scan.

Examples:
  # Select the top 50 percent per type
  spectrum select model_snr_results/snr_results_llama.json

  # Select the bottom 20 percent per type
  spectrum select model_snr_results/snr_results_llama.json --percent -20`,
	Args:    cobra.ExactArgs(1),
	PreRunE: selectSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSelect(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run selection", err)
		}
	},
}
