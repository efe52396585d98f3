package cmd

import (
	"github.com/lambentLogic/spectrum/core"
	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/spf13/cobra"
)

// scanCmd performs the full spectral scoring pipeline on a model.
var scanCmd = &cobra.Command{
	Use:   "scan [model-path]",
	Short: "Score every weight matrix of a model by spectral SNR.",
	Long: `Decompose each weight matrix of a safetensors checkpoint into its singular
values and score how much of the spectrum rises above the Marchenko-Pastur
noise threshold.

The scan writes three artifacts:
- An SNR report mapping each matrix to its normalized score and structural type
- A sorted report grouping scores by structural type, best first
- An unfrozen-parameters file selecting the top (or bottom) percent per type

Examples:
  # Score all weight matrices with defaults
  spectrum scan ./Llama-3-8B

  # Select the worst 30 percent per type for fine-tuning
  spectrum scan ./Llama-3-8B --percent -30

  # Restrict scoring to attention projections
  spectrum scan ./Llama-3-8B --types self_attn.q_proj.weight,self_attn.k_proj.weight

  # Export findings to CSV for tracking
  spectrum scan ./Llama-3-8B --output csv --output-file snr.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteScan(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run scan", err)
		}
	},
}
