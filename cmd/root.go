package cmd

import (
	"github.com/accessible-graphics/svgcaption/internal/captioncmd"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "svgcaption",
		Short: "Accessibility caption generation for SVG images using vision LLMs",
		Long: `svgcaption converts a directory of SVG images into short accessibility
captions using a vision-capable LLM.

The batch command submits all images as one job to the OpenAI Batch API and
reconciles the results into a CSV. The run command captions images one at a
time through OpenAI, Gemini, or Ollama. The eval command scores generated
captions against a reference dataset.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(captioncmd.NewBatchCmd())
	cmd.AddCommand(captioncmd.NewProcessCmd())
	cmd.AddCommand(captioncmd.NewRunCmd())
	cmd.AddCommand(captioncmd.NewEvalCmd())

	return cmd
}
