package cmd

import (
	"context"
	"fmt"
	"os"

	appsession "marketing-export/application/session"
	"marketing-export/domain/content"

	"github.com/spf13/cobra"
)

var (
	generateProduct  string
	generateAudience string
	generateTone     string
	generateOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate marketing copy for a product",
	Long: `Generate a headline, value proposition, key benefits, call to action,
ad copy, email subject line and LinkedIn post for a product.

The copy is printed, or written to --out so it can be edited and then
exported with 'marketing-export upload'.

Example:
  marketing-export generate --product "PragyanAI" --audience "Engineering students" --tone Exciting
  marketing-export generate --product "PragyanAI" --audience "Engineering students" --out copy.txt`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateProduct, "product", "", "Product name or description (required)")
	generateCmd.Flags().StringVar(&generateAudience, "audience", "", "Target audience (required)")
	generateCmd.Flags().StringVar(&generateTone, "tone", "", "Tone: Professional, Casual or Exciting (default from llm.default_tone)")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Write the copy to this file instead of stdout")
	generateCmd.MarkFlagRequired("product")
	generateCmd.MarkFlagRequired("audience")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(true)
	if err != nil {
		return err
	}

	tone, err := content.ParseTone(generateTone, cfg.DefaultTone())
	if err != nil {
		return err
	}

	service, err := newGenerationService(cfg, logger)
	if err != nil {
		return err
	}

	params := content.Parameters{
		Product:  generateProduct,
		Audience: generateAudience,
		Tone:     tone,
	}
	return RunGenerateWithDependencies(cmd.Context(), service, params, generateOut, os.Stdout)
}

// RunGenerateWithDependencies runs the generate command with injected dependencies (for testing)
func RunGenerateWithDependencies(
	ctx context.Context,
	generator appsession.ContentGenerator,
	params content.Parameters,
	outPath string,
	output OutputWriter,
) error {
	generated, err := generator.Generate(ctx, params)
	if err != nil {
		return fmt.Errorf("%s: %w", appsession.UserMessage(err), err)
	}

	if outPath == "" {
		fmt.Fprintln(output, generated.Text)
		return nil
	}

	if err := os.WriteFile(outPath, []byte(generated.Text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	fmt.Fprintf(output, "Generated %q copy for %s\n", generated.Parameters.Tone, generated.Parameters.Product)
	fmt.Fprintf(output, "  Headline: %s\n", generated.Headline())
	fmt.Fprintf(output, "  Saved to: %s\n", outPath)
	return nil
}
