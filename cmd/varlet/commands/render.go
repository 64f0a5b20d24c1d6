package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	renderSources []string
	renderDiff    bool
	renderOutput  string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a template file with placeholders substituted",
	Long: `Render a template file, substituting every defined {{variable}}
placeholder with its value. Undefined or malformed placeholders are
left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringSliceVarP(&renderSources, "source", "s", nil, "Key/value source file, ordered (repeatable)")
	renderCmd.Flags().BoolVar(&renderDiff, "diff", false, "Show a template-vs-rendering diff instead of the result")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write the rendered result to a file")
}

func runRender(cmd *cobra.Command, args []string) error {
	docPath := args[0]
	text, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", docPath, err)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	if len(renderSources) > 0 {
		if _, err := eng.UpdateSources(cmd.Context(), renderSources); err != nil {
			return err
		}
	}

	if renderDiff {
		fmt.Print(eng.RenderDocumentDiff(cmd.Context(), docPath, string(text)))
		return nil
	}

	rendered := eng.RenderDocument(cmd.Context(), docPath, string(text))
	if renderOutput != "" {
		return os.WriteFile(renderOutput, []byte(rendered), 0644)
	}
	fmt.Print(rendered)
	return nil
}
