package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/varlet-dev/varlet/pkg/types"
)

var validateSources []string

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate placeholders in a template file",
	Long: `Validate every {{variable}} placeholder in a template file against
the key/value sources that apply to it.

Sources come from --source flags when given, otherwise from the stored
configuration matching the file's service directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringSliceVarP(&validateSources, "source", "s", nil, "Key/value source file, ordered (repeatable)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	docPath := args[0]
	text, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", docPath, err)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	if len(validateSources) > 0 {
		if _, err := eng.UpdateSources(cmd.Context(), validateSources); err != nil {
			return err
		}
	}

	diags := eng.ValidateDocument(cmd.Context(), docPath, string(text))
	for _, d := range diags {
		fmt.Printf("%s:%d:%d: %s %s: %s\n",
			docPath,
			d.Range.Start.Line+1,
			d.Range.Start.Character+1,
			severityLabel(d.Severity),
			d.Code,
			d.Message,
		)
	}
	if len(diags) > 0 {
		return fmt.Errorf("%d problem(s) found", len(diags))
	}
	fmt.Println("no problems found")
	return nil
}

func severityLabel(s int) string {
	switch s {
	case types.DiagnosticSeverityError:
		return "error"
	case types.DiagnosticSeverityWarning:
		return "warning"
	case types.DiagnosticSeverityInformation:
		return "info"
	case types.DiagnosticSeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}
