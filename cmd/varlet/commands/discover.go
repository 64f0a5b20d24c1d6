package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var discoverImport bool

var discoverCmd = &cobra.Command{
	Use:   "discover <root>",
	Short: "Scan a central settings tree for service configurations",
	Long: `Scan a central settings tree and derive one configuration record per
service from its layered application-<env> naming conventions.

By default the derived records are printed as JSON. With --import they
are also stored, replacing records with the same service name.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverImport, "import", false, "Store the discovered records")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	root := args[0]

	eng, err := newEngine()
	if err != nil {
		return err
	}

	records, err := eng.Discover(root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if discoverImport {
		if records, err = eng.ImportDiscovered(cmd.Context(), root); err != nil {
			return fmt.Errorf("failed to import %s: %w", root, err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
