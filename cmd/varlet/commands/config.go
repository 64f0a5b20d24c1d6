package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/varlet-dev/varlet/pkg/types"
)

var (
	setService string
	setEnv     string
	setPaths   []string
	setFile    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stored service configurations",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		records, err := eng.ListConfigurations(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a service configuration and make it active",
	Long: `Store a configuration record. Either pass --file with a JSON record,
or build one from --service, --environment, and repeated --path flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		if setFile != "" {
			record, err := eng.SetServiceConfigurationFromFile(cmd.Context(), setFile)
			if err != nil {
				return err
			}
			fmt.Printf("saved %s/%s (%d sources)\n", record.ServiceName, record.Environment, len(record.YAMLPaths))
			return nil
		}

		record, err := eng.SetServiceConfiguration(cmd.Context(), types.ServiceConfig{
			ServiceName: setService,
			Environment: setEnv,
			YAMLPaths:   setPaths,
		})
		if err != nil {
			return err
		}
		fmt.Printf("saved %s/%s (%d sources)\n", record.ServiceName, record.Environment, len(record.YAMLPaths))
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete <service> <environment>",
	Short: "Delete the configuration for a service and environment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		removed, err := eng.RemoveConfiguration(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if removed == 0 {
			return fmt.Errorf("no configuration stored for %s/%s", args[0], args[1])
		}
		fmt.Printf("removed %d record(s)\n", removed)
		return nil
	},
}

var configWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all stored configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		return eng.WipeConfigurations(cmd.Context())
	},
}

func init() {
	configSetCmd.Flags().StringVar(&setService, "service", "", "Service name")
	configSetCmd.Flags().StringVar(&setEnv, "environment", "", "Environment name")
	configSetCmd.Flags().StringSliceVar(&setPaths, "path", nil, "Source file path, ordered (repeatable)")
	configSetCmd.Flags().StringVar(&setFile, "file", "", "JSON file holding the record")

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDeleteCmd)
	configCmd.AddCommand(configWipeCmd)
}
