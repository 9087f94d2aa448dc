package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Print the effective configuration as YAML",
	Long:        `Print the configuration after applying the config file, CONSTELLATION_* environment variables and flags. Does not open the workspace.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"session": "none"},
	RunE:        runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	fmt.Fprintf(cmd.OutOrStdout(), "# store: %s\n", cfg.StorePath())
	return nil
}
