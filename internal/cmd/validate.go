package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shroudlabs/shroud/internal/config"
)

// configCmd groups configuration subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

// validateCmd checks a configuration file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parse and validate the configuration file, reporting the first
problem found. Exits with a non-zero status when the file is invalid.

Example:
  shroud config validate --config config.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
		fmt.Printf("%s is valid (cloaking enabled: %t, rate limit enabled: %t)\n",
			configPath, cfg.Cloaking.Enabled, cfg.RateLimit.Enabled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateCmd)
}
