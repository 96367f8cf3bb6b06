// Package cmd provides the CLI commands for shroud.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shroudlabs/shroud/internal/logging"
)

var (
	// Global flags
	configPath    string
	debug         bool
	logLevel      string
	logFile       string
	logJSON       bool
	logComponents string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shroud",
	Short: "Shroud - a traffic classification and cloaking server",
	Long: `Shroud classifies each incoming visitor as organic or bot-like and
serves a different page variant per verdict.

Classification combines user agent heuristics, address range checks,
a verdict cache and an external IP reputation probe. When in doubt the
server fails closed and serves the decoy page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		// Priority: --log-level flag > --debug flag > default (info)
		effectiveLogLevel := "info"
		if logLevel != "" {
			effectiveLogLevel = logLevel
		} else if debug {
			effectiveLogLevel = "debug"
		}
		var components []string
		if logComponents != "" {
			for _, c := range strings.Split(logComponents, ",") {
				c = strings.TrimSpace(c)
				if c != "" {
					components = append(components, c)
				}
			}
		}
		var fileLog *logging.FileLogConfig
		if logFile != "" {
			fileLog = &logging.FileLogConfig{Path: logFile}
		}
		if err := logging.Initialize(logging.Config{
			Level:      effectiveLogLevel,
			FileLog:    fileLog,
			JSON:       logJSON,
			Components: components,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Configuration file path (JSON or YAML format)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to console)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "Comma-separated list of components to log (e.g., 'web,cloak,audit'). Empty means all components.")
}
