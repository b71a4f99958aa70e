package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	debugMode bool
	cfgFile   string

	rootCmd = &cobra.Command{
		Use:   "kvenv",
		Short: "Run commands under an environment resolved from a secret backend",
		Long: `kvenv downloads environment variables from a secret backend
(AWS Secrets Manager, Azure Key Vault, Google Secret Manager or HashiCorp
Vault), merges them with the OS environment under a masking policy, and runs
commands with exactly the resulting environment. The resolved environment can
be cached to a local file so later runs skip the backend entirely.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugMode {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML configuration file with backend settings")

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runInCmd)
	rootCmd.AddCommand(runWithCmd)
	rootCmd.AddCommand(cleanupCmd)
}
