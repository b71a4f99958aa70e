package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kvenv/pkg/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Resolve the environment and store it in a local cache file",
	Long: `Downloads the environment from the secret backend and stores it as a
JSON cache file for later use with run-with. Prints the path of the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := resolveEnvironment(cmd)
		if err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output-file")
		outputDir, _ := cmd.Flags().GetString("output-dir")

		var path string
		if outputFile != "" {
			path, err = cache.Write(env, outputFile)
		} else {
			path, err = cache.WriteTemp(env, outputDir)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	addEnvFlags(cacheCmd)
	cacheCmd.Flags().StringP("output-file", "f", "", "file to store the cached environment in (default: a random temporary file)")
	cacheCmd.Flags().StringP("output-dir", "d", "", "directory to create the random cache file in")
	cacheCmd.MarkFlagsMutuallyExclusive("output-file", "output-dir")
}
