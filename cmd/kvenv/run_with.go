package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kvenv/pkg/cache"
	"kvenv/pkg/launcher"
)

var runWithCmd = &cobra.Command{
	Use:   "run-with --env-file FILE -- COMMAND [ARGS...]",
	Short: "Run a command in an environment loaded from a cache file",
	Long: `Loads an environment cached by the cache command and runs the given
command with exactly that environment, without contacting the backend.
kvenv exits with the command's own exit code. With --cleanup the cache file
is removed after the command succeeds; a failing command leaves the file in
place for diagnosis or retry.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cleanup, _ := cmd.Flags().GetBool("cleanup")

		env, err := cache.Load(envFile)
		if err != nil {
			return err
		}

		code, err := launcher.Run(env, args)
		if err != nil {
			return err
		}

		if code == 0 && cleanup {
			if err := cache.Remove(envFile); err != nil {
				log.Warn().Msgf("Failed to clean up cache file: %v", err)
			}
		}

		if code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	},
}

func init() {
	runWithCmd.Flags().StringP("env-file", "f", "", "path to the cache file created by the cache command")
	runWithCmd.Flags().BoolP("cleanup", "c", false, "remove the cache file after the command succeeds")
	_ = runWithCmd.MarkFlagRequired("env-file")
}
