package main

import (
	"github.com/spf13/cobra"

	"kvenv/pkg/launcher"
)

var runInCmd = &cobra.Command{
	Use:   "run-in -- COMMAND [ARGS...]",
	Short: "Resolve the environment and run a command in it",
	Long: `Downloads the environment from the secret backend and runs the given
command with exactly that environment. kvenv exits with the command's own
exit code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := resolveEnvironment(cmd)
		if err != nil {
			return err
		}

		code, err := launcher.Run(env, args)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	},
}

func init() {
	addEnvFlags(runInCmd)
}
