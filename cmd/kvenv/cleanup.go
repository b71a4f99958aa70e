package main

import (
	"github.com/spf13/cobra"

	"kvenv/pkg/cache"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup FILE",
	Short: "Remove a leftover cache file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cache.Remove(args[0])
	},
}
