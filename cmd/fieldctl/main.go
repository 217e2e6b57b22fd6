package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:           "fieldctl",
		Short:         "fieldctl - field crew client for the parks operations API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (defaults to the saved session or "+defaultServer+")")

	// Add subcommands
	rootCmd.AddCommand(loginCmd(&serverURL))
	rootCmd.AddCommand(tasksCmd(&serverURL))
	rootCmd.AddCommand(startCmd(&serverURL))
	rootCmd.AddCommand(completeCmd(&serverURL))
	rootCmd.AddCommand(incompleteCmd(&serverURL))
	rootCmd.AddCommand(watchCmd(&serverURL))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
