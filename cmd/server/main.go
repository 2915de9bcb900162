// Package main is the entry point for the skill tree planner server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guild-skill-tree",
	Short: "Guild skill tree planner server",
	Long:  `Serves the guild skill tree planner: tree validation, cost aggregation, and snapshot synchronization over WebSocket.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
