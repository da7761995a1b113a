package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var nodeID int64

var rootCmd = &cobra.Command{
	Use:          "chaseless",
	Short:        "Invoice lifecycle and payment service",
	Version:      version,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().Int64Var(&nodeID, "node", 1, "snowflake node id of this replica (0-1023)")
	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chaseless: %v\n", err)
		os.Exit(1)
	}
}
