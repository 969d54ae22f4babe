// Package cmd wires the cobra CLI for the VitiBrasil API service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vitibrasil-api",
		Short: "REST API for Brazilian wine-industry statistics",
		Long: `vitibrasil-api serves production, import, export, processing and
commercialization statistics scraped from the Embrapa VitiBrasil site,
with transparent fallback to local CSV snapshots when the site is
unavailable.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute is the CLI entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
