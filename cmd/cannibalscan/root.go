package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cannibalscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cannibalscan",
		Short: "Keyword cannibalization reports for Search Console data",
		Long: `cannibalscan finds keyword cannibalization: pages of the same site that
rank for the same query with near-duplicate content.

Analyses run on the analysis backend (a keyword CSV export or the Search
Console API). cannibalscan filters and sorts the resulting keyword groups,
prints a report and writes JSON, HTML, Markdown or DOCX exports.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .cannibalscan in current or home directory)")
	cmd.PersistentFlags().String("backend", "",
		"Analysis backend URL (default "+defaultBackendHelp+")")
	cmd.PersistentFlags().Duration("timeout", 0,
		"Timeout of a single backend request (default 10m)")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory of the history database (default: XDG data directory)")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewFilterCmd())
	cmd.AddCommand(NewSitesCmd())
	cmd.AddCommand(NewAuthCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
