package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/client"
)

// NewSitesCmd creates the sites command.
func NewSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List the Search Console properties of the authorized account",
		Long: `Sites lists the Search Console properties the backend can analyse.
Run "cannibalscan auth" first if the backend is not authorized yet.

Examples:
  cannibalscan sites
  cannibalscan sites --search example`,
		Args: cobra.NoArgs,
		RunE: runSitesCmd,
	}

	cmd.Flags().String("search", "", "Only list properties whose URL contains this text")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	return cmd
}

func runSitesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	ctx, cancel := signalContext(logger)
	defer cancel()

	sites, err := newClient(cfg, logger).Sites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}
	sites = client.FilterSites(sites, search)

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sites)
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No site found.")
		return nil
	}
	for _, site := range sites {
		if site.PermissionLevel != "" {
			fmt.Fprintf(out, "%s\t%s\n", site.SiteURL, site.PermissionLevel)
			continue
		}
		fmt.Fprintln(out, site.SiteURL)
	}
	return nil
}
