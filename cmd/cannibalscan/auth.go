package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewAuthCmd creates the auth command.
func NewAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Print the Google authorization URL of the backend",
		Long: `Auth asks the backend for its Google OAuth consent URL. Open it in a
browser and grant access to Search Console; the backend keeps the token.`,
		Args: cobra.NoArgs,
		RunE: runAuthCmd,
	}
}

func runAuthCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	ctx, cancel := signalContext(logger)
	defer cancel()

	authURL, err := newClient(cfg, logger).AuthURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to get authorization URL: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL in a browser to authorize Search Console access:")
	fmt.Fprintf(out, "\n  %s\n", authURL)
	return nil
}
