package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/report"
	"github.com/nao1215/cannibalscan/internal/session"
)

// timestampLayout is how history dates are printed.
const timestampLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage stored analyses",
		Long: `History lists, prints, compares and deletes the analyses stored by
"cannibalscan analyze". Stored analyses can be filtered again with
"cannibalscan filter --id".`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryCompareCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			site, err := cmd.Flags().GetString("site")
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			return withHistory(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				return listHistory(ctx, cmd.OutOrStdout(), db, site, limit)
			})
		},
	}
	cmd.Flags().String("site", "", "Only list analyses of this site")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of analyses listed (0: all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored analysis with the default filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return withHistory(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				return showAnalysis(ctx, cmd.OutOrStdout(), db, id, jsonOutput)
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print the stored analysis as JSON")
	return cmd
}

func newHistoryCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <old-id> <new-id>",
		Short: "Compare the cannibalized keywords of two stored analyses",
		Long: `Compare lists the keywords that started or stopped cannibalizing between
two stored analyses, typically two runs on the same site.

Example:
  cannibalscan history compare 3 7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldID, err := parseID(args[0])
			if err != nil {
				return err
			}
			newID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withHistory(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				previous, err := db.GetAnalysis(ctx, oldID)
				if err != nil {
					return fmt.Errorf("failed to load analysis %d: %w", oldID, err)
				}
				current, err := db.GetAnalysis(ctx, newID)
				if err != nil {
					return fmt.Errorf("failed to load analysis %d: %w", newID, err)
				}
				writeComparison(cmd.OutOrStdout(), compareAnalyses(previous, current))
				return nil
			})
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withHistory(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				if err := db.DeleteAnalysis(ctx, id); err != nil {
					return fmt.Errorf("failed to delete analysis %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %d\n", id)
				return nil
			})
		},
	}
}

// withHistory opens the history database of the command's configuration
// and runs fn with it.
func withHistory(cmd *cobra.Command, fn func(ctx context.Context, db *database.HistoryDB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext(setupLogger(cfg.Verbose))
	defer cancel()
	return fn(ctx, db)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid analysis ID %q", arg)
	}
	return id, nil
}

// listHistory prints the stored analyses as a table.
func listHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, site string, limit int) error {
	records, err := db.ListAnalyses(ctx, site, limit)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No stored analysis found.")
		fmt.Fprintln(out, "\nUse 'cannibalscan analyze' to run an analysis.")
		return nil
	}

	fmt.Fprintf(out, "  %-6s  %-19s  %-14s  %-9s  %-7s  %s\n", "ID", "Date", "Source", "Threshold", "Groups", "Site")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, r := range records {
		fmt.Fprintf(out, "  %-6d  %-19s  %-14s  %-9.2f  %-7d  %s\n",
			r.ID,
			r.Timestamp.Local().Format(timestampLayout),
			r.Source,
			r.Threshold,
			r.GroupCount,
			r.Site,
		)
	}
	fmt.Fprintln(out, "\nUse 'cannibalscan filter --id <id>' to filter a stored analysis.")
	return nil
}

// showAnalysis prints a stored analysis, raw or as a text report.
func showAnalysis(ctx context.Context, out io.Writer, db *database.HistoryDB, id int64, jsonOutput bool) error {
	analysis, err := db.GetAnalysis(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load analysis %d: %w", id, err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(analysis)
	}

	sess := session.New()
	if err := sess.Load(analysis); err != nil {
		return err
	}
	doc, err := sess.Document()
	if err != nil {
		return err
	}
	_, err = report.NewSimpleWriter(out).Write(doc)
	return err
}

// comparison is the difference between two analyses.
type comparison struct {
	PreviousGroups int
	CurrentGroups  int

	// New are keywords cannibalizing only in the current analysis.
	New []string

	// Resolved are keywords cannibalizing only in the previous analysis.
	Resolved []string

	// Remaining are keywords cannibalizing in both.
	Remaining []string
}

// compareAnalyses compares the keywords that have at least two URLs above
// each analysis's own threshold.
func compareAnalyses(previous, current *model.AnalysisReport) comparison {
	before := cannibalizedKeywords(previous)
	after := cannibalizedKeywords(current)

	c := comparison{
		PreviousGroups: len(before),
		CurrentGroups:  len(after),
	}
	for kw := range after {
		if before[kw] {
			c.Remaining = append(c.Remaining, kw)
		} else {
			c.New = append(c.New, kw)
		}
	}
	for kw := range before {
		if !after[kw] {
			c.Resolved = append(c.Resolved, kw)
		}
	}
	slices.Sort(c.New)
	slices.Sort(c.Resolved)
	slices.Sort(c.Remaining)
	return c
}

func cannibalizedKeywords(a *model.AnalysisReport) map[string]bool {
	groups, err := filter.Apply(a.Groups, filter.DefaultCriteria(a.Threshold()))
	if err != nil {
		// Default criteria carry no pattern.
		groups = a.Groups
	}
	keywords := make(map[string]bool, len(groups))
	for _, g := range groups {
		keywords[g.Keyword] = true
	}
	return keywords
}

func writeComparison(out io.Writer, c comparison) {
	fmt.Fprintf(out, "Cannibalized keywords: %d -> %d (%s)\n\n",
		c.PreviousGroups, c.CurrentGroups, formatDelta(c.CurrentGroups-c.PreviousGroups))

	sections := []struct {
		title    string
		keywords []string
	}{
		{"New", c.New},
		{"Resolved", c.Resolved},
		{"Still cannibalized", c.Remaining},
	}
	for _, s := range sections {
		fmt.Fprintf(out, "%s (%d):\n", s.title, len(s.keywords))
		if len(s.keywords) == 0 {
			fmt.Fprintln(out, "  -")
		}
		for _, kw := range s.keywords {
			fmt.Fprintf(out, "  • %s\n", kw)
		}
		fmt.Fprintln(out)
	}
}

// formatDelta formats a count change with its sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return strconv.Itoa(delta)
}

