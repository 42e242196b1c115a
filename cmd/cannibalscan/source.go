package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/pipeline"
)

// errNoSource is returned when a command needs a stored or exported analysis
// and none was named.
var errNoSource = errors.New("no analysis selected: use --file, --id or --latest")

// addSourceFlags registers the flags selecting an existing analysis.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "JSON or HTML export to load")
	cmd.Flags().Int64("id", 0, "ID of a stored analysis (see: cannibalscan history list)")
	cmd.Flags().Bool("latest", false, "Load the most recent stored analysis")
	cmd.Flags().String("site", "", "With --latest, only consider analyses of this site")
}

// analysisSource is an existing analysis named on the command line.
type analysisSource struct {
	file   string
	id     int64
	latest bool
	site   string
}

func getSourceFlags(cmd *cobra.Command) (analysisSource, error) {
	var src analysisSource
	var err error

	flags := cmd.Flags()
	if src.file, err = flags.GetString("file"); err != nil {
		return src, err
	}
	if src.id, err = flags.GetInt64("id"); err != nil {
		return src, err
	}
	if src.latest, err = flags.GetBool("latest"); err != nil {
		return src, err
	}
	if src.site, err = flags.GetString("site"); err != nil {
		return src, err
	}

	set := 0
	for _, ok := range []bool{src.file != "", src.id != 0, src.latest} {
		if ok {
			set++
		}
	}
	switch {
	case set == 0:
		return src, errNoSource
	case set > 1:
		return src, errors.New("--file, --id and --latest are mutually exclusive")
	}
	return src, nil
}

// needsDB reports whether the source is read from the history database.
func (s analysisSource) needsDB() bool {
	return s.file == ""
}

// step returns the pipeline step loading the analysis.
func (s analysisSource) step(ctx context.Context, db *database.HistoryDB) (pipeline.Step, error) {
	if s.file != "" {
		return pipeline.NewImportStep(s.file), nil
	}

	id := s.id
	if s.latest {
		records, err := db.ListAnalyses(ctx, s.site, 1)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			if s.site != "" {
				return nil, fmt.Errorf("%w: no analysis of %s", database.ErrNotFound, s.site)
			}
			return nil, fmt.Errorf("%w: the history is empty", database.ErrNotFound)
		}
		id = records[0].ID
	}
	return pipeline.NewHistoryStep(db, id), nil
}
