package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/archive"
	"github.com/sells-group/bid-cli/internal/fetcher"
	"github.com/sells-group/bid-cli/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Record and analyze past bid results",
}

var historyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a won or lost bid",
	Long: `Record a won or lost bid.

Until the store holds its first result, scoring runs against a built-in
sample history. Once a result is recorded the samples are no longer used
and scores reflect only your own history.

Examples:
  history add --client "Mercy Health" --job-type hospital --value 150000 --margin 15 --outcome won
  history add --client "Ohio State" --job-type dorm --value 1200000 --margin 8 --outcome lost --competitor "Zenith Electric"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("history"); err != nil {
			return err
		}

		f := cmd.Flags()
		client, _ := f.GetString("client")
		jobType, _ := f.GetString("job-type")
		value, _ := f.GetFloat64("value")
		margin, _ := f.GetFloat64("margin")
		outcome, _ := f.GetString("outcome")
		competitor, _ := f.GetString("competitor")

		rec := model.HistoricalBid{
			Client:        client,
			JobType:       jobType,
			Value:         value,
			MarginPercent: margin,
			Outcome:       model.Outcome(outcome),
		}
		if competitor != "" {
			rec.Competitor = &competitor
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err = env.History.Append(ctx, rec)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: %s %s %s\n", rec.ID, rec.Outcome, rec.Client, rec.JobType)
		return nil
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		formatHistory(cmd.OutOrStdout(), env.History.Snapshot())
		return nil
	},
}

var historyWinRateCmd = &cobra.Command{
	Use:   "win-rate",
	Short: "Show the overall win ratio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "WIN RATIO: %s\n", env.History.WinRatio())
		return nil
	},
}

var historyCompetitorCmd = &cobra.Command{
	Use:   "competitor NAME",
	Short: "Summarize losses against a competitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), env.History.Competitor(args[0]).Summary)
		return nil
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import results from a CSV or XLSX file",
	Long: `Bulk import results from a CSV or XLSX file.

Columns: client, job_type, value, margin_percent, outcome, competitor.
The first row is a header. Either every row is imported or none is.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("history"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		rows, err := readHistoryFile(ctx, path)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()
		if env.Store == nil {
			return eris.New("history import requires store.driver (BID_STORE_DRIVER)")
		}

		recs, err := parseHistoryRows(env.History.Archive, rows)
		if err != nil {
			return err
		}
		n, err := env.Store.ImportHistory(ctx, recs)
		if err != nil {
			return err
		}

		zap.L().Info("history import complete",
			zap.String("file", path),
			zap.Int64("imported", n),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d results from %s\n", n, path)
		return nil
	},
}

func init() {
	f := historyAddCmd.Flags()
	f.String("client", "", "client name (required)")
	f.String("job-type", "", "job type (required)")
	f.Float64("value", 0, "contract value")
	f.Float64("margin", 0, "margin percent bid")
	f.String("outcome", "", "WON or LOST (required)")
	f.String("competitor", "", "who won, for a lost bid")
	_ = historyAddCmd.MarkFlagRequired("client")
	_ = historyAddCmd.MarkFlagRequired("job-type")
	_ = historyAddCmd.MarkFlagRequired("outcome")

	historyImportCmd.Flags().String("file", "", "CSV or XLSX path (required)")
	_ = historyImportCmd.MarkFlagRequired("file")

	historyCmd.AddCommand(historyAddCmd, historyListCmd, historyWinRateCmd, historyCompetitorCmd, historyImportCmd)
	rootCmd.AddCommand(historyCmd)
}

func readHistoryFile(ctx context.Context, path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return fetcher.Collect(fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true, Comment: '#'}))
}

// parseHistoryRows converts import rows into prepared records. Any bad row
// fails the whole import.
func parseHistoryRows(a *archive.Archive, rows [][]string) ([]model.HistoricalBid, error) {
	recs := make([]model.HistoricalBid, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		if len(row) < 5 {
			return nil, eris.Errorf("row %d: expected at least 5 columns, got %d", line, len(row))
		}
		value, err := parseMoney(row[2])
		if err != nil {
			return nil, eris.Wrapf(err, "row %d: value", line)
		}
		margin, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(row[3]), "%"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "row %d: margin", line)
		}

		rec := model.HistoricalBid{
			Client:        row[0],
			JobType:       row[1],
			Value:         value,
			MarginPercent: margin,
			Outcome:       model.Outcome(row[4]),
		}
		if len(row) > 5 {
			competitor := row[5]
			rec.Competitor = &competitor
		}

		rec, err = a.Prepare(rec)
		if err != nil {
			return nil, eris.Wrapf(err, "row %d", line)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

func formatHistory(out io.Writer, recs []model.HistoricalBid) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLIENT\tJOB TYPE\tVALUE\tMARGIN\tOUTCOME\tCOMPETITOR")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t-----\t------\t-------\t----------")
	for _, r := range recs {
		competitor := r.CompetitorName()
		if competitor == "" {
			competitor = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%.1f%%\t%s\t%s\n",
			r.ID, r.Client, r.JobType, r.Value, r.MarginPercent, r.Outcome, competitor)
	}
	_ = w.Flush()
}
