package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/proposal"
	"github.com/sells-group/bid-cli/internal/strategy"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score win probability for a prospective job",
	Long: `Score win probability for a prospective job against past results.

With --base-cost, also recommend a margin and sell price. An empty history
store scores against the built-in sample history.

Examples:
  score --client "Mercy Health" --job-type hospital --value 200000
  score --client "New Tech Campus" --job-type office --value 2500000 --base-cost 180000`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("client", "", "client name (required)")
	f.String("job-type", "", "job type, e.g. HOSPITAL (required)")
	f.Float64("value", 0, "estimated contract value")
	f.Float64("base-cost", -1, "break-even cost for a strategy recommendation")
	_ = scoreCmd.MarkFlagRequired("client")
	_ = scoreCmd.MarkFlagRequired("job-type")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, _ := cmd.Flags().GetString("client")
	jobType, _ := cmd.Flags().GetString("job-type")
	value, _ := cmd.Flags().GetFloat64("value")
	baseCost, _ := cmd.Flags().GetFloat64("base-cost")

	env, err := initEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	out := cmd.OutOrStdout()
	report := env.Predictor.Predict(client, jobType, value)
	writeReport(out, report)

	if cmd.Flags().Changed("base-cost") {
		rec, err := strategy.Recommend(baseCost, report)
		if err != nil {
			return err
		}
		writeRecommendation(out, rec)
	}
	return nil
}

func writeReport(out io.Writer, r model.ProbabilityReport) {
	_, _ = fmt.Fprintf(out, "WIN PROBABILITY: %d%% [%s]\n", r.Score, r.Status)
	for _, f := range r.Factors {
		_, _ = fmt.Fprintf(out, "  - %s\n", f)
	}
}

func writeRecommendation(out io.Writer, r model.StrategyRecommendation) {
	_, _ = fmt.Fprintln(out, strings.Repeat("-", 50))
	_, _ = fmt.Fprintf(out, "SUGGESTED MARGIN: %.0f%%\n", r.SuggestedMarginPercent)
	_, _ = fmt.Fprintf(out, "SELL PRICE:       %s\n", proposal.Money(r.SellPrice))
	_, _ = fmt.Fprintf(out, "PROFIT:           %s\n", proposal.Money(r.Profit))
	_, _ = fmt.Fprintf(out, "STRATEGY:         %s\n", r.StrategyNote)
}
