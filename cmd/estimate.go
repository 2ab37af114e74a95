package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bid-cli/internal/estimate"
	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/proposal"
	"github.com/sells-group/bid-cli/internal/scorer"
	"github.com/sells-group/bid-cli/internal/strategy"
)

// worksheet is a takeoff handed to the estimate command:
//
//	name: Warehouse Reno
//	difficulty: HIGH_CEILINGS
//	client: MERCY HEALTH
//	job_type: HOSPITAL
//	items:
//	  - sku: ASM-LIGHT-2x4
//	    qty: 100
type worksheet struct {
	Name       string          `yaml:"name"`
	Difficulty string          `yaml:"difficulty"`
	Client     string          `yaml:"client"`
	JobType    string          `yaml:"job_type"`
	Items      []worksheetItem `yaml:"items"`
}

type worksheetItem struct {
	SKU string `yaml:"sku"`
	Qty int    `yaml:"qty"`
}

func parseWorksheet(data []byte) (*worksheet, error) {
	var ws worksheet
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, eris.Wrap(err, "parse worksheet")
	}
	if ws.Name == "" {
		return nil, eris.New("worksheet: name is required")
	}
	return &ws, nil
}

type estimateResult struct {
	Bid      *model.Bid
	Recap    *model.Recap
	Rejected int
}

// buildEstimate adds every worksheet line to a new bid and prices it.
// Rejected lines are reported to out and skipped.
func buildEstimate(out io.Writer, e *estimate.Engine, ws *worksheet, overhead, profit float64) (*estimateResult, error) {
	bid := e.StartBid(ws.Name, ws.Difficulty)
	res := &estimateResult{Bid: bid}

	for _, item := range ws.Items {
		if err := e.AddAssembly(bid, item.SKU, item.Qty); err != nil {
			res.Rejected++
			_, _ = fmt.Fprintf(out, "SKIPPED %s x%d: %v\n", item.SKU, item.Qty, err)
		}
	}

	recap, err := e.ComputeRecap(bid, overhead, profit)
	if err != nil {
		return nil, err
	}
	res.Recap = recap
	return res, nil
}

// writeStrategy scores the job and recommends a margin over break-even.
func writeStrategy(out io.Writer, p *scorer.Predictor, client, jobType string, recap *model.Recap) error {
	report := p.Predict(client, jobType, recap.SellPrice)
	rec, err := strategy.Recommend(recap.BreakEven, report)
	if err != nil {
		return err
	}
	writeReport(out, report)
	writeRecommendation(out, rec)
	return nil
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Price a takeoff worksheet and print the recap and proposal",
	Long: `Price a takeoff worksheet and print the recap and proposal.

Examples:
  # Price with the configured markup
  estimate --file reno.yaml

  # What-if pricing with a fatter profit, exported to Excel
  estimate --file reno.yaml --profit 20 --xlsx reno.xlsx

  # Save the bid and recap to the store
  estimate --file reno.yaml --save`,
	RunE: runEstimate,
}

func init() {
	f := estimateCmd.Flags()
	f.String("file", "", "worksheet YAML path (required)")
	f.Float64("overhead", -1, "overhead percent (default from config)")
	f.Float64("profit", -1, "profit percent (default from config)")
	f.String("xlsx", "", "write the recap workbook to this path")
	f.Bool("save", false, "save the bid and recap to the store")
	_ = estimateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := cfg.Validate("estimate"); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	overhead, _ := cmd.Flags().GetFloat64("overhead")
	profit, _ := cmd.Flags().GetFloat64("profit")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	save, _ := cmd.Flags().GetBool("save")

	if !cmd.Flags().Changed("overhead") {
		overhead = cfg.Markup.OverheadPercent
	}
	if !cmd.Flags().Changed("profit") {
		profit = cfg.Markup.ProfitPercent
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read worksheet %s", path)
	}
	ws, err := parseWorksheet(data)
	if err != nil {
		return err
	}

	env, err := initEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	out := cmd.OutOrStdout()
	res, err := buildEstimate(out, env.Engine, ws, overhead, profit)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, proposal.Summary(res.Recap))
	_, _ = fmt.Fprintln(out, proposal.Render(res.Recap))

	if ws.Client != "" && ws.JobType != "" {
		if err := writeStrategy(out, env.Predictor, ws.Client, ws.JobType, res.Recap); err != nil {
			return err
		}
	}

	if xlsxPath != "" {
		if err := proposal.WriteXLSX(xlsxPath, res.Recap, res.Bid.Lines()); err != nil {
			return err
		}
		zap.L().Info("recap workbook written", zap.String("path", xlsxPath))
	}

	if save {
		if env.Store == nil {
			return eris.New("--save requires store.driver (BID_STORE_DRIVER)")
		}
		if err := env.Store.SaveBid(ctx, res.Bid); err != nil {
			return err
		}
		if err := env.Store.SaveRecap(ctx, *res.Recap); err != nil {
			return err
		}
		zap.L().Info("bid saved", zap.String("bid_id", res.Bid.ID))
	}

	zap.L().Info("estimate complete",
		zap.String("bid_id", res.Bid.ID),
		zap.Int("lines", len(res.Bid.Items)),
		zap.Int("rejected", res.Rejected),
	)
	return nil
}
