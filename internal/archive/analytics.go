package archive

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bid-cli/internal/model"
)

// Ratio is the overall batting average of the archive.
type Ratio struct {
	Wins    int     `json:"wins"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// String formats the ratio as "62.5% (5/8)".
func (r Ratio) String() string {
	return fmt.Sprintf("%.1f%% (%d/%d)", r.Percent, r.Wins, r.Total)
}

// WinRatio computes wins over all archived results.
func WinRatio(records []model.HistoricalBid) Ratio {
	r := Ratio{Total: len(records)}
	for _, rec := range records {
		if rec.Outcome == model.OutcomeWon {
			r.Wins++
		}
	}
	if r.Total > 0 {
		r.Percent = float64(r.Wins) / float64(r.Total) * 100
	}
	return r
}

// CompetitorReport is the loss history against one rival.
type CompetitorReport struct {
	Name             string  `json:"competitor"`
	TimesLostTo      int     `json:"times_lost_to"`
	AverageLossValue float64 `json:"average_loss_value"`
	Summary          string  `json:"summary"`
}

// Competitor summarizes the bids lost to name. Matching ignores case.
func Competitor(records []model.HistoricalBid, name string) CompetitorReport {
	name = strings.ToUpper(strings.TrimSpace(name))
	report := CompetitorReport{Name: name}

	var total float64
	for _, rec := range records {
		if rec.Outcome != model.OutcomeLost || !strings.EqualFold(rec.CompetitorName(), name) {
			continue
		}
		report.TimesLostTo++
		total += rec.Value
	}

	if report.TimesLostTo == 0 {
		report.Summary = "Unknown rival. No recorded losses against " + name + "."
		return report
	}

	report.AverageLossValue = total / float64(report.TimesLostTo)
	p := message.NewPrinter(language.English)
	report.Summary = p.Sprintf("Dangerous. Lost %d jobs to %s, average value $%.2f.",
		report.TimesLostTo, name, report.AverageLossValue)
	return report
}

// WinRatio computes the ratio over the current snapshot.
func (a *Archive) WinRatio() Ratio {
	return WinRatio(a.Snapshot())
}

// Competitor reports on name over the current snapshot.
func (a *Archive) Competitor(name string) CompetitorReport {
	return Competitor(a.Snapshot(), name)
}
