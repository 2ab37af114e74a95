// Package proposal renders priced recaps for clients and estimators.
package proposal

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bid-cli/internal/cost"
	"github.com/sells-group/bid-cli/internal/model"
)

// Exclusions are listed on every proposal.
var Exclusions = []string{
	"Overtime",
	"Utility Company Fees",
	"Painting or Patching",
}

const rule = "--------------------------------------------------"

// Render produces the client-facing proposal letter for a recap.
func Render(r *model.Recap) string {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	b.WriteString("PROPOSAL FOR: " + r.Project + "\n")
	b.WriteString(rule + "\n")
	b.WriteString("SCOPE OF WORK:\n")
	b.WriteString("Furnish and install electrical systems as estimated.\n")
	b.WriteString("Includes " + Hours(r.LaborHoursAdjusted) + " man-hours of labor.\n\n")
	b.WriteString("EXCLUSIONS:\n")
	for _, e := range Exclusions {
		b.WriteString("- " + e + "\n")
	}
	b.WriteString("\n")
	b.WriteString(p.Sprintf("TOTAL PRICE: $%.2f\n", cost.RoundCents(r.SellPrice)))
	b.WriteString(rule + "\n")
	b.WriteString("Authorized Signature: __________________________\n")
	return b.String()
}

// Hours formats labor hours to at most two decimals without trailing zeros.
func Hours(h float64) string {
	return strconv.FormatFloat(cost.RoundCents(h), 'f', -1, 64)
}

// Money formats an amount with thousands separators, e.g. $14,464.08.
func Money(v float64) string {
	return message.NewPrinter(language.English).Sprintf("$%.2f", cost.RoundCents(v))
}

// Summary renders the estimator's recap table.
func Summary(r *model.Recap) string {
	rows := [][2]string{
		{"Project", r.Project},
		{"Bid", r.BidID},
		{"Material", Money(r.MaterialTotal)},
		{"Labor hours (base)", Hours(r.LaborHoursBase)},
		{"Labor hours (adjusted)", Hours(r.LaborHoursAdjusted)},
		{"Burdened rate", Money(r.BurdenedRate) + "/hr"},
		{"Labor", Money(r.LaborCost)},
		{"Raw cost", Money(r.RawCost)},
		{"Overhead " + Hours(r.OverheadPercent) + "%", Money(r.OverheadAmount)},
		{"Break-even", Money(r.BreakEven)},
		{"Profit " + Hours(r.ProfitPercent) + "%", Money(r.ProfitAmount)},
		{"Sell price", Money(r.SellPrice)},
		{"Margin", Hours(r.MarginPercent) + "%"},
	}

	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(row[0])
		b.WriteString(strings.Repeat(" ", width-len(row[0])+2))
		b.WriteString(row[1])
		b.WriteString("\n")
	}
	return b.String()
}
