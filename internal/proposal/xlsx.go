package proposal

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/model"
)

const moneyFormat = "#,##0.00"

// Sheet names in an exported workbook.
const (
	RecapSheet = "Recap"
	LinesSheet = "Lines"
)

// WriteXLSX exports a recap and its line items to a workbook at path.
func WriteXLSX(path string, r *model.Recap, lines []model.LineItem) error {
	f := xlsx.NewFile()

	recap, err := f.AddSheet(RecapSheet)
	if err != nil {
		return eris.Wrap(err, "proposal: add recap sheet")
	}
	addText(recap, "Project", r.Project)
	addText(recap, "Bid", r.BidID)
	addMoney(recap, "Material", r.MaterialTotal)
	addNumber(recap, "Labor hours (base)", r.LaborHoursBase)
	addNumber(recap, "Labor hours (adjusted)", r.LaborHoursAdjusted)
	addMoney(recap, "Burdened rate", r.BurdenedRate)
	addMoney(recap, "Labor", r.LaborCost)
	addMoney(recap, "Raw cost", r.RawCost)
	addNumber(recap, "Overhead %", r.OverheadPercent)
	addMoney(recap, "Overhead", r.OverheadAmount)
	addMoney(recap, "Break-even", r.BreakEven)
	addNumber(recap, "Profit %", r.ProfitPercent)
	addMoney(recap, "Profit", r.ProfitAmount)
	addMoney(recap, "Sell price", r.SellPrice)
	addNumber(recap, "Margin %", r.MarginPercent)

	sheet, err := f.AddSheet(LinesSheet)
	if err != nil {
		return eris.Wrap(err, "proposal: add lines sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"SKU", "Name", "Qty", "Material Unit", "Labor Unit Hrs", "Material Ext", "Labor Ext Hrs"} {
		header.AddCell().SetString(h)
	}
	for _, li := range lines {
		row := sheet.AddRow()
		row.AddCell().SetString(li.SKU)
		row.AddCell().SetString(li.Name)
		row.AddCell().SetInt(li.Quantity)
		row.AddCell().SetFloatWithFormat(li.MaterialUnitCost, moneyFormat)
		row.AddCell().SetFloat(li.LaborUnitHours)
		row.AddCell().SetFloatWithFormat(li.MaterialExtended, moneyFormat)
		row.AddCell().SetFloat(li.LaborExtended)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "proposal: save %s", path)
	}

	zap.L().Info("proposal: workbook written",
		zap.String("path", path),
		zap.String("bid_id", r.BidID),
		zap.Int("lines", len(lines)),
	)
	return nil
}

func addText(s *xlsx.Sheet, label, v string) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString(v)
}

func addMoney(s *xlsx.Sheet, label string, v float64) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloatWithFormat(v, moneyFormat)
}

func addNumber(s *xlsx.Sheet, label string, v float64) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloat(v)
}
