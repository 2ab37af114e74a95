package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet to read. SheetName wins over SheetIndex.
type XLSXOptions struct {
	SheetIndex int
	SheetName  string
	SkipRows   int // header rows
}

// ReadXLSX returns the rows of a worksheet as trimmed strings. Blank rows,
// which hand-kept bid logs tend to have between sections, are dropped, and
// trailing empty cells are cut so a row's length is its last filled column.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	sheet, err := pickSheet(wb, opts)
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		if i < opts.SkipRows || row == nil {
			continue
		}
		if cells := cellValues(row); len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return out, nil
}

func pickSheet(wb *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		if sheet, ok := wb.Sheet[opts.SheetName]; ok {
			return sheet, nil
		}
		return nil, eris.Errorf("xlsx: no sheet named %q", opts.SheetName)
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(wb.Sheets) {
		return nil, eris.Errorf("xlsx: sheet %d of %d does not exist", opts.SheetIndex, len(wb.Sheets))
	}
	return wb.Sheets[opts.SheetIndex], nil
}

func cellValues(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	last := -1
	for i, c := range row.Cells {
		cells[i] = strings.TrimSpace(c.String())
		if cells[i] != "" {
			last = i
		}
	}
	return cells[:last+1]
}
