package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // default ','
	HasHeader bool // skip the first row
	Comment   rune // 0 disables comments
	TrimSpace bool
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = true
	// vendor files and history exports often omit trailing empty columns
	reader.FieldsPerRecord = -1
	return reader
}

// StreamCSV parses r on a goroutine and sends each row on the first channel.
// Both channels close when parsing stops; the error channel carries at most
// one error, for a malformed file or a cancelled ctx.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(rowCh)

		reader := newCSVReader(r, opts)
		skip := opts.HasHeader
		for line := 1; ; line++ {
			if err := ctx.Err(); err != nil {
				errCh <- eris.Wrap(err, "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			switch {
			case errors.Is(err, io.EOF):
				return
			case err != nil:
				errCh <- eris.Wrapf(err, "csv: read row %d", line)
				return
			case skip:
				skip = false
				continue
			}

			if opts.TrimSpace {
				for i := range record {
					record[i] = strings.TrimSpace(record[i])
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// Collect drains StreamCSV's channels into a slice. Rows read before an
// error are returned with it.
func Collect(rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return rows, err
	}
	return rows, nil
}
