package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"dupdrive/internal/dedupe"
)

// CSVHeader is the first row of the pair report.
var CSVHeader = []string{"filename", "path1", "path2", "date1", "date2", "md5", "size", "status"}

// WriteCSV writes the header and one line per pair row.
func WriteCSV(w io.Writer, rows []dedupe.PairRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{r.Filename, r.Path1, r.Path2, r.Date1, r.Date2, r.Checksum, r.Size, r.Status}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
