package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"

	"bizreports/internal/domain/reports"
)

const csvBufferSize = 32 * 1024

// CSVBackend writes tables as comma separated values. Consecutive tables are separated
// by a blank line; the report pipeline hands it a single table.
type CSVBackend struct{}

func (CSVBackend) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVBackend) Extension() string   { return "csv" }

func (CSVBackend) Write(ctx context.Context, w io.Writer, tables []reports.Table) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	if err := writeCSV(ctx, buf, tables); err != nil {
		return err
	}
	return buf.Flush()
}

func writeCSV(ctx context.Context, w io.Writer, tables []reports.Table) error {
	writer := csv.NewWriter(w)
	for i, table := range tables {
		if i > 0 {
			if err := writer.Write(nil); err != nil {
				return err
			}
		}
		for _, row := range table.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
