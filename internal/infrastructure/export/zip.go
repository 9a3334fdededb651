package export

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"

	"bizreports/internal/domain/reports"
)

// ZipBackend packs every table as its own CSV entry.
type ZipBackend struct {
	// Now stamps entry modification times; defaults to time.Now.
	Now func() time.Time
}

func (ZipBackend) ContentType() string { return "application/zip" }
func (ZipBackend) Extension() string   { return "zip" }

func (z ZipBackend) Write(ctx context.Context, w io.Writer, tables []reports.Table) error {
	now := time.Now
	if z.Now != nil {
		now = z.Now
	}

	zw := zip.NewWriter(w)
	used := make(map[string]int, len(tables))
	for _, table := range tables {
		name := entryName(table.Name, used)
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: now(),
		})
		if err != nil {
			return err
		}
		if err := writeCSV(ctx, fw, []reports.Table{table}); err != nil {
			return err
		}
	}
	return zw.Close()
}

// entryName derives a unique file name for a table inside the archive.
func entryName(tableName string, used map[string]int) string {
	base := reports.Slug(tableName)
	if base == "" {
		base = "table"
	}
	used[base]++
	if n := used[base]; n > 1 {
		base = base + "-" + strconv.Itoa(n)
	}
	return base + ".csv"
}
