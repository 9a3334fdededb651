package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"bizreports/internal/domain/reports"
)

const (
	maxSheetName = 31
	maxColWidth  = 80.0
)

// XLSXBackend writes one worksheet per table.
type XLSXBackend struct{}

func (XLSXBackend) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXBackend) Extension() string { return "xlsx" }

func (XLSXBackend) Write(ctx context.Context, w io.Writer, tables []reports.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	used := make(map[string]bool, len(tables))

	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := sheetName(table.Name, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, table); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, table reports.Table) error {
	widths := make([]int, 0)
	for r, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := []string(row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		for c, v := range row {
			if c >= len(widths) {
				widths = append(widths, make([]int, c-len(widths)+1)...)
			}
			if n := utf8.RuneCountInString(v); n > widths[c] {
				widths[c] = n
			}
		}
	}

	style := table.Style
	if len(table.Rows) > 0 && len(table.Rows[0]) > 0 {
		headerID, err := f.NewStyle(headerStyle(style))
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(table.Rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerID); err != nil {
			return err
		}
	}

	if style.Borders == reports.BorderThin && len(table.Rows) > 1 && len(widths) > 0 {
		bodyID, err := f.NewStyle(&excelize.Style{Border: thinBorders()})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(widths), len(table.Rows))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A2", last, bodyID); err != nil {
			return err
		}
	}

	if style.FreezeFirstRow {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	if style.Orientation != "" {
		orientation := style.Orientation
		if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{Orientation: &orientation}); err != nil {
			return err
		}
	}

	if style.AutoSize {
		for c, n := range widths {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return err
			}
			width := float64(n) + 2
			if width > maxColWidth {
				width = maxColWidth
			}
			if err := f.SetColWidth(sheet, col, col, width); err != nil {
				return err
			}
		}
	}
	return nil
}

func headerStyle(style reports.Style) *excelize.Style {
	h := style.Header
	s := &excelize.Style{
		Font: &excelize.Font{
			Bold:   h.Bold,
			Family: h.FontFamily,
			Size:   float64(h.FontSize),
			Color:  h.FontColor,
		},
	}
	if h.Background != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{h.Background}}
	}
	if style.Borders == reports.BorderThin {
		s.Border = thinBorders()
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "right", "bottom"}
	out := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return out
}

// sheetName strips characters Excel rejects, truncates to 31 runes and keeps names unique.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Sheet"
	}
	clean = truncateRunes(clean, maxSheetName)

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
