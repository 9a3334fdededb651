package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"bizreports/internal/domain/reports"
)

var pdfTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
@page { size: A4 {{.Orientation}}; margin: 12mm; }
body { font-family: {{.Header.FontFamily}}, sans-serif; font-size: 10pt; }
h2 { font-size: 12pt; margin: 16px 0 6px; }
table { border-collapse: collapse; width: 100%; page-break-inside: auto; }
thead { display: table-header-group; }
th { background: {{.Header.Background}}; color: {{.Header.FontColor}}; font-size: {{.Header.FontSize}}pt; {{if .Header.Bold}}font-weight: bold;{{end}} text-align: left; padding: 4px 6px; }
td { padding: 3px 6px; white-space: nowrap; }
{{if .Thin}}th, td { border: 1px solid #000000; }{{end}}
</style>
</head>
<body>
{{range .Tables}}
<h2>{{.Name}}</h2>
<table>
{{with .Header}}<thead><tr>{{range .}}<th>{{.}}</th>{{end}}</tr></thead>{{end}}
<tbody>
{{range .Body}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}
</body>
</html>
`))

type pdfTable struct {
	Name   string
	Header reports.Row
	Body   []reports.Row
}

type pdfPage struct {
	reports.Style
	Thin   bool
	Tables []pdfTable
}

// PDFBackend renders tables to HTML and converts them with an HTMLRenderer.
type PDFBackend struct {
	Renderer HTMLRenderer
}

func (*PDFBackend) ContentType() string { return "application/pdf" }
func (*PDFBackend) Extension() string   { return "pdf" }

func (p *PDFBackend) Write(ctx context.Context, w io.Writer, tables []reports.Table) error {
	if p == nil || p.Renderer == nil {
		return fmt.Errorf("pdf renderer not configured")
	}

	html, err := renderHTML(tables)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	style := pageStyle(tables)
	pdf, err := p.Renderer.RenderHTML(ctx, html, RenderOptions{Landscape: style.Orientation == "landscape"})
	if err != nil {
		return err
	}
	_, err = w.Write(pdf)
	return err
}

func pageStyle(tables []reports.Table) reports.Style {
	if len(tables) == 0 {
		return reports.DefaultStyle(reports.BorderThin)
	}
	return tables[0].Style
}

func renderHTML(tables []reports.Table) (string, error) {
	style := pageStyle(tables)
	page := pdfPage{
		Style: style,
		Thin:  style.Borders == reports.BorderThin,
	}
	for _, t := range tables {
		pt := pdfTable{Name: t.Name, Header: t.Header()}
		if len(t.Rows) > 1 {
			pt.Body = t.Rows[1:]
		}
		page.Tables = append(page.Tables, pt)
	}

	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
