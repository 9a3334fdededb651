// Package export serializes assembled report tables into csv, xlsx, pdf and zip files.
package export

import (
	"bytes"
	"context"
	"io"

	"bizreports/internal/core/apperror"
	"bizreports/internal/domain/reports"
)

// Backend writes tables in one file format.
type Backend interface {
	Write(ctx context.Context, w io.Writer, tables []reports.Table) error
	ContentType() string
	Extension() string
}

// Exporter dispatches tables to the backend of the requested format.
type Exporter struct {
	backends map[reports.Format]Backend
}

// New creates an exporter over explicit backends.
func New(backends map[reports.Format]Backend) *Exporter {
	return &Exporter{backends: backends}
}

// NewDefault wires every supported format. PDF goes through renderer.
func NewDefault(renderer HTMLRenderer) *Exporter {
	return New(map[reports.Format]Backend{
		reports.FormatCSV:  CSVBackend{},
		reports.FormatXLSX: XLSXBackend{},
		reports.FormatPDF:  &PDFBackend{Renderer: renderer},
		reports.FormatZIP:  ZipBackend{},
	})
}

func (e *Exporter) backend(format reports.Format) (Backend, error) {
	f, err := reports.ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	b, ok := e.backends[f]
	if !ok {
		return nil, apperror.NewUnsupportedFormat(string(format), nil)
	}
	return b, nil
}

// Describe validates format and returns the artifact metadata without writing anything.
func (e *Exporter) Describe(format reports.Format, filename string) (reports.Artifact, error) {
	b, err := e.backend(format)
	if err != nil {
		return reports.Artifact{}, err
	}
	return reports.Artifact{
		Filename:    filename + "." + b.Extension(),
		ContentType: b.ContentType(),
	}, nil
}

// Export renders the whole file in memory, so a failing backend never leaves a partial file.
func (e *Exporter) Export(ctx context.Context, tables []reports.Table, format reports.Format, filename string) (*reports.Artifact, error) {
	meta, err := e.Describe(format, filename)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := e.ExportTo(ctx, &buf, tables, format); err != nil {
		return nil, err
	}

	meta.Body = buf.Bytes()
	return &meta, nil
}

// ExportTo streams the file into w.
func (e *Exporter) ExportTo(ctx context.Context, w io.Writer, tables []reports.Table, format reports.Format) error {
	b, err := e.backend(format)
	if err != nil {
		return err
	}
	if err := b.Write(ctx, w, tables); err != nil {
		return apperror.NewExport(string(format), err)
	}
	return nil
}

var _ reports.Exporter = (*Exporter)(nil)
