package reports

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizreports/internal/core/apperror"
	"bizreports/internal/core/tx"
	"bizreports/internal/domain/currency"
	"bizreports/pkg/logger"
)

var tracer trace.Tracer = otel.Tracer("bizreports/reports")

// Artifact is a finished export file.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Exporter serializes assembled tables into a file of the given format.
type Exporter interface {
	Export(ctx context.Context, tables []Table, format Format, filename string) (*Artifact, error)
}

// Observer receives run and export outcomes.
type Observer interface {
	ReportRun(reportType, outcome string, elapsed time.Duration)
	ReportExport(format, outcome string)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) ReportRun(string, string, time.Duration) {}
func (NopObserver) ReportExport(string, string)              {}

// Report is a completed run, ready to render or export.
type Report struct {
	Type    ReportType
	Title   string
	Request Request
	Columns []Column
	Rows    []Row
	Summary Summary
	Chart   []ChartPoint
}

// ServiceConfig holds report pipeline settings.
type ServiceConfig struct {
	ProductName  string
	StrictTotals bool
	Now          func() time.Time
}

// Service runs reports end to end: resolve, read, aggregate, assemble and export.
type Service struct {
	deps       Deps
	txm        tx.ReadOnlyManager
	aggregator *Aggregator
	exporter   Exporter
	observer   Observer
	product    string
	log        *logger.Logger
}

// NewService creates the report service.
func NewService(
	source Source,
	currencies currency.Lookup,
	txm tx.ReadOnlyManager,
	exporter Exporter,
	observer Observer,
	cfg ServiceConfig,
) *Service {
	if observer == nil {
		observer = NopObserver{}
	}
	if txm == nil {
		txm = tx.Passthrough{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	product := cfg.ProductName
	if product == "" {
		product = "invoiceninja"
	}
	return &Service{
		deps:       Deps{Source: source, Currencies: currencies, Now: now},
		txm:        txm,
		aggregator: NewAggregator(currencies, cfg.StrictTotals),
		exporter:   exporter,
		observer:   observer,
		product:    product,
		log:        logger.Default().WithComponent("reports"),
	}
}

// WithLogger replaces the component logger.
func (s *Service) WithLogger(l *logger.Logger) *Service {
	s.log = l.WithComponent("reports")
	return s
}

// Run resolves the report kind, runs it read-only and flattens its totals.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	reportType, factory, err := Resolve(string(req.ReportType))
	if err != nil {
		s.observer.ReportRun(string(req.ReportType), outcomeOf(err), 0)
		return nil, err
	}
	req.ReportType = reportType

	if err := req.Validate(); err != nil {
		s.observer.ReportRun(string(reportType), outcomeOf(err), 0)
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "reports.Run", trace.WithAttributes(
		attribute.String("report.type", string(reportType)),
		attribute.String("report.start", req.StartDate.Format(DateLayout)),
		attribute.String("report.end", req.EndDate.Format(DateLayout)),
		attribute.Bool("report.export", req.IsExport),
	))
	defer span.End()

	started := time.Now()
	report, err := s.run(ctx, reportType, factory, req)
	elapsed := time.Since(started)
	s.observer.ReportRun(string(reportType), outcomeOf(err), elapsed)

	log := s.log.WithContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if apperror.GetHTTPStatus(err) < 500 {
			log.Warnw("report run rejected", "report_type", reportType, "error", err)
		} else {
			log.Errorw("report run failed", "report_type", reportType, "error", err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("report.rows", len(report.Rows)))
	log.Infow("report run",
		"report_type", reportType,
		"start_date", req.StartDate.Format(DateLayout),
		"end_date", req.EndDate.Format(DateLayout),
		"rows", len(report.Rows),
		"totals", len(report.Summary.Rows),
		"duration_ms", elapsed.Milliseconds(),
	)
	return report, nil
}

func (s *Service) run(ctx context.Context, reportType ReportType, factory Factory, req Request) (*Report, error) {
	var result *Result
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = factory(s.deps).Run(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("run %s report: %w", reportType, err)
	}

	summary, err := s.aggregator.Flatten(ctx, result.Totals)
	if err != nil {
		return nil, err
	}

	return &Report{
		Type:    reportType,
		Title:   reportType.Title(),
		Request: req,
		Columns: result.Columns,
		Rows:    result.Rows,
		Summary: summary,
		Chart:   result.Chart,
	}, nil
}

// Export runs the report in export mode and serializes it. An unsupported format is
// rejected before the report runs.
func (s *Service) Export(ctx context.Context, req Request) (*Artifact, error) {
	format, err := ParseFormat(string(req.ExportFormat))
	if err != nil {
		s.observer.ReportExport(string(req.ExportFormat), outcomeOf(err))
		return nil, err
	}
	req.ExportFormat = format
	req.IsExport = true

	report, err := s.Run(ctx, req)
	if err != nil {
		s.observer.ReportExport(string(format), outcomeOf(err))
		return nil, err
	}

	tables, err := Assemble(report.Type, report.Columns, report.Rows, report.Summary, format)
	if err != nil {
		s.observer.ReportExport(string(format), outcomeOf(err))
		return nil, err
	}

	filename := Filename(req.StartDate, req.EndDate, s.product, report.Title)

	ctx, span := tracer.Start(ctx, "reports.Export", trace.WithAttributes(
		attribute.String("report.type", string(report.Type)),
		attribute.String("export.format", string(format)),
	))
	defer span.End()

	artifact, err := s.exporter.Export(ctx, tables, format, filename)
	s.observer.ReportExport(string(format), outcomeOf(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.WithContext(ctx).Errorw("report export failed",
			"report_type", report.Type, "format", format, "error", err)
		return nil, err
	}

	s.log.WithContext(ctx).Infow("report exported",
		"report_type", report.Type,
		"format", format,
		"filename", artifact.Filename,
		"bytes", len(artifact.Body),
	)
	return artifact, nil
}

// Filename derives the export name for req with the configured product.
func (s *Service) Filename(req Request) string {
	return Filename(req.StartDate, req.EndDate, s.product, NormalizeType(string(req.ReportType)).Title())
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Code
	}
	return apperror.CodeInternal
}
