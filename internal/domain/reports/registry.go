package reports

import (
	"strings"

	"bizreports/internal/core/apperror"
)

type registryEntry struct {
	canonical string
	factory   Factory
}

// registry is the closed set of report kinds. Nothing registers at runtime.
var registry = map[ReportType]registryEntry{
	TypeActivity:      {"ActivityReport", newActivityReport},
	TypeAging:         {"AgingReport", newAgingReport},
	TypeClient:        {"ClientReport", newClientReport},
	TypeDocument:      {"DocumentReport", newDocumentReport},
	TypeExpense:       {"ExpenseReport", newExpenseReport},
	TypeInvoice:       {"InvoiceReport", newInvoiceReport},
	TypePayment:       {"PaymentReport", newPaymentReport},
	TypeProduct:       {"ProductReport", newProductReport},
	TypeProfitAndLoss: {"ProfitAndLossReport", newProfitAndLossReport},
	TypeTask:          {"TaskReport", newTaskReport},
	TypeTaxRate:       {"TaxRateReport", newTaxRateReport},
	TypeQuote:         {"QuoteReport", newQuoteReport},
}

// Types returns every report kind in display order.
func Types() []ReportType {
	return []ReportType{
		TypeActivity,
		TypeAging,
		TypeClient,
		TypeDocument,
		TypeExpense,
		TypeInvoice,
		TypePayment,
		TypeProduct,
		TypeProfitAndLoss,
		TypeTask,
		TypeTaxRate,
		TypeQuote,
	}
}

// NormalizeType trims and lowercases a raw report type identifier.
func NormalizeType(raw string) ReportType {
	return ReportType(strings.ToLower(strings.TrimSpace(raw)))
}

// Resolve maps a report type identifier to its factory.
func Resolve(raw string) (ReportType, Factory, error) {
	t := NormalizeType(raw)
	entry, ok := registry[t]
	if !ok {
		return "", nil, apperror.NewConfiguration(raw)
	}
	return t, entry.factory, nil
}

// CanonicalName returns the runner name of t, e.g. profit_and_loss -> ProfitAndLossReport.
func CanonicalName(t ReportType) (string, error) {
	entry, ok := registry[NormalizeType(string(t))]
	if !ok {
		return "", apperror.NewConfiguration(string(t))
	}
	return entry.canonical, nil
}

// StudlyName converts a snake_case identifier into StudlyCase.
func StudlyName(snake string) string {
	var b strings.Builder
	for _, part := range strings.Split(snake, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
