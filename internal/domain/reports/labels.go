package reports

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labels = map[string]string{
	"totals":          "Totals",
	"count":           "Count",
	"amount":          "Amount",
	"paid":            "Paid",
	"balance":         "Balance",
	"revenue":         "Revenue",
	"expenses":        "Expenses",
	"profit":          "Profit",
	"duration":        "Duration",
	"tax":             "Tax",
	"client":          "Client",
	"vendor":          "Vendor",
	"invoice_number":  "Invoice Number",
	"quote_number":    "Quote Number",
	"invoice_date":    "Invoice Date",
	"quote_date":      "Quote Date",
	"due_date":        "Due Date",
	"payment_date":    "Payment Date",
	"expense_date":    "Expense Date",
	"method":          "Method",
	"status":          "Status",
	"age":             "Age",
	"category":        "Category",
	"public_notes":    "Public Notes",
	"private_notes":   "Private Notes",
	"product":         "Product",
	"description":     "Description",
	"qty":             "Qty",
	"cost":            "Cost",
	"tax_name":        "Tax Name",
	"tax_rate":        "Tax Rate",
	"project":         "Project",
	"date":            "Date",
	"user":            "User",
	"activity":        "Activity",
	"document":        "Document",
	"type":            "Type",
	"size":            "Size",
	"record":          "Record",
	"profit_and_loss": "Profit and Loss",
	"payment":         "Payment",
	"expense":         "Expense",
	"invoice":         "Invoice",
	"quote":           "Quote",
	"task":            "Task",
	"aging":           "Aging",
	"id_number":       "ID Number",
	"contact":         "Contact",
	"email":           "Email",
}

var titleCaser = cases.Title(language.English)

// Label translates key into its display label. Unknown keys are title-cased with
// underscores turned into spaces.
func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// Title returns the display title of a report type.
func (t ReportType) Title() string {
	return Label(string(t))
}

// DataSheetName names the data table of a report.
func DataSheetName(t ReportType) string {
	return string(t) + " data"
}

// TotalsSheetName names the separate summary table.
const TotalsSheetName = "Totals"
