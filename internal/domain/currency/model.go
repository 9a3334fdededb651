// Package currency provides the Currency reference data used to label and format report totals.
package currency

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bizreports/internal/core/apperror"
)

// Currency represents a monetary unit and its display conventions.
type Currency struct {
	ID int64 `db:"id" json:"id"`

	// Name is the display name used in totals rows (e.g., "US Dollar")
	Name string `db:"name" json:"name"`

	// Code is the ISO 4217 alphabetic code (e.g., "USD", "EUR")
	Code string `db:"code" json:"code"`

	// Symbol is the currency symbol (e.g., "$", "€")
	Symbol string `db:"symbol" json:"symbol"`

	// Precision is the number of decimal places
	Precision int `db:"precision" json:"precision"`

	ThousandSeparator string `db:"thousand_separator" json:"thousandSeparator"`
	DecimalSeparator  string `db:"decimal_separator" json:"decimalSeparator"`

	// SwapSymbol places the symbol after the amount
	SwapSymbol bool `db:"swap_currency_symbol" json:"swapCurrencySymbol"`
}

// Lookup resolves currencies by id.
type Lookup interface {
	Get(ctx context.Context, id int64) (*Currency, error)
}

var isoCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate checks reference data loaded from storage.
func (c *Currency) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("currency name is required").
			WithDetail("field", "name").
			WithDetail("id", c.ID)
	}
	if !isoCodePattern.MatchString(c.Code) {
		return apperror.NewValidation("ISO code must be 3 uppercase letters").
			WithDetail("field", "code").
			WithDetail("value", c.Code)
	}
	if c.Precision < 0 || c.Precision > 8 {
		return apperror.NewValidation("precision must be between 0 and 8").
			WithDetail("field", "precision")
	}
	return nil
}

// Format renders amount with the currency's precision, separators and symbol.
func (c *Currency) Format(amount decimal.Decimal) string {
	places := int32(c.Precision)
	fixed := amount.Abs().StringFixed(places)

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	thousand := c.ThousandSeparator
	if thousand == "" {
		thousand = ","
	}
	dec := c.DecimalSeparator
	if dec == "" {
		dec = "."
	}

	var b strings.Builder
	if amount.Round(places).IsNegative() {
		b.WriteByte('-')
	}
	if c.Symbol != "" && !c.SwapSymbol {
		b.WriteString(c.Symbol)
	}
	b.WriteString(groupThousands(intPart, thousand))
	if fracPart != "" {
		b.WriteString(dec)
		b.WriteString(fracPart)
	}
	if c.Symbol != "" && c.SwapSymbol {
		b.WriteByte(' ')
		b.WriteString(c.Symbol)
	}
	return b.String()
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
