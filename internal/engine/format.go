package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Scale selects how a ranking value is rendered into its label.
type Scale string

const (
	ScaleMillions  Scale = "millions"
	ScaleThousands Scale = "thousands"
	ScaleCurrency  Scale = "currency"
	ScaleQuantity  Scale = "quantity"
)

func (s Scale) Valid() bool {
	switch s {
	case ScaleMillions, ScaleThousands, ScaleCurrency, ScaleQuantity:
		return true
	}
	return false
}

// Formatter renders rounded values for display. It carries its own locale
// and currency symbol so nothing depends on process-wide locale state.
// The zero value formats as en-US dollars.
type Formatter struct {
	Symbol string
	tag    language.Tag
	set    bool
}

func NewFormatter(locale, symbol string) (Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Formatter{}, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return Formatter{Symbol: symbol, tag: tag, set: true}, nil
}

func DefaultFormatter() Formatter {
	return Formatter{Symbol: "$", tag: language.AmericanEnglish, set: true}
}

func (f Formatter) printer() *message.Printer {
	if !f.set {
		return message.NewPrinter(language.AmericanEnglish)
	}
	return message.NewPrinter(f.tag)
}

func (f Formatter) symbol() string {
	if !f.set && f.Symbol == "" {
		return "$"
	}
	return f.Symbol
}

// Quantity formats a count with grouping and no decimals: 12,345.
func (f Formatter) Quantity(v float64) string {
	n := decimal.NewFromFloat(v).Round(0).IntPart()
	return f.printer().Sprintf("%d", n)
}

// Currency formats with grouping and two decimals: $1,234,567.89.
func (f Formatter) Currency(v float64) string {
	return f.symbol() + f.printer().Sprintf("%.2f", Round2(v))
}

// Millions formats as $1.23M.
func (f Formatter) Millions(v float64) string {
	return f.symbol() + f.printer().Sprintf("%.2f", Round2(v/1e6)) + "M"
}

// Thousands formats as $1.23K.
func (f Formatter) Thousands(v float64) string {
	return f.symbol() + f.printer().Sprintf("%.2f", Round2(v/1e3)) + "K"
}

// Rate formats a percentage as 60.00 %.
func (f Formatter) Rate(v float64) string {
	return f.printer().Sprintf("%.2f", Round2(v)) + " %"
}

// Days formats a duration as 3.52 days.
func (f Formatter) Days(v float64) string {
	return f.printer().Sprintf("%.2f", Round2(v)) + " days"
}

func (f Formatter) Scaled(s Scale, v float64) string {
	switch s {
	case ScaleMillions:
		return f.Millions(v)
	case ScaleThousands:
		return f.Thousands(v)
	case ScaleQuantity:
		return f.Quantity(v)
	default:
		return f.Currency(v)
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
