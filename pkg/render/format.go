package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Dash stands in for an undefined value.
const Dash = "-"

var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// Title title-cases s ("BULLISH" -> "Bullish").
func Title(s string) string {
	return titler.String(s)
}

// Currency formats v as US dollars with thousands separators.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Dash
	}
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// Price formats a unit price, keeping more decimals below one dollar.
func Price(v float64) string {
	if v > 0 && v < 1 {
		return "$" + strconv.FormatFloat(v, 'f', 6, 64)
	}
	return Currency(v)
}

// CurrencyDecimal formats an exact decimal amount as US dollars.
func CurrencyDecimal(d decimal.Decimal) string {
	return Currency(d.Round(2).InexactFloat64())
}

// WholeCurrency formats v as dollars without cents.
func WholeCurrency(v *float64) string {
	if v == nil {
		return Dash
	}
	return printer.Sprintf("$%.0f", *v)
}

// Large abbreviates v with K, M, B, T or Q suffixes.
func Large(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Dash
	}
	if v == 0 {
		return "0"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	// Rounding happens before the suffix is chosen so 999999 reads 1.00M
	// rather than 1000.00K.
	v = round2(v)
	if v < 1000 {
		s := strconv.FormatFloat(v, 'f', 2, 64)
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		return sign + s
	}
	suffixes := []string{"", "K", "M", "B", "T", "Q"}
	i := 0
	for v >= 1000 && i < len(suffixes)-1 {
		v = round2(v / 1000)
		i++
	}
	return fmt.Sprintf("%s%.2f%s", sign, v, suffixes[i])
}

// round2 rounds to the value a two-decimal rendering would show.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// LargeCurrency is Large with a dollar sign.
func LargeCurrency(v float64) string {
	s := Large(v)
	if s == Dash {
		return s
	}
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

// Percent formats an already scaled percentage ("0.50%").
func Percent(v *float64, precision int) string {
	if v == nil {
		return Dash
	}
	return strconv.FormatFloat(*v, 'f', precision, 64) + "%"
}

// SignedPercent formats a percentage with an explicit sign ("+5.0%").
func SignedPercent(v *float64, precision int) string {
	if v == nil {
		return Dash
	}
	s := strconv.FormatFloat(*v, 'f', precision, 64) + "%"
	if *v >= 0 {
		return "+" + s
	}
	return s
}

// Number formats v with precision decimals and thousands separators.
func Number(v *float64, precision int) string {
	if v == nil {
		return Dash
	}
	return printer.Sprintf("%."+strconv.Itoa(precision)+"f", *v)
}

// Ptr returns &v.
func Ptr(v float64) *float64 {
	return &v
}
