package format

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.TraditionalChinese)

// Currency rounds amount half up to a whole unit and groups thousands.
// Example: Currency(1234.4) => "$ 1,234"
func Currency(amount float64) string {
	return "$ " + printer.Sprintf("%d", int64(math.Floor(amount+0.5)))
}

// PercentOfPrice renders part as a share of price, e.g. "(14.5%)".
// A non-positive price renders "(0%)".
func PercentOfPrice(part, price float64) string {
	if price <= 0 {
		return "(0%)"
	}
	return "(" + oneDecimal(part/price*100) + "%)"
}

// Margin renders a profit margin with one decimal, or "0%" when there is no sell price.
func Margin(marginPercent, price float64) string {
	if price <= 0 {
		return "0%"
	}
	return oneDecimal(marginPercent) + "%"
}

// Percent renders a rate without trailing zeros, e.g. "1.5%".
func Percent(rate float64) string {
	return Number(rate) + "%"
}

// Number renders v in its shortest decimal form, e.g. 4.5 => "4.5".
func Number(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func oneDecimal(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}
