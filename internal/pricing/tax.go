package pricing

import "fmt"

// TaxSetting selects the tax regime applied to a sale.
type TaxSetting int

const (
	TaxNone TaxSetting = iota
	TaxBusiness
	TaxInvoice
	TaxInvoiceWithAgent
)

const (
	businessTaxRate = 0.01
	invoiceTaxRate  = 0.05
	agentFee        = 2.5
)

// ParseTaxSetting maps the wire values "0", "1", "5" and "5_plus" to a TaxSetting.
func ParseTaxSetting(raw string) (TaxSetting, error) {
	switch raw {
	case "", "0":
		return TaxNone, nil
	case "1":
		return TaxBusiness, nil
	case "5":
		return TaxInvoice, nil
	case "5_plus":
		return TaxInvoiceWithAgent, nil
	default:
		return TaxNone, fmt.Errorf("unknown tax setting %q", raw)
	}
}

// String returns the wire value of the setting.
func (t TaxSetting) String() string {
	switch t {
	case TaxBusiness:
		return "1"
	case TaxInvoice:
		return "5"
	case TaxInvoiceWithAgent:
		return "5_plus"
	default:
		return "0"
	}
}

// IsInvoice reports whether the setting is one of the invoice (VAT-style) variants.
// Only invoice settings allow input tax credits.
func (t TaxSetting) IsInvoice() bool {
	switch t {
	case TaxInvoice, TaxInvoiceWithAgent:
		return true
	default:
		return false
	}
}

// OutputTaxRate is the share of the sell price owed as output tax.
// Invoice prices are tax-inclusive, so the rate extracts the embedded 5%.
func (t TaxSetting) OutputTaxRate() float64 {
	switch t {
	case TaxBusiness:
		return businessTaxRate
	case TaxInvoice, TaxInvoiceWithAgent:
		return invoiceTaxRate / (1 + invoiceTaxRate)
	default:
		return 0
	}
}

// AgentFee is the flat handling charge layered on top of tax.
func (t TaxSetting) AgentFee() float64 {
	switch t {
	case TaxInvoiceWithAgent:
		return agentFee
	default:
		return 0
	}
}

// outputTax computes the rounded output tax for a sell price.
func (t TaxSetting) outputTax(sellPrice float64) float64 {
	switch t {
	case TaxBusiness:
		return roundUnit(sellPrice * businessTaxRate)
	case TaxInvoice, TaxInvoiceWithAgent:
		return extractInvoiceTax(sellPrice)
	default:
		return 0
	}
}

// extractInvoiceTax returns the 5% component embedded in a tax-inclusive amount.
func extractInvoiceTax(amount float64) float64 {
	return roundUnit(amount / (1 + invoiceTaxRate) * invoiceTaxRate)
}
