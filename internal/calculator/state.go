package calculator

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Simplici0/marketfee/internal/pricing"
)

// Mode selects what the calculator solves for.
type Mode string

const (
	// ModeProfit evaluates the profit of a given sell price.
	ModeProfit Mode = "profit"
	// ModePrice solves the sell price required for a target margin.
	ModePrice Mode = "price"
)

// ShippingSelection controls which shipping scenarios are shown.
type ShippingSelection string

const (
	ShippingBoth ShippingSelection = "both"
	ShippingOne  ShippingSelection = "ship1"
	ShippingTwo  ShippingSelection = "ship2"
)

// SellerType distinguishes general sellers from mall (flagship) sellers.
type SellerType string

const (
	SellerGeneral SellerType = "general"
	SellerMall    SellerType = "mall"
)

const (
	defaultMarginPercent  = 5
	defaultFeeRatePercent = 6
)

var (
	cashbackOptions = []float64{0, 1.5, 2.5}
	preOrderOptions = []float64{0, 3}
)

// State is the full set of calculator inputs for one recalculation.
type State struct {
	Mode     Mode
	Shipping ShippingSelection
	Seller   SellerType

	Cost             float64
	CostTaxInclusive bool
	SellPrice        float64
	MarginPercent    float64
	FeeRatePercent   float64

	PreOrderPercent float64
	CashbackPercent float64
	Tax             pricing.TaxSetting

	HasProductInvoice bool
	HasFeeInvoice     bool

	// raw keeps the submitted text of numeric fields so links round-trip unchanged.
	raw map[string]string
}

// DefaultState returns the calculator defaults used for an empty query string.
func DefaultState() State {
	return State{
		Mode:             ModeProfit,
		Shipping:         ShippingBoth,
		Seller:           SellerGeneral,
		CostTaxInclusive: true,
		MarginPercent:    defaultMarginPercent,
		FeeRatePercent:   defaultFeeRatePercent,
	}
}

// ParseQuery rebuilds a State from shareable-link query parameters.
// Unknown enum values fall back to defaults and non-numeric numbers become 0.
func ParseQuery(values url.Values) State {
	s := DefaultState()
	s.raw = map[string]string{}

	if values.Get("mode") == string(ModePrice) {
		s.Mode = ModePrice
	}
	switch ShippingSelection(values.Get("shipping")) {
	case ShippingOne:
		s.Shipping = ShippingOne
	case ShippingTwo:
		s.Shipping = ShippingTwo
	}
	if values.Get("seller") == string(SellerMall) {
		s.Seller = SellerMall
	}
	s.CostTaxInclusive = values.Get("costTax") != "exc"

	s.Cost = s.number(values, "cost", 0)
	s.SellPrice = s.number(values, "sell", 0)
	s.MarginPercent = s.number(values, "margin", defaultMarginPercent)
	s.FeeRatePercent = s.number(values, "fee", defaultFeeRatePercent)

	s.PreOrderPercent = option(values.Get("preorder"), preOrderOptions)
	s.CashbackPercent = option(values.Get("cashback"), cashbackOptions)

	if tax, err := pricing.ParseTaxSetting(values.Get("tax")); err == nil {
		s.Tax = tax
	}
	s.HasProductInvoice = values.Get("hasProdInv") == "1"
	s.HasFeeInvoice = values.Get("hasFeeInv") == "1"

	return s
}

// Query encodes the state as shareable-link query parameters.
func (s State) Query() url.Values {
	params := url.Values{}
	params.Set("mode", string(s.Mode))
	params.Set("shipping", string(s.Shipping))
	params.Set("seller", string(s.Seller))
	if s.Cost != 0 || s.raw["cost"] != "" {
		params.Set("cost", s.text("cost", s.Cost))
	}
	if s.CostTaxInclusive {
		params.Set("costTax", "inc")
	} else {
		params.Set("costTax", "exc")
	}

	switch s.Mode {
	case ModeProfit:
		if s.SellPrice != 0 || s.raw["sell"] != "" {
			params.Set("sell", s.text("sell", s.SellPrice))
		}
	case ModePrice:
		params.Set("margin", s.text("margin", s.MarginPercent))
	}

	params.Set("fee", s.text("fee", s.FeeRatePercent))
	params.Set("preorder", formatNumber(s.PreOrderPercent))
	params.Set("cashback", formatNumber(s.CashbackPercent))
	params.Set("tax", s.Tax.String())

	if s.Tax.IsInvoice() {
		if s.HasProductInvoice {
			params.Set("hasProdInv", "1")
		}
		if s.HasFeeInvoice {
			params.Set("hasFeeInv", "1")
		}
	}
	return params
}

// Mall reports whether the seller is a mall seller.
func (s State) Mall() bool {
	return s.Seller == SellerMall
}

// FeeInputs builds the pricing inputs of one scenario.
func (s State) FeeInputs(sc Scenario) pricing.FeeInputs {
	return pricing.FeeInputs{
		Cost:                      s.Cost,
		CostTaxInclusive:          s.CostTaxInclusive,
		TransactionFeeRatePercent: s.FeeRatePercent,
		CashbackRatePercent:       s.CashbackPercent,
		PreOrderRatePercent:       s.PreOrderPercent,
		Tax:                       s.Tax,
		HasProductInputInvoice:    s.HasProductInvoice,
		HasFeeInputInvoice:        s.HasFeeInvoice,
		Event:                     sc.Event,
		ShipOption2:               sc.ShipOption2,
		Mall:                      s.Mall(),
	}
}

func (s *State) number(values url.Values, key string, fallback float64) float64 {
	raw, ok := values[key]
	if !ok || len(raw) == 0 {
		return fallback
	}
	text := strings.TrimSpace(raw[0])
	if text == "" {
		return fallback
	}
	s.raw[key] = text
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (s State) text(key string, v float64) string {
	if raw := s.raw[key]; raw != "" {
		return raw
	}
	return formatNumber(v)
}

func option(raw string, allowed []float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	for _, opt := range allowed {
		if v == opt {
			return v
		}
	}
	return 0
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
