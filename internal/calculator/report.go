package calculator

import (
	"github.com/Simplici0/marketfee/internal/format"
	"github.com/Simplici0/marketfee/internal/pricing"
)

// Scenario identifies one of the four fixed scenario combinations.
type Scenario struct {
	Key         string
	Event       bool
	ShipOption2 bool
}

// Scenarios lists the scenarios in evaluation order.
var Scenarios = []Scenario{
	{Key: "regular-ship1"},
	{Key: "regular-ship2", ShipOption2: true},
	{Key: "event-ship1", Event: true},
	{Key: "event-ship2", Event: true, ShipOption2: true},
}

// ScenarioReport is the evaluated and formatted result of one scenario.
type ScenarioReport struct {
	Scenario
	Visible bool

	// SuggestedPrice is set in price mode; 0 means the margin cannot be reached.
	SuggestedPrice float64
	Unachievable   bool

	Result pricing.ScenarioResult

	TransactionLabel  string
	PlatformPercent   string
	TaxPercent        string
	DeductionPercent  string
	Margin            string
	ShowCashback      bool
	ShowPreOrder      bool
	ShowTax           bool
	ShowProductCredit bool
	ShowFeeCredit     bool
	ShowAgentFee      bool
	Negative          bool
}

// Report is the outcome of one recalculation pass.
type Report struct {
	State       State
	CashOutCost float64
	Scenarios   []ScenarioReport
}

const transactionLabel = "成交手續費"

// Recalculate evaluates all four scenarios for the given state.
// In price mode each scenario is evaluated at its own suggested price.
func Recalculate(s State) Report {
	report := Report{
		State:       s,
		CashOutCost: s.FeeInputs(Scenario{}).CashOutCost(),
		Scenarios:   make([]ScenarioReport, 0, len(Scenarios)),
	}

	for _, sc := range Scenarios {
		in := s.FeeInputs(sc)

		sr := ScenarioReport{
			Scenario: sc,
			Visible:  s.shows(sc),
		}

		price := s.SellPrice
		if s.Mode == ModePrice {
			price = pricing.SolveRequiredPrice(s.Cost, s.MarginPercent, in)
			sr.SuggestedPrice = price
			sr.Unachievable = price == 0
		}

		result := pricing.EvaluateScenario(price, in)
		sr.Result = result
		sr.TransactionLabel = transactionLabelFor(sc, s)
		sr.PlatformPercent = format.PercentOfPrice(result.PlatformFee, price)
		sr.TaxPercent = format.PercentOfPrice(result.PayableTax, price)
		sr.DeductionPercent = format.PercentOfPrice(result.TotalDeduction, price)
		sr.Margin = format.Margin(result.ProfitMarginPercent, price)
		sr.ShowCashback = s.CashbackPercent > 0
		sr.ShowPreOrder = s.PreOrderPercent > 0
		sr.ShowTax = s.Tax != pricing.TaxNone
		sr.ShowProductCredit = s.Tax.IsInvoice() && s.HasProductInvoice
		sr.ShowFeeCredit = s.Tax.IsInvoice() && s.HasFeeInvoice
		sr.ShowAgentFee = s.Tax == pricing.TaxInvoiceWithAgent
		sr.Negative = result.Profit < 0

		report.Scenarios = append(report.Scenarios, sr)
	}
	return report
}

// Scenario returns the report of the scenario with the given key.
func (r Report) Scenario(key string) (ScenarioReport, bool) {
	for _, sr := range r.Scenarios {
		if sr.Key == key {
			return sr, true
		}
	}
	return ScenarioReport{}, false
}

// HeadlinePrice is the regular ship-option-1 price: the sell price in profit
// mode or the suggested price in price mode.
func (r Report) HeadlinePrice() float64 {
	if r.State.Mode == ModeProfit {
		return r.State.SellPrice
	}
	if sr, ok := r.Scenario("regular-ship1"); ok {
		return sr.SuggestedPrice
	}
	return 0
}

func (s State) shows(sc Scenario) bool {
	switch s.Shipping {
	case ShippingOne:
		return !sc.ShipOption2
	case ShippingTwo:
		return sc.ShipOption2
	default:
		return true
	}
}

func transactionLabelFor(sc Scenario, s State) string {
	if sc.Event && s.CashbackPercent == 0 {
		return transactionLabel + " (+" + format.Percent(pricing.EventSurchargePercent(s.Mall())) + ")"
	}
	return transactionLabel
}
