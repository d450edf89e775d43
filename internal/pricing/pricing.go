package pricing

import "math"

const (
	// TransactionFeeCeiling caps the price a general seller's transaction fee applies to.
	TransactionFeeCeiling = 35000.0

	paymentFeeRate      = 0.025
	shipOption1FeeRate  = 0.06
	shipOption2FixedFee = 60.0

	generalEventSurcharge = 2.0
	mallEventSurcharge    = 3.0
)

// FeeInputs holds every rate and flag of one scenario evaluation.
type FeeInputs struct {
	Cost             float64
	CostTaxInclusive bool

	TransactionFeeRatePercent float64
	CashbackRatePercent       float64
	PreOrderRatePercent       float64

	Tax                    TaxSetting
	HasProductInputInvoice bool
	HasFeeInputInvoice     bool

	Event       bool
	ShipOption2 bool
	Mall        bool
}

// ScenarioResult contains every line item of one scenario evaluation.
type ScenarioResult struct {
	SellPrice float64

	TransactionFee float64
	PaymentFee     float64
	ShippingFee    float64
	CashbackFee    float64
	PreOrderFee    float64
	PlatformFee    float64

	OutputTax             float64
	ProductInputTaxCredit float64
	FeeInputTaxCredit     float64
	PayableTax            float64
	AgentFee              float64

	TotalDeduction      float64
	CashOutCost         float64
	Profit              float64
	ProfitMarginPercent float64
}

// EventSurchargePercent returns the transaction fee increase applied during events.
func EventSurchargePercent(mall bool) float64 {
	if mall {
		return mallEventSurcharge
	}
	return generalEventSurcharge
}

// EffectiveTransactionRatePercent is the transaction fee rate after the event surcharge.
// The surcharge only applies when no cashback program is selected.
func (in FeeInputs) EffectiveTransactionRatePercent() float64 {
	if in.Event && in.CashbackRatePercent == 0 {
		return in.TransactionFeeRatePercent + EventSurchargePercent(in.Mall)
	}
	return in.TransactionFeeRatePercent
}

// CashOutCost normalises the cost to its tax-inclusive amount.
func (in FeeInputs) CashOutCost() float64 {
	if in.CostTaxInclusive {
		return in.Cost
	}
	return in.Cost * (1 + invoiceTaxRate)
}

// productInputCredit is the unrounded input tax embedded in the cost.
func (in FeeInputs) productInputCredit() float64 {
	if !in.Tax.IsInvoice() || !in.HasProductInputInvoice {
		return 0
	}
	if in.CostTaxInclusive {
		return in.Cost / (1 + invoiceTaxRate) * invoiceTaxRate
	}
	return in.Cost * invoiceTaxRate
}

func (in FeeInputs) feeCreditActive() bool {
	return in.Tax.IsInvoice() && in.HasFeeInputInvoice
}

// EvaluateScenario computes all fees, taxes and the net profit for a sell price.
// Line items are rounded before they are summed.
func EvaluateScenario(sellPrice float64, in FeeInputs) ScenarioResult {
	transRatePercent := in.EffectiveTransactionRatePercent()

	var transactionFee float64
	if in.Mall {
		transactionFee = roundUnit(sellPrice * transRatePercent / 100)
	} else {
		transactionFee = roundUnit(math.Min(sellPrice, TransactionFeeCeiling) * transRatePercent / 100)
	}

	paymentFee := roundUnit(sellPrice * paymentFeeRate)

	shippingFee := shipOption2FixedFee
	if !in.ShipOption2 {
		shippingFee = roundUnit(sellPrice * shipOption1FeeRate)
	}

	cashbackFee := roundUnit(sellPrice * in.CashbackRatePercent / 100)
	preOrderFee := roundUnit(sellPrice * in.PreOrderRatePercent / 100)
	platformFee := transactionFee + paymentFee + shippingFee + cashbackFee + preOrderFee

	outputTax := in.Tax.outputTax(sellPrice)

	productCredit := 0.0
	if in.Tax.IsInvoice() && in.HasProductInputInvoice {
		productCredit = roundUnit(in.productInputCredit())
	}

	feeCredit := 0.0
	if in.feeCreditActive() {
		feeCredit = extractInvoiceTax(platformFee)
	}

	payableTax := 0.0
	if in.Tax != TaxNone {
		payableTax = math.Max(0, outputTax-productCredit-feeCredit)
	}

	agent := in.Tax.AgentFee()
	totalDeduction := platformFee + payableTax + agent
	cashOut := in.CashOutCost()
	profit := sellPrice - cashOut - totalDeduction

	margin := 0.0
	if sellPrice > 0 {
		margin = profit / sellPrice * 100
	}

	return ScenarioResult{
		SellPrice:             sellPrice,
		TransactionFee:        transactionFee,
		PaymentFee:            paymentFee,
		ShippingFee:           shippingFee,
		CashbackFee:           cashbackFee,
		PreOrderFee:           preOrderFee,
		PlatformFee:           platformFee,
		OutputTax:             outputTax,
		ProductInputTaxCredit: productCredit,
		FeeInputTaxCredit:     feeCredit,
		PayableTax:            payableTax,
		AgentFee:              agent,
		TotalDeduction:        totalDeduction,
		CashOutCost:           cashOut,
		Profit:                profit,
		ProfitMarginPercent:   margin,
	}
}

// roundUnit rounds half up to a whole currency unit.
func roundUnit(v float64) float64 {
	return math.Floor(v + 0.5)
}
