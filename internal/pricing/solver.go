package pricing

import "math"

const (
	marginTolerance    = 1e-9
	maxReconcileSteps  = 256
	minimumSolvedPrice = 1.0

	// roundingWindow bounds how far below a qualifying price another one can
	// hide; per-line rounding never opens a gap wider than a few units.
	roundingWindow = 16
)

// linearFees describes the platform fees as rate × price + fixed amount.
type linearFees struct {
	rate  float64
	fixed float64
}

// SolveRequiredPrice returns the minimum whole sell price whose profit margin
// reaches marginPercent. It returns 0 when the margin cannot be reached with
// the given rates.
func SolveRequiredPrice(cost, marginPercent float64, in FeeInputs) float64 {
	in.Cost = cost
	margin := marginPercent / 100

	transRate := in.EffectiveTransactionRatePercent() / 100
	fees := linearFees{
		rate: transRate + paymentFeeRate + in.CashbackRatePercent/100 + in.PreOrderRatePercent/100,
	}
	if in.ShipOption2 {
		fees.fixed = shipOption2FixedFee
	} else {
		fees.rate += shipOption1FeeRate
	}

	price, ok := solveLinear(in, margin, fees)
	if !ok {
		return 0
	}

	// Above the ceiling a general seller's transaction fee stops scaling with price.
	if !in.Mall && price > TransactionFeeCeiling {
		capped := linearFees{
			rate:  fees.rate - transRate,
			fixed: fees.fixed + TransactionFeeCeiling*transRate,
		}
		if cappedPrice, ok := solveLinear(in, margin, capped); ok {
			price = cappedPrice
		}
	}

	return reconcile(math.Ceil(price), marginPercent, in)
}

// solveLinear solves price × (1 − margin) = cashOut + fees + tax + agentFee,
// first assuming payable tax is positive and falling back to zero tax when the
// implied tax at the candidate price would be negative.
func solveLinear(in FeeInputs, margin float64, fees linearFees) (float64, bool) {
	outputRate := in.Tax.OutputTaxRate()
	productCredit := in.productInputCredit()
	cashOut := in.CashOutCost()
	agent := in.Tax.AgentFee()

	feeCreditFactor := 0.0
	if in.feeCreditActive() {
		feeCreditFactor = invoiceTaxRate / (1 + invoiceTaxRate)
	}

	denominator := 1 - margin - fees.rate - (outputRate - fees.rate*feeCreditFactor)
	if denominator <= 0 {
		return 0, false
	}
	numerator := cashOut + fees.fixed - (productCredit + fees.fixed*feeCreditFactor) + agent
	price := numerator / denominator

	impliedTax := price*outputRate - productCredit - (price*fees.rate+fees.fixed)*feeCreditFactor
	if impliedTax >= 0 {
		return price, true
	}

	denominator = 1 - margin - fees.rate
	if denominator <= 0 {
		return 0, false
	}
	return (cashOut + fees.fixed + agent) / denominator, true
}

// reconcile adjusts the algebraic estimate for the per-line rounding done by
// EvaluateScenario. Rounding makes the margin jagged in price, so after finding
// a price that meets the margin it keeps scanning a window below it and settles
// on the lowest price that still does.
func reconcile(estimate, marginPercent float64, in FeeInputs) float64 {
	meets := func(price float64) bool {
		return EvaluateScenario(price, in).ProfitMarginPercent >= marginPercent-marginTolerance
	}

	price := math.Max(estimate, minimumSolvedPrice)
	if !meets(price) {
		found := false
		for i := 0; i < maxReconcileSteps; i++ {
			price++
			if meets(price) {
				found = true
				break
			}
		}
		if !found {
			return math.Max(estimate, minimumSolvedPrice)
		}
	}

	for i := 0; i < maxReconcileSteps; i++ {
		lower, ok := lowerMeetingPrice(price, meets)
		if !ok {
			break
		}
		price = lower
	}
	return price
}

// lowerMeetingPrice returns the nearest price below price, within the
// rounding window, that still meets the margin.
func lowerMeetingPrice(price float64, meets func(float64) bool) (float64, bool) {
	for k := 1.0; k <= roundingWindow; k++ {
		candidate := price - k
		if candidate < minimumSolvedPrice {
			break
		}
		if meets(candidate) {
			return candidate, true
		}
	}
	return 0, false
}
