package pricing

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func baseInputs() FeeInputs {
	return FeeInputs{
		Cost:                      1000,
		CostTaxInclusive:          true,
		TransactionFeeRatePercent: 6,
	}
}

func TestEvaluateScenario_GeneralSellerShipOption1(t *testing.T) {
	result := EvaluateScenario(1500, baseInputs())

	nearlyEqual(t, "transactionFee", result.TransactionFee, 90)
	nearlyEqual(t, "paymentFee", result.PaymentFee, 38)
	nearlyEqual(t, "shippingFee", result.ShippingFee, 90)
	nearlyEqual(t, "platformFee", result.PlatformFee, 218)
	nearlyEqual(t, "payableTax", result.PayableTax, 0)
	nearlyEqual(t, "totalDeduction", result.TotalDeduction, 218)
	nearlyEqual(t, "profit", result.Profit, 282)
	nearlyEqual(t, "margin", result.ProfitMarginPercent, 18.8)
}

func TestEvaluateScenario_InvoiceTaxWithoutInputInvoices(t *testing.T) {
	in := baseInputs()
	in.Tax = TaxInvoice

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "outputTax", result.OutputTax, 71)
	nearlyEqual(t, "payableTax", result.PayableTax, 71)
	nearlyEqual(t, "totalDeduction", result.TotalDeduction, 289)
	nearlyEqual(t, "profit", result.Profit, 211)
}

func TestEvaluateScenario_InvoiceTaxWithInputCredits(t *testing.T) {
	in := baseInputs()
	in.Tax = TaxInvoice
	in.HasProductInputInvoice = true
	in.HasFeeInputInvoice = true

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "productCredit", result.ProductInputTaxCredit, 48)
	nearlyEqual(t, "feeCredit", result.FeeInputTaxCredit, 10)
	nearlyEqual(t, "payableTax", result.PayableTax, 13)
	nearlyEqual(t, "profit", result.Profit, 269)
}

func TestEvaluateScenario_PayableTaxClampsAtZero(t *testing.T) {
	in := baseInputs()
	in.Cost = 10000
	in.CostTaxInclusive = false
	in.Tax = TaxInvoice
	in.HasProductInputInvoice = true

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "productCredit", result.ProductInputTaxCredit, 500)
	nearlyEqual(t, "payableTax", result.PayableTax, 0)
	nearlyEqual(t, "cashOutCost", result.CashOutCost, 10500)
	nearlyEqual(t, "profit", result.Profit, -9218)
}

func TestEvaluateScenario_InputCreditsIgnoredOutsideInvoiceTax(t *testing.T) {
	in := baseInputs()
	in.Tax = TaxBusiness
	in.HasProductInputInvoice = true
	in.HasFeeInputInvoice = true

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "outputTax", result.OutputTax, 15)
	nearlyEqual(t, "productCredit", result.ProductInputTaxCredit, 0)
	nearlyEqual(t, "feeCredit", result.FeeInputTaxCredit, 0)
	nearlyEqual(t, "payableTax", result.PayableTax, 15)
	nearlyEqual(t, "profit", result.Profit, 267)
}

func TestEvaluateScenario_AgentFee(t *testing.T) {
	in := baseInputs()
	in.Tax = TaxInvoiceWithAgent

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "outputTax", result.OutputTax, 71)
	nearlyEqual(t, "agentFee", result.AgentFee, 2.5)
	nearlyEqual(t, "totalDeduction", result.TotalDeduction, 291.5)
	nearlyEqual(t, "profit", result.Profit, 208.5)
}

func TestEvaluateScenario_EventSurchargeAndCashback(t *testing.T) {
	in := baseInputs()
	in.Event = true

	nearlyEqual(t, "general event fee", EvaluateScenario(1500, in).TransactionFee, 120)

	in.Mall = true
	nearlyEqual(t, "mall event fee", EvaluateScenario(1500, in).TransactionFee, 135)

	in.Mall = false
	in.CashbackRatePercent = 1.5
	result := EvaluateScenario(1500, in)
	nearlyEqual(t, "cashback event fee", result.TransactionFee, 90)
	nearlyEqual(t, "cashbackFee", result.CashbackFee, 23)
	nearlyEqual(t, "profit", result.Profit, 259)
}

func TestEvaluateScenario_CashbackAndPreOrder(t *testing.T) {
	in := baseInputs()
	in.CashbackRatePercent = 2.5
	in.PreOrderRatePercent = 3

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "cashbackFee", result.CashbackFee, 38)
	nearlyEqual(t, "preOrderFee", result.PreOrderFee, 45)
	nearlyEqual(t, "platformFee", result.PlatformFee, 301)
	nearlyEqual(t, "profit", result.Profit, 199)
}

func TestEvaluateScenario_TransactionFeeCeiling(t *testing.T) {
	in := baseInputs()

	nearlyEqual(t, "general fee", EvaluateScenario(40000, in).TransactionFee, 2100)

	in.Mall = true
	nearlyEqual(t, "mall fee", EvaluateScenario(40000, in).TransactionFee, 2400)
}

func TestEvaluateScenario_ShipOption2IsFixed(t *testing.T) {
	in := baseInputs()
	in.ShipOption2 = true

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "shippingFee", result.ShippingFee, 60)
	nearlyEqual(t, "profit", result.Profit, 312)
}

func TestEvaluateScenario_TaxExclusiveCost(t *testing.T) {
	in := baseInputs()
	in.CostTaxInclusive = false

	result := EvaluateScenario(1500, in)

	nearlyEqual(t, "cashOutCost", result.CashOutCost, 1050)
	nearlyEqual(t, "profit", result.Profit, 232)
}

func TestEvaluateScenario_ZeroSellPrice(t *testing.T) {
	in := baseInputs()
	in.ShipOption2 = true

	result := EvaluateScenario(0, in)

	nearlyEqual(t, "profit", result.Profit, -1060)
	nearlyEqual(t, "margin", result.ProfitMarginPercent, 0)
}

func TestEvaluateScenario_IsDeterministic(t *testing.T) {
	in := baseInputs()
	in.Tax = TaxInvoiceWithAgent
	in.HasFeeInputInvoice = true
	in.Event = true

	first := EvaluateScenario(2345, in)
	for i := 0; i < 5; i++ {
		if got := EvaluateScenario(2345, in); got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestParseTaxSetting(t *testing.T) {
	tests := []struct {
		raw  string
		want TaxSetting
	}{
		{raw: "0", want: TaxNone},
		{raw: "", want: TaxNone},
		{raw: "1", want: TaxBusiness},
		{raw: "5", want: TaxInvoice},
		{raw: "5_plus", want: TaxInvoiceWithAgent},
	}

	for _, tc := range tests {
		got, err := ParseTaxSetting(tc.raw)
		if err != nil {
			t.Fatalf("ParseTaxSetting(%q) returned error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTaxSetting(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}

	if _, err := ParseTaxSetting("7"); err == nil {
		t.Fatalf("expected error for unknown tax setting")
	}
	if TaxInvoiceWithAgent.String() != "5_plus" {
		t.Fatalf("unexpected wire value %q", TaxInvoiceWithAgent.String())
	}
}
