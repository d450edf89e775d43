package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "$ 0"},
		{in: 999, want: "$ 999"},
		{in: 1234.4, want: "$ 1,234"},
		{in: 1234.5, want: "$ 1,235"},
		{in: 1234567, want: "$ 1,234,567"},
		{in: -9218, want: "$ -9,218"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Currency(tc.in), "Currency(%v)", tc.in)
	}
}

func TestPercentOfPrice(t *testing.T) {
	assert.Equal(t, "(14.5%)", PercentOfPrice(218, 1500))
	assert.Equal(t, "(0.0%)", PercentOfPrice(0, 1500))
	assert.Equal(t, "(0%)", PercentOfPrice(60, 0))
}

func TestMargin(t *testing.T) {
	assert.Equal(t, "18.8%", Margin(18.8, 1500))
	assert.Equal(t, "-614.5%", Margin(-614.53, 1500))
	assert.Equal(t, "0%", Margin(0, 0))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "1.5%", Percent(1.5))
	assert.Equal(t, "6%", Percent(6))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "4.5", Number(4.5))
	assert.Equal(t, "6", Number(6))
	assert.Equal(t, "7.25", Number(7.25))
}
