package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRupeesToPaise(t *testing.T) {
	assert.Equal(t, int64(10000), RupeesToPaise(100))
	assert.Equal(t, int64(0), RupeesToPaise(0))
}

func TestFormatINR(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "₹0"},
		{999, "₹999"},
		{1000, "₹1,000"},
		{99999, "₹99,999"},
		{100000, "₹1,00,000"},
		{125000, "₹1,25,000"},
		{12500000, "₹1,25,00,000"},
		{-1500, "-₹1,500"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatINR(tc.amount), "amount %d", tc.amount)
	}
}
