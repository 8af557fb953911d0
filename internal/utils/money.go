package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Amounts are held in whole rupees; the payment gateway wants paise.

func RupeesToPaise(amount int64) int64 { return amount * 100 }

// FormatINR renders an integer rupee amount with thousand separators,
// e.g. 125000 -> "₹1,25,000" (Indian grouping).
func FormatINR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s₹%s", sign, groupIndian(amount))
}

func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	head := s[:len(s)-3]
	tail := s[len(s)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
