package checkout

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount reads a decimal dollar amount off the wire. Amounts arrive as
// strings; a malformed one counts as zero rather than poisoning a sum.
func ParseAmount(s string) float64 {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return amount
}

// FormatUSD renders a dollar amount for display.
func FormatUSD(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
