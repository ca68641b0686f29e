package game

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseBalance reads a balance as the site displays it: spaces and line
// breaks as grouping, a comma as the decimal separator ("1 234,56").
func ParseBalance(text string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", "\n", "", "\r", "", "\t", "", ",", ".").Replace(text)
	if cleaned == "" {
		return 0, fmt.Errorf("parsing balance %q: empty", text)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parsing balance %q: %w", text, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parsing balance %q: negative", text)
	}
	return d.InexactFloat64(), nil
}
