package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidArgument is returned for negative or non-finite amounts and
// for results other than Win or Loss.
var ErrInvalidArgument = errors.New("invalid argument")

// Result is the outcome of a resolved round.
type Result int

const (
	Win Result = iota + 1
	Loss
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// ParseResult maps "win" / "loss" (any case) to a Result.
func ParseResult(s string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return Win, nil
	case "loss":
		return Loss, nil
	}
	return 0, fmt.Errorf("result %q: %w", s, ErrInvalidArgument)
}

// Strategy is the interface all betting progressions implement.
//
// RecordResult consumes the outcome of the round just played and returns the
// amount to wager next. It mutates the strategy's own state only, and leaves
// it untouched when it returns an error. Implementations are not safe for
// concurrent use.
type Strategy interface {
	Name() string
	RecordResult(result Result, placedBet, balanceAfter float64) (float64, error)
	CurrentBet() float64
}

// Outcome is one resolved round as seen by the round driver.
type Outcome struct {
	Result       Result
	PlacedBet    float64
	BalanceAfter float64
}

// Apply feeds o into s.
func Apply(s Strategy, o Outcome) (float64, error) {
	return s.RecordResult(o.Result, o.PlacedBet, o.BalanceAfter)
}

func validate(result Result, placedBet, balanceAfter float64) error {
	if result != Win && result != Loss {
		return fmt.Errorf("result %d: %w", int(result), ErrInvalidArgument)
	}
	if err := checkAmount("placed bet", placedBet); err != nil {
		return err
	}
	return checkAmount("balance", balanceAfter)
}

func checkAmount(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s %v: %w", name, v, ErrInvalidArgument)
	}
	return nil
}

// allIn caps candidate to the balance. A zero balance yields zero.
func allIn(candidate, balance float64) (bet float64, capped bool) {
	if candidate >= balance {
		return balance, true
	}
	return candidate, false
}
