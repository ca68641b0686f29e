package strategy

import (
	"math"
	"testing"

	"hilofarm/internal/config"
)

func newTestFractional() *Fractional {
	return NewFractional(25, config.DefaultFractional())
}

func ptr(v float64) *float64 { return &v }

func TestFractional_InitialBetIsMinBet(t *testing.T) {
	f := newTestFractional()
	if f.CurrentBet() != 25 {
		t.Errorf("expected initial bet 25 (base bet fallback), got %v", f.CurrentBet())
	}

	cfg := config.DefaultFractional()
	cfg.MinBet = ptr(5)
	if got := NewFractional(25, cfg).CurrentBet(); got != 5 {
		t.Errorf("expected initial bet 5, got %v", got)
	}
}

func TestFractional_Tiers(t *testing.T) {
	cases := []struct {
		balance float64
		want    float64
	}{
		{100, 100},   // small tier, all-in
		{499, 499},   // just below small threshold
		{500, 375},   // medium band start: 0.75
		{2750, 1719}, // midpoint: 0.625 -> 1718.75
		{4999, 2500}, // near the top of the band: fraction close to 0.5
		{5000, 1250}, // high tier at the boundary: 0.25
		{20000, 5000},
	}
	for _, tc := range cases {
		f := newTestFractional()
		got, err := f.RecordResult(Win, 25, tc.balance)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("balance %v: expected %v, got %v", tc.balance, tc.want, got)
		}
	}
}

func TestFractional_MidpointFraction(t *testing.T) {
	f := newTestFractional()
	if got := f.Fraction(2750); math.Abs(got-0.625) > 1e-12 {
		t.Errorf("expected fraction 0.625, got %v", got)
	}
}

func TestFractional_IgnoresResultAndStake(t *testing.T) {
	a, _ := newTestFractional().RecordResult(Win, 10, 3000)
	b, _ := newTestFractional().RecordResult(Loss, 900, 3000)
	if a != b {
		t.Errorf("expected same bet for same balance, got %v and %v", a, b)
	}
}

func TestFractional_MaxBetCap(t *testing.T) {
	cfg := config.DefaultFractional()
	cfg.MaxBet = ptr(200)
	f := NewFractional(25, cfg)
	got, _ := f.RecordResult(Win, 25, 2750)
	if got != 200 {
		t.Errorf("expected cap at 200, got %v", got)
	}
}

func TestFractional_MinBetFloor(t *testing.T) {
	cfg := config.DefaultFractional()
	cfg.HighFraction = 0.001
	f := NewFractional(25, cfg)
	got, _ := f.RecordResult(Win, 25, 6000)
	if got != 25 {
		t.Errorf("expected min bet 25, got %v", got)
	}
}

func TestFractional_SubMinimumBalanceGoesAllIn(t *testing.T) {
	cfg := config.DefaultFractional()
	cfg.SmallFraction = 0.1
	f := NewFractional(25, cfg)
	got, _ := f.RecordResult(Loss, 25, 10)
	if got != 10 {
		t.Errorf("expected all-in 10, got %v", got)
	}
}

func TestFractional_ZeroBalance(t *testing.T) {
	f := newTestFractional()
	got, _ := f.RecordResult(Loss, 25, 0)
	if got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if f.CurrentBet() != 0 {
		t.Errorf("expected current bet 0, got %v", f.CurrentBet())
	}
}

func TestFractional_RoundingNeverExceedsBalance(t *testing.T) {
	f := newTestFractional()
	got, _ := f.RecordResult(Loss, 25, 0.6)
	if got > 0.6 {
		t.Errorf("bet %v exceeds balance 0.6", got)
	}
	got, _ = f.RecordResult(Loss, 25, 20.4)
	if got != 20 {
		t.Errorf("expected 20, got %v", got)
	}
}

func TestFractional_BoundsAcrossBalances(t *testing.T) {
	cfg := config.DefaultFractional()
	cfg.MaxBet = ptr(3000)
	f := NewFractional(25, cfg)
	for b := 0.0; b < 30000; b += 37.3 {
		got, err := f.RecordResult(Win, 25, b)
		if err != nil {
			t.Fatal(err)
		}
		if got < 0 || got > b {
			t.Fatalf("balance %v: bet %v out of [0, balance]", b, got)
		}
		if got != math.Trunc(got) {
			t.Fatalf("balance %v: bet %v is not a whole amount", b, got)
		}
	}
}
