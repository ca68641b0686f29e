package strategy

import (
	"errors"
	"testing"

	"hilofarm/internal/config"
)

func newTestParoli() *Paroli {
	return NewParoli(25, config.ParoliConfig{Multiplier: 2, TargetStreak: 3})
}

func TestParoli_BanksAfterTargetStreak(t *testing.T) {
	p := newTestParoli()
	balance := 1000.0
	bet := p.CurrentBet()

	want := []float64{50, 100, 25}
	for i, w := range want {
		balance += bet
		next, err := p.RecordResult(Win, bet, balance)
		if err != nil {
			t.Fatal(err)
		}
		if next != w {
			t.Fatalf("win %d: expected %v, got %v", i+1, w, next)
		}
		bet = next
	}
	if p.WinStreak() != 0 {
		t.Errorf("expected streak reset to 0, got %d", p.WinStreak())
	}
}

func TestParoli_LossResets(t *testing.T) {
	p := newTestParoli()
	p.RecordResult(Win, 25, 1025)
	if p.WinStreak() != 1 {
		t.Fatalf("expected streak 1, got %d", p.WinStreak())
	}

	next, _ := p.RecordResult(Loss, 50, 975)
	if next != 25 {
		t.Errorf("expected 25 after loss, got %v", next)
	}
	if p.WinStreak() != 0 {
		t.Errorf("expected streak 0 after loss, got %d", p.WinStreak())
	}
}

func TestParoli_LossResetIsNotClamped(t *testing.T) {
	p := newTestParoli()
	next, _ := p.RecordResult(Loss, 25, 10)
	if next != 25 {
		t.Errorf("expected base bet 25 even with balance 10, got %v", next)
	}
}

func TestParoli_AllInKeepsStreak(t *testing.T) {
	p := newTestParoli()
	next, _ := p.RecordResult(Win, 300, 500)
	if next != 500 {
		t.Errorf("expected all-in 500, got %v", next)
	}
	if p.WinStreak() != 1 {
		t.Errorf("expected streak preserved at 1, got %d", p.WinStreak())
	}
}

func TestParoli_ZeroBalance(t *testing.T) {
	p := newTestParoli()
	next, _ := p.RecordResult(Win, 0, 0)
	if next != 0 {
		t.Errorf("expected 0 on win with empty balance, got %v", next)
	}
	if p.WinStreak() != 0 {
		t.Errorf("expected streak reset on empty balance, got %d", p.WinStreak())
	}

	p = newTestParoli()
	next, _ = p.RecordResult(Loss, 25, 0)
	if next != 0 {
		t.Errorf("expected 0 on loss with empty balance, got %v", next)
	}
}

func TestParoli_TargetStreakOfOne(t *testing.T) {
	p := NewParoli(10, config.ParoliConfig{Multiplier: 3, TargetStreak: 1})
	next, _ := p.RecordResult(Win, 10, 100)
	if next != 10 {
		t.Errorf("expected immediate bank to 10, got %v", next)
	}
}

func TestParoli_InvalidInputKeepsState(t *testing.T) {
	p := newTestParoli()
	p.RecordResult(Win, 25, 1025)

	if _, err := p.RecordResult(Win, -25, 1000); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if p.WinStreak() != 1 || p.CurrentBet() != 50 {
		t.Errorf("state changed on error: streak %d bet %v", p.WinStreak(), p.CurrentBet())
	}
}
