package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hilofarm/internal/strategy"
)

// TimeLayout matches SQLite's datetime('now') so explicit and default
// timestamps sort and compare together.
const TimeLayout = "2006-01-02 15:04:05"

// Round is one resolved round as written to the rounds table.
type Round struct {
	SessionID     string
	No            int
	Strategy      string
	Bet           float64
	Result        strategy.Result
	BalanceBefore float64
	BalanceAfter  float64
	NextBet       float64
	PlayedAt      time.Time
}

// Recorder persists sessions, rounds and free-form events.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

func (r *Recorder) StartSession(ctx context.Context, id, strategyName string, baseBet, startBalance float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, strategy, base_bet, start_balance, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, strategyName, baseBet, startBalance, r.stamp(time.Time{}),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *Recorder) EndSession(ctx context.Context, id string, endBalance float64, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET end_balance = ?, stop_reason = ?, ended_at = ?
		WHERE id = ?`,
		endBalance, reason, r.stamp(time.Time{}), id,
	)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("closing session %s: not found", id)
	}
	return nil
}

func (r *Recorder) RecordRound(ctx context.Context, rd Round) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rounds (session_id, round_no, strategy, bet, result, balance_before, balance_after, next_bet, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.SessionID, rd.No, rd.Strategy, rd.Bet, rd.Result.String(),
		rd.BalanceBefore, rd.BalanceAfter, rd.NextBet, r.stamp(rd.PlayedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting round: %w", err)
	}
	return nil
}

// RecordEvent stores a non-bet event such as a reward collection. An empty
// sessionID records an event outside any session.
func (r *Recorder) RecordEvent(ctx context.Context, sessionID, eventType, details string) error {
	var sid any
	if sessionID != "" {
		sid = sessionID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (session_id, type, details, created_at) VALUES (?, ?, ?, ?)`,
		sid, eventType, details, r.stamp(time.Time{}),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// LastEvent returns when the most recent event of eventType was recorded.
// ok is false when there is none.
func (r *Recorder) LastEvent(ctx context.Context, eventType string) (at time.Time, ok bool, err error) {
	var ts string
	err = r.db.QueryRowContext(ctx, `
		SELECT created_at FROM events WHERE type = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		eventType,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying last %s event: %w", eventType, err)
	}
	at, err = time.ParseInLocation(TimeLayout, ts, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing event time %q: %w", ts, err)
	}
	return at, true, nil
}

func (r *Recorder) stamp(t time.Time) string {
	if t.IsZero() {
		t = r.now()
	}
	return t.UTC().Format(TimeLayout)
}
