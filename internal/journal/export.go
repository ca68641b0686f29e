package journal

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader is the column layout of the exported bet log.
var CSVHeader = []string{
	"timestamp",
	"type",
	"bet_value",
	"result",
	"balance_before",
	"balance_after",
	"details",
}

// ExportCSV writes every round (type "bet") and event in chronological order.
// An empty sessionID exports all sessions.
func (r *Recorder) ExportCSV(ctx context.Context, w io.Writer, sessionID string) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, type, bet, result, balance_before, balance_after, details FROM (
			SELECT played_at AS ts, 'bet' AS type, bet, result, balance_before, balance_after,
			       '' AS details, id AS seq, 0 AS src
			FROM rounds WHERE ? = '' OR session_id = ?
			UNION ALL
			SELECT created_at, type, NULL, '', NULL, NULL, details, id, 1
			FROM events WHERE ? = '' OR session_id = ?
		)
		ORDER BY ts, src, seq`,
		sessionID, sessionID, sessionID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for rows.Next() {
		var (
			ts, typ, result, details string
			bet, before, after       sql.NullFloat64
		)
		if err := rows.Scan(&ts, &typ, &bet, &result, &before, &after, &details); err != nil {
			return fmt.Errorf("scanning journal row: %w", err)
		}
		if err := cw.Write([]string{ts, typ, formatAmount(bet), result, formatAmount(before), formatAmount(after), details}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
