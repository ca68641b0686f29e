package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    strategy TEXT NOT NULL,
    base_bet REAL NOT NULL,
    start_balance REAL NOT NULL,
    end_balance REAL,
    stop_reason TEXT,
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    ended_at TEXT
);

CREATE TABLE IF NOT EXISTS rounds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id),
    round_no INTEGER NOT NULL,
    strategy TEXT NOT NULL,
    bet REAL NOT NULL,
    result TEXT NOT NULL CHECK (result IN ('win', 'loss')),
    balance_before REAL NOT NULL,
    balance_after REAL NOT NULL,
    next_bet REAL NOT NULL,
    played_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, round_no);
CREATE INDEX IF NOT EXISTS idx_rounds_played ON rounds(played_at);
CREATE INDEX IF NOT EXISTS idx_rounds_strategy ON rounds(strategy);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT REFERENCES sessions(id),
    type TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
`
