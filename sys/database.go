package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

// --- Database Connection & Lifecycle ---

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// The driver registers itself in init(); referencing it keeps the import explicit.
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS track_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			title TEXT NOT NULL,
			uri TEXT NOT NULL,
			duration_ms INTEGER DEFAULT 0,
			origin TEXT NOT NULL,
			requested_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_track_history_guild ON track_history (guild_id, requested_at)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Bot Persistence ---

// BotConfig helpers are used by the loader for command hash tracking.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Track History ---

type TrackHistory struct {
	ID          int64
	GuildID     snowflake.ID
	RequesterID snowflake.ID
	Title       string
	URI         string
	Duration    time.Duration
	Origin      string
	RequestedAt time.Time
}

func AddTrackHistory(ctx context.Context, h *TrackHistory) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO track_history (guild_id, requester_id, title, uri, duration_ms, origin, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.GuildID.String(), h.RequesterID.String(), h.Title, h.URI, h.Duration.Milliseconds(), h.Origin, h.RequestedAt.UTC())
	return err
}

// GetRecentHistory returns the newest entries first.
func GetRecentHistory(ctx context.Context, guildID snowflake.ID, limit int) ([]*TrackHistory, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, guild_id, requester_id, title, uri, duration_ms, origin, requested_at
		FROM track_history
		WHERE guild_id = ?
		ORDER BY requested_at DESC, id DESC
		LIMIT ?
	`, guildID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*TrackHistory
	for rows.Next() {
		var h TrackHistory
		var gID, rID string
		var durationMs int64
		if err := rows.Scan(&h.ID, &gID, &rID, &h.Title, &h.URI, &durationMs, &h.Origin, &h.RequestedAt); err != nil {
			return nil, err
		}
		h.GuildID, _ = snowflake.Parse(gID)
		h.RequesterID, _ = snowflake.Parse(rID)
		h.Duration = time.Duration(durationMs) * time.Millisecond
		history = append(history, &h)
	}
	return history, rows.Err()
}

func GetHistoryCount(ctx context.Context, guildID snowflake.ID) (int, error) {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_history WHERE guild_id = ?", guildID.String()).Scan(&count)
	return count, err
}
