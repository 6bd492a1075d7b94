package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openPostgres(ctx context.Context, dsn string) (*sqlRepo, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("POSTGRES_DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	setDBPoolDefaults(db, 8)
	db.SetConnMaxIdleTime(2 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlRepo{db: db, kind: backendPostgres, schema: postgresSchema}, nil
}

const postgresVideoColumns = `
		video_id TEXT PRIMARY KEY,
		video_url TEXT NOT NULL,
		owner_handle TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		alt_text TEXT NOT NULL DEFAULT '',
		like_count_text TEXT NOT NULL DEFAULT '',
		like_count BIGINT,
		play_count_text TEXT NOT NULL DEFAULT '',
		play_count BIGINT,
		extraction_method TEXT NOT NULL DEFAULT '',
		crawled_at BIGINT NOT NULL`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS crawler_accounts (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		proxy TEXT,
		is_alive SMALLINT NOT NULL DEFAULT 1,
		last_used BIGINT
	);`,
	`CREATE TABLE IF NOT EXISTS favorite_users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		crawler_account_id BIGINT NOT NULL REFERENCES crawler_accounts(id),
		is_alive SMALLINT NOT NULL DEFAULT 1,
		priority INTEGER NOT NULL DEFAULT 0,
		last_crawled BIGINT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_favorite_users_account ON favorite_users(crawler_account_id, is_alive);`,
	`CREATE TABLE IF NOT EXISTS video_light_raw_data (` + postgresVideoColumns + `
	);`,
	`CREATE INDEX IF NOT EXISTS idx_light_owner ON video_light_raw_data(owner_handle);`,
	`CREATE TABLE IF NOT EXISTS video_heavy_raw_data (` + postgresVideoColumns + `,
		caption TEXT NOT NULL DEFAULT '',
		nickname TEXT NOT NULL DEFAULT '',
		audio_id TEXT NOT NULL DEFAULT '',
		audio_url TEXT NOT NULL DEFAULT '',
		audio_title TEXT NOT NULL DEFAULT '',
		audio_author TEXT NOT NULL DEFAULT '',
		comment_count_text TEXT NOT NULL DEFAULT '',
		comment_count BIGINT,
		collect_count_text TEXT NOT NULL DEFAULT '',
		collect_count BIGINT,
		share_count_text TEXT NOT NULL DEFAULT '',
		share_count BIGINT,
		post_time_text TEXT NOT NULL DEFAULT '',
		posted_at BIGINT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_heavy_owner ON video_heavy_raw_data(owner_handle);`,
}
