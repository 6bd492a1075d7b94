package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func sqlitePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = "data/tiktok_crawler.db"
	}
	return p
}

func openSQLite(ctx context.Context, path string) (*sqlRepo, error) {
	p := sqlitePath(path)
	if dir := filepath.Dir(p); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlRepo{db: db, kind: backendSQLite, schema: sqliteSchema}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS crawler_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		proxy TEXT,
		is_alive INTEGER NOT NULL DEFAULT 1,
		last_used INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS favorite_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		crawler_account_id INTEGER NOT NULL REFERENCES crawler_accounts(id),
		is_alive INTEGER NOT NULL DEFAULT 1,
		priority INTEGER NOT NULL DEFAULT 0,
		last_crawled INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_favorite_users_account ON favorite_users(crawler_account_id, is_alive);`,
	`CREATE TABLE IF NOT EXISTS video_light_raw_data (
		video_id TEXT PRIMARY KEY,
		video_url TEXT NOT NULL,
		owner_handle TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		alt_text TEXT NOT NULL DEFAULT '',
		like_count_text TEXT NOT NULL DEFAULT '',
		like_count INTEGER,
		play_count_text TEXT NOT NULL DEFAULT '',
		play_count INTEGER,
		extraction_method TEXT NOT NULL DEFAULT '',
		crawled_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_light_owner ON video_light_raw_data(owner_handle);`,
	`CREATE TABLE IF NOT EXISTS video_heavy_raw_data (
		video_id TEXT PRIMARY KEY,
		video_url TEXT NOT NULL,
		owner_handle TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		alt_text TEXT NOT NULL DEFAULT '',
		like_count_text TEXT NOT NULL DEFAULT '',
		like_count INTEGER,
		play_count_text TEXT NOT NULL DEFAULT '',
		play_count INTEGER,
		extraction_method TEXT NOT NULL DEFAULT '',
		crawled_at INTEGER NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		nickname TEXT NOT NULL DEFAULT '',
		audio_id TEXT NOT NULL DEFAULT '',
		audio_url TEXT NOT NULL DEFAULT '',
		audio_title TEXT NOT NULL DEFAULT '',
		audio_author TEXT NOT NULL DEFAULT '',
		comment_count_text TEXT NOT NULL DEFAULT '',
		comment_count INTEGER,
		collect_count_text TEXT NOT NULL DEFAULT '',
		collect_count INTEGER,
		share_count_text TEXT NOT NULL DEFAULT '',
		share_count INTEGER,
		post_time_text TEXT NOT NULL DEFAULT '',
		posted_at INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_heavy_owner ON video_heavy_raw_data(owner_handle);`,
}
