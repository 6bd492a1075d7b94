package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func openMySQL(ctx context.Context, dsn string) (*sqlRepo, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("MYSQL_DSN is empty")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	setDBPoolDefaults(db, 8)
	db.SetConnMaxIdleTime(2 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlRepo{db: db, kind: backendMySQL, schema: mysqlSchema}, nil
}

const mysqlVideoColumns = `
		video_id VARCHAR(64) NOT NULL,
		video_url VARCHAR(512) NOT NULL,
		owner_handle VARCHAR(191) NOT NULL,
		thumbnail_url TEXT NOT NULL,
		alt_text TEXT NOT NULL,
		like_count_text VARCHAR(64) NOT NULL DEFAULT '',
		like_count BIGINT NULL,
		play_count_text VARCHAR(64) NOT NULL DEFAULT '',
		play_count BIGINT NULL,
		extraction_method VARCHAR(32) NOT NULL DEFAULT '',
		crawled_at BIGINT NOT NULL,`

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS crawler_accounts (
		id BIGINT NOT NULL AUTO_INCREMENT,
		username VARCHAR(191) NOT NULL,
		password VARCHAR(255) NOT NULL,
		proxy VARCHAR(255) NULL,
		is_alive TINYINT NOT NULL DEFAULT 1,
		last_used BIGINT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_crawler_accounts_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS favorite_users (
		id BIGINT NOT NULL AUTO_INCREMENT,
		username VARCHAR(191) NOT NULL,
		crawler_account_id BIGINT NOT NULL,
		is_alive TINYINT NOT NULL DEFAULT 1,
		priority INT NOT NULL DEFAULT 0,
		last_crawled BIGINT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_favorite_users_username (username),
		KEY idx_favorite_users_account (crawler_account_id, is_alive)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS video_light_raw_data (` + mysqlVideoColumns + `
		PRIMARY KEY (video_id),
		KEY idx_light_owner (owner_handle)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS video_heavy_raw_data (` + mysqlVideoColumns + `
		caption TEXT NOT NULL,
		nickname VARCHAR(255) NOT NULL DEFAULT '',
		audio_id VARCHAR(64) NOT NULL DEFAULT '',
		audio_url VARCHAR(512) NOT NULL DEFAULT '',
		audio_title VARCHAR(512) NOT NULL DEFAULT '',
		audio_author VARCHAR(255) NOT NULL DEFAULT '',
		comment_count_text VARCHAR(64) NOT NULL DEFAULT '',
		comment_count BIGINT NULL,
		collect_count_text VARCHAR(64) NOT NULL DEFAULT '',
		collect_count BIGINT NULL,
		share_count_text VARCHAR(64) NOT NULL DEFAULT '',
		share_count BIGINT NULL,
		post_time_text VARCHAR(64) NOT NULL DEFAULT '',
		posted_at BIGINT NULL,
		PRIMARY KEY (video_id),
		KEY idx_heavy_owner (owner_handle)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
}
