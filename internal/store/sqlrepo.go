package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	tableIdentities = "crawler_accounts"
	tableTargets    = "favorite_users"
	tableLight      = "video_light_raw_data"
	tableHeavy      = "video_heavy_raw_data"
)

var lightColumns = []string{
	"video_id", "video_url", "owner_handle", "thumbnail_url", "alt_text",
	"like_count_text", "like_count", "play_count_text", "play_count",
	"extraction_method", "crawled_at",
}

var heavyColumns = append(append([]string{}, lightColumns...),
	"caption", "nickname", "audio_id", "audio_url", "audio_title", "audio_author",
	"comment_count_text", "comment_count", "collect_count_text", "collect_count",
	"share_count_text", "share_count", "post_time_text", "posted_at",
)

// sqlRepo implements Repository on database/sql for every SQL dialect.
type sqlRepo struct {
	db     *sql.DB
	kind   sqlBackendKind
	schema []string
}

func (r *sqlRepo) q(query string) string { return rebind(r.kind, query) }

func (r *sqlRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range r.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s init schema: %w", r.kind, err)
		}
	}
	return nil
}

func (r *sqlRepo) Close() error { return r.db.Close() }

const identityColumns = "id, username, password, proxy, is_alive, last_used"

func scanIdentity(row interface{ Scan(...any) error }) (CrawlIdentity, error) {
	var (
		out      CrawlIdentity
		proxy    sql.NullString
		alive    int64
		lastUsed sql.NullInt64
	)
	if err := row.Scan(&out.ID, &out.Handle, &out.Secret, &proxy, &alive, &lastUsed); err != nil {
		return CrawlIdentity{}, err
	}
	out.Proxy = proxy.String
	out.Alive = alive != 0
	if lastUsed.Valid {
		out.LastUsed = timeFromUnix(&lastUsed.Int64)
	}
	return out, nil
}

// SelectAvailableIdentity picks the least recently used live identity; never-used first.
func (r *sqlRepo) SelectAvailableIdentity(ctx context.Context) (CrawlIdentity, error) {
	row := r.db.QueryRowContext(ctx, r.q(
		`SELECT `+identityColumns+` FROM `+tableIdentities+`
		 WHERE is_alive = 1
		 ORDER BY CASE WHEN last_used IS NULL THEN 0 ELSE 1 END, last_used ASC, id ASC
		 LIMIT 1`))
	id, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CrawlIdentity{}, ErrNoIdentity
	}
	return id, err
}

func (r *sqlRepo) IdentityByID(ctx context.Context, id int64) (CrawlIdentity, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+identityColumns+` FROM `+tableIdentities+` WHERE id = ?`), id)
	out, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CrawlIdentity{}, fmt.Errorf("identity %d: %w", id, ErrNoIdentity)
	}
	return out, err
}

func (r *sqlRepo) UpdateIdentityLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE `+tableIdentities+` SET last_used = ? WHERE id = ?`), at.Unix(), id)
	return err
}

// SelectTargetBatch returns live targets of one identity: never crawled first, then by
// priority, then oldest crawl first.
func (r *sqlRepo) SelectTargetBatch(ctx context.Context, identityID int64, limit int) ([]TargetAccount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, r.q(
		`SELECT id, username, crawler_account_id, is_alive, priority, last_crawled FROM `+tableTargets+`
		 WHERE crawler_account_id = ? AND is_alive = 1
		 ORDER BY CASE WHEN last_crawled IS NULL THEN 0 ELSE 1 END, priority DESC, last_crawled ASC, id ASC
		 LIMIT ?`), identityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TargetAccount
	for rows.Next() {
		var (
			t           TargetAccount
			alive       int64
			lastCrawled sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Handle, &t.IdentityID, &alive, &t.Priority, &lastCrawled); err != nil {
			return nil, err
		}
		t.Alive = alive != 0
		if lastCrawled.Valid {
			t.LastCrawled = timeFromUnix(&lastCrawled.Int64)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *sqlRepo) UpdateTargetLastCrawled(ctx context.Context, handle string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE `+tableTargets+` SET last_crawled = ? WHERE username = ?`), at.Unix(), handle)
	return err
}

func (r *sqlRepo) UpdateTargetLiveness(ctx context.Context, handle string, alive bool) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE `+tableTargets+` SET is_alive = ? WHERE username = ?`), boolToInt(alive), handle)
	return err
}

func lightArgs(rec VideoLightRecord) []any {
	return []any{
		rec.VideoID, rec.VideoURL, rec.OwnerHandle, rec.ThumbnailURL, rec.AltText,
		rec.LikeCountText, int64OrNil(rec.LikeCount), rec.PlayCountText, int64OrNil(rec.PlayCount),
		rec.ExtractionMethod, rec.CrawledAt.Unix(),
	}
}

func (r *sqlRepo) UpsertLightRecord(ctx context.Context, rec VideoLightRecord) error {
	if strings.TrimSpace(rec.VideoID) == "" {
		return errors.New("video_id is empty")
	}
	_, err := r.db.ExecContext(ctx, upsertSQL(r.kind, tableLight, lightColumns, "video_id"), lightArgs(rec)...)
	return err
}

func (r *sqlRepo) UpsertHeavyRecord(ctx context.Context, rec VideoHeavyRecord) error {
	if strings.TrimSpace(rec.VideoID) == "" {
		return errors.New("video_id is empty")
	}
	args := append(lightArgs(rec.VideoLightRecord),
		rec.Caption, rec.Nickname, rec.AudioID, rec.AudioURL, rec.AudioTitle, rec.AudioAuthor,
		rec.CommentCountText, int64OrNil(rec.CommentCount), rec.CollectCountText, int64OrNil(rec.CollectCount),
		rec.ShareCountText, int64OrNil(rec.ShareCount), rec.PostTimeText, unixOrNil(rec.PostedAt),
	)
	_, err := r.db.ExecContext(ctx, upsertSQL(r.kind, tableHeavy, heavyColumns, "video_id"), args...)
	return err
}

func (r *sqlRepo) ExistingHeavyVideoIDs(ctx context.Context, ownerHandle string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT video_id FROM `+tableHeavy+` WHERE owner_handle = ?`), ownerHandle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (r *sqlRepo) SeedIdentity(ctx context.Context, id CrawlIdentity) (int64, error) {
	handle := strings.TrimSpace(id.Handle)
	if handle == "" {
		return 0, errors.New("identity handle is empty")
	}
	cols := []string{"username", "password", "proxy", "is_alive"}
	if _, err := r.db.ExecContext(ctx, upsertSQL(r.kind, tableIdentities, cols, "username"),
		handle, id.Secret, id.Proxy, boolToInt(id.Alive)); err != nil {
		return 0, err
	}
	var out int64
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id FROM `+tableIdentities+` WHERE username = ?`), handle).Scan(&out)
	return out, err
}

func (r *sqlRepo) SeedTarget(ctx context.Context, t TargetAccount) (int64, error) {
	handle := strings.TrimSpace(t.Handle)
	if handle == "" {
		return 0, errors.New("target handle is empty")
	}
	cols := []string{"username", "crawler_account_id", "is_alive", "priority"}
	if _, err := r.db.ExecContext(ctx, upsertSQL(r.kind, tableTargets, cols, "username"),
		handle, t.IdentityID, boolToInt(t.Alive), t.Priority); err != nil {
		return 0, err
	}
	var out int64
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id FROM `+tableTargets+` WHERE username = ?`), handle).Scan(&out)
	return out, err
}

type lightScan struct {
	rec       VideoLightRecord
	likeCount sql.NullInt64
	playCount sql.NullInt64
	crawledAt int64
}

func (s *lightScan) dest() []any {
	return []any{
		&s.rec.VideoID, &s.rec.VideoURL, &s.rec.OwnerHandle, &s.rec.ThumbnailURL, &s.rec.AltText,
		&s.rec.LikeCountText, &s.likeCount, &s.rec.PlayCountText, &s.playCount,
		&s.rec.ExtractionMethod, &s.crawledAt,
	}
}

func (s *lightScan) record() VideoLightRecord {
	out := s.rec
	out.LikeCount = nullInt(s.likeCount)
	out.PlayCount = nullInt(s.playCount)
	out.CrawledAt = time.Unix(s.crawledAt, 0)
	return out
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func listQuery(table string, cols []string, ownerHandle string) (string, []any) {
	q := `SELECT ` + strings.Join(cols, ", ") + ` FROM ` + table
	var args []any
	if ownerHandle != "" {
		q += ` WHERE owner_handle = ?`
		args = append(args, ownerHandle)
	}
	return q + ` ORDER BY owner_handle ASC, crawled_at DESC, video_id ASC`, args
}

func (r *sqlRepo) ListLightRecords(ctx context.Context, ownerHandle string) ([]VideoLightRecord, error) {
	q, args := listQuery(tableLight, lightColumns, ownerHandle)
	rows, err := r.db.QueryContext(ctx, r.q(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VideoLightRecord
	for rows.Next() {
		var s lightScan
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, err
		}
		out = append(out, s.record())
	}
	return out, rows.Err()
}

func (r *sqlRepo) ListHeavyRecords(ctx context.Context, ownerHandle string) ([]VideoHeavyRecord, error) {
	q, args := listQuery(tableHeavy, heavyColumns, ownerHandle)
	rows, err := r.db.QueryContext(ctx, r.q(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VideoHeavyRecord
	for rows.Next() {
		var (
			s                                  lightScan
			h                                  VideoHeavyRecord
			comments, collects, shares, posted sql.NullInt64
		)
		dest := append(s.dest(),
			&h.Caption, &h.Nickname, &h.AudioID, &h.AudioURL, &h.AudioTitle, &h.AudioAuthor,
			&h.CommentCountText, &comments, &h.CollectCountText, &collects,
			&h.ShareCountText, &shares, &h.PostTimeText, &posted,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		h.VideoLightRecord = s.record()
		h.CommentCount = nullInt(comments)
		h.CollectCount = nullInt(collects)
		h.ShareCount = nullInt(shares)
		if posted.Valid {
			h.PostedAt = timeFromUnix(&posted.Int64)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
