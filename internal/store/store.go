package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiktok-crawler-go/internal/config"
)

// ErrNoIdentity is returned when no live identity is available.
var ErrNoIdentity = errors.New("no available crawl identity")

// Repository is the persistence boundary of the crawler. Every write is a single
// upsert of one fully formed record.
type Repository interface {
	SelectAvailableIdentity(ctx context.Context) (CrawlIdentity, error)
	IdentityByID(ctx context.Context, id int64) (CrawlIdentity, error)
	UpdateIdentityLastUsed(ctx context.Context, id int64, at time.Time) error

	SelectTargetBatch(ctx context.Context, identityID int64, limit int) ([]TargetAccount, error)
	UpdateTargetLastCrawled(ctx context.Context, handle string, at time.Time) error
	UpdateTargetLiveness(ctx context.Context, handle string, alive bool) error

	UpsertLightRecord(ctx context.Context, rec VideoLightRecord) error
	UpsertHeavyRecord(ctx context.Context, rec VideoHeavyRecord) error
	ExistingHeavyVideoIDs(ctx context.Context, ownerHandle string) (map[string]struct{}, error)

	SeedIdentity(ctx context.Context, id CrawlIdentity) (int64, error)
	SeedTarget(ctx context.Context, t TargetAccount) (int64, error)
	ListLightRecords(ctx context.Context, ownerHandle string) ([]VideoLightRecord, error)
	ListHeavyRecords(ctx context.Context, ownerHandle string) ([]VideoHeavyRecord, error)

	EnsureSchema(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and makes sure the schema exists.
func Open(ctx context.Context, cfg config.Config) (Repository, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var (
		repo Repository
		err  error
	)
	switch k := backendKind(cfg.StoreBackend); k {
	case backendSQLite:
		repo, err = openSQLite(ctx, cfg.SQLitePath)
	case backendMySQL:
		repo, err = openMySQL(ctx, cfg.MySQLDSN)
	case backendPostgres:
		repo, err = openPostgres(ctx, cfg.PostgresDSN)
	case backendMongoDB:
		repo, err = openMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND: %q (supported: sqlite|mysql|postgres|mongodb)", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}
