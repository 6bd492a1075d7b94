package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoRepo struct {
	cli *mongo.Client
	db  *mongo.Database
}

func openMongo(ctx context.Context, uri, dbName string) (*mongoRepo, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("MONGO_URI is empty")
	}
	dbName = strings.TrimSpace(dbName)
	if dbName == "" {
		dbName = "tiktok_crawler"
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return &mongoRepo{cli: cli, db: cli.Database(dbName)}, nil
}

type identityDoc struct {
	ID       int64  `bson:"_id"`
	Username string `bson:"username"`
	Password string `bson:"password"`
	Proxy    string `bson:"proxy"`
	IsAlive  bool   `bson:"is_alive"`
	LastUsed *int64 `bson:"last_used,omitempty"`
}

func (d identityDoc) model() CrawlIdentity {
	return CrawlIdentity{ID: d.ID, Handle: d.Username, Secret: d.Password, Proxy: d.Proxy, Alive: d.IsAlive, LastUsed: timeFromUnix(d.LastUsed)}
}

type targetDoc struct {
	ID               int64  `bson:"_id"`
	Username         string `bson:"username"`
	CrawlerAccountID int64  `bson:"crawler_account_id"`
	IsAlive          bool   `bson:"is_alive"`
	Priority         int    `bson:"priority"`
	LastCrawled      *int64 `bson:"last_crawled,omitempty"`
}

type lightDoc struct {
	VideoID          string `bson:"video_id"`
	VideoURL         string `bson:"video_url"`
	OwnerHandle      string `bson:"owner_handle"`
	ThumbnailURL     string `bson:"thumbnail_url"`
	AltText          string `bson:"alt_text"`
	LikeCountText    string `bson:"like_count_text"`
	LikeCount        *int64 `bson:"like_count"`
	PlayCountText    string `bson:"play_count_text"`
	PlayCount        *int64 `bson:"play_count"`
	ExtractionMethod string `bson:"extraction_method"`
	CrawledAt        int64  `bson:"crawled_at"`
}

func toLightDoc(r VideoLightRecord) lightDoc {
	return lightDoc{
		VideoID: r.VideoID, VideoURL: r.VideoURL, OwnerHandle: r.OwnerHandle,
		ThumbnailURL: r.ThumbnailURL, AltText: r.AltText,
		LikeCountText: r.LikeCountText, LikeCount: r.LikeCount,
		PlayCountText: r.PlayCountText, PlayCount: r.PlayCount,
		ExtractionMethod: r.ExtractionMethod, CrawledAt: r.CrawledAt.Unix(),
	}
}

func (d lightDoc) model() VideoLightRecord {
	return VideoLightRecord{
		VideoID: d.VideoID, VideoURL: d.VideoURL, OwnerHandle: d.OwnerHandle,
		ThumbnailURL: d.ThumbnailURL, AltText: d.AltText,
		LikeCountText: d.LikeCountText, LikeCount: d.LikeCount,
		PlayCountText: d.PlayCountText, PlayCount: d.PlayCount,
		ExtractionMethod: d.ExtractionMethod, CrawledAt: time.Unix(d.CrawledAt, 0),
	}
}

type heavyDoc struct {
	Light            lightDoc `bson:",inline"`
	Caption          string   `bson:"caption"`
	Nickname         string   `bson:"nickname"`
	AudioID          string   `bson:"audio_id"`
	AudioURL         string   `bson:"audio_url"`
	AudioTitle       string   `bson:"audio_title"`
	AudioAuthor      string   `bson:"audio_author"`
	CommentCountText string   `bson:"comment_count_text"`
	CommentCount     *int64   `bson:"comment_count"`
	CollectCountText string   `bson:"collect_count_text"`
	CollectCount     *int64   `bson:"collect_count"`
	ShareCountText   string   `bson:"share_count_text"`
	ShareCount       *int64   `bson:"share_count"`
	PostTimeText     string   `bson:"post_time_text"`
	PostedAt         *int64   `bson:"posted_at"`
}

func (r *mongoRepo) EnsureSchema(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		tableIdentities: {{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		}},
		tableTargets: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_username"),
			},
			{
				Keys:    bson.D{{Key: "crawler_account_id", Value: 1}, {Key: "is_alive", Value: 1}},
				Options: options.Index().SetName("idx_account_alive"),
			},
		},
		tableLight: {
			{Keys: bson.D{{Key: "video_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_video")},
			{Keys: bson.D{{Key: "owner_handle", Value: 1}}, Options: options.Index().SetName("idx_owner")},
		},
		tableHeavy: {
			{Keys: bson.D{{Key: "video_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_video")},
			{Keys: bson.D{{Key: "owner_handle", Value: 1}}, Options: options.Index().SetName("idx_owner")},
		},
	}
	for coll, models := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo create indexes %s: %w", coll, err)
		}
	}
	return nil
}

func (r *mongoRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.cli.Disconnect(ctx)
}

func (r *mongoRepo) SelectAvailableIdentity(ctx context.Context) (CrawlIdentity, error) {
	// Missing last_used sorts before any value, so never-used identities come first.
	opts := options.FindOne().SetSort(bson.D{{Key: "last_used", Value: 1}, {Key: "_id", Value: 1}})
	var doc identityDoc
	err := r.db.Collection(tableIdentities).FindOne(ctx, bson.M{"is_alive": true}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return CrawlIdentity{}, ErrNoIdentity
	}
	if err != nil {
		return CrawlIdentity{}, err
	}
	return doc.model(), nil
}

func (r *mongoRepo) IdentityByID(ctx context.Context, id int64) (CrawlIdentity, error) {
	var doc identityDoc
	err := r.db.Collection(tableIdentities).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return CrawlIdentity{}, fmt.Errorf("identity %d: %w", id, ErrNoIdentity)
	}
	if err != nil {
		return CrawlIdentity{}, err
	}
	return doc.model(), nil
}

func (r *mongoRepo) UpdateIdentityLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Collection(tableIdentities).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_used": at.Unix()}})
	return err
}

func (r *mongoRepo) SelectTargetBatch(ctx context.Context, identityID int64, limit int) ([]TargetAccount, error) {
	if limit <= 0 {
		limit = 10
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"crawler_account_id": identityID, "is_alive": true}}},
		{{Key: "$addFields", Value: bson.M{"crawled": bson.M{
			"$cond": bson.A{bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$last_crawled", nil}}, nil}}, 0, 1},
		}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "crawled", Value: 1},
			{Key: "priority", Value: -1},
			{Key: "last_crawled", Value: 1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := r.db.Collection(tableTargets).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []TargetAccount
	for cur.Next(ctx) {
		var doc targetDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, TargetAccount{
			ID: doc.ID, Handle: doc.Username, IdentityID: doc.CrawlerAccountID,
			Alive: doc.IsAlive, Priority: doc.Priority, LastCrawled: timeFromUnix(doc.LastCrawled),
		})
	}
	return out, cur.Err()
}

func (r *mongoRepo) UpdateTargetLastCrawled(ctx context.Context, handle string, at time.Time) error {
	_, err := r.db.Collection(tableTargets).UpdateOne(ctx, bson.M{"username": handle}, bson.M{"$set": bson.M{"last_crawled": at.Unix()}})
	return err
}

func (r *mongoRepo) UpdateTargetLiveness(ctx context.Context, handle string, alive bool) error {
	_, err := r.db.Collection(tableTargets).UpdateOne(ctx, bson.M{"username": handle}, bson.M{"$set": bson.M{"is_alive": alive}})
	return err
}

func (r *mongoRepo) upsertVideo(ctx context.Context, coll, videoID string, doc any) error {
	if strings.TrimSpace(videoID) == "" {
		return errors.New("video_id is empty")
	}
	_, err := r.db.Collection(coll).UpdateOne(ctx,
		bson.M{"video_id": videoID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongoRepo) UpsertLightRecord(ctx context.Context, rec VideoLightRecord) error {
	return r.upsertVideo(ctx, tableLight, rec.VideoID, toLightDoc(rec))
}

func (r *mongoRepo) UpsertHeavyRecord(ctx context.Context, rec VideoHeavyRecord) error {
	var posted *int64
	if rec.PostedAt != nil {
		v := rec.PostedAt.Unix()
		posted = &v
	}
	doc := heavyDoc{
		Light:   toLightDoc(rec.VideoLightRecord),
		Caption: rec.Caption, Nickname: rec.Nickname,
		AudioID: rec.AudioID, AudioURL: rec.AudioURL, AudioTitle: rec.AudioTitle, AudioAuthor: rec.AudioAuthor,
		CommentCountText: rec.CommentCountText, CommentCount: rec.CommentCount,
		CollectCountText: rec.CollectCountText, CollectCount: rec.CollectCount,
		ShareCountText: rec.ShareCountText, ShareCount: rec.ShareCount,
		PostTimeText: rec.PostTimeText, PostedAt: posted,
	}
	return r.upsertVideo(ctx, tableHeavy, rec.VideoID, doc)
}

func (r *mongoRepo) ExistingHeavyVideoIDs(ctx context.Context, ownerHandle string) (map[string]struct{}, error) {
	opts := options.Find().SetProjection(bson.M{"video_id": 1, "_id": 0})
	cur, err := r.db.Collection(tableHeavy).Find(ctx, bson.M{"owner_handle": ownerHandle}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]struct{}{}
	for cur.Next(ctx) {
		var doc struct {
			VideoID string `bson:"video_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.VideoID] = struct{}{}
	}
	return out, cur.Err()
}

// nextSeq hands out integer ids so identities and targets keep SQL-compatible keys.
func (r *mongoRepo) nextSeq(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.Seq, err
}

func (r *mongoRepo) seed(ctx context.Context, coll, handle string, fields bson.M) (int64, error) {
	var existing struct {
		ID int64 `bson:"_id"`
	}
	err := r.db.Collection(coll).FindOne(ctx, bson.M{"username": handle}).Decode(&existing)
	switch {
	case err == nil:
		_, err = r.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": fields})
		return existing.ID, err
	case !errors.Is(err, mongo.ErrNoDocuments):
		return 0, err
	}
	id, err := r.nextSeq(ctx, coll)
	if err != nil {
		return 0, err
	}
	fields["_id"] = id
	_, err = r.db.Collection(coll).InsertOne(ctx, fields)
	return id, err
}

func (r *mongoRepo) SeedIdentity(ctx context.Context, id CrawlIdentity) (int64, error) {
	handle := strings.TrimSpace(id.Handle)
	if handle == "" {
		return 0, errors.New("identity handle is empty")
	}
	return r.seed(ctx, tableIdentities, handle, bson.M{
		"username": handle, "password": id.Secret, "proxy": id.Proxy, "is_alive": id.Alive,
	})
}

func (r *mongoRepo) SeedTarget(ctx context.Context, t TargetAccount) (int64, error) {
	handle := strings.TrimSpace(t.Handle)
	if handle == "" {
		return 0, errors.New("target handle is empty")
	}
	return r.seed(ctx, tableTargets, handle, bson.M{
		"username": handle, "crawler_account_id": t.IdentityID, "is_alive": t.Alive, "priority": t.Priority,
	})
}

func listOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{
		{Key: "owner_handle", Value: 1},
		{Key: "crawled_at", Value: -1},
		{Key: "video_id", Value: 1},
	})
}

func ownerFilter(ownerHandle string) bson.M {
	if ownerHandle == "" {
		return bson.M{}
	}
	return bson.M{"owner_handle": ownerHandle}
}

func (r *mongoRepo) ListLightRecords(ctx context.Context, ownerHandle string) ([]VideoLightRecord, error) {
	cur, err := r.db.Collection(tableLight).Find(ctx, ownerFilter(ownerHandle), listOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []VideoLightRecord
	for cur.Next(ctx) {
		var doc lightDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.model())
	}
	return out, cur.Err()
}

func (r *mongoRepo) ListHeavyRecords(ctx context.Context, ownerHandle string) ([]VideoHeavyRecord, error) {
	cur, err := r.db.Collection(tableHeavy).Find(ctx, ownerFilter(ownerHandle), listOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []VideoHeavyRecord
	for cur.Next(ctx) {
		var doc heavyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, VideoHeavyRecord{
			VideoLightRecord: doc.Light.model(),
			Caption:          doc.Caption, Nickname: doc.Nickname,
			AudioID: doc.AudioID, AudioURL: doc.AudioURL, AudioTitle: doc.AudioTitle, AudioAuthor: doc.AudioAuthor,
			CommentCountText: doc.CommentCountText, CommentCount: doc.CommentCount,
			CollectCountText: doc.CollectCountText, CollectCount: doc.CollectCount,
			ShareCountText: doc.ShareCountText, ShareCount: doc.ShareCount,
			PostTimeText: doc.PostTimeText, PostedAt: timeFromUnix(doc.PostedAt),
		})
	}
	return out, cur.Err()
}
