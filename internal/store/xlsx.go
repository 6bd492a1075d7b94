package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetLight = "light"
	sheetHeavy = "heavy"
)

var lightHeader = []any{
	"video_id", "video_url", "owner_handle", "thumbnail_url", "alt_text",
	"like_count_text", "like_count", "play_count_text", "play_count", "extraction_method", "crawled_at",
}

var heavyHeader = append(append([]any{}, lightHeader...),
	"caption", "nickname", "audio_id", "audio_url", "audio_title", "audio_author",
	"comment_count_text", "comment_count", "collect_count_text", "collect_count",
	"share_count_text", "share_count", "post_time_text", "posted_at",
)

type ExportSummary struct {
	Path  string `json:"path"`
	Light int    `json:"light"`
	Heavy int    `json:"heavy"`
}

// ExportXLSX writes the light and heavy records of ownerHandle (all owners when empty)
// into one workbook with a sheet per pass.
func ExportXLSX(ctx context.Context, repo Repository, ownerHandle, path string) (ExportSummary, error) {
	light, err := repo.ListLightRecords(ctx, ownerHandle)
	if err != nil {
		return ExportSummary{}, fmt.Errorf("list light records: %w", err)
	}
	heavy, err := repo.ListHeavyRecords(ctx, ownerHandle)
	if err != nil {
		return ExportSummary{}, fmt.Errorf("list heavy records: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetLight); err != nil {
		return ExportSummary{}, err
	}
	if _, err := f.NewSheet(sheetHeavy); err != nil {
		return ExportSummary{}, err
	}
	if err := writeRow(f, sheetLight, 1, lightHeader); err != nil {
		return ExportSummary{}, err
	}
	if err := writeRow(f, sheetHeavy, 1, heavyHeader); err != nil {
		return ExportSummary{}, err
	}
	for i, rec := range light {
		if err := writeRow(f, sheetLight, i+2, lightRow(rec)); err != nil {
			return ExportSummary{}, err
		}
	}
	for i, rec := range heavy {
		row := append(lightRow(rec.VideoLightRecord),
			rec.Caption, rec.Nickname, rec.AudioID, rec.AudioURL, rec.AudioTitle, rec.AudioAuthor,
			rec.CommentCountText, cellInt(rec.CommentCount), rec.CollectCountText, cellInt(rec.CollectCount),
			rec.ShareCountText, cellInt(rec.ShareCount), rec.PostTimeText, cellTime(rec.PostedAt),
		)
		if err := writeRow(f, sheetHeavy, i+2, row); err != nil {
			return ExportSummary{}, err
		}
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ExportSummary{}, err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{Path: path, Light: len(light), Heavy: len(heavy)}, nil
}

func lightRow(rec VideoLightRecord) []any {
	return []any{
		rec.VideoID, rec.VideoURL, rec.OwnerHandle, rec.ThumbnailURL, rec.AltText,
		rec.LikeCountText, cellInt(rec.LikeCount), rec.PlayCountText, cellInt(rec.PlayCount),
		rec.ExtractionMethod, rec.CrawledAt.UTC().Format(time.RFC3339),
	}
}

func cellInt(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func cellTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
