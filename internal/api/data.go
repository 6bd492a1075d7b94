package api

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/store"
)

func (s *Server) handleDataRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := strings.TrimPrefix(strings.TrimSpace(q.Get("owner")), "@")
	pass := strings.ToLower(strings.TrimSpace(q.Get("pass")))
	if pass == "" {
		pass = "light"
	}
	if pass != "light" && pass != "heavy" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "pass must be light or heavy"})
		return
	}
	limit := min(max(queryIntDefault(q, "limit", 100), 1), 1000)

	repo, err := s.openRepo(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	defer repo.Close()

	var (
		records any
		total   int
	)
	if pass == "light" {
		rows, err := repo.ListLightRecords(r.Context(), owner)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		total = len(rows)
		records = rows[:min(limit, len(rows))]
	} else {
		rows, err := repo.ListHeavyRecords(r.Context(), owner)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		total = len(rows)
		records = rows[:min(limit, len(rows))]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pass":    pass,
		"owner":   owner,
		"total":   total,
		"records": records,
	})
}

func (s *Server) handleDataExport(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("owner")), "@")
	repo, err := s.openRepo(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	defer repo.Close()

	dir, err := os.MkdirTemp("", "tiktok-export-")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	name := "videos.xlsx"
	if owner != "" {
		name = owner + ".xlsx"
	}
	sum, err := store.ExportXLSX(r.Context(), repo, owner, filepath.Join(dir, name))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	logger.Info("records exported", "owner", owner, "light", sum.Light, "heavy", sum.Heavy)
	serveDownload(w, sum.Path, name)
}

func queryIntDefault(q url.Values, key string, defaultValue int) int {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func serveDownload(w http.ResponseWriter, path, filename string) {
	f, err := os.Open(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	defer f.Close()

	w.Header().Set("content-type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("content-disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}
