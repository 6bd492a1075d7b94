package api

import (
	"net/http"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/platform"
)

func (s *Server) handleConfigOptions(w http.ResponseWriter, r *http.Request) {
	cfg := config.AppConfig
	writeJSON(w, http.StatusOK, map[string]any{
		"platforms":       platform.Names(),
		"modes":           []string{"light", "heavy", "both"},
		"store_backends":  []string{"sqlite", "mysql", "postgres", "mongodb"},
		"cache_backends":  []string{"memory", "redis", "none"},
		"proxy_providers": []string{"static", "kuaidaili"},
		"descriptions": map[string]any{
			"mode": map[string]string{
				"light": "post grid like counts joined with creator tab play counts",
				"heavy": "one detail page per new video",
				"both":  "heavy pass, then light pass",
			},
		},
		"defaults": map[string]any{
			"platform":          cfg.Platform,
			"mode":              cfg.CrawlMode,
			"identity_id":       cfg.IdentityID,
			"max_videos":        cfg.MaxVideosPerTarget,
			"max_targets":       cfg.MaxTargetsPerRun,
			"recrawl":           cfg.Recrawl,
			"store_backend":     cfg.StoreBackend,
			"sqlite_path":       cfg.SQLitePath,
			"mongo_db":          cfg.MongoDB,
			"cache_backend":     cfg.CacheBackend,
			"redis_addr":        cfg.RedisAddr,
			"enable_ip_proxy":   cfg.EnableIPProxy,
			"ip_proxy_provider": cfg.IPProxyProviderName,
			"headless":          cfg.Headless,
			"pacing_enabled":    cfg.PacingEnabled,
		},
	})
}
