package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/platform"
)

const exitInterrupted = 130

var crawlFlags struct {
	mode        string
	identity    int64
	maxVideos   int
	maxTargets  int
	recrawl     bool
	metricsAddr string
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl over the selected identity's target accounts.",
	Example: `  tiktok-crawler crawl --mode light
  tiktok-crawler crawl --identity 3 --max-videos 20 --recrawl`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.StringVar(&crawlFlags.mode, "mode", "", "light, heavy or both")
	f.Int64Var(&crawlFlags.identity, "identity", 0, "crawl identity id (default: least recently used)")
	f.IntVar(&crawlFlags.maxVideos, "max-videos", 0, "videos per target")
	f.IntVar(&crawlFlags.maxTargets, "max-targets", 0, "targets per run")
	f.BoolVar(&crawlFlags.recrawl, "recrawl", false, "revisit videos that already have a detail record")
	f.StringVar(&crawlFlags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while crawling")
	rootCmd.AddCommand(crawlCmd)
}

func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("mode") {
		mode, ok := crawler.ParseMode(crawlFlags.mode)
		if !ok {
			return errors.New("--mode must be light, heavy or both")
		}
		cfg.CrawlMode = string(mode)
	}
	if f.Changed("identity") {
		cfg.IdentityID = crawlFlags.identity
	}
	if f.Changed("max-videos") {
		cfg.MaxVideosPerTarget = crawlFlags.maxVideos
	}
	if f.Changed("max-targets") {
		cfg.MaxTargetsPerRun = crawlFlags.maxTargets
	}
	if f.Changed("recrawl") {
		cfg.Recrawl = crawlFlags.recrawl
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = crawlFlags.metricsAddr
	}
	return nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if err := applyCrawlFlags(cmd, &config.AppConfig); err != nil {
		return exitError{code: 1, err: err}
	}
	cfg := config.AppConfig

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr)
		defer shutdown()
	}

	r, err := platform.New(cfg.Platform)
	if err != nil {
		logger.Error("crawler init failed", "err", err)
		return exitError{code: 1, err: err}
	}

	req := crawler.RequestFromConfig(cfg)
	logger.Info("starting crawler", "platform", req.Platform, "mode", req.Mode, "identity_id", req.IdentityID)
	res, err := r.Run(ctx, req)

	if ctx.Err() != nil {
		logger.Warn("crawler interrupted", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed)
		return exitError{code: exitInterrupted}
	}
	if err != nil {
		riskHint := ""
		var ce crawler.Error
		if errors.As(err, &ce) && ce.Kind == crawler.ErrorKindRiskHint {
			riskHint = ce.Hint
		}
		logger.Error("crawler failed", "err", err, "error_kind", crawler.KindOf(err), "risk_hint", riskHint, "identity_id", res.IdentityID)
		return exitError{code: 1, err: err}
	}

	logger.Info("crawler finished",
		"platform", res.Platform,
		"mode", res.Mode,
		"identity_id", res.IdentityID,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"not_found", res.NotFound,
		"failed", res.Failed,
		"light_records", res.LightRecords,
		"heavy_records", res.HeavyRecords,
		"correlate_miss", res.CorrelateMiss,
		"failure_kinds", res.FailureKinds,
	)
	return nil
}

func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
