package main

import (
	"testing"

	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/config"
)

func newCrawlFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "crawl"}
	f := cmd.Flags()
	f.StringVar(&crawlFlags.mode, "mode", "", "")
	f.Int64Var(&crawlFlags.identity, "identity", 0, "")
	f.IntVar(&crawlFlags.maxVideos, "max-videos", 0, "")
	f.IntVar(&crawlFlags.maxTargets, "max-targets", 0, "")
	f.BoolVar(&crawlFlags.recrawl, "recrawl", false, "")
	f.StringVar(&crawlFlags.metricsAddr, "metrics-addr", "", "")
	return cmd
}

func TestApplyCrawlFlags(t *testing.T) {
	cmd := newCrawlFlagsCmd()
	if err := cmd.ParseFlags([]string{"--mode", "Heavy", "--identity", "3", "--recrawl"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := applyCrawlFlags(cmd, &cfg); err != nil {
		t.Fatalf("applyCrawlFlags: %v", err)
	}
	if cfg.CrawlMode != "heavy" || cfg.IdentityID != 3 || !cfg.Recrawl {
		t.Fatalf("unexpected config: mode=%s identity=%d recrawl=%v", cfg.CrawlMode, cfg.IdentityID, cfg.Recrawl)
	}
	if cfg.MaxVideosPerTarget != 50 || cfg.MaxTargetsPerRun != 10 {
		t.Fatalf("untouched limits changed: %d %d", cfg.MaxVideosPerTarget, cfg.MaxTargetsPerRun)
	}
}

func TestApplyCrawlFlags_BadMode(t *testing.T) {
	cmd := newCrawlFlagsCmd()
	if err := cmd.ParseFlags([]string{"--mode", "sideways"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := applyCrawlFlags(cmd, &cfg); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"crawl": false, "serve": false, "seed": false, "export": false, "init-db": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, ok := range want {
		if !ok {
			t.Fatalf("command %s not registered", name)
		}
	}
}
