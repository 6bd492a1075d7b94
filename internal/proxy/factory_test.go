package proxy

import (
	"testing"

	"tiktok-crawler-go/internal/config"
)

func TestNewProvider(t *testing.T) {
	cfg := config.Default()
	for name, want := range map[string]ProviderName{
		"kuaidaili": ProviderKuaiDaiLi,
		"STATIC":    ProviderStatic,
		"":          ProviderStatic,
	} {
		cfg.IPProxyProviderName = name
		p, err := NewProvider(cfg)
		if err != nil {
			t.Fatalf("NewProvider(%q) err: %v", name, err)
		}
		if p.Name() != want {
			t.Fatalf("NewProvider(%q) got %q, want %q", name, p.Name(), want)
		}
	}

	cfg.IPProxyProviderName = "nope"
	if _, err := NewProvider(cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewPoolFromConfig_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.EnableIPProxy = false
	pool, err := NewPoolFromConfig(cfg)
	if err != nil || pool != nil {
		t.Fatalf("expected nil pool when disabled, got %v err=%v", pool, err)
	}
}

func TestParse_Factory(t *testing.T) {
	p, err := Parse("socks5://u:p@10.0.0.1:1080")
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if p.ChromeProxyServer() != "socks5://10.0.0.1:1080" || p.User != "u" || p.Password != "p" {
		t.Fatalf("unexpected proxy: %#v", p)
	}
	if _, err := Parse("not a proxy"); err == nil {
		t.Fatalf("expected error for malformed proxy")
	}
}
