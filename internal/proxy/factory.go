package proxy

import (
	"fmt"
	"strings"
	"time"

	"tiktok-crawler-go/internal/config"
)

func NewProvider(cfg config.Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.IPProxyProviderName))
	switch ProviderName(name) {
	case ProviderKuaiDaiLi:
		return NewKuaiDaiLi(KuaiDaiLiOptions{
			SecretID:   cfg.KDLSecretID,
			Signature:  cfg.KDLSignature,
			UserName:   cfg.KDLUserName,
			UserPwd:    cfg.KDLUserPwd,
			Timeout:    time.Duration(cfg.HttpTimeoutSec) * time.Second,
			RetryCount: cfg.HttpRetryCount,
			RetryWait:  time.Duration(cfg.HttpRetryBaseDelayMs) * time.Millisecond,
			RetryMax:   time.Duration(cfg.HttpRetryMaxDelayMs) * time.Millisecond,
		}), nil
	case ProviderStatic, "":
		return NewStatic(cfg.IPProxyList, cfg.IPProxyFile), nil
	default:
		return nil, fmt.Errorf("unknown proxy provider: %s", cfg.IPProxyProviderName)
	}
}

// NewPoolFromConfig returns nil when ENABLE_IP_PROXY is off.
func NewPoolFromConfig(cfg config.Config) (*Pool, error) {
	if !cfg.EnableIPProxy {
		return nil, nil
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewPool(provider, cfg.IPProxyPoolCount), nil
}
