package proxy

import (
	"context"
	"errors"
	"os"
	"strings"

	"tiktok-crawler-go/internal/logger"
)

// StaticProvider serves routes from IP_PROXY_LIST or, when that is empty, from
// IP_PROXY_FILE (one or more entries per line, '#' comments allowed).
type StaticProvider struct {
	List string
	File string
}

func NewStatic(list, file string) *StaticProvider {
	return &StaticProvider{List: strings.TrimSpace(list), File: strings.TrimSpace(file)}
}

func (p *StaticProvider) Name() ProviderName {
	return ProviderStatic
}

func (p *StaticProvider) GetProxies(ctx context.Context, num int) ([]Proxy, error) {
	num = max(num, 1)
	entries, err := p.entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("static proxy list is empty: set IP_PROXY_LIST or IP_PROXY_FILE")
	}

	var out []Proxy
	for _, e := range entries {
		if len(out) == num {
			break
		}
		pr, err := Parse(e)
		if err != nil {
			logger.Warn("skipping static proxy entry", "err", err)
			continue
		}
		out = append(out, pr)
	}
	if len(out) == 0 {
		return nil, errors.New("no valid proxy entries parsed from static list")
	}
	return out, nil
}

func (p *StaticProvider) entries() ([]string, error) {
	if p.List != "" {
		return splitProxyList(p.List), nil
	}
	if p.File == "" {
		return nil, nil
	}
	b, err := os.ReadFile(p.File)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, splitProxyList(line)...)
	}
	return out, nil
}

// splitProxyList accepts comma, semicolon and newline separators.
func splitProxyList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
}
