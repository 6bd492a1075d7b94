package proxy

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"tiktok-crawler-go/internal/crawler"
)

const (
	kuaidailiEndpoint            = "https://dps.kdlapi.com/api/getdps/"
	kuaidailiDeltaExpiredSeconds = 5
)

var kuaidailiEntryRe = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3}):(\d{1,5}),(\d+)`)

type KuaiDaiLiOptions struct {
	SecretID  string
	Signature string
	UserName  string
	UserPwd   string

	Endpoint   string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	RetryMax   time.Duration
}

type KuaiDaiLi struct {
	opts   KuaiDaiLiOptions
	client *resty.Client
}

func NewKuaiDaiLi(opts KuaiDaiLiOptions) *KuaiDaiLi {
	if opts.Endpoint == "" {
		opts.Endpoint = kuaidailiEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	rc := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMax)
	rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return crawler.ShouldRetryError(err)
		}
		return r != nil && crawler.ShouldRetryStatus(r.StatusCode())
	})
	return &KuaiDaiLi{opts: opts, client: rc}
}

func (p *KuaiDaiLi) Name() ProviderName {
	return ProviderKuaiDaiLi
}

type kuaidailiResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ProxyList []string `json:"proxy_list"`
	} `json:"data"`
}

func (p *KuaiDaiLi) GetProxies(ctx context.Context, num int) ([]Proxy, error) {
	if num <= 0 {
		num = 1
	}
	if p.opts.SecretID == "" || p.opts.Signature == "" {
		return nil, fmt.Errorf("kuaidaili credentials missing: set KDL_SECRET_ID and KDL_SIGNATURE")
	}

	var r kuaidailiResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"secret_id": p.opts.SecretID,
			"signature": p.opts.Signature,
			"pt":        "1",
			"format":    "json",
			"sep":       "1",
			"f_et":      "1",
			"num":       strconv.Itoa(num),
		}).
		SetResult(&r).
		Get(p.opts.Endpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, crawler.NewHTTPStatusError(string(ProviderKuaiDaiLi), p.opts.Endpoint, resp.StatusCode(), resp.String())
	}
	if r.Code != 0 {
		return nil, fmt.Errorf("kuaidaili api error: %s", r.Msg)
	}

	now := time.Now()
	out := make([]Proxy, 0, len(r.Data.ProxyList))
	for _, item := range r.Data.ProxyList {
		m := kuaidailiEntryRe.FindStringSubmatch(item)
		if len(m) != 4 {
			continue
		}
		port, _ := strconv.Atoi(m[2])
		expireSeconds, _ := strconv.Atoi(m[3])
		out = append(out, Proxy{
			IP:        m[1],
			Port:      port,
			User:      p.opts.UserName,
			Password:  p.opts.UserPwd,
			Protocol:  "http",
			ExpiredAt: now.Add(time.Duration(expireSeconds-kuaidailiDeltaExpiredSeconds) * time.Second),
		})
	}
	return out, nil
}
