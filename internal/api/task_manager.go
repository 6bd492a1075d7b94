package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/platform"
)

var ErrTaskRunning = errors.New("task is running")

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

type Status struct {
	State      string          `json:"state"`
	Platform   string          `json:"platform,omitempty"`
	Mode       string          `json:"mode,omitempty"`
	StartedAt  int64           `json:"started_at,omitempty"`
	FinishedAt int64           `json:"finished_at,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
	LastResult *crawler.Result `json:"last_result,omitempty"`
}

// RunRequest overrides the configured run parameters for one API-triggered run.
type RunRequest struct {
	Platform   string `json:"platform,omitempty"`
	Mode       string `json:"mode,omitempty"`
	IdentityID int64  `json:"identity_id,omitempty"`
	MaxVideos  int    `json:"max_videos,omitempty"`
	MaxTargets int    `json:"max_targets,omitempty"`
	Recrawl    *bool  `json:"recrawl,omitempty"`
}

type RunFunc func(context.Context, crawler.Request) (crawler.Result, error)

// TaskManager runs at most one crawl at a time in the background.
type TaskManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	status Status
	runFn  RunFunc
}

func NewTaskManager() *TaskManager {
	return NewTaskManagerWithRunner(runCrawler)
}

func NewTaskManagerWithRunner(runFn RunFunc) *TaskManager {
	if runFn == nil {
		runFn = runCrawler
	}
	return &TaskManager{status: Status{State: "idle"}, runFn: runFn}
}

func (m *TaskManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *TaskManager) Run(req RunRequest) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrTaskRunning
	}
	creq, err := buildRequest(config.AppConfig, req)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.status = Status{
		State:     "running",
		Platform:  creq.Platform,
		Mode:      string(creq.Mode),
		StartedAt: time.Now().Unix(),
	}
	m.mu.Unlock()

	go func() {
		res, err := m.runFn(ctx, creq)
		cancel()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cancel = nil
		m.status.State = "idle"
		m.status.FinishedAt = time.Now().Unix()
		m.status.LastResult = &res
		if err != nil {
			m.status.LastError = err.Error()
			logger.Warn("api run finished with error", "err", err)
		} else {
			m.status.LastError = ""
			logger.Info("api run finished", "processed", res.Processed, "failed", res.Failed)
		}
	}()
	return nil
}

func (m *TaskManager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.cancel()
	m.status.State = "stopping"
	return true
}

func runCrawler(ctx context.Context, req crawler.Request) (crawler.Result, error) {
	r, err := platform.New(req.Platform)
	if err != nil {
		return crawler.Result{}, err
	}
	return r.Run(ctx, req)
}

func buildRequest(cfg config.Config, req RunRequest) (crawler.Request, error) {
	out := crawler.RequestFromConfig(cfg)
	if v := strings.TrimSpace(req.Platform); v != "" {
		out.Platform = v
	}
	if out.Platform == "" {
		out.Platform = "tiktok"
	}
	name, ok := platform.Canonical(out.Platform)
	if !ok {
		return crawler.Request{}, ValidationError{Field: "platform", Msg: fmt.Sprintf("unknown platform %q", out.Platform)}
	}
	out.Platform = name
	if v := strings.TrimSpace(req.Mode); v != "" {
		mode, ok := crawler.ParseMode(v)
		if !ok {
			return crawler.Request{}, ValidationError{Field: "mode", Msg: "expected light, heavy or both"}
		}
		out.Mode = mode
	}
	if req.IdentityID < 0 || req.MaxVideos < 0 || req.MaxTargets < 0 {
		return crawler.Request{}, ValidationError{Field: "limits", Msg: "must not be negative"}
	}
	if req.IdentityID > 0 {
		out.IdentityID = req.IdentityID
	}
	if req.MaxVideos > 0 {
		out.MaxVideos = req.MaxVideos
	}
	if req.MaxTargets > 0 {
		out.MaxTargets = req.MaxTargets
	}
	if req.Recrawl != nil {
		out.Recrawl = *req.Recrawl
	}
	return out, nil
}
