package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"tiktok-crawler-go/internal/logger"
)

func (s *Server) handleWSLogs(w http.ResponseWriter, r *http.Request) {
	websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			conn.PayloadType = websocket.TextFrame
			ch, cancel := logger.Subscribe()
			defer cancel()

			for msg := range ch {
				if err := websocket.Message.Send(conn, string(msg)); err != nil {
					return
				}
			}
		},
	}.ServeHTTP(w, r)
}

func (s *Server) handleWSStatus(w http.ResponseWriter, r *http.Request) {
	interval := time.Second
	if v := strings.TrimSpace(r.URL.Query().Get("interval_ms")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			interval = time.Duration(min(max(n, 100), 5000)) * time.Millisecond
		}
	}

	websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			conn.PayloadType = websocket.TextFrame

			send := func() bool {
				b, err := json.Marshal(s.manager.Status())
				if err != nil {
					return false
				}
				b = append(b, '\n')
				return websocket.Message.Send(conn, string(b)) == nil
			}

			if !send() {
				return
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				if !send() {
					return
				}
			}
		},
	}.ServeHTTP(w, r)
}
