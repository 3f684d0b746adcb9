package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{
		Addr:        ":" + s.cfg.Port,
		Handler:     s.routes(),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info().Str("addr", srv.Addr).Msg("relay listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", s.serveWS)

	return cors(mux)
}

func (s *Service) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	sess := newSession(conn, s.keepalive)

	s.conns.Add(1)
	s.metrics.Connections.Inc()
	log.Info().Str("conn", sess.id).Str("remote", r.RemoteAddr).Msg("connection opened")
	defer func() {
		s.conns.Add(-1)
		s.metrics.Connections.Dec()
		log.Info().Str("conn", sess.id).Msg("connection closed")
	}()

	go sess.writePump()
	sess.readPump(s.ctx, s.relay, s.metrics)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{
		"status":         "online",
		"model":          s.relay.Model(),
		"queue_depth":    s.relay.Depth(),
		"queue_capacity": s.relay.Capacity(),
		"connections":    s.conns.Load(),
	}, http.StatusOK)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func jsonOK(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
