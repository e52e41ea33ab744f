// Package health exposes the liveness probe on a listener independent
// from the bot runtime.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rajeshboy669/linxbot/core/logger"
	"log/slog"
)

// Server answers GET /health with 200 OK while the process is alive.
type Server struct {
	srv *http.Server
}

// New builds a Server bound to the given listen address, e.g. ":8000".
func New(listen string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &Server{
		srv: &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves the probe in its own goroutine. It shares no state with
// the bot and never stops it on failure.
func (s *Server) Start() {
	go func() {
		logger.Info(context.Background(), "health", "listen",
			slog.String("status", "ok"),
			slog.String("listen", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "health", "serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the probe mux for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
