package www

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/icodeforyou/powerwindow/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Store interface {
	SampleReader
	LogReader
}

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	source  CurrentSamples
	hub     *Hub
	handler http.Handler
}

func NewServer(db Store, source CurrentSamples, gatherer prometheus.Gatherer, cnfg *config.AppConfig) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger: logger,
		config: cnfg.Api,
		source: source,
		hub:    NewHub(logger),
	}

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /averages", NewAveragesHandler(logger.With(slog.String("handler", "averages")), source))
	mux.Handle("GET /health", NewHealthHandler(logger.With(slog.String("handler", "health")), source))
	mux.Handle("GET /samples", NewSamplesHandler(logger.With(slog.String("handler", "samples")), db,
		cnfg.Database.GetDataRetentionDays()*24))
	mux.Handle("GET /log", NewLogHandler(logger.With(slog.String("handler", "log")), db))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	})
	s.handler = logReqMW(mux)

	go s.hub.Run()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// publish pushes the current averages to every websocket client.
func (s *Server) publish(ctx context.Context) error {
	buf, err := json.Marshal(s.source.Current())
	if err != nil {
		return fmt.Errorf("encoding averages: %w", err)
	}
	select {
	case s.hub.Broadcast <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second * 2)
	defer ticker.Stop()

	for {
		select {
		case err := <-srvErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("server error", slog.Any("error", err))
			}
			return

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			if err := s.publish(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("publishing averages failed", slog.Any("error", err))
			}
		}
	}
}
