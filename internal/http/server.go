package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunepilot/internal/core"
)

// Server exposes playback metrics and health endpoints. It implements
// core.Metrics so the controller can report events without knowing about
// prometheus.
type Server struct {
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	SelectionsTotal *prometheus.CounterVec
	RecoveriesTotal *prometheus.CounterVec
	DownloadsTotal  *prometheus.CounterVec
	PreloadTotal    *prometheus.CounterVec
	QueueLen        prometheus.Gauge
}

func NewServer(host string, port int, logger *zap.Logger) *Server {
	metrics := &Metrics{
		SelectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunepilot_selections_total",
				Help: "Tracks selected for playback, by selection tier",
			},
			[]string{"source"},
		),
		RecoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunepilot_recoveries_total",
				Help: "Titles recovered, by recovery method",
			},
			[]string{"method"},
		),
		DownloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunepilot_downloads_total",
				Help: "Audio downloads, by outcome",
			},
			[]string{"status"},
		),
		PreloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunepilot_preload_total",
				Help: "Transitions, by whether the preload slot was hit",
			},
			[]string{"result"},
		),
		QueueLen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tunepilot_queue_length",
				Help: "Current number of entries in the manual queue",
			},
		),
	}

	prometheus.MustRegister(
		metrics.SelectionsTotal,
		metrics.RecoveriesTotal,
		metrics.DownloadsTotal,
		metrics.PreloadTotal,
		metrics.QueueLen,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"tunepilot"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return &Server{
		logger:  logger.Named("http"),
		server:  server,
		metrics: metrics,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Selection implements core.Metrics.
func (s *Server) Selection(source core.SelectionSource) {
	s.metrics.SelectionsTotal.WithLabelValues(string(source)).Inc()
}

// Recovery implements core.Metrics.
func (s *Server) Recovery(method core.RecoveryMethod) {
	s.metrics.RecoveriesTotal.WithLabelValues(string(method)).Inc()
}

// Download implements core.Metrics.
func (s *Server) Download(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	s.metrics.DownloadsTotal.WithLabelValues(status).Inc()
}

// Preload implements core.Metrics.
func (s *Server) Preload(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	s.metrics.PreloadTotal.WithLabelValues(result).Inc()
}

// QueueLength implements core.Metrics.
func (s *Server) QueueLength(n int) {
	s.metrics.QueueLen.Set(float64(n))
}
