package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/noc-monitor-publisher/common"
	"github.com/ruteri/noc-monitor-publisher/metrics"
	"go.uber.org/atomic"
)

type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// MetricsServer is created by New when nil.
	MetricsServer *metrics.MetricsServer

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server is the operations API of a publisher process: health checks,
// draining, the list of published monitors and registries, pprof.
type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

func New(cfg *HTTPServerConfig, handler *Handler) (srv *Server, err error) {
	metricsSrv := cfg.MetricsServer
	if metricsSrv == nil {
		metricsSrv, err = metrics.New(common.PackageName, cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		srv:        nil,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger).Get("/api/monitors", srv.handler.HandleMonitors)
	mux.With(srv.httpLogger).Get("/api/registries", srv.handler.HandleRegistries)

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// Metrics returns the collectors served on the metrics address.
func (srv *Server) Metrics() *metrics.Metrics {
	return srv.metricsSrv.Metrics()
}

func (srv *Server) writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
		srv.log.Debug("Could not write status", "err", err)
	}
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	srv.writeStatus(w, http.StatusOK, "alive")
}

// Readiness requires the server not to be draining and every remote
// endpoint to be serving.
func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	switch {
	case !srv.isReady.Load():
		srv.writeStatus(w, http.StatusServiceUnavailable, "draining")
	case !srv.handler.SubstrateReady():
		srv.writeStatus(w, http.StatusServiceUnavailable, "endpoints not serving")
	default:
		srv.writeStatus(w, http.StatusOK, "ready")
	}
}

// Drain marks the server not ready. It reports false when it already was.
func (srv *Server) Drain() bool {
	if !srv.isReady.Swap(false) {
		return false
	}
	srv.log.Info("Server marked as not ready", "monitors", srv.handler.cache.Len())
	return true
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.Drain() {
		srv.writeStatus(w, http.StatusOK, "already draining")
		return
	}
	srv.writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		srv.writeStatus(w, http.StatusOK, "already ready")
		return
	}
	srv.log.Info("Server marked as ready")
	srv.writeStatus(w, http.StatusOK, "ready")
}

func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	// ops api
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown drains the server, waits DrainDuration for load balancers to
// stop routing clients to the published ports, then stops the ops and
// metrics servers.
func (srv *Server) Shutdown() {
	if srv.Drain() && srv.cfg.DrainDuration > 0 {
		srv.log.Info("Waiting for drain period", "duration", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	}
	if srv.cfg.MetricsAddr != "" {
		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		}
	}
	srv.log.Info("Operations server stopped")
}
