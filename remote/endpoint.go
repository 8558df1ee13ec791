package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"go.uber.org/atomic"
)

// maxArgsSize bounds the body of an invocation.
const maxArgsSize = 1 << 20

// endpoint is the TLS listener serving one port: its registry and every
// object exported on it.
type endpoint struct {
	port    int
	csf     interfaces.ClientSocketFactory
	ssf     interfaces.ServerSocketFactory
	rt      *Runtime
	log     *slog.Logger
	isReady atomic.Bool

	listener net.Listener
	srv      *http.Server

	registry atomic.Pointer[registry]
}

func newEndpoint(rt *Runtime, port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory, ln net.Listener) *endpoint {
	ep := &endpoint{
		port:     port,
		csf:      csf,
		ssf:      ssf,
		rt:       rt,
		log:      rt.log.With("port", port),
		listener: ln,
	}
	ep.srv = &http.Server{
		Handler:      ep.getRouter(),
		ReadTimeout:  rt.cfg.ReadTimeout,
		WriteTimeout: rt.cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(ep.log.Handler(), slog.LevelWarn),
	}
	return ep
}

func (ep *endpoint) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.With(ep.httpLogger).Get("/registry", ep.handleList)
	mux.With(ep.httpLogger).Get("/registry/{name}", ep.handleLookup)
	mux.With(ep.httpLogger).Post("/objects/{object_id}/{method}", ep.handleInvoke)
	return mux
}

func (ep *endpoint) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(ep.log, next)
}

func (ep *endpoint) compatible(csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory) bool {
	return ep.ssf.Equal(ssf) && ep.csf.Equal(csf)
}

func (ep *endpoint) serve() {
	ep.isReady.Store(true)
	ep.log.Info("Starting remote endpoint", "listenAddress", ep.listener.Addr().String())
	if err := ep.srv.Serve(ep.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		ep.log.Error("Remote endpoint failed", "err", err)
	}
	ep.isReady.Store(false)
}

func (ep *endpoint) shutdown(ctx context.Context) error {
	ep.isReady.Store(false)
	return ep.srv.Shutdown(ctx)
}

func (ep *endpoint) handleList(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if reg := ep.registry.Load(); reg != nil {
		names = reg.List()
	}
	writeJSON(w, http.StatusOK, names)
}

func (ep *endpoint) handleLookup(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, "invalid name", http.StatusBadRequest)
		return
	}

	reg := ep.registry.Load()
	if reg == nil {
		http.Error(w, "no registry on this port", http.StatusNotFound)
		return
	}
	stub, err := reg.Lookup(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stub)
}

func (ep *endpoint) handleInvoke(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")
	method := chi.URLParam(r, "method")

	args, err := io.ReadAll(io.LimitReader(r.Body, maxArgsSize))
	if err != nil {
		ep.log.Warn("Could not read invocation body", "objectID", objectID, "method", method, "err", err)
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	resp := ep.rt.objects.invoke(r.Context(), ep.rt.cfg.Metrics, ep.port, objectID, method, args)
	status := http.StatusOK
	switch resp.Code {
	case codeNoSuchObject, codeUnknownMethod:
		status = http.StatusNotFound
	case codeInvalidArguments:
		status = http.StatusBadRequest
	case codeNotExported:
		status = http.StatusInternalServerError
	case codeLoginFailed:
		status = http.StatusUnauthorized
	}
	if resp.Code != "" {
		ep.log.Debug("Invocation failed", "objectID", objectID, "method", method, "code", resp.Code, "err", resp.Error)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
