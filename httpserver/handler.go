package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/ruteri/noc-monitor-publisher/monitorserver"
	"github.com/ruteri/noc-monitor-publisher/remote"
)

// MonitorStatus describes one published monitor.
type MonitorStatus struct {
	Port               int    `json:"port"`
	PublicAddress      string `json:"public_address,omitempty"`
	ListenAddress      string `json:"listen_address,omitempty"`
	AdvertisedHostname string `json:"advertised_hostname,omitempty"`
	Host               string `json:"host"`
	ObjectID           string `json:"object_id"`
	WrappedNodes       int    `json:"wrapped_nodes"`
}

// Handler serves the publisher state.
type Handler struct {
	cache      *monitorserver.Cache
	registries *remote.RegistryManager
	ready      func() bool
	log        *slog.Logger
}

// NewHandler creates a handler over the instance cache and the registry
// provisioner. ready reports whether the substrate is serving; nil means
// always.
func NewHandler(cache *monitorserver.Cache, registries *remote.RegistryManager, ready func() bool, log *slog.Logger) *Handler {
	return &Handler{
		cache:      cache,
		registries: registries,
		ready:      ready,
		log:        log,
	}
}

// SubstrateReady reports whether the substrate is serving.
func (h *Handler) SubstrateReady() bool {
	return h.ready == nil || h.ready()
}

// HandleMonitors lists the published monitors by port.
func (h *Handler) HandleMonitors(w http.ResponseWriter, r *http.Request) {
	servers := h.cache.Servers()
	statuses := make([]MonitorStatus, 0, len(servers))
	for _, s := range servers {
		stub := s.Stub()
		statuses = append(statuses, MonitorStatus{
			Port:               s.Port(),
			PublicAddress:      s.PublicAddress(),
			ListenAddress:      s.ListenAddress(),
			AdvertisedHostname: s.Settings().AdvertisedHostname,
			Host:               stub.Host,
			ObjectID:           stub.ObjectID,
			WrappedNodes:       s.WrappedNodes(),
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Port != statuses[j].Port {
			return statuses[i].Port < statuses[j].Port
		}
		return statuses[i].ObjectID < statuses[j].ObjectID
	})
	h.writeJSON(w, statuses)
}

// HandleRegistries lists the names bound in every registry, keyed by port.
func (h *Handler) HandleRegistries(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string)
	for _, port := range h.registries.Ports() {
		registry, found := h.registries.Registry(port)
		if !found {
			continue
		}
		out[strconv.Itoa(port)] = registry.List()
	}
	h.writeJSON(w, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
