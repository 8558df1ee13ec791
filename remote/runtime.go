package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/metrics"
	"go.uber.org/atomic"
)

// Config configures a Runtime.
type Config struct {
	// Log receives endpoint lifecycle and request logs.
	Log *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics

	// ReadTimeout and WriteTimeout bound a single invocation on the wire.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Runtime is the network substrate: one TLS endpoint per port, serving the
// port's registry and every object exported on it.
type Runtime struct {
	cfg        Config
	log        *slog.Logger
	registries *RegistryManager
	objects    *objectTable
	closed     atomic.Bool

	endpointsMu sync.Mutex
	endpoints   map[int]*endpoint
}

var _ interfaces.Substrate = (*Runtime)(nil)

func NewRuntime(cfg *Config) *Runtime {
	rt := &Runtime{
		cfg:       *cfg,
		log:       cfg.Log,
		objects:   newObjectTable(),
		endpoints: make(map[int]*endpoint),
	}
	if rt.log == nil {
		rt.log = slog.Default()
	}
	rt.registries = newRegistryManager(rt.attachRegistry, rt.log, cfg.Metrics)
	return rt
}

// Registries exposes the registry provisioner.
func (rt *Runtime) Registries() *RegistryManager {
	return rt.registries
}

// CreateRegistry returns the registry for port, starting the port's
// endpoint if needed.
func (rt *Runtime) CreateRegistry(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory) (interfaces.Registry, error) {
	return rt.registries.CreateRegistry(port, csf, ssf)
}

func (rt *Runtime) attachRegistry(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory, r *registry) error {
	ep, err := rt.endpoint(port, csf, ssf)
	if err != nil {
		return err
	}
	ep.registry.CompareAndSwap(nil, r)
	return nil
}

// Export makes obj invocable on port.
func (rt *Runtime) Export(obj interfaces.Remote, port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory, settings interfaces.Settings) (*interfaces.Stub, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	ep, err := rt.endpoint(port, csf, ssf)
	if err != nil {
		return nil, err
	}

	stub, err := rt.objects.add(obj, advertisedHost(settings, ssf), port, settings.RandomObjectIDs)
	if err != nil {
		return nil, err
	}

	rt.cfg.Metrics.ObjectExported()
	ep.log.Debug("Object exported", "objectID", stub.ObjectID, "type", fmt.Sprintf("%T", obj))
	return stub, nil
}

// endpoint returns the endpoint serving port, opening its listener on first
// use.
func (rt *Runtime) endpoint(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory) (*endpoint, error) {
	if err := validatePort(port); err != nil {
		return nil, err
	}
	if csf == nil || ssf == nil {
		return nil, errors.New("socket factories are required")
	}

	rt.endpointsMu.Lock()
	defer rt.endpointsMu.Unlock()

	if rt.closed.Load() {
		return nil, ErrClosed
	}

	if ep, found := rt.endpoints[port]; found {
		if !ep.compatible(csf, ssf) {
			return nil, fmt.Errorf("%w: port %d", ErrIncompatibleListener, port)
		}
		return ep, nil
	}

	ln, err := ssf.Listen(port)
	if err != nil {
		return nil, fmt.Errorf("%w on port %d: %w", ErrListen, port, err)
	}

	ep := newEndpoint(rt, port, csf, ssf, ln)
	rt.endpoints[port] = ep
	go ep.serve()
	return ep, nil
}

// Ports lists the ports with a running endpoint, ascending.
func (rt *Runtime) Ports() []int {
	rt.endpointsMu.Lock()
	ports := make([]int, 0, len(rt.endpoints))
	for port := range rt.endpoints {
		ports = append(ports, port)
	}
	rt.endpointsMu.Unlock()
	sort.Ints(ports)
	return ports
}

// ExportedObjects returns how many objects are exported across all ports.
func (rt *Runtime) ExportedObjects() int {
	return rt.objects.len()
}

// Ready reports whether every endpoint is serving.
func (rt *Runtime) Ready() bool {
	rt.endpointsMu.Lock()
	defer rt.endpointsMu.Unlock()
	for _, ep := range rt.endpoints {
		if !ep.isReady.Load() {
			return false
		}
	}
	return !rt.closed.Load()
}

// Close stops every endpoint. Exports and registries are not usable
// afterwards.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.endpointsMu.Lock()
	defer rt.endpointsMu.Unlock()

	if rt.closed.Swap(true) {
		return nil
	}

	var errs []error
	for port, ep := range rt.endpoints {
		if err := ep.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("port %d: %w", port, err))
			continue
		}
		ep.log.Info("Remote endpoint stopped")
	}
	return errors.Join(errs...)
}

type listenAddresser interface {
	ListenAddress() string
}

// advertisedHost picks the host put in stubs: the configured hostname, the
// bind interface, or this machine's name.
func advertisedHost(settings interfaces.Settings, ssf interfaces.ServerSocketFactory) string {
	if settings.AdvertisedHostname != "" {
		return settings.AdvertisedHostname
	}
	if la, ok := ssf.(listenAddresser); ok && la.ListenAddress() != "" {
		return la.ListenAddress()
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "localhost"
}
