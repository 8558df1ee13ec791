package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/metrics"
)

type registry struct {
	port int

	mu       sync.RWMutex
	bindings map[string]*interfaces.Stub
}

var _ interfaces.Registry = (*registry)(nil)

func newRegistry(port int) *registry {
	return &registry{
		port:     port,
		bindings: make(map[string]*interfaces.Stub),
	}
}

func (r *registry) Port() int {
	return r.port
}

func (r *registry) Bind(name string, stub *interfaces.Stub) error {
	if err := checkBinding(name, stub); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.bindings[name]; found {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, name)
	}
	r.bindings[name] = stub
	return nil
}

func (r *registry) Rebind(name string, stub *interfaces.Stub) error {
	if err := checkBinding(name, stub); err != nil {
		return err
	}
	r.mu.Lock()
	r.bindings[name] = stub
	r.mu.Unlock()
	return nil
}

func (r *registry) Unbind(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.bindings[name]; !found {
		return fmt.Errorf("%w: %s", ErrNotBound, name)
	}
	delete(r.bindings, name)
	return nil
}

func (r *registry) Lookup(name string) (*interfaces.Stub, error) {
	r.mu.RLock()
	stub, found := r.bindings[name]
	r.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, name)
	}
	return stub, nil
}

func (r *registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func checkBinding(name string, stub *interfaces.Stub) error {
	if name == "" {
		return errors.New("empty registry name")
	}
	if stub == nil {
		return errors.New("nil stub")
	}
	return nil
}

// attachFunc makes a registry reachable on its port. It is called on every
// CreateRegistry so that the port's factories are checked each time.
type attachFunc func(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory, r *registry) error

// RegistryManager creates at most one registry per port, however many
// callers race on first use.
type RegistryManager struct {
	attach  attachFunc
	log     *slog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	registries map[int]*registry
}

func newRegistryManager(attach attachFunc, log *slog.Logger, m *metrics.Metrics) *RegistryManager {
	return &RegistryManager{
		attach:     attach,
		log:        log,
		metrics:    m,
		registries: make(map[int]*registry),
	}
}

// CreateRegistry returns the registry for port, creating it on first use.
func (m *RegistryManager) CreateRegistry(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory) (interfaces.Registry, error) {
	if err := validatePort(port); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, found := m.registries[port]
	if !found {
		r = newRegistry(port)
	}
	if m.attach != nil {
		if err := m.attach(port, csf, ssf, r); err != nil {
			return nil, err
		}
	}
	if !found {
		m.registries[port] = r
		m.metrics.RegistryCreated()
		m.log.Info("Registry created", "port", port)
	}
	return r, nil
}

// Registry returns the registry already created for port.
func (m *RegistryManager) Registry(port int) (interfaces.Registry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, found := m.registries[port]
	if !found {
		return nil, false
	}
	return r, true
}

// Ports lists the ports with a registry, ascending.
func (m *RegistryManager) Ports() []int {
	m.mu.Lock()
	ports := make([]int, 0, len(m.registries))
	for port := range m.registries {
		ports = append(ports, port)
	}
	m.mu.Unlock()
	sort.Ints(ports)
	return ports
}
