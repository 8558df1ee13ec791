package monitorserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"reflect"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"github.com/ruteri/noc-monitor-publisher/cryptoutils"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/metrics"
	"go.uber.org/atomic"
)

// Config configures a Cache and every Monitor it builds.
type Config struct {
	// Substrate publishes the wrappers. Required.
	Substrate interfaces.Substrate

	// Identity is the TLS material of every socket factory pair.
	Identity *cryptoutils.TLSIdentity

	// ClientBindsListenAddress makes client socket factories bind the listen
	// address as well. See cryptoutils.SocketFactoryOptions.
	ClientBindsListenAddress bool

	Log     *slog.Logger
	Metrics *metrics.Metrics
}

type cacheKey struct {
	monitor       interfaces.Monitor
	publicAddress string
	listenAddress string
	port          int
}

// Cache holds one Monitor per (monitor, public address, listen address,
// port). Entries live as long as the cache.
type Cache struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	servers map[cacheKey]*Monitor
}

func NewCache(cfg *Config) (*Cache, error) {
	if cfg == nil || cfg.Substrate == nil {
		return nil, fmt.Errorf("%w: substrate is required", ErrConfiguration)
	}
	c := &Cache{
		cfg:     *cfg,
		log:     cfg.Log,
		servers: make(map[cacheKey]*Monitor),
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.cfg.Log = c.log
	return c, nil
}

// GetInstance returns the Monitor publishing monitor with the given
// addresses on port, building and publishing it on first request.
//
// A monitor that already is a *Monitor with exactly these addresses and port
// is returned unchanged. Failed constructions leave no entry behind.
func (c *Cache) GetInstance(monitor interfaces.Monitor, publicAddress, listenAddress string, port int) (*Monitor, error) {
	if wrapped, ok := monitor.(*Monitor); ok && wrapped != nil && wrapped.matches(publicAddress, listenAddress, port) {
		return wrapped, nil
	}

	if err := validate(monitor, publicAddress, listenAddress, port); err != nil {
		return nil, err
	}

	key := cacheKey{
		monitor:       monitor,
		publicAddress: publicAddress,
		listenAddress: listenAddress,
		port:          port,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if server, found := c.servers[key]; found {
		c.cfg.Metrics.ServerCacheHit()
		return server, nil
	}

	server, err := newMonitor(&c.cfg, monitor, publicAddress, listenAddress, port)
	if err != nil {
		c.cfg.Metrics.ServerError()
		c.log.Error("Could not publish monitor", "port", port, "publicAddress", publicAddress, "listenAddress", listenAddress, "err", err)
		return nil, err
	}

	c.servers[key] = server
	c.cfg.Metrics.ServerCreated()
	return server, nil
}

// Len returns the number of cached Monitors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.servers)
}

// Servers returns the cached Monitors.
func (c *Cache) Servers() []*Monitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	servers := make([]*Monitor, 0, len(c.servers))
	for _, server := range c.servers {
		servers = append(servers, server)
	}
	return servers
}

func validate(monitor interfaces.Monitor, publicAddress, listenAddress string, port int) error {
	if isNil(monitor) || !hashable(monitor) {
		return fmt.Errorf("%w: %T", ErrInvalidMonitor, monitor)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	if err := validateAddress(publicAddress); err != nil {
		return fmt.Errorf("public address: %w", err)
	}
	if err := validateAddress(listenAddress); err != nil {
		return fmt.Errorf("listen address: %w", err)
	}
	return nil
}

// validateAddress accepts "", an IP address or a host name.
func validateAddress(addr string) error {
	if addr == "" || net.ParseIP(addr) != nil {
		return nil
	}
	if strings.ContainsAny(addr, " \t\r\n/:@[]\\") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	if _, ok := dns.IsDomainName(addr); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}

var defaultCache atomic.Pointer[Cache]

// Init installs the process-wide cache used by GetInstance. It can be called
// once.
func Init(cfg *Config) (*Cache, error) {
	c, err := NewCache(cfg)
	if err != nil {
		return nil, err
	}
	if !defaultCache.CompareAndSwap(nil, c) {
		return nil, errors.New("instance cache already initialized")
	}
	return c, nil
}

// GetInstance calls GetInstance on the process-wide cache installed by Init.
func GetInstance(monitor interfaces.Monitor, publicAddress, listenAddress string, port int) (*Monitor, error) {
	c := defaultCache.Load()
	if c == nil {
		return nil, ErrNotInitialized
	}
	return c.GetInstance(monitor, publicAddress, listenAddress, port)
}

// hashable reports whether v can be used as a map key. The dynamic value
// decides: a struct of comparable type still panics as a key when one of its
// interface fields holds a slice, map or func.
func hashable(v any) bool {
	return reflect.ValueOf(v).Comparable()
}

// isNil reports whether v is nil or a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
