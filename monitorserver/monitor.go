package monitorserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ruteri/noc-monitor-publisher/cryptoutils"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/metrics"
)

// WellKnownName is the registry name every Monitor is published under on its
// port.
const WellKnownName = "noc.monitor.Monitor"

// Monitor publishes a local monitor on one port. It is itself an
// interfaces.Monitor whose Login returns published nodes.
type Monitor struct {
	local         interfaces.Monitor
	publicAddress string
	listenAddress string
	port          int
	settings      interfaces.Settings

	substrate interfaces.Substrate
	csf       interfaces.ClientSocketFactory
	ssf       interfaces.ServerSocketFactory
	log       *slog.Logger
	metrics   *metrics.Metrics

	registry interfaces.Registry
	stub     *interfaces.Stub

	nodesMu sync.Mutex
	nodes   map[interfaces.Node]NodeWrapper
}

var (
	_ interfaces.Monitor = (*Monitor)(nil)
	_ interfaces.Remote  = (*Monitor)(nil)
)

func newMonitor(cfg *Config, local interfaces.Monitor, publicAddress, listenAddress string, port int) (*Monitor, error) {
	m := &Monitor{
		local:         local,
		publicAddress: publicAddress,
		listenAddress: listenAddress,
		port:          port,
		settings: interfaces.Settings{
			AdvertisedHostname: advertisedHostname(publicAddress, listenAddress),
			RandomObjectIDs:    true,
		},
		substrate: cfg.Substrate,
		log:       cfg.Log.With("port", port),
		metrics:   cfg.Metrics,
		nodes:     make(map[interfaces.Node]NodeWrapper),
	}

	if !cfg.Identity.HasCertificate() {
		return nil, transportError("socket factories", fmt.Errorf("%w: no certificate configured", cryptoutils.ErrInvalidTLSMaterial))
	}
	csf, ssf, err := cryptoutils.NewSocketFactories(cfg.Identity, cryptoutils.SocketFactoryOptions{
		ListenAddress:            listenAddress,
		ClientBindsListenAddress: cfg.ClientBindsListenAddress,
	})
	if err != nil {
		return nil, transportError("socket factories", err)
	}
	m.csf, m.ssf = csf, ssf

	registry, stub, err := m.publish(m, WellKnownName)
	if err != nil {
		return nil, err
	}
	m.registry, m.stub = registry, stub

	m.log.Info("Monitor published", "name", WellKnownName, "objectID", stub.ObjectID,
		"advertisedHostname", m.settings.AdvertisedHostname, "listenAddress", listenAddress)
	return m, nil
}

// advertisedHostname is the public address, else the listen address, else
// empty to let the substrate decide.
func advertisedHostname(publicAddress, listenAddress string) string {
	if publicAddress != "" {
		return publicAddress
	}
	return listenAddress
}

// exportObject makes obj invocable on the Monitor's port and, when name is
// not empty, binds it in the port's registry replacing any earlier binding.
func (m *Monitor) exportObject(obj interfaces.Remote, name string) (*interfaces.Stub, error) {
	_, stub, err := m.publish(obj, name)
	return stub, err
}

func (m *Monitor) publish(obj interfaces.Remote, name string) (interfaces.Registry, *interfaces.Stub, error) {
	registry, err := m.substrate.CreateRegistry(m.port, m.csf, m.ssf)
	if err != nil {
		return nil, nil, transportError("create registry", err)
	}

	stub, err := m.substrate.Export(obj, m.port, m.csf, m.ssf, m.settings)
	if err != nil {
		return nil, nil, transportError("export", err)
	}

	if name != "" {
		if err := registry.Rebind(name, stub); err != nil {
			return nil, nil, transportError("bind "+name, err)
		}
	}
	return registry, stub, nil
}

func (m *Monitor) matches(publicAddress, listenAddress string, port int) bool {
	return m.publicAddress == publicAddress && m.listenAddress == listenAddress && m.port == port
}

func (m *Monitor) PublicAddress() string {
	return m.publicAddress
}

func (m *Monitor) ListenAddress() string {
	return m.listenAddress
}

func (m *Monitor) Port() int {
	return m.port
}

// Settings returns the transport settings the Monitor exports objects with.
func (m *Monitor) Settings() interfaces.Settings {
	return m.settings
}

// Stub returns the handle bound under WellKnownName.
func (m *Monitor) Stub() *interfaces.Stub {
	return m.stub
}

// Registry returns the registry of the Monitor's port.
func (m *Monitor) Registry() interfaces.Registry {
	return m.registry
}

// Local returns the published monitor.
func (m *Monitor) Local() interfaces.Monitor {
	return m.local
}

// Login logs in to the local monitor and returns its published root node.
func (m *Monitor) Login(ctx context.Context, locale, username, password string) (interfaces.RootNode, error) {
	root, err := m.local.Login(ctx, locale, username, password)
	if err != nil {
		return nil, err
	}
	if isNil(root) || root.Kind() != interfaces.KindRoot {
		return nil, fmt.Errorf("%w: login did not return a root node", ErrInvalidNode)
	}
	return m.Wrap(root)
}

// LoginArgs are the arguments of the remote Login method.
type LoginArgs struct {
	Locale   string `json:"locale"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (m *Monitor) Invoke(ctx context.Context, method string, args json.RawMessage) (any, error) {
	switch method {
	case "Login":
		var in LoginArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidArguments, err)
		}
		root, err := m.Login(ctx, in.Locale, in.Username, in.Password)
		if err != nil {
			m.log.Debug("Login failed", "username", in.Username, "err", err)
			return nil, err
		}
		return root, nil
	}
	return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownMethod, method)
}

// Wrap returns the published wrapper of local, building and exporting it on
// first use. Later calls with the same node return the same wrapper. Nodes
// that cannot be map keys are wrapped and exported on every call.
func (m *Monitor) Wrap(local interfaces.Node) (NodeWrapper, error) {
	if isNil(local) {
		return nil, fmt.Errorf("%w: nil node", ErrInvalidNode)
	}
	memoize := hashable(local)

	m.nodesMu.Lock()
	defer m.nodesMu.Unlock()

	if memoize {
		if w, found := m.nodes[local]; found {
			return w, nil
		}
	}

	w, err := wrapNode(m, local)
	if err != nil {
		return nil, err
	}
	if memoize {
		m.nodes[local] = w
	}
	m.metrics.NodeWrapperCreated(local.Kind().String())
	return w, nil
}

// WrappedNodes returns the number of nodes wrapped so far.
func (m *Monitor) WrappedNodes() int {
	m.nodesMu.Lock()
	defer m.nodesMu.Unlock()
	return len(m.nodes)
}
