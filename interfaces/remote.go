package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
)

var (
	ErrDynamicCodeLoading = errors.New("dynamic code loading is not supported")
	ErrInsecureFallback   = errors.New("insecure transport fallback is not supported")

	// ErrUnknownMethod and ErrInvalidArguments are returned by Remote.Invoke
	// implementations; the transport maps them to distinct client errors.
	ErrUnknownMethod    = errors.New("unknown method")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// ClientSocketFactory opens connections to exported objects and registries.
type ClientSocketFactory interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
	Equal(other ClientSocketFactory) bool
}

// ServerSocketFactory opens the listener behind a port's endpoint.
type ServerSocketFactory interface {
	Listen(port int) (net.Listener, error)
	Equal(other ServerSocketFactory) bool
}

// Remote is an object that can be exported for remote invocation. Results
// which are themselves Remote values (or slices of them) travel as stubs and
// must already be exported.
type Remote interface {
	Invoke(ctx context.Context, method string, args json.RawMessage) (any, error)
}

// Stub is the network-reachable handle of an exported object.
type Stub struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	ObjectID string `json:"object_id"`
}

// Address returns host:port of the endpoint serving the object.
func (s Stub) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Registry maps names to stubs for a single port.
type Registry interface {
	Port() int
	// Bind fails if name is already bound.
	Bind(name string, stub *Stub) error
	// Rebind replaces any existing binding; the last writer wins.
	Rebind(name string, stub *Stub) error
	Unbind(name string) error
	Lookup(name string) (*Stub, error)
	List() []string
}

// Settings carries what a publisher wants the transport to do for the
// objects it exports. It is captured per publisher instead of being written
// to process-wide state on every construction.
type Settings struct {
	// AdvertisedHostname is placed in stubs so clients reconnect to it.
	// Empty means the endpoint picks its bind address or the local hostname.
	AdvertisedHostname string

	// RandomObjectIDs makes object ids unguessable.
	RandomObjectIDs bool

	// DynamicCodeLoading and InsecureFallback must stay false; they exist
	// so a caller can state the requirement explicitly and have it checked.
	DynamicCodeLoading bool
	InsecureFallback   bool
}

// Validate rejects features the transport refuses to provide.
func (s Settings) Validate() error {
	if s.DynamicCodeLoading {
		return ErrDynamicCodeLoading
	}
	if s.InsecureFallback {
		return ErrInsecureFallback
	}
	return nil
}

// Substrate is the remote invocation layer objects are published on.
type Substrate interface {
	// CreateRegistry returns the registry for port, creating it on first use.
	CreateRegistry(port int, csf ClientSocketFactory, ssf ServerSocketFactory) (Registry, error)

	// Export makes obj invocable on port and returns its stub.
	Export(obj Remote, port int, csf ClientSocketFactory, ssf ServerSocketFactory, settings Settings) (*Stub, error)
}
