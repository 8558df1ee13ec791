package cryptoutils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
)

// SocketFactoryOptions restricts where a socket factory pair binds.
type SocketFactoryOptions struct {
	// ListenAddress restricts the server side to one interface. Empty binds
	// all interfaces.
	ListenAddress string

	// ClientBindsListenAddress makes outgoing connections use ListenAddress
	// as their local address too. Off by default: a client factory bound to
	// a server-side interface breaks when stubs travel to other hosts.
	ClientBindsListenAddress bool
}

// TLSServerSocketFactory listens with TLS 1.3 using a shared identity.
type TLSServerSocketFactory struct {
	identity      *TLSIdentity
	listenAddress string
	config        *tls.Config
}

var _ interfaces.ServerSocketFactory = (*TLSServerSocketFactory)(nil)

// TLSClientSocketFactory dials TLS 1.3 connections, presenting the shared
// identity's certificate when it has one.
type TLSClientSocketFactory struct {
	identity     *TLSIdentity
	localAddress string
	localAddr    *net.TCPAddr
	config       *tls.Config
}

var _ interfaces.ClientSocketFactory = (*TLSClientSocketFactory)(nil)

// NewSocketFactories builds the matched client/server factory pair for one
// publisher. The server side requires an identity with a certificate.
func NewSocketFactories(identity *TLSIdentity, opts SocketFactoryOptions) (*TLSClientSocketFactory, *TLSServerSocketFactory, error) {
	ssf, err := NewServerSocketFactory(identity, opts.ListenAddress)
	if err != nil {
		return nil, nil, err
	}

	localAddress := ""
	if opts.ClientBindsListenAddress {
		localAddress = opts.ListenAddress
	}
	csf, err := NewClientSocketFactory(identity, localAddress)
	if err != nil {
		return nil, nil, err
	}
	return csf, ssf, nil
}

// NewServerSocketFactory builds a server factory bound to listenAddress, or
// to all interfaces when it is empty.
func NewServerSocketFactory(identity *TLSIdentity, listenAddress string) (*TLSServerSocketFactory, error) {
	if !identity.HasCertificate() {
		return nil, fmt.Errorf("%w: server socket factory needs a certificate", ErrInvalidTLSMaterial)
	}

	config := &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{identity.Certificate},
		ClientAuth:   tls.NoClientCert,
	}
	if identity.CAs != nil {
		config.ClientCAs = identity.CAs
		config.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return &TLSServerSocketFactory{
		identity:      identity,
		listenAddress: listenAddress,
		config:        config,
	}, nil
}

// NewClientSocketFactory builds a client factory. A non-empty localAddress
// becomes the local side of every connection.
func NewClientSocketFactory(identity *TLSIdentity, localAddress string) (*TLSClientSocketFactory, error) {
	if identity == nil {
		identity = &TLSIdentity{}
	}

	config := &tls.Config{
		MinVersion: tls.VersionTLS13,
		RootCAs:    identity.CAs,
	}
	if identity.HasCertificate() {
		config.Certificates = []tls.Certificate{identity.Certificate}
	}

	f := &TLSClientSocketFactory{
		identity:     identity,
		localAddress: localAddress,
		config:       config,
	}
	if localAddress != "" {
		addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(localAddress, "0"))
		if err != nil {
			return nil, fmt.Errorf("could not resolve local address %s: %w", localAddress, err)
		}
		f.localAddr = addr
	}
	return f, nil
}

// ListenAddress returns the interface the factory binds to.
func (f *TLSServerSocketFactory) ListenAddress() string {
	return f.listenAddress
}

// Listen opens a TLS listener on port.
func (f *TLSServerSocketFactory) Listen(port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(f.listenAddress, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, f.config.Clone()), nil
}

// Equal reports whether other listens the same way: same identity and same
// bind interface.
func (f *TLSServerSocketFactory) Equal(other interfaces.ServerSocketFactory) bool {
	o, ok := other.(*TLSServerSocketFactory)
	if !ok || o == nil {
		return false
	}
	return o == f || (o.identity == f.identity && o.listenAddress == f.listenAddress)
}

// LocalAddress returns the local address outgoing connections bind to, or
// "" when the system chooses.
func (f *TLSClientSocketFactory) LocalAddress() string {
	return f.localAddress
}

// DialContext opens a TLS connection to addr. The server name is taken from
// addr's host.
func (f *TLSClientSocketFactory) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	netDialer := &net.Dialer{}
	if f.localAddr != nil {
		netDialer.LocalAddr = f.localAddr
	}
	dialer := &tls.Dialer{
		NetDialer: netDialer,
		Config:    f.config.Clone(),
	}
	return dialer.DialContext(ctx, network, addr)
}

// Equal reports whether other dials the same way.
func (f *TLSClientSocketFactory) Equal(other interfaces.ClientSocketFactory) bool {
	o, ok := other.(*TLSClientSocketFactory)
	if !ok || o == nil {
		return false
	}
	return o == f || (o.identity == f.identity && o.localAddress == f.localAddress)
}
