package cryptoutils

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ephemeralIdentity(t *testing.T) *TLSIdentity {
	identity, err := LoadTLSIdentity(TLSMaterial{Ephemeral: true, Hosts: []string{"127.0.0.1", "localhost"}})
	require.NoError(t, err)
	return identity
}

// TestSocketFactories_RoundTrip checks that a matched pair completes a mutual
// TLS handshake and carries data both ways.
func TestSocketFactories_RoundTrip(t *testing.T) {
	identity := ephemeralIdentity(t)

	csf, ssf, err := NewSocketFactories(identity, SocketFactoryOptions{ListenAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ssf.ListenAddress())
	assert.Equal(t, "", csf.LocalAddress(), "client must not bind the listen address by default")

	ln, err := ssf.Listen(0)
	require.NoError(t, err)
	defer ln.Close()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			serverErr <- err
			return
		}
		_, err = conn.Write(buf)
		serverErr <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := csf.DialContext(ctx, "tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	reply := make([]byte, 4)
	_, err = io.ReadFull(conn, reply)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(reply))
	require.NoError(t, <-serverErr)
}

func TestSocketFactories_RejectsUnknownClient(t *testing.T) {
	serverIdentity := ephemeralIdentity(t)
	strangerIdentity := ephemeralIdentity(t)

	ssf, err := NewServerSocketFactory(serverIdentity, "127.0.0.1")
	require.NoError(t, err)
	ln, err := ssf.Listen(0)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Read(make([]byte, 1))
	}()

	csf, err := NewClientSocketFactory(strangerIdentity, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = csf.DialContext(ctx, "tcp", ln.Addr().String())
	assert.Error(t, err, "server certificate is not trusted by the stranger")
}

func TestSocketFactories_ClientBindsListenAddress(t *testing.T) {
	identity := ephemeralIdentity(t)

	csf, _, err := NewSocketFactories(identity, SocketFactoryOptions{
		ListenAddress:            "127.0.0.1",
		ClientBindsListenAddress: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", csf.LocalAddress())

	_, _, err = NewSocketFactories(identity, SocketFactoryOptions{
		ListenAddress:            "not a host name",
		ClientBindsListenAddress: true,
	})
	assert.Error(t, err)
}

func TestSocketFactories_Equal(t *testing.T) {
	identity := ephemeralIdentity(t)
	other := ephemeralIdentity(t)

	csf1, ssf1, err := NewSocketFactories(identity, SocketFactoryOptions{ListenAddress: "127.0.0.1"})
	require.NoError(t, err)
	csf2, ssf2, err := NewSocketFactories(identity, SocketFactoryOptions{ListenAddress: "127.0.0.1"})
	require.NoError(t, err)
	_, ssf3, err := NewSocketFactories(identity, SocketFactoryOptions{})
	require.NoError(t, err)
	_, ssf4, err := NewSocketFactories(other, SocketFactoryOptions{ListenAddress: "127.0.0.1"})
	require.NoError(t, err)

	assert.True(t, ssf1.Equal(ssf2))
	assert.True(t, csf1.Equal(csf2))
	assert.False(t, ssf1.Equal(ssf3), "different bind interface")
	assert.False(t, ssf1.Equal(ssf4), "different identity")
	assert.False(t, ssf1.Equal(nil))
}

func TestServerSocketFactory_PortInUse(t *testing.T) {
	identity := ephemeralIdentity(t)
	ssf, err := NewServerSocketFactory(identity, "127.0.0.1")
	require.NoError(t, err)

	ln, err := ssf.Listen(0)
	require.NoError(t, err)
	defer ln.Close()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	_, err = ssf.Listen(port)
	assert.Error(t, err)
}

func TestLoadTLSIdentity(t *testing.T) {
	t.Run("no material yields client-only identity", func(t *testing.T) {
		identity, err := LoadTLSIdentity(TLSMaterial{})
		require.NoError(t, err)
		assert.False(t, identity.HasCertificate())
		assert.Nil(t, identity.CAs)

		_, err = NewServerSocketFactory(identity, "")
		assert.ErrorIs(t, err, ErrInvalidTLSMaterial)
	})

	t.Run("cert without key", func(t *testing.T) {
		_, err := LoadTLSIdentity(TLSMaterial{CertFile: "cert.pem"})
		assert.ErrorIs(t, err, ErrInvalidTLSMaterial)
	})

	t.Run("missing files", func(t *testing.T) {
		_, err := LoadTLSIdentity(TLSMaterial{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"})
		assert.ErrorIs(t, err, ErrInvalidTLSMaterial)
	})

	t.Run("CA file without certificates", func(t *testing.T) {
		caFile := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(caFile, []byte("not pem"), 0o600))
		_, err := LoadTLSIdentity(TLSMaterial{CAFile: caFile})
		assert.ErrorIs(t, err, ErrInvalidTLSMaterial)
	})

	t.Run("ephemeral", func(t *testing.T) {
		identity := ephemeralIdentity(t)
		assert.True(t, identity.HasCertificate())
		assert.NotNil(t, identity.CAs)
		assert.Len(t, identity.Fingerprint(), 64)
	})
}

func TestRandomCert(t *testing.T) {
	cert, err := RandomCert("127.0.0.1", "monitor.example.com", "")
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)

	assert.Len(t, cert.Leaf.IPAddresses, 1)
	assert.Equal(t, []string{"monitor.example.com"}, cert.Leaf.DNSNames)
	assert.True(t, cert.Leaf.NotAfter.After(time.Now()))
	assert.NoError(t, cert.Leaf.VerifyHostname("monitor.example.com"))
}
