package monitorserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ruteri/noc-monitor-publisher/cryptoutils"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_Memory(t *testing.T) {
	ctx := context.Background()
	cache, substrate := newMemoryCache(t)
	monitor, _, leaf := newTestTree()

	server, err := cache.GetInstance(monitor, "monitor.example.com", "", 7000)
	require.NoError(t, err)

	stub, err := substrate.Lookup(ctx, "monitor.example.com", 7000, WellKnownName)
	require.NoError(t, err)
	assert.Equal(t, server.Stub(), stub)
	assert.Equal(t, "monitor.example.com", stub.Host)

	err = substrate.Invoke(ctx, stub, "Login", LoginArgs{Locale: "en", Username: "admin", Password: "wrong"}, nil)
	assert.ErrorIs(t, err, interfaces.ErrLoginFailed)
	err = substrate.Invoke(ctx, stub, "Login", nil, nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArguments)
	err = substrate.Invoke(ctx, stub, "Logout", nil, nil)
	assert.ErrorIs(t, err, interfaces.ErrUnknownMethod)

	var root interfaces.Stub
	require.NoError(t, substrate.Invoke(ctx, stub, "Login", LoginArgs{Locale: "en", Username: "admin", Password: "secret"}, &root))

	var kind interfaces.NodeKind
	require.NoError(t, substrate.Invoke(ctx, &root, "Kind", nil, &kind))
	assert.Equal(t, interfaces.KindRoot, kind)

	var children []interfaces.Stub
	require.NoError(t, substrate.Invoke(ctx, &root, "Children", nil, &children))
	require.Len(t, children, 4)

	var level interfaces.AlertLevel
	require.NoError(t, substrate.Invoke(ctx, &children[2], "AlertLevel", nil, &level))
	assert.Equal(t, interfaces.AlertLevelHigh, level)

	var result interfaces.SingleResult
	require.NoError(t, substrate.Invoke(ctx, &children[3], "LastResult", nil, &result))
	assert.Equal(t, leaf.result.Report, result.Report)
	assert.True(t, leaf.result.Time.Equal(result.Time))

	err = substrate.Invoke(ctx, &children[0], "LastResult", nil, nil)
	assert.ErrorIs(t, err, interfaces.ErrUnknownMethod, "inner nodes have no results")
}

func TestInvoke_TLS(t *testing.T) {
	ctx := context.Background()
	identity := testIdentity(t)

	rt := remote.NewRuntime(&remote.Config{Log: testLogger, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(ctx)
	})

	cache, err := NewCache(&Config{Substrate: rt, Identity: identity, Log: testLogger})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	monitor, _, _ := newTestTree()
	server, err := cache.GetInstance(monitor, "", "127.0.0.1", port)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", server.Stub().Host)

	csf, err := cryptoutils.NewClientSocketFactory(identity, "")
	require.NoError(t, err)
	client, err := remote.NewClient(csf, &remote.ClientConfig{Timeout: 5 * time.Second, Log: testLogger})
	require.NoError(t, err)
	defer client.Close()

	stub, err := client.Lookup(ctx, "127.0.0.1", port, WellKnownName)
	require.NoError(t, err)

	var root interfaces.Stub
	require.NoError(t, client.Invoke(ctx, stub, "Login", LoginArgs{Username: "admin", Password: "secret"}, &root))

	var label string
	require.NoError(t, client.Invoke(ctx, &root, "Label", nil, &label))
	assert.Equal(t, "network", label)

	var children []interfaces.Stub
	require.NoError(t, client.Invoke(ctx, &root, "Children", nil, &children))
	assert.Len(t, children, 4)

	// A second publisher on the same port with the same identity shares the
	// endpoint and takes over the well-known name.
	other, _, _ := newTestTree()
	second, err := cache.GetInstance(other, "", "127.0.0.1", port)
	require.NoError(t, err)
	stub, err = client.Lookup(ctx, "127.0.0.1", port, WellKnownName)
	require.NoError(t, err)
	assert.Equal(t, second.Stub(), stub)

	// A different bind interface on the same port is an incompatible listener.
	_, err = cache.GetInstance(other, "", "localhost", port)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, remote.ErrIncompatibleListener)
}
