package monitorserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWrap_TreeScenario(t *testing.T) {
	ctx := context.Background()
	cache, substrate := newMemoryCache(t)
	monitor, localRoot, leaf := newTestTree()

	server, err := cache.GetInstance(monitor, "", "", 7000)
	require.NoError(t, err)
	before := substrate.Exports()

	root, err := server.Login(ctx, "en", "admin", "secret")
	require.NoError(t, err)
	children, err := root.Children(ctx)
	require.NoError(t, err)
	require.Len(t, children, 4)

	assert.Equal(t, 5, substrate.Exports()-before, "root, three nodes and the leaf")
	assert.Equal(t, 5, server.WrappedNodes())

	stubs := map[string]bool{}
	for _, n := range append([]interfaces.Node{root}, children...) {
		w, ok := n.(NodeWrapper)
		require.True(t, ok)
		assert.Same(t, server, w.Owner())
		assert.False(t, stubs[w.Stub().ObjectID], "stubs are not shared")
		stubs[w.Stub().ObjectID] = true
	}

	// Queries forward unchanged.
	assert.Same(t, localRoot, root.(NodeWrapper).Local())
	label, err := root.Label(ctx)
	require.NoError(t, err)
	assert.Equal(t, "network", label)

	for i, child := range children {
		localChild := localRoot.children[i]
		assert.Equal(t, localChild.Kind(), child.Kind())
		expectedLabel, _ := localChild.Label(ctx)
		gotLabel, err := child.Label(ctx)
		require.NoError(t, err)
		assert.Equal(t, expectedLabel, gotLabel)
	}

	dmz := children[2]
	level, err := dmz.AlertLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AlertLevelHigh, level)
	msg, err := dmz.AlertMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "link down", msg)

	single, ok := children[3].(interfaces.SingleResultNode)
	require.True(t, ok)
	result, err := single.LastResult(ctx)
	require.NoError(t, err)
	assert.Same(t, leaf.result, result)
	allows, err := single.AllowsChildren(ctx)
	require.NoError(t, err)
	assert.False(t, allows)

	// Traversing again reuses the wrappers.
	again, err := server.Login(ctx, "en", "admin", "secret")
	require.NoError(t, err)
	assert.Same(t, root, again)
	childrenAgain, err := again.Children(ctx)
	require.NoError(t, err)
	for i := range children {
		assert.Same(t, children[i], childrenAgain[i])
	}
	assert.Equal(t, 5, substrate.Exports()-before, "every node exported exactly once")
}

func TestWrap_TableNodes(t *testing.T) {
	ctx := context.Background()
	cache, _ := newMemoryCache(t)

	table := &testTableResultNode{
		testNode: testNode{kind: interfaces.KindTableResult, label: "interfaces"},
		result: &interfaces.TableResult{
			Time:          resultTime,
			ColumnHeaders: []string{"name", "state"},
			Rows:          [][]string{{"eth0", "up"}, {"eth1", "down"}},
			AlertLevels:   []interfaces.AlertLevel{interfaces.AlertLevelNone, interfaces.AlertLevelCritical},
		},
	}
	multiLocal := &testTableMultiResultNode{
		testNode: testNode{kind: interfaces.KindTableMultiResult, label: "latency history"},
		headers:  []string{"ms"},
		rows: []interfaces.TableMultiRow{
			{Time: resultTime, Values: []string{"12"}, AlertLevel: interfaces.AlertLevelNone},
			{Time: resultTime.Add(-time.Minute), Values: []string{"250"}, AlertLevel: interfaces.AlertLevelMedium},
		},
	}
	root := &testNode{
		kind:     interfaces.KindRoot,
		label:    "root",
		children: []interfaces.Node{table, interfaces.EraseTableMultiResultNode[interfaces.TableMultiRow](multiLocal)},
	}
	monitor := &testMonitor{root: root, username: "u", password: "p"}

	server, err := cache.GetInstance(monitor, "", "", 7000)
	require.NoError(t, err)
	wrappedRoot, err := server.Wrap(root)
	require.NoError(t, err)
	children, err := wrappedRoot.Children(ctx)
	require.NoError(t, err)
	require.Len(t, children, 2)

	tableWrapper, ok := children[0].(interfaces.TableResultNode)
	require.True(t, ok)
	tableResult, err := tableWrapper.LastResult(ctx)
	require.NoError(t, err)
	assert.Same(t, table.result, tableResult)

	multi, ok := children[1].(interfaces.TableMultiResultNode[interfaces.TableMultiResult])
	require.True(t, ok)
	headers, err := multi.ColumnHeaders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ms"}, headers)
	results, err := multi.Results(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, multiLocal.rows[0], results[0], "latest first")
	assert.Equal(t, interfaces.AlertLevelMedium, results[1].ResultAlertLevel())

	// Erasing the same node again maps to the same wrapper.
	again, err := server.Wrap(interfaces.EraseTableMultiResultNode[interfaces.TableMultiRow](multiLocal))
	require.NoError(t, err)
	assert.Same(t, children[1], again)
}

func TestWrap_InvalidNodes(t *testing.T) {
	cache, substrate := newMemoryCache(t)
	monitor, _, _ := newTestTree()
	server, err := cache.GetInstance(monitor, "", "", 7000)
	require.NoError(t, err)
	before := substrate.Exports()

	tests := []struct {
		name string
		node interfaces.Node
	}{
		{name: "nil", node: nil},
		{name: "nil pointer", node: (*testNode)(nil)},
		{name: "single result kind without results", node: &testNode{kind: interfaces.KindSingleResult}},
		{name: "table result kind without results", node: &testNode{kind: interfaces.KindTableResult}},
		{name: "table multi result kind without results", node: &testNode{kind: interfaces.KindTableMultiResult}},
		{name: "typed table multi result node", node: &testTableMultiResultNode{testNode: testNode{kind: interfaces.KindTableMultiResult}}},
		{name: "unknown kind", node: &testNode{kind: interfaces.NodeKind(42)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.Wrap(tt.node)
			assert.ErrorIs(t, err, ErrInvalidNode)
		})
	}
	assert.Equal(t, before, substrate.Exports())
	assert.Equal(t, 0, server.WrappedNodes())

	_, err = server.Login(context.Background(), "en", "admin", "wrong")
	assert.ErrorIs(t, err, interfaces.ErrLoginFailed)

	notRoot := &testMonitor{root: &testNode{kind: interfaces.KindNode}, username: "u", password: "p"}
	other, err := cache.GetInstance(notRoot, "", "", 7001)
	require.NoError(t, err)
	_, err = other.Login(context.Background(), "en", "u", "p")
	assert.ErrorIs(t, err, ErrInvalidNode)

	nilRoot := &testMonitor{root: (*testNode)(nil), username: "u", password: "p"}
	third, err := cache.GetInstance(nilRoot, "", "", 7002)
	require.NoError(t, err)
	_, err = third.Login(context.Background(), "en", "u", "p")
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestWrap_UnhashableNodes(t *testing.T) {
	ctx := context.Background()
	cache, substrate := newMemoryCache(t)

	history := valueTableMultiResultNode{
		label:   "uplink latency",
		headers: []string{"ms"},
		rows:    []interfaces.TableMultiRow{{Time: resultTime, Values: []string{"12"}}},
	}
	erased := interfaces.EraseTableMultiResultNode[interfaces.TableMultiRow](history)
	root := &testNode{kind: interfaces.KindRoot, label: "root", children: []interfaces.Node{erased}}
	monitor := &testMonitor{root: root, username: "u", password: "p"}

	server, err := cache.GetInstance(monitor, "", "", 7000)
	require.NoError(t, err)
	before := substrate.Exports()

	first, err := server.Wrap(erased)
	require.NoError(t, err)
	second, err := server.Wrap(interfaces.EraseTableMultiResultNode[interfaces.TableMultiRow](history))
	require.NoError(t, err)
	assert.NotSame(t, first, second, "unhashable nodes are not memoised")
	assert.Equal(t, before+2, substrate.Exports())
	assert.Equal(t, 0, server.WrappedNodes())

	headers, err := first.(interfaces.TableMultiResultNode[interfaces.TableMultiResult]).ColumnHeaders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ms"}, headers)

	wrappedRoot, err := server.Wrap(root)
	require.NoError(t, err)
	children, err := wrappedRoot.Children(ctx)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, interfaces.KindTableMultiResult, children[0].Kind())

	reply, err := wrappedRoot.Invoke(ctx, "Children", nil)
	require.NoError(t, err)
	assert.Len(t, reply, 1)
}

func TestWrap_ExportFailureLeavesNoWrapper(t *testing.T) {
	substrate := new(remote.MockSubstrate)
	registry := new(remote.MockRegistry)
	serverStub := &interfaces.Stub{Host: "localhost", Port: 7000, ObjectID: "server"}
	nodeStub := &interfaces.Stub{Host: "localhost", Port: 7000, ObjectID: "node"}

	substrate.On("CreateRegistry", 7000, mock.Anything, mock.Anything).Return(registry, nil)
	substrate.On("Export", mock.AnythingOfType("*monitorserver.Monitor"), 7000, mock.Anything, mock.Anything, mock.Anything).Return(serverStub, nil)
	substrate.On("Export", mock.AnythingOfType("*monitorserver.rootNode"), 7000, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("marshal setup failed")).Once()
	substrate.On("Export", mock.AnythingOfType("*monitorserver.rootNode"), 7000, mock.Anything, mock.Anything, mock.Anything).Return(nodeStub, nil)
	registry.On("Rebind", WellKnownName, serverStub).Return(nil)

	cache, err := NewCache(&Config{Substrate: substrate, Identity: testIdentity(t), Log: testLogger})
	require.NoError(t, err)
	monitor, localRoot, _ := newTestTree()
	server, err := cache.GetInstance(monitor, "", "", 7000)
	require.NoError(t, err)

	_, err = server.Wrap(localRoot)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, server.WrappedNodes())

	w, err := server.Wrap(localRoot)
	require.NoError(t, err)
	assert.Equal(t, nodeStub, w.Stub())
	assert.Equal(t, 1, server.WrappedNodes())

	// Node wrappers are never bound by name.
	registry.AssertNumberOfCalls(t, "Rebind", 1)
}
