package monitorserver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ruteri/noc-monitor-publisher/cryptoutils"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testNode struct {
	kind         interfaces.NodeKind
	label        string
	alertLevel   interfaces.AlertLevel
	alertMessage string
	children     []interfaces.Node
}

func (n *testNode) Kind() interfaces.NodeKind { return n.kind }

func (n *testNode) Label(context.Context) (string, error) { return n.label, nil }

func (n *testNode) AlertLevel(context.Context) (interfaces.AlertLevel, error) {
	return n.alertLevel, nil
}

func (n *testNode) AlertMessage(context.Context) (string, error) { return n.alertMessage, nil }

func (n *testNode) AllowsChildren(context.Context) (bool, error) {
	return n.kind == interfaces.KindRoot || n.kind == interfaces.KindNode, nil
}

func (n *testNode) Children(context.Context) ([]interfaces.Node, error) { return n.children, nil }

type testSingleResultNode struct {
	testNode
	result *interfaces.SingleResult
}

func (n *testSingleResultNode) LastResult(context.Context) (*interfaces.SingleResult, error) {
	return n.result, nil
}

type testTableResultNode struct {
	testNode
	result *interfaces.TableResult
}

func (n *testTableResultNode) LastResult(context.Context) (*interfaces.TableResult, error) {
	return n.result, nil
}

type testTableMultiResultNode struct {
	testNode
	headers []string
	rows    []interfaces.TableMultiRow
}

func (n *testTableMultiResultNode) ColumnHeaders(context.Context) ([]string, error) {
	return n.headers, nil
}

func (n *testTableMultiResultNode) Results(context.Context) ([]interfaces.TableMultiRow, error) {
	return n.rows, nil
}

// valueTableMultiResultNode is a value type that cannot be a map key.
type valueTableMultiResultNode struct {
	label   string
	headers []string
	rows    []interfaces.TableMultiRow
}

func (n valueTableMultiResultNode) Kind() interfaces.NodeKind {
	return interfaces.KindTableMultiResult
}

func (n valueTableMultiResultNode) Label(context.Context) (string, error) { return n.label, nil }

func (n valueTableMultiResultNode) AlertLevel(context.Context) (interfaces.AlertLevel, error) {
	return interfaces.AlertLevelNone, nil
}

func (n valueTableMultiResultNode) AlertMessage(context.Context) (string, error) { return "", nil }

func (n valueTableMultiResultNode) AllowsChildren(context.Context) (bool, error) { return false, nil }

func (n valueTableMultiResultNode) Children(context.Context) ([]interfaces.Node, error) {
	return nil, nil
}

func (n valueTableMultiResultNode) ColumnHeaders(context.Context) ([]string, error) {
	return n.headers, nil
}

func (n valueTableMultiResultNode) Results(context.Context) ([]interfaces.TableMultiRow, error) {
	return n.rows, nil
}

type testMonitor struct {
	root     interfaces.RootNode
	username string
	password string
}

func (m *testMonitor) Login(_ context.Context, _, username, password string) (interfaces.RootNode, error) {
	if username != m.username || password != m.password {
		return nil, interfaces.ErrLoginFailed
	}
	return m.root, nil
}

// unkeyedMonitor cannot be a map key.
type unkeyedMonitor []string

func (unkeyedMonitor) Login(context.Context, string, string, string) (interfaces.RootNode, error) {
	return nil, interfaces.ErrLoginFailed
}

// delegatingMonitor is comparable by type; whether it can be a map key
// depends on inner.
type delegatingMonitor struct {
	inner interfaces.Monitor
}

func (m delegatingMonitor) Login(ctx context.Context, locale, username, password string) (interfaces.RootNode, error) {
	return m.inner.Login(ctx, locale, username, password)
}

var resultTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestTree builds a root with three inner nodes and one single result
// leaf.
func newTestTree() (*testMonitor, *testNode, *testSingleResultNode) {
	leaf := &testSingleResultNode{
		testNode: testNode{kind: interfaces.KindSingleResult, label: "ping gateway", alertLevel: interfaces.AlertLevelLow},
		result: &interfaces.SingleResult{
			Time:       resultTime,
			Latency:    12 * time.Millisecond,
			Report:     "64 bytes from 10.0.0.1",
			AlertLevel: interfaces.AlertLevelLow,
		},
	}
	root := &testNode{
		kind:  interfaces.KindRoot,
		label: "network",
		children: []interfaces.Node{
			&testNode{kind: interfaces.KindNode, label: "core"},
			&testNode{kind: interfaces.KindNode, label: "edge"},
			&testNode{kind: interfaces.KindNode, label: "dmz", alertLevel: interfaces.AlertLevelHigh, alertMessage: "link down"},
			leaf,
		},
	}
	return &testMonitor{root: root, username: "admin", password: "secret"}, root, leaf
}

func testIdentity(t *testing.T) *cryptoutils.TLSIdentity {
	t.Helper()
	identity, err := cryptoutils.LoadTLSIdentity(cryptoutils.TLSMaterial{Ephemeral: true, Hosts: []string{"127.0.0.1", "localhost"}})
	require.NoError(t, err)
	return identity
}
