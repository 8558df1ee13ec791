package monitorclient

import (
	"context"
	"fmt"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/monitorserver"
	"golang.org/x/sync/errgroup"
)

// Invoker reaches published objects. *remote.Client and
// *remote.MemorySubstrate implement it.
type Invoker interface {
	Lookup(ctx context.Context, host string, port int, name string) (*interfaces.Stub, error)
	Invoke(ctx context.Context, stub *interfaces.Stub, method string, args any, reply any) error
}

// Monitor is the client side of a published monitor.
type Monitor struct {
	invoker Invoker
	stub    *interfaces.Stub
}

// Dial resolves the monitor published on host:port.
func Dial(ctx context.Context, invoker Invoker, host string, port int) (*Monitor, error) {
	stub, err := invoker.Lookup(ctx, host, port, monitorserver.WellKnownName)
	if err != nil {
		return nil, fmt.Errorf("could not resolve monitor on %s:%d: %w", host, port, err)
	}
	return &Monitor{invoker: invoker, stub: stub}, nil
}

func (m *Monitor) Stub() *interfaces.Stub {
	return m.stub
}

// Login returns the root node of the remote tree.
func (m *Monitor) Login(ctx context.Context, locale, username, password string) (*Node, error) {
	var root interfaces.Stub
	args := monitorserver.LoginArgs{Locale: locale, Username: username, Password: password}
	if err := m.invoker.Invoke(ctx, m.stub, "Login", args, &root); err != nil {
		return nil, err
	}
	return newNode(ctx, m.invoker, &root)
}

// Node is the client side of a published node. Its kind is fetched once.
type Node struct {
	invoker Invoker
	stub    *interfaces.Stub
	kind    interfaces.NodeKind
}

var _ interfaces.Node = (*Node)(nil)

func newNode(ctx context.Context, invoker Invoker, stub *interfaces.Stub) (*Node, error) {
	n := &Node{invoker: invoker, stub: stub}
	if err := invoker.Invoke(ctx, stub, "Kind", nil, &n.kind); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) Stub() *interfaces.Stub {
	return n.stub
}

func (n *Node) Kind() interfaces.NodeKind {
	return n.kind
}

func (n *Node) Label(ctx context.Context) (string, error) {
	var label string
	err := n.invoker.Invoke(ctx, n.stub, "Label", nil, &label)
	return label, err
}

func (n *Node) AlertLevel(ctx context.Context) (interfaces.AlertLevel, error) {
	var level interfaces.AlertLevel
	err := n.invoker.Invoke(ctx, n.stub, "AlertLevel", nil, &level)
	return level, err
}

func (n *Node) AlertMessage(ctx context.Context) (string, error) {
	var msg string
	err := n.invoker.Invoke(ctx, n.stub, "AlertMessage", nil, &msg)
	return msg, err
}

func (n *Node) AllowsChildren(ctx context.Context) (bool, error) {
	var allows bool
	err := n.invoker.Invoke(ctx, n.stub, "AllowsChildren", nil, &allows)
	return allows, err
}

// Children implements interfaces.Node.
func (n *Node) Children(ctx context.Context) ([]interfaces.Node, error) {
	children, err := n.ChildNodes(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]interfaces.Node, len(children))
	for i, child := range children {
		nodes[i] = child
	}
	return nodes, nil
}

// ChildNodes returns the remote children, fetching their kinds concurrently.
func (n *Node) ChildNodes(ctx context.Context) ([]*Node, error) {
	var stubs []interfaces.Stub
	if err := n.invoker.Invoke(ctx, n.stub, "Children", nil, &stubs); err != nil {
		return nil, err
	}

	children := make([]*Node, len(stubs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range stubs {
		g.Go(func() error {
			child, err := newNode(gctx, n.invoker, &stubs[i])
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return children, nil
}

// SingleResult returns the latest result of a single result node.
func (n *Node) SingleResult(ctx context.Context) (*interfaces.SingleResult, error) {
	if n.kind != interfaces.KindSingleResult {
		return nil, fmt.Errorf("%s node has no single result", n.kind)
	}
	var result *interfaces.SingleResult
	err := n.invoker.Invoke(ctx, n.stub, "LastResult", nil, &result)
	return result, err
}

// TableResult returns the latest result of a table result node.
func (n *Node) TableResult(ctx context.Context) (*interfaces.TableResult, error) {
	if n.kind != interfaces.KindTableResult {
		return nil, fmt.Errorf("%s node has no table result", n.kind)
	}
	var result *interfaces.TableResult
	err := n.invoker.Invoke(ctx, n.stub, "LastResult", nil, &result)
	return result, err
}

func (n *Node) ColumnHeaders(ctx context.Context) ([]string, error) {
	if n.kind != interfaces.KindTableMultiResult {
		return nil, fmt.Errorf("%s node has no column headers", n.kind)
	}
	var headers []string
	err := n.invoker.Invoke(ctx, n.stub, "ColumnHeaders", nil, &headers)
	return headers, err
}

// Results returns the rows of a table multi result node, latest first.
func (n *Node) Results(ctx context.Context) ([]interfaces.TableMultiRow, error) {
	if n.kind != interfaces.KindTableMultiResult {
		return nil, fmt.Errorf("%s node has no results", n.kind)
	}
	var rows []interfaces.TableMultiRow
	err := n.invoker.Invoke(ctx, n.stub, "Results", nil, &rows)
	return rows, err
}
