package monitorserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
)

// NodeWrapper is a published node. Its queries forward unmodified to the
// local node; remotely it is reachable through Stub.
type NodeWrapper interface {
	interfaces.Node
	interfaces.Remote

	Stub() *interfaces.Stub
	Local() interfaces.Node
	Owner() *Monitor
}

// wrapNode builds the wrapper matching the declared kind of local.
func wrapNode(owner *Monitor, local interfaces.Node) (NodeWrapper, error) {
	switch kind := local.Kind(); kind {
	case interfaces.KindRoot:
		return newRootNode(owner, local)
	case interfaces.KindNode:
		return newNode(owner, local)
	case interfaces.KindSingleResult:
		n, ok := local.(interfaces.SingleResultNode)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a %s node", ErrInvalidNode, local, kind)
		}
		return newSingleResultNode(owner, n)
	case interfaces.KindTableResult:
		n, ok := local.(interfaces.TableResultNode)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a %s node", ErrInvalidNode, local, kind)
		}
		return newTableResultNode(owner, n)
	case interfaces.KindTableMultiResult:
		n, ok := local.(interfaces.TableMultiResultNode[interfaces.TableMultiResult])
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a %s node", ErrInvalidNode, local, kind)
		}
		return newTableMultiResultNode(owner, n)
	default:
		return nil, fmt.Errorf("%w: %T declares %s", ErrInvalidNode, local, kind)
	}
}

// node carries what every wrapper kind shares.
type node struct {
	owner *Monitor
	local interfaces.Node
	stub  *interfaces.Stub
}

// export publishes self, the enclosing wrapper, without a name.
func (n *node) export(self interfaces.Remote) error {
	stub, err := n.owner.exportObject(self, "")
	if err != nil {
		return fmt.Errorf("wrap %s node: %w", n.local.Kind(), err)
	}
	n.stub = stub
	return nil
}

func (n *node) Stub() *interfaces.Stub {
	return n.stub
}

func (n *node) Local() interfaces.Node {
	return n.local
}

func (n *node) Owner() *Monitor {
	return n.owner
}

func (n *node) Kind() interfaces.NodeKind {
	return n.local.Kind()
}

func (n *node) Label(ctx context.Context) (string, error) {
	return n.local.Label(ctx)
}

func (n *node) AlertLevel(ctx context.Context) (interfaces.AlertLevel, error) {
	return n.local.AlertLevel(ctx)
}

func (n *node) AlertMessage(ctx context.Context) (string, error) {
	return n.local.AlertMessage(ctx)
}

func (n *node) AllowsChildren(ctx context.Context) (bool, error) {
	return n.local.AllowsChildren(ctx)
}

// Children returns the wrappers of the local node's children.
func (n *node) Children(ctx context.Context) ([]interfaces.Node, error) {
	wrapped, err := n.wrappedChildren(ctx)
	if err != nil {
		return nil, err
	}
	children := make([]interfaces.Node, len(wrapped))
	for i, w := range wrapped {
		children[i] = w
	}
	return children, nil
}

func (n *node) wrappedChildren(ctx context.Context) ([]NodeWrapper, error) {
	local, err := n.local.Children(ctx)
	if err != nil {
		return nil, err
	}
	wrapped := make([]NodeWrapper, len(local))
	for i, child := range local {
		w, err := n.owner.Wrap(child)
		if err != nil {
			return nil, err
		}
		wrapped[i] = w
	}
	return wrapped, nil
}

// invoke serves the methods common to every kind.
func (n *node) invoke(ctx context.Context, method string) (any, error) {
	switch method {
	case "Kind":
		return n.Kind(), nil
	case "Label":
		return n.Label(ctx)
	case "AlertLevel":
		return n.AlertLevel(ctx)
	case "AlertMessage":
		return n.AlertMessage(ctx)
	case "AllowsChildren":
		return n.AllowsChildren(ctx)
	case "Children":
		wrapped, err := n.wrappedChildren(ctx)
		if err != nil {
			return nil, err
		}
		remotes := make([]interfaces.Remote, len(wrapped))
		for i, w := range wrapped {
			remotes[i] = w
		}
		return remotes, nil
	}
	return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownMethod, method)
}

type rootNode struct {
	node
}

func newRootNode(owner *Monitor, local interfaces.RootNode) (*rootNode, error) {
	w := &rootNode{node: node{owner: owner, local: local}}
	if err := w.export(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rootNode) Invoke(ctx context.Context, method string, _ json.RawMessage) (any, error) {
	return w.invoke(ctx, method)
}

type innerNode struct {
	node
}

func newNode(owner *Monitor, local interfaces.Node) (*innerNode, error) {
	w := &innerNode{node: node{owner: owner, local: local}}
	if err := w.export(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *innerNode) Invoke(ctx context.Context, method string, _ json.RawMessage) (any, error) {
	return w.invoke(ctx, method)
}

type singleResultNode struct {
	node
	result interfaces.SingleResultNode
}

var _ interfaces.SingleResultNode = (*singleResultNode)(nil)

func newSingleResultNode(owner *Monitor, local interfaces.SingleResultNode) (*singleResultNode, error) {
	w := &singleResultNode{node: node{owner: owner, local: local}, result: local}
	if err := w.export(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *singleResultNode) LastResult(ctx context.Context) (*interfaces.SingleResult, error) {
	return w.result.LastResult(ctx)
}

func (w *singleResultNode) Invoke(ctx context.Context, method string, _ json.RawMessage) (any, error) {
	if method == "LastResult" {
		return w.LastResult(ctx)
	}
	return w.invoke(ctx, method)
}

type tableResultNode struct {
	node
	result interfaces.TableResultNode
}

var _ interfaces.TableResultNode = (*tableResultNode)(nil)

func newTableResultNode(owner *Monitor, local interfaces.TableResultNode) (*tableResultNode, error) {
	w := &tableResultNode{node: node{owner: owner, local: local}, result: local}
	if err := w.export(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *tableResultNode) LastResult(ctx context.Context) (*interfaces.TableResult, error) {
	return w.result.LastResult(ctx)
}

func (w *tableResultNode) Invoke(ctx context.Context, method string, _ json.RawMessage) (any, error) {
	if method == "LastResult" {
		return w.LastResult(ctx)
	}
	return w.invoke(ctx, method)
}

type tableMultiResultNode[R interfaces.TableMultiResult] struct {
	node
	result interfaces.TableMultiResultNode[R]
}

var _ interfaces.TableMultiResultNode[interfaces.TableMultiRow] = (*tableMultiResultNode[interfaces.TableMultiRow])(nil)

func newTableMultiResultNode[R interfaces.TableMultiResult](owner *Monitor, local interfaces.TableMultiResultNode[R]) (*tableMultiResultNode[R], error) {
	w := &tableMultiResultNode[R]{node: node{owner: owner, local: local}, result: local}
	if err := w.export(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *tableMultiResultNode[R]) ColumnHeaders(ctx context.Context) ([]string, error) {
	return w.result.ColumnHeaders(ctx)
}

// Results returns the latest result first, then the history.
func (w *tableMultiResultNode[R]) Results(ctx context.Context) ([]R, error) {
	return w.result.Results(ctx)
}

func (w *tableMultiResultNode[R]) Invoke(ctx context.Context, method string, _ json.RawMessage) (any, error) {
	switch method {
	case "ColumnHeaders":
		return w.ColumnHeaders(ctx)
	case "Results":
		return w.Results(ctx)
	}
	return w.invoke(ctx, method)
}
