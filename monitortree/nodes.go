package monitortree

import (
	"context"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
)

type base struct {
	kind         interfaces.NodeKind
	label        string
	alertLevel   interfaces.AlertLevel
	alertMessage string
}

func (b *base) Kind() interfaces.NodeKind {
	return b.kind
}

func (b *base) Label(context.Context) (string, error) {
	return b.label, nil
}

func (b *base) AlertLevel(context.Context) (interfaces.AlertLevel, error) {
	return b.alertLevel, nil
}

func (b *base) AlertMessage(context.Context) (string, error) {
	return b.alertMessage, nil
}

func (b *base) AllowsChildren(context.Context) (bool, error) {
	return false, nil
}

func (b *base) Children(context.Context) ([]interfaces.Node, error) {
	return nil, nil
}

// Node is a root or inner node.
type Node struct {
	base
	children []interfaces.Node
}

var _ interfaces.RootNode = (*Node)(nil)

func (n *Node) AllowsChildren(context.Context) (bool, error) {
	return true, nil
}

func (n *Node) Children(context.Context) ([]interfaces.Node, error) {
	return n.children, nil
}

type SingleResultNode struct {
	base
	result *interfaces.SingleResult
}

var _ interfaces.SingleResultNode = (*SingleResultNode)(nil)

func (n *SingleResultNode) LastResult(context.Context) (*interfaces.SingleResult, error) {
	return n.result, nil
}

type TableResultNode struct {
	base
	result *interfaces.TableResult
}

var _ interfaces.TableResultNode = (*TableResultNode)(nil)

func (n *TableResultNode) LastResult(context.Context) (*interfaces.TableResult, error) {
	return n.result, nil
}

// TableMultiResultNode keeps a history of rows, latest first. Parents hand
// it out erased.
type TableMultiResultNode struct {
	base
	columnHeaders []string
	rows          []interfaces.TableMultiRow
}

var _ interfaces.TableMultiResultNode[interfaces.TableMultiRow] = (*TableMultiResultNode)(nil)

func (n *TableMultiResultNode) ColumnHeaders(context.Context) ([]string, error) {
	return n.columnHeaders, nil
}

func (n *TableMultiResultNode) Results(context.Context) ([]interfaces.TableMultiRow, error) {
	return n.rows, nil
}
