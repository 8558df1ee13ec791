package interfaces

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NodeKind is the closed set of node variants a monitor tree is built from.
// Wrapping and client proxies dispatch on it instead of inspecting types.
type NodeKind uint8

const (
	KindRoot NodeKind = iota + 1
	KindNode
	KindSingleResult
	KindTableResult
	KindTableMultiResult
)

var nodeKindNames = map[NodeKind]string{
	KindRoot:             "root",
	KindNode:             "node",
	KindSingleResult:     "single_result",
	KindTableResult:      "table_result",
	KindTableMultiResult: "table_multi_result",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k NodeKind) Valid() bool {
	_, ok := nodeKindNames[k]
	return ok
}

// ParseNodeKind is the inverse of NodeKind.String.
func ParseNodeKind(s string) (NodeKind, error) {
	for kind, name := range nodeKindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

func (k NodeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid node kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AlertLevel orders the severity of a node. UNKNOWN sorts above CRITICAL
// because a node that cannot be evaluated needs the most attention.
type AlertLevel uint8

const (
	AlertLevelNone AlertLevel = iota
	AlertLevelLow
	AlertLevelMedium
	AlertLevelHigh
	AlertLevelCritical
	AlertLevelUnknown
)

var alertLevelNames = [...]string{"NONE", "LOW", "MEDIUM", "HIGH", "CRITICAL", "UNKNOWN"}

func (l AlertLevel) String() string {
	if int(l) < len(alertLevelNames) {
		return alertLevelNames[l]
	}
	return fmt.Sprintf("AlertLevel(%d)", uint8(l))
}

func ParseAlertLevel(s string) (AlertLevel, error) {
	for i, name := range alertLevelNames {
		if strings.EqualFold(name, s) {
			return AlertLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown alert level %q", s)
}

func (l AlertLevel) MarshalText() ([]byte, error) {
	if int(l) >= len(alertLevelNames) {
		return nil, fmt.Errorf("invalid alert level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *AlertLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAlertLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ErrLoginFailed is returned by Monitor.Login for unknown users or bad passwords.
var ErrLoginFailed = errors.New("login failed")

// Monitor is the entry point of a monitor tree. A published monitor is found
// by name; everything below it is reached through Login.
type Monitor interface {
	Login(ctx context.Context, locale, username, password string) (RootNode, error)
}

// Node is the read-only view every node kind exposes. Children returns the
// direct children in display order; leaves return an empty slice.
type Node interface {
	Kind() NodeKind
	Label(ctx context.Context) (string, error)
	AlertLevel(ctx context.Context) (AlertLevel, error)
	AlertMessage(ctx context.Context) (string, error)
	AllowsChildren(ctx context.Context) (bool, error)
	Children(ctx context.Context) ([]Node, error)
}

// RootNode is the node returned by a successful login.
type RootNode interface {
	Node
}

type SingleResultNode interface {
	Node
	LastResult(ctx context.Context) (*SingleResult, error)
}

type TableResultNode interface {
	Node
	LastResult(ctx context.Context) (*TableResult, error)
}

// TableMultiResultNode keeps a bounded history of results of type R, newest
// first.
type TableMultiResultNode[R TableMultiResult] interface {
	Node
	ColumnHeaders(ctx context.Context) ([]string, error)
	Results(ctx context.Context) ([]R, error)
}

// EraseTableMultiResultNode adapts a typed node to the form seen during tree
// traversal. Providers return the erased form from Children. Erasing the
// same comparable node twice yields equal values.
func EraseTableMultiResultNode[R TableMultiResult](node TableMultiResultNode[R]) TableMultiResultNode[TableMultiResult] {
	if erased, ok := any(node).(TableMultiResultNode[TableMultiResult]); ok {
		return erased
	}
	return erasedTableMultiResultNode[R]{TableMultiResultNode: node}
}

type erasedTableMultiResultNode[R TableMultiResult] struct {
	TableMultiResultNode[R]
}

func (n erasedTableMultiResultNode[R]) Results(ctx context.Context) ([]TableMultiResult, error) {
	results, err := n.TableMultiResultNode.Results(ctx)
	if err != nil {
		return nil, err
	}
	erased := make([]TableMultiResult, len(results))
	for i, r := range results {
		erased[i] = r
	}
	return erased, nil
}
