package monitorclient

import (
	"context"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"golang.org/x/sync/errgroup"
)

// NodeInfo is the state of one node at the time it was visited.
type NodeInfo struct {
	Node         *Node
	Path         []string
	Kind         interfaces.NodeKind
	Label        string
	AlertLevel   interfaces.AlertLevel
	AlertMessage string
}

// Describe fetches the label and alert state of n.
func Describe(ctx context.Context, n *Node) (*NodeInfo, error) {
	info := &NodeInfo{Node: n, Kind: n.Kind()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info.Label, err = n.Label(gctx)
		return err
	})
	g.Go(func() (err error) {
		info.AlertLevel, err = n.AlertLevel(gctx)
		return err
	})
	g.Go(func() (err error) {
		info.AlertMessage, err = n.AlertMessage(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

// WalkFunc is called for every visited node. Returning an error stops the
// walk.
type WalkFunc func(info *NodeInfo) error

// Walk visits root and its descendants depth-first, parents before children.
func Walk(ctx context.Context, root *Node, fn WalkFunc) error {
	return walk(ctx, root, nil, fn)
}

func walk(ctx context.Context, n *Node, parent []string, fn WalkFunc) error {
	info, err := Describe(ctx, n)
	if err != nil {
		return err
	}
	info.Path = append(append([]string{}, parent...), info.Label)
	if err := fn(info); err != nil {
		return err
	}

	if n.Kind() != interfaces.KindRoot && n.Kind() != interfaces.KindNode {
		return nil
	}
	children, err := n.ChildNodes(ctx)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := walk(ctx, child, info.Path, fn); err != nil {
			return err
		}
	}
	return nil
}
