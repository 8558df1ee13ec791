package monitortree

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	m, err := LoadFile("testdata/network.yaml")
	require.NoError(t, err)

	root, err := m.Login(ctx, "en", "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, interfaces.KindRoot, root.Kind())
	label, err := root.Label(ctx)
	require.NoError(t, err)
	assert.Equal(t, "network", label)
	allows, err := root.AllowsChildren(ctx)
	require.NoError(t, err)
	assert.True(t, allows)

	children, err := root.Children(ctx)
	require.NoError(t, err)
	require.Len(t, children, 2)
	core, edge := children[0], children[1]
	assert.Equal(t, interfaces.KindNode, core.Kind())

	level, err := edge.AlertLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AlertLevelHigh, level)
	msg, err := edge.AlertMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "uplink degraded", msg)

	coreChildren, err := core.Children(ctx)
	require.NoError(t, err)
	require.Len(t, coreChildren, 1)
	ping, ok := coreChildren[0].(interfaces.SingleResultNode)
	require.True(t, ok)
	result, err := ping.LastResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Millisecond, result.Latency)
	assert.Equal(t, "64 bytes from 10.0.0.1", result.Report)
	assert.Equal(t, interfaces.AlertLevelLow, result.AlertLevel)
	assert.True(t, result.Time.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	leafChildren, err := ping.Children(ctx)
	require.NoError(t, err)
	assert.Empty(t, leafChildren)

	edgeChildren, err := edge.Children(ctx)
	require.NoError(t, err)
	require.Len(t, edgeChildren, 2)

	table, ok := edgeChildren[0].(interfaces.TableResultNode)
	require.True(t, ok)
	tableResult, err := table.LastResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "state"}, tableResult.ColumnHeaders)
	assert.Equal(t, [][]string{{"eth0", "up"}, {"eth1", "down"}}, tableResult.Rows)
	assert.Equal(t, []interfaces.AlertLevel{interfaces.AlertLevelNone, interfaces.AlertLevelCritical}, tableResult.AlertLevels)

	multi, ok := edgeChildren[1].(interfaces.TableMultiResultNode[interfaces.TableMultiResult])
	require.True(t, ok, "table multi result nodes are handed out erased")
	assert.Equal(t, interfaces.KindTableMultiResult, multi.Kind())
	headers, err := multi.ColumnHeaders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ms"}, headers)
	rows, err := multi.Results(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, interfaces.AlertLevelNone, rows[0].ResultAlertLevel(), "latest first")
	assert.True(t, rows[0].ResultTime().After(rows[1].ResultTime()))

	again, err := root.Children(ctx)
	require.NoError(t, err)
	edgeAgain, err := again[1].Children(ctx)
	require.NoError(t, err)
	assert.Equal(t, edgeChildren[1], edgeAgain[1], "erased nodes keep their identity")
}

func TestLogin(t *testing.T) {
	m, err := LoadFile("testdata/network.yaml")
	require.NoError(t, err)

	_, err = m.Login(context.Background(), "en", "admin", "wrong")
	assert.ErrorIs(t, err, interfaces.ErrLoginFailed)
	_, err = m.Login(context.Background(), "en", "nobody", "secret")
	assert.ErrorIs(t, err, interfaces.ErrLoginFailed)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))

	m, err := Parse([]byte(fmt.Sprintf(`
users:
  - username: ops
    password_hash: %q
tree:
  label: root
`, hash)))
	require.NoError(t, err)
	root, err := m.Login(context.Background(), "", "ops", "hunter2")
	require.NoError(t, err)
	assert.Same(t, m.Root(), root)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "tree: ["},
		{name: "bad hash", doc: "users: [{username: a, password_hash: plain}]\ntree: {label: r}"},
		{name: "user without name", doc: "users: [{password_hash: x}]\ntree: {label: r}"},
		{name: "missing label", doc: "tree: {}"},
		{name: "top-level not root", doc: "tree: {kind: node, label: r}"},
		{name: "unknown kind", doc: "tree: {label: r, children: [{kind: gauge, label: g}]}"},
		{name: "missing kind", doc: "tree: {label: r, children: [{label: g}]}"},
		{name: "nested root", doc: "tree: {label: r, children: [{kind: root, label: g}]}"},
		{name: "leaf with children", doc: "tree: {label: r, children: [{kind: single_result, label: g, result: {}, children: [{kind: node, label: x}]}]}"},
		{name: "single result without result", doc: "tree: {label: r, children: [{kind: single_result, label: g}]}"},
		{name: "table without table", doc: "tree: {label: r, children: [{kind: table_result, label: g}]}"},
		{name: "ragged table", doc: "tree: {label: r, children: [{kind: table_result, label: g, table: {column_headers: [a, b], rows: [[x]]}}]}"},
		{name: "bad alert level", doc: "tree: {label: r, alert_level: SEVERE}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidTree)
		})
	}

	_, err := LoadFile("testdata/missing.yaml")
	assert.Error(t, err)
}
