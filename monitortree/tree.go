package monitortree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var ErrInvalidTree = errors.New("invalid monitor tree")

type document struct {
	Users []userDoc `yaml:"users"`
	Tree  nodeDoc   `yaml:"tree"`
}

type userDoc struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type nodeDoc struct {
	Kind         interfaces.NodeKind   `yaml:"kind"`
	Label        string                `yaml:"label"`
	AlertLevel   interfaces.AlertLevel `yaml:"alert_level"`
	AlertMessage string                `yaml:"alert_message"`
	Children     []nodeDoc             `yaml:"children"`

	// single_result
	Result *singleResultDoc `yaml:"result"`
	// table_result
	Table *tableResultDoc `yaml:"table"`
	// table_multi_result
	ColumnHeaders []string        `yaml:"column_headers"`
	Results       []tableMultiDoc `yaml:"results"`
}

type singleResultDoc struct {
	Time       time.Time             `yaml:"time"`
	Latency    time.Duration         `yaml:"latency"`
	Error      string                `yaml:"error"`
	Report     string                `yaml:"report"`
	AlertLevel interfaces.AlertLevel `yaml:"alert_level"`
}

type tableResultDoc struct {
	Time          time.Time               `yaml:"time"`
	Latency       time.Duration           `yaml:"latency"`
	Error         string                  `yaml:"error"`
	ColumnHeaders []string                `yaml:"column_headers"`
	Rows          [][]string              `yaml:"rows"`
	AlertLevels   []interfaces.AlertLevel `yaml:"alert_levels"`
}

type tableMultiDoc struct {
	Time       time.Time             `yaml:"time"`
	Latency    time.Duration         `yaml:"latency"`
	Error      string                `yaml:"error"`
	Values     []string              `yaml:"values"`
	AlertLevel interfaces.AlertLevel `yaml:"alert_level"`
}

// Monitor is a static monitor tree guarded by bcrypt password hashes.
type Monitor struct {
	users map[string][]byte
	root  *Node
}

var _ interfaces.Monitor = (*Monitor)(nil)

// LoadFile parses the YAML monitor tree at path.
func LoadFile(path string) (*Monitor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read monitor tree: %w", err)
	}
	return Parse(data)
}

// Parse builds a Monitor from a YAML document. The top-level tree is the
// root node; its kind may be omitted.
func Parse(data []byte) (*Monitor, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}

	users := make(map[string][]byte, len(doc.Users))
	for _, u := range doc.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("%w: user without a name", ErrInvalidTree)
		}
		if _, found := users[u.Username]; found {
			return nil, fmt.Errorf("%w: duplicate user %q", ErrInvalidTree, u.Username)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w: password hash of %q: %w", ErrInvalidTree, u.Username, err)
		}
		users[u.Username] = []byte(u.PasswordHash)
	}

	if doc.Tree.Kind == 0 {
		doc.Tree.Kind = interfaces.KindRoot
	}
	if doc.Tree.Kind != interfaces.KindRoot {
		return nil, fmt.Errorf("%w: top-level node must be a root, not %s", ErrInvalidTree, doc.Tree.Kind)
	}
	root, err := buildNode(&doc.Tree, "")
	if err != nil {
		return nil, err
	}

	return &Monitor{users: users, root: root.(*Node)}, nil
}

func buildNode(d *nodeDoc, parent string) (interfaces.Node, error) {
	path := parent + "/" + d.Label
	if d.Label == "" {
		return nil, fmt.Errorf("%w: node without a label under %q", ErrInvalidTree, parent+"/")
	}
	if d.Kind != interfaces.KindRoot && d.Kind != interfaces.KindNode && len(d.Children) > 0 {
		return nil, fmt.Errorf("%w: %s node %q cannot have children", ErrInvalidTree, d.Kind, path)
	}

	b := base{kind: d.Kind, label: d.Label, alertLevel: d.AlertLevel, alertMessage: d.AlertMessage}

	switch d.Kind {
	case interfaces.KindRoot, interfaces.KindNode:
		if d.Kind == interfaces.KindRoot && parent != "" {
			return nil, fmt.Errorf("%w: nested root node %q", ErrInvalidTree, path)
		}
		n := &Node{base: b, children: make([]interfaces.Node, 0, len(d.Children))}
		for i := range d.Children {
			child, err := buildNode(&d.Children[i], path)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
		return n, nil

	case interfaces.KindSingleResult:
		if d.Result == nil {
			return nil, fmt.Errorf("%w: %s node %q needs a result", ErrInvalidTree, d.Kind, path)
		}
		r := d.Result
		return &SingleResultNode{base: b, result: &interfaces.SingleResult{
			Time:       r.Time,
			Latency:    r.Latency,
			Error:      r.Error,
			Report:     r.Report,
			AlertLevel: r.AlertLevel,
		}}, nil

	case interfaces.KindTableResult:
		if d.Table == nil {
			return nil, fmt.Errorf("%w: %s node %q needs a table", ErrInvalidTree, d.Kind, path)
		}
		r := d.Table
		for _, row := range r.Rows {
			if len(row) != len(r.ColumnHeaders) {
				return nil, fmt.Errorf("%w: row width of %q does not match its headers", ErrInvalidTree, path)
			}
		}
		if len(r.AlertLevels) != 0 && len(r.AlertLevels) != len(r.Rows) {
			return nil, fmt.Errorf("%w: %q needs one alert level per row", ErrInvalidTree, path)
		}
		return &TableResultNode{base: b, result: &interfaces.TableResult{
			Time:          r.Time,
			Latency:       r.Latency,
			Error:         r.Error,
			ColumnHeaders: r.ColumnHeaders,
			Rows:          r.Rows,
			AlertLevels:   r.AlertLevels,
		}}, nil

	case interfaces.KindTableMultiResult:
		rows := make([]interfaces.TableMultiRow, len(d.Results))
		for i, r := range d.Results {
			rows[i] = interfaces.TableMultiRow{
				Time:       r.Time,
				Latency:    r.Latency,
				Error:      r.Error,
				Values:     r.Values,
				AlertLevel: r.AlertLevel,
			}
		}
		// Latest first.
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.After(rows[j].Time) })
		n := &TableMultiResultNode{base: b, columnHeaders: d.ColumnHeaders, rows: rows}
		return interfaces.EraseTableMultiResultNode[interfaces.TableMultiRow](n), nil
	}

	return nil, fmt.Errorf("%w: node %q has no kind", ErrInvalidTree, path)
}

// dummyHash keeps failed logins for unknown users as slow as for known ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)

// Login checks the credentials and returns the root node. The locale is
// ignored.
func (m *Monitor) Login(_ context.Context, _, username, password string) (interfaces.RootNode, error) {
	hash, found := m.users[username]
	if !found {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, interfaces.ErrLoginFailed
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, interfaces.ErrLoginFailed
	}
	return m.root, nil
}

// Root returns the root node without authentication.
func (m *Monitor) Root() *Node {
	return m.root
}

// HashPassword returns the bcrypt hash to put in a tree's users section.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
