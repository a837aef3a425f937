// Package board holds the immutable node/edge graph a game is played on.
package board

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Edge is a directed connection worth Points when the runner scores it.
type Edge struct {
	From   string `yaml:"from" json:"from"`
	To     string `yaml:"to" json:"to"`
	Points int    `yaml:"points" json:"points"`
}

// Map is safe for concurrent use; it is never mutated after construction.
type Map struct {
	name  string
	nodes map[string]struct{}
	edges []Edge
	out   map[string][]int
}

type pairKey struct{ a, b string }

// New validates the graph and builds its adjacency index.
// Nodes referenced only by edges are added implicitly.
func New(name string, nodes []string, edges []Edge) (*Map, error) {
	m := &Map{
		name:  name,
		nodes: make(map[string]struct{}, len(nodes)),
		edges: make([]Edge, 0, len(edges)),
		out:   make(map[string][]int),
	}
	for _, n := range nodes {
		if n == "" {
			return nil, fmt.Errorf("map %s: empty node name", name)
		}
		m.nodes[n] = struct{}{}
	}
	seen := make(map[pairKey]bool, len(edges))
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("map %s: edge with empty endpoint", name)
		}
		if e.Points < 0 {
			return nil, fmt.Errorf("map %s: edge %s->%s has negative points", name, e.From, e.To)
		}
		key := pairKey{e.From, e.To}
		if seen[key] {
			return nil, fmt.Errorf("map %s: duplicate edge %s->%s", name, e.From, e.To)
		}
		seen[key] = true
		m.nodes[e.From] = struct{}{}
		m.nodes[e.To] = struct{}{}
		m.out[e.From] = append(m.out[e.From], len(m.edges))
		m.edges = append(m.edges, e)
	}
	return m, nil
}

// Name returns the map's name.
func (m *Map) Name() string { return m.name }

// HasNode reports whether node is on the map.
func (m *Map) HasNode(node string) bool {
	_, ok := m.nodes[node]
	return ok
}

// Nodes returns all node names sorted.
func (m *Map) Nodes() []string {
	out := make([]string, 0, len(m.nodes))
	for n := range m.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Edges returns a copy of the edge list in declaration order.
func (m *Map) Edges() []Edge {
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out
}

// HasEdge reports a directed edge from -> to.
func (m *Map) HasEdge(from, to string) bool {
	for _, idx := range m.out[from] {
		if m.edges[idx].To == to {
			return true
		}
	}
	return false
}

// Adjacent reports an edge between a and b in either direction.
func (m *Map) Adjacent(a, b string) bool {
	return m.HasEdge(a, b) || m.HasEdge(b, a)
}

// Neighbors returns the nodes sharing an edge with node, in either direction.
func (m *Map) Neighbors(node string) []string {
	set := make(map[string]struct{})
	for _, e := range m.edges {
		switch node {
		case e.From:
			set[e.To] = struct{}{}
		case e.To:
			set[e.From] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Points returns the value of the edge between a and b. The directed edge
// a->b wins when both directions exist; ok is false when neither does.
func (m *Map) Points(a, b string) (points int, ok bool) {
	for _, idx := range m.out[a] {
		if m.edges[idx].To == b {
			return m.edges[idx].Points, true
		}
	}
	for _, idx := range m.out[b] {
		if m.edges[idx].To == a {
			return m.edges[idx].Points, true
		}
	}
	return 0, false
}

// Definition is the YAML form of a map.
type Definition struct {
	Name  string   `yaml:"name"`
	Nodes []string `yaml:"nodes"`
	Edges []Edge   `yaml:"edges"`
}

// Build turns a definition into a Map.
func (d Definition) Build() (*Map, error) {
	return New(d.Name, d.Nodes, d.Edges)
}

// Decode reads a single YAML map definition.
func Decode(r io.Reader) (*Map, error) {
	var def Definition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("parse map YAML: %w", err)
	}
	return def.Build()
}

// LoadFile reads a YAML map definition from path.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
