package domain

import (
	"fmt"
	"slices"
	"sort"
)

// EdgeKind distinguishes static edges from router-selected ones.
type EdgeKind string

const (
	EdgeStatic EdgeKind = "static"
	EdgeRouted EdgeKind = "routed"
)

// Edge is a possible transition between two steps, used for introspection.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is an immutable mapping from step name to node, plus a designated entry step.
type Graph struct {
	entry string
	nodes map[string]Node
}

// NewGraph validates the nodes and returns the graph.
// Every referenced target must exist, every node must have a step, and names must be unique.
func NewGraph(entry string, nodes ...Node) (*Graph, error) {
	g := &Graph{entry: entry, nodes: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if n.Name == "" || n.Name == End {
			return nil, fmt.Errorf("%w: illegal node name %q", ErrInvalidGraph, n.Name)
		}
		if _, dup := g.nodes[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, n.Name)
		}
		if n.Step == nil {
			return nil, fmt.Errorf("%w: node %q has no step", ErrInvalidGraph, n.Name)
		}
		if n.Router != nil && n.Next != "" {
			return nil, fmt.Errorf("%w: node %q has both a router and a static edge", ErrInvalidGraph, n.Name)
		}
		n.Targets = slices.Clone(n.Targets)
		g.nodes[n.Name] = n
	}
	if _, ok := g.nodes[entry]; !ok {
		return nil, fmt.Errorf("%w: entry node %q not found", ErrInvalidGraph, entry)
	}
	for _, n := range g.nodes {
		for _, target := range g.targetsOf(n) {
			if target == End {
				continue
			}
			if _, ok := g.nodes[target]; !ok {
				return nil, fmt.Errorf("%w: node %q points to unknown node %q", ErrInvalidGraph, n.Name, target)
			}
		}
	}
	return g, nil
}

// Entry returns the name of the entry step.
func (g *Graph) Entry() string {
	return g.entry
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns the node names in lexical order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allows reports whether a transition from the named node to target is declared.
func (g *Graph) Allows(from, target string) bool {
	n, ok := g.nodes[from]
	if !ok {
		return false
	}
	if target == End {
		return true
	}
	return slices.Contains(g.targetsOf(n), target)
}

// Edges lists every declared transition, ordered by source node.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, name := range g.Names() {
		n := g.nodes[name]
		kind := EdgeStatic
		if n.Router != nil {
			kind = EdgeRouted
		}
		for _, target := range g.targetsOf(n) {
			edges = append(edges, Edge{From: name, To: target, Kind: kind})
		}
	}
	return edges
}

func (g *Graph) targetsOf(n Node) []string {
	if n.Router != nil {
		return n.Targets
	}
	if n.Next == "" {
		return []string{End}
	}
	return []string{n.Next}
}
