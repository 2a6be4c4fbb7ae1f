package dsl

import (
	"fmt"

	"github.com/aretw0/reel/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	entry string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Entry sets the entry step. It defaults to the first node added.
func (b *Builder) Entry(name string) *Builder {
	b.entry = name
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			Name: name,
		},
		builder: b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Build compiles and validates the graph.
func (b *Builder) Build() (*domain.Graph, error) {
	entry := b.entry
	if entry == "" && len(b.order) > 0 {
		entry = b.order[0]
	}

	nodes := make([]domain.Node, 0, len(b.order))
	for _, name := range b.order {
		nodes = append(nodes, b.nodes[name].node)
	}

	g, err := domain.NewGraph(entry, nodes...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

// MustBuild is like Build but panics on error. Intended for statically known graphs.
func (b *Builder) MustBuild() *domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
