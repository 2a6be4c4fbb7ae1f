package dsl

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Do sets the step executed by the node.
func (n *NodeBuilder) Do(step domain.Step) *NodeBuilder {
	n.node.Step = step
	return n
}

// DoFunc sets a plain function as the node's step.
func (n *NodeBuilder) DoFunc(fn func(ctx context.Context, s domain.State) (domain.State, domain.Outcome, error)) *NodeBuilder {
	return n.Do(domain.StepFunc(fn))
}

// Go sets the static fallback edge to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Next = target
	n.node.Router = nil
	n.node.Targets = nil
	return n
}

// Route binds a router. Every step the router may return must be listed in targets;
// domain.End is always allowed.
func (n *NodeBuilder) Route(router domain.Router, targets ...string) *NodeBuilder {
	n.node.Router = router
	n.node.Targets = targets
	n.node.Next = ""
	return n
}

// Terminal marks the node as a terminal node (end of the flow).
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Next = ""
	n.node.Router = nil
	n.node.Targets = nil
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
