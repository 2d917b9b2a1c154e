// Package pipeline orders and runs the stages of a training run: ingestion,
// transformation and model training. Stages form a directed acyclic graph so
// a caller can run one stage, everything downstream of it, or the whole
// pipeline.
package pipeline

import (
	"fmt"
	"slices"
)

// Graph is a directed acyclic graph of named nodes. Node order is insertion
// order, which makes every traversal deterministic.
type Graph struct {
	order    []string
	children map[string][]string
	parents  map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds id. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if g.Has(id) {
		return
	}
	g.order = append(g.order, id)
	g.children[id] = nil
	g.parents[id] = nil
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.children[id]
	return ok
}

// Nodes returns the node ids in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// AddEdge records that child depends on parent. The edge is rejected when
// either node is unknown or it would close a cycle.
func (g *Graph) AddEdge(parent, child string) error {
	if !g.Has(parent) {
		return fmt.Errorf("parent node %q does not exist", parent)
	}
	if !g.Has(child) {
		return fmt.Errorf("child node %q does not exist", child)
	}
	if parent == child {
		return fmt.Errorf("self-loop detected: %s", parent)
	}
	if slices.Contains(g.children[parent], child) {
		return nil
	}
	if slices.Contains(g.Downstream(child), parent) {
		return fmt.Errorf("edge %s -> %s would create a cycle", parent, child)
	}
	g.children[parent] = append(g.children[parent], child)
	g.parents[child] = append(g.parents[child], parent)
	return nil
}

// Parents returns the direct dependencies of id.
func (g *Graph) Parents(id string) []string {
	return slices.Clone(g.parents[id])
}

// Children returns the direct dependents of id.
func (g *Graph) Children(id string) []string {
	return slices.Clone(g.children[id])
}

// TopologicalSort returns every node with dependencies first. Ties keep
// insertion order.
func (g *Graph) TopologicalSort() []string {
	indegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indegree[id] = len(g.parents[id])
	}

	out := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		for _, id := range g.order {
			if done[id] || indegree[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, c := range g.children[id] {
				indegree[c]--
			}
			break
		}
	}
	return out
}

// Downstream returns id and every node that depends on it, in topological
// order.
func (g *Graph) Downstream(id string) []string {
	return g.closure(id, g.children)
}

// Upstream returns id and every node it depends on, in topological order.
func (g *Graph) Upstream(id string) []string {
	return g.closure(id, g.parents)
}

func (g *Graph) closure(id string, next map[string][]string) []string {
	if !g.Has(id) {
		return nil
	}
	seen := map[string]bool{id: true}
	stack := []string{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range next[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, n := range g.TopologicalSort() {
		if seen[n] {
			out = append(out, n)
		}
	}
	return out
}
