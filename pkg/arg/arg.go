// Package arg implements the abstract reachability graph: a forest of
// abstract states connected by actions, with a covering relation that
// records when one node's state is included in another's.
//
// Nodes live in an arena and refer to each other by NodeID, so parent
// links, children and covering links are plain indices.
package arg

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsoundCover reports a covering that would make the ARG cover
	// itself: the covering node descends from the covered one, is the
	// node itself, or is covered.
	ErrUnsoundCover = errors.New("unsound covering")

	// ErrUnknownNode reports an id outside the arena.
	ErrUnknownNode = errors.New("unknown node")
)

// NodeID indexes a node in its ARG.
type NodeID int

// NoNode is the absent node.
const NoNode NodeID = -1

// Node is a vertex of the ARG. Only the expanded flag and the covering
// link change after creation.
type Node[S, A any] struct {
	id        NodeID
	state     S
	inEdge    int
	outEdges  []int
	coveredBy NodeID
	covers    []NodeID
	expanded  bool
	target    bool
	depth     int
}

func (n *Node[S, A]) ID() NodeID       { return n.id }
func (n *Node[S, A]) State() S         { return n.state }
func (n *Node[S, A]) Depth() int       { return n.depth }
func (n *Node[S, A]) IsRoot() bool     { return n.inEdge < 0 }
func (n *Node[S, A]) IsTarget() bool   { return n.target }
func (n *Node[S, A]) IsExpanded() bool { return n.expanded }
func (n *Node[S, A]) IsCovered() bool  { return n.coveredBy != NoNode }

// CoveredBy returns the covering node, or NoNode.
func (n *Node[S, A]) CoveredBy() NodeID { return n.coveredBy }

// Covers returns the nodes covered by n.
func (n *Node[S, A]) Covers() []NodeID { return n.covers }

// IsLeaf reports whether n has no children.
func (n *Node[S, A]) IsLeaf() bool { return len(n.outEdges) == 0 }

// IsFeasibleLeaf reports whether n still has to be processed: neither
// expanded, covered nor a target.
func (n *Node[S, A]) IsFeasibleLeaf() bool { return !n.expanded && !n.IsCovered() && !n.target }

// Edge connects a parent to a child through an action.
type Edge[A any] struct {
	Source NodeID
	Target NodeID
	Action A
}

// ARG is the arena of nodes and edges. Nodes and edges are only appended.
type ARG[S, A any] struct {
	nodes []*Node[S, A]
	edges []*Edge[A]
	roots []NodeID
}

func New[S, A any]() *ARG[S, A] { return &ARG[S, A]{} }

func (g *ARG[S, A]) add(state S, inEdge int, depth int, target bool) *Node[S, A] {
	n := &Node[S, A]{
		id:        NodeID(len(g.nodes)),
		state:     state,
		inEdge:    inEdge,
		coveredBy: NoNode,
		target:    target,
		depth:     depth,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// CreateRoot adds a root node.
func (g *ARG[S, A]) CreateRoot(state S, target bool) *Node[S, A] {
	n := g.add(state, -1, 0, target)
	g.roots = append(g.roots, n.id)
	return n
}

// CreateSucc adds a child of parent reached through action.
func (g *ARG[S, A]) CreateSucc(parent NodeID, action A, state S, target bool) (*Node[S, A], error) {
	p, err := g.lookup(parent)
	if err != nil {
		return nil, err
	}
	e := &Edge[A]{Source: parent, Action: action}
	g.edges = append(g.edges, e)
	idx := len(g.edges) - 1
	n := g.add(state, idx, p.depth+1, target)
	e.Target = n.id
	p.outEdges = append(p.outEdges, idx)
	return n, nil
}

func (g *ARG[S, A]) lookup(id NodeID) (*Node[S, A], error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return g.nodes[id], nil
}

// Node returns the node with the given id; it panics on unknown ids.
func (g *ARG[S, A]) Node(id NodeID) *Node[S, A] { return g.nodes[id] }

// Nodes returns all nodes in creation order.
func (g *ARG[S, A]) Nodes() []*Node[S, A] { return g.nodes }

func (g *ARG[S, A]) Edges() []*Edge[A] { return g.edges }

func (g *ARG[S, A]) Roots() []NodeID { return g.roots }

// Parent returns the parent of id, or NoNode for roots.
func (g *ARG[S, A]) Parent(id NodeID) NodeID {
	n := g.nodes[id]
	if n.inEdge < 0 {
		return NoNode
	}
	return g.edges[n.inEdge].Source
}

// InEdge returns the edge into id; ok is false for roots.
func (g *ARG[S, A]) InEdge(id NodeID) (*Edge[A], bool) {
	n := g.nodes[id]
	if n.inEdge < 0 {
		return nil, false
	}
	return g.edges[n.inEdge], true
}

// OutEdges returns the edges leaving id in creation order.
func (g *ARG[S, A]) OutEdges(id NodeID) []*Edge[A] {
	n := g.nodes[id]
	out := make([]*Edge[A], len(n.outEdges))
	for i, e := range n.outEdges {
		out[i] = g.edges[e]
	}
	return out
}

// Children returns the children of id in creation order.
func (g *ARG[S, A]) Children(id NodeID) []NodeID {
	n := g.nodes[id]
	out := make([]NodeID, len(n.outEdges))
	for i, e := range n.outEdges {
		out[i] = g.edges[e].Target
	}
	return out
}

// IsAncestor reports whether a lies on the path from a root to n,
// including n itself.
func (g *ARG[S, A]) IsAncestor(a, n NodeID) bool {
	for cur := n; cur != NoNode; cur = g.Parent(cur) {
		if cur == a {
			return true
		}
	}
	return false
}

// SetExpanded marks id as expanded.
func (g *ARG[S, A]) SetExpanded(id NodeID) { g.nodes[id].expanded = true }

// Cover records that the state of covered is included in the state of
// covering. Inclusion is the caller's obligation; Cover rejects coverings
// that would be circular.
func (g *ARG[S, A]) Cover(covered, covering NodeID) error {
	n, err := g.lookup(covered)
	if err != nil {
		return err
	}
	m, err := g.lookup(covering)
	if err != nil {
		return err
	}
	switch {
	case g.IsAncestor(covered, covering):
		return fmt.Errorf("node %d descends from %d: %w", covering, covered, ErrUnsoundCover)
	case m.IsCovered():
		return fmt.Errorf("node %d is covered itself: %w", covering, ErrUnsoundCover)
	}
	if n.IsCovered() {
		g.Uncover(covered)
	}
	n.coveredBy = covering
	m.covers = append(m.covers, covered)
	return nil
}

// Uncover removes the covering of id, if any.
func (g *ARG[S, A]) Uncover(id NodeID) {
	n := g.nodes[id]
	if !n.IsCovered() {
		return
	}
	m := g.nodes[n.coveredBy]
	for i, c := range m.covers {
		if c == id {
			m.covers = append(m.covers[:i], m.covers[i+1:]...)
			break
		}
	}
	n.coveredBy = NoNode
}

// TargetNodes returns the target nodes in creation order.
func (g *ARG[S, A]) TargetNodes() []NodeID {
	var out []NodeID
	for _, n := range g.nodes {
		if n.target {
			out = append(out, n.id)
		}
	}
	return out
}

// IsSafe reports whether the ARG has no target node.
func (g *ARG[S, A]) IsSafe() bool {
	for _, n := range g.nodes {
		if n.target {
			return false
		}
	}
	return true
}

// IsComplete reports whether every non-target node is expanded or
// covered.
func (g *ARG[S, A]) IsComplete() bool {
	for _, n := range g.nodes {
		if n.IsFeasibleLeaf() {
			return false
		}
	}
	return true
}

// TraceTo returns the states and actions on the path from a root to id.
func (g *ARG[S, A]) TraceTo(id NodeID) ([]S, []A) {
	var states []S
	var actions []A
	for cur := id; ; {
		n := g.nodes[cur]
		states = append(states, n.state)
		if n.inEdge < 0 {
			break
		}
		e := g.edges[n.inEdge]
		actions = append(actions, e.Action)
		cur = e.Source
	}
	reverse(states)
	reverse(actions)
	return states, actions
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
