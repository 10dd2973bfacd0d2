package landmarks

import (
	"fmt"

	"plannerd/internal/strips"
)

// Node is a vertex of the landmark graph. Ordering edges run from parent
// to child, the parent to be achieved first. Adjacency is kept both as a
// map (for lookup and strength upgrades) and as an insertion-ordered slice
// so traversals are deterministic.
type Node struct {
	ID       int
	Landmark Landmark

	children    map[*Node]EdgeType
	parents     map[*Node]EdgeType
	childOrder  []*Node
	parentOrder []*Node
}

func newNode(l Landmark) *Node {
	return &Node{
		ID:       -1,
		Landmark: l,
		children: make(map[*Node]EdgeType),
		parents:  make(map[*Node]EdgeType),
	}
}

// Children returns the child nodes in edge insertion order. Callers must
// not modify the slice.
func (n *Node) Children() []*Node { return n.childOrder }

// Parents returns the parent nodes in edge insertion order. Callers must
// not modify the slice.
func (n *Node) Parents() []*Node { return n.parentOrder }

// ChildEdge returns the type of the edge to the given child, if present.
func (n *Node) ChildEdge(child *Node) (EdgeType, bool) {
	t, ok := n.children[child]
	return t, ok
}

// ParentEdge returns the type of the edge from the given parent, if present.
func (n *Node) ParentEdge(parent *Node) (EdgeType, bool) {
	t, ok := n.parents[parent]
	return t, ok
}

// Graph owns the landmark nodes and the fact lookups into them. Simple
// landmarks are indexed by their single fact, disjunctive landmarks by
// each disjunct.
type Graph struct {
	nodes          []*Node
	simple         map[strips.FactPair]*Node
	disjunctive    map[strips.FactPair]*Node
	numDisjunctive int
}

func NewGraph() *Graph {
	return &Graph{
		simple:      make(map[strips.FactPair]*Node),
		disjunctive: make(map[strips.FactPair]*Node),
	}
}

func (g *Graph) NumLandmarks() int   { return len(g.nodes) }
func (g *Graph) NumDisjunctive() int { return g.numDisjunctive }

// Nodes returns the nodes in insertion order. Callers must not modify the
// slice.
func (g *Graph) Nodes() []*Node { return g.nodes }

// AddLandmark inserts a landmark and returns its node. Adding a duplicate
// simple landmark or a conjunctive landmark is a programming error.
func (g *Graph) AddLandmark(l Landmark) *Node {
	if l.Conjunctive {
		panic("landmarks: conjunctive landmarks are not supported")
	}
	node := newNode(l)
	if l.Disjunctive {
		for _, f := range l.Facts {
			g.disjunctive[f] = node
		}
		g.numDisjunctive++
	} else {
		f := l.Facts[0]
		if _, ok := g.simple[f]; ok {
			panic(fmt.Sprintf("landmarks: duplicate simple landmark %s", f))
		}
		g.simple[f] = node
	}
	g.nodes = append(g.nodes, node)
	return node
}

// SimpleNode returns the node holding the given fact as a simple landmark.
func (g *Graph) SimpleNode(f strips.FactPair) (*Node, bool) {
	n, ok := g.simple[f]
	return n, ok
}

func (g *Graph) ContainsSimple(f strips.FactPair) bool {
	_, ok := g.simple[f]
	return ok
}

// DisjunctiveNode returns the node of a disjunctive landmark containing
// the fact.
func (g *Graph) DisjunctiveNode(f strips.FactPair) (*Node, bool) {
	n, ok := g.disjunctive[f]
	return n, ok
}

// ContainsFact reports whether the fact appears in any landmark, simple or
// disjunctive.
func (g *Graph) ContainsFact(f strips.FactPair) bool {
	if _, ok := g.simple[f]; ok {
		return true
	}
	_, ok := g.disjunctive[f]
	return ok
}

// AddEdge inserts an ordering edge from parent to child. If the edge
// already exists the stronger type wins.
func (g *Graph) AddEdge(from, to *Node, t EdgeType) {
	if from == to {
		panic("landmarks: ordering edge from a node to itself")
	}
	if existing, ok := from.children[to]; ok {
		if existing < t {
			from.children[to] = t
			to.parents[from] = t
		}
		return
	}
	from.children[to] = t
	from.childOrder = append(from.childOrder, to)
	to.parents[from] = t
	to.parentOrder = append(to.parentOrder, from)
}

func (g *Graph) removeEdge(from, to *Node) {
	delete(from.children, to)
	delete(to.parents, from)
	from.childOrder = removeNode(from.childOrder, to)
	to.parentOrder = removeNode(to.parentOrder, from)
}

// RemoveNodeIf drops every node the predicate matches, along with all
// edges touching it and its fact lookups.
func (g *Graph) RemoveNodeIf(pred func(*Node) bool) {
	doomed := make(map[*Node]bool)
	for _, n := range g.nodes {
		if pred(n) {
			doomed[n] = true
		}
	}
	if len(doomed) == 0 {
		return
	}
	for n := range doomed {
		for _, p := range n.parentOrder {
			delete(p.children, n)
			p.childOrder = removeNode(p.childOrder, n)
		}
		for _, c := range n.childOrder {
			delete(c.parents, n)
			c.parentOrder = removeNode(c.parentOrder, n)
		}
		if n.Landmark.Disjunctive {
			for _, f := range n.Landmark.Facts {
				delete(g.disjunctive, f)
			}
			g.numDisjunctive--
		} else {
			delete(g.simple, n.Landmark.Facts[0])
		}
	}
	kept := g.nodes[:0]
	for _, n := range g.nodes {
		if !doomed[n] {
			kept = append(kept, n)
		}
	}
	g.nodes = kept
}

// SetIDs assigns sequential ids in node insertion order.
func (g *Graph) SetIDs() {
	for i, n := range g.nodes {
		n.ID = i
	}
}

func removeNode(s []*Node, n *Node) []*Node {
	for i, e := range s {
		if e == n {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
