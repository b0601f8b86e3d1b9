package arg

import "fmt"

// Stats summarises the shape of an ARG. MeanBranching is the mean number
// of children of expanded nodes.
type Stats struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	Targets       int     `json:"targets"`
	Covered       int     `json:"covered"`
	Depth         int     `json:"depth"`
	MeanBranching float64 `json:"mean_branching"`
}

func (s Stats) String() string {
	return fmt.Sprintf("nodes=%d edges=%d targets=%d covered=%d depth=%d branching=%.2f",
		s.Nodes, s.Edges, s.Targets, s.Covered, s.Depth, s.MeanBranching)
}

// Size is the number of nodes.
func (g *ARG[S, A]) Size() int { return len(g.nodes) }

// Depth is the largest node depth, or -1 for an empty ARG.
func (g *ARG[S, A]) Depth() int {
	d := -1
	for _, n := range g.nodes {
		d = max(d, n.depth)
	}
	return d
}

// Stats computes the summary of g.
func (g *ARG[S, A]) Stats() Stats {
	s := Stats{Nodes: len(g.nodes), Edges: len(g.edges), Depth: g.Depth()}
	expanded := 0
	children := 0
	for _, n := range g.nodes {
		if n.target {
			s.Targets++
		}
		if n.IsCovered() {
			s.Covered++
		}
		if n.expanded {
			expanded++
			children += len(n.outEdges)
		}
	}
	if expanded > 0 {
		s.MeanBranching = float64(children) / float64(expanded)
	}
	return s
}
