package regalloc

import "log/slog"

// InterferenceGraph represents the web interference graph.
// Two webs interfere if their variables are live at the same instruction.
type InterferenceGraph struct {
	// Nodes are web names
	Nodes VarSet
	// Edges maps each web to its interfering neighbors
	Edges map[string]VarSet
}

// NewInterferenceGraph creates an empty interference graph
func NewInterferenceGraph() *InterferenceGraph {
	return &InterferenceGraph{
		Nodes: NewVarSet(),
		Edges: make(map[string]VarSet),
	}
}

// AddNode adds a web to the graph
func (g *InterferenceGraph) AddNode(n string) {
	g.Nodes.Add(n)
	if g.Edges[n] == nil {
		g.Edges[n] = NewVarSet()
	}
}

// AddEdge adds an interference edge between two webs
func (g *InterferenceGraph) AddEdge(a, b string) {
	if a == b {
		return // No self-edges
	}
	g.AddNode(a)
	g.AddNode(b)
	g.Edges[a].Add(b)
	g.Edges[b].Add(a)
}

// HasEdge returns true if there is an interference edge
func (g *InterferenceGraph) HasEdge(a, b string) bool {
	if edges, ok := g.Edges[a]; ok {
		return edges.Contains(b)
	}
	return false
}

// Degree returns the number of neighbors of a web
func (g *InterferenceGraph) Degree(n string) int {
	return len(g.Edges[n])
}

// Neighbors returns the interfering neighbors of a web
func (g *InterferenceGraph) Neighbors(n string) VarSet {
	if edges, ok := g.Edges[n]; ok {
		return edges.Copy()
	}
	return NewVarSet()
}

// RemoveNode removes a web and its edges from the graph
func (g *InterferenceGraph) RemoveNode(n string) {
	for neighbor := range g.Edges[n] {
		delete(g.Edges[neighbor], n)
	}
	delete(g.Nodes, n)
	delete(g.Edges, n)
}

// Copy returns an independent copy of the graph
func (g *InterferenceGraph) Copy() *InterferenceGraph {
	c := NewInterferenceGraph()
	for n := range g.Nodes {
		c.AddNode(n)
	}
	for n, edges := range g.Edges {
		c.Edges[n] = edges.Copy()
	}
	return c
}

// BuildInterferenceGraph adds an edge between every pair of webs whose
// instruction sets intersect
func BuildInterferenceGraph(webs Webs) *InterferenceGraph {
	g := NewInterferenceGraph()
	names := webs.Names()
	for _, n := range names {
		g.AddNode(n)
	}

	for i, a := range names {
		for _, b := range names[i+1:] {
			if webs[a].Instrs.Intersects(webs[b].Instrs) {
				g.AddEdge(a, b)
				slog.Debug("interference edge", "a", a, "b", b)
			}
		}
	}
	return g
}
