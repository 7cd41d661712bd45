package runs

// Neighborhood returns the induced subgraph within depth hops of seed.
// Edges are treated as undirected for traversal: each hop expands the
// frontier to every node one edge away, whichever endpoint it is on.
// A seed that does not exist in the graph yields an empty subgraph.
func (g *Graph) Neighborhood(seed string, depth int) Graph {
	visited := map[string]bool{seed: true}
	frontier := map[string]bool{seed: true}

	for hop := 0; hop < depth; hop++ {
		next := make(map[string]bool)
		for _, e := range g.Edges {
			src, dst := e.Source(), e.Target()
			if frontier[src] && !visited[dst] {
				next[dst] = true
			}
			if frontier[dst] && !visited[src] {
				next[src] = true
			}
		}
		if len(next) == 0 {
			break
		}
		for id := range next {
			visited[id] = true
		}
		frontier = next
	}

	// Induced subgraph: every visited node, and only edges whose both
	// endpoints were visited.
	var out Graph
	for _, n := range g.Nodes {
		if visited[n.ID()] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if visited[e.Source()] && visited[e.Target()] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
