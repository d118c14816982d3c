// Package network builds the proper-noun co-occurrence graph: one node per
// canonical proper noun, one weighted edge per pair of nouns sharing a
// passage, with centrality measures per node. The graph is derived data,
// rebuilt wholesale from the stored annotations on every run.
package network

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
	"github.com/kmatzaris/periegete/internal/textnorm"
)

// Node is one canonical proper noun with its centrality scores. A noun
// appearing in a single passage with no co-occurring noun is still a node,
// with zero degree and centrality; consumers must be able to enumerate the
// full noun inventory.
type Node struct {
	CanonicalForm string           `json:"canonical_form"`
	EntityType    model.EntityType `json:"entity_type"`
	Transcription string           `json:"transcription"`
	Component     int              `json:"component"`
	Degree        float64          `json:"degree"`
	Betweenness   float64          `json:"betweenness"`
	Eigenvector   float64          `json:"eigenvector"`
	PageRank      float64          `json:"pagerank"`
}

// Edge is one undirected co-occurrence link, weighted by the number of
// passages both nouns appear in
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Graph is the computed co-occurrence network
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"links"`
}

// Measure selects a centrality ranking
type Measure string

const (
	ByDegree      Measure = "degree"
	ByBetweenness Measure = "betweenness"
	ByEigenvector Measure = "eigenvector"
	ByPageRank    Measure = "pagerank"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
	powerIterations   = 200
)

// Build constructs the network from the stored proper-noun occurrences.
// Surface-form variants are merged by folded canonical form before any
// node is created. Edges below minCooccurrence are dropped; their nodes
// remain.
func Build(nouns []model.ProperNoun, minCooccurrence int) *Graph {
	if minCooccurrence < 1 {
		minCooccurrence = 1
	}

	type nodeKey struct {
		folded string
		etype  model.EntityType
	}

	// merge occurrences into canonical nodes
	display := make(map[nodeKey]Node)
	passages := make(map[string][]nodeKey) // passage id -> node keys, deduplicated
	for _, n := range nouns {
		key := nodeKey{folded: textnorm.Fold(n.CanonicalForm), etype: n.EntityType}
		if key.folded == "" {
			continue
		}

		if node, seen := display[key]; !seen {
			display[key] = Node{
				CanonicalForm: n.CanonicalForm,
				EntityType:    n.EntityType,
				Transcription: n.Transcription,
			}
		} else if n.CanonicalForm < node.CanonicalForm {
			// variants of the same folded form: keep the lexically first
			// spelling so reruns are reproducible
			node.CanonicalForm = n.CanonicalForm
			display[key] = node
		}

		found := false
		for _, existing := range passages[n.PassageID] {
			if existing == key {
				found = true
				break
			}
		}
		if !found {
			passages[n.PassageID] = append(passages[n.PassageID], key)
		}
	}

	// stable node ids by folded form then entity type
	keys := make([]nodeKey, 0, len(display))
	for k := range display {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].folded != keys[j].folded {
			return keys[i].folded < keys[j].folded
		}
		return keys[i].etype < keys[j].etype
	})
	index := make(map[nodeKey]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	// count shared passages per unordered pair
	weights := make(map[[2]int]float64)
	for _, present := range passages {
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				a, b := index[present[i]], index[present[j]]
				if a > b {
					a, b = b, a
				}
				weights[[2]int{a, b}]++
			}
		}
	}

	g := &Graph{Nodes: make([]Node, len(keys))}
	for i, k := range keys {
		g.Nodes[i] = display[k]
	}

	ug := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range g.Nodes {
		ug.AddNode(simple.Node(i))
	}
	for pair, w := range weights {
		if w < float64(minCooccurrence) {
			continue
		}
		a, b := int64(pair[0]), int64(pair[1])
		ug.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: w})

		g.Edges = append(g.Edges, Edge{
			Source: g.Nodes[pair[0]].CanonicalForm,
			Target: g.Nodes[pair[1]].CanonicalForm,
			Weight: w,
		})
		g.Nodes[pair[0]].Degree += w
		g.Nodes[pair[1]].Degree += w
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})

	assignComponents(g, weights, minCooccurrence)

	for id, v := range network.Betweenness(ug) {
		g.Nodes[id].Betweenness = v
	}
	if len(g.Nodes) > 0 {
		pageRank(g, weights, minCooccurrence)
		eigenvector(g, weights, minCooccurrence)
	}

	return g
}

// Value returns the node's score under the given measure
func (n Node) Value(m Measure) float64 {
	switch m {
	case ByBetweenness:
		return n.Betweenness
	case ByEigenvector:
		return n.Eigenvector
	case ByPageRank:
		return n.PageRank
	default:
		return n.Degree
	}
}

// Ranked returns the nodes ordered by the measure, descending, ties
// broken by canonical form for reproducibility
func (g *Graph) Ranked(m Measure) []Node {
	nodes := append([]Node{}, g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool {
		vi, vj := nodes[i].Value(m), nodes[j].Value(m)
		if vi != vj {
			return vi > vj
		}
		return nodes[i].CanonicalForm < nodes[j].CanonicalForm
	})
	return nodes
}

// Rows converts the graph into persistable centrality records
func (g *Graph) Rows() []store.CentralityRow {
	rows := make([]store.CentralityRow, len(g.Nodes))
	for i, n := range g.Nodes {
		rows[i] = store.CentralityRow{
			CanonicalForm: n.CanonicalForm,
			EntityType:    n.EntityType,
			Transcription: n.Transcription,
			Component:     n.Component,
			Degree:        n.Degree,
			Betweenness:   n.Betweenness,
			Eigenvector:   n.Eigenvector,
			PageRank:      n.PageRank,
		}
	}
	return rows
}

// assignComponents labels connected components by union-find over the
// retained edges
func assignComponents(g *Graph, weights map[[2]int]float64, minCooccurrence int) {
	parent := make([]int, len(g.Nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for pair, w := range weights {
		if w < float64(minCooccurrence) {
			continue
		}
		ra, rb := find(pair[0]), find(pair[1])
		if ra != rb {
			parent[ra] = rb
		}
	}

	next := 0
	labels := make(map[int]int)
	for i := range g.Nodes {
		root := find(i)
		label, ok := labels[root]
		if !ok {
			label = next
			labels[root] = label
			next++
		}
		g.Nodes[i].Component = label
	}
}

// pageRank computes weighted PageRank by power iteration. Rank flows along
// each edge in proportion to its weight relative to the source node's total
// incident weight; rank held by isolated nodes is redistributed uniformly.
func pageRank(g *Graph, weights map[[2]int]float64, minCooccurrence int) {
	n := len(g.Nodes)

	type link struct {
		to     int
		weight float64
	}
	out := make([][]link, n)
	strength := make([]float64, n)
	for pair, w := range weights {
		if w < float64(minCooccurrence) {
			continue
		}
		a, b := pair[0], pair[1]
		out[a] = append(out[a], link{b, w})
		out[b] = append(out[b], link{a, w})
		strength[a] += w
		strength[b] += w
	}

	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / float64(n)
	}

	base := (1 - pageRankDamping) / float64(n)
	for iter := 0; iter < powerIterations; iter++ {
		dangling := 0.0
		for i := range rank {
			next[i] = 0
			if strength[i] == 0 {
				dangling += rank[i]
			}
		}
		for i, links := range out {
			if strength[i] == 0 {
				continue
			}
			share := pageRankDamping * rank[i] / strength[i]
			for _, l := range links {
				next[l.to] += share * l.weight
			}
		}
		delta := 0.0
		for i := range next {
			next[i] += base + pageRankDamping*dangling/float64(n)
			delta += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if delta < float64(n)*pageRankTolerance {
			break
		}
	}

	for i, v := range rank {
		g.Nodes[i].PageRank = v
	}
}

// eigenvector computes eigenvector centrality by power iteration on the
// weighted adjacency matrix. Isolated nodes converge to zero.
func eigenvector(g *Graph, weights map[[2]int]float64, minCooccurrence int) {
	n := len(g.Nodes)
	adj := mat.NewDense(n, n, nil)
	hasEdge := false
	for pair, w := range weights {
		if w < float64(minCooccurrence) {
			continue
		}
		adj.Set(pair[0], pair[1], w)
		adj.Set(pair[1], pair[0], w)
		hasEdge = true
	}
	if !hasEdge {
		return
	}

	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, 1/float64(n))
	}

	next := mat.NewVecDense(n, nil)
	for iter := 0; iter < powerIterations; iter++ {
		next.MulVec(adj, v)
		norm := mat.Norm(next, 2)
		if norm == 0 {
			return
		}
		next.ScaleVec(1/norm, next)
		v, next = next, v
	}

	for i := 0; i < n; i++ {
		score := math.Abs(v.AtVec(i))
		if score < 1e-12 {
			score = 0
		}
		g.Nodes[i].Eigenvector = score
	}
}
