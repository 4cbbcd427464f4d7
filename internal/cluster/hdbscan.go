// Package cluster implements density-based clustering (HDBSCAN) over binary
// feature vectors: mutual-reachability distances, a minimum spanning tree,
// a condensed cluster tree, and excess-of-mass cluster selection. Label −1
// marks noise points that could not be assigned to any cluster.
package cluster

import (
	"errors"
	"fmt"
	"sort"
)

// Noise is the label assigned to points outside every selected cluster.
const Noise = -1

// lambdaMax stands in for 1/0 when a merge happens at distance zero, keeping
// the stability arithmetic finite.
const lambdaMax = 1e12

// ErrEmptyInput is returned when there are no feature rows to cluster.
var ErrEmptyInput = errors.New("cluster: empty feature matrix")

// Config carries the clustering parameters. Zero values mean the documented
// defaults (minimum cluster size 5, minimum samples 3, jaccard metric).
type Config struct {
	MinClusterSize int
	MinSamples     int
	Metric         string
}

// Engine adapts Run to the tool layer's Clusterer interface.
type Engine struct{}

// Cluster runs HDBSCAN with the given parameters.
func (Engine) Cluster(features [][]float64, minClusterSize, minSamples int, metric string) ([]int, error) {
	return Run(features, Config{
		MinClusterSize: minClusterSize,
		MinSamples:     minSamples,
		Metric:         metric,
	})
}

// Run clusters the feature rows and returns one label per row, in input
// order. Rows must all have the same length.
func Run(features [][]float64, cfg Config) ([]int, error) {
	n := len(features)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("cluster: row %d has %d features, want %d", i, len(row), width)
		}
	}

	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = 5
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 3
	}
	dist, err := metricByName(cfg.Metric)
	if err != nil {
		return nil, err
	}

	// Pairwise distances.
	d := make([][]float64, n)
	maxDist := 0.0
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := dist(features[i], features[j])
			d[i][j] = v
			d[j][i] = v
			if v > maxDist {
				maxDist = v
			}
		}
	}

	// Degenerate boundary: every row identical. Density clustering has no
	// structure to find; the whole input is one cluster with zero noise.
	if maxDist == 0 {
		labels := make([]int, n)
		return labels, nil
	}

	core := coreDistances(d, cfg.MinSamples)
	edges := minimumSpanningTree(d, core)
	tree := singleLinkage(edges, n)
	condensed := condense(tree, n, cfg.MinClusterSize)
	selected := selectExcessOfMass(condensed)
	return assignLabels(condensed, selected, n), nil
}

// coreDistances returns, per point, the distance to its minSamples-th
// nearest neighbour (self excluded).
func coreDistances(d [][]float64, minSamples int) []float64 {
	n := len(d)
	k := minSamples
	if k > n-1 {
		k = n - 1
	}
	core := make([]float64, n)
	buf := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		buf = buf[:0]
		for j := 0; j < n; j++ {
			if j != i {
				buf = append(buf, d[i][j])
			}
		}
		sort.Float64s(buf)
		core[i] = buf[k-1]
	}
	return core
}

type edge struct {
	u, v int
	w    float64
}

// minimumSpanningTree builds an MST over the mutual-reachability graph:
// mr(a,b) = max(core[a], core[b], d(a,b)). Prim's algorithm, O(n²).
func minimumSpanningTree(d [][]float64, core []float64) []edge {
	n := len(d)
	reach := func(a, b int) float64 {
		w := d[a][b]
		if core[a] > w {
			w = core[a]
		}
		if core[b] > w {
			w = core[b]
		}
		return w
	}

	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = -1
	}
	inTree[0] = true
	for j := 1; j < n; j++ {
		best[j] = reach(0, j)
		from[j] = 0
	}

	edges := make([]edge, 0, n-1)
	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] || best[j] < 0 {
				continue
			}
			if next == -1 || best[j] < best[next] {
				next = j
			}
		}
		edges = append(edges, edge{u: from[next], v: next, w: best[next]})
		inTree[next] = true
		for j := 0; j < n; j++ {
			if !inTree[j] {
				if w := reach(next, j); w < best[j] {
					best[j] = w
					from[j] = next
				}
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].w != edges[j].w {
			return edges[i].w < edges[j].w
		}
		if edges[i].u != edges[j].u {
			return edges[i].u < edges[j].u
		}
		return edges[i].v < edges[j].v
	})
	return edges
}

// linkNode is one merge in the single-linkage dendrogram. Leaves are point
// indices 0..n-1; internal nodes are n..2n-2 with the root last.
type linkNode struct {
	left, right int
	w           float64
	size        int
}

// singleLinkage folds the sorted MST edges into a dendrogram using
// union-find.
func singleLinkage(edges []edge, n int) []linkNode {
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	// comp maps a union-find root to its current dendrogram node.
	comp := make([]int, 2*n-1)
	for i := range comp {
		comp[i] = i
	}
	sizes := make([]int, 2*n-1)
	for i := 0; i < n; i++ {
		sizes[i] = 1
	}

	nodes := make([]linkNode, 0, n-1)
	next := n
	for _, e := range edges {
		ru, rv := find(e.u), find(e.v)
		lu, lv := comp[ru], comp[rv]
		nodes = append(nodes, linkNode{
			left:  lu,
			right: lv,
			w:     e.w,
			size:  sizes[lu] + sizes[lv],
		})
		sizes[next] = sizes[lu] + sizes[lv]
		parent[ru] = next
		parent[rv] = next
		comp[next] = next
		next++
	}
	return nodes
}

// condNode is one cluster in the condensed tree. Node 0 is the root.
type condNode struct {
	parent      int
	birthLambda float64
	stability   float64
	children    []int
}

// condensedTree pairs the cluster nodes with each point's exit record.
type condensedTree struct {
	nodes       []condNode
	pointExit   []int     // condensed node each point fell out of
	pointLambda []float64 // lambda at which it fell out
}

// condense walks the dendrogram top-down. Splits where both sides hold at
// least minClusterSize points create new condensed clusters; smaller sides
// simply shed their points at the split's lambda.
func condense(tree []linkNode, n, minClusterSize int) *condensedTree {
	ct := &condensedTree{
		nodes:       []condNode{{parent: -1, birthLambda: 0}},
		pointExit:   make([]int, n),
		pointLambda: make([]float64, n),
	}
	if len(tree) == 0 {
		// Single point: it exits the root immediately.
		for p := 0; p < n; p++ {
			ct.pointExit[p] = 0
			ct.pointLambda[p] = lambdaMax
		}
		return ct
	}

	nodeSize := func(id int) int {
		if id < n {
			return 1
		}
		return tree[id-n].size
	}

	// leaves collects the point indices under a dendrogram node.
	leaves := func(id int) []int {
		var pts []int
		stack := []int{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur < n {
				pts = append(pts, cur)
				continue
			}
			node := tree[cur-n]
			stack = append(stack, node.left, node.right)
		}
		return pts
	}

	shed := func(dendroID, condensedID int, lambda float64) {
		for _, p := range leaves(dendroID) {
			ct.pointExit[p] = condensedID
			ct.pointLambda[p] = lambda
		}
	}

	type frame struct {
		dendroID    int
		condensedID int
	}
	root := n + len(tree) - 1
	stack := []frame{{dendroID: root, condensedID: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := tree[f.dendroID-n]
		lambda := lambdaMax
		if node.w > 0 {
			lambda = 1 / node.w
		}

		leftBig := nodeSize(node.left) >= minClusterSize
		rightBig := nodeSize(node.right) >= minClusterSize

		switch {
		case leftBig && rightBig:
			for _, child := range []int{node.left, node.right} {
				childID := len(ct.nodes)
				ct.nodes = append(ct.nodes, condNode{parent: f.condensedID, birthLambda: lambda})
				ct.nodes[f.condensedID].children = append(ct.nodes[f.condensedID].children, childID)
				if child < n {
					// Cannot happen: a single point never reaches minClusterSize ≥ 2.
					shed(child, childID, lambda)
					continue
				}
				stack = append(stack, frame{dendroID: child, condensedID: childID})
			}
		case leftBig:
			shed(node.right, f.condensedID, lambda)
			stack = append(stack, frame{dendroID: node.left, condensedID: f.condensedID})
		case rightBig:
			shed(node.left, f.condensedID, lambda)
			stack = append(stack, frame{dendroID: node.right, condensedID: f.condensedID})
		default:
			shed(node.left, f.condensedID, lambda)
			shed(node.right, f.condensedID, lambda)
		}
	}

	// Stability: Σ over points of (exit lambda − birth lambda).
	for p := 0; p < n; p++ {
		node := ct.pointExit[p]
		ct.nodes[node].stability += ct.pointLambda[p] - ct.nodes[node].birthLambda
	}
	return ct
}

// selectExcessOfMass picks the flat clustering: a cluster is selected when
// its own stability exceeds the combined stability of its selected
// descendants. The root is never selected, since a clustering that puts every
// point in one cluster carries no information (the all-identical input is
// handled before the tree is built).
func selectExcessOfMass(ct *condensedTree) []bool {
	m := len(ct.nodes)
	selected := make([]bool, m)
	subtree := make([]float64, m)

	var deselect func(int)
	deselect = func(id int) {
		for _, c := range ct.nodes[id].children {
			selected[c] = false
			deselect(c)
		}
	}

	for id := m - 1; id >= 1; id-- {
		node := ct.nodes[id]
		childSum := 0.0
		for _, c := range node.children {
			childSum += subtree[c]
		}
		if len(node.children) == 0 || node.stability >= childSum {
			selected[id] = true
			subtree[id] = node.stability
			deselect(id)
		} else {
			subtree[id] = childSum
		}
	}
	return selected
}

// assignLabels maps each point to the nearest selected ancestor of its exit
// cluster, or Noise when none is selected. Labels are renumbered 0..k−1 in
// condensed-tree order.
func assignLabels(ct *condensedTree, selected []bool, n int) []int {
	relabel := make(map[int]int)
	for id, sel := range selected {
		if sel {
			relabel[id] = len(relabel)
		}
	}

	labels := make([]int, n)
	for p := 0; p < n; p++ {
		labels[p] = Noise
		for id := ct.pointExit[p]; id >= 0; id = ct.nodes[id].parent {
			if selected[id] {
				labels[p] = relabel[id]
				break
			}
		}
	}
	return labels
}
