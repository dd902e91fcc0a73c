package graph

import (
	"sort"

	"github.com/pkg/errors"

	"bitbucket.org/Davydov/godng/peel"
)

// family groups children sharing the same parents and transmission
// type: trios have two parents, pairs one.
type family struct {
	parents  []int
	children []int
}

// findFamilies groups non-founders by their parents in the order of
// first appearance.
func findFamilies(ts []Transition) (fams []family) {
	index := make(map[[2]int]int)
	for i, t := range ts {
		if t.Type == Founder {
			continue
		}
		key := [2]int{t.Parent1, t.Parent2}
		f, ok := index[key]
		if !ok {
			f = len(fams)
			index[key] = f
			parents := []int{t.Parent1}
			if t.Parent2 >= 0 {
				parents = append(parents, t.Parent2)
			}
			fams = append(fams, family{parents: parents})
		}
		fams[f].children = append(fams[f].children, i)
	}
	return
}

// program is a compiled peeling schedule.
type program struct {
	ops      []peel.Op
	families []peel.Family
	roots    []int
	cleanup  []int
}

// peelingProgram orders families for peeling. Nodes and families form
// a bipartite graph which must be a forest. In every component the
// root is the non-library node of minimum eccentricity; each family is
// peeled towards its member closest to the root, farthest families
// first.
func peelingProgram(nNodes, firstLibrary int, fams []family) (*program, error) {
	nVert := nNodes + len(fams)
	adj := make([][]int, nVert)
	for f, fam := range fams {
		fv := nNodes + f
		for _, m := range append(append([]int(nil), fam.parents...), fam.children...) {
			adj[fv] = append(adj[fv], m)
			adj[m] = append(adj[m], fv)
		}
	}

	// bfs returns distances from the source and visited vertices
	dist := make([]int, nVert)
	bfs := func(src int) []int {
		for i := range dist {
			dist[i] = -1
		}
		dist[src] = 0
		queue := []int{src}
		for k := 0; k < len(queue); k++ {
			v := queue[k]
			for _, u := range adj[v] {
				if dist[u] < 0 {
					dist[u] = dist[v] + 1
					queue = append(queue, u)
				}
			}
		}
		return queue
	}

	p := &program{}
	component := make([]int, nVert)
	for i := range component {
		component[i] = -1
	}
	var comps [][]int
	for v := 0; v < nNodes; v++ {
		if component[v] >= 0 {
			continue
		}
		members := bfs(v)
		for _, u := range members {
			component[u] = len(comps)
		}
		comps = append(comps, members)
	}

	for _, members := range comps {
		edges := 0
		for _, u := range members {
			if u >= nNodes {
				edges += len(adj[u])
			}
		}
		if edges != len(members)-1 {
			return nil, errors.New("pedigree has a loop")
		}
		root, best := -1, nVert
		sorted := append([]int(nil), members...)
		sort.Ints(sorted)
		for _, u := range sorted {
			if u >= firstLibrary {
				continue
			}
			ecc := 0
			for _, w := range bfs(u) {
				if dist[w] > ecc {
					ecc = dist[w]
				}
			}
			if ecc < best {
				root, best = u, ecc
			}
		}
		if root < 0 {
			return nil, errors.New("component without non-library nodes")
		}
		p.roots = append(p.roots, root)
	}
	// distances from roots and family pivots
	depth := make([]int, nVert)
	pivot := make([]int, len(fams))
	for _, r := range p.roots {
		for _, u := range bfs(r) {
			depth[u] = dist[u]
			if u >= nNodes {
				for _, m := range adj[u] {
					if dist[m] == dist[u]-1 {
						pivot[u-nNodes] = m
					}
				}
			}
		}
	}
	order := make([]int, len(fams))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return depth[nNodes+order[i]] > depth[nNodes+order[j]]
	})

	written := make([]bool, nNodes)
	for _, f := range order {
		fam := fams[f]
		pv := pivot[f]
		var op peel.Op
		var members []int
		if len(fam.parents) == 1 {
			par := fam.parents[0]
			if pv == par {
				op = peel.Up
				members = append([]int{par}, fam.children...)
			} else {
				op = peel.Down
				members = append([]int{par, pv}, without(fam.children, pv)...)
			}
		} else {
			d, m := fam.parents[0], fam.parents[1]
			switch pv {
			case d:
				op = peel.ToFather
				members = append([]int{d, m}, fam.children...)
			case m:
				op = peel.ToMother
				members = append([]int{d, m}, fam.children...)
			default:
				op = peel.ToChild
				members = append([]int{d, m, pv}, without(fam.children, pv)...)
			}
		}
		if op.WritesLower() && !written[pv] {
			op = op.Fast()
			written[pv] = true
		}
		p.ops = append(p.ops, op)
		p.families = append(p.families, peel.Family{Index: f, Members: members})
	}
	for v := 0; v < firstLibrary; v++ {
		if !written[v] {
			p.cleanup = append(p.cleanup, v)
		}
	}
	return p, nil
}

func without(s []int, x int) (res []int) {
	for _, v := range s {
		if v != x {
			res = append(res, v)
		}
	}
	return
}
