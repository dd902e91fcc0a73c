package graph

import (
	"fmt"

	"github.com/pkg/errors"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/readgroup"
	"bitbucket.org/Davydov/godng/tree"
)

type vertexKind int

const (
	germlineVertex vertexKind = iota
	somaticVertex
	libraryVertex
)

type edgeType int

const (
	germlineEdge edgeType = iota
	somaticEdge
	libraryEdge
)

// vertex of the pedigree graph. Somatic and library vertices belong to
// the germline vertex owner.
type vertex struct {
	label   string
	name    string
	named   bool
	kind    vertexKind
	sex     pedigree.Sex
	ploidy  genotype.Ploidy
	owner   int
	library int
	removed bool
}

// edge from parent to child. For germline edges fromFather tells which
// parent column the edge came from.
type edge struct {
	parent, child int
	typ           edgeType
	length        float64
	fromFather    bool
	removed       bool
}

// pedGraph is the pedigree graph during construction. Every
// construction step returns a modified copy.
type pedGraph struct {
	vertices []vertex
	edges    []edge
}

func (g *pedGraph) clone() *pedGraph {
	return &pedGraph{
		vertices: append([]vertex(nil), g.vertices...),
		edges:    append([]edge(nil), g.edges...),
	}
}

func (g *pedGraph) addVertex(v vertex) int {
	g.vertices = append(g.vertices, v)
	return len(g.vertices) - 1
}

func (g *pedGraph) addEdge(e edge) {
	g.edges = append(g.edges, e)
}

// parentEdges returns indices of live edges into v.
func (g *pedGraph) parentEdges(v int) (res []int) {
	for i, e := range g.edges {
		if !e.removed && e.child == v {
			res = append(res, i)
		}
	}
	return
}

// childEdges returns indices of live edges out of v.
func (g *pedGraph) childEdges(v int) (res []int) {
	for i, e := range g.edges {
		if !e.removed && e.parent == v {
			res = append(res, i)
		}
	}
	return
}

// removeVertex removes a vertex with all its edges.
func (g *pedGraph) removeVertex(v int) {
	g.vertices[v].removed = true
	for i, e := range g.edges {
		if e.parent == v || e.child == v {
			g.edges[i].removed = true
		}
	}
}

// live returns indices of vertices of a kind which were not removed.
func (g *pedGraph) live(kind vertexKind) (res []int) {
	for i, v := range g.vertices {
		if !v.removed && v.kind == kind {
			res = append(res, i)
		}
	}
	return
}

// parsePedigree creates germline vertices and edges for individuals
// and somatic vertices for their sample trees.
func parsePedigree(ped *pedigree.Pedigree) (*pedGraph, error) {
	g := &pedGraph{}
	ids := make(map[string]int, ped.Len())
	for _, m := range ped.Members {
		ids[m.ID] = g.addVertex(vertex{
			label:   "GL-" + m.ID,
			name:    m.ID,
			named:   true,
			kind:    germlineVertex,
			sex:     m.Sex,
			owner:   -1,
			library: -1,
		})
	}
	for _, m := range ped.Members {
		child := ids[m.ID]
		if m.Father != "" && m.Father == m.Mother {
			return nil, errors.Errorf("individual %s has the same father and mother", m.ID)
		}
		for _, p := range []struct {
			id     string
			father bool
		}{{m.Father, true}, {m.Mother, false}} {
			if p.id == "" {
				continue
			}
			parent, ok := ids[p.id]
			if !ok {
				return nil, errors.Errorf("parent %s of %s is not in the pedigree", p.id, m.ID)
			}
			sex := g.vertices[parent].sex
			if (p.father && sex == pedigree.Female) || (!p.father && sex == pedigree.Male) {
				return nil, errors.Errorf("parent %s of %s has inconsistent sex (%s)", p.id, m.ID, sex)
			}
			g.addEdge(edge{parent: parent, child: child, typ: germlineEdge, length: 1, fromFather: p.father})
		}
	}

	samples := make(map[string]bool)
	for _, m := range ped.Members {
		owner := ids[m.ID]
		if m.Samples == "" {
			// a single sample identical to the germline
			v := g.addVertex(vertex{label: "SM-" + m.ID, name: m.ID, named: true, kind: somaticVertex, sex: m.Sex, owner: owner, library: -1})
			g.addEdge(edge{parent: owner, child: v, typ: somaticEdge, length: 0})
			if samples[m.ID] {
				return nil, errors.Errorf("duplicate sample %s", m.ID)
			}
			samples[m.ID] = true
			continue
		}
		t, err := tree.Parse(m.Samples)
		if err != nil {
			return nil, errors.Wrapf(err, "sample tree of %s", m.ID)
		}
		index := make(map[*tree.Node]int, t.NNodes())
		for _, node := range t.Nodes() {
			v := vertex{name: node.Name, named: node.Name != "", kind: somaticVertex, sex: m.Sex, owner: owner, library: -1}
			if v.named {
				if samples[node.Name] {
					return nil, errors.Errorf("duplicate sample %s", node.Name)
				}
				samples[node.Name] = true
				v.label = "SM-" + node.Name
			}
			index[node] = g.addVertex(v)
			parent, length := owner, node.Length()
			if node.IsRoot() {
				// the root is the zygote unless a length is given
				length = 0
				if node.HasLength {
					length = node.BranchLength
				}
			} else {
				parent = index[node.Parent]
			}
			g.addEdge(edge{parent: parent, child: index[node], typ: somaticEdge, length: length})
		}
	}
	return g, nil
}

// pruneForModel removes individuals and germline edges which do not
// transmit the locus and sets ploidy.
func pruneForModel(g *pedGraph, model InheritanceModel) (*pedGraph, error) {
	g = g.clone()
	germline := g.live(germlineVertex)
	if model.SexLinked() {
		for _, v := range germline {
			if g.vertices[v].sex == pedigree.Unknown {
				return nil, errors.Errorf("individual %s has unknown sex, required by the %s model", g.vertices[v].name, model)
			}
		}
	}

	// ploidy of a sex; zero means the individual doesn't carry the locus
	ploidy := func(sex pedigree.Sex) genotype.Ploidy {
		switch model {
		case Maternal, Paternal:
			return genotype.Haploid
		case XLinked:
			if sex == pedigree.Male {
				return genotype.Haploid
			}
		case ZLinked:
			if sex == pedigree.Female {
				return genotype.Haploid
			}
		case YLinked:
			if sex == pedigree.Male {
				return genotype.Haploid
			}
			return 0
		case WLinked:
			if sex == pedigree.Female {
				return genotype.Haploid
			}
			return 0
		}
		return genotype.Diploid
	}
	// keep tells if a germline edge transmits the locus
	keep := func(e edge) bool {
		childSex := g.vertices[e.child].sex
		switch model {
		case Maternal:
			return !e.fromFather
		case Paternal:
			return e.fromFather
		case XLinked:
			return !(e.fromFather && childSex == pedigree.Male)
		case ZLinked:
			return !(!e.fromFather && childSex == pedigree.Female)
		}
		return true
	}

	for _, v := range germline {
		p := ploidy(g.vertices[v].sex)
		if p == 0 {
			for i, w := range g.vertices {
				if w.owner == v {
					g.removeVertex(i)
				}
			}
			g.removeVertex(v)
			continue
		}
		g.vertices[v].ploidy = p
	}
	for i, e := range g.edges {
		if !e.removed && e.typ == germlineEdge && !keep(e) {
			g.edges[i].removed = true
		}
	}
	germline = g.live(germlineVertex)
	if len(germline) == 0 {
		return nil, errors.Errorf("no individuals carry the locus under the %s model", model)
	}

	// a diploid individual with a single known parent gets an unobserved
	// founder for the other one
	for _, v := range germline {
		if g.vertices[v].ploidy != genotype.Diploid {
			continue
		}
		pe := g.parentEdges(v)
		if len(pe) != 1 {
			continue
		}
		missingFather := !g.edges[pe[0]].fromFather
		sex, role := pedigree.Female, "mother"
		if missingFather {
			sex, role = pedigree.Male, "father"
		}
		name := fmt.Sprintf("%s/%s", g.vertices[v].name, role)
		log.Infof("Adding unknown %s of %s", role, g.vertices[v].name)
		u := g.addVertex(vertex{
			label:   "GL-" + name,
			name:    name,
			kind:    germlineVertex,
			sex:     sex,
			ploidy:  ploidy(sex),
			owner:   -1,
			library: -1,
		})
		g.addEdge(edge{parent: u, child: v, typ: germlineEdge, length: 1, fromFather: missingFather})
	}

	for i, v := range g.vertices {
		if !v.removed && v.kind == somaticVertex {
			g.vertices[i].ploidy = g.vertices[v.owner].ploidy
		}
	}
	return g, nil
}

// addLibraries attaches a library vertex to every sample with a read
// group. Read groups without a sample are removed from rgs; the
// indices of the kept read groups are returned.
func addLibraries(g *pedGraph, rgs *readgroup.ReadGroups) (*pedGraph, []int, error) {
	g = g.clone()
	samples := make(map[string]int)
	for _, v := range g.live(somaticVertex) {
		if g.vertices[v].named {
			samples[g.vertices[v].name] = v
		}
	}
	var keep []int
	for i, lib := range rgs.Libraries {
		s, ok := samples[lib.Sample]
		if !ok {
			continue
		}
		sv := g.vertices[s]
		v := g.addVertex(vertex{
			label:   "LB-" + lib.ID,
			name:    lib.ID,
			named:   true,
			kind:    libraryVertex,
			sex:     sv.sex,
			ploidy:  sv.ploidy,
			owner:   sv.owner,
			library: len(keep),
		})
		g.addEdge(edge{parent: s, child: v, typ: libraryEdge, length: 1})
		keep = append(keep, i)
	}
	for _, lib := range rgs.Keep(keep) {
		log.Warningf("Library %s of sample %s doesn't match the pedigree, ignoring it", lib.ID, lib.Sample)
	}
	if len(keep) == 0 {
		return nil, nil, errors.New("no read groups match the pedigree samples")
	}
	return g, keep, nil
}

// updateEdgeLengths scales edge lengths by mutation rates.
func updateEdgeLengths(g *pedGraph, mu, muSomatic, muLibrary float64) *pedGraph {
	g = g.clone()
	for i, e := range g.edges {
		switch e.typ {
		case germlineEdge:
			g.edges[i].length *= mu
		case somaticEdge:
			g.edges[i].length *= muSomatic
		case libraryEdge:
			g.edges[i].length *= muLibrary
		}
	}
	return g
}

// simplify removes vertices which don't change the likelihood:
// childless non-library vertices, unnamed somatic vertices with a
// single child and somatic vertices at zero distance from the parent.
func simplify(g *pedGraph) *pedGraph {
	g = g.clone()
	for changed := true; changed; {
		changed = false
		for v, vx := range g.vertices {
			if vx.removed || vx.kind == libraryVertex {
				continue
			}
			if len(g.childEdges(v)) == 0 {
				g.removeVertex(v)
				changed = true
			}
		}
		for v, vx := range g.vertices {
			if vx.removed || vx.kind != somaticVertex {
				continue
			}
			pe := g.parentEdges(v)
			if len(pe) != 1 {
				continue
			}
			up := g.edges[pe[0]]
			ce := g.childEdges(v)
			switch {
			case up.length == 0:
				for _, i := range ce {
					g.edges[i].parent = up.parent
				}
			case !vx.named && len(ce) == 1:
				g.edges[ce[0]].parent = up.parent
				g.edges[ce[0]].length += up.length
			default:
				continue
			}
			g.removeVertex(v)
			changed = true
		}
	}
	return g
}

// assignIndices orders live vertices into founder, non-founder,
// somatic and library bands. It returns vertices in node order and the
// band starts.
func assignIndices(g *pedGraph) (order []int, firstNonfounder, firstSomatic, firstLibrary int) {
	var founders, nonfounders []int
	for _, v := range g.live(germlineVertex) {
		if len(g.parentEdges(v)) == 0 {
			founders = append(founders, v)
		} else {
			nonfounders = append(nonfounders, v)
		}
	}
	order = append(order, founders...)
	firstNonfounder = len(order)
	order = append(order, nonfounders...)
	firstSomatic = len(order)
	order = append(order, g.live(somaticVertex)...)
	firstLibrary = len(order)
	order = append(order, g.live(libraryVertex)...)
	return
}
