// Package graph compiles a pedigree with its sample trees and
// sequencing libraries into a relationship graph: nodes ordered in
// founder, germline, somatic and library bands, their transitions and
// a peeling program.
package graph

import (
	"fmt"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/peel"
	"bitbucket.org/Davydov/godng/readgroup"
)

var log = logging.MustGetLogger("graph")

// TransitionType tells how a node derives from its parents.
type TransitionType int

const (
	// Founder nodes have no parents.
	Founder TransitionType = iota
	// Germline nodes are individuals inheriting from parents.
	Germline
	// Somatic nodes are samples and cell lineages of an individual.
	Somatic
	// Library nodes are sequencing libraries of samples.
	Library
)

var transitionNames = [...]string{"founder", "germline", "somatic", "library"}

// String returns the transition type name.
func (t TransitionType) String() string {
	return transitionNames[t]
}

// Transition describes the parents of a node. Parent1 is the father
// for trios; absent parents are -1. Lengths include mutation rates.
type Transition struct {
	Type             TransitionType
	Parent1, Parent2 int
	Length1, Length2 float64
	Sex              pedigree.Sex
	Ploidy           genotype.Ploidy
}

// RelationshipGraph is an immutable compiled pedigree. It can be
// shared between goroutines; every goroutine needs its own workspace.
type RelationshipGraph struct {
	model       InheritanceModel
	labels      []string
	transitions []Transition

	firstNonfounder, firstSomatic, firstLibrary int

	families []peel.Family
	ops      []peel.Op
	forward  []peel.Function
	reverse  []peel.Function
	layout   peel.Layout

	keepLibraries []int
}

// Construct compiles the pedigree. Read groups which don't match any
// sample are removed from rgs. Germline, somatic and library edge
// lengths are multiplied by mu, muSomatic and muLibrary.
func Construct(ped *pedigree.Pedigree, rgs *readgroup.ReadGroups, model InheritanceModel,
	mu, muSomatic, muLibrary float64) (*RelationshipGraph, error) {
	g, err := parsePedigree(ped)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing pedigree")
	}
	g, err = pruneForModel(g, model)
	if err != nil {
		return nil, errors.Wrap(err, "error applying inheritance model")
	}
	g, keep, err := addLibraries(g, rgs)
	if err != nil {
		return nil, errors.Wrap(err, "error adding libraries")
	}
	g = updateEdgeLengths(g, mu, muSomatic, muLibrary)
	g = simplify(g)

	rg, err := compile(g, model)
	if err != nil {
		return nil, errors.Wrap(err, "error compiling peeling program")
	}
	rg.keepLibraries = keep
	log.Infof("Relationship graph: %d founders, %d germline, %d somatic, %d library nodes, %d families",
		rg.firstNonfounder, rg.firstSomatic-rg.firstNonfounder,
		rg.firstLibrary-rg.firstSomatic, rg.NumNodes()-rg.firstLibrary, len(rg.families))
	return rg, nil
}

// compile numbers vertices, computes transitions and the peeling
// program.
func compile(g *pedGraph, model InheritanceModel) (*RelationshipGraph, error) {
	order, firstNonfounder, firstSomatic, firstLibrary := assignIndices(g)
	node := make(map[int]int, len(order))
	for i, v := range order {
		node[v] = i
	}
	rg := &RelationshipGraph{
		model:           model,
		labels:          make([]string, len(order)),
		transitions:     make([]Transition, len(order)),
		firstNonfounder: firstNonfounder,
		firstSomatic:    firstSomatic,
		firstLibrary:    firstLibrary,
	}
	unnamed := 0
	for i, v := range order {
		vx := g.vertices[v]
		rg.labels[i] = vx.label
		if vx.label == "" {
			unnamed++
			rg.labels[i] = fmt.Sprintf("SM-%s/%d", g.vertices[vx.owner].name, unnamed)
		}
		t := Transition{Parent1: -1, Parent2: -1, Sex: vx.sex, Ploidy: vx.ploidy}
		pe := g.parentEdges(v)
		switch vx.kind {
		case germlineVertex:
			switch len(pe) {
			case 0:
				t.Type = Founder
			case 1:
				if vx.ploidy == genotype.Diploid {
					return nil, errors.Errorf("diploid individual %s has a single parent", vx.name)
				}
				t.Type = Germline
			case 2:
				t.Type = Germline
				if !g.edges[pe[0]].fromFather {
					pe[0], pe[1] = pe[1], pe[0]
				}
			}
		case somaticVertex:
			t.Type = Somatic
		case libraryVertex:
			t.Type = Library
		}
		if len(pe) > 0 {
			t.Parent1, t.Length1 = node[g.edges[pe[0]].parent], g.edges[pe[0]].length
		}
		if len(pe) > 1 {
			t.Parent2, t.Length2 = node[g.edges[pe[1]].parent], g.edges[pe[1]].length
		}
		rg.transitions[i] = t
	}

	fams := findFamilies(rg.transitions)
	p, err := peelingProgram(len(order), firstLibrary, fams)
	if err != nil {
		return nil, err
	}
	rg.families = p.families
	rg.ops = p.ops
	for _, op := range p.ops {
		rg.forward = append(rg.forward, peel.Forward(op))
		rg.reverse = append(rg.reverse, peel.Reverse(op))
	}

	rg.layout = peel.Layout{
		Ploidy:          make([]genotype.Ploidy, len(order)),
		FirstNonfounder: firstNonfounder,
		FirstSomatic:    firstSomatic,
		FirstLibrary:    firstLibrary,
		Parent1:         make([]int, len(order)),
		Parent2:         make([]int, len(order)),
		FamilyParents:   make([][]int, len(fams)),
		Roots:           p.roots,
		Cleanup:         p.cleanup,
	}
	for i, t := range rg.transitions {
		rg.layout.Ploidy[i] = t.Ploidy
		rg.layout.Parent1[i] = t.Parent1
		rg.layout.Parent2[i] = t.Parent2
	}
	for f, fam := range fams {
		rg.layout.FamilyParents[f] = fam.parents
	}
	return rg, nil
}

// NumNodes returns the number of nodes.
func (g *RelationshipGraph) NumNodes() int {
	return len(g.labels)
}

// Model returns the inheritance model.
func (g *RelationshipGraph) Model() InheritanceModel {
	return g.model
}

// Labels returns node labels: GL-<individual>, SM-<sample> or
// LB-<library>.
func (g *RelationshipGraph) Labels() []string {
	return g.labels
}

// Transitions returns node transitions.
func (g *RelationshipGraph) Transitions() []Transition {
	return g.transitions
}

// Ploidy returns the ploidy of a node.
func (g *RelationshipGraph) Ploidy(i int) genotype.Ploidy {
	return g.transitions[i].Ploidy
}

// FirstNonfounder returns index of the first non-founder node.
func (g *RelationshipGraph) FirstNonfounder() int {
	return g.firstNonfounder
}

// FirstSomatic returns index of the first somatic node.
func (g *RelationshipGraph) FirstSomatic() int {
	return g.firstSomatic
}

// FirstLibrary returns index of the first library node. Library nodes
// follow the order of the kept read groups.
func (g *RelationshipGraph) FirstLibrary() int {
	return g.firstLibrary
}

// NumLibraries returns the number of library nodes.
func (g *RelationshipGraph) NumLibraries() int {
	return g.NumNodes() - g.firstLibrary
}

// KeepLibraryIndex returns the positions of the read groups used by
// the graph in the original read group list.
func (g *RelationshipGraph) KeepLibraryIndex() []int {
	return g.keepLibraries
}

// Roots returns the root of every connected component.
func (g *RelationshipGraph) Roots() []int {
	return g.layout.Roots
}

// Families returns families in peeling order.
func (g *RelationshipGraph) Families() []peel.Family {
	return g.families
}

// Ops returns peeling operations in peeling order.
func (g *RelationshipGraph) Ops() []peel.Op {
	return g.ops
}

// CreateWorkspace allocates a workspace for this graph.
func (g *RelationshipGraph) CreateWorkspace() *peel.Workspace {
	return peel.NewWorkspace(g.layout)
}

// PeelForwards computes log P(data) from library lower arrays and
// founder upper arrays of the workspace.
func (g *RelationshipGraph) PeelForwards(work *peel.Workspace, mats peel.TransitionVector) float64 {
	return peel.Forwards(work, g.families, g.forward, mats)
}

// PeelBackwards completes posterior computations after PeelForwards
// with the same matrices.
func (g *RelationshipGraph) PeelBackwards(work *peel.Workspace, mats peel.TransitionVector) float64 {
	return peel.Backwards(work, g.families, g.reverse, mats)
}
