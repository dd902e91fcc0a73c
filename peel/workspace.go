// Package peel implements sum-product message passing ("peeling") over
// pedigree families: the per-node workspace and the forward and
// reverse family operations.
//
// For every node the workspace keeps three arrays over its genotypes:
//
//	lower: P(data below the node | genotype)
//	upper: P(genotype, data above the node)
//	super: P(parental genotypes, data outside the node's subtree)
//
// Arrays are allocated once with full-alphabet capacity and re-sliced
// when a site has fewer segregating alleles.
package peel

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"

	"bitbucket.org/Davydov/godng/genotype"
)

// TransitionVector holds a transition matrix for every node, nil for
// founders. Rows are parent genotypes (joint father*mother genotypes
// for trios), columns are child genotypes.
type TransitionVector []*mat64.Dense

// State of a workspace.
type State int

const (
	// Clean workspaces satisfy all the forward pass preconditions.
	Clean State = iota
	// DirtyLower workspaces had a backward pass; lower arrays of some
	// nodes contain messages which must be reset before the next
	// forward pass.
	DirtyLower
)

// Layout describes everything the workspace needs to know about the
// graph. Nodes are ordered in four bands: founders, non-founder
// germline, somatic and library nodes.
type Layout struct {
	Ploidy []genotype.Ploidy
	// FirstNonfounder, FirstSomatic and FirstLibrary are band starts.
	FirstNonfounder, FirstSomatic, FirstLibrary int
	// Parent1 and Parent2 are -1 if absent.
	Parent1, Parent2 []int
	// FamilyParents lists parents of every family, father first.
	FamilyParents [][]int
	// Roots has one node per connected component.
	Roots []int
	// Cleanup lists non-library nodes not written by an assigning
	// forward operation.
	Cleanup []int
}

type famSlot struct {
	family, slot int
}

// Workspace holds per-node peeling state for one thread.
type Workspace struct {
	Lower, Upper, Super [][]float64
	ForwardResult       float64

	// Band ranges [first, last).
	Founders, Germline, Somatic, Libraries [2]int

	layout   Layout
	state    State
	nAlleles int

	lowerBuf, upperBuf, superBuf, messageBuf [][]float64
	message                                  [][]float64

	famLowerBuf, famLower [][][]float64
	parentFams            [][]famSlot

	lowerScale  []float64
	rootUpper   [][]float64
	rootsScaled bool

	paired, vecD, vecM []float64
}

// NewWorkspace allocates a workspace for the layout, sized for four
// alleles.
func NewWorkspace(l Layout) *Workspace {
	n := len(l.Ploidy)
	w := &Workspace{
		Lower:      make([][]float64, n),
		Upper:      make([][]float64, n),
		Super:      make([][]float64, n),
		Founders:   [2]int{0, l.FirstNonfounder},
		Germline:   [2]int{l.FirstNonfounder, l.FirstSomatic},
		Somatic:    [2]int{l.FirstSomatic, l.FirstLibrary},
		Libraries:  [2]int{l.FirstLibrary, n},
		layout:     l,
		lowerBuf:   make([][]float64, n),
		upperBuf:   make([][]float64, n),
		superBuf:   make([][]float64, n),
		messageBuf: make([][]float64, n),
		message:    make([][]float64, n),
		parentFams: make([][]famSlot, n),
		lowerScale: make([]float64, n),
		rootUpper:  make([][]float64, len(l.Roots)),
		paired:     make([]float64, genotype.NPaired),
		vecD:       make([]float64, genotype.NDiploid),
		vecM:       make([]float64, genotype.NDiploid),
	}
	for i := 0; i < n; i++ {
		k := l.Ploidy[i].Size(genotype.NNuc)
		w.lowerBuf[i] = make([]float64, k)
		w.upperBuf[i] = make([]float64, k)
		s := w.superSize(i, genotype.NNuc)
		w.superBuf[i] = make([]float64, s)
		w.messageBuf[i] = make([]float64, s)
	}
	w.famLowerBuf = make([][][]float64, len(l.FamilyParents))
	w.famLower = make([][][]float64, len(l.FamilyParents))
	for f, parents := range l.FamilyParents {
		w.famLowerBuf[f] = make([][]float64, len(parents))
		w.famLower[f] = make([][]float64, len(parents))
		for slot, p := range parents {
			w.famLowerBuf[f][slot] = make([]float64, l.Ploidy[p].Size(genotype.NNuc))
			w.parentFams[p] = append(w.parentFams[p], famSlot{f, slot})
		}
	}
	for i := range w.rootUpper {
		w.rootUpper[i] = make([]float64, genotype.NDiploid)
	}
	w.Resize(genotype.NNuc)
	return w
}

// superSize returns the number of parental genotypes of a node.
func (w *Workspace) superSize(i, nAlleles int) int {
	p1, p2 := w.layout.Parent1[i], w.layout.Parent2[i]
	switch {
	case p1 < 0:
		return 0
	case p2 < 0:
		return w.layout.Ploidy[p1].Size(nAlleles)
	}
	return w.layout.Ploidy[p1].Size(nAlleles) * w.layout.Ploidy[p2].Size(nAlleles)
}

// NumNodes returns the number of nodes.
func (w *Workspace) NumNodes() int {
	return len(w.Lower)
}

// NAlleles returns the current number of segregating alleles.
func (w *Workspace) NAlleles() int {
	return w.nAlleles
}

// State returns the workspace state.
func (w *Workspace) State() State {
	return w.state
}

// Ploidy returns the ploidy of a node.
func (w *Workspace) Ploidy(i int) genotype.Ploidy {
	return w.layout.Ploidy[i]
}

// Resize re-slices all arrays for nAlleles segregating alleles. If the
// size changes the workspace is reset and library lower arrays must be
// filled again.
func (w *Workspace) Resize(nAlleles int) {
	if nAlleles == w.nAlleles {
		return
	}
	if nAlleles < 1 || nAlleles > genotype.NNuc {
		panic("incorrect number of alleles")
	}
	w.nAlleles = nAlleles
	for i := range w.Lower {
		k := w.layout.Ploidy[i].Size(nAlleles)
		w.Lower[i] = w.lowerBuf[i][:k]
		w.Upper[i] = w.upperBuf[i][:k]
		s := w.superSize(i, nAlleles)
		w.Super[i] = w.superBuf[i][:s]
		w.message[i] = w.messageBuf[i][:s]
	}
	for f, parents := range w.layout.FamilyParents {
		for slot, p := range parents {
			w.famLower[f][slot] = w.famLowerBuf[f][slot][:w.layout.Ploidy[p].Size(nAlleles)]
		}
	}
	w.Reset()
}

// Reset brings the workspace into the Clean state by setting lower
// arrays of all non-library nodes and all upper arrays to one.
func (w *Workspace) Reset() {
	for i := 0; i < w.Libraries[0]; i++ {
		fill(w.Lower[i], 1)
	}
	for i := range w.Upper {
		fill(w.Upper[i], 1)
	}
	for _, slots := range w.famLower {
		for _, m := range slots {
			fill(m, 1)
		}
	}
	fill(w.lowerScale, 1)
	w.rootsScaled = false
	w.state = Clean
}

// SetFounders copies founder priors into upper arrays of founders.
func (w *Workspace) SetFounders(diploid, haploid []float64) {
	for i := w.Founders[0]; i < w.Founders[1]; i++ {
		if w.layout.Ploidy[i] == genotype.Haploid {
			copy(w.Upper[i], haploid)
		} else {
			copy(w.Upper[i], diploid)
		}
	}
	w.rootsScaled = false
}

// CleanupFast undoes what a backward pass changed: lower arrays of
// nodes never assigned by a forward operation and root scaling.
func (w *Workspace) CleanupFast() {
	if w.state != DirtyLower {
		return
	}
	for _, i := range w.layout.Cleanup {
		fill(w.Lower[i], 1)
	}
	if w.rootsScaled {
		for k, r := range w.layout.Roots {
			if r < w.Founders[1] {
				copy(w.Upper[r], w.rootUpper[k][:len(w.Upper[r])])
			}
		}
		w.rootsScaled = false
	}
	fill(w.lowerScale, 1)
	w.state = Clean
}

// rootLogSum returns the sum over components of log P(data).
func (w *Workspace) rootLogSum() (res float64) {
	for _, r := range w.layout.Roots {
		res += math.Log(floats.Dot(w.Lower[r], w.Upper[r]))
	}
	return
}

// normalizeRoots splits the likelihood of every component between the
// lower and upper arrays of its root so that posteriors of all nodes
// come out normalized. It returns the sum of log likelihoods.
func (w *Workspace) normalizeRoots() (res float64) {
	for k, r := range w.layout.Roots {
		sum := floats.Dot(w.Lower[r], w.Upper[r])
		res += math.Log(sum)
		s := 1 / math.Sqrt(sum)
		copy(w.rootUpper[k], w.Upper[r])
		floats.Scale(s, w.Lower[r])
		floats.Scale(s, w.Upper[r])
		floats.Scale(s, w.Super[r])
		w.lowerScale[r] = s
	}
	w.rootsScaled = true
	return
}

// lowerExcluding writes lower of node v without the message it got
// from family f.
func (w *Workspace) lowerExcluding(dst []float64, v, f int) {
	fill(dst, w.lowerScale[v])
	for _, fs := range w.parentFams[v] {
		if fs.family != f {
			floats.Mul(dst, w.famLower[fs.family][fs.slot])
		}
	}
}

// childMessage computes P(data below child | parental genotypes) into
// the child message buffer.
func (w *Workspace) childMessage(c int, m *mat64.Dense) []float64 {
	msg := w.message[c]
	mulVec(msg, m, w.Lower[c])
	return msg
}

func fill(s []float64, v float64) {
	for i := range s {
		s[i] = v
	}
}

// mulVec sets dst = m * x.
func mulVec(dst []float64, m *mat64.Dense, x []float64) {
	raw := m.RawMatrix()
	if raw.Rows != len(dst) || raw.Cols != len(x) {
		panic("dimension mismatch")
	}
	for i := range dst {
		dst[i] = floats.Dot(raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols], x)
	}
}

// mulTransVec sets dst = m' * x.
func mulTransVec(dst []float64, m *mat64.Dense, x []float64) {
	raw := m.RawMatrix()
	if raw.Rows != len(x) || raw.Cols != len(dst) {
		panic("dimension mismatch")
	}
	fill(dst, 0)
	for i, v := range x {
		floats.AddScaled(dst, v, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
	}
}

// outer sets dst[i*len(b)+j] = a[i]*b[j].
func outer(dst, a, b []float64) {
	k := len(b)
	for i, v := range a {
		row := dst[i*k : (i+1)*k]
		for j, u := range b {
			row[j] = v * u
		}
	}
}
