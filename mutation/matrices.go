package mutation

import (
	"github.com/gonum/matrix/mat64"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/peel"
)

// CreateMatrices returns a transition matrix for every node of the
// graph, nil for founders. Edge lengths of the graph already include
// mutation rates.
func CreateMatrices(g *graph.RelationshipGraph, freq [genotype.NNuc]float64, kind Kind) peel.TransitionVector {
	ts := g.Transitions()
	res := make(peel.TransitionVector, len(ts))
	for i, t := range ts {
		switch {
		case t.Type == graph.Founder:
		case t.Parent2 >= 0:
			res[i] = Meiotic(ts[t.Parent1].Ploidy, t.Length1, ts[t.Parent2].Ploidy, t.Length2, freq, kind)
		default:
			res[i] = Mitotic(ts[t.Parent1].Ploidy, t.Ploidy, t.Length1, freq, kind)
		}
	}
	return res
}

// Subset restricts a node transition matrix to the genotypes made of
// the alleles of a color.
func Subset(g *graph.RelationshipGraph, mats peel.TransitionVector, node int, color genotype.Color) *mat64.Dense {
	m := mats[node]
	if m == nil {
		return nil
	}
	ts := g.Transitions()
	t := ts[node]
	cols := color.Project(t.Ploidy)
	var rows []int
	if t.Parent2 >= 0 {
		dad := color.Project(ts[t.Parent1].Ploidy)
		mom := color.Project(ts[t.Parent2].Ploidy)
		km := ts[t.Parent2].Ploidy.Size(genotype.NNuc)
		for _, d := range dad {
			for _, mg := range mom {
				rows = append(rows, d*km+mg)
			}
		}
	} else {
		rows = color.Project(ts[t.Parent1].Ploidy)
	}
	res := mat64.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			res.Set(i, j, m.At(r, c))
		}
	}
	return res
}

// Set is a transition matrix vector together with its restrictions to
// every allele color. A Set is immutable and can be shared.
type Set struct {
	Kind    Kind
	Full    peel.TransitionVector
	Subsets [genotype.NColors]peel.TransitionVector
}

// NewSet creates matrices of a kind for the graph and all the colors.
func NewSet(g *graph.RelationshipGraph, freq [genotype.NNuc]float64, kind Kind) *Set {
	s := &Set{
		Kind: kind,
		Full: CreateMatrices(g, freq, kind),
	}
	for c := range s.Subsets {
		sub := make(peel.TransitionVector, len(s.Full))
		for i := range sub {
			sub[i] = Subset(g, s.Full, i, genotype.Colors[c])
		}
		s.Subsets[c] = sub
	}
	return s
}

// Color returns matrices restricted to a color.
func (s *Set) Color(c int) peel.TransitionVector {
	return s.Subsets[c]
}
