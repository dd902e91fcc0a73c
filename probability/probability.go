// Package probability evaluates the likelihood of read data on a
// relationship graph and calls de novo mutations.
package probability

import (
	"github.com/op/go-logging"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/genotyper"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/mutation"
	"bitbucket.org/Davydov/godng/peel"
	"bitbucket.org/Davydov/godng/pileup"
)

var log = logging.MustGetLogger("probability")

// Params of the population and read models.
type Params struct {
	Theta     float64
	NucFreq   [genotype.NNuc]float64
	RefWeight float64

	// ParamsA are genotyper parameters of homozygotes, ParamsB of
	// heterozygotes.
	ParamsA, ParamsB genotyper.Params
}

// Value is a log likelihood. LogData is the log likelihood of the
// scaled genotype likelihoods; the log likelihood of the data is
// LogData + LogScale.
type Value struct {
	LogData  float64
	LogScale float64
}

// Total returns LogData + LogScale.
func (v Value) Total() float64 {
	return v.LogData + v.LogScale
}

// priors holds founder priors for every reference (A, C, G, T, N),
// ploidy and color.
type priors struct {
	full  [genotype.NNuc + 1][3][]float64
	color [genotype.NNuc + 1][genotype.NColors][3][]float64
}

func newPriors(p Params) *priors {
	pr := &priors{}
	for ref := 0; ref <= genotype.NNuc; ref++ {
		for _, pl := range []genotype.Ploidy{genotype.Haploid, genotype.Diploid} {
			pr.full[ref][pl] = genotype.Prior(pl, p.Theta, p.NucFreq, p.RefWeight, ref)
			for c, color := range genotype.Colors {
				pr.color[ref][c][pl] = genotype.ProjectPrior(pr.full[ref][pl], color, pl)
			}
		}
	}
	return pr
}

// projections holds subset genotypes of every color and ploidy.
var projections [genotype.NColors][3][]int

func init() {
	for c, color := range genotype.Colors {
		for _, pl := range []genotype.Ploidy{genotype.Haploid, genotype.Diploid} {
			projections[c][pl] = color.Project(pl)
		}
	}
}

// LogProbability computes the log likelihood of site data. It owns a
// workspace and must not be used concurrently; Copy gives an
// independent instance sharing the immutable parts.
type LogProbability struct {
	graph     *graph.RelationshipGraph
	params    Params
	work      *peel.Workspace
	genotyper *genotyper.Genotyper
	full      *mutation.Set
	priors    *priors
}

// NewLogProbability creates matrices and priors for the graph.
func NewLogProbability(g *graph.RelationshipGraph, params Params) *LogProbability {
	return &LogProbability{
		graph:     g,
		params:    params,
		work:      g.CreateWorkspace(),
		genotyper: genotyper.New(params.ParamsA, params.ParamsB),
		full:      mutation.NewSet(g, params.NucFreq, mutation.Full),
		priors:    newPriors(params),
	}
}

// Copy returns a LogProbability with its own workspace.
func (lp *LogProbability) Copy() *LogProbability {
	res := *lp
	res.work = lp.graph.CreateWorkspace()
	return &res
}

// Graph returns the relationship graph.
func (lp *LogProbability) Graph() *graph.RelationshipGraph {
	return lp.graph
}

// Params returns the model parameters.
func (lp *LogProbability) Params() Params {
	return lp.params
}

// Work returns the workspace of the last evaluation.
func (lp *LogProbability) Work() *peel.Workspace {
	return lp.work
}

// setFull prepares the workspace for raw depths of all the libraries
// of the graph and returns the log scale. ref is A, C, G, T or N.
func (lp *LogProbability) setFull(depths pileup.RawDepths, ref int) float64 {
	w := lp.work
	if len(depths) != lp.graph.NumLibraries() {
		panic("probability: wrong number of libraries")
	}
	w.Resize(genotype.NNuc)
	w.CleanupFast()
	scale := 0.0
	for l, d := range depths {
		i := w.Libraries[0] + l
		pl := w.Ploidy(i)
		scale += lp.genotyper.Likelihoods(d, ref, pl, projections[genotype.FullColor()][pl], w.Lower[i])
	}
	w.SetFounders(lp.priors.full[ref][genotype.Diploid], lp.priors.full[ref][genotype.Haploid])
	return scale
}

// setColor prepares the workspace for allele depths and returns the
// log scale.
func (lp *LogProbability) setColor(depths pileup.AlleleDepths) float64 {
	w := lp.work
	if len(depths.Counts) != lp.graph.NumLibraries() {
		panic("probability: wrong number of libraries")
	}
	c := depths.Color
	w.Resize(genotype.Colors[c].NAlleles())
	w.CleanupFast()
	scale := 0.0
	for l := range depths.Counts {
		i := w.Libraries[0] + l
		pl := w.Ploidy(i)
		scale += lp.genotyper.Likelihoods(depths.Depth(l), depths.Ref, pl, projections[c][pl], w.Lower[i])
	}
	ref := depths.Ref
	w.SetFounders(lp.priors.color[ref][c][genotype.Diploid], lp.priors.color[ref][c][genotype.Haploid])
	return scale
}

// Call returns the log likelihood of raw depths at a site with the
// given reference nucleotide.
func (lp *LogProbability) Call(depths pileup.RawDepths, ref int) Value {
	scale := lp.setFull(depths, ref)
	return Value{
		LogData:  lp.graph.PeelForwards(lp.work, lp.full.Full),
		LogScale: scale,
	}
}

// CallAlleles returns the log likelihood of allele depths. Only
// genotypes made of the alleles of the color are considered.
func (lp *LogProbability) CallAlleles(depths pileup.AlleleDepths) Value {
	scale := lp.setColor(depths)
	return Value{
		LogData:  lp.graph.PeelForwards(lp.work, lp.full.Color(depths.Color)),
		LogScale: scale,
	}
}
