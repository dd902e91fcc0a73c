package probability

import (
	"math"

	"github.com/gonum/blas"
	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/mutation"
	"bitbucket.org/Davydov/godng/pileup"
)

// minLog10 replaces log10 of zero genotype likelihoods.
const minLog10 = -1000

// Stats are mutation statistics of a site. Genotype arrays are indexed
// over the genotypes of Alleles.
type Stats struct {
	// Mup is the probability of at least one mutation.
	Mup float64 `json:"mup"`
	// Lld is log10 P(data).
	Lld float64 `json:"lld"`
	// Alleles are the alleles genotype arrays refer to, e.g. "ACGT".
	Alleles string `json:"alleles"`
	// GenotypeLikelihoods are log10 likelihoods of every library.
	GenotypeLikelihoods [][]float64 `json:"genotype_likelihoods"`
	// PosteriorProbabilities are genotype posteriors of every node.
	PosteriorProbabilities [][]float64 `json:"posterior_probabilities"`
	// Mux is the expected number of mutations.
	Mux float64 `json:"mux"`
	// NodeMup is the probability of at least one mutation at a node
	// given at least one mutation in the pedigree.
	NodeMup []float64 `json:"node_mup"`
	// NodeMu1p is the probability of the only mutation being at a
	// node given exactly one mutation.
	NodeMu1p []float64 `json:"node_mu1p"`
	// Mu1p is the probability of exactly one mutation.
	Mu1p float64 `json:"mu1p"`
	// Dnq is the Phred scaled quality of the de novo location and
	// transition.
	Dnq int `json:"dnq"`
	// Dnl is the label of the most likely mutated node.
	Dnl string `json:"dnl"`
	// Dnt is the most likely mutation, e.g. "AAxCC>AC".
	Dnt string `json:"dnt"`
}

// CallMutations computes mutation statistics of sites.
type CallMutations struct {
	*LogProbability
	minProb float64

	zero, one, mean, oneplus *mutation.Set

	// matrix-vector products
	scratch [genotype.NPaired]float64
}

// NewCallMutations creates a caller reporting sites with mutation
// probability of at least minProb.
func NewCallMutations(minProb float64, g *graph.RelationshipGraph, params Params) *CallMutations {
	lp := NewLogProbability(g, params)
	return newCallMutations(minProb, lp)
}

func newCallMutations(minProb float64, lp *LogProbability) *CallMutations {
	g := lp.graph
	return &CallMutations{
		LogProbability: lp,
		minProb:        minProb,
		zero:           mutation.NewSet(g, lp.params.NucFreq, mutation.Zero),
		one:            mutation.NewSet(g, lp.params.NucFreq, mutation.One),
		mean:           mutation.NewSet(g, lp.params.NucFreq, mutation.Mean),
		oneplus:        mutation.NewSet(g, lp.params.NucFreq, mutation.OnePlus),
	}
}

// Copy returns a caller with its own workspace.
func (c *CallMutations) Copy() *CallMutations {
	res := *c
	res.LogProbability = c.LogProbability.Copy()
	return &res
}

// MinProb returns the reporting threshold.
func (c *CallMutations) MinProb() float64 {
	return c.minProb
}

// Call computes mutation statistics of raw depths. It returns true if
// the mutation probability is at least the threshold. If stats is nil
// only the probability is checked; otherwise stats are filled for
// reported sites and left untouched for the others.
func (c *CallMutations) Call(depths pileup.RawDepths, ref int, stats *Stats) bool {
	scale := c.setFull(depths, ref)
	return c.call(genotype.FullColor(), scale, stats)
}

// CallAlleles is Call for allele depths; genotype arrays of stats
// refer to the alleles of the color.
func (c *CallMutations) CallAlleles(depths pileup.AlleleDepths, stats *Stats) bool {
	scale := c.setColor(depths)
	return c.call(depths.Color, scale, stats)
}

func (c *CallMutations) call(color int, scale float64, stats *Stats) bool {
	g, w := c.graph, c.work
	full := c.full.Color(color)
	zero := c.zero.Color(color)

	numerator := g.PeelForwards(w, zero)
	denominator := g.PeelForwards(w, full)
	mup := -math.Expm1(numerator - denominator)
	if math.IsNaN(mup) {
		log.Debugf("Mutation probability is NaN (%v, %v)", numerator, denominator)
		return false
	}
	if !(mup > 0) {
		// -expm1(0) is -0
		mup = 0
	}
	if mup < c.minProb {
		return false
	}
	if stats == nil {
		return true
	}
	stats.Mup = mup
	stats.Lld = (denominator + scale) / math.Ln10
	stats.Alleles = genotype.Colors[color].String()

	g.PeelBackwards(w, full)

	nNodes := w.NumNodes()
	stats.GenotypeLikelihoods = make([][]float64, w.Libraries[1]-w.Libraries[0])
	for l := range stats.GenotypeLikelihoods {
		lower := w.Lower[w.Libraries[0]+l]
		gl := make([]float64, len(lower))
		for k, v := range lower {
			gl[k] = minLog10
			if v > 0 {
				gl[k] = math.Log10(v)
			}
		}
		stats.GenotypeLikelihoods[l] = gl
	}

	stats.PosteriorProbabilities = make([][]float64, nNodes)
	for i := range stats.PosteriorProbabilities {
		p := make([]float64, len(w.Lower[i]))
		floats.MulTo(p, w.Upper[i], w.Lower[i])
		floats.Scale(1/floats.Sum(p), p)
		stats.PosteriorProbabilities[i] = p
	}

	mean := c.mean.Color(color)
	oneplus := c.oneplus.Color(color)
	stats.Mux = 0
	stats.NodeMup = make([]float64, nNodes)
	for i := w.Founders[1]; i < nNodes; i++ {
		stats.Mux += c.superDot(w.Super[i], mean[i], w.Lower[i])
		if mup > 0 {
			stats.NodeMup[i] = c.superDot(w.Super[i], oneplus[i], w.Lower[i]) / mup
		}
	}

	// posteriors without mutations
	g.PeelForwards(w, zero)
	g.PeelBackwards(w, zero)

	one := c.one.Color(color)
	total, maxCoeff := 0.0, -1.0
	dnRow, dnCol, dnNode := 0, 0, -1
	stats.NodeMu1p = make([]float64, nNodes)
	for i := w.Founders[1]; i < nNodes; i++ {
		s, v, row, col := maxScore(w.Super[i], one[i], w.Lower[i])
		if v > maxCoeff {
			maxCoeff, dnRow, dnCol, dnNode = v, row, col, i
		}
		stats.NodeMu1p[i] = s
		total += s
	}
	stats.Mu1p, stats.Dnq = 0, 0
	stats.Dnl, stats.Dnt = "", ""
	if !(total > 0) {
		// the data are impossible without mutations
		log.Debugf("No single mutation explains the data (total=%v)", total)
		for i := range stats.NodeMu1p {
			stats.NodeMu1p[i] = 0
		}
		return true
	}
	floats.Scale(1/total, stats.NodeMu1p)
	// total is P(1 mutation | data) / P(0 mutations | data)
	stats.Mu1p = total * (1 - mup)
	if dnNode >= 0 {
		stats.Dnq = phred(1-maxCoeff/total, 255)
		stats.Dnl = g.Labels()[dnNode]
		stats.Dnt = c.transitionLabel(color, dnNode, dnRow, dnCol)
	}
	return true
}

// superDot returns super · (m lower).
func (c *CallMutations) superDot(super []float64, m *mat64.Dense, lower []float64) float64 {
	tmp := c.scratch[:len(super)]
	blas64.Gemv(blas.NoTrans, 1, m.RawMatrix(), blas64.Vector{Inc: 1, Data: lower}, 0, blas64.Vector{Inc: 1, Data: tmp})
	return floats.Dot(super, tmp)
}

// maxScore returns the sum and the maximum of the matrix
// super[r] * m[r][c] * lower[c] and the position of the maximum.
func maxScore(super []float64, m *mat64.Dense, lower []float64) (sum, max float64, row, col int) {
	raw := m.RawMatrix()
	max = -1
	for r, s := range super {
		data := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		for c, l := range lower {
			v := s * data[c] * l
			sum += v
			if v > max {
				max, row, col = v, r, c
			}
		}
	}
	return
}

// phred returns a Phred scaled error probability clamped to
// [0, maxQ].
func phred(p float64, maxQ int) int {
	if !(p > 0) {
		return maxQ
	}
	q := math.Floor(-10*math.Log10(p) + 0.5)
	switch {
	case q < 0:
		return 0
	case q > float64(maxQ):
		return maxQ
	}
	return int(q)
}

// transitionLabel names a transition given local genotype indices of
// the color.
func (c *CallMutations) transitionLabel(color, node, row, col int) string {
	ts := c.graph.Transitions()
	t := ts[node]
	to := projections[color][t.Ploidy][col]
	if t.Parent2 < 0 {
		pp := ts[t.Parent1].Ploidy
		from := projections[color][pp][row]
		return genotype.Mitotic(pp, t.Ploidy)[from][to]
	}
	dad, mom := ts[t.Parent1].Ploidy, ts[t.Parent2].Ploidy
	km := len(projections[color][mom])
	d := projections[color][dad][row/km]
	m := projections[color][mom][row%km]
	return genotype.Meiotic(dad, mom)[d*mom.Size(genotype.NNuc)+m][to]
}
