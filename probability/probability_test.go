package probability

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/gonum/floats"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/genotyper"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/optimize"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/pileup"
	"bitbucket.org/Davydov/godng/readgroup"
)

const smallDiff = 1e-9

const (
	trioPed = "f dad 0 0 1\nf mom 0 0 2\nf kid dad mom 1\n"
	trioRG  = "L1 dad\nL2 mom\nL3 kid\n"
)

func init() {
	logging.SetLevel(logging.WARNING, "graph")
	logging.SetLevel(logging.WARNING, "pedigree")
	logging.SetLevel(logging.WARNING, "readgroup")
	logging.SetLevel(logging.WARNING, "probability")
}

var testParams = Params{
	Theta:     0.001,
	NucFreq:   [genotype.NNuc]float64{0.3, 0.2, 0.2, 0.3},
	RefWeight: 1,
	ParamsA:   genotyper.Params{Overdispersion: 0.001, Error: 0.0005, RefBias: 1},
	ParamsB:   genotyper.Params{Overdispersion: 0.005, Error: 0.0005, RefBias: 1},
}

func buildGraph(tst *testing.T, ped, rg string, model graph.InheritanceModel, mu float64) *graph.RelationshipGraph {
	p, err := pedigree.ParsePed(strings.NewReader(ped))
	require.NoError(tst, err)
	r, err := readgroup.Parse(strings.NewReader(rg))
	require.NoError(tst, err)
	g, err := graph.Construct(p, r, model, mu, 1e-12, 1e-12)
	require.NoError(tst, err)
	return g
}

func nodeIndex(tst *testing.T, g *graph.RelationshipGraph, label string) int {
	for i, l := range g.Labels() {
		if l == label {
			return i
		}
	}
	tst.Fatalf("node %s not found in %v", label, g.Labels())
	return -1
}

var (
	// kid is heterozygous, the parents are not
	deNovo = pileup.RawDepths{{30, 0, 0, 0}, {30, 0, 0, 0}, {15, 15, 0, 0}}
	// everybody is homozygous for the reference
	concordant = pileup.RawDepths{{10, 0, 0, 0}, {10, 0, 0, 0}, {10, 0, 0, 0}}
)

func TestDeNovoTrio(tst *testing.T) {
	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	c := NewCallMutations(0.1, g, testParams)

	var stats Stats
	require.True(tst, c.Call(deNovo, genotype.A, &stats))
	assert.True(tst, stats.Mup > 0.99, "mup=%v", stats.Mup)
	assert.True(tst, stats.Mu1p > 0.99, "mu1p=%v", stats.Mu1p)
	assert.InDelta(tst, 1, stats.Mux, 0.05)
	assert.Equal(tst, "GL-kid", stats.Dnl)
	assert.Equal(tst, "AAxAA>AC", stats.Dnt)
	assert.True(tst, stats.Dnq >= 20, "dnq=%v", stats.Dnq)
	assert.Equal(tst, "ACGT", stats.Alleles)
	assert.True(tst, stats.Lld < 0)

	kid := nodeIndex(tst, g, "GL-kid")
	assert.InDelta(tst, 1, stats.NodeMup[kid], 0.01)
	assert.InDelta(tst, 1, stats.NodeMu1p[kid], 0.01)
	assert.InDelta(tst, 1, floats.Sum(stats.NodeMu1p), smallDiff)

	// AC is genotype 1
	assert.True(tst, stats.PosteriorProbabilities[kid][1] > 0.99)
	require.Len(tst, stats.GenotypeLikelihoods, 3)
	for _, gl := range stats.GenotypeLikelihoods {
		assert.Len(tst, gl, genotype.NDiploid)
		assert.InDelta(tst, 0, floats.Max(gl), smallDiff)
	}
}

func TestPosteriorsSumToOne(tst *testing.T) {
	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	c := NewCallMutations(0, g, testParams)
	for _, d := range []pileup.RawDepths{deNovo, concordant, {{0, 0, 0, 0}, {3, 2, 0, 0}, {0, 0, 7, 1}}} {
		var stats Stats
		require.True(tst, c.Call(d, genotype.A, &stats))
		require.Len(tst, stats.PosteriorProbabilities, g.NumNodes())
		for _, p := range stats.PosteriorProbabilities {
			assert.InDelta(tst, 1, floats.Sum(p), smallDiff)
		}
	}
}

func TestNoMutationRate(tst *testing.T) {
	p, err := pedigree.ParsePed(strings.NewReader(trioPed))
	require.NoError(tst, err)
	r, err := readgroup.Parse(strings.NewReader(trioRG))
	require.NoError(tst, err)
	g, err := graph.Construct(p, r, graph.Autosomal, 0, 0, 0)
	require.NoError(tst, err)
	c := NewCallMutations(0, g, testParams)
	var stats Stats
	require.True(tst, c.Call(deNovo, genotype.A, &stats))
	assert.InDelta(tst, 0, stats.Mup, smallDiff)
	assert.InDelta(tst, 0, stats.Mu1p, smallDiff)
	assert.Equal(tst, "", stats.Dnl)

	// the zero and full passes agree, stats must stay finite
	for _, mu := range []float64{0, 1e-17} {
		g, err := graph.Construct(p, r, graph.Autosomal, mu, 0, 0)
		require.NoError(tst, err)
		c := NewCallMutations(0, g, testParams)
		for _, d := range []pileup.RawDepths{concordant, deNovo} {
			var stats Stats
			require.True(tst, c.Call(d, genotype.A, &stats), "mu=%v", mu)
			assert.False(tst, math.Signbit(stats.Mup), "mu=%v", mu)
			for i, v := range stats.NodeMup {
				assert.False(tst, math.IsNaN(v) || math.IsInf(v, 0), "mu=%v node %d: %v", mu, i, v)
			}
			_, err := json.Marshal(stats)
			assert.NoError(tst, err, "mu=%v", mu)
		}
	}
}

func TestMupMonotone(tst *testing.T) {
	prev := -1.0
	for _, mu := range []float64{1e-9, 1e-8, 1e-7, 1e-6} {
		g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, mu)
		c := NewCallMutations(0, g, testParams)
		var stats Stats
		require.True(tst, c.Call(concordant, genotype.A, &stats))
		assert.True(tst, stats.Mup > prev, "mu=%v mup=%v prev=%v", mu, stats.Mup, prev)
		prev = stats.Mup
	}
}

func TestConcordantNotCalled(tst *testing.T) {
	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	c := NewCallMutations(0.1, g, testParams)
	stats := Stats{Mup: -1, Dnl: "untouched"}
	assert.False(tst, c.Call(concordant, genotype.A, &stats))
	assert.Equal(tst, Stats{Mup: -1, Dnl: "untouched"}, stats)
	assert.False(tst, c.Call(concordant, genotype.A, nil))
	assert.True(tst, c.Call(deNovo, genotype.A, nil))
}

func TestIdempotence(tst *testing.T) {
	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	c := NewCallMutations(0, g, testParams)

	var s1, s2 Stats
	require.True(tst, c.Call(deNovo, genotype.A, &s1))
	// a different site in between
	c.Call(concordant, genotype.C, nil)
	require.True(tst, c.Call(deNovo, genotype.A, &s2))
	assert.Equal(tst, s1, s2)

	v1 := c.LogProbability.Call(deNovo, genotype.A)
	v2 := c.LogProbability.Call(deNovo, genotype.A)
	assert.Equal(tst, v1, v2)

	// copies don't share workspaces
	cp := c.Copy()
	var s3 Stats
	require.True(tst, cp.Call(deNovo, genotype.A, &s3))
	assert.Equal(tst, s1, s3)
}

func TestLogProbability(tst *testing.T) {
	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	lp := NewLogProbability(g, testParams)

	v := lp.Call(concordant, genotype.A)
	assert.True(tst, v.LogData <= 0)
	assert.InDelta(tst, v.LogData+v.LogScale, v.Total(), smallDiff)

	// no reads: the likelihood of no data is one
	empty := pileup.RawDepths{{}, {}, {}}
	assert.InDelta(tst, 0, lp.Call(empty, genotype.A).Total(), smallDiff)

	// the de novo site is less likely than the concordant one
	assert.True(tst, lp.Call(deNovo, genotype.A).LogData < lp.Call(concordant, genotype.A).LogData)
}

func TestCallAlleles(tst *testing.T) {
	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	c := NewCallMutations(0.1, g, testParams)

	ad := pileup.NewAlleleDepths(deNovo, genotype.A)
	assert.Equal(tst, "AC", genotype.Colors[ad.Color].String())

	full := c.LogProbability.Call(deNovo, genotype.A).Total()
	sub := c.LogProbability.CallAlleles(ad).Total()
	assert.True(tst, sub <= full+smallDiff, "sub=%v full=%v", sub, full)
	assert.InDelta(tst, full, sub, 1e-3)

	var fs, cs Stats
	require.True(tst, c.Call(deNovo, genotype.A, &fs))
	require.True(tst, c.CallAlleles(ad, &cs))
	assert.Equal(tst, "AC", cs.Alleles)
	assert.InDelta(tst, fs.Mup, cs.Mup, 1e-6)
	assert.Equal(tst, fs.Dnl, cs.Dnl)
	assert.Equal(tst, fs.Dnt, cs.Dnt)

	kid := nodeIndex(tst, g, "GL-kid")
	// AA, AC, CC
	require.Len(tst, cs.PosteriorProbabilities[kid], 3)
	assert.InDelta(tst, fs.PosteriorProbabilities[kid][1], cs.PosteriorProbabilities[kid][1], 1e-6)
}

func TestXLinked(tst *testing.T) {
	g := buildGraph(tst, "f dad 0 0 1\nf mom 0 0 2\nf son dad mom 1\n", "L1 dad\nL2 mom\nL3 son\n", graph.XLinked, 1e-8)
	c := NewCallMutations(0, g, testParams)
	var stats Stats
	require.True(tst, c.Call(concordant, genotype.A, &stats))
	son := nodeIndex(tst, g, "GL-son")
	mom := nodeIndex(tst, g, "GL-mom")
	assert.Len(tst, stats.PosteriorProbabilities[son], genotype.NHaploid)
	assert.Len(tst, stats.PosteriorProbabilities[mom], genotype.NDiploid)
	assert.True(tst, stats.PosteriorProbabilities[son][genotype.A] > 0.99)

	// a haploid son inherits from his mother only
	d := pileup.RawDepths{{40, 0, 0, 0}, {40, 0, 0, 0}, {0, 20, 0, 0}}
	require.True(tst, c.Call(d, genotype.A, &stats))
	assert.True(tst, stats.Mup > 0.5, "mup=%v", stats.Mup)
	assert.Equal(tst, "GL-son", stats.Dnl)
	assert.Equal(tst, "AA>C", stats.Dnt)
}

func TestPhred(tst *testing.T) {
	assert.Equal(tst, 20, phred(0.01, 255))
	assert.Equal(tst, 30, phred(0.001, 255))
	assert.Equal(tst, 0, phred(1, 255))
	assert.Equal(tst, 255, phred(0, 255))
	assert.Equal(tst, 255, phred(1e-30, 255))
	assert.Equal(tst, 0, phred(2, 255))
}

func TestModel(tst *testing.T) {
	p, err := pedigree.ParsePed(strings.NewReader(trioPed))
	require.NoError(tst, err)
	r, err := readgroup.Parse(strings.NewReader(trioRG))
	require.NoError(tst, err)
	sites := []*pileup.Site{
		{Chrom: "1", Pos: 1, Ref: genotype.A, Depths: concordant},
		{Chrom: "1", Pos: 2, Ref: genotype.A, Depths: deNovo},
	}
	rates := Rates{Mu: 1e-8, MuSomatic: 1e-12, MuLibrary: 1e-12}
	m, err := NewModel(p, r, graph.Autosomal, rates, testParams, sites)
	require.NoError(tst, err)

	g := buildGraph(tst, trioPed, trioRG, graph.Autosomal, 1e-8)
	lp := NewLogProbability(g, testParams)
	expected := lp.Call(concordant, genotype.A).Total() + lp.Call(deNovo, genotype.A).Total()
	l := m.Likelihood()
	assert.InDelta(tst, expected, l, 1e-9)

	pars := m.GetFloatParameters()
	assert.Equal(tst, []string{"log10_mu", "theta"}, pars.Names(nil))
	assert.InDelta(tst, -8, pars.Values(nil)[0], smallDiff)

	// the de novo site favours a higher rate
	require.NoError(tst, pars.SetValues([]float64{-6, 0.001}))
	assert.InDelta(tst, 1e-6, m.Rates().Mu, 1e-15)
	assert.True(tst, m.Likelihood() > l)

	cp := m.Copy()
	assert.InDelta(tst, m.Likelihood(), cp.Likelihood(), smallDiff)

	_, err = NewModel(p, r, graph.Autosomal, Rates{}, testParams, sites)
	assert.Error(tst, err)
}

func TestModelOptimize(tst *testing.T) {
	logging.SetLevel(logging.WARNING, "optimize")
	p, err := pedigree.ParsePed(strings.NewReader(trioPed))
	require.NoError(tst, err)
	r, err := readgroup.Parse(strings.NewReader(trioRG))
	require.NoError(tst, err)
	sites := []*pileup.Site{{Chrom: "1", Pos: 2, Ref: genotype.A, Depths: deNovo}}
	m, err := NewModel(p, r, graph.Autosomal, Rates{Mu: 1e-8, MuSomatic: 1e-12, MuLibrary: 1e-12}, testParams, sites)
	require.NoError(tst, err)
	start := m.Likelihood()

	opt := optimize.NewDS()
	opt.SetOptimizable(m)
	opt.Quiet = true
	opt.Run(50)
	assert.True(tst, opt.GetMaxL() >= start)
	assert.False(tst, math.IsNaN(opt.GetMaxL()))
}
