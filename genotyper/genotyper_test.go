package genotyper

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/stretchr/testify/assert"

	"bitbucket.org/Davydov/godng/genotype"
)

var (
	paramsA = Params{Overdispersion: 0.001, Error: 0.0005, RefBias: 1}
	paramsB = Params{Overdispersion: 0.01, Error: 0.0005, RefBias: 1}
)

func TestFrequencies(tst *testing.T) {
	g := New(paramsA, Params{Overdispersion: 0.01, Error: 0.01, RefBias: 3})
	for gt := 0; gt < genotype.NDiploid; gt++ {
		x, y := genotype.Alleles(gt)
		f, _ := g.frequencies(x, y, genotype.A)
		assert.InDelta(tst, 1, floats.Sum(f[:]), 1e-12)
	}
	f, p := g.frequencies(genotype.A, genotype.C, genotype.A)
	assert.Equal(tst, 3.0, p.RefBias)
	assert.InDelta(tst, 0.99*0.75, f[genotype.A], 1e-12)
	assert.InDelta(tst, 0.99*0.25, f[genotype.C], 1e-12)
	assert.InDelta(tst, 0.005, f[genotype.T], 1e-12)
}

func TestHomozygote(tst *testing.T) {
	g := New(paramsA, paramsB)
	dst := make([]float64, genotype.NDiploid)
	scale := g.All([genotype.NNuc]int{0, 0, 30, 0}, genotype.A, genotype.Diploid, dst)
	assert.True(tst, scale < 0)
	assert.Equal(tst, genotype.Index(genotype.G, genotype.G), floats.MaxIdx(dst))
	assert.Equal(tst, 1.0, dst[floats.MaxIdx(dst)])
	assert.True(tst, dst[genotype.Index(genotype.A, genotype.G)] < 1e-3)
}

func TestHeterozygote(tst *testing.T) {
	g := New(paramsA, paramsB)
	dst := make([]float64, genotype.NDiploid)
	g.All([genotype.NNuc]int{15, 0, 0, 14}, genotype.A, genotype.Diploid, dst)
	assert.Equal(tst, genotype.Index(genotype.A, genotype.T), floats.MaxIdx(dst))

	hap := make([]float64, genotype.NHaploid)
	g.All([genotype.NNuc]int{0, 20, 0, 0}, genotype.A, genotype.Haploid, hap)
	assert.Equal(tst, genotype.C, floats.MaxIdx(hap))
}

func TestNoReads(tst *testing.T) {
	g := New(paramsA, paramsB)
	dst := make([]float64, genotype.NDiploid)
	scale := g.All([genotype.NNuc]int{}, genotype.N, genotype.Diploid, dst)
	assert.Equal(tst, 0.0, scale)
	for _, v := range dst {
		assert.Equal(tst, 1.0, v)
	}
}

func TestSubset(tst *testing.T) {
	g := New(paramsA, paramsB)
	counts := [genotype.NNuc]int{10, 3, 0, 0}
	full := make([]float64, genotype.NDiploid)
	fullScale := g.All(counts, genotype.A, genotype.Diploid, full)

	proj := genotype.Color{Alleles: []int{genotype.A, genotype.C}}.Project(genotype.Diploid)
	sub := make([]float64, len(proj))
	subScale := g.Likelihoods(counts, genotype.A, genotype.Diploid, proj, sub)
	for i, gt := range proj {
		assert.InDelta(tst, full[gt]*math.Exp(fullScale-subScale), sub[i], 1e-12)
	}
}

func TestZeroError(tst *testing.T) {
	exact := Params{Overdispersion: 0.001, Error: 0, RefBias: 1}
	g := New(exact, exact)
	dst := make([]float64, genotype.NDiploid)
	scale := g.All([genotype.NNuc]int{5, 5, 5, 0}, genotype.A, genotype.Diploid, dst)
	assert.False(tst, math.IsInf(scale, 0) || math.IsNaN(scale), "scale=%v", scale)
	for i, v := range dst {
		assert.False(tst, math.IsNaN(v), "genotype %d", i)
	}
	assert.Equal(tst, 1.0, floats.Max(dst))
}
