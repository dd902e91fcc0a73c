// Package genotyper computes genotype likelihoods of sequencing
// libraries from nucleotide read depths using a Dirichlet-multinomial
// model of overdispersed reads.
package genotyper

import (
	"math"

	"github.com/gonum/mathext"

	"bitbucket.org/Davydov/godng/genotype"
)

// Params of the read model for one genotype class.
type Params struct {
	// Overdispersion of reads between 0 and 1 (exclusive).
	Overdispersion float64 `yaml:"overdispersion" json:"overdispersion"`
	// Error is the sequencing error rate between 0 and 1 (exclusive).
	Error float64 `yaml:"error" json:"error"`
	// RefBias is the relative weight of the reference allele in
	// heterozygotes.
	RefBias float64 `yaml:"ref_bias" json:"ref_bias"`
}

// Genotyper computes genotype likelihoods. Homozygous and haploid
// genotypes use the A parameters, heterozygous ones the B parameters.
// It holds no state between calls and can be shared.
type Genotyper struct {
	a, b Params
}

// minError keeps every nucleotide possible in a read, Lbeta(0, n)
// is not finite.
const minError = 1e-9

// New creates a genotyper.
func New(a, b Params) *Genotyper {
	return &Genotyper{a: a, b: b}
}

// frequencies returns the expected read nucleotide frequencies for a
// genotype with alleles x and y (x == y for homozygotes).
func (g *Genotyper) frequencies(x, y, ref int) (f [genotype.NNuc]float64, p Params) {
	if x == y {
		p = g.a
		e := math.Max(p.Error, minError)
		for i := range f {
			f[i] = e / 3
		}
		f[x] = 1 - e
		return
	}
	p = g.b
	e := math.Max(p.Error, minError)
	wx, wy := 1.0, 1.0
	if x == ref {
		wx = p.RefBias
	}
	if y == ref {
		wy = p.RefBias
	}
	for i := range f {
		f[i] = e / 2
	}
	f[x] = (1 - e) * wx / (wx + wy)
	f[y] = (1 - e) * wy / (wx + wy)
	return
}

// logDM returns the Dirichlet-multinomial log probability of the
// counts up to a constant which doesn't depend on the genotype.
func logDM(counts [genotype.NNuc]int, f [genotype.NNuc]float64, overdispersion float64) float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	scale := (1 - overdispersion) / overdispersion
	res := math.Log(float64(n)) + mathext.Lbeta(scale, float64(n))
	for k, c := range counts {
		if c == 0 {
			continue
		}
		res -= math.Log(float64(c)) + mathext.Lbeta(f[k]*scale, float64(c))
	}
	return res
}

// Likelihoods fills dst with likelihoods of the given genotypes of a
// ploidy, relative to the most likely one, and returns the log of the
// scale. genotypes holds indices among all genotypes of the ploidy.
// Libraries without reads get flat likelihoods.
func (g *Genotyper) Likelihoods(counts [genotype.NNuc]int, ref int, ploidy genotype.Ploidy, genotypes []int, dst []float64) (scale float64) {
	if len(dst) != len(genotypes) {
		panic("genotyper: length mismatch")
	}
	empty := true
	for _, c := range counts {
		if c > 0 {
			empty = false
		}
	}
	if empty {
		for i := range dst {
			dst[i] = 1
		}
		return 0
	}
	scale = math.Inf(-1)
	for i, gt := range genotypes {
		x, y := gt, gt
		if ploidy == genotype.Diploid {
			x, y = genotype.Alleles(gt)
		}
		f, p := g.frequencies(x, y, ref)
		dst[i] = logDM(counts, f, p.Overdispersion)
		if dst[i] > scale {
			scale = dst[i]
		}
	}
	for i, v := range dst {
		dst[i] = math.Exp(v - scale)
	}
	return scale
}

var allGenotypes = map[genotype.Ploidy][]int{
	genotype.Haploid: {0, 1, 2, 3},
	genotype.Diploid: {0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
}

// All fills dst with likelihoods of all genotypes of a ploidy.
func (g *Genotyper) All(counts [genotype.NNuc]int, ref int, ploidy genotype.Ploidy, dst []float64) float64 {
	return g.Likelihoods(counts, ref, ploidy, allGenotypes[ploidy], dst)
}
