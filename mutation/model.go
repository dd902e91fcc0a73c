// Package mutation computes transition matrices P(descendant genotype |
// ancestor genotypes) under the F81 mutation model, decomposed by the
// number of mutations.
package mutation

import (
	"math"

	"github.com/gonum/matrix/mat64"

	"bitbucket.org/Davydov/godng/genotype"
)

// Kind selects which part of the transition probability is returned.
type Kind int

const (
	// Full is the complete transition probability.
	Full Kind = iota
	// Zero is the probability of the transition without mutations.
	Zero
	// One is the probability of the transition with exactly one
	// mutation.
	One
	// Mean is the expected number of mutations times the transition
	// probability.
	Mean
	// OnePlus is the probability of the transition with at least one
	// mutation (Full minus Zero).
	OnePlus
)

var kindNames = [...]string{"full", "zero", "one", "mean", "oneplus"}

// String returns the kind name.
func (k Kind) String() string {
	return kindNames[k]
}

// weight returns the coefficient of the k-mutation component.
func (k Kind) weight(n int) float64 {
	switch k {
	case Full:
		return 1
	case Zero:
		if n == 0 {
			return 1
		}
	case One:
		if n == 1 {
			return 1
		}
	case Mean:
		return float64(n)
	case OnePlus:
		if n >= 1 {
			return 1
		}
	}
	return 0
}

// components holds a matrix for every number of mutations.
type components []*mat64.Dense

// collapse sums components weighted for the kind.
func (c components) collapse(kind Kind) *mat64.Dense {
	rows, cols := c[0].Dims()
	res := mat64.NewDense(rows, cols, nil)
	for n, m := range c {
		w := kind.weight(n)
		if w == 0 {
			continue
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				res.Set(i, j, res.At(i, j)+w*m.At(i, j))
			}
		}
	}
	return res
}

// f81 returns nucleotide transition components for a branch of the
// given length (expected mutations per site): no mutation and one
// mutation. A mutation to the same nucleotide counts as none.
func f81(length float64, freq [genotype.NNuc]float64) components {
	var sq float64
	for _, f := range freq {
		sq += f * f
	}
	beta := 1 / (1 - sq)
	p := -math.Expm1(-beta * length)

	zero := mat64.NewDense(genotype.NNuc, genotype.NNuc, nil)
	one := mat64.NewDense(genotype.NNuc, genotype.NNuc, nil)
	for i := 0; i < genotype.NNuc; i++ {
		for j := 0; j < genotype.NNuc; j++ {
			if i == j {
				zero.Set(i, j, 1-p+p*freq[j])
			} else {
				one.Set(i, j, p*freq[j])
			}
		}
	}
	return components{zero, one}
}

// gamete returns components of P(transmitted allele | parent genotype):
// a diploid parent transmits either allele with probability one half.
func gamete(parent genotype.Ploidy, length float64, freq [genotype.NNuc]float64) components {
	h := f81(length, freq)
	if parent == genotype.Haploid {
		return h
	}
	res := make(components, len(h))
	for n, hn := range h {
		g := mat64.NewDense(genotype.NDiploid, genotype.NNuc, nil)
		for gp := 0; gp < genotype.NDiploid; gp++ {
			a, b := genotype.Alleles(gp)
			for x := 0; x < genotype.NNuc; x++ {
				g.Set(gp, x, 0.5*hn.At(a, x)+0.5*hn.At(b, x))
			}
		}
		res[n] = g
	}
	return res
}

// pairUp combines independent transmissions of two alleles into a
// diploid genotype. left and right have rows for the first and the
// second source; row of the result is left row * rows(right) + right
// row. The number of mutations adds up.
func pairUp(left, right components, rowOf func(l, r int) int, nrows int) components {
	res := make(components, len(left)+len(right)-1)
	for n := range res {
		res[n] = mat64.NewDense(nrows, genotype.NDiploid, nil)
	}
	lrows, _ := left[0].Dims()
	rrows, _ := right[0].Dims()
	for nl, l := range left {
		for nr, r := range right {
			m := res[nl+nr]
			for i := 0; i < lrows; i++ {
				for j := 0; j < rrows; j++ {
					row := rowOf(i, j)
					for y := 0; y < genotype.NNuc; y++ {
						for x := 0; x <= y; x++ {
							v := l.At(i, x) * r.At(j, y)
							if x != y {
								v += l.At(i, y) * r.At(j, x)
							}
							g := genotype.Index(x, y)
							m.Set(row, g, m.At(row, g)+v)
						}
					}
				}
			}
		}
	}
	return res
}

// mitotic returns components of a mitotic (somatic, library or
// single-parent germline) transition.
func mitotic(parent, child genotype.Ploidy, length float64, freq [genotype.NNuc]float64) components {
	switch {
	case child == genotype.Haploid:
		return gamete(parent, length, freq)
	case parent == genotype.Diploid:
		h := f81(length, freq)
		// a diploid cell copies both alleles; the parent genotype {a, b}
		// is a pair of haploid sources
		first := make(components, len(h))
		second := make(components, len(h))
		for n, hn := range h {
			first[n] = mat64.NewDense(genotype.NDiploid, genotype.NNuc, nil)
			second[n] = mat64.NewDense(genotype.NDiploid, genotype.NNuc, nil)
			for gp := 0; gp < genotype.NDiploid; gp++ {
				a, b := genotype.Alleles(gp)
				for x := 0; x < genotype.NNuc; x++ {
					first[n].Set(gp, x, hn.At(a, x))
					second[n].Set(gp, x, hn.At(b, x))
				}
			}
		}
		return zipPair(first, second)
	}
	panic("haploid parent of a diploid node")
}

// zipPair is pairUp for two sources sharing the row.
func zipPair(first, second components) components {
	rows, _ := first[0].Dims()
	res := make(components, len(first)+len(second)-1)
	for n := range res {
		res[n] = mat64.NewDense(rows, genotype.NDiploid, nil)
	}
	for nl, l := range first {
		for nr, r := range second {
			m := res[nl+nr]
			for i := 0; i < rows; i++ {
				for y := 0; y < genotype.NNuc; y++ {
					for x := 0; x <= y; x++ {
						v := l.At(i, x) * r.At(i, y)
						if x != y {
							v += l.At(i, y) * r.At(i, x)
						}
						g := genotype.Index(x, y)
						m.Set(i, g, m.At(i, g)+v)
					}
				}
			}
		}
	}
	return res
}

// meiotic returns components of a transition from the joint genotype
// of two parents to a diploid child which got one allele from each.
func meiotic(dad genotype.Ploidy, dadLength float64, mom genotype.Ploidy, momLength float64, freq [genotype.NNuc]float64) components {
	kd, km := dad.Size(genotype.NNuc), mom.Size(genotype.NNuc)
	gd := gamete(dad, dadLength, freq)
	gm := gamete(mom, momLength, freq)
	return pairUp(gd, gm, func(i, j int) int { return i*km + j }, kd*km)
}

// Mitotic returns a mitotic transition matrix.
func Mitotic(parent, child genotype.Ploidy, length float64, freq [genotype.NNuc]float64, kind Kind) *mat64.Dense {
	return mitotic(parent, child, length, freq).collapse(kind)
}

// Meiotic returns a meiotic transition matrix; rows are joint
// father*mother genotypes.
func Meiotic(dad genotype.Ploidy, dadLength float64, mom genotype.Ploidy, momLength float64, freq [genotype.NNuc]float64, kind Kind) *mat64.Dense {
	return meiotic(dad, dadLength, mom, momLength, freq).collapse(kind)
}
