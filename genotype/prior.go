package genotype

import (
	"github.com/gonum/floats"
)

// alphas returns Dirichlet parameters of the population allele
// distribution: theta times the nucleotide frequency, plus the
// reference weight on the reference nucleotide (ignored for N).
func alphas(theta float64, nucFreq [NNuc]float64, refWeight float64, ref int) (alpha [NNuc]float64, sum float64) {
	for i := range alpha {
		alpha[i] = theta * nucFreq[i]
	}
	if ref >= 0 && ref < NNuc {
		alpha[ref] += refWeight
	}
	sum = floats.Sum(alpha[:])
	return
}

// DiploidPrior returns founder genotype probabilities for diploid
// individuals under the Dirichlet-multinomial population model.
func DiploidPrior(theta float64, nucFreq [NNuc]float64, refWeight float64, ref int) []float64 {
	alpha, sum := alphas(theta, nucFreq, refWeight, ref)
	res := make([]float64, NDiploid)
	for j := 0; j < NNuc; j++ {
		for i := 0; i <= j; i++ {
			p := alpha[i] * alpha[j] / (sum * (1 + sum))
			if i == j {
				p = alpha[i] * (alpha[j] + 1) / (sum * (1 + sum))
			} else {
				p *= 2
			}
			res[Index(i, j)] = p
		}
	}
	return res
}

// HaploidPrior returns founder genotype probabilities for haploid
// individuals.
func HaploidPrior(theta float64, nucFreq [NNuc]float64, refWeight float64, ref int) []float64 {
	alpha, sum := alphas(theta, nucFreq, refWeight, ref)
	res := make([]float64, NHaploid)
	copy(res, alpha[:])
	floats.Scale(1/sum, res)
	return res
}

// Prior returns founder priors for the ploidy.
func Prior(p Ploidy, theta float64, nucFreq [NNuc]float64, refWeight float64, ref int) []float64 {
	if p == Haploid {
		return HaploidPrior(theta, nucFreq, refWeight, ref)
	}
	return DiploidPrior(theta, nucFreq, refWeight, ref)
}

// ProjectPrior restricts a prior to the genotypes of a color.
func ProjectPrior(prior []float64, c Color, p Ploidy) []float64 {
	proj := c.Project(p)
	res := make([]float64, len(proj))
	for i, g := range proj {
		res[i] = prior[g]
	}
	return res
}
