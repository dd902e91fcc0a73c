// Package genotype provides nucleotide and genotype indexing, allele
// colors, population priors and mutation label tables.
//
// Diploid genotypes are unordered allele pairs in colex order:
// AA, AC, CC, AG, CG, GG, AT, CT, GT, TT. Haploid genotypes are
// nucleotides A, C, G, T.
package genotype

import "fmt"

// Nucleotide indices. N is used for unknown reference.
const (
	A = iota
	C
	G
	T
	N
)

const (
	// NNuc is the number of regular nucleotides.
	NNuc = 4
	// NDiploid is the number of diploid genotypes.
	NDiploid = NNuc * (NNuc + 1) / 2
	// NHaploid is the number of haploid genotypes.
	NHaploid = NNuc
	// NPaired is the number of joint genotypes of two diploid
	// parents.
	NPaired = NDiploid * NDiploid
)

// Nucleotides is the nucleotide alphabet in index order.
var Nucleotides = [...]byte{'A', 'C', 'G', 'T', 'N'}

// Ploidy is a number of allele copies carried by a node.
type Ploidy int

const (
	// Haploid nodes carry one allele copy.
	Haploid Ploidy = 1
	// Diploid nodes carry two allele copies.
	Diploid Ploidy = 2
)

// Size returns number of genotypes for a ploidy when nAlleles
// alleles are segregating.
func (p Ploidy) Size(nAlleles int) int {
	if p == Haploid {
		return nAlleles
	}
	return nAlleles * (nAlleles + 1) / 2
}

// String returns "haploid" or "diploid".
func (p Ploidy) String() string {
	switch p {
	case Haploid:
		return "haploid"
	case Diploid:
		return "diploid"
	}
	return fmt.Sprintf("ploidy(%d)", int(p))
}

// diploidAlleles maps a diploid genotype to its two alleles (a <= b).
var diploidAlleles [NDiploid][2]int

func init() {
	for b := 0; b < NNuc; b++ {
		for a := 0; a <= b; a++ {
			diploidAlleles[Index(a, b)] = [2]int{a, b}
		}
	}
}

// Index returns the diploid genotype index of alleles a and b. The
// order of the alleles doesn't matter.
func Index(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return b*(b+1)/2 + a
}

// Alleles returns both alleles of a diploid genotype, smaller first.
func Alleles(g int) (a, b int) {
	return diploidAlleles[g][0], diploidAlleles[g][1]
}

// NucIndex converts a nucleotide letter to its index. Everything
// which is not A, C, G or T (case insensitive) is N.
func NucIndex(c byte) int {
	switch c {
	case 'A', 'a':
		return A
	case 'C', 'c':
		return C
	case 'G', 'g':
		return G
	case 'T', 't', 'U', 'u':
		return T
	}
	return N
}

// Name returns the genotype name, e.g. "AG" for a diploid genotype
// or "G" for a haploid one.
func Name(p Ploidy, g int) string {
	if p == Haploid {
		return string(Nucleotides[g])
	}
	a, b := Alleles(g)
	return string([]byte{Nucleotides[a], Nucleotides[b]})
}

// Names returns names of all the genotypes of a ploidy.
func Names(p Ploidy) []string {
	n := p.Size(NNuc)
	names := make([]string, n)
	for i := range names {
		names[i] = Name(p, i)
	}
	return names
}
