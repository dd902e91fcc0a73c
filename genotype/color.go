package genotype

import "strings"

// Color is an ordered list of distinct alleles observed at a site,
// the reference (or the most covered allele) first. Subset genotypes
// are indexed over positions in this list.
type Color struct {
	Alleles []int
}

// NColors is the number of entries in the color table.
const NColors = 64

// Colors is the table of all colors. For every leading allele there
// are 16 entries: alone, followed by one, two or three of the other
// alleles in every order.
var Colors [NColors]Color

// colorIndex maps a color string (e.g. "GAT") to the table index.
var colorIndex = make(map[string]int, NColors)

func init() {
	i := 0
	for ref := 0; ref < NNuc; ref++ {
		var others []int
		for o := 0; o < NNuc; o++ {
			if o != ref {
				others = append(others, o)
			}
		}
		add := func(alleles ...int) {
			Colors[i] = Color{Alleles: append([]int{ref}, alleles...)}
			colorIndex[Colors[i].String()] = i
			i++
		}
		add()
		for _, a := range others {
			add(a)
		}
		for _, a := range others {
			for _, b := range others {
				if a != b {
					add(a, b)
				}
			}
		}
		for _, a := range others {
			for _, b := range others {
				for _, c := range others {
					if a != b && a != c && b != c {
						add(a, b, c)
					}
				}
			}
		}
	}
	if i != NColors {
		panic("color table size mismatch")
	}
}

// ColorIndex returns the table index for an allele list.
func ColorIndex(alleles []int) (int, bool) {
	i, ok := colorIndex[Color{Alleles: alleles}.String()]
	return i, ok
}

// FullColor returns the color index with all four nucleotides in
// natural order.
func FullColor() int {
	i, _ := ColorIndex([]int{A, C, G, T})
	return i
}

// NAlleles returns the number of alleles in the color.
func (c Color) NAlleles() int {
	return len(c.Alleles)
}

// Ref returns the first allele of the color.
func (c Color) Ref() int {
	return c.Alleles[0]
}

// Project returns, for every subset genotype of the ploidy, the index
// of the same genotype among all genotypes.
func (c Color) Project(p Ploidy) []int {
	n := len(c.Alleles)
	res := make([]int, p.Size(n))
	if p == Haploid {
		copy(res, c.Alleles)
		return res
	}
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			res[j*(j+1)/2+i] = Index(c.Alleles[i], c.Alleles[j])
		}
	}
	return res
}

// String returns alleles as letters, e.g. "GAT".
func (c Color) String() string {
	var b strings.Builder
	for _, a := range c.Alleles {
		b.WriteByte(Nucleotides[a])
	}
	return b.String()
}
