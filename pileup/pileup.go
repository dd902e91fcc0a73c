// Package pileup provides per-site read depth types: raw nucleotide
// depths of every library and depths aggregated over the alleles
// observed at a site.
package pileup

import (
	"sort"

	"bitbucket.org/Davydov/godng/genotype"
)

// Depth holds read counts of A, C, G and T.
type Depth [genotype.NNuc]int

// Total returns the number of reads.
func (d Depth) Total() (n int) {
	for _, c := range d {
		n += c
	}
	return
}

// RawDepths holds depths of every library at a site, in read group
// order.
type RawDepths []Depth

// Select returns depths of the libraries with the given indices.
func (r RawDepths) Select(keep []int) RawDepths {
	res := make(RawDepths, len(keep))
	for i, k := range keep {
		res[i] = r[k]
	}
	return res
}

// totals sums depths over libraries.
func (r RawDepths) totals() (t Depth) {
	for _, d := range r {
		for k, c := range d {
			t[k] += c
		}
	}
	return
}

// AlleleDepths holds depths of the alleles of a color: Counts[l][k]
// is the number of reads of library l supporting allele k of the
// color. Ref is the reference nucleotide of the site, possibly N.
type AlleleDepths struct {
	Color  int
	Ref    int
	Counts [][]int
}

// Alleles returns the alleles of the color.
func (a AlleleDepths) Alleles() []int {
	return genotype.Colors[a.Color].Alleles
}

// Depth returns raw depths of a library; alleles outside the color
// have no reads.
func (a AlleleDepths) Depth(l int) (d Depth) {
	for k, x := range a.Alleles() {
		d[x] = a.Counts[l][k]
	}
	return
}

// NewAlleleDepths aggregates raw depths. The reference goes first
// followed by the other observed alleles by decreasing total depth.
// If the reference is unknown the most covered allele goes first.
func NewAlleleDepths(raw RawDepths, ref int) AlleleDepths {
	t := raw.totals()
	order := []int{genotype.A, genotype.C, genotype.G, genotype.T}
	sort.SliceStable(order, func(i, j int) bool {
		return t[order[i]] > t[order[j]]
	})
	var alleles []int
	if ref >= 0 && ref < genotype.NNuc {
		alleles = append(alleles, ref)
	}
	for _, x := range order {
		if x == ref || (t[x] == 0 && len(alleles) > 0) {
			continue
		}
		alleles = append(alleles, x)
	}
	color, ok := genotype.ColorIndex(alleles)
	if !ok {
		panic("pileup: color not found")
	}
	res := AlleleDepths{Color: color, Ref: ref, Counts: make([][]int, len(raw))}
	for l, d := range raw {
		res.Counts[l] = make([]int, len(alleles))
		for k, x := range alleles {
			res.Counts[l][k] = d[x]
		}
	}
	return res
}
