package genotype

import (
	"testing"

	"github.com/gonum/floats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallDiff = 1e-12

func TestIndexOrder(tst *testing.T) {
	names := Names(Diploid)
	assert.Equal(tst, []string{"AA", "AC", "CC", "AG", "CG", "GG", "AT", "CT", "GT", "TT"}, names)
	for g := 0; g < NDiploid; g++ {
		a, b := Alleles(g)
		assert.Equal(tst, g, Index(a, b))
		assert.Equal(tst, g, Index(b, a))
	}
	assert.Equal(tst, []string{"A", "C", "G", "T"}, Names(Haploid))
}

func TestNucIndex(tst *testing.T) {
	for i, c := range []byte("ACGTacgtNx") {
		want := i % 4
		if i >= 8 {
			want = N
		}
		assert.Equal(tst, want, NucIndex(c), "letter %c", c)
	}
}

func TestColors(tst *testing.T) {
	seen := make(map[string]bool)
	for i, c := range Colors {
		s := c.String()
		require.False(tst, seen[s], "duplicate color %s", s)
		seen[s] = true
		j, ok := ColorIndex(c.Alleles)
		require.True(tst, ok)
		assert.Equal(tst, i, j)
	}
	assert.Len(tst, seen, NColors)
	assert.Equal(tst, "ACGT", Colors[FullColor()].String())

	_, ok := ColorIndex([]int{A, A})
	assert.False(tst, ok)
}

func TestProject(tst *testing.T) {
	i, ok := ColorIndex([]int{G, A})
	require.True(tst, ok)
	c := Colors[i]
	assert.Equal(tst, []int{G, A}, c.Project(Haploid))
	// local order GG, GA, AA
	assert.Equal(tst, []int{Index(G, G), Index(A, G), Index(A, A)}, c.Project(Diploid))

	full := Colors[FullColor()]
	for g, h := range full.Project(Diploid) {
		assert.Equal(tst, g, h)
	}
}

func TestPriorSumsToOne(tst *testing.T) {
	freq := [NNuc]float64{0.3, 0.2, 0.2, 0.3}
	for ref := 0; ref <= N; ref++ {
		d := DiploidPrior(0.001, freq, 1, ref)
		h := HaploidPrior(0.001, freq, 1, ref)
		assert.InDelta(tst, 1, floats.Sum(d), smallDiff)
		assert.InDelta(tst, 1, floats.Sum(h), smallDiff)
		if ref < N {
			assert.Equal(tst, Index(ref, ref), floats.MaxIdx(d))
			assert.Equal(tst, ref, floats.MaxIdx(h))
		}
	}
	// without the reference weight the prior follows frequencies
	h := HaploidPrior(1, freq, 0, N)
	for i := range h {
		assert.InDelta(tst, freq[i], h[i], smallDiff)
	}
}

func TestLabels(tst *testing.T) {
	assert.Equal(tst, "AA>AC", Mitotic(Diploid, Diploid)[Index(A, A)][Index(A, C)])
	assert.Equal(tst, "AC>T", Mitotic(Diploid, Haploid)[Index(A, C)][T])
	joint := Index(A, A)*NDiploid + Index(C, C)
	assert.Equal(tst, "AAxCC>AT", Meiotic(Diploid, Diploid)[joint][Index(A, T)])
	assert.Equal(tst, "GxCC>CG", Meiotic(Haploid, Diploid)[G*NDiploid+Index(C, C)][Index(C, G)])
	assert.Len(tst, Meiotic(Diploid, Diploid), NPaired)
}
