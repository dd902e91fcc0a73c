package mutation

import (
	"strings"
	"testing"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/readgroup"
)

const smallDiff = 1e-12

var freq = [genotype.NNuc]float64{0.3, 0.2, 0.2, 0.3}

func init() {
	logging.SetLevel(logging.ERROR, "graph")
	logging.SetLevel(logging.WARNING, "pedigree")
	logging.SetLevel(logging.WARNING, "readgroup")
}

func rowSums(m *mat64.Dense) []float64 {
	r, c := m.Dims()
	res := make([]float64, r)
	for i := range res {
		for j := 0; j < c; j++ {
			res[i] += m.At(i, j)
		}
	}
	return res
}

func allMatrices(length float64, kind Kind) map[string]*mat64.Dense {
	return map[string]*mat64.Dense{
		"haploid-haploid": Mitotic(genotype.Haploid, genotype.Haploid, length, freq, kind),
		"diploid-haploid": Mitotic(genotype.Diploid, genotype.Haploid, length, freq, kind),
		"diploid-diploid": Mitotic(genotype.Diploid, genotype.Diploid, length, freq, kind),
		"meiotic":         Meiotic(genotype.Diploid, length, genotype.Diploid, 2*length, freq, kind),
		"meiotic-x":       Meiotic(genotype.Haploid, length, genotype.Diploid, length, freq, kind),
	}
}

func TestRowsSumToOne(tst *testing.T) {
	for name, m := range allMatrices(0.1, Full) {
		for i, s := range rowSums(m) {
			assert.InDelta(tst, 1, s, smallDiff, "%s row %d", name, i)
		}
	}
}

func TestShapes(tst *testing.T) {
	m := allMatrices(0.1, Full)
	shape := func(name string) [2]int {
		r, c := m[name].Dims()
		return [2]int{r, c}
	}
	assert.Equal(tst, [2]int{4, 4}, shape("haploid-haploid"))
	assert.Equal(tst, [2]int{10, 4}, shape("diploid-haploid"))
	assert.Equal(tst, [2]int{10, 10}, shape("diploid-diploid"))
	assert.Equal(tst, [2]int{100, 10}, shape("meiotic"))
	assert.Equal(tst, [2]int{40, 10}, shape("meiotic-x"))

	assert.Panics(tst, func() { Mitotic(genotype.Haploid, genotype.Diploid, 0.1, freq, Full) })
}

func TestDecomposition(tst *testing.T) {
	full := allMatrices(0.05, Full)
	zero := allMatrices(0.05, Zero)
	one := allMatrices(0.05, One)
	oneplus := allMatrices(0.05, OnePlus)
	mean := allMatrices(0.05, Mean)
	for name, f := range full {
		r, c := f.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				assert.InDelta(tst, f.At(i, j), zero[name].At(i, j)+oneplus[name].At(i, j), smallDiff, name)
				assert.True(tst, one[name].At(i, j) <= oneplus[name].At(i, j)+smallDiff, name)
				assert.True(tst, mean[name].At(i, j) >= one[name].At(i, j)-smallDiff, name)
			}
		}
	}
}

func TestNoMutation(tst *testing.T) {
	m := Mitotic(genotype.Diploid, genotype.Diploid, 0, freq, Full)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(tst, want, m.At(i, j), smallDiff)
		}
	}
	for name, m := range allMatrices(0, OnePlus) {
		r, c := m.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				assert.Equal(tst, 0.0, m.At(i, j), name)
			}
		}
	}
}

func TestMendelian(tst *testing.T) {
	m := Meiotic(genotype.Diploid, 0, genotype.Diploid, 0, freq, Full)
	aa := genotype.Index(genotype.A, genotype.A)
	cc := genotype.Index(genotype.C, genotype.C)
	ac := genotype.Index(genotype.A, genotype.C)
	assert.InDelta(tst, 1, m.At(aa*genotype.NDiploid+cc, ac), smallDiff)
	assert.InDelta(tst, 0.5, m.At(ac*genotype.NDiploid+aa, aa), smallDiff)
	assert.InDelta(tst, 0.25, m.At(ac*genotype.NDiploid+ac, cc), smallDiff)
	assert.InDelta(tst, 0.5, m.At(ac*genotype.NDiploid+ac, ac), smallDiff)
}

func TestF81(tst *testing.T) {
	c := f81(0.1, freq)
	require.Len(tst, c, 2)
	for i := 0; i < genotype.NNuc; i++ {
		s := 0.0
		for j := 0; j < genotype.NNuc; j++ {
			s += c[0].At(i, j) + c[1].At(i, j)
		}
		assert.InDelta(tst, 1, s, smallDiff)
		assert.Equal(tst, 0.0, c[1].At(i, i))
	}
}

func trioGraph(tst *testing.T) *graph.RelationshipGraph {
	p, err := pedigree.ParsePed(strings.NewReader("f dad 0 0 1\nf mom 0 0 2\nf kid dad mom 1\n"))
	require.NoError(tst, err)
	r, err := readgroup.Parse(strings.NewReader("L1 dad\nL2 mom\nL3 kid\n"))
	require.NoError(tst, err)
	g, err := graph.Construct(p, r, graph.Autosomal, 1e-3, 1e-3, 1e-3)
	require.NoError(tst, err)
	return g
}

func TestCreateMatrices(tst *testing.T) {
	g := trioGraph(tst)
	mats := CreateMatrices(g, freq, Full)
	require.Len(tst, mats, 6)
	assert.Nil(tst, mats[0])
	assert.Nil(tst, mats[1])
	r, c := mats[2].Dims()
	assert.Equal(tst, genotype.NPaired, r)
	assert.Equal(tst, genotype.NDiploid, c)
	for _, s := range rowSums(mats[2]) {
		assert.InDelta(tst, 1, s, smallDiff)
	}
	r, _ = mats[5].Dims()
	assert.Equal(tst, genotype.NDiploid, r)
}

func TestSubset(tst *testing.T) {
	g := trioGraph(tst)
	set := NewSet(g, freq, Full)
	assert.Equal(tst, Full, set.Kind)

	full := set.Color(genotype.FullColor())
	for i, m := range set.Full {
		if m == nil {
			assert.Nil(tst, full[i])
			continue
		}
		assert.True(tst, mat64.Equal(m, full[i]))
	}

	// G and A: local genotypes GG, GA, AA
	ci, ok := genotype.ColorIndex([]int{genotype.G, genotype.A})
	require.True(tst, ok)
	kid := set.Color(ci)[2]
	r, c := kid.Dims()
	assert.Equal(tst, 9, r)
	assert.Equal(tst, 3, c)
	gg := genotype.Index(genotype.G, genotype.G)
	ag := genotype.Index(genotype.A, genotype.G)
	aa := genotype.Index(genotype.A, genotype.A)
	// row: dad GA, mom AA; column: GA
	assert.Equal(tst, set.Full[2].At(ag*genotype.NDiploid+aa, ag), kid.At(1*3+2, 1))
	assert.Equal(tst, set.Full[2].At(gg*genotype.NDiploid+gg, gg), kid.At(0, 0))

	lib := set.Color(ci)[3]
	r, c = lib.Dims()
	assert.Equal(tst, 3, r)
	assert.Equal(tst, 3, c)
	row := make([]float64, 3)
	mat64.Row(row, 2, lib)
	assert.True(tst, floats.Sum(row) < 1)
}
