package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/godng/checkpoint"
	"bitbucket.org/Davydov/godng/config"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/pileup"
	"bitbucket.org/Davydov/godng/probability"
	"bitbucket.org/Davydov/godng/readgroup"
)

func init() {
	for _, l := range loggers {
		logging.SetLevel(logging.WARNING, l)
	}
}

const pileupData = `# trio
1	100	A	30,0,0,0	30,0,0,0	0,0,9,0	15,15,0,0
1	101	A	20,0,0,0	20,0,0,0	0,0,0,0	20,0,0,0
`

func newTestCaller(tst *testing.T, db *bolt.DB) (*caller, *graph.RelationshipGraph, []*pileup.Site) {
	ped, err := pedigree.ParsePed(strings.NewReader("f dad 0 0 1\nf mom 0 0 2\nf kid dad mom 1\n"))
	require.NoError(tst, err)
	// the third column belongs to a sample outside the pedigree
	rgs, err := readgroup.Parse(strings.NewReader("L1 dad\nL2 mom\nLX stranger\nL3 kid\n"))
	require.NoError(tst, err)
	n := rgs.Len()
	sites, err := pileup.NewReader(strings.NewReader(pileupData), n).ReadAll()
	require.NoError(tst, err)

	p := config.Default()
	g, err := graph.Construct(ped, rgs, p.Model, p.Mu, 1e-12, 1e-12)
	require.NoError(tst, err)
	require.Equal(tst, []int{0, 1, 3}, g.KeepLibraryIndex())
	return &caller{
		CallMutations: probability.NewCallMutations(p.MinProb, g, p.ToProbability()),
		store:         checkpoint.NewStore(db),
		keep:          g.KeepLibraryIndex(),
	}, g, sites
}

func TestCaller(tst *testing.T) {
	db, err := bolt.Open(filepath.Join(tst.TempDir(), "calls.db"), 0600, nil)
	require.NoError(tst, err)
	defer db.Close()

	c, _, sites := newTestCaller(tst, db)
	require.Len(tst, sites, 2)

	sc, resumed, err := c.call(sites[0])
	require.NoError(tst, err)
	assert.False(tst, resumed)
	require.NotNil(tst, sc)
	assert.Equal(tst, "GL-kid", sc.Dnl)
	assert.Equal(tst, "A", sc.Ref)

	sc2, resumed, err := c.call(sites[1])
	require.NoError(tst, err)
	assert.False(tst, resumed)
	assert.Nil(tst, sc2)

	// the second pass reads the database
	again, resumed, err := c.call(sites[0])
	require.NoError(tst, err)
	assert.True(tst, resumed)
	require.NotNil(tst, again)
	assert.Equal(tst, sc.Dnt, again.Dnt)
	assert.InDelta(tst, sc.Mup, again.Mup, 1e-12)

	again, resumed, err = c.call(sites[1])
	require.NoError(tst, err)
	assert.True(tst, resumed)
	assert.Nil(tst, again)
}

func TestAlleles(tst *testing.T) {
	c, _, sites := newTestCaller(tst, nil)
	c.alleles = true
	sc, resumed, err := c.call(sites[0])
	require.NoError(tst, err)
	assert.False(tst, resumed)
	require.NotNil(tst, sc)
	assert.Equal(tst, "AC", sc.Alleles)
	assert.Equal(tst, "AAxAA>AC", sc.Dnt)
}

func TestCallWriter(tst *testing.T) {
	var b bytes.Buffer
	w := newCallWriter(&b)
	require.NoError(tst, w.WriteHeader([]string{"##PEDIGREE=<ID=GL-dad>"}))
	require.NoError(tst, w.Write(&SiteCall{
		Chrom: "1",
		Pos:   100,
		Ref:   "A",
		Stats: probability.Stats{Mup: 0.5, Lld: -10, Mux: 0.5, Mu1p: 0.25, Dnq: 30, Dnl: "GL-kid", Dnt: "AAxAA>AC", Alleles: "ACGT"},
	}))
	require.NoError(tst, w.Write(&SiteCall{Chrom: "1", Pos: 101, Ref: "N", Stats: probability.Stats{Alleles: "AC"}}))
	require.NoError(tst, w.Flush())

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(tst, lines, 4)
	assert.Equal(tst, "##PEDIGREE=<ID=GL-dad>", lines[0])
	assert.Equal(tst, strings.Join(callColumns, "\t"), lines[1])
	assert.Equal(tst, "1\t100\tA\t0.5\t-10\t0.5\t0.25\t30\tGL-kid\tAAxAA>AC\tACGT", lines[2])
	assert.Equal(tst, "1\t101\tN\t0\t0\t0\t0\t0\t.\t.\tAC", lines[3])
}

func TestPlot(tst *testing.T) {
	path := filepath.Join(tst.TempDir(), "mup.png")
	require.NoError(tst, plotMup([]float64{0.2, 0.5, 0.99, 0.999}, path))
	st, err := os.Stat(path)
	require.NoError(tst, err)
	assert.True(tst, st.Size() > 0)

	assert.Error(tst, plotMup(nil, path))
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("short write") }

func TestCloseChecked(tst *testing.T) {
	var err error
	closeChecked(failingCloser{}, &err)
	assert.Error(tst, err)

	// the first error wins
	first := errors.New("first")
	err = first
	closeChecked(failingCloser{}, &err)
	assert.Equal(tst, first, err)

	err = nil
	closeChecked(nopCloser{&bytes.Buffer{}}, &err)
	assert.NoError(tst, err)
}
