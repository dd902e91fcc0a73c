package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/godng/graph"
)

func init() {
	logging.SetLevel(logging.WARNING, "config")
}

func TestDefault(tst *testing.T) {
	p := Default()
	require.NoError(tst, p.Validate())
	pp := p.ToProbability()
	assert.Equal(tst, [4]float64{0.3, 0.2, 0.2, 0.3}, pp.NucFreq)
	assert.Equal(tst, p.Homozygous, pp.ParamsA)
	assert.Equal(tst, 1e-8, p.Rates().Mu)
}

func TestRead(tst *testing.T) {
	p, err := Read(strings.NewReader(`
model: x-linked
theta: 0.01
mu: 1.0e-9
nuc_freqs: [0.25, 0.25, 0.25, 0.25]
heterozygous:
  overdispersion: 0.01
  error: 0.001
  ref_bias: 1.2
`))
	require.NoError(tst, err)
	assert.Equal(tst, graph.XLinked, p.Model)
	assert.Equal(tst, 0.01, p.Theta)
	assert.Equal(tst, 1e-9, p.Mu)
	assert.Equal(tst, 1.2, p.Heterozygous.RefBias)
	// untouched values keep defaults
	assert.Equal(tst, Default().Homozygous, p.Homozygous)
	assert.Equal(tst, 0.1, p.MinProb)

	p, err = Read(strings.NewReader(""))
	require.NoError(tst, err)
	assert.Equal(tst, Default(), p)
}

func TestReadErrors(tst *testing.T) {
	for _, s := range []string{
		"model: nuclear\n",
		"theta: 0\n",
		"nuc_freqs: [0.5, 0.5]\n",
		"nuc_freqs: [0.5, 0.5, 0.5, 0.5]\n",
		"mu: -1\n",
		"homozygous: {overdispersion: 0}\n",
		"heterozygous: {ref_bias: 0}\n",
		"homozygous: {error: 0}\n",
		"heterozygous: {error: 1}\n",
		"min_prob: 2\n",
		"unknown_field: 1\n",
	} {
		_, err := Read(strings.NewReader(s))
		assert.Error(tst, err, s)
	}
}

func TestWriteLoad(tst *testing.T) {
	p := Default()
	p.Model = graph.Maternal
	p.MuSomatic = 1e-7

	var b bytes.Buffer
	require.NoError(tst, p.Write(&b))
	assert.Contains(tst, b.String(), "model: maternal")

	path := filepath.Join(tst.TempDir(), "params.yaml")
	require.NoError(tst, os.WriteFile(path, b.Bytes(), 0644))
	q, err := Load(path)
	require.NoError(tst, err)
	assert.Equal(tst, p, q)

	_, err = Load(filepath.Join(tst.TempDir(), "missing.yaml"))
	assert.Error(tst, err)
}

func TestOverride(tst *testing.T) {
	p := Default()
	require.NoError(tst, p.Override(Overrides{Model: "mitochondria", Theta: -1, Mu: 1e-7, MuSomatic: -1, MuLibrary: 1e-9, MinProb: -1}))
	assert.Equal(tst, graph.Maternal, p.Model)
	assert.Equal(tst, Default().Theta, p.Theta)
	assert.Equal(tst, 1e-7, p.Mu)
	assert.Equal(tst, 0.0, p.MuSomatic)
	assert.Equal(tst, 1e-9, p.MuLibrary)

	assert.Error(tst, Default().Override(Overrides{Model: "plastid", Theta: -1, Mu: -1, MuSomatic: -1, MuLibrary: -1, MinProb: -1}))
	assert.Error(tst, Default().Override(Overrides{Theta: 0, Mu: -1, MuSomatic: -1, MuLibrary: -1, MinProb: -1}))
}

func TestLoadWithOverrides(tst *testing.T) {
	p, err := LoadWithOverrides("", Overrides{Theta: 0.01, Mu: -1, MuSomatic: -1, MuLibrary: -1, MinProb: -1})
	require.NoError(tst, err)
	assert.Equal(tst, 0.01, p.Theta)
	assert.Equal(tst, Default().Mu, p.Mu)

	path := filepath.Join(tst.TempDir(), "params.yaml")
	require.NoError(tst, os.WriteFile(path, []byte("mu: 1.0e-7\nmin_prob: 0.5\n"), 0644))
	p, err = LoadWithOverrides(path, Overrides{Theta: -1, Mu: -1, MuSomatic: -1, MuLibrary: -1, MinProb: 0.9})
	require.NoError(tst, err)
	assert.Equal(tst, 1e-7, p.Mu)
	assert.Equal(tst, 0.9, p.MinProb)
}
