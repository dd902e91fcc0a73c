// Package config holds model parameters with their defaults and reads
// them from YAML files.
package config

import (
	"io"
	"math"
	"os"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/godng/genotype"
	"bitbucket.org/Davydov/godng/genotyper"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/probability"
)

var log = logging.MustGetLogger("config")

// Params are all the model parameters of a run.
type Params struct {
	Model graph.InheritanceModel `yaml:"model"`

	Theta     float64   `yaml:"theta"`
	NucFreqs  []float64 `yaml:"nuc_freqs"`
	RefWeight float64   `yaml:"ref_weight"`

	Mu        float64 `yaml:"mu"`
	MuSomatic float64 `yaml:"mu_somatic"`
	MuLibrary float64 `yaml:"mu_library"`

	Homozygous   genotyper.Params `yaml:"homozygous"`
	Heterozygous genotyper.Params `yaml:"heterozygous"`

	MinProb float64 `yaml:"min_prob"`
}

// Default returns the default parameters.
func Default() *Params {
	return &Params{
		Model:     graph.Autosomal,
		Theta:     0.001,
		NucFreqs:  []float64{0.3, 0.2, 0.2, 0.3},
		RefWeight: 1,
		Mu:        1e-8,
		MuSomatic: 0,
		MuLibrary: 0,
		Homozygous: genotyper.Params{
			Overdispersion: 0.001,
			Error:          0.0005,
			RefBias:        1,
		},
		Heterozygous: genotyper.Params{
			Overdispersion: 0.001,
			Error:          0.0005,
			RefBias:        1,
		},
		MinProb: 0.1,
	}
}

// Read decodes YAML over the defaults and validates the result.
func Read(rd io.Reader) (*Params, error) {
	p := Default()
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "error decoding parameters")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a YAML parameter file.
func Load(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	log.Infof("Loaded parameters from %s", path)
	return p, nil
}

// Write encodes parameters as YAML.
func (p *Params) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

func checkProb(name string, v float64, open bool) error {
	if math.IsNaN(v) || v < 0 || v > 1 || (open && (v == 0 || v == 1)) {
		return errors.Errorf("%s out of range: %v", name, v)
	}
	return nil
}

func checkGenotyper(name string, g genotyper.Params) error {
	if err := checkProb(name+" overdispersion", g.Overdispersion, true); err != nil {
		return err
	}
	if err := checkProb(name+" error", g.Error, true); err != nil {
		return err
	}
	if !(g.RefBias > 0) {
		return errors.Errorf("%s reference bias must be positive: %v", name, g.RefBias)
	}
	return nil
}

// Validate checks parameter ranges.
func (p *Params) Validate() error {
	if !(p.Theta > 0) {
		return errors.Errorf("theta must be positive: %v", p.Theta)
	}
	if len(p.NucFreqs) != genotype.NNuc {
		return errors.Errorf("expected %d nucleotide frequencies, got %d", genotype.NNuc, len(p.NucFreqs))
	}
	sum := 0.0
	for _, f := range p.NucFreqs {
		if !(f > 0) {
			return errors.Errorf("nucleotide frequencies must be positive: %v", p.NucFreqs)
		}
		sum += f
	}
	if math.Abs(sum-1) > 1e-6 {
		return errors.Errorf("nucleotide frequencies must sum to one: %v", p.NucFreqs)
	}
	if !(p.RefWeight >= 0) {
		return errors.Errorf("reference weight must be non-negative: %v", p.RefWeight)
	}
	for _, r := range []struct {
		name string
		v    float64
	}{{"mu", p.Mu}, {"mu_somatic", p.MuSomatic}, {"mu_library", p.MuLibrary}} {
		if !(r.v >= 0) || math.IsInf(r.v, 1) {
			return errors.Errorf("%s must be non-negative: %v", r.name, r.v)
		}
	}
	if err := checkGenotyper("homozygous", p.Homozygous); err != nil {
		return err
	}
	if err := checkGenotyper("heterozygous", p.Heterozygous); err != nil {
		return err
	}
	return checkProb("min_prob", p.MinProb, false)
}

// Overrides are command line values replacing file values. Negative
// numbers and an empty model keep the current values.
type Overrides struct {
	Model                    string
	Theta                    float64
	Mu, MuSomatic, MuLibrary float64
	MinProb                  float64
}

// Override applies command line values and validates the result.
func (p *Params) Override(o Overrides) error {
	if o.Model != "" {
		m, err := graph.ParseInheritanceModel(o.Model)
		if err != nil {
			return err
		}
		p.Model = m
	}
	for _, v := range []struct {
		dst *float64
		src float64
	}{
		{&p.Theta, o.Theta},
		{&p.Mu, o.Mu},
		{&p.MuSomatic, o.MuSomatic},
		{&p.MuLibrary, o.MuLibrary},
		{&p.MinProb, o.MinProb},
	} {
		if v.src >= 0 {
			*v.dst = v.src
		}
	}
	return p.Validate()
}

// LoadWithOverrides reads a parameter file, or takes the defaults if
// path is empty, and applies command line values.
func LoadWithOverrides(path string, o Overrides) (p *Params, err error) {
	p = Default()
	if path != "" {
		if p, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err = p.Override(o); err != nil {
		return nil, err
	}
	return p, nil
}

// ToProbability returns the population and read model parameters.
func (p *Params) ToProbability() probability.Params {
	res := probability.Params{
		Theta:     p.Theta,
		RefWeight: p.RefWeight,
		ParamsA:   p.Homozygous,
		ParamsB:   p.Heterozygous,
	}
	copy(res.NucFreq[:], p.NucFreqs)
	return res
}

// Rates returns the mutation rates.
func (p *Params) Rates() probability.Rates {
	return probability.Rates{Mu: p.Mu, MuSomatic: p.MuSomatic, MuLibrary: p.MuLibrary}
}
