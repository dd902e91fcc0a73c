package probability

import (
	"math"

	"github.com/pkg/errors"

	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/optimize"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/pileup"
	"bitbucket.org/Davydov/godng/readgroup"
)

// Rates are mutation rates per site per generation (germline) or per
// unit of sample tree branch length.
type Rates struct {
	Mu, MuSomatic, MuLibrary float64
}

// Model is the log likelihood of a set of sites as a function of the
// germline mutation rate and theta. It implements
// optimize.Optimizable.
type Model struct {
	ped         *pedigree.Pedigree
	rgs         *readgroup.ReadGroups
	inheritance graph.InheritanceModel
	rates       Rates
	params      Params
	sites       []*pileup.Site

	logMu float64
	theta float64

	parameters optimize.FloatParameters
	lp         *LogProbability
	dirty      bool
}

// NewModel creates a model. Read groups not matching the pedigree are
// removed from rgs; site depths must follow the read groups left.
func NewModel(ped *pedigree.Pedigree, rgs *readgroup.ReadGroups, inheritance graph.InheritanceModel,
	rates Rates, params Params, sites []*pileup.Site) (*Model, error) {
	if rates.Mu <= 0 {
		return nil, errors.New("germline mutation rate must be positive")
	}
	m := &Model{
		ped:         ped,
		rgs:         rgs,
		inheritance: inheritance,
		rates:       rates,
		params:      params,
		sites:       sites,
		logMu:       math.Log10(rates.Mu),
		theta:       params.Theta,
	}
	m.setParameters()
	if err := m.update(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) setParameters() {
	m.parameters = nil
	onChange := func() { m.dirty = true }

	logMu := optimize.NewBasicFloatParameter(&m.logMu, "log10_mu")
	logMu.SetMin(-12)
	logMu.SetMax(-1)
	logMu.SetOnChange(onChange)
	m.parameters.Append(logMu)

	theta := optimize.NewBasicFloatParameter(&m.theta, "theta")
	theta.SetMin(0)
	theta.SetMax(1)
	theta.SetOnChange(onChange)
	m.parameters.Append(theta)
}

// update rebuilds the graph and the matrices for the current
// parameters.
func (m *Model) update() error {
	g, err := graph.Construct(m.ped, m.rgs, m.inheritance,
		math.Pow(10, m.logMu), m.rates.MuSomatic, m.rates.MuLibrary)
	if err != nil {
		return err
	}
	params := m.params
	params.Theta = m.theta
	m.lp = NewLogProbability(g, params)
	m.dirty = false
	return nil
}

// GetFloatParameters returns log10 of the germline mutation rate and
// theta.
func (m *Model) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// Copy returns a model with the same parameter values.
func (m *Model) Copy() optimize.Optimizable {
	c := &Model{
		ped:         m.ped,
		rgs:         m.rgs,
		inheritance: m.inheritance,
		rates:       m.rates,
		params:      m.params,
		sites:       m.sites,
		logMu:       m.logMu,
		theta:       m.theta,
		dirty:       true,
	}
	c.setParameters()
	return c
}

// Rates returns the mutation rates for the current parameters.
func (m *Model) Rates() Rates {
	r := m.rates
	r.Mu = math.Pow(10, m.logMu)
	return r
}

// Theta returns the current theta.
func (m *Model) Theta() float64 {
	return m.theta
}

// Likelihood returns the sum of site log likelihoods.
func (m *Model) Likelihood() float64 {
	if m.dirty {
		if err := m.update(); err != nil {
			log.Errorf("Error building the model: %v", err)
			return math.Inf(-1)
		}
	}
	res := 0.0
	for _, s := range m.sites {
		res += m.lp.Call(s.Depths, s.Ref).Total()
	}
	return res
}
