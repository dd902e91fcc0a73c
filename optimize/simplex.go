package optimize

import (
	"math"
)

const (
	tiny  = 1e-10
	small = 1e-6
)

// DS is the downhill simplex (Nelder-Mead) optimizer.
type DS struct {
	BaseOptimizer
	delta      float64
	ftol       float64
	repeat     bool
	oldL       float64
	points     []Optimizable
	psum       []float64
	parameters []FloatParameters
	ls         []float64
	newOpt     Optimizable
	newPar     FloatParameters
}

// NewDS creates a downhill simplex optimizer.
func NewDS() *DS {
	ds := &DS{
		delta: 1,
		ftol:  tiny,
	}
	ds.repPeriod = 10
	return ds
}

func (ds *DS) evaluate(opt Optimizable, par FloatParameters) float64 {
	if !par.InRange() {
		return math.Inf(-1)
	}
	l := opt.Likelihood()
	ds.update(par, l)
	return l
}

func (ds *DS) createSimplex(opt Optimizable, delta float64) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.parameters = make([]FloatParameters, len(ds.points))
	ds.ls = make([]float64, len(ds.points))
	ds.points[0] = opt
	ds.parameters[0] = parameters
	for i := 1; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.parameters[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.parameters[i+1][i]
		v := parameter.Get() + delta
		if !parameter.ValueInRange(v) {
			v = parameter.Get() - delta
		}
		parameter.Set(v)
	}
	for i := range ds.points {
		ds.ls[i] = ds.evaluate(ds.points[i], ds.parameters[i])
	}
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the low point, tries it, and replaces the low point if
// the new point is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.parameters[ilo][j].Get()*fac2)
	}
	l := ds.evaluate(ds.newOpt, ds.newPar)
	if l > ds.ls[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.parameters[ilo], ds.newPar = ds.newPar, ds.parameters[ilo]
		ds.ls[ilo] = l
	}
	return l
}

func (ds *DS) calcPsum() {
	if ds.psum == nil {
		ds.psum = make([]float64, len(ds.parameters[0]))
	}
	for i := range ds.psum {
		ds.psum[i] = 0
		for _, parameters := range ds.parameters {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// SetOptimizable sets the model and creates the initial simplex.
func (ds *DS) SetOptimizable(opt Optimizable) {
	ds.BaseOptimizer.SetOptimizable(opt)
	ds.maxL = math.Inf(-1)
	ds.createSimplex(opt, ds.delta)
}

// Run starts the optimization.
func (ds *DS) Run(iterations int) {
	// lowest (worst), next-lowest and highest points
	var ilo, ihi int
	var llo, lnlo, lhi float64
	ds.PrintHeader(ds.parameters[0])
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		if ds.ls[0] < ds.ls[1] {
			ilo, ihi = 0, 1
		} else {
			ilo, ihi = 1, 0
		}
		llo, lnlo, lhi = ds.ls[ilo], ds.ls[ihi], ds.ls[ihi]
		for i := 2; i < len(ds.points); i++ {
			if ds.ls[i] >= lhi {
				lhi = ds.ls[i]
				ihi = i
			}
			if ds.ls[i] < llo {
				lnlo = llo
				llo, ilo = ds.ls[i], i
			} else if ds.ls[i] < lnlo {
				lnlo = ds.ls[i]
			}
		}
		ds.l = lhi
		if ds.repPeriod > 0 && ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
			ds.PrintLine(ds.parameters[ihi], lhi)
		}
		ds.SaveCheckpoint(false)
		rtol := 2 * math.Abs(lhi-llo) / (math.Abs(llo) + math.Abs(lhi) + tiny)
		if rtol < ds.ftol {
			if ds.repeat && math.Abs(ds.oldL-lhi) < small {
				break Iter
			}
			ds.repeat = true
			ds.oldL = lhi
			log.Infof("converged, retrying")
			ds.createSimplex(ds.points[ihi], ds.delta)
			continue
		}
		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			l := ds.amotry(ilo, 0.5)
			if l <= llo {
				for i, point := range ds.points {
					if i == ihi {
						continue
					}
					for j := range ds.parameters[i] {
						ds.parameters[i][j].Set(0.5 * (ds.parameters[i][j].Get() + ds.parameters[ihi][j].Get()))
					}
					ds.ls[i] = ds.evaluate(point, ds.parameters[i])
				}
			}
		}
		if ds.signaled() {
			break Iter
		}
	}
	if ds.i > iterations {
		log.Warningf("Iterations exceeded (%d)", iterations)
	}
	// the model passed to SetOptimizable may have been used as a
	// scratch point
	ds.BaseOptimizer.parameters.SetValues(ds.maxLPar)
	ds.l = ds.maxL
	log.Info("Finished downhill simplex")
	ds.SaveCheckpoint(true)
	ds.PrintFinal(ds.BaseOptimizer.parameters)
}
