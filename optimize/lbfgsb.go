package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB is a bounded quasi-Newton optimizer with a numerical
// gradient.
type LBFGSB struct {
	BaseOptimizer
	dH   float64
	grad []float64
	stop bool
}

// NewLBFGSB creates a new optimizer.
func NewLBFGSB() *LBFGSB {
	return &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		dH: 1e-6,
	}
}

// Logger is called by the minimizer after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	if l.repPeriod > 0 && l.i%l.repPeriod == 0 {
		l.parameters.SetValues(info.X)
		l.PrintLine(l.parameters, -info.F)
	}
	l.SaveCheckpoint(false)
}

// EvaluateFunction returns the negative log likelihood.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if l.stop || !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}
	l.parameters.SetValues(x)
	L := l.Likelihood()
	l.update(l.parameters, L)
	if l.signaled() {
		l.stop = true
	}
	return -L
}

// EvaluateGradient computes the gradient by central differences on
// copies of the model.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad
	for i := range x {
		no1 := l.Optimizable.Copy()
		par1 := no1.GetFloatParameters()
		par1.SetValues(x)
		par1[i].Set(x[i] - l.dH)
		l1 := -no1.Likelihood()

		no2 := no1.Copy()
		par2 := no2.GetFloatParameters()
		par2[i].Set(x[i] + l.dH)
		l2 := -no2.Likelihood()
		l.calls += 2

		grad[i] = (l2 - l1) / 2 / l.dH
	}
	return
}

// Run starts the optimization.
func (l *LBFGSB) Run(iterations int) {
	l.maxL = math.Inf(-1)
	l.PrintHeader(l.parameters)
	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin() + 1e-5
		bounds[i][1] = par.GetMax() - 1e-5
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)
	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, l.parameters.Values(nil))
	log.Infof("Exit status: %v", exitStatus)

	l.parameters.SetValues(l.maxLPar)
	l.l = l.maxL
	log.Info("Finished LBFGSB")
	l.SaveCheckpoint(true)
	l.PrintFinal(l.parameters)
}
