// Package optimize provides maximum likelihood optimizers over bounded
// real parameters of a model.
package optimize

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/godng/checkpoint"
)

var log = logging.MustGetLogger("optimize")

// Optimizable is a model which can be optimized.
type Optimizable interface {
	// GetFloatParameters returns the parameters of this instance.
	GetFloatParameters() FloatParameters
	// Copy returns an independent copy with the same parameter values.
	Copy() Optimizable
	// Likelihood returns the log likelihood.
	Likelihood() float64
}

// Optimizer maximizes the likelihood of an Optimizable.
type Optimizer interface {
	SetOptimizable(Optimizable)
	WatchSignals(...os.Signal)
	SetReportPeriod(period int)
	SetCheckpointIO(*checkpoint.CheckpointIO)
	Run(iterations int)
	GetL() float64
	GetMaxL() float64
	GetMaxLParameters() []float64
}

// BaseOptimizer contains fields and methods shared by optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	i          int
	l          float64
	maxL       float64
	maxLPar    []float64
	calls      int
	repPeriod  int
	sig        chan os.Signal
	cpIO       *checkpoint.CheckpointIO
	// Quiet suppresses the iteration table on stdout.
	Quiet bool
}

// SetOptimizable sets the model.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
}

// WatchSignals stops the optimization when any of the signals is
// received.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// signaled returns true if a watched signal was received.
func (o *BaseOptimizer) signaled() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		return true
	default:
	}
	return false
}

// SetReportPeriod sets how often (in iterations) to report progress.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// SetCheckpointIO enables checkpoints.
func (o *BaseOptimizer) SetCheckpointIO(cpIO *checkpoint.CheckpointIO) {
	o.cpIO = cpIO
}

// SaveCheckpoint saves the best parameters. Unless final is set, the
// checkpoint is only saved if the previous one is old enough.
func (o *BaseOptimizer) SaveCheckpoint(final bool) {
	if o.cpIO == nil || o.maxLPar == nil || (!final && !o.cpIO.Old()) {
		return
	}
	names := o.parameters.Names(nil)
	pars := make(map[string]float64, len(names))
	for i, name := range names {
		pars[name] = o.maxLPar[i]
	}
	if err := o.cpIO.Save(&checkpoint.CheckpointData{
		Parameters: pars,
		Likelihood: o.maxL,
		Iter:       o.i,
		Final:      final,
	}); err != nil {
		log.Error("Error saving checkpoint:", err)
	}
}

// update records a likelihood value for the current parameters.
func (o *BaseOptimizer) update(par FloatParameters, l float64) {
	o.l = l
	o.calls++
	if l > o.maxL || o.maxLPar == nil {
		o.maxL = l
		o.maxLPar = par.Values(o.maxLPar)
	}
}

// PrintHeader prints the iteration table header.
func (o *BaseOptimizer) PrintHeader(par FloatParameters) {
	if !o.Quiet {
		fmt.Printf("iteration\tlikelihood\t%s\n", par.NamesString())
	}
}

// PrintLine prints an iteration table line.
func (o *BaseOptimizer) PrintLine(par FloatParameters, l float64) {
	if !o.Quiet {
		fmt.Printf("%d\t%f\t%s\n", o.i, l, par.ValuesString())
	}
}

// PrintFinal logs the best parameter values.
func (o *BaseOptimizer) PrintFinal(par FloatParameters) {
	log.Noticef("Maximum likelihood: %v", o.maxL)
	log.Infof("Likelihood function calls: %v", o.calls)
	for i, name := range par.Names(nil) {
		log.Noticef("%s=%v", name, o.maxLPar[i])
	}
}

// GetL returns the last likelihood value.
func (o *BaseOptimizer) GetL() float64 {
	return o.l
}

// GetMaxL returns the maximum likelihood found.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns parameter values of the maximum
// likelihood.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}
