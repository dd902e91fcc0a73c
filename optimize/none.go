package optimize

// None is an optimizer which computes the initial value and exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes the initial likelihood
// only.
func NewNone() *None {
	return &None{}
}

// Run computes the likelihood.
func (n *None) Run(iterations int) {
	n.update(n.parameters, n.Likelihood())
	n.PrintHeader(n.parameters)
	n.PrintLine(n.parameters, n.l)
	n.SaveCheckpoint(true)
}
