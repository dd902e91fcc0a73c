package peel

// Forwards runs forward functions over families in order and returns
// log P(data) summed over connected components. The result is also
// stored in work.ForwardResult.
func Forwards(work *Workspace, families []Family, funcs []Function, mats TransitionVector) float64 {
	work.CleanupFast()
	for i, f := range funcs {
		f(work, families[i], mats)
	}
	work.ForwardResult = work.rootLogSum()
	return work.ForwardResult
}

// Backwards must follow Forwards with the same matrices. It normalizes
// roots and runs reverse functions in reverse order, after which
// upper*lower of every node is its posterior genotype distribution and
// super*(matrix*lower) sums to one for every non-founder. It returns
// log P(data).
func Backwards(work *Workspace, families []Family, funcs []Function, mats TransitionVector) float64 {
	res := work.normalizeRoots()
	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i](work, families[i], mats)
	}
	work.state = DirtyLower
	return res
}
