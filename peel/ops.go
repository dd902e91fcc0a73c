package peel

import (
	"github.com/gonum/floats"
)

// Op is a family peeling operation. The operation is named after the
// direction of the message: Up, ToFather and ToMother peel a family
// into a parent, Down and ToChild into a child.
type Op int

const (
	// Up peels a pair family into its parent.
	Up Op = iota
	// UpFast is Up for the first family writing the parent lower.
	UpFast
	// ToFather peels a trio family into the father.
	ToFather
	// ToFatherFast is ToFather assigning the father lower.
	ToFatherFast
	// ToMother peels a trio family into the mother.
	ToMother
	// ToMotherFast is ToMother assigning the mother lower.
	ToMotherFast
	// Down peels a pair family into one of the children.
	Down
	// ToChild peels a trio family into one of the children.
	ToChild
)

var opNames = [...]string{"Up", "UpFast", "ToFather", "ToFatherFast", "ToMother", "ToMotherFast", "Down", "ToChild"}

// String returns the operation name.
func (op Op) String() string {
	return opNames[op]
}

// Fast returns the assigning variant of a lower-writing operation.
func (op Op) Fast() Op {
	switch op {
	case Up:
		return UpFast
	case ToFather:
		return ToFatherFast
	case ToMother:
		return ToMotherFast
	}
	return op
}

// WritesLower is true for operations whose pivot is a parent.
func (op Op) WritesLower() bool {
	return op < Down
}

// Family is a peeling unit. Members layout depends on the operation:
//
//	Up, UpFast:         parent, children...
//	Down:               parent, pivot child, other children...
//	ToFather, ToMother: father, mother, children...
//	ToChild:            father, mother, pivot child, other children...
//
// Index addresses per-family message storage of the workspace.
type Family struct {
	Index   int
	Members []int
}

// Function is a family peeling function.
type Function func(work *Workspace, fam Family, mats TransitionVector)

// Forward returns the forward function of an operation.
func Forward(op Op) Function {
	return forwardFuncs[op]
}

// Reverse returns the reverse function of an operation.
func Reverse(op Op) Function {
	return reverseFuncs[op]
}

var forwardFuncs = [...]Function{
	Up:           func(w *Workspace, f Family, m TransitionVector) { up(w, f, m, false) },
	UpFast:       func(w *Workspace, f Family, m TransitionVector) { up(w, f, m, true) },
	ToFather:     func(w *Workspace, f Family, m TransitionVector) { toFather(w, f, m, false) },
	ToFatherFast: func(w *Workspace, f Family, m TransitionVector) { toFather(w, f, m, true) },
	ToMother:     func(w *Workspace, f Family, m TransitionVector) { toMother(w, f, m, false) },
	ToMotherFast: func(w *Workspace, f Family, m TransitionVector) { toMother(w, f, m, true) },
	Down:         down,
	ToChild:      toChild,
}

var reverseFuncs = [...]Function{
	Up:           func(w *Workspace, f Family, m TransitionVector) { reversePair(w, f, m, 0) },
	UpFast:       func(w *Workspace, f Family, m TransitionVector) { reversePair(w, f, m, 0) },
	ToFather:     func(w *Workspace, f Family, m TransitionVector) { reverseTrio(w, f, m, 0) },
	ToFatherFast: func(w *Workspace, f Family, m TransitionVector) { reverseTrio(w, f, m, 0) },
	ToMother:     func(w *Workspace, f Family, m TransitionVector) { reverseTrio(w, f, m, 1) },
	ToMotherFast: func(w *Workspace, f Family, m TransitionVector) { reverseTrio(w, f, m, 1) },
	Down:         func(w *Workspace, f Family, m TransitionVector) { reversePair(w, f, m, 1) },
	ToChild:      func(w *Workspace, f Family, m TransitionVector) { reverseTrio(w, f, m, 2) },
}

func setLower(w *Workspace, p int, msg []float64, fast bool) {
	if fast {
		copy(w.Lower[p], msg)
	} else {
		floats.Mul(w.Lower[p], msg)
	}
}

func up(w *Workspace, fam Family, mats TransitionVector, fast bool) {
	p := fam.Members[0]
	msg := w.famLower[fam.Index][0]
	fill(msg, 1)
	for _, c := range fam.Members[1:] {
		floats.Mul(msg, w.childMessage(c, mats[c]))
	}
	setLower(w, p, msg, fast)
}

// childrenProduct multiplies all children messages of a trio.
func childrenProduct(w *Workspace, fam Family, mats TransitionVector, kd, km int) []float64 {
	paired := w.paired[:kd*km]
	fill(paired, 1)
	for _, c := range fam.Members[2:] {
		floats.Mul(paired, w.childMessage(c, mats[c]))
	}
	return paired
}

func toFather(w *Workspace, fam Family, mats TransitionVector, fast bool) {
	d, m := fam.Members[0], fam.Members[1]
	kd, km := len(w.Lower[d]), len(w.Lower[m])
	paired := childrenProduct(w, fam, mats, kd, km)
	mm := floats.MulTo(w.vecM[:km], w.Upper[m], w.Lower[m])
	msg := w.famLower[fam.Index][0]
	for i := range msg {
		msg[i] = floats.Dot(paired[i*km:(i+1)*km], mm)
	}
	setLower(w, d, msg, fast)
}

func toMother(w *Workspace, fam Family, mats TransitionVector, fast bool) {
	d, m := fam.Members[0], fam.Members[1]
	kd, km := len(w.Lower[d]), len(w.Lower[m])
	paired := childrenProduct(w, fam, mats, kd, km)
	dd := floats.MulTo(w.vecD[:kd], w.Upper[d], w.Lower[d])
	msg := w.famLower[fam.Index][1]
	fill(msg, 0)
	for i, v := range dd {
		floats.AddScaled(msg, v, paired[i*km:(i+1)*km])
	}
	setLower(w, m, msg, fast)
}

func down(w *Workspace, fam Family, mats TransitionVector) {
	p, c0 := fam.Members[0], fam.Members[1]
	s := floats.MulTo(w.Super[c0], w.Upper[p], w.Lower[p])
	for _, c := range fam.Members[2:] {
		floats.Mul(s, w.childMessage(c, mats[c]))
	}
	mulTransVec(w.Upper[c0], mats[c0], s)
}

func toChild(w *Workspace, fam Family, mats TransitionVector) {
	d, m, c0 := fam.Members[0], fam.Members[1], fam.Members[2]
	dd := floats.MulTo(w.vecD[:len(w.Lower[d])], w.Upper[d], w.Lower[d])
	mm := floats.MulTo(w.vecM[:len(w.Lower[m])], w.Upper[m], w.Lower[m])
	s := w.Super[c0]
	outer(s, dd, mm)
	for _, c := range fam.Members[3:] {
		floats.Mul(s, w.childMessage(c, mats[c]))
	}
	mulTransVec(w.Upper[c0], mats[c0], s)
}

// superExcluding sets super of child i of children to base times the
// messages of all the other children.
func superExcluding(w *Workspace, children []int, i int, base []float64) []float64 {
	s := w.Super[children[i]]
	copy(s, base)
	for j, c := range children {
		if j != i {
			floats.Mul(s, w.message[c])
		}
	}
	return s
}

// reversePair sends messages from the pivot of a pair family to all
// the other members. pivot is the position of the pivot in members.
//
// The root keeps half of its normalization in lower and half in upper.
// A message leaving a root through its parental family only sees its
// lower, so it takes the other half explicitly. lowerScale is one for
// all the other nodes.
func reversePair(w *Workspace, fam Family, mats TransitionVector, pivot int) {
	p := fam.Members[0]
	children := fam.Members[1:]
	kp := len(w.Lower[p])

	base := w.vecD[:kp]
	w.lowerExcluding(base, p, fam.Index)
	floats.Mul(base, w.Upper[p])

	for _, c := range children {
		w.childMessage(c, mats[c])
	}
	if pivot != 0 {
		c0 := fam.Members[pivot]
		floats.Scale(w.lowerScale[c0], w.message[c0])
		msg := w.famLower[fam.Index][0]
		fill(msg, 1)
		for _, c := range children {
			floats.Mul(msg, w.message[c])
		}
		floats.Mul(w.Lower[p], msg)
	}
	for i, c := range children {
		if i+1 == pivot {
			continue
		}
		s := superExcluding(w, children, i, base)
		mulTransVec(w.Upper[c], mats[c], s)
	}
}

// reverseTrio sends messages from the pivot of a trio family to all
// the other members. pivot is 0 for the father, 1 for the mother and 2
// for the pivot child.
func reverseTrio(w *Workspace, fam Family, mats TransitionVector, pivot int) {
	d, m := fam.Members[0], fam.Members[1]
	children := fam.Members[2:]
	kd, km := len(w.Lower[d]), len(w.Lower[m])

	dd := w.vecD[:kd]
	w.lowerExcluding(dd, d, fam.Index)
	floats.Mul(dd, w.Upper[d])
	mm := w.vecM[:km]
	w.lowerExcluding(mm, m, fam.Index)
	floats.Mul(mm, w.Upper[m])

	for _, c := range children {
		w.childMessage(c, mats[c])
	}
	if pivot == 2 {
		c0 := children[0]
		floats.Scale(w.lowerScale[c0], w.message[c0])
	}
	paired := w.paired[:kd*km]
	fill(paired, 1)
	for _, c := range children {
		floats.Mul(paired, w.message[c])
	}
	if pivot != 0 {
		msg := w.famLower[fam.Index][0]
		for i := range msg {
			msg[i] = floats.Dot(paired[i*km:(i+1)*km], mm)
		}
		floats.Mul(w.Lower[d], msg)
	}
	if pivot != 1 {
		msg := w.famLower[fam.Index][1]
		fill(msg, 0)
		for i, v := range dd {
			floats.AddScaled(msg, v, paired[i*km:(i+1)*km])
		}
		floats.Mul(w.Lower[m], msg)
	}

	// paired is free now, reuse it for the parental product
	outer(paired, dd, mm)
	for i, c := range children {
		if pivot == 2 && i == 0 {
			continue
		}
		s := superExcluding(w, children, i, paired)
		mulTransVec(w.Upper[c], mats[c], s)
	}
}
