package graph

import (
	"strings"

	"github.com/pkg/errors"
)

// InheritanceModel selects which parents transmit the locus and the
// ploidy of individuals.
type InheritanceModel int

const (
	// Autosomal loci are diploid and inherited from both parents.
	Autosomal InheritanceModel = iota
	// Maternal loci are haploid and inherited from the mother.
	Maternal
	// Paternal loci are haploid and inherited from the father.
	Paternal
	// XLinked loci are haploid in males, which inherit them from the
	// mother only.
	XLinked
	// YLinked loci exist in males only and are inherited from the
	// father.
	YLinked
	// WLinked loci exist in females only and are inherited from the
	// mother.
	WLinked
	// ZLinked loci are haploid in females, which inherit them from the
	// father only.
	ZLinked
)

// Mitochondria is inherited maternally.
const Mitochondria = Maternal

var modelNames = map[InheritanceModel]string{
	Autosomal: "autosomal",
	Maternal:  "maternal",
	Paternal:  "paternal",
	XLinked:   "x-linked",
	YLinked:   "y-linked",
	WLinked:   "w-linked",
	ZLinked:   "z-linked",
}

// String returns the model name.
func (m InheritanceModel) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return "unknown"
}

// SexLinked is true for models which need the sex of every individual.
func (m InheritanceModel) SexLinked() bool {
	switch m {
	case XLinked, YLinked, WLinked, ZLinked:
		return true
	}
	return false
}

// ParseInheritanceModel converts a model name. Case, dashes and
// underscores are ignored, "mitochondria" is an alias for "maternal".
func ParseInheritanceModel(s string) (InheritanceModel, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(s))
	switch norm {
	case "autosomal":
		return Autosomal, nil
	case "maternal", "mitochondria", "mitochondrial":
		return Maternal, nil
	case "paternal":
		return Paternal, nil
	case "xlinked":
		return XLinked, nil
	case "ylinked":
		return YLinked, nil
	case "wlinked":
		return WLinked, nil
	case "zlinked":
		return ZLinked, nil
	}
	return Autosomal, errors.Errorf("unknown inheritance model: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m InheritanceModel) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *InheritanceModel) UnmarshalText(text []byte) (err error) {
	*m, err = ParseInheritanceModel(string(text))
	return
}
