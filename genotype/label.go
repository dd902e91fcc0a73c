package genotype

// Mutation labels name genotype transitions, e.g. "AA>AC" for a
// mitotic transition or "AAxCC>AC" for a meiotic one (father first).

// MitoticLabel returns the label of a transition from the parent
// genotype to the child genotype.
func MitoticLabel(parent, child Ploidy, from, to int) string {
	return Name(parent, from) + ">" + Name(child, to)
}

// MeioticLabel returns the label of a transition from the joint
// parental genotype dad*size(mom)+mom to a child genotype.
func MeioticLabel(dad, mom Ploidy, joint, to int) string {
	km := mom.Size(NNuc)
	return Name(dad, joint/km) + "x" + Name(mom, joint%km) + ">" + Name(Diploid, to)
}

// LabelTable is a precomputed table of transition labels indexed by
// [row][column] of a transition matrix.
type LabelTable [][]string

// MitoticLabels returns the label table of a mitotic transition.
func MitoticLabels(parent, child Ploidy) LabelTable {
	rows, cols := parent.Size(NNuc), child.Size(NNuc)
	t := make(LabelTable, rows)
	for i := range t {
		t[i] = make([]string, cols)
		for j := range t[i] {
			t[i][j] = MitoticLabel(parent, child, i, j)
		}
	}
	return t
}

// MeioticLabels returns the label table of a meiotic transition to a
// diploid child.
func MeioticLabels(dad, mom Ploidy) LabelTable {
	rows, cols := dad.Size(NNuc)*mom.Size(NNuc), NDiploid
	t := make(LabelTable, rows)
	for i := range t {
		t[i] = make([]string, cols)
		for j := range t[i] {
			t[i][j] = MeioticLabel(dad, mom, i, j)
		}
	}
	return t
}

var (
	mitoticTables [3][3]LabelTable
	meioticTables [3][3]LabelTable
)

func init() {
	for _, p := range []Ploidy{Haploid, Diploid} {
		for _, c := range []Ploidy{Haploid, Diploid} {
			mitoticTables[p][c] = MitoticLabels(p, c)
			meioticTables[p][c] = MeioticLabels(p, c)
		}
	}
}

// Mitotic returns a shared precomputed mitotic label table.
func Mitotic(parent, child Ploidy) LabelTable {
	return mitoticTables[parent][child]
}

// Meiotic returns a shared precomputed meiotic label table.
func Meiotic(dad, mom Ploidy) LabelTable {
	return meioticTables[dad][mom]
}
