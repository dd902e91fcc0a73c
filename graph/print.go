package graph

import (
	"fmt"
	"io"
	"strings"

	"bitbucket.org/Davydov/godng/peel"
)

func (g *RelationshipGraph) memberLabels(members []int) string {
	s := make([]string, len(members))
	for i, m := range members {
		s[i] = g.labels[m]
	}
	return strings.Join(s, " ")
}

// PrintMachine writes the peeling program, one operation per line.
func (g *RelationshipGraph) PrintMachine(w io.Writer) error {
	for i, fam := range g.families {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", i, g.ops[i], g.memberLabels(fam.Members)); err != nil {
			return err
		}
	}
	return nil
}

func (g *RelationshipGraph) parentLabel(p int) string {
	if p < 0 {
		return "."
	}
	return g.labels[p]
}

// PrintTable writes a table of nodes and their transitions.
func (g *RelationshipGraph) PrintTable(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "id\tlabel\ttype\tparent1\tlength1\tparent2\tlength2\tsex\tploidy"); err != nil {
		return err
	}
	for i, t := range g.transitions {
		_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%g\t%s\t%g\t%s\t%d\n",
			i, g.labels[i], t.Type,
			g.parentLabel(t.Parent1), t.Length1,
			g.parentLabel(t.Parent2), t.Length2,
			t.Sex, int(t.Ploidy))
		if err != nil {
			return err
		}
	}
	return nil
}

func formatArray(a []float64) string {
	s := make([]string, len(a))
	for i, v := range a {
		s[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(s, " ") + "]"
}

// PrintStates writes lower and upper arrays of every node.
func (g *RelationshipGraph) PrintStates(w io.Writer, work *peel.Workspace) error {
	for i := range g.labels {
		_, err := fmt.Fprintf(w, "%s\tlower=%s\tupper=%s\n", g.labels[i], formatArray(work.Lower[i]), formatArray(work.Upper[i]))
		if err != nil {
			return err
		}
	}
	return nil
}

// BCFHeaderLines returns ##PEDIGREE header lines describing how every
// node derives from its parents.
func (g *RelationshipGraph) BCFHeaderLines() []string {
	res := make([]string, 0, len(g.labels))
	for i, t := range g.transitions {
		var s string
		switch {
		case t.Type == Founder:
			s = fmt.Sprintf("##PEDIGREE=<ID=%s>", g.labels[i])
		case t.Parent2 >= 0:
			s = fmt.Sprintf("##PEDIGREE=<ID=%s,Father=%s,Mother=%s,FatherMR=%g,MotherMR=%g>",
				g.labels[i], g.labels[t.Parent1], g.labels[t.Parent2], t.Length1, t.Length2)
		default:
			s = fmt.Sprintf("##PEDIGREE=<ID=%s,Original=%s,OriginalMR=%g>",
				g.labels[i], g.labels[t.Parent1], t.Length1)
		}
		res = append(res, s)
	}
	return res
}
