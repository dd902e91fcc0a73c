package tree

import (
	"bytes"
	"testing"
)

const (
	tree1 = "((blood:0.1,saliva:0.2):0.5,skin);"
	tree2 = "sperm:0.25"
)

func TestParseSamples(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree1))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.NNodes() != 5 {
		tst.Error("Expected 5 nodes, got", t.NNodes())
	}
	names := t.Names()
	if len(names) != 3 || names[0] != "blood" || names[1] != "saliva" || names[2] != "skin" {
		tst.Error("Incorrect sample names:", names)
	}
	for _, node := range t.Nodes() {
		switch node.Name {
		case "blood":
			if node.Length() != 0.1 {
				tst.Error("Incorrect blood length:", node.Length())
			}
		case "skin":
			if node.HasLength || node.Length() != DefaultLength {
				tst.Error("Skin should have the default length, got", node.Length())
			}
		case "":
			if !node.IsRoot() && node.Length() != 0.5 {
				tst.Error("Incorrect internal length:", node.Length())
			}
		}
		if node.Parent != nil && node.Parent.Id >= node.Id {
			tst.Error("Parent should precede child:", node.LongString())
		}
	}
	if t.String() != tree1 {
		tst.Errorf("Round trip failed: %s", t)
	}
}

func TestParseSingle(tst *testing.T) {
	t, err := Parse(tree2)
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if !t.IsTerminal() || t.Name != "sperm" || t.Length() != 0.25 {
		tst.Error("Incorrect single sample tree:", t.LongString())
	}
}

func TestParseErrors(tst *testing.T) {
	for _, s := range []string{"(a,b", "a,b", "(a,b));", "(a:x,b)", "(a:-1,b)", "(a b,c)"} {
		if _, err := Parse(s); err == nil {
			tst.Errorf("Expected error parsing %q", s)
		}
	}
}
