// Package tree parses Newick trees describing how the samples of an
// individual derive from its germline (somatic lineages).
package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// DefaultLength is the branch length used when none is specified.
const DefaultLength = 1.0

type mode int

const (
	normal mode = iota
	length
)

// Tree is a rooted sample tree.
type Tree struct {
	*Node
	nNodes int
	nodes  []*Node
}

// NNodes returns total number of nodes.
func (tree *Tree) NNodes() int {
	if tree.nNodes == 0 {
		tree.nNodes = tree.NSubNodes()
	}
	return tree.nNodes
}

// Nodes returns nodes indexed by Id. Parents always precede their
// children.
func (tree *Tree) Nodes() []*Node {
	if tree.nodes == nil {
		tree.nodes = make([]*Node, tree.NNodes())
		for node := range tree.Walker(nil) {
			tree.nodes[node.Id] = node
		}
	}
	return tree.nodes
}

// Terminals returns a channel with all the leaves.
func (tree *Tree) Terminals() <-chan *Node {
	return tree.Walker(func(n *Node) bool {
		return n.IsTerminal()
	})
}

// Names returns names of all the named nodes in pre-order.
func (tree *Tree) Names() (names []string) {
	for node := range tree.Walker(func(n *Node) bool { return n.Name != "" }) {
		names = append(names, node.Name)
	}
	return
}

// Walker returns a channel iterating over nodes in pre-order. If
// filter is not nil, only nodes it accepts are returned.
func (tree *Tree) Walker(filter func(*Node) bool) <-chan *Node {
	ch := make(chan *Node, tree.NNodes())
	tree.Walk(ch, filter)
	close(ch)
	return ch
}

// Node is a sample tree node. Named nodes are samples, unnamed ones
// are unobserved intermediate lineages.
type Node struct {
	Name         string
	BranchLength float64
	// HasLength is false if the length wasn't given in the input.
	HasLength  bool
	Parent     *Node
	childNodes []*Node
	Id         int
}

// NewNode creates a node without children.
func NewNode(parent *Node, nodeId int) (node *Node) {
	node = &Node{Parent: parent, Id: nodeId}
	return
}

// AddChild appends a child node.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// Length returns the branch length or DefaultLength if it wasn't
// specified.
func (node *Node) Length() float64 {
	if !node.HasLength {
		return DefaultLength
	}
	return node.BranchLength
}

// String returns the Newick representation of the subtree.
func (node *Node) String() (s string) {
	if !node.IsTerminal() {
		parts := make([]string, len(node.childNodes))
		for i, child := range node.childNodes {
			parts[i] = child.String()
		}
		s = "(" + strings.Join(parts, ",") + ")"
	}
	s += node.Name
	if node.HasLength {
		s += ":" + strconv.FormatFloat(node.BranchLength, 'g', -1, 64)
	}
	if node.IsRoot() {
		s += ";"
	}
	return s
}

// LongString returns a human readable node description.
func (node *Node) LongString() (s string) {
	s = "<"
	if node.Parent == nil {
		s += "root, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("Id=%v, Length=%v", node.Id, node.Length())
	s += ">"
	return
}

// ChildNodes returns the node children.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// Walk sends the node and its descendants in pre-order.
func (node *Node) Walk(ch chan *Node, filter func(*Node) bool) {
	if filter == nil || filter(node) {
		ch <- node
	}
	for _, node := range node.childNodes {
		node.Walk(ch, filter)
	}
}

// NSubNodes returns the number of nodes in the subtree.
func (node *Node) NSubNodes() (size int) {
	for _, node := range node.childNodes {
		size += node.NSubNodes()
	}
	return size + 1
}

// IsRoot is true for the root node.
func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

// IsTerminal is true for leaves.
func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}

// IsSpecial returns true for Newick punctuation.
func IsSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', ';', ',':
		return true
	}
	return false
}

// NewickSplit is a bufio.SplitFunc returning Newick tokens.
func NewickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if IsSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || IsSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return 0, nil, nil
}

// ParseNewick reads a sample tree. The terminating semicolon is
// optional, a single name (with an optional length) is a valid tree.
func ParseNewick(rd io.Reader) (tree *Tree, err error) {
	scanner := bufio.NewScanner(rd)

	scanner.Split(NewickSplit)

	nodeId := 0

	node := NewNode(nil, nodeId)
	tree = &Tree{Node: node}
	nodeId++

	mode := normal
	depth := 0

	for scanner.Scan() {
		text := scanner.Text()
		switch text {
		case "(":
			subNode := NewNode(nil, nodeId)
			nodeId++
			node.AddChild(subNode)
			node = subNode
			depth++

		case ",":
			if node.Parent == nil {
				return nil, errors.New("top level comma mismatch")
			}
			subNode := NewNode(nil, nodeId)
			nodeId++

			node.Parent.AddChild(subNode)
			node = subNode

		case ")":
			if node.Parent == nil {
				return nil, errors.New("brackets mismatch")
			}
			node = node.Parent
			depth--
		case ":":
			mode = length
		case ";":
			if depth != 0 {
				return nil, errors.New("brackets mismatch")
			}
			return tree, nil
		default:
			switch mode {
			case length:
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "bad branch length %q", text)
				}
				if l < 0 {
					return nil, errors.Errorf("negative branch length %v", l)
				}
				node.BranchLength = l
				node.HasLength = true
				mode = normal
			default:
				if node.Name != "" {
					return nil, errors.Errorf("unexpected token %q after %q", text, node.Name)
				}
				node.Name = text
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if depth != 0 {
		return nil, errors.New("brackets mismatch")
	}

	return tree, nil
}

// Parse parses a sample tree from a string.
func Parse(s string) (*Tree, error) {
	return ParseNewick(strings.NewReader(s))
}
