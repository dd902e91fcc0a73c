// Package pedigree describes individuals, their sex, parents and
// sample trees, and reads them from PED-like text files.
package pedigree

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("pedigree")

// Sex of an individual.
type Sex int

const (
	// Unknown sex.
	Unknown Sex = iota
	// Male individual.
	Male
	// Female individual.
	Female
)

// String returns the sex name.
func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	}
	return "unknown"
}

// ParseSex converts a PED sex column. Everything not recognized is
// Unknown.
func ParseSex(s string) Sex {
	switch strings.ToLower(s) {
	case "1", "m", "male":
		return Male
	case "2", "f", "female":
		return Female
	}
	return Unknown
}

// Member is a pedigree individual. Father and Mother are empty for
// unknown parents. Samples is a Newick sample tree; if empty, the
// individual has a single sample named after it.
type Member struct {
	Family  string
	ID      string
	Father  string
	Mother  string
	Sex     Sex
	Samples string
}

// Pedigree is an ordered list of individuals.
type Pedigree struct {
	Members []Member
	index   map[string]int
}

// New creates a pedigree from members. Member ids must be unique.
func New(members []Member) (*Pedigree, error) {
	p := &Pedigree{index: make(map[string]int, len(members))}
	for _, m := range members {
		if err := p.Add(m); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends an individual.
func (p *Pedigree) Add(m Member) error {
	if m.ID == "" {
		return errors.New("empty individual id")
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if _, ok := p.index[m.ID]; ok {
		return errors.Errorf("duplicate individual %s", m.ID)
	}
	p.index[m.ID] = len(p.Members)
	p.Members = append(p.Members, m)
	return nil
}

// Lookup returns the position of an individual.
func (p *Pedigree) Lookup(id string) (int, bool) {
	i, ok := p.index[id]
	return i, ok
}

// Len returns the number of individuals.
func (p *Pedigree) Len() int {
	return len(p.Members)
}

func missing(s string) bool {
	return s == "0" || s == "."
}

// ParsePed reads whitespace separated lines
//
//	family id father mother sex [samples]
//
// Lines starting with # are comments. Parents "0" or "." are missing.
// The optional samples column is a Newick tree of sample names.
func ParsePed(rd io.Reader) (*Pedigree, error) {
	p := &Pedigree{index: make(map[string]int)}
	scanner := bufio.NewScanner(rd)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, errors.Errorf("line %d: expected at least 5 columns, got %d", lineNo, len(fields))
		}
		m := Member{
			Family: fields[0],
			ID:     fields[1],
			Father: fields[2],
			Mother: fields[3],
			Sex:    ParseSex(fields[4]),
		}
		if missing(m.Father) {
			m.Father = ""
		}
		if missing(m.Mother) {
			m.Mother = ""
		}
		if len(fields) > 5 {
			m.Samples = strings.Join(fields[5:], "")
		}
		if err := p.Add(m); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return nil, errors.New("empty pedigree")
	}
	log.Infof("Read pedigree with %d individuals", p.Len())
	return p, nil
}

// ReadFile reads a pedigree file.
func ReadFile(path string) (*Pedigree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ParsePed(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading pedigree %s", path)
	}
	return p, nil
}
