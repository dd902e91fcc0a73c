package pileup

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"bitbucket.org/Davydov/godng/genotype"
)

var log = logging.MustGetLogger("pileup")

// Site is a genomic position with depths of all libraries.
type Site struct {
	Chrom  string
	Pos    int
	Ref    int
	Depths RawDepths
}

// RefName returns the reference nucleotide letter.
func (s *Site) RefName() string {
	return string(genotype.Nucleotides[s.Ref])
}

// Reader reads sites from tab-separated text:
//
//	chrom  pos  ref  A,C,G,T  A,C,G,T ...
//
// with one depth column per library. Empty lines and lines starting
// with # are skipped.
type Reader struct {
	scanner    *bufio.Scanner
	line       int
	nLibraries int
}

// NewReader creates a reader. If nLibraries is positive every site
// must have exactly that many depth columns.
func NewReader(r io.Reader, nLibraries int) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{scanner: s, nLibraries: nLibraries}
}

// Read returns the next site or io.EOF.
func (r *Reader) Read() (*Site, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		site, err := r.parse(strings.Split(line, "\t"))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", r.line)
		}
		return site, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *Reader) parse(fields []string) (*Site, error) {
	if len(fields) < 4 {
		return nil, errors.Errorf("expected at least 4 columns, got %d", len(fields))
	}
	if r.nLibraries > 0 && len(fields)-3 != r.nLibraries {
		return nil, errors.Errorf("expected %d libraries, got %d", r.nLibraries, len(fields)-3)
	}
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.Wrap(err, "bad position")
	}
	if len(fields[2]) != 1 {
		return nil, errors.Errorf("bad reference %q", fields[2])
	}
	site := &Site{
		Chrom:  fields[0],
		Pos:    pos,
		Ref:    genotype.NucIndex(fields[2][0]),
		Depths: make(RawDepths, len(fields)-3),
	}
	for l, f := range fields[3:] {
		d, err := ParseDepth(f)
		if err != nil {
			return nil, errors.Wrapf(err, "library %d", l)
		}
		site.Depths[l] = d
	}
	return site, nil
}

// ParseDepth parses comma-separated A,C,G,T counts.
func ParseDepth(s string) (d Depth, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != genotype.NNuc {
		return d, errors.Errorf("expected %d counts, got %q", genotype.NNuc, s)
	}
	for k, p := range parts {
		d[k], err = strconv.Atoi(p)
		if err != nil {
			return d, errors.Wrap(err, "bad count")
		}
		if d[k] < 0 {
			return d, errors.Errorf("negative count %d", d[k])
		}
	}
	return d, nil
}

// ReadAll reads all the remaining sites.
func (r *Reader) ReadAll() ([]*Site, error) {
	var sites []*Site
	for {
		s, err := r.Read()
		if err == io.EOF {
			log.Debugf("Read %d sites", len(sites))
			return sites, nil
		}
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
}
