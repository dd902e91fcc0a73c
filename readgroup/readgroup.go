// Package readgroup maps sequencing libraries to samples.
package readgroup

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("readgroup")

// Library is a sequencing library (read group) of a sample.
type Library struct {
	ID     string
	Sample string
	// Name is the library name (LB tag), ID if not given.
	Name string
}

// ReadGroups is an ordered list of libraries. Depth columns in the
// input follow this order.
type ReadGroups struct {
	Libraries []Library
}

// Len returns number of libraries.
func (r *ReadGroups) Len() int {
	return len(r.Libraries)
}

// Add appends a library.
func (r *ReadGroups) Add(lib Library) error {
	if lib.ID == "" || lib.Sample == "" {
		return errors.Errorf("library %q has no id or sample", lib.ID)
	}
	for _, l := range r.Libraries {
		if l.ID == lib.ID {
			return errors.Errorf("duplicate library %s", lib.ID)
		}
	}
	if lib.Name == "" {
		lib.Name = lib.ID
	}
	r.Libraries = append(r.Libraries, lib)
	return nil
}

// Keep retains only the libraries with the given indices and returns
// the removed ones.
func (r *ReadGroups) Keep(indices []int) (removed []Library) {
	keep := make(map[int]bool, len(indices))
	for _, i := range indices {
		keep[i] = true
	}
	var kept []Library
	for i, l := range r.Libraries {
		if keep[i] {
			kept = append(kept, l)
		} else {
			removed = append(removed, l)
		}
	}
	r.Libraries = kept
	return
}

// Parse reads read groups either from SAM header @RG lines
// (ID:, SM: and optional LB: tags) or from two-column
// "library sample" lines. Other SAM header lines and # comments are
// skipped.
func Parse(rd io.Reader) (*ReadGroups, error) {
	r := &ReadGroups{}
	scanner := bufio.NewScanner(rd)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var lib Library
		switch {
		case strings.HasPrefix(line, "@RG"):
			for _, f := range strings.Fields(line)[1:] {
				switch {
				case strings.HasPrefix(f, "ID:"):
					lib.ID = f[3:]
				case strings.HasPrefix(f, "SM:"):
					lib.Sample = f[3:]
				case strings.HasPrefix(f, "LB:"):
					lib.Name = f[3:]
				}
			}
		case strings.HasPrefix(line, "@"):
			continue
		default:
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, errors.Errorf("line %d: expected library and sample, got %d columns", lineNo, len(fields))
			}
			lib.ID, lib.Sample = fields[0], fields[1]
		}
		if err := r.Add(lib); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if r.Len() == 0 {
		return nil, errors.New("no read groups")
	}
	log.Infof("Read %d read groups", r.Len())
	return r, nil
}

// ReadFile reads a read group file.
func ReadFile(path string) (*ReadGroups, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading read groups %s", path)
	}
	return r, nil
}
