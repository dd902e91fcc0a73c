package main

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/godng/checkpoint"
	"bitbucket.org/Davydov/godng/config"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/pileup"
	"bitbucket.org/Davydov/godng/probability"
	"bitbucket.org/Davydov/godng/readgroup"
)

// caller calls mutations at sites, skipping sites stored in the
// database.
type caller struct {
	*probability.CallMutations
	store   *checkpoint.Store
	keep    []int
	alleles bool
}

// call returns the call of a site or nil. resumed is true if the result
// comes from the store.
func (c *caller) call(site *pileup.Site) (res *SiteCall, resumed bool, err error) {
	key := checkpoint.SiteKey(site.Chrom, site.Pos)
	done, err := c.store.Done(key)
	if err != nil {
		return nil, false, err
	}
	if done {
		var sc SiteCall
		ok, err := c.store.Load(key, &sc)
		if err != nil || !ok {
			return nil, true, err
		}
		return &sc, true, nil
	}

	depths := site.Depths.Select(c.keep)
	var stats probability.Stats
	var called bool
	if c.alleles {
		called = c.CallAlleles(pileup.NewAlleleDepths(depths, site.Ref), &stats)
	} else {
		called = c.Call(depths, site.Ref, &stats)
	}
	if called {
		res = &SiteCall{
			Chrom: site.Chrom,
			Pos:   site.Pos,
			Ref:   site.RefName(),
			Stats: stats,
		}
		log.Debugf("%s:%d mup=%v dnl=%s", site.Chrom, site.Pos, stats.Mup, stats.Dnl)
		err = c.store.Save(key, res)
	} else {
		err = c.store.Save(key, nil)
	}
	return res, false, err
}

func createOrStdout(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// closeChecked closes c and stores its error in err unless err is
// already set.
func closeChecked(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = errors.Wrap(cerr, "error closing output")
	}
}

func run() (summary *CallSummary, err error) {
	startTime := time.Now()
	summary = &CallSummary{}

	params, err := config.LoadWithOverrides(*paramsFileName, config.Overrides{
		Model:     *model,
		Theta:     *theta,
		Mu:        *mu,
		MuSomatic: *muSomatic,
		MuLibrary: *muLibrary,
		MinProb:   *minProb,
	})
	if err != nil {
		return nil, err
	}
	summary.Params = params
	log.Infof("Inheritance model: %s", params.Model)
	log.Infof("mu=%g, mu_somatic=%g, mu_library=%g, theta=%g", params.Mu, params.MuSomatic, params.MuLibrary, params.Theta)

	if *paramsOutF != "" {
		f, err := os.Create(*paramsOutF)
		if err != nil {
			return nil, err
		}
		err = params.Write(f)
		closeChecked(f, &err)
		if err != nil {
			return nil, err
		}
	}

	ped, err := pedigree.ReadFile(*pedFileName)
	if err != nil {
		return nil, err
	}
	rgs, err := readgroup.ReadFile(*rgFileName)
	if err != nil {
		return nil, err
	}
	// depth columns follow all the read groups of the file
	nColumns := rgs.Len()

	g, err := graph.Construct(ped, rgs, params.Model, params.Mu, params.MuSomatic, params.MuLibrary)
	if err != nil {
		return nil, err
	}
	if g.NumLibraries() == 0 {
		return nil, errors.New("no read group matches the pedigree")
	}
	summary.Labels = g.Labels()

	if *graphF != "" {
		f, err := os.Create(*graphF)
		if err != nil {
			return nil, err
		}
		err = g.PrintTable(f)
		if err == nil {
			err = g.PrintMachine(f)
		}
		closeChecked(f, &err)
		if err != nil {
			return nil, err
		}
	}

	var db *bolt.DB
	if *dbFileName != "" {
		db, err = bolt.Open(*dbFileName, 0600, nil)
		if err != nil {
			return nil, errors.Wrap(err, "error opening database")
		}
		defer db.Close()
		log.Infof("Using database %s", *dbFileName)
	}

	c := &caller{
		CallMutations: probability.NewCallMutations(params.MinProb, g, params.ToProbability()),
		store:         checkpoint.NewStore(db),
		keep:          g.KeepLibraryIndex(),
		alleles:       *alleles,
	}

	pf, err := os.Open(*pileupFileName)
	if err != nil {
		return nil, err
	}
	defer pf.Close()
	rd := pileup.NewReader(pf, nColumns)

	out, err := createOrStdout(*outF)
	if err != nil {
		return nil, err
	}
	defer closeChecked(out, &err)
	w := newCallWriter(out)
	if err := w.WriteHeader(g.BCFHeaderLines()); err != nil {
		return nil, err
	}

	var mups []float64
	for {
		site, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		summary.Sites++
		sc, resumed, err := c.call(site)
		if err != nil {
			return nil, err
		}
		if resumed {
			summary.Resumed++
		}
		if sc == nil {
			continue
		}
		if err := w.Write(sc); err != nil {
			return nil, err
		}
		summary.Calls = append(summary.Calls, *sc)
		mups = append(mups, sc.Mup)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	log.Noticef("Processed %d sites (%d resumed), %d calls", summary.Sites, summary.Resumed, len(summary.Calls))

	if *plotF != "" {
		if err := plotMup(mups, *plotF); err != nil {
			log.Error("Error plotting:", err)
		}
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.TotalTime = deltaT.Seconds()
	return summary, nil
}
