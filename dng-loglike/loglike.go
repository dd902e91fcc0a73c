package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/godng/checkpoint"
	"bitbucket.org/Davydov/godng/config"
	"bitbucket.org/Davydov/godng/graph"
	"bitbucket.org/Davydov/godng/optimize"
	"bitbucket.org/Davydov/godng/pedigree"
	"bitbucket.org/Davydov/godng/pileup"
	"bitbucket.org/Davydov/godng/probability"
	"bitbucket.org/Davydov/godng/readgroup"
)

// LoglikeSummary is storing dng-loglike run summary information.
type LoglikeSummary struct {
	// Version stores dng-loglike version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Params are the starting model parameters.
	Params *config.Params `json:"params"`
	// Sites is the number of sites.
	Sites int `json:"sites"`
	// Method is the optimization method.
	Method string `json:"method"`
	// MaxLnL is the maximum log likelihood.
	MaxLnL float64 `json:"maxLnL"`
	// MaxLParameters is the maximum likelihood parameter values.
	MaxLParameters map[string]float64 `json:"maxLParameters"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// getOptimizerFromString returns an optimizer from a string.
func getOptimizerFromString(method string) (optimize.Optimizer, error) {
	switch method {
	case "lbfgsb":
		return optimize.NewLBFGSB(), nil
	case "simplex":
		return optimize.NewDS(), nil
	case "none":
		return optimize.NewNone(), nil
	}
	return nil, fmt.Errorf("Unknown optimization method: %s", method)
}

// readSites reads all the sites and keeps the depths of the libraries
// with the given indices.
func readSites(rd io.Reader, nColumns int, keep []int) ([]*pileup.Site, error) {
	sites, err := pileup.NewReader(rd, nColumns).ReadAll()
	if err != nil {
		return nil, err
	}
	for _, s := range sites {
		s.Depths = s.Depths.Select(keep)
	}
	return sites, nil
}

// writeSites writes the log likelihood of every site.
func writeSites(w io.Writer, lp *probability.LogProbability, sites []*pileup.Site) (total float64, err error) {
	tw := tsv.NewWriter(w)
	for _, c := range []string{"#CHROM", "POS", "REF", "LOG_DATA", "LOG_SCALE", "LOG_LIKELIHOOD"} {
		tw.WriteString(c)
	}
	if err = tw.EndLine(); err != nil {
		return
	}
	for _, s := range sites {
		v := lp.Call(s.Depths, s.Ref)
		total += v.Total()
		tw.WriteString(s.Chrom)
		tw.WriteInt64(int64(s.Pos))
		tw.WriteString(s.RefName())
		tw.WriteString(strconv.FormatFloat(v.LogData, 'g', -1, 64))
		tw.WriteString(strconv.FormatFloat(v.LogScale, 'g', -1, 64))
		tw.WriteString(strconv.FormatFloat(v.Total(), 'g', -1, 64))
		if err = tw.EndLine(); err != nil {
			return
		}
	}
	err = tw.Flush()
	return
}

// optimizeModel runs the optimizer starting from a checkpoint if
// there is one.
func optimizeModel(m *probability.Model, opt optimize.Optimizer, db *bolt.DB) error {
	if db != nil {
		cpIO := checkpoint.NewCheckpointIO(db, []byte("loglike"), 60)
		data, err := cpIO.GetParameters()
		if err != nil {
			return errors.Wrap(err, "error reading checkpoint")
		}
		if data != nil {
			if err := m.GetFloatParameters().SetMap(data.Parameters); err != nil {
				return errors.Wrap(err, "error restoring checkpoint")
			}
		}
		opt.SetCheckpointIO(cpIO)
	}
	opt.SetOptimizable(m)
	opt.SetReportPeriod(*report)
	opt.WatchSignals(os.Interrupt, syscall.SIGUSR2)
	opt.Run(*iterations)
	return nil
}

func run() (summary *LoglikeSummary, err error) {
	startTime := time.Now()
	summary = &LoglikeSummary{Method: *method}

	params, err := config.LoadWithOverrides(*paramsFileName, config.Overrides{
		Model:     *model,
		Theta:     *theta,
		Mu:        *mu,
		MuSomatic: *muSomatic,
		MuLibrary: *muLibrary,
		MinProb:   -1,
	})
	if err != nil {
		return nil, err
	}
	summary.Params = params

	ped, err := pedigree.ReadFile(*pedFileName)
	if err != nil {
		return nil, err
	}
	rgs, err := readgroup.ReadFile(*rgFileName)
	if err != nil {
		return nil, err
	}
	nColumns := rgs.Len()

	g, err := graph.Construct(ped, rgs, params.Model, params.Mu, params.MuSomatic, params.MuLibrary)
	if err != nil {
		return nil, err
	}
	if g.NumLibraries() == 0 {
		return nil, errors.New("no read group matches the pedigree")
	}

	pf, err := os.Open(*pileupFileName)
	if err != nil {
		return nil, err
	}
	defer pf.Close()
	sites, err := readSites(pf, nColumns, g.KeepLibraryIndex())
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", *pileupFileName)
	}
	summary.Sites = len(sites)
	log.Infof("Read %d sites", len(sites))

	if *sitesF != "" {
		f, err := os.Create(*sitesF)
		if err != nil {
			return nil, err
		}
		_, err = writeSites(f, probability.NewLogProbability(g, params.ToProbability()), sites)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	m, err := probability.NewModel(ped, rgs, params.Model, params.Rates(), params.ToProbability(), sites)
	if err != nil {
		return nil, err
	}

	var db *bolt.DB
	if *dbFileName != "" {
		db, err = bolt.Open(*dbFileName, 0600, nil)
		if err != nil {
			return nil, errors.Wrap(err, "error opening database")
		}
		defer db.Close()
	}

	opt, err := getOptimizerFromString(*method)
	if err != nil {
		return nil, err
	}
	log.Infof("Using %s optimization.", *method)
	if err := optimizeModel(m, opt, db); err != nil {
		return nil, err
	}

	summary.MaxLnL = opt.GetMaxL()
	summary.MaxLParameters = make(map[string]float64)
	pars := m.GetFloatParameters()
	for i, name := range pars.Names(nil) {
		summary.MaxLParameters[name] = opt.GetMaxLParameters()[i]
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.TotalTime = deltaT.Seconds()
	return summary, nil
}
