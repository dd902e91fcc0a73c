/*

Dng-loglike computes the log likelihood of sequencing data on a
pedigree and can estimate the germline mutation rate and theta.

The basic usage of dng-loglike looks like this:

	dng-loglike family.ped readgroups.txt depths.tsv

, this will print the total log likelihood of the sites.

The mutation rate and theta maximizing the likelihood can be found
with an optimizer:

	dng-loglike -method lbfgsb family.ped readgroups.txt depths.tsv

To see all the options run:

	dng-loglike -h

*/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("dng-loglike")
var formatter = logging.MustStringFormatter(`%{message}`)

// packages which log
var loggers = []string{"dng-loglike", "graph", "pedigree", "readgroup", "pileup", "probability", "config", "checkpoint", "optimize"}

// command-line options
var (
	// application
	app = kingpin.New("dng-loglike", "pedigree sequencing data log likelihood").Version(version)

	// input
	pedFileName    = app.Arg("ped", "pedigree file").Required().ExistingFile()
	rgFileName     = app.Arg("rg", "read groups (SAM header or library sample pairs)").Required().ExistingFile()
	pileupFileName = app.Arg("pileup", "site depths, one A,C,G,T column per read group").Required().ExistingFile()

	// model parameters
	paramsFileName = app.Flag("params", "YAML parameter file").ExistingFile()
	model          = app.Flag("model", "inheritance model (autosomal, maternal, paternal, x-linked, y-linked, w-linked, z-linked), from parameters by default").String()
	theta          = app.Flag("theta", "population diversity (-1: from parameters)").Default("-1").Float64()
	mu             = app.Flag("mu", "germline mutation rate (-1: from parameters)").Default("-1").Float64()
	muSomatic      = app.Flag("mu-somatic", "somatic mutation rate (-1: from parameters)").Default("-1").Float64()
	muLibrary      = app.Flag("mu-library", "library mutation rate (-1: from parameters)").Default("-1").Float64()

	// optimizer parameters
	iterations = app.Flag("iter", "number of iterations").Default("10000").Int()
	report     = app.Flag("report", "report every N iterations").Default("10").Int()
	method     = app.Flag("method", "optimization method to use "+
		"(lbfgsb: limited-memory Broyden–Fletcher–Goldfarb–Shanno with bounding constraints, "+
		"simplex: downhill simplex, "+
		"none: just compute likelihood, no optimization"+
		")").Default("none").Enum("lbfgsb", "simplex", "none")

	// technical
	dbFileName = app.Flag("db", "save optimizer checkpoints to a bolt database and resume from it").String()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// output
	outLogF  = app.Flag("log", "write log to a file").String()
	sitesF   = app.Flag("sites", "write per site log likelihoods to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, l := range loggers {
		logging.SetLevel(level, l)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	summary, err := run()
	if err != nil {
		log.Fatal(err)
	}
	summary.Version = version
	summary.CommandLine = os.Args
	fmt.Printf("log_likelihood\t%v\n", summary.MaxLnL)

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
