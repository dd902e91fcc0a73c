package main

import (
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"

	"bitbucket.org/Davydov/godng/config"
	"bitbucket.org/Davydov/godng/probability"
)

// SiteCall is a reported site.
type SiteCall struct {
	Chrom string `json:"chrom"`
	Pos   int    `json:"pos"`
	Ref   string `json:"ref"`
	probability.Stats
}

// CallSummary is storing dng-call run summary information.
type CallSummary struct {
	// Version stores dng-call version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Params are the effective model parameters.
	Params *config.Params `json:"params"`
	// Labels are the relationship graph node labels which node arrays
	// of the calls refer to.
	Labels []string `json:"labels"`
	// Sites is the number of sites read.
	Sites int `json:"sites"`
	// Resumed is the number of sites found in the database.
	Resumed int `json:"resumed"`
	// Calls are the reported sites.
	Calls []SiteCall `json:"calls"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

var callColumns = []string{"#CHROM", "POS", "REF", "MUP", "LLD", "MUX", "MU1P", "DNQ", "DNL", "DNT", "ALLELES"}

// callWriter writes calls as a tab-separated table.
type callWriter struct {
	w *tsv.Writer
}

func newCallWriter(w io.Writer) *callWriter {
	return &callWriter{w: tsv.NewWriter(w)}
}

// WriteHeader writes meta lines followed by the column names.
func (cw *callWriter) WriteHeader(meta []string) error {
	for _, m := range meta {
		cw.w.WriteString(m)
		if err := cw.w.EndLine(); err != nil {
			return err
		}
	}
	for _, c := range callColumns {
		cw.w.WriteString(c)
	}
	return cw.w.EndLine()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Write writes a call.
func (cw *callWriter) Write(sc *SiteCall) error {
	cw.w.WriteString(sc.Chrom)
	cw.w.WriteInt64(int64(sc.Pos))
	cw.w.WriteString(sc.Ref)
	cw.w.WriteString(formatFloat(sc.Mup))
	cw.w.WriteString(formatFloat(sc.Lld))
	cw.w.WriteString(formatFloat(sc.Mux))
	cw.w.WriteString(formatFloat(sc.Mu1p))
	cw.w.WriteInt64(int64(sc.Dnq))
	cw.w.WriteString(orDot(sc.Dnl))
	cw.w.WriteString(orDot(sc.Dnt))
	cw.w.WriteString(sc.Alleles)
	return cw.w.EndLine()
}

// Flush writes buffered data.
func (cw *callWriter) Flush() error {
	return cw.w.Flush()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}
