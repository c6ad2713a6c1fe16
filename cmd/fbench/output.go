package main

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"fbench/internal/domain/bench"
	"fbench/internal/fixture"
)

type reportPrinter struct {
	out   io.Writer
	alert *color.Color
	ok    *color.Color

	passed int
	failed int
}

func newReportPrinter(out io.Writer) *reportPrinter {
	return &reportPrinter{
		out:   out,
		alert: color.New(color.FgRed, color.Bold),
		ok:    color.New(color.FgGreen),
	}
}

// Start prints the command of an invocation before it runs.
func (p *reportPrinter) Start(report bench.Report) {
	if report.Command != "" {
		fmt.Fprintln(p.out, report.Command)
	}
}

// Print reports the outcome of one compilation or invocation.
func (p *reportPrinter) Print(report bench.Report) {
	name := report.Case.Name
	if report.Status == bench.StatusCompileFailed {
		p.failed++
		p.alert.Fprintf(p.out, "Compilation failed for test %s.\n", name)
		if report.Err != nil {
			fmt.Fprintf(p.out, "  %v\n", report.Err)
		}
		return
	}

	if report.Mismatch != nil {
		p.alert.Fprintf(p.out, "Wrong result on test %s.\n", name)
		fmt.Fprintf(p.out, "  got:      %s\n", fixture.Format(report.Mismatch.Got))
		fmt.Fprintf(p.out, "  expected: %s\n", fixture.Format(report.Mismatch.Want))
	}

	switch report.Status {
	case bench.StatusOK, bench.StatusWrongAnswer:
		if report.Mismatch != nil {
			p.failed++
		} else {
			p.passed++
		}
		if report.Record != nil {
			p.ok.Fprintf(p.out, "%s size %s: %s\n", name, humanize.Comma(int64(report.Size)), formatMean(report.Record))
		}
	default:
		p.failed++
		p.alert.Fprintf(p.out, "%s size %s: %s\n", name, humanize.Comma(int64(report.Size)), report.Status)
		if report.Err != nil {
			fmt.Fprintf(p.out, "  %v\n", report.Err)
		}
	}
}

func (p *reportPrinter) Summary() {
	fmt.Fprintf(p.out, "%d passed, %d failed\n", p.passed, p.failed)
}

func formatMean(record *bench.TimingRecord) string {
	if math.IsNaN(record.Mean) {
		return fmt.Sprintf("no timing samples over %d runs", record.Repetitions)
	}
	return fmt.Sprintf("mean %.2f over %d runs", record.Mean, record.Repetitions)
}
