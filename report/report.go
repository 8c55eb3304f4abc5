// Package report formats the results of a cache simulation.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

// A Summary is everything a report shows.
type Summary struct {
	Name      string           `json:"name"`
	TraceFile string           `json:"trace_file"`
	Config    cache.Config     `json:"config"`
	Stats     cache.Statistics `json:"stats"`
}

// A Source is anything that exposes the configuration and the counters of a
// cache.
type Source interface {
	Name() string
	Config() cache.Config
	Stats() cache.Statistics
}

// A SetSource exposes the content of the sets of a cache.
type SetSource interface {
	NumSets() int
	Set(setID int) []cache.BlockState
}

// Summarize collects the summary of a cache.
func Summarize(e Source, traceFile string) Summary {
	return Summary{
		Name:      e.Name(),
		TraceFile: traceFile,
		Config:    e.Config(),
		Stats:     e.Stats(),
	}
}

// Performance evaluates the access time model on the summary.
func (s Summary) Performance() cache.Performance {
	return cache.EvaluatePerformance(s.Config, s.Stats)
}

// Write prints the configuration, the raw counters and the average access
// time in the classic text layout.
func Write(w io.Writer, s Summary) error {
	p := &printer{w: w}

	p.banner(" Simulator configuration ", 35)
	p.configLine(s.Name, "BLOCKSIZE", s.Config.BlockSize)
	p.configLine(s.Name, "SIZE", s.Config.CacheByteSize)
	p.configLine(s.Name, "ASSOC", s.Config.Associativity)
	p.configLine(s.Name, "REPLACEMENT_POLICY", int(s.Config.ReplacementPolicy))
	p.configLine(s.Name, "WRITE_POLICY", int(s.Config.WritePolicy))
	p.printf("%-24s %12s\n", "  trace_file:", s.TraceFile)
	p.printf("  %s\n", strings.Repeat("=", 35))
	p.printf("\n")

	perf := s.Performance()

	p.banner(" Simulation results (raw) ", 38)
	p.rawLine("a", "number of %s reads:", s.Name, s.Stats.Reads)
	p.rawLine("b", "number of %s read misses:", s.Name, s.Stats.ReadMisses)
	p.rawLine("c", "number of %s writes:", s.Name, s.Stats.Writes)
	p.rawLine("d", "number of %s write misses:", s.Name, s.Stats.WriteMisses)
	p.rawLine("e", "%s miss rate:", s.Name, fmt.Sprintf("%.4f", perf.MissRate))
	p.rawLine("f", "total memory traffic:", "", s.Stats.MemoryTraffic)
	p.printf("\n")

	p.banner(" Simulation results (performance) ", 42)
	p.printf("%-23s %18s\n", "  1. average access time:",
		fmt.Sprintf("%.4f ns", perf.AverageAccessTime))

	return p.err
}

// WriteJSON prints the summary and the performance model as one JSON
// object.
func WriteJSON(w io.Writer, s Summary) error {
	out := struct {
		Summary
		Performance cache.Performance `json:"performance"`
	}{
		Summary:     s,
		Performance: s.Performance(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

// WriteSets prints the content of every set, one line per set.
func WriteSets(w io.Writer, e SetSource) error {
	p := &printer{w: w}

	for i := 0; i < e.NumSets(); i++ {
		p.printf("set %5d:", i)

		for _, b := range e.Set(i) {
			if !b.Valid {
				p.printf("  %8s - -", "-")
				continue
			}

			dirty := "-"
			if b.Dirty {
				dirty = "D"
			}

			p.printf("  %8x V %s", b.Tag, dirty)
		}

		p.printf("\n")
	}

	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) banner(title string, width int) {
	p.printf("  %s\n", center(title, width, "="))
}

func (p *printer) configLine(name, field string, value int) {
	p.printf("%-24s %12d\n", "  "+name+"_"+field+":", value)
}

func (p *printer) rawLine(item, format, name string, value any) {
	label := format
	if strings.Contains(format, "%s") {
		label = fmt.Sprintf(format, name)
	}

	p.printf("%-31s %8v\n", "  "+item+". "+label, value)
}

func center(s string, width int, fill string) string {
	if len(s) >= width {
		return s
	}

	pad := width - len(s)
	left := pad / 2

	return strings.Repeat(fill, left) + s + strings.Repeat(fill, pad-left)
}
