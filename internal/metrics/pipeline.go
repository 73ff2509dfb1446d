// Package metrics tracks performance counters for the guide pipeline.
package metrics

import (
	"sync/atomic"
	"time"
)

// Pipeline tracks counters and latencies across guide generation runs.
// All methods are safe on a nil receiver so instrumentation can be optional.
type Pipeline struct {
	LinesParsed      atomic.Uint64
	Lookups          atomic.Uint64
	LookupErrors     atomic.Uint64
	GuidesGenerated  atomic.Uint64
	GenerationErrors atomic.Uint64

	LookupLatency     *Histogram
	GenerationLatency *Histogram

	startTime time.Time
}

// NewPipeline creates a metrics collector.
func NewPipeline() *Pipeline {
	return &Pipeline{
		LookupLatency:     NewHistogram(10000),
		GenerationLatency: NewHistogram(1000),
		startTime:         time.Now(),
	}
}

// AddLinesParsed records how many lines a parse produced.
func (p *Pipeline) AddLinesParsed(n int) {
	if p == nil {
		return
	}
	p.LinesParsed.Add(uint64(n))
}

// ObserveLookup records one card lookup attempt and its latency.
func (p *Pipeline) ObserveLookup(d time.Duration, ok bool) {
	if p == nil {
		return
	}
	p.Lookups.Add(1)
	if !ok {
		p.LookupErrors.Add(1)
	}
	p.LookupLatency.Record(d)
}

// ObserveGeneration records one guide generation attempt and its latency.
func (p *Pipeline) ObserveGeneration(d time.Duration, ok bool) {
	if p == nil {
		return
	}
	if ok {
		p.GuidesGenerated.Add(1)
	} else {
		p.GenerationErrors.Add(1)
	}
	p.GenerationLatency.Record(d)
}

// Report is a point-in-time summary suitable for JSON serialization.
type Report struct {
	UptimeSeconds     float64  `json:"uptime_seconds"`
	LinesParsed       uint64   `json:"lines_parsed"`
	Lookups           uint64   `json:"lookups"`
	LookupErrors      uint64   `json:"lookup_errors"`
	GuidesGenerated   uint64   `json:"guides_generated"`
	GenerationErrors  uint64   `json:"generation_errors"`
	LookupLatency     Snapshot `json:"lookup_latency"`
	GenerationLatency Snapshot `json:"generation_latency"`
}

// Report snapshots all counters and histograms.
func (p *Pipeline) Report() Report {
	if p == nil {
		return Report{}
	}
	return Report{
		UptimeSeconds:     time.Since(p.startTime).Seconds(),
		LinesParsed:       p.LinesParsed.Load(),
		Lookups:           p.Lookups.Load(),
		LookupErrors:      p.LookupErrors.Load(),
		GuidesGenerated:   p.GuidesGenerated.Load(),
		GenerationErrors:  p.GenerationErrors.Load(),
		LookupLatency:     p.LookupLatency.Snapshot(),
		GenerationLatency: p.GenerationLatency.Snapshot(),
	}
}
