// Package metrics provides the pluggable performance-metrics provider
// behind engine status reporting.
package metrics

import (
	"runtime"
	"sync"
	"time"
)

// Performance is a point-in-time resource snapshot.
type Performance struct {
	CPUFraction   float64       `json:"cpu"`
	MemoryBytes   uint64        `json:"memory"`
	ResponseTime  time.Duration `json:"responseTime"`
	Goroutines    int           `json:"goroutines"`
	SampleCount   int           `json:"sampleCount"`
	PeakResponse  time.Duration `json:"peakResponse"`
	LastSampledAt time.Time     `json:"lastSampledAt"`
}

// Provider supplies performance figures for status reporting. Implemented
// by Runtime in production; tests substitute fixtures.
type Provider interface {
	// RecordLatency feeds an observed operation latency into the window.
	RecordLatency(d time.Duration)

	// Snapshot returns current resource figures.
	Snapshot() Performance
}

// Runtime is a Provider backed by the Go runtime: heap in use from
// MemStats, GC CPU fraction as the CPU figure, and a sliding window of
// observed operation latencies for response time.
type Runtime struct {
	samples     []time.Duration
	idx         int
	count       int
	peak        time.Duration
	lastSampled time.Time
	mu          sync.RWMutex
}

// NewRuntime creates a runtime-backed provider with the given latency
// window size.
func NewRuntime(windowSize int) *Runtime {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &Runtime{samples: make([]time.Duration, windowSize)}
}

// RecordLatency records one operation latency sample.
func (r *Runtime) RecordLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples[r.idx] = d
	r.idx = (r.idx + 1) % len(r.samples)
	if r.count < len(r.samples) {
		r.count++
	}
	if d > r.peak {
		r.peak = d
	}
	r.lastSampled = time.Now()
}

// Snapshot returns current resource figures.
func (r *Runtime) Snapshot() Performance {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var total time.Duration
	for i := 0; i < r.count; i++ {
		total += r.samples[i]
	}
	avg := time.Duration(0)
	if r.count > 0 {
		avg = total / time.Duration(r.count)
	}

	return Performance{
		CPUFraction:   memStats.GCCPUFraction,
		MemoryBytes:   memStats.HeapInuse,
		ResponseTime:  avg,
		Goroutines:    runtime.NumGoroutine(),
		SampleCount:   r.count,
		PeakResponse:  r.peak,
		LastSampledAt: r.lastSampled,
	}
}
