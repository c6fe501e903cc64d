package memmonitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSamples = 60

	heapWarnBytes   = 350 << 20
	sysWarnBytes    = 500 << 20
	growthWarnBytes = 50 << 20
	growthWindow    = 10
)

// Sample is one runtime.MemStats reading.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	Sys        uint64    `json:"sys_bytes"`
	HeapAlloc  uint64    `json:"heap_alloc_bytes"`
	HeapSys    uint64    `json:"heap_sys_bytes"`
	StackInuse uint64    `json:"stack_inuse_bytes"`
	Goroutines int       `json:"goroutines"`
	NumGC      uint32    `json:"num_gc"`
}

type Range struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
	Avg uint64 `json:"avg"`
}

type Summary struct {
	Heap    Range `json:"heap_alloc_mb"`
	Sys     Range `json:"sys_mb"`
	Samples int   `json:"samples"`
}

type Report struct {
	Timestamp time.Time         `json:"timestamp"`
	Memory    map[string]uint64 `json:"memory"`
	Human     map[string]string `json:"human"`
	Summary   *Summary          `json:"summary"`
}

// Monitor keeps the last N samples in a ring.
type Monitor struct {
	mu      sync.Mutex
	samples []Sample
	idx     int
	count   int

	read func() Sample
}

func New(size int) *Monitor {
	if size <= 0 {
		size = DefaultSamples
	}
	return &Monitor{samples: make([]Sample, size), read: readRuntime}
}

func readRuntime() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Sample{
		Timestamp:  time.Now().UTC(),
		Sys:        ms.Sys,
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		StackInuse: ms.StackInuse,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      ms.NumGC,
	}
}

// Start samples every interval until ctx is done.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	logrus.Infof("[MEMORY] Monitor started (sampling every %s)", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logrus.Info("[MEMORY] Monitor stopped")
				return
			case <-ticker.C:
				m.Collect()
			}
		}
	}()
}

// Collect takes one sample, logs it and reports anomalies.
func (m *Monitor) Collect() Sample {
	s := m.read()

	m.mu.Lock()
	m.samples[m.idx] = s
	m.idx = (m.idx + 1) % len(m.samples)
	if m.count < len(m.samples) {
		m.count++
	}
	history := m.historyLocked()
	m.mu.Unlock()

	logrus.Debugf("[MEMORY] Sys: %s | Heap: %s/%s | Goroutines: %d",
		humanize.IBytes(s.Sys), humanize.IBytes(s.HeapAlloc), humanize.IBytes(s.HeapSys), s.Goroutines)

	for _, w := range anomalies(history) {
		logrus.Warn("[MEMORY] " + w)
	}
	return s
}

// anomalies checks the newest sample in history.
func anomalies(history []Sample) []string {
	if len(history) == 0 {
		return nil
	}
	cur := history[len(history)-1]

	var out []string
	if cur.HeapAlloc > heapWarnBytes {
		out = append(out, "High heap usage: "+humanize.IBytes(cur.HeapAlloc))
	}
	if cur.Sys > sysWarnBytes {
		out = append(out, "High process memory: "+humanize.IBytes(cur.Sys))
	}
	if len(history) >= growthWindow {
		past := history[len(history)-growthWindow]
		if cur.HeapAlloc > past.HeapAlloc && cur.HeapAlloc-past.HeapAlloc > growthWarnBytes {
			out = append(out, "Rapid memory growth: +"+humanize.IBytes(cur.HeapAlloc-past.HeapAlloc)+" in 10 samples")
		}
	}
	return out
}

// History returns the samples oldest first.
func (m *Monitor) History() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyLocked()
}

func (m *Monitor) historyLocked() []Sample {
	out := make([]Sample, 0, m.count)
	start := (m.idx - m.count + len(m.samples)) % len(m.samples)
	for i := 0; i < m.count; i++ {
		out = append(out, m.samples[(start+i)%len(m.samples)])
	}
	return out
}

func (m *Monitor) Summary() *Summary {
	return summarize(m.History())
}

func summarize(history []Sample) *Summary {
	if len(history) == 0 {
		return nil
	}
	heap := make([]uint64, len(history))
	sys := make([]uint64, len(history))
	for i, s := range history {
		heap[i], sys[i] = s.HeapAlloc, s.Sys
	}
	return &Summary{Heap: toMB(rangeOf(heap)), Sys: toMB(rangeOf(sys)), Samples: len(history)}
}

func rangeOf(values []uint64) Range {
	r := Range{Min: values[0], Max: values[0]}
	var total uint64
	for _, v := range values {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
		total += v
	}
	r.Avg = total / uint64(len(values))
	return r
}

func toMB(r Range) Range {
	mb := func(v uint64) uint64 { return (v + 1<<19) >> 20 }
	return Range{Min: mb(r.Min), Max: mb(r.Max), Avg: mb(r.Avg)}
}

// MetricsJSON is the payload of the memory endpoint. Without samples it
// reports a live reading.
func (m *Monitor) MetricsJSON() Report {
	history := m.History()
	cur := m.read()
	if len(history) > 0 {
		cur = history[len(history)-1]
	}
	return Report{
		Timestamp: cur.Timestamp,
		Memory: map[string]uint64{
			"sys_bytes":         cur.Sys,
			"heap_alloc_bytes":  cur.HeapAlloc,
			"heap_sys_bytes":    cur.HeapSys,
			"stack_inuse_bytes": cur.StackInuse,
		},
		Human: map[string]string{
			"sys":        humanize.IBytes(cur.Sys),
			"heap_alloc": humanize.IBytes(cur.HeapAlloc),
			"heap_sys":   humanize.IBytes(cur.HeapSys),
		},
		Summary: summarize(history),
	}
}
