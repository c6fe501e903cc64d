package memmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scripted(m *Monitor, heaps ...uint64) {
	i := 0
	m.read = func() Sample {
		h := heaps[i%len(heaps)]
		i++
		return Sample{Timestamp: time.Unix(int64(i), 0), HeapAlloc: h, Sys: h * 2}
	}
}

func TestRingKeepsNewestSamples(t *testing.T) {
	m := New(3)
	scripted(m, 1<<20, 2<<20, 3<<20, 4<<20)
	for i := 0; i < 4; i++ {
		m.Collect()
	}

	history := m.History()
	require.Len(t, history, 3)
	assert.Equal(t, uint64(2<<20), history[0].HeapAlloc)
	assert.Equal(t, uint64(4<<20), history[2].HeapAlloc)

	s := m.Summary()
	require.NotNil(t, s)
	assert.Equal(t, Range{Min: 2, Max: 4, Avg: 3}, s.Heap)
	assert.Equal(t, Range{Min: 4, Max: 8, Avg: 6}, s.Sys)
	assert.Equal(t, 3, s.Samples)
}

func TestAnomalies(t *testing.T) {
	assert.Empty(t, anomalies(nil))

	high := []Sample{{HeapAlloc: 400 << 20, Sys: 600 << 20}}
	assert.Len(t, anomalies(high), 2)

	growth := make([]Sample, 10)
	for i := range growth {
		growth[i] = Sample{HeapAlloc: uint64(i) * (10 << 20)}
	}
	warnings := anomalies(growth)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Rapid memory growth")
}

func TestMetricsJSON(t *testing.T) {
	m := New(0)
	empty := m.MetricsJSON()
	assert.Nil(t, empty.Summary)
	assert.NotZero(t, empty.Memory["sys_bytes"])

	scripted(m, 5<<20)
	m.Collect()
	report := m.MetricsJSON()
	require.NotNil(t, report.Summary)
	assert.Equal(t, uint64(5<<20), report.Memory["heap_alloc_bytes"])
	assert.Equal(t, "5.0 MiB", report.Human["heap_alloc"])
}
