package monitoring

import (
	"context"

	chatApp "github.com/lhudash/chisa-api/chathistory/application"
	"github.com/lhudash/chisa-api/pkg/memmonitor"
	"github.com/lhudash/chisa-api/pkg/msgworker"
	profileApp "github.com/lhudash/chisa-api/profiles/application"
)

// MemoryStats is the live runtime reading plus the sampled summary.
type MemoryStats struct {
	HeapAlloc  string              `json:"heap_alloc"`
	HeapSys    string              `json:"heap_sys"`
	Sys        string              `json:"sys"`
	Goroutines int                 `json:"goroutines"`
	NumGC      uint32              `json:"num_gc"`
	Summary    *memmonitor.Summary `json:"summary,omitempty"`
}

type Stats struct {
	ServerID     string                `json:"server_id"`
	Uptime       string                `json:"uptime"`
	ProfileCache profileApp.CacheStats `json:"profile_cache"`
	ChatBuffer   chatApp.BufferStats   `json:"chat_buffer"`
	FlushPool    *msgworker.PoolStats  `json:"flush_pool,omitempty"`
	Memory       MemoryStats           `json:"memory"`
	Settings     map[string]any        `json:"settings"`
}

type IMonitoringUsecase interface {
	Stats(ctx context.Context) Stats
	Memory() memmonitor.Report
}
