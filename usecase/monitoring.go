package usecase

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	chatApp "github.com/lhudash/chisa-api/chathistory/application"
	"github.com/lhudash/chisa-api/core/config"
	"github.com/lhudash/chisa-api/domains/monitoring"
	"github.com/lhudash/chisa-api/pkg/memmonitor"
	"github.com/lhudash/chisa-api/pkg/msgworker"
	profileApp "github.com/lhudash/chisa-api/profiles/application"
)

type monitoringService struct {
	serverID string
	started  time.Time
	profiles *profileApp.ProfileCache
	chats    *chatApp.ChatService
	pool     *msgworker.Pool
	memory   *memmonitor.Monitor
}

func NewMonitoringService(serverID string, profiles *profileApp.ProfileCache, chats *chatApp.ChatService, pool *msgworker.Pool, memory *memmonitor.Monitor) monitoring.IMonitoringUsecase {
	if memory == nil {
		memory = memmonitor.New(0)
	}
	return &monitoringService{
		serverID: serverID,
		started:  time.Now(),
		profiles: profiles,
		chats:    chats,
		pool:     pool,
		memory:   memory,
	}
}

func (s *monitoringService) Stats(_ context.Context) monitoring.Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := monitoring.Stats{
		ServerID: s.serverID,
		Uptime:   humanize.RelTime(s.started, time.Now(), "", ""),
		Memory: monitoring.MemoryStats{
			HeapAlloc:  humanize.IBytes(ms.HeapAlloc),
			HeapSys:    humanize.IBytes(ms.HeapSys),
			Sys:        humanize.IBytes(ms.Sys),
			Goroutines: runtime.NumGoroutine(),
			NumGC:      ms.NumGC,
			Summary:    s.memory.Summary(),
		},
		Settings: config.GetAllSettings(),
	}
	if s.profiles != nil {
		stats.ProfileCache = s.profiles.Stats()
	}
	if s.chats != nil {
		stats.ChatBuffer = s.chats.BufferStats()
	}
	if s.pool != nil {
		poolStats := s.pool.Stats()
		stats.FlushPool = &poolStats
	}
	return stats
}

func (s *monitoringService) Memory() memmonitor.Report {
	return s.memory.MetricsJSON()
}
