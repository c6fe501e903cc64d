package usecase

import (
	"context"
	"time"

	"github.com/lhudash/chisa-api/domains/health"
	"github.com/sirupsen/logrus"
)

// Pinger is a dependency that can be probed.
type Pinger func(ctx context.Context) error

// HealthCheck names one probe. A nil Ping reports the component as disabled.
type HealthCheck struct {
	Component string
	Ping      Pinger
}

type healthService struct {
	checks  []HealthCheck
	timeout time.Duration
	now     func() time.Time
}

func NewHealthService(timeout time.Duration, checks ...HealthCheck) health.IHealthUsecase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &healthService{checks: checks, timeout: timeout, now: time.Now}
}

func (s *healthService) GetStatus(ctx context.Context) ([]health.HealthRecord, error) {
	records := make([]health.HealthRecord, 0, len(s.checks))
	for _, check := range s.checks {
		records = append(records, s.probe(ctx, check))
	}
	return records, nil
}

func (s *healthService) probe(ctx context.Context, check HealthCheck) health.HealthRecord {
	record := health.HealthRecord{
		Component:   check.Component,
		Status:      health.StatusDisabled,
		LastChecked: s.now().UTC(),
	}
	if check.Ping == nil {
		return record
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := check.Ping(ctx)
	record.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		logrus.WithError(err).Warnf("[Health] %s check failed", check.Component)
		record.Status = health.StatusError
		record.LastMessage = err.Error()
		return record
	}
	record.Status = health.StatusOk
	return record
}
