package health

import (
	"context"
	"time"
)

type Status string

const (
	StatusOk       Status = "OK"
	StatusError    Status = "ERROR"
	StatusDisabled Status = "DISABLED"
)

// HealthRecord is the state of one dependency at LastChecked.
type HealthRecord struct {
	Component   string    `json:"component"`
	Status      Status    `json:"status"`
	LastMessage string    `json:"last_message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	LatencyMs   int64     `json:"latency_ms"`
}

type IHealthUsecase interface {
	GetStatus(ctx context.Context) ([]HealthRecord, error)
}
