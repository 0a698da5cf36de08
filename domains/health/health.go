package health

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityLedger   EntityType = "ledger"
	EntityValkey   EntityType = "valkey"
	EntityDatabase EntityType = "database"
	EntityMCP      EntityType = "mcp_server"
)

type Status string

const (
	StatusOk      Status = "OK"
	StatusError   Status = "ERROR"
	StatusUnknown Status = "UNKNOWN"
)

type HealthRecord struct {
	EntityType  EntityType `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	Status      Status     `json:"status"`
	LastMessage string     `json:"last_message"`
	LastChecked time.Time  `json:"last_checked"`
}

type StatusReport struct {
	InFlight int            `json:"in_flight"`
	Records  []HealthRecord `json:"records"`
}

type IHealthUsecase interface {
	GetStatus(ctx context.Context) (StatusReport, error)
}
