package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-aiwa/botengine/infrastructure"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/AzielCF/az-aiwa/domains/health"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Pinger is satisfied by *valkey.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MCPStatusSource is satisfied by *infrastructure.MCPToolbox.
type MCPStatusSource interface {
	Status(ctx context.Context) []infrastructure.ServerState
}

type HealthDeps struct {
	Ledger domainChat.IProcessingLedger
	DB     *gorm.DB
	Valkey Pinger
	MCP    MCPStatusSource
}

type healthService struct {
	deps    HealthDeps
	timeout time.Duration
	now     func() time.Time
}

func NewHealthService(deps HealthDeps) health.IHealthUsecase {
	return &healthService{deps: deps, timeout: 5 * time.Second, now: time.Now}
}

// GetStatus checks every configured dependency. A failing dependency is
// reported in its record, never as an error of the call.
func (s *healthService) GetStatus(ctx context.Context) (health.StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := health.StatusReport{Records: []health.HealthRecord{}}

	if s.deps.Ledger != nil {
		n, err := s.deps.Ledger.InFlight(ctx)
		report.InFlight = n
		report.Records = append(report.Records, s.record(health.EntityLedger, "processing_ledger", err, fmt.Sprintf("%d in flight", n)))
	}

	if s.deps.DB != nil {
		err := s.pingDB(ctx)
		report.Records = append(report.Records, s.record(health.EntityDatabase, s.deps.DB.Dialector.Name(), err, "reachable"))
	}

	if s.deps.Valkey != nil {
		err := s.deps.Valkey.Ping(ctx)
		report.Records = append(report.Records, s.record(health.EntityValkey, "valkey", err, "reachable"))
	}

	if s.deps.MCP != nil {
		for _, st := range s.deps.MCP.Status(ctx) {
			report.Records = append(report.Records, s.record(health.EntityMCP, st.Name, st.Err, fmt.Sprintf("%d tools", st.Tools)))
		}
	}

	return report, nil
}

func (s *healthService) pingDB(ctx context.Context) error {
	sqlDB, err := s.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *healthService) record(entity health.EntityType, id string, err error, okMessage string) health.HealthRecord {
	rec := health.HealthRecord{
		EntityType:  entity,
		EntityID:    id,
		Status:      health.StatusOk,
		LastMessage: okMessage,
		LastChecked: s.now().UTC(),
	}
	if err != nil {
		rec.Status = health.StatusError
		rec.LastMessage = err.Error()
		logrus.WithError(err).Warnf("[Health] %s %s is unhealthy", entity, id)
	}
	return rec
}
