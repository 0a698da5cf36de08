package cmd

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-aiwa/botengine"
	"github.com/AzielCF/az-aiwa/botengine/infrastructure"
	"github.com/AzielCF/az-aiwa/botengine/providers"
	"github.com/AzielCF/az-aiwa/botengine/repository"
	coreconfig "github.com/AzielCF/az-aiwa/core/config"
	coreDB "github.com/AzielCF/az-aiwa/core/database"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	domainHealth "github.com/AzielCF/az-aiwa/domains/health"
	"github.com/AzielCF/az-aiwa/infrastructure/valkey"
	"github.com/AzielCF/az-aiwa/infrastructure/whatsapp/cloudapi"
	"github.com/AzielCF/az-aiwa/pkg/botmonitor"
	"github.com/AzielCF/az-aiwa/pkg/msgworker"
	"github.com/AzielCF/az-aiwa/usecase"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// application holds every long-lived component of the `rest` command.
type application struct {
	db      *gorm.DB
	valkey  *valkey.Client
	toolbox *infrastructure.MCPToolbox
	pool    *msgworker.MessageWorkerPool
	engine  *botengine.Engine
	monitor *botmonitor.Monitor
	health  domainHealth.IHealthUsecase
}

func initApp(ctx context.Context, cfg *coreconfig.Config) (*application, error) {
	app := &application{}

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db

	mediaRepo := repository.NewMediaGormRepository(db)
	if err := mediaRepo.Init(ctx); err != nil {
		app.stop()
		return nil, fmt.Errorf("init media repository: %w", err)
	}

	var (
		ledger  domainChat.IProcessingLedger
		history domainChat.IHistoryStore
	)
	if cfg.Database.ValkeyEnabled {
		client, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			app.stop()
			return nil, err
		}
		app.valkey = client
		ledger = repository.NewValkeyLedger(client, cfg.Database.LedgerTTL)
		history = repository.NewValkeyHistoryStore(client, cfg.History.MaxTurns)
		logrus.Infof("[APP] Ledger and history stored in Valkey (%s)", cfg.Database.ValkeyAddress)
	} else {
		ledger = botengine.NewMemoryLedger()
		history = botengine.NewMemoryStore(cfg.History.MaxTurns)
		logrus.Info("[APP] Ledger and history kept in memory")
	}

	servers := make([]infrastructure.MCPServer, 0, len(cfg.AI.MCPServers))
	for _, s := range cfg.AI.MCPServers {
		servers = append(servers, infrastructure.MCPServer{
			Name: s.Name,
			URL:  s.URL,
			Type: infrastructure.ConnType(cfg.AI.MCPTransport),
		})
	}
	app.toolbox = infrastructure.NewMCPToolbox(servers)

	runtime, err := providers.NewAgentRuntime(ctx, cfg.AI, app.toolbox)
	if err != nil {
		app.stop()
		return nil, err
	}

	outbound := cloudapi.NewClient(cloudapi.Config{
		BaseURL:       cfg.Whatsapp.APIBaseURL,
		APIVersion:    cfg.Whatsapp.APIVersion,
		PhoneNumberID: cfg.Whatsapp.PhoneNumberID,
		AccessToken:   cfg.Whatsapp.AccessToken,
		Timeout:       cfg.Whatsapp.HTTPTimeout,
		SendRate:      cfg.Whatsapp.SendRate,
	})

	app.monitor = botmonitor.New(cfg.Monitor.BufferSize, cfg.Monitor.TTL)
	app.pool = msgworker.NewMessageWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	app.pool.Start(ctx)

	app.engine = botengine.NewEngine(botengine.EngineDeps{
		Ledger:     ledger,
		History:    history,
		Router:     botengine.NewKeywordRouter(nil),
		Agent:      runtime,
		Repository: mediaRepo,
		Outbound:   outbound,
		Prompter:   botengine.NewPrompter(cfg.AI.SystemPrompt, app.toolbox),
		Dispatcher: app.pool,
		Monitor:    app.monitor,
	}, botengine.EngineConfig{
		AgentTimeout:       cfg.AI.Timeout,
		SerializePerSender: cfg.AI.SerializePerSender,
		ProviderName:       cfg.AI.Provider,
	})

	deps := usecase.HealthDeps{Ledger: ledger, DB: db, MCP: app.toolbox}
	if app.valkey != nil {
		deps.Valkey = app.valkey
	}
	app.health = usecase.NewHealthService(deps)

	logrus.WithFields(logrus.Fields{
		"provider":    cfg.AI.Provider,
		"model":       cfg.AI.Model,
		"mcp_servers": len(servers),
		"workers":     cfg.WorkerPool.Size,
	}).Info("[APP] Engine ready")
	return app, nil
}

// stop drains queued messages before closing what they depend on.
func (a *application) stop() {
	logrus.Info("[APP] Stopping application...")
	if a.pool != nil {
		a.pool.Stop()
	}
	if a.toolbox != nil {
		a.toolbox.Shutdown()
	}
	if a.valkey != nil {
		a.valkey.Close()
	}
	if err := coreDB.Close(a.db); err != nil {
		logrus.WithError(err).Error("[APP] Failed to close database")
	}
	logrus.Info("[APP] Application stopped cleanly.")
}
