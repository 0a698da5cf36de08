package botengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	domainIntent "github.com/AzielCF/az-aiwa/domains/intent"
	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
	domainOutbound "github.com/AzielCF/az-aiwa/domains/outbound"
	"github.com/AzielCF/az-aiwa/pkg/botmonitor"
	"github.com/AzielCF/az-aiwa/pkg/metrics"
	"github.com/AzielCF/az-aiwa/pkg/msgworker"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxReplyRunes    = 4000
	DefaultTruncationMarker = "..."
	DefaultAgentTimeout     = 60 * time.Second

	// cleanupTimeout bounds the ledger release and failure notice, which run
	// even after the task context is done.
	cleanupTimeout = 10 * time.Second
)

// Dispatcher queues background work. *msgworker.MessageWorkerPool implements it.
type Dispatcher interface {
	TryDispatch(job msgworker.MessageJob) bool
}

type SubmitOutcome string

const (
	OutcomeAccepted  SubmitOutcome = "accepted"
	OutcomeDuplicate SubmitOutcome = "duplicate"
	OutcomeDropped   SubmitOutcome = "dropped"
)

type EngineConfig struct {
	AgentTimeout     time.Duration
	MaxReplyRunes    int
	TruncationMarker string
	// SerializePerSender runs messages of one sender on the same worker, in
	// arrival order. Off by default: tasks are independent.
	SerializePerSender bool
	ProviderName       string
}

type EngineDeps struct {
	Ledger     domainChat.IProcessingLedger
	History    domainChat.IHistoryStore
	Router     domainIntent.IIntentRouter
	Agent      domainAgent.IAgentRuntime
	Repository domainMedia.IMediaRepository
	Outbound   domainOutbound.IOutboundClient
	Prompter   *Prompter
	Dispatcher Dispatcher
	Messages   *Messages
	Monitor    *botmonitor.Monitor // optional
}

// Engine runs one inbound message from acceptance to release of its ledger entry.
type Engine struct {
	ledger     domainChat.IProcessingLedger
	history    domainChat.IHistoryStore
	router     domainIntent.IIntentRouter
	agent      domainAgent.IAgentRuntime
	outbound   domainOutbound.IOutboundClient
	media      *MediaHandler
	prompter   *Prompter
	dispatcher Dispatcher
	messages   Messages
	monitor    *botmonitor.Monitor
	cfg        EngineConfig
}

func NewEngine(deps EngineDeps, cfg EngineConfig) *Engine {
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = DefaultAgentTimeout
	}
	if cfg.MaxReplyRunes <= 0 {
		cfg.MaxReplyRunes = DefaultMaxReplyRunes
	}
	if cfg.TruncationMarker == "" {
		cfg.TruncationMarker = DefaultTruncationMarker
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "unknown"
	}

	messages := DefaultMessages
	if deps.Messages != nil {
		messages = *deps.Messages
	}
	if deps.Router == nil {
		deps.Router = NewKeywordRouter(nil)
	}
	if deps.Prompter == nil {
		deps.Prompter = NewPrompter("", nil)
	}

	return &Engine{
		ledger:     deps.Ledger,
		history:    deps.History,
		router:     deps.Router,
		agent:      deps.Agent,
		outbound:   deps.Outbound,
		media:      NewMediaHandler(deps.Repository, deps.Outbound, messages),
		prompter:   deps.Prompter,
		dispatcher: deps.Dispatcher,
		messages:   messages,
		monitor:    deps.Monitor,
		cfg:        cfg,
	}
}

// Submit records the message in the ledger and queues it. A message whose id
// is already in flight (or empty) is reported as a duplicate and not queued.
func (e *Engine) Submit(ctx context.Context, msg domainChat.InboundMessage) (SubmitOutcome, error) {
	acquired, err := e.ledger.TryAcquire(ctx, msg.MessageID)
	if err != nil {
		return "", fmt.Errorf("ledger acquire: %w", err)
	}
	if !acquired {
		metrics.InboundTotal.WithLabelValues(string(OutcomeDuplicate)).Inc()
		logrus.WithFields(logrus.Fields{
			"message_id": msg.MessageID,
			"sender":     msg.SenderSuffix(),
		}).Warn("[ENGINE] Duplicate message ignored")
		e.recordInbound(msg, botmonitor.StatusSkipped, "duplicate")
		return OutcomeDuplicate, nil
	}

	key := msg.MessageID
	if e.cfg.SerializePerSender {
		key = msg.SenderID
	}

	job := msgworker.MessageJob{
		Key:       key,
		MessageID: msg.MessageID,
		Handler: func(jobCtx context.Context) error {
			e.Process(jobCtx, msg)
			return nil
		},
	}
	if !e.dispatcher.TryDispatch(job) {
		e.release(ctx, msg.MessageID)
		metrics.InboundTotal.WithLabelValues(string(OutcomeDropped)).Inc()
		e.recordInbound(msg, botmonitor.StatusError, "queue full")
		return OutcomeDropped, nil
	}

	metrics.InboundTotal.WithLabelValues(string(OutcomeAccepted)).Inc()
	e.recordInbound(msg, botmonitor.StatusOK, "")
	return OutcomeAccepted, nil
}

func (e *Engine) recordInbound(msg domainChat.InboundMessage, status, reason string) {
	e.monitor.Record(botmonitor.Event{
		MessageID: msg.MessageID,
		Sender:    msg.SenderSuffix(),
		Stage:     botmonitor.StageInbound,
		Status:    status,
		Error:     reason,
	})
}

// Process classifies and answers one message. It never returns an error:
// failures end in an apology to the sender and the ledger entry is always released.
func (e *Engine) Process(ctx context.Context, msg domainChat.InboundMessage) {
	start := time.Now()
	in := domainIntent.AgentQuery
	status := "completed"
	var failure error
	traceID := uuid.NewString()

	log := logrus.WithFields(logrus.Fields{
		"message_id": msg.MessageID,
		"sender":     msg.SenderSuffix(),
		"trace_id":   traceID,
	})

	metrics.InFlight.Inc()
	defer func() {
		metrics.InFlight.Dec()
		if r := recover(); r != nil {
			status = "failed"
			failure = fmt.Errorf("panic: %v", r)
			log.Errorf("[ENGINE] Panic while processing message: %v", r)
			e.notifyFailure(ctx, msg, in, log)
		}
		e.release(ctx, msg.MessageID)

		elapsed := time.Since(start)
		metrics.TasksTotal.WithLabelValues(string(in), status).Inc()
		metrics.TaskDuration.WithLabelValues(string(in)).Observe(elapsed.Seconds())
		e.recordTask(msg, traceID, in, failure, elapsed)
		log.WithFields(logrus.Fields{
			"intent":  in,
			"status":  status,
			"elapsed": elapsed.Round(time.Millisecond).String(),
		}).Info("[ENGINE] Message processed")
	}()

	in = e.router.Classify(msg.Body)
	log = log.WithField("intent", in)

	if err := e.handle(ctx, msg, in); err != nil {
		status = "failed"
		failure = err
		log.WithError(err).Error("[ENGINE] Error processing message")
		e.notifyFailure(ctx, msg, in, log)
	}
}

func (e *Engine) handle(ctx context.Context, msg domainChat.InboundMessage, in domainIntent.Intent) error {
	switch in {
	case domainIntent.ListImages:
		return e.media.HandleList(ctx, domainMedia.KindImage, msg.SenderID)
	case domainIntent.ImageRequest:
		return e.media.HandleRequest(ctx, domainMedia.KindImage, msg.SenderID, msg.Body)
	case domainIntent.ListDocuments:
		return e.media.HandleList(ctx, domainMedia.KindDocument, msg.SenderID)
	case domainIntent.DocumentRequest:
		return e.media.HandleRequest(ctx, domainMedia.KindDocument, msg.SenderID, msg.Body)
	default:
		return e.answerWithAgent(ctx, msg)
	}
}

func (e *Engine) answerWithAgent(ctx context.Context, msg domainChat.InboundMessage) error {
	if e.agent == nil {
		return errors.New("no agent runtime configured")
	}

	past, err := e.history.GetTurns(ctx, msg.SenderID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	userTurn := domainChat.Turn{Role: domainChat.RoleUser, Content: msg.Body}
	conversation := make([]domainChat.Turn, 0, len(past)+2)
	conversation = append(conversation, domainChat.Turn{Role: domainChat.RoleSystem, Content: e.prompter.BuildSystemInstruction(ctx)})
	conversation = append(conversation, past...)
	conversation = append(conversation, userTurn)

	agentCtx, cancel := context.WithTimeout(ctx, e.cfg.AgentTimeout)
	started := time.Now()
	result, err := e.agent.Invoke(agentCtx, conversation)
	cancel()
	agentElapsed := time.Since(started)
	metrics.AgentDuration.WithLabelValues(e.cfg.ProviderName).Observe(agentElapsed.Seconds())
	e.recordAgent(msg, err, agentElapsed)
	if err != nil {
		return fmt.Errorf("agent invoke: %w", err)
	}

	reply, ok := ExtractReply(result)
	if !ok {
		logrus.WithField("message_id", msg.MessageID).Warn("[ENGINE] Agent returned no usable reply, using fallback")
		reply = e.messages.Fallback
	}

	// the exchange is kept even when the fallback text stands in for the reply
	if err := e.history.AppendTurns(ctx, msg.SenderID, userTurn, domainChat.Turn{Role: domainChat.RoleAssistant, Content: reply}); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return e.outbound.SendText(ctx, msg.SenderID, TruncateReply(reply, e.cfg.MaxReplyRunes, e.cfg.TruncationMarker))
}

func (e *Engine) recordAgent(msg domainChat.InboundMessage, err error, elapsed time.Duration) {
	ev := botmonitor.Event{
		MessageID:  msg.MessageID,
		Sender:     msg.SenderSuffix(),
		Intent:     string(domainIntent.AgentQuery),
		Stage:      botmonitor.StageAgent,
		Status:     botmonitor.StatusOK,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Status = botmonitor.StatusError
		ev.Error = err.Error()
	}
	e.monitor.Record(ev)
}

func (e *Engine) recordTask(msg domainChat.InboundMessage, traceID string, in domainIntent.Intent, err error, elapsed time.Duration) {
	ev := botmonitor.Event{
		TraceID:    traceID,
		MessageID:  msg.MessageID,
		Sender:     msg.SenderSuffix(),
		Intent:     string(in),
		Stage:      botmonitor.StageTask,
		Status:     botmonitor.StatusOK,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Status = botmonitor.StatusError
		ev.Error = err.Error()
	}
	e.monitor.Record(ev)
}

func (e *Engine) notifyFailure(ctx context.Context, msg domainChat.InboundMessage, in domainIntent.Intent, log *logrus.Entry) {
	if e.outbound == nil {
		return
	}
	text := e.messages.Apology
	if in == domainIntent.ImageRequest {
		text = e.messages.ImageError
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := e.outbound.SendText(sendCtx, msg.SenderID, text); err != nil {
		log.WithError(err).Error("[ENGINE] Failed to send apology")
	}
}

func (e *Engine) release(ctx context.Context, messageID string) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := e.ledger.Release(relCtx, messageID); err != nil {
		logrus.WithError(err).WithField("message_id", messageID).Error("[ENGINE] Failed to release ledger entry")
	}
}
