package botengine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
	"github.com/AzielCF/az-aiwa/pkg/botmonitor"
	"github.com/AzielCF/az-aiwa/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine     *Engine
	ledger     *MemoryLedger
	history    *MemoryStore
	agent      *fakeAgent
	repo       *fakeRepo
	outbound   *fakeOutbound
	dispatcher *syncDispatcher
}

func newEngineFixture(t *testing.T, invoke func(context.Context, []domainChat.Turn) (*domainAgent.AgentResult, error)) *engineFixture {
	t.Helper()
	f := &engineFixture{
		ledger:     NewMemoryLedger(),
		history:    NewMemoryStore(0),
		agent:      &fakeAgent{invoke: invoke},
		repo:       &fakeRepo{},
		outbound:   &fakeOutbound{uploadID: "media-1"},
		dispatcher: &syncDispatcher{},
	}
	f.engine = NewEngine(EngineDeps{
		Ledger:     f.ledger,
		History:    f.history,
		Agent:      f.agent,
		Repository: f.repo,
		Outbound:   f.outbound,
		Prompter:   NewPrompter("SYSTEM {tools}", nil),
		Dispatcher: f.dispatcher,
	}, EngineConfig{AgentTimeout: time.Second})
	return f
}

func inbound(id, sender, body string) domainChat.InboundMessage {
	return domainChat.InboundMessage{MessageID: id, SenderID: sender, Body: body, ReceivedAt: time.Now()}
}

func (f *engineFixture) inFlight(t *testing.T) int {
	t.Helper()
	n, err := f.ledger.InFlight(context.Background())
	require.NoError(t, err)
	return n
}

func TestEngine_AgentQueryRepliesAndRecordsHistory(t *testing.T) {
	f := newEngineFixture(t, replyWith("<think>cek kebijakan</think> Cuti tahunan 12 hari."))

	outcome, err := f.engine.Submit(context.Background(), inbound("wamid.1", "628111", "berapa hari cuti?"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)

	assert.Equal(t, []string{"Cuti tahunan 12 hari."}, f.outbound.texts())

	turns, _ := f.history.GetTurns(context.Background(), "628111")
	assert.Equal(t, []domainChat.Turn{
		{Role: domainChat.RoleUser, Content: "berapa hari cuti?"},
		{Role: domainChat.RoleAssistant, Content: "Cuti tahunan 12 hari."},
	}, turns)
	assert.Equal(t, 0, f.inFlight(t))
}

func TestEngine_ConversationOrder(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	ctx := context.Background()
	_ = f.history.AppendTurns(ctx, "628111",
		domainChat.Turn{Role: domainChat.RoleUser, Content: "q1"},
		domainChat.Turn{Role: domainChat.RoleAssistant, Content: "a1"},
	)

	f.engine.Process(ctx, inbound("wamid.2", "628111", "q2"))

	require.Len(t, f.agent.calls, 1)
	call := f.agent.calls[0]
	require.Len(t, call, 4)
	assert.Equal(t, domainChat.RoleSystem, call[0].Role)
	assert.True(t, strings.HasPrefix(call[0].Content, "SYSTEM -"))
	assert.Equal(t, "q1", call[1].Content)
	assert.Equal(t, "a1", call[2].Content)
	assert.Equal(t, domainChat.Turn{Role: domainChat.RoleUser, Content: "q2"}, call[3])

	turns, _ := f.history.GetTurns(ctx, "628111")
	for _, turn := range turns {
		assert.NotEqual(t, domainChat.RoleSystem, turn.Role, "system turn must never be stored")
	}
}

func TestEngine_FallbackIsSentAndStored(t *testing.T) {
	f := newEngineFixture(t, replyWith("<think>...</think>   "))

	f.engine.Process(context.Background(), inbound("wamid.3", "628111", "halo"))

	assert.Equal(t, []string{DefaultMessages.Fallback}, f.outbound.texts())
	turns, _ := f.history.GetTurns(context.Background(), "628111")
	require.Len(t, turns, 2)
	assert.Equal(t, DefaultMessages.Fallback, turns[1].Content)
}

func TestEngine_LongReplyTruncatedButStoredWhole(t *testing.T) {
	long := strings.Repeat("x", 4500)
	f := newEngineFixture(t, replyWith(long))

	f.engine.Process(context.Background(), inbound("wamid.4", "628111", "ceritakan sejarah perusahaan"))

	texts := f.outbound.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, strings.Repeat("x", 4000)+"...", texts[0])

	turns, _ := f.history.GetTurns(context.Background(), "628111")
	assert.Equal(t, long, turns[1].Content)
}

func TestEngine_AgentErrorSendsApologyAndReleases(t *testing.T) {
	f := newEngineFixture(t, func(context.Context, []domainChat.Turn) (*domainAgent.AgentResult, error) {
		return nil, errors.New("provider 500")
	})

	_, err := f.engine.Submit(context.Background(), inbound("wamid.5", "628111", "halo"))
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultMessages.Apology}, f.outbound.texts())
	turns, _ := f.history.GetTurns(context.Background(), "628111")
	assert.Empty(t, turns, "failed exchanges are not recorded")
	assert.Equal(t, 0, f.inFlight(t))
}

func TestEngine_PanicSendsApologyAndReleases(t *testing.T) {
	f := newEngineFixture(t, func(context.Context, []domainChat.Turn) (*domainAgent.AgentResult, error) {
		panic("nil map")
	})

	_, _ = f.engine.Submit(context.Background(), inbound("wamid.6", "628111", "halo"))

	assert.Equal(t, []string{DefaultMessages.Apology}, f.outbound.texts())
	assert.Equal(t, 0, f.inFlight(t))
}

func TestEngine_AgentTimeout(t *testing.T) {
	f := newEngineFixture(t, func(ctx context.Context, _ []domainChat.Turn) (*domainAgent.AgentResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f.engine.cfg.AgentTimeout = 20 * time.Millisecond

	f.engine.Process(context.Background(), inbound("wamid.7", "628111", "halo"))

	assert.Equal(t, []string{DefaultMessages.Apology}, f.outbound.texts())
}

func TestEngine_HistoryFailureSendsApology(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	f.engine.history = &failingHistory{MemoryStore: f.history, appendErr: errors.New("valkey down")}

	f.engine.Process(context.Background(), inbound("wamid.8", "628111", "halo"))
	assert.Equal(t, []string{DefaultMessages.Apology}, f.outbound.texts())
}

func TestEngine_DuplicateWhileInFlight(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	hold := &holdDispatcher{}
	f.engine.dispatcher = hold
	ctx := context.Background()

	first, err := f.engine.Submit(ctx, inbound("wamid.9", "628111", "halo"))
	require.NoError(t, err)
	second, err := f.engine.Submit(ctx, inbound("wamid.9", "628111", "halo"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccepted, first)
	assert.Equal(t, OutcomeDuplicate, second)
	require.Len(t, hold.jobs, 1)

	// once the first task finishes the id is new work again
	require.NoError(t, hold.jobs[0].Handler(ctx))
	third, _ := f.engine.Submit(ctx, inbound("wamid.9", "628111", "halo"))
	assert.Equal(t, OutcomeAccepted, third)
}

func TestEngine_EmptyMessageIDIsNeverAccepted(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	outcome, err := f.engine.Submit(context.Background(), inbound("", "628111", "halo"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Empty(t, f.agent.calls)
}

func TestEngine_QueueFullReleasesLedger(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	f.dispatcher.full = true

	outcome, err := f.engine.Submit(context.Background(), inbound("wamid.10", "628111", "halo"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Equal(t, 0, f.inFlight(t))
}

func TestEngine_LedgerErrorIsReturned(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	f.engine.ledger = &failingLedger{MemoryLedger: f.ledger, acquireErr: errors.New("valkey timeout")}

	_, err := f.engine.Submit(context.Background(), inbound("wamid.11", "628111", "halo"))
	require.Error(t, err)
	assert.Empty(t, f.agent.calls)
}

func TestEngine_ShardKey(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	hold := &holdDispatcher{}
	f.engine.dispatcher = hold

	_, _ = f.engine.Submit(context.Background(), inbound("wamid.12", "628111", "halo"))
	f.engine.cfg.SerializePerSender = true
	_, _ = f.engine.Submit(context.Background(), inbound("wamid.13", "628111", "halo"))

	require.Len(t, hold.jobs, 2)
	assert.Equal(t, "wamid.12", hold.jobs[0].Key)
	assert.Equal(t, "628111", hold.jobs[1].Key)
}

func TestEngine_MediaIntentsSkipAgentAndHistory(t *testing.T) {
	f := newEngineFixture(t, replyWith("should not be used"))
	ctx := context.Background()
	_ = f.repo.Create(ctx, &domainMedia.Asset{Kind: domainMedia.KindDocument, Title: "SOP Cuti", MediaID: "m-1"})
	_ = f.repo.Create(ctx, &domainMedia.Asset{Kind: domainMedia.KindImage, Title: "Logo"})

	for i, body := range []string{"daftar gambar", "kirim gambar logo", "daftar dokumen", "kirim pdf sop cuti"} {
		f.engine.Process(ctx, inbound("wamid.m"+string(rune('0'+i)), "628111", body))
	}

	assert.Empty(t, f.agent.calls)
	turns, _ := f.history.GetTurns(ctx, "628111")
	assert.Empty(t, turns)

	var kinds []string
	for _, it := range f.outbound.items() {
		kinds = append(kinds, it.Kind)
	}
	assert.Contains(t, kinds, "image")
	assert.Contains(t, kinds, "document")
}

func TestEngine_ImageRepositoryErrorUsesImageNotice(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	f.repo.findErr = errors.New("db closed")

	f.engine.Process(context.Background(), inbound("wamid.14", "628111", "kirim foto kantor"))
	assert.Equal(t, []string{DefaultMessages.ImageError}, f.outbound.texts())
}

func TestEngine_DocumentRepositoryErrorUsesApology(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	f.repo.findErr = errors.New("db closed")

	f.engine.Process(context.Background(), inbound("wamid.15", "628111", "kirim pdf sop"))
	assert.Equal(t, []string{DefaultMessages.Apology}, f.outbound.texts())
}

func TestEngine_SendFailureIsLoggedNotRetried(t *testing.T) {
	f := newEngineFixture(t, replyWith("jawaban"))
	f.outbound.failTextFor = "jawaban"

	f.engine.Process(context.Background(), inbound("wamid.16", "628111", "halo"))

	// reply failed, apology went out, nothing retried
	assert.Equal(t, []string{DefaultMessages.Apology}, f.outbound.texts())
	assert.Equal(t, 0, f.inFlight(t))
}

func TestEngine_MonitorRecordsPipeline(t *testing.T) {
	f := newEngineFixture(t, replyWith("ok"))
	f.engine.monitor = botmonitor.New(20, 0)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, inbound("wamid.40", "628111222", "halo"))
	require.NoError(t, err)
	_, err = f.engine.Submit(ctx, inbound("", "628111222", "halo"))
	require.NoError(t, err)

	stats := f.engine.monitor.GetStats()
	assert.Equal(t, int64(1), stats.TotalInbound)
	assert.Equal(t, int64(1), stats.TotalSkipped)
	assert.Equal(t, int64(1), stats.TotalAgentCalls)
	assert.Equal(t, int64(1), stats.TotalCompleted)
	assert.Zero(t, stats.TotalErrors)

	stages := make([]string, 0, len(stats.RecentEvents))
	for _, ev := range stats.RecentEvents {
		stages = append(stages, ev.Stage)
	}
	// the synchronous dispatcher runs the task before Submit records acceptance
	assert.ElementsMatch(t, []string{botmonitor.StageInbound, botmonitor.StageAgent, botmonitor.StageTask, botmonitor.StageInbound}, stages)
}

func TestEngine_InFlightGaugeBalanced(t *testing.T) {
	base := testutil.ToFloat64(metrics.InFlight)
	var during float64
	f := newEngineFixture(t, func(context.Context, []domainChat.Turn) (*domainAgent.AgentResult, error) {
		during = testutil.ToFloat64(metrics.InFlight)
		return nil, errors.New("provider 500")
	})
	ctx := context.Background()

	// direct call without Submit
	f.engine.Process(ctx, inbound("wamid.50", "628111", "halo"))
	assert.Equal(t, base+1, during)
	assert.Equal(t, base, testutil.ToFloat64(metrics.InFlight))

	_, err := f.engine.Submit(ctx, inbound("wamid.51", "628111", "halo"))
	require.NoError(t, err)
	assert.Equal(t, base, testutil.ToFloat64(metrics.InFlight))

	f.dispatcher.full = true
	outcome, err := f.engine.Submit(ctx, inbound("wamid.52", "628111", "halo"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Equal(t, base, testutil.ToFloat64(metrics.InFlight))
}
