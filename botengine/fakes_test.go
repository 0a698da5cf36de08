package botengine

import (
	"context"
	"errors"
	"strings"
	"sync"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
	"github.com/AzielCF/az-aiwa/pkg/msgworker"
	pkgError "github.com/AzielCF/az-aiwa/pkg/error"
)

type sentItem struct {
	Kind      string // text | image | document
	Recipient string
	Body      string // text body, or media id
	Filename  string
}

type fakeOutbound struct {
	mu          sync.Mutex
	sent        []sentItem
	uploads     []string // mime types
	uploadID    string
	uploadErr   error
	sendMedia   error
	failTextFor string // SendText fails when the body contains this
}

func (f *fakeOutbound) SendText(_ context.Context, recipientID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTextFor != "" && strings.Contains(body, f.failTextFor) {
		return errors.New("send text failed")
	}
	f.sent = append(f.sent, sentItem{Kind: "text", Recipient: recipientID, Body: body})
	return nil
}

func (f *fakeOutbound) SendImage(_ context.Context, recipientID, mediaID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendMedia != nil {
		return f.sendMedia
	}
	f.sent = append(f.sent, sentItem{Kind: "image", Recipient: recipientID, Body: mediaID})
	return nil
}

func (f *fakeOutbound) SendDocument(_ context.Context, recipientID, mediaID, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendMedia != nil {
		return f.sendMedia
	}
	f.sent = append(f.sent, sentItem{Kind: "document", Recipient: recipientID, Body: mediaID, Filename: filename})
	return nil
}

func (f *fakeOutbound) UploadMedia(_ context.Context, _ string, mimeType string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, mimeType)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadID, nil
}

func (f *fakeOutbound) items() []sentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := make([]sentItem, len(f.sent))
	copy(cpy, f.sent)
	return cpy
}

func (f *fakeOutbound) texts() []string {
	var out []string
	for _, it := range f.items() {
		if it.Kind == "text" {
			out = append(out, it.Body)
		}
	}
	return out
}

type fakeAgent struct {
	mu     sync.Mutex
	calls  [][]domainChat.Turn
	invoke func(ctx context.Context, turns []domainChat.Turn) (*domainAgent.AgentResult, error)
}

func (f *fakeAgent) Invoke(ctx context.Context, turns []domainChat.Turn) (*domainAgent.AgentResult, error) {
	f.mu.Lock()
	cpy := make([]domainChat.Turn, len(turns))
	copy(cpy, turns)
	f.calls = append(f.calls, cpy)
	f.mu.Unlock()
	return f.invoke(ctx, turns)
}

func replyWith(text string) func(context.Context, []domainChat.Turn) (*domainAgent.AgentResult, error) {
	return func(context.Context, []domainChat.Turn) (*domainAgent.AgentResult, error) {
		return &domainAgent.AgentResult{Messages: []domainAgent.AgentMessage{
			{Role: domainChat.RoleAssistant, Content: domainAgent.Text(text)},
		}}, nil
	}
}

type fakeRepo struct {
	mu       sync.Mutex
	assets   []domainMedia.Asset
	findErr  error
	listErr  error
	saveErr  error
	savedIDs map[uint]string
}

func (f *fakeRepo) Find(_ context.Context, kind domainMedia.Kind, query string) (domainMedia.Asset, error) {
	if f.findErr != nil {
		return domainMedia.Asset{}, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	q := NormalizeForMatch(kind, query)
	for _, a := range f.assets {
		if a.Kind != kind {
			continue
		}
		if strings.Contains(NormalizeForMatch(kind, a.Title), q) || strings.Contains(NormalizeForMatch(kind, a.Description), q) {
			return a, nil
		}
	}
	return domainMedia.Asset{}, pkgError.NotFoundError("asset not found")
}

func (f *fakeRepo) ListTitles(_ context.Context, kind domainMedia.Kind, limit int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var titles []string
	for _, a := range f.assets {
		if a.Kind == kind && len(titles) < limit {
			titles = append(titles, a.Title)
		}
	}
	return titles, nil
}

func (f *fakeRepo) SaveMediaID(_ context.Context, _ domainMedia.Kind, id uint, mediaID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.savedIDs == nil {
		f.savedIDs = map[uint]string{}
	}
	f.savedIDs[id] = mediaID
	return nil
}

func (f *fakeRepo) Create(_ context.Context, asset *domainMedia.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset.ID = uint(len(f.assets) + 1)
	f.assets = append(f.assets, *asset)
	return nil
}

// syncDispatcher runs jobs inline, or rejects them when full is set.
type syncDispatcher struct {
	full bool
	jobs []msgworker.MessageJob
}

func (d *syncDispatcher) TryDispatch(job msgworker.MessageJob) bool {
	if d.full {
		return false
	}
	d.jobs = append(d.jobs, job)
	_ = job.Handler(context.Background())
	return true
}

// holdDispatcher queues jobs without running them.
type holdDispatcher struct {
	jobs []msgworker.MessageJob
}

func (d *holdDispatcher) TryDispatch(job msgworker.MessageJob) bool {
	d.jobs = append(d.jobs, job)
	return true
}

type fakeToolbox struct {
	tools []domainAgent.Tool
	err   error
}

func (f *fakeToolbox) ListTools(context.Context) ([]domainAgent.Tool, error) {
	return f.tools, f.err
}

func (f *fakeToolbox) CallTool(context.Context, string, map[string]any) (string, error) {
	return "", nil
}

type failingLedger struct {
	*MemoryLedger
	acquireErr error
}

func (l *failingLedger) TryAcquire(ctx context.Context, id string) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	return l.MemoryLedger.TryAcquire(ctx, id)
}

type failingHistory struct {
	*MemoryStore
	appendErr error
}

func (h *failingHistory) AppendTurns(ctx context.Context, senderID string, turns ...domainChat.Turn) error {
	if h.appendErr != nil {
		return h.appendErr
	}
	return h.MemoryStore.AppendTurns(ctx, senderID, turns...)
}
