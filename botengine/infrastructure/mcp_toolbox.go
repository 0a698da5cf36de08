package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

type ConnType string

const (
	ConnTypeSSE  ConnType = "sse"
	ConnTypeHTTP ConnType = "http"
)

// MCPServer is one remote tool server the agent may call.
type MCPServer struct {
	Name    string
	URL     string
	Type    ConnType
	Headers map[string]string
}

type mcpClientEntry struct {
	client   *client.Client
	config   MCPServer
	lastUsed time.Time
}

// ServerState is the last known reachability of a configured server.
type ServerState struct {
	Name  string
	URL   string
	Tools int
	Err   error
}

// MCPToolbox implementa IToolbox sobre uno o varios servidores MCP usando mcp-go.
// Connections are opened lazily and reused; tools are addressed by name only,
// so the first server that lists a name wins.
type MCPToolbox struct {
	servers []MCPServer
	clients sync.Map // server name -> *mcpClientEntry

	mu     sync.RWMutex
	routes map[string]string // tool name -> server name

	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewMCPToolbox(servers []MCPServer) *MCPToolbox {
	t := &MCPToolbox{
		servers:     servers,
		routes:      make(map[string]string),
		idleTimeout: 10 * time.Minute,
		stop:        make(chan struct{}),
	}
	go t.startIdleClientCleaner(5 * time.Minute)
	return t
}

// ListTools lists the tools of every server. A server that cannot be reached
// is logged and skipped; an error is returned only if none answered.
func (t *MCPToolbox) ListTools(ctx context.Context) ([]domainAgent.Tool, error) {
	var (
		tools   []domainAgent.Tool
		lastErr error
		ok      int
	)
	routes := make(map[string]string)

	for _, server := range t.servers {
		serverTools, err := t.listServerTools(ctx, server)
		if err != nil {
			lastErr = err
			logrus.WithError(err).Warnf("[MCPAdapter] Could not list tools of %s", server.Name)
			continue
		}
		ok++
		for _, tool := range serverTools {
			if _, dup := routes[tool.Name]; dup {
				logrus.Warnf("[MCPAdapter] Tool %s of %s shadowed by %s", tool.Name, server.Name, routes[tool.Name])
				continue
			}
			routes[tool.Name] = server.Name
			tools = append(tools, tool)
		}
	}

	t.mu.Lock()
	t.routes = routes
	t.mu.Unlock()

	if ok == 0 && lastErr != nil {
		return nil, lastErr
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

func (t *MCPToolbox) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	server, err := t.serverFor(ctx, name)
	if err != nil {
		return "", err
	}

	c, err := t.getOrConnectClient(ctx, server)
	if err != nil {
		return "", err
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = name
	callReq.Params.Arguments = args

	res, err := c.CallTool(ctx, callReq)
	if err != nil {
		return "", fmt.Errorf("call tool %s on %s: %w", name, server.Name, err)
	}

	var parts []string
	for _, content := range res.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			parts = append(parts, textContent.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}

// Status connects to every configured server and reports what it finds.
func (t *MCPToolbox) Status(ctx context.Context) []ServerState {
	states := make([]ServerState, 0, len(t.servers))
	for _, server := range t.servers {
		tools, err := t.listServerTools(ctx, server)
		states = append(states, ServerState{Name: server.Name, URL: server.URL, Tools: len(tools), Err: err})
	}
	return states
}

func (t *MCPToolbox) Shutdown() {
	logrus.Info("[MCPAdapter] Shutting down connections...")
	t.stopOnce.Do(func() { close(t.stop) })
	t.clients.Range(func(key, value interface{}) bool {
		if entry, ok := value.(*mcpClientEntry); ok {
			entry.client.Close()
		}
		t.clients.Delete(key)
		return true
	})
}

// === Lógica interna de red (Adaptador) ===

func (t *MCPToolbox) serverFor(ctx context.Context, tool string) (MCPServer, error) {
	t.mu.RLock()
	name, ok := t.routes[tool]
	t.mu.RUnlock()
	if !ok {
		// the model may call a tool before this process listed them
		if _, err := t.ListTools(ctx); err != nil {
			return MCPServer{}, err
		}
		t.mu.RLock()
		name, ok = t.routes[tool]
		t.mu.RUnlock()
		if !ok {
			return MCPServer{}, fmt.Errorf("unknown tool %q", tool)
		}
	}
	for _, s := range t.servers {
		if s.Name == name {
			return s, nil
		}
	}
	return MCPServer{}, fmt.Errorf("unknown server %q", name)
}

func (t *MCPToolbox) listServerTools(ctx context.Context, server MCPServer) ([]domainAgent.Tool, error) {
	c, err := t.getOrConnectClient(ctx, server)
	if err != nil {
		return nil, err
	}

	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		// drop the connection so the next call reconnects
		t.closeClient(server.Name)
		return nil, err
	}

	tools := make([]domainAgent.Tool, 0, len(res.Tools))
	for _, tool := range res.Tools {
		tools = append(tools, domainAgent.Tool{
			Server:      server.Name,
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return tools, nil
}

func (t *MCPToolbox) getOrConnectClient(ctx context.Context, server MCPServer) (*client.Client, error) {
	if val, ok := t.clients.Load(server.Name); ok {
		entry := val.(*mcpClientEntry)
		entry.lastUsed = time.Now()
		return entry.client, nil
	}

	mcpClient, err := t.createClient(ctx, server)
	if err != nil {
		return nil, err
	}

	if err := t.initializeClient(ctx, mcpClient); err != nil {
		mcpClient.Close()
		return nil, err
	}

	entry := &mcpClientEntry{
		client:   mcpClient,
		config:   server,
		lastUsed: time.Now(),
	}
	if existing, loaded := t.clients.LoadOrStore(server.Name, entry); loaded {
		// another goroutine connected first
		mcpClient.Close()
		return existing.(*mcpClientEntry).client, nil
	}
	return mcpClient, nil
}

func (t *MCPToolbox) createClient(ctx context.Context, server MCPServer) (*client.Client, error) {
	logrus.Infof("[MCPAdapter] Connecting to %s (%s)", server.Name, server.Type)
	var mcpClient *client.Client
	var err error

	switch server.Type {
	case ConnTypeHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(server.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(server.Headers))
		}
		mcpClient, err = client.NewStreamableHttpClient(server.URL, opts...)
	default: // SSE
		var opts []transport.ClientOption
		if len(server.Headers) > 0 {
			opts = append(opts, client.WithHeaders(server.Headers))
		}
		mcpClient, err = client.NewSSEMCPClient(server.URL, opts...)
	}

	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", server.Name, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s: %w", server.Name, err)
	}
	return mcpClient, nil
}

func (t *MCPToolbox) initializeClient(ctx context.Context, mcpClient *client.Client) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "az-aiwa", Version: "1.0.0"}

	var initErr error
	for i := 0; i < 5; i++ {
		_, initErr = mcpClient.Initialize(ctx, req)
		if initErr == nil {
			return nil
		}
		if strings.Contains(strings.ToLower(initErr.Error()), "session") {
			time.Sleep(500 * time.Millisecond)
			continue
		}
		break
	}
	return initErr
}

func (t *MCPToolbox) closeClient(name string) {
	if val, ok := t.clients.LoadAndDelete(name); ok {
		val.(*mcpClientEntry).client.Close()
	}
}

func (t *MCPToolbox) startIdleClientCleaner(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			now := time.Now()
			t.clients.Range(func(key, value interface{}) bool {
				entry := value.(*mcpClientEntry)
				if now.Sub(entry.lastUsed) > t.idleTimeout {
					logrus.Infof("[MCPAdapter] Closing idle connection for %s", entry.config.Name)
					t.closeClient(entry.config.Name)
				}
				return true
			})
		}
	}
}
