package mcp

import (
	"context"

	"github.com/AzielCF/az-aiwa/pkg/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const ToolKnowledgeBase = "get_knowledge_base"

type KnowledgeHandler struct {
	store *knowledge.Store
}

func InitMcpKnowledge(store *knowledge.Store) *KnowledgeHandler {
	return &KnowledgeHandler{store: store}
}

func (h *KnowledgeHandler) AddKnowledgeTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolKnowledgeBase(), h.handleKnowledgeBase)
}

func (h *KnowledgeHandler) toolKnowledgeBase() mcp.Tool {
	return mcp.NewTool(
		ToolKnowledgeBase,
		mcp.WithDescription("Return the whole question and answer knowledge base."),
		mcp.WithTitleAnnotation("Knowledge Base"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// The model reads failures as plain text, so they are returned as the tool
// result rather than as protocol errors.
func (h *KnowledgeHandler) handleKnowledgeBase(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := h.store.Render()
	if err != nil {
		logrus.WithError(err).Warnf("[MCP] Knowledge base unavailable at %s", h.store.Path())
		return mcp.NewToolResultText(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// NewKnowledgeServer builds the MCP server exposing the knowledge tools.
func NewKnowledgeServer(store *knowledge.Store, version string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"Knowledge Base",
		version,
		server.WithToolCapabilities(true),
	)
	InitMcpKnowledge(store).AddKnowledgeTools(mcpServer)
	return mcpServer
}
