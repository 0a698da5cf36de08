package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	coreconfig "github.com/AzielCF/az-aiwa/core/config"
	"github.com/AzielCF/az-aiwa/pkg/knowledge"
	uiMcp "github.com/AzielCF/az-aiwa/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	mcpPort string
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge base as an MCP server using SSE",
	Long:  `Start an MCP (Model Context Protocol) server over Server-Sent Events exposing the static question and answer knowledge base to the agent.`,
	Run:   mcpServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPort, "port", "", "Port for the SSE MCP server")
	mcpCmd.Flags().StringVar(&mcpHost, "host", "", "Host for the SSE MCP server")
}

func mcpServer(cmd *cobra.Command, _ []string) {
	cfg := coreconfig.Global
	if cmd.Flags().Changed("port") {
		cfg.MCP.Port = mcpPort
	}
	if cmd.Flags().Changed("host") {
		cfg.MCP.Host = mcpHost
	}

	store := knowledge.NewStore(cfg.MCP.KnowledgeBasePath)
	srv := uiMcp.NewKnowledgeServer(store, cfg.App.Version)

	sseServer := server.NewSSEServer(
		srv,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", cfg.MCP.Host, cfg.MCP.Port)),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", cfg.MCP.Host, cfg.MCP.Port)
	logrus.Printf("Starting knowledge base MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s/sse", addr)
	logrus.Printf("Knowledge base file: %s", store.Path())

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
