package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	coreconfig "github.com/lhudash/chisa-api/core/config"
	"github.com/lhudash/chisa-api/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the assistant tools MCP server using SSE",
	Long:  `Start an MCP (Model Context Protocol) server over Server-Sent Events that exposes the assistant tools: schedule, weather, web search, library booking and grades.`,
	Run:   mcpServer,
}

var mcpPort, mcpHost string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPort, "mcp-port", "", "Port for the SSE MCP server (default MCP_PORT or 8080)")
	mcpCmd.Flags().StringVar(&mcpHost, "host", "", "Host for the SSE MCP server (default MCP_HOST or localhost)")
}

func mcpServer(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global
	if mcpPort != "" {
		cfg.MCP.Port = mcpPort
	}
	if mcpHost != "" {
		cfg.MCP.Host = mcpHost
	}
	initServices()

	mcpServer := server.NewMCPServer(
		"Chisa Assistant MCP Server",
		cfg.App.Version,
		server.WithToolCapabilities(true),
	)

	toolHandler := mcp.InitMcpTools(toolRegistry)
	toolHandler.AddAssistantTools(mcpServer)

	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", cfg.MCP.Host, cfg.MCP.Port)),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", cfg.MCP.Host, cfg.MCP.Port)
	logrus.Printf("Starting Chisa MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s/sse", addr)
	logrus.Printf("Message endpoint: http://%s/message", addr)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		StopApp()
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
