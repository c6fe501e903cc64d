package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// ToolSource is the assistant tool registry.
type ToolSource interface {
	Native() []domain.NativeTool
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

type ToolHandler struct {
	source ToolSource
}

func InitMcpTools(source ToolSource) *ToolHandler {
	return &ToolHandler{source: source}
}

// AddAssistantTools exposes every native assistant tool with its own schema.
func (h *ToolHandler) AddAssistantTools(mcpServer *server.MCPServer) int {
	var tools []server.ServerTool
	for _, native := range h.source.Native() {
		tool, err := toMCPTool(native.Tool)
		if err != nil {
			logrus.WithError(err).Warnf("[MCP] skipping tool %s", native.Name)
			continue
		}
		tools = append(tools, server.ServerTool{Tool: tool, Handler: h.handle(native.Name)})
	}
	mcpServer.AddTools(tools...)
	logrus.Infof("[MCP] registered %d assistant tools", len(tools))
	return len(tools)
}

func toMCPTool(t domain.Tool) (mcp.Tool, error) {
	schema, err := json.Marshal(t.InputSchema)
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("marshal schema: %w", err)
	}
	tool := mcp.NewToolWithRawSchema(t.Name, t.Description, schema)
	tool.Annotations = mcp.ToolAnnotation{
		Title:          t.Name,
		ReadOnlyHint:   mcp.ToBoolPtr(true),
		OpenWorldHint:  mcp.ToBoolPtr(true),
		IdempotentHint: mcp.ToBoolPtr(true),
	}
	return tool, nil
}

func (h *ToolHandler) handle(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		result, err := h.source.Call(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(errorText(err)), nil
		}

		structured := structuredContent(result)
		text, _ := json.Marshal(structured)
		return mcp.NewToolResultStructured(structured, string(text)), nil
	}
}

func errorText(err error) string {
	var generic pkgError.GenericError
	if errors.As(err, &generic) {
		return fmt.Sprintf("%s: %s", generic.ErrCode(), strings.TrimSpace(generic.Error()))
	}
	return err.Error()
}

// structuredContent must be a JSON object, so scalars and arrays are wrapped
// under "result".
func structuredContent(data any) map[string]any {
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{"result": fmt.Sprint(data)}
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]any{"result": string(raw)}
	}
	if m, ok := decoded.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": decoded}
}
