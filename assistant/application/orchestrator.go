package application

import (
	"context"
	"errors"
	"time"

	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/sirupsen/logrus"
)

const DefaultMaxSteps = 15

// ToolCaller executes a native tool.
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

// Orchestrator drives the provider through the tool loop.
type Orchestrator struct {
	tools    ToolCaller
	maxSteps int
}

func NewOrchestrator(tools ToolCaller, maxSteps int) *Orchestrator {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Orchestrator{tools: tools, maxSteps: maxSteps}
}

// RunResult is the outcome of one orchestrated reply.
type RunResult struct {
	Text      string
	Steps     int
	ToolCalls []string
	Usage     domain.UsageStats
}

// Execute calls the provider until it answers without tool calls or the
// step budget is spent. Tool failures are reported back to the model.
func (o *Orchestrator) Execute(ctx context.Context, p domain.Provider, req domain.ChatRequest) (RunResult, error) {
	var out RunResult
	history := append([]domain.ChatTurn(nil), req.History...)

	for step := 0; step < o.maxSteps; step++ {
		req.History = history

		start := time.Now()
		res, err := p.Chat(ctx, req)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"chat_key": req.ChatKey,
				"provider": p.Name(),
				"step":     step + 1,
			}).Error("[ASSISTANT] Provider call failed")
			return out, err
		}
		out.Steps++
		out.Usage.Add(res.Usage)
		if res.Text != "" {
			out.Text = res.Text
		}

		logrus.WithFields(logrus.Fields{
			"chat_key":    req.ChatKey,
			"step":        step + 1,
			"duration_ms": time.Since(start).Milliseconds(),
			"tool_calls":  len(res.ToolCalls),
		}).Debug("[ASSISTANT] Provider step finished")

		if len(res.ToolCalls) == 0 {
			return out, nil
		}

		history = append(history, domain.ChatTurn{
			Role:       "assistant",
			Text:       res.Text,
			ToolCalls:  res.ToolCalls,
			RawContent: res.RawContent,
		})

		responses := make([]domain.ToolResponse, 0, len(res.ToolCalls))
		for _, tc := range res.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, tc.Name)
			responses = append(responses, domain.ToolResponse{
				ID:   tc.ID,
				Name: tc.Name,
				Data: o.call(ctx, tc),
			})
		}
		history = append(history, domain.ChatTurn{Role: "user", ToolResponses: responses})
	}

	logrus.WithFields(logrus.Fields{
		"chat_key":  req.ChatKey,
		"max_steps": o.maxSteps,
	}).Warn("[ASSISTANT] Step budget exhausted")
	return out, nil
}

func (o *Orchestrator) call(ctx context.Context, tc domain.ToolCall) any {
	if o.tools == nil {
		return toolError(pkgError.NotFoundError("tool not found"))
	}
	logrus.Debugf("[ASSISTANT] Executing native tool: %s", tc.Name)
	result, err := o.tools.Call(ctx, tc.Name, tc.Args)
	if err != nil {
		logrus.WithError(err).Warnf("[ASSISTANT] Native tool %s failed", tc.Name)
		return toolError(err)
	}
	return result
}

// toolError renders a failure the way the model sees it:
// {"error": {"code", "message", "status"}}.
func toolError(err error) map[string]any {
	body := map[string]any{"code": "UNKNOWN_ERROR", "message": err.Error()}

	var upstream *pkgError.UpstreamError
	var generic pkgError.GenericError
	switch {
	case errors.As(err, &upstream):
		body["code"] = upstream.Code
		body["message"] = upstream.Message
		if upstream.Status > 0 {
			body["status"] = upstream.Status
		}
	case errors.As(err, &generic):
		body["code"] = generic.ErrCode()
	}
	return map[string]any{"error": body}
}
