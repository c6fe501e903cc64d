package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lhudash/chisa-api/assistant/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

const DefaultOpenAIModel = "deepseek/deepseek-v3.2"

// OpenAIProvider speaks the chat completions API. Any OpenAI compatible
// gateway works when baseURL is set.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req),
	}
	if tools := toOpenAITools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	if len(completion.Choices) == 0 {
		return domain.ChatResponse{}, fmt.Errorf("no response from %s", model)
	}

	choice := completion.Choices[0]
	resp := domain.ChatResponse{
		Text:       choice.Message.Content,
		RawContent: choice.Message.ToParam(),
		Usage: &domain.UsageStats{
			Model:        model,
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			CachedTokens: int(completion.Usage.PromptTokensDetails.CachedTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	logrus.WithFields(logrus.Fields{
		"chat_key":       req.ChatKey,
		"model":          model,
		"input_tokens":   resp.Usage.InputTokens,
		"output_tokens":  resp.Usage.OutputTokens,
		"has_tool_calls": len(resp.ToolCalls) > 0,
	}).Debug("[OPENAI] Chat completed")

	return resp, nil
}

func toOpenAIMessages(req domain.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}

	for _, t := range req.History {
		if t.RawContent != nil {
			if msg, ok := t.RawContent.(openai.ChatCompletionMessageParamUnion); ok {
				messages = append(messages, msg)
				continue
			}
		}

		if len(t.ToolCalls) > 0 {
			var calls []openai.ChatCompletionMessageToolCallUnionParam
			for _, tc := range t.ToolCalls {
				argsData, _ := json.Marshal(tc.Args)
				calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(argsData),
						},
						Type: "function",
					},
				})
			}
			msg := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if t.Text != "" {
				msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(t.Text),
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
			continue
		}

		if len(t.ToolResponses) > 0 {
			for _, tr := range t.ToolResponses {
				data, _ := json.Marshal(tr.Data)
				messages = append(messages, openai.ToolMessage(string(data), tr.ID))
			}
			continue
		}

		switch t.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(t.Text))
		case "system":
			messages = append(messages, openai.SystemMessage(t.Text))
		default:
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	return messages
}

func toOpenAITools(tools []domain.Tool) []openai.ChatCompletionToolUnionParam {
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.InputSchema),
				},
			},
		})
	}
	return out
}
