package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lhudash/chisa-api/assistant/domain"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider is the adapter for the Google Gemini API.
type GeminiProvider struct {
	apiKey string
	model  string
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if p.apiKey == "" {
		return domain.ChatResponse{}, fmt.Errorf("gemini provider has no API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return domain.ChatResponse{}, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, "")
	}

	var decls []*genai.FunctionDeclaration
	for _, t := range req.Tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.InputSchema),
		})
	}
	if len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	model := req.Model
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = p.model
	}

	result, err := generateWithRetry(ctx, client, model, toGeminiContents(req.History), cfg)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return domain.ChatResponse{}, fmt.Errorf("no response from gemini")
	}

	candidate := result.Candidates[0]
	var text strings.Builder
	resp := domain.ChatResponse{RawContent: candidate.Content}
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	resp.Text = text.String()

	if usage := result.UsageMetadata; usage != nil {
		resp.Usage = &domain.UsageStats{
			Model:        model,
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount),
			CachedTokens: int(usage.CachedContentTokenCount),
		}
		logrus.WithFields(logrus.Fields{
			"chat_key":      req.ChatKey,
			"model":         model,
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		}).Debug("[GEMINI] Chat completed")
	}

	return resp, nil
}

func toGeminiContents(history []domain.ChatTurn) []*genai.Content {
	var contents []*genai.Content
	for _, t := range history {
		if raw, ok := t.RawContent.(*genai.Content); ok && raw != nil {
			contents = append(contents, raw)
			continue
		}

		if len(t.ToolCalls) > 0 {
			var parts []*genai.Part
			if t.Text != "" {
				parts = append(parts, &genai.Part{Text: t.Text})
			}
			for _, tc := range t.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Args},
				})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
			continue
		}

		// every response of one step goes into a single user content
		if len(t.ToolResponses) > 0 {
			var parts []*genai.Part
			for _, tr := range t.ToolResponses {
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       tr.ID,
						Name:     tr.Name,
						Response: toResponseMap(tr.Data),
					},
				})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
			continue
		}

		if t.Text == "" {
			continue
		}
		role := genai.RoleUser
		if t.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	return contents
}

// toResponseMap shapes arbitrary tool output into the object Gemini requires.
func toResponseMap(data any) map[string]any {
	if m, ok := data.(map[string]any); ok {
		return m
	}
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

func toGeminiSchema(input map[string]any) *genai.Schema {
	data, _ := json.Marshal(input)
	var schema genai.Schema
	_ = json.Unmarshal(data, &schema)
	if schema.Type == "" {
		schema.Type = genai.TypeObject
	}
	normalizeTypes(&schema)
	return &schema
}

// normalizeTypes upper-cases JSON-schema type names ("object" -> OBJECT).
func normalizeTypes(s *genai.Schema) {
	if s == nil {
		return
	}
	s.Type = genai.Type(strings.ToUpper(string(s.Type)))
	for _, p := range s.Properties {
		normalizeTypes(p)
	}
	normalizeTypes(s.Items)
}

func generateWithRetry(ctx context.Context, client *genai.Client, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	for i := 0; i < 3; i++ {
		result, err := client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return result, nil
		}
		if !strings.Contains(err.Error(), "503") {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<uint(i)) * time.Second):
		}
	}
	return nil, fmt.Errorf("max retries exceeded")
}
