package providers

import (
	"testing"

	"github.com/lhudash/chisa-api/assistant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToGeminiContentsGroupsToolResponses(t *testing.T) {
	history := []domain.ChatTurn{
		{Role: "user", Text: "mai học gì?"},
		{Role: "assistant", ToolCalls: []domain.ToolCall{
			{ID: "1", Name: "get_next_class", Args: map[string]any{"student_id": 1}},
			{ID: "2", Name: "get_current_weather"},
		}},
		{Role: "user", ToolResponses: []domain.ToolResponse{
			{ID: "1", Name: "get_next_class", Data: map[string]any{"TenMonHoc": "Toán"}},
			{ID: "2", Name: "get_current_weather", Data: []int{1, 2}},
		}},
		{Role: "user", Text: ""},
	}

	contents := toGeminiContents(history)
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "get_next_class", contents[1].Parts[0].FunctionCall.Name)

	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, genai.RoleUser, contents[2].Role)
	assert.Equal(t, "Toán", contents[2].Parts[0].FunctionResponse.Response["TenMonHoc"])
	assert.Equal(t, []any{float64(1), float64(2)}, contents[2].Parts[1].FunctionResponse.Response["result"])
}

func TestToResponseMap(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1}, toResponseMap(map[string]any{"a": 1}))
	assert.Equal(t, map[string]any{"result": "text"}, toResponseMap("text"))

	type payload struct {
		Name string `json:"name"`
	}
	assert.Equal(t, map[string]any{"name": "x"}, toResponseMap(payload{Name: "x"}))
}

func TestToGeminiSchemaDefaultsToObject(t *testing.T) {
	schema := toGeminiSchema(map[string]any{})
	assert.Equal(t, genai.TypeObject, schema.Type)

	schema = toGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "q"},
		},
		"required": []string{"query"},
	})
	require.Contains(t, schema.Properties, "query")
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, genai.TypeString, schema.Properties["query"].Type)
	assert.Equal(t, []string{"query"}, schema.Required)
}

func TestToOpenAIMessages(t *testing.T) {
	req := domain.ChatRequest{
		SystemPrompt: "system",
		History: []domain.ChatTurn{
			{Role: "user", Text: "hi"},
			{Role: "assistant", ToolCalls: []domain.ToolCall{{ID: "c1", Name: "search_web", Args: map[string]any{"query": "lhu"}}}},
			{Role: "user", ToolResponses: []domain.ToolResponse{{ID: "c1", Name: "search_web", Data: map[string]any{"ok": true}}}},
			{Role: "assistant", Text: "done"},
		},
	}

	msgs := toOpenAIMessages(req)
	require.Len(t, msgs, 5)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, `{"query":"lhu"}`, msgs[2].OfAssistant.ToolCalls[0].OfFunction.Function.Arguments)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)
	assert.NotNil(t, msgs[4].OfAssistant)
}

func TestToOpenAITools(t *testing.T) {
	tools := toOpenAITools([]domain.Tool{{
		Name:        "get_grades",
		Description: "grades",
		InputSchema: map[string]any{"type": "object"},
	}})
	require.Len(t, tools, 1)
	assert.Equal(t, "get_grades", tools[0].OfFunction.Function.Name)
	assert.Equal(t, "object", tools[0].OfFunction.Function.Parameters["type"])
}
