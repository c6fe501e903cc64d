package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lhudash/chisa-api/assistant/domain"
	authApp "github.com/lhudash/chisa-api/auth/application"
	chatDomain "github.com/lhudash/chisa-api/chathistory/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/metrics"
	profileDomain "github.com/lhudash/chisa-api/profiles/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays canned responses and records every request.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []domain.ChatResponse
	requests  []domain.ChatRequest
	err       error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(_ context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return domain.ChatResponse{}, p.err
	}
	if len(p.responses) == 0 {
		return domain.ChatResponse{Text: "fallback"}, nil
	}
	res := p.responses[0]
	p.responses = p.responses[1:]
	return res, nil
}

func echoTool(name string) domain.NativeTool {
	return domain.NativeTool{
		Tool: domain.Tool{Name: name, Description: name + " tool", InputSchema: map[string]any{"type": "object"}},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"echo": args["value"]}, nil
		},
	}
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry(metrics.New())
	require.NoError(t, r.Register(echoTool("b"), echoTool("a")))

	assert.Error(t, r.Register(echoTool("a")))
	assert.Error(t, r.Register(domain.NativeTool{Tool: domain.Tool{Name: "nohandler"}}))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Name)
	assert.Equal(t, "a tool", list[1].Description)
	assert.Len(t, r.Definitions(), 2)
	assert.Len(t, r.Native(), 2)
}

func TestRegistryCall(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("echo"), domain.NativeTool{
		Tool: domain.Tool{Name: "boom"},
		Handler: func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		},
	}))

	out, err := r.Call(context.Background(), "echo", map[string]any{"value": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": 1}, out)

	_, err = r.Call(context.Background(), "missing", nil)
	var nf pkgError.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = r.Call(context.Background(), "boom", nil)
	var ise pkgError.InternalServerError
	assert.ErrorAs(t, err, &ise)
}

func TestOrchestratorRunsToolLoop(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("echo")))

	p := &scriptedProvider{responses: []domain.ChatResponse{
		{
			ToolCalls: []domain.ToolCall{
				{ID: "1", Name: "echo", Args: map[string]any{"value": "x"}},
				{ID: "2", Name: "missing"},
			},
			Usage: &domain.UsageStats{Model: "m", InputTokens: 10, OutputTokens: 2},
		},
		{Text: "xong", Usage: &domain.UsageStats{InputTokens: 5, OutputTokens: 3}},
	}}

	res, err := NewOrchestrator(r, 5).Execute(context.Background(), p, domain.ChatRequest{
		History: []domain.ChatTurn{{Role: "user", Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "xong", res.Text)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, []string{"echo", "missing"}, res.ToolCalls)
	assert.Equal(t, domain.UsageStats{Model: "m", InputTokens: 15, OutputTokens: 5}, res.Usage)

	require.Len(t, p.requests, 2)
	second := p.requests[1].History
	require.Len(t, second, 3)
	assert.Equal(t, "assistant", second[1].Role)
	responses := second[2].ToolResponses
	require.Len(t, responses, 2)
	assert.Equal(t, map[string]any{"echo": "x"}, responses[0].Data)
	errBody := responses[1].Data.(map[string]any)["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND_ERROR", errBody["code"])
}

func TestOrchestratorStopsAtStepBudget(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("echo")))

	loop := domain.ChatResponse{ToolCalls: []domain.ToolCall{{Name: "echo"}}}
	p := &scriptedProvider{responses: []domain.ChatResponse{loop, loop, loop, loop}}

	res, err := NewOrchestrator(r, 3).Execute(context.Background(), p, domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Steps)
	assert.Len(t, p.requests, 3)
}

func TestOrchestratorProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("down")}
	_, err := NewOrchestrator(nil, 0).Execute(context.Background(), p, domain.ChatRequest{})
	assert.EqualError(t, err, "down")
}

func TestToolErrorShape(t *testing.T) {
	body := toolError(&pkgError.UpstreamError{Code: pkgError.CodeAuthInvalid, Message: "expired", Status: 401})
	assert.Equal(t, map[string]any{"error": map[string]any{
		"code": pkgError.CodeAuthInvalid, "message": "expired", "status": 401,
	}}, body)

	body = toolError(errors.New("plain"))
	assert.Equal(t, "UNKNOWN_ERROR", body["error"].(map[string]any)["code"])
}

func TestBuildSystemPrompt(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)
	prompt := BuildSystemPrompt(profileDomain.Profile{
		UserID:         "123",
		FirstName:      "An",
		LastName:       "Nguyễn",
		Class:          "22CT111",
		DepartmentName: "CNTT",
	}, "sealed-token", now)

	assert.Contains(t, prompt, "Today's Date: 2025-03-10 15:04:05")
	assert.Contains(t, prompt, "StudentID: 123")
	assert.Contains(t, prompt, "Name: Nguyễn An")
	assert.Contains(t, prompt, "Class: 22CT111")
	assert.Contains(t, prompt, "Department: CNTT")
	assert.Contains(t, prompt, "sealed-token")
}

type fakeProfiles struct {
	data map[string]profileDomain.Profile
	sets int
}

func (f *fakeProfiles) GetUserData(_ context.Context, id string) (profileDomain.Profile, bool) {
	p, ok := f.data[id]
	return p, ok
}

func (f *fakeProfiles) SetUserData(_ context.Context, id string, p profileDomain.Profile) {
	f.sets++
	f.data[id] = p
}

type fakeUsers struct {
	profile profileDomain.Profile
	err     error
	calls   int
}

func (f *fakeUsers) UserInfo(context.Context, string) (profileDomain.Profile, error) {
	f.calls++
	return f.profile, f.err
}

type fakeTokens struct {
	issued  int
	revoked []string
}

func (f *fakeTokens) Issue(_ context.Context, access string) (authApp.ToolToken, error) {
	f.issued++
	return authApp.ToolToken{Value: "sealed:" + access, Nonce: "n1"}, nil
}

func (f *fakeTokens) Revoke(_ context.Context, t authApp.ToolToken) {
	f.revoked = append(f.revoked, t.Nonce)
}

type fakeTurns struct {
	chatID string
	owner  string
	msgs   []chatDomain.Message
	err    error
}

func (f *fakeTurns) RecordTurn(_ context.Context, chatID, owner string, msgs []chatDomain.Message) (string, error) {
	f.owner, f.msgs = owner, msgs
	if f.err != nil {
		return "", f.err
	}
	if chatID == "" {
		chatID = "new-chat"
	}
	f.chatID = chatID
	return chatID, nil
}

type fixedCredits bool

func (c fixedCredits) Available(context.Context) bool { return bool(c) }

type serviceFixture struct {
	svc      *Service
	provider *scriptedProvider
	profiles *fakeProfiles
	users    *fakeUsers
	tokens   *fakeTokens
	turns    *fakeTurns
}

func newServiceFixture(credits CreditSource) *serviceFixture {
	f := &serviceFixture{
		provider: &scriptedProvider{responses: []domain.ChatResponse{{Text: "Chào bạn (｡♥‿♥｡)"}}},
		profiles: &fakeProfiles{data: map[string]profileDomain.Profile{}},
		users:    &fakeUsers{profile: profileDomain.Profile{UserID: "123", FullName: "Nguyễn An"}},
		tokens:   &fakeTokens{},
		turns:    &fakeTurns{},
	}
	registry := NewRegistry(nil)
	_ = registry.Register(echoTool("echo"))
	f.svc = NewService(Deps{
		Provider: f.provider,
		Registry: registry,
		Profiles: f.profiles,
		Users:    f.users,
		Tokens:   f.tokens,
		Turns:    f.turns,
		Credits:  credits,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) },
	})
	return f
}

func chatInput(userID string) ChatInput {
	return ChatInput{
		UserID:      userID,
		AccessToken: "upstream",
		Messages: []domain.InputMessage{
			{Role: "user", Content: "xin chào"},
			{Role: "assistant", Content: "chào"},
			{Role: "user", Parts: []domain.MessagePart{{Type: "text", Text: "mai "}, {Type: "file"}, {Type: "text", Text: "học gì?"}}},
		},
	}
}

func TestServiceChatFetchesProfileOnMiss(t *testing.T) {
	f := newServiceFixture(nil)

	out, err := f.svc.Chat(context.Background(), chatInput("123"))
	require.NoError(t, err)
	assert.Equal(t, "Chào bạn (｡♥‿♥｡)", out.Message)
	assert.Equal(t, "new-chat", out.ChatID)
	assert.Equal(t, 1, out.Steps)

	assert.Equal(t, 1, f.users.calls)
	assert.Equal(t, 1, f.profiles.sets)
	assert.Equal(t, []string{"n1"}, f.tokens.revoked)

	req := f.provider.requests[0]
	assert.True(t, strings.Contains(req.SystemPrompt, "sealed:upstream"))
	require.Len(t, req.History, 3)
	assert.Equal(t, "mai học gì?", req.History[2].Text)
	assert.Len(t, req.Tools, 1)

	require.Len(t, f.turns.msgs, 2)
	assert.Equal(t, chatDomain.RoleUser, f.turns.msgs[0].Role)
	assert.Equal(t, "mai học gì?", f.turns.msgs[0].Content)
	assert.Equal(t, chatDomain.RoleAssistant, f.turns.msgs[1].Role)
	assert.Equal(t, "123", f.turns.owner)
}

func TestServiceChatUsesCachedProfile(t *testing.T) {
	f := newServiceFixture(fixedCredits(true))
	f.profiles.data["123"] = profileDomain.Profile{UserID: "123", FullName: "Cached"}

	_, err := f.svc.Chat(context.Background(), chatInput("123"))
	require.NoError(t, err)
	assert.Zero(t, f.users.calls)
	assert.Contains(t, f.provider.requests[0].SystemPrompt, "Name: Cached")
}

func TestServiceChatRejections(t *testing.T) {
	f := newServiceFixture(fixedCredits(false))
	_, err := f.svc.Chat(context.Background(), chatInput("123"))
	var payment pkgError.PaymentRequiredError
	assert.ErrorAs(t, err, &payment)
	assert.False(t, f.svc.Availability(context.Background()))

	f = newServiceFixture(nil)
	f.users.err = pkgError.UnauthorizedError("UNAUTHORIZED")
	_, err = f.svc.Chat(context.Background(), chatInput("123"))
	var unauthorized pkgError.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, msgUnauthorized, err.Error())
	assert.Zero(t, f.tokens.issued)

	_, err = f.svc.Chat(context.Background(), ChatInput{UserID: "123"})
	var vErr pkgError.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestServiceChatProviderFailureRevokesToken(t *testing.T) {
	f := newServiceFixture(nil)
	f.provider.err = errors.New("gateway down")

	_, err := f.svc.Chat(context.Background(), chatInput("123"))
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, []string{"n1"}, f.tokens.revoked)
	assert.Nil(t, f.turns.msgs)
}

func TestServiceChatHistoryFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture(nil)
	f.turns.err = errors.New("db locked")

	in := chatInput("123")
	in.ChatID = "existing"
	out, err := f.svc.Chat(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "existing", out.ChatID)
}

func TestServiceTools(t *testing.T) {
	f := newServiceFixture(nil)
	assert.Equal(t, []domain.ToolInfo{{Name: "echo", Description: "echo tool"}}, f.svc.Tools())
}
