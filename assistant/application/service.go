package application

import (
	"context"
	"strings"
	"time"

	"github.com/lhudash/chisa-api/assistant/domain"
	authApp "github.com/lhudash/chisa-api/auth/application"
	chatDomain "github.com/lhudash/chisa-api/chathistory/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	profileDomain "github.com/lhudash/chisa-api/profiles/domain"
	"github.com/sirupsen/logrus"
)

const (
	msgOutOfCredit  = "Chisa AI hết tiền vận hành rồi T-T"
	msgUnauthorized = "Bạn không có quyền truy cập vào Chisa AI. Vui lòng đăng nhập lại."
)

type ProfileCache interface {
	GetUserData(ctx context.Context, userID string) (profileDomain.Profile, bool)
	SetUserData(ctx context.Context, userID string, p profileDomain.Profile)
}

type UserDirectory interface {
	UserInfo(ctx context.Context, token string) (profileDomain.Profile, error)
}

type TurnRecorder interface {
	RecordTurn(ctx context.Context, chatID, userID string, msgs []chatDomain.Message) (string, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, accessToken string) (authApp.ToolToken, error)
	Revoke(ctx context.Context, t authApp.ToolToken)
}

type CreditSource interface {
	Available(ctx context.Context) bool
}

type ChatInput struct {
	ChatID      string                `json:"id"`
	UserID      string                `json:"user_id"`
	AccessToken string                `json:"access_token"`
	Messages    []domain.InputMessage `json:"messages"`
}

type ChatOutput struct {
	ChatID    string            `json:"chat_id,omitempty"`
	Message   string            `json:"message"`
	Steps     int               `json:"steps"`
	ToolCalls []string          `json:"tool_calls,omitempty"`
	Usage     domain.UsageStats `json:"usage"`
}

type Deps struct {
	Provider     domain.Provider
	Registry     *Registry
	Orchestrator *Orchestrator
	Profiles     ProfileCache
	Users        UserDirectory
	Tokens       TokenIssuer
	Turns        TurnRecorder
	Credits      CreditSource
	Model        string
	Location     *time.Location
	Now          func() time.Time
}

// Service answers student chat requests.
type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Orchestrator == nil {
		d.Orchestrator = NewOrchestrator(d.Registry, DefaultMaxSteps)
	}
	return &Service{d: d}
}

// Availability reports whether the model gateway still has credit.
func (s *Service) Availability(ctx context.Context) bool {
	if s.d.Credits == nil {
		return true
	}
	return s.d.Credits.Available(ctx)
}

// Tools lists the tools the assistant can call.
func (s *Service) Tools() []domain.ToolInfo {
	if s.d.Registry == nil {
		return []domain.ToolInfo{}
	}
	return s.d.Registry.List()
}

func (s *Service) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if !s.Availability(ctx) {
		return ChatOutput{}, pkgError.PaymentRequiredError(msgOutOfCredit)
	}
	if len(in.Messages) == 0 {
		return ChatOutput{}, pkgError.ValidationError("messages required")
	}

	profile, err := s.resolveProfile(ctx, in)
	if err != nil {
		logrus.WithError(err).WithField("user_id", in.UserID).Warn("[ASSISTANT] Rejected chat request")
		return ChatOutput{}, pkgError.UnauthorizedError(msgUnauthorized)
	}

	token, err := s.d.Tokens.Issue(ctx, in.AccessToken)
	if err != nil {
		logrus.WithError(err).Error("[ASSISTANT] Failed to issue tool token")
		return ChatOutput{}, pkgError.InternalServerError("failed to prepare assistant session")
	}
	defer s.d.Tokens.Revoke(context.WithoutCancel(ctx), token)

	req := domain.ChatRequest{
		SystemPrompt: BuildSystemPrompt(profile, token.Value, s.d.Now().In(s.d.Location)),
		History:      toTurns(in.Messages),
		Tools:        s.d.Registry.Definitions(),
		Model:        s.d.Model,
		ChatKey:      profile.UserID + "|" + in.ChatID,
	}

	result, err := s.d.Orchestrator.Execute(ctx, s.d.Provider, req)
	if err != nil {
		return ChatOutput{}, &pkgError.UpstreamError{
			Service: s.d.Provider.Name(),
			Code:    pkgError.CodeAPIError,
			Message: "the assistant could not answer right now",
			Err:     err,
		}
	}

	out := ChatOutput{
		ChatID:    in.ChatID,
		Message:   result.Text,
		Steps:     result.Steps,
		ToolCalls: result.ToolCalls,
		Usage:     result.Usage,
	}

	owner := in.UserID
	if owner == "" {
		owner = profile.UserID
	}
	if chatID := s.record(ctx, in, owner, result.Text); chatID != "" {
		out.ChatID = chatID
	}
	return out, nil
}

func (s *Service) resolveProfile(ctx context.Context, in ChatInput) (profileDomain.Profile, error) {
	if in.UserID != "" {
		if p, ok := s.d.Profiles.GetUserData(ctx, in.UserID); ok {
			logrus.Debugf("[ASSISTANT] Cache hit for user %s", in.UserID)
			return p, nil
		}
	}

	p, err := s.d.Users.UserInfo(ctx, in.AccessToken)
	if err != nil {
		return profileDomain.Profile{}, err
	}
	if p.UserID == "" {
		return profileDomain.Profile{}, pkgError.UnauthorizedError("empty profile")
	}
	logrus.Debugf("[ASSISTANT] Cache miss for user %s", in.UserID)
	s.d.Profiles.SetUserData(ctx, p.UserID, p)
	return p, nil
}

// record queues the last user message and the reply. Failures are logged.
func (s *Service) record(ctx context.Context, in ChatInput, owner, reply string) string {
	if s.d.Turns == nil || owner == "" {
		return ""
	}

	var msgs []chatDomain.Message
	if text := lastUserText(in.Messages); text != "" {
		msgs = append(msgs, chatDomain.Message{Role: chatDomain.RoleUser, Content: text})
	}
	if reply != "" {
		msgs = append(msgs, chatDomain.Message{Role: chatDomain.RoleAssistant, Content: reply})
	}
	if len(msgs) == 0 {
		return ""
	}

	chatID, err := s.d.Turns.RecordTurn(context.WithoutCancel(ctx), in.ChatID, owner, msgs)
	if err != nil {
		logrus.WithError(err).WithField("user_id", owner).Error("[ASSISTANT] Failed to save chat history")
		return ""
	}
	return chatID
}

func lastUserText(msgs []domain.InputMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			if text := strings.TrimSpace(msgs[i].Text()); text != "" {
				return text
			}
			return ""
		}
	}
	return ""
}

func toTurns(msgs []domain.InputMessage) []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text()
		if text == "" {
			continue
		}
		role := m.Role
		if role != "assistant" && role != "system" {
			role = "user"
		}
		turns = append(turns, domain.ChatTurn{Role: role, Text: text})
	}
	return turns
}
