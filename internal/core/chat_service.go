package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/ai"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/prompt"
	"qanta-backend-go/internal/quota"
	"qanta-backend-go/internal/reply"
)

type chatService struct {
	quota         QuotaService
	catalog       *prompt.Catalog
	model         ai.Generator
	parser        *reply.Parser
	defaultOffset string
	logger        *zap.Logger
	now           func() time.Time
}

// NewChatService creates a ChatService.
func NewChatService(q QuotaService, catalog *prompt.Catalog, model ai.Generator, parser *reply.Parser, defaultOffset string, logger *zap.Logger) ChatService {
	return &chatService{
		quota:         q,
		catalog:       catalog,
		model:         model,
		parser:        parser,
		defaultOffset: defaultOffset,
		logger:        logger,
		now:           time.Now,
	}
}

// Chat answers one assistant message. Quota is checked before the model call
// and consumed only after it succeeded; insights requests are not metered.
func (s *chatService) Chat(ctx context.Context, caller Caller, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, NewError(codes.InvalidArgument, "Message is required")
	}

	requested := req.Language
	if detected := prompt.DetectLanguage(message); detected != "" {
		requested = detected
	}
	lang := s.catalog.Normalize(requested)
	l := s.catalog.Language(lang)

	offset := req.UserTimezone
	if offset == "" {
		offset = s.defaultOffset
	}

	var attachment *ai.Attachment
	if req.ImageBase64 != "" {
		a, err := ai.DecodeAttachment(req.ImageBase64, req.FileType)
		if err != nil {
			return nil, Errorf(codes.InvalidArgument, "Invalid attachment: %v", err)
		}
		attachment = ai.Downscale(a)
	}

	metered := !req.IsInsightsAnalysis
	var preview quota.Status
	if metered {
		if attachment != nil {
			if _, err := s.quota.CheckDailyLimit(ctx, caller, quota.RequestChatWithImage, offset, lang); err != nil {
				return nil, err
			}
		}
		st, err := s.quota.CheckDailyLimit(ctx, caller, quota.RequestChat, offset, lang)
		if err != nil {
			return nil, err
		}
		preview = st
	}

	system, err := s.catalog.SystemPrompt(prompt.Input{
		Language:          lang,
		Currency:          req.Currency,
		Accounts:          req.UserAccounts,
		Summary:           req.FinancialSummary,
		Budgets:           req.Budgets,
		Categories:        req.Categories,
		StockPortfolio:    req.StockPortfolio,
		StockTransactions: req.StockTransactions,
		Now:               quota.LocalTime(s.now(), offset),
	})
	if err != nil {
		return nil, Internal("AI chat", err)
	}

	plan := l.PlanMessage(message, attachment != nil)
	s.logger.Debug("Chat request classified",
		zap.String("user_id", caller.UID),
		zap.String("language", lang),
		zap.String("profile", plan.Profile.Name),
		zap.Bool("attachment", attachment != nil))

	answer, err := s.model.Chat(ctx, ai.ChatRequest{
		System:     system,
		Priming:    l.Priming,
		History:    prompt.CompressHistory(req.ConversationHistory),
		Message:    message,
		Hint:       plan.Hint,
		Attachment: attachment,
		Profile: ai.Profile{
			Temperature:     plan.Profile.Temperature,
			TopK:            plan.Profile.TopK,
			TopP:            plan.Profile.TopP,
			MaxOutputTokens: plan.Profile.MaxOutputTokens,
		},
	})
	if err != nil {
		s.logger.Error("AI chat failed", zap.String("user_id", caller.UID), zap.Error(err))
		return nil, Internal("AI chat", err)
	}

	parsed := s.parser.Parse(answer.Text)
	resp := &models.ChatResponse{
		Success:         true,
		Message:         parsed.Message,
		IsReady:         parsed.IsReady(),
		TransactionData: parsed.TransactionData,
		QuickReplies:    parsed.QuickReplies,
		TokenUsage:      answer.Usage,
	}
	if !metered {
		return resp, nil
	}

	types := []string{quota.RequestChat}
	if attachment != nil {
		types = append(types, quota.RequestChatWithImage)
	}
	resp.Usage = chargeCompleted(ctx, s.quota, s.logger, caller, offset, lang, preview, quota.RequestChat, types...)
	return resp, nil
}
