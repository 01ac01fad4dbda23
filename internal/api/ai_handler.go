package api

import (
	"context"

	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

// AIHandler serves the model-backed operations and the quota endpoints.
type AIHandler struct {
	chat  core.ChatService
	tasks core.TaskService
	quota core.QuotaService
}

func NewAIHandler(chat core.ChatService, tasks core.TaskService, q core.QuotaService) *AIHandler {
	return &AIHandler{chat: chat, tasks: tasks, quota: q}
}

func (h *AIHandler) ChatWithAI(ctx context.Context, caller core.Caller, req models.ChatRequest) (*models.ChatResponse, error) {
	return h.chat.Chat(ctx, caller, req)
}

func (h *AIHandler) CategorizeExpense(ctx context.Context, caller core.Caller, req models.CategorizeRequest) (*models.CategorizeResponse, error) {
	return h.tasks.Categorize(ctx, caller, req)
}

func (h *AIHandler) ParseQuickAddText(ctx context.Context, caller core.Caller, req models.QuickAddRequest) (*core.QuickAddResult, error) {
	return h.tasks.QuickAdd(ctx, caller, req)
}

func (h *AIHandler) GetAIFinancialSummary(ctx context.Context, caller core.Caller, req models.SummaryRequest) (*models.SummaryResponse, error) {
	return h.tasks.Summary(ctx, caller, req)
}

// CheckDailyLimit previews the quota of one request type without consuming it.
func (h *AIHandler) CheckDailyLimit(ctx context.Context, caller core.Caller, req models.LimitCheckRequest) (*quota.Status, error) {
	requestType := req.RequestType
	if requestType == "" {
		requestType = quota.RequestChat
	}
	status, err := h.quota.CheckDailyLimit(ctx, caller, requestType, req.UserTimezone, req.Language)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (h *AIHandler) AddAIBonus(ctx context.Context, caller core.Caller, req models.TimezoneRequest) (*models.BonusResult, error) {
	return h.quota.AddAIBonus(ctx, caller, req.UserTimezone, req.Language)
}

func (h *AIHandler) GetUsageStatus(ctx context.Context, caller core.Caller, req models.TimezoneRequest) (*models.UsageStatus, error) {
	return h.quota.GetUsageStatus(ctx, caller, req.UserTimezone)
}
