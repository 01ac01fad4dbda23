package api

import (
	"context"

	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/models"
)

// SupportHandler serves the support-request conversation.
type SupportHandler struct {
	support core.SupportService
}

func NewSupportHandler(support core.SupportService) *SupportHandler {
	return &SupportHandler{support: support}
}

func (h *SupportHandler) SubmitSupportRequest(ctx context.Context, caller core.Caller, req models.SubmitSupportRequest) (*models.SupportResult, error) {
	return h.support.Submit(ctx, caller, req)
}

func (h *SupportHandler) AddSupportMessage(ctx context.Context, caller core.Caller, req models.AddSupportMessageRequest) (*models.SupportResult, error) {
	return h.support.AddMessage(ctx, caller, req)
}

func (h *SupportHandler) UpdateSupportStatus(ctx context.Context, caller core.Caller, req models.UpdateSupportStatusRequest) (*models.SupportResult, error) {
	return h.support.UpdateStatus(ctx, caller, req)
}
