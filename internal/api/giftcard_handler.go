package api

import (
	"context"

	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/models"
)

// GiftCardHandler serves the gift-card operations.
type GiftCardHandler struct {
	giftCards core.GiftCardService
}

func NewGiftCardHandler(giftCards core.GiftCardService) *GiftCardHandler {
	return &GiftCardHandler{giftCards: giftCards}
}

func (h *GiftCardHandler) CheckAndConvertToGiftCard(ctx context.Context, caller core.Caller, req models.ConvertGiftCardRequest) (*models.ConvertResult, error) {
	return h.giftCards.ConvertToGiftCard(ctx, caller, req)
}

func (h *GiftCardHandler) CreateGiftCardRequestFromPoints(ctx context.Context, caller core.Caller, req models.GiftCardFromPointsRequest) (*models.GiftCardRequestResult, error) {
	return h.giftCards.CreateRequestFromPoints(ctx, caller, req)
}

func (h *GiftCardHandler) NotifyGiftCardSent(ctx context.Context, caller core.Caller, req models.NotifyGiftCardRequest) (*models.NotifyResult, error) {
	return h.giftCards.NotifySent(ctx, caller, req)
}

func (h *GiftCardHandler) RedeemGiftCard(ctx context.Context, caller core.Caller, req models.RedeemGiftCardRequest) (*models.RedeemResult, error) {
	return h.giftCards.Redeem(ctx, caller, req.GiftCardID)
}
