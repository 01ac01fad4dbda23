package api

import (
	"context"

	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/models"
)

// AccountHandler serves card creation and transaction maintenance.
type AccountHandler struct {
	cards        core.CardService
	transactions core.TransactionService
}

func NewAccountHandler(cards core.CardService, transactions core.TransactionService) *AccountHandler {
	return &AccountHandler{cards: cards, transactions: transactions}
}

func (h *AccountHandler) CreateCard(ctx context.Context, caller core.Caller, req models.CreateCardRequest) (*models.CreateCardResult, error) {
	return h.cards.CreateCard(ctx, caller, req)
}

func (h *AccountHandler) BulkDeleteTransactions(ctx context.Context, caller core.Caller, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error) {
	return h.transactions.BulkDelete(ctx, caller, req)
}
