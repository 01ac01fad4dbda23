package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/i18n"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

// FreeCardLimit is how many active credit and debit cards a free user may hold.
const FreeCardLimit = 3

type cardService struct {
	users    db.UserRepository
	accounts db.AccountRepository
	logger   *zap.Logger
}

func NewCardService(users db.UserRepository, accounts db.AccountRepository, logger *zap.Logger) CardService {
	return &cardService{users: users, accounts: accounts, logger: logger}
}

// CreateCard stores a new account. Free users are limited to FreeCardLimit
// active cards; cash accounts are never limited.
func (s *cardService) CreateCard(ctx context.Context, caller Caller, req models.CreateCardRequest) (*models.CreateCardResult, error) {
	if !caller.Authenticated() {
		return nil, NewError(codes.Unauthenticated, "Kullanıcı girişi gerekli")
	}
	name := strings.TrimSpace(req.Name)
	if req.Type == "" || name == "" {
		return nil, NewError(codes.InvalidArgument, "type ve name gerekli")
	}
	switch req.Type {
	case models.AccountCredit, models.AccountDebit, models.AccountCash:
	default:
		return nil, NewError(codes.InvalidArgument, "type 'credit', 'debit' veya 'cash' olmalı")
	}

	account := &models.Account{
		UserID:       caller.UID,
		Type:         req.Type,
		Name:         name,
		BankName:     req.BankName,
		Balance:      req.Balance,
		CreditLimit:  req.CreditLimit,
		StatementDay: req.StatementDay,
		DueDay:       req.DueDay,
		IsActive:     true,
	}

	var check func(int) error
	if account.IsCard() {
		tier, err := userTier(ctx, s.users, caller.UID)
		if err != nil {
			return nil, Internal("Kart oluşturma", err)
		}
		if tier == quota.TierFree {
			lang := i18n.NormalizeLanguage(req.Language)
			check = func(count int) error {
				if count < FreeCardLimit {
					return nil
				}
				s.logger.Warn("Card limit reached for free user", zap.String("user_id", caller.UID), zap.Int("count", count))
				if count > FreeCardLimit {
					return NewError(codes.ResourceExhausted, i18n.T(lang, "cards.limitExceeded", i18n.Params{
						"count":       count,
						"deleteCount": count - (FreeCardLimit - 1),
					}))
				}
				return NewError(codes.ResourceExhausted, i18n.T(lang, "cards.limitReached", nil))
			}
		}
	}

	id, err := s.accounts.Create(ctx, account, check)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, e
		}
		s.logger.Error("Create card failed", zap.String("user_id", caller.UID), zap.Error(err))
		return nil, NewError(codes.Internal, fmt.Sprintf("Kart oluşturulamadı: %v", err))
	}
	s.logger.Info("Card created", zap.String("user_id", caller.UID), zap.String("type", req.Type), zap.String("account_id", id))
	return &models.CreateCardResult{
		Success:   true,
		AccountID: id,
		Message:   fmt.Sprintf("%s kartı başarıyla oluşturuldu", req.Type),
	}, nil
}
