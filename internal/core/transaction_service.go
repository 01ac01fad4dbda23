package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

type transactionService struct {
	transactions  db.TransactionRepository
	quota         QuotaService
	defaultOffset string
	logger        *zap.Logger
	now           func() time.Time
}

func NewTransactionService(transactions db.TransactionRepository, q QuotaService, defaultOffset string, logger *zap.Logger) TransactionService {
	return &transactionService{
		transactions:  transactions,
		quota:         q,
		defaultOffset: defaultOffset,
		logger:        logger,
		now:           time.Now,
	}
}

// BulkDelete removes the caller's transactions matching the filters. It is
// metered as one chat request, charged only when something was deleted. Once
// documents are gone the result is returned even if the charge fails.
func (s *transactionService) BulkDelete(ctx context.Context, caller Caller, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error) {
	if !caller.Authenticated() {
		return nil, NewError(codes.Unauthenticated, "User must be authenticated")
	}
	if req.Filters == nil {
		return nil, NewError(codes.InvalidArgument, "Filters are required")
	}
	offset := req.UserTimezone
	if offset == "" {
		offset = s.defaultOffset
	}

	preview, err := s.quota.CheckDailyLimit(ctx, caller, quota.RequestChat, offset, "")
	if err != nil {
		return nil, err
	}

	q := s.query(*req.Filters, offset)
	deleted, err := s.transactions.DeleteMatching(ctx, caller.UID, q)
	if err != nil {
		s.logger.Error("Bulk delete failed", zap.String("user_id", caller.UID), zap.Error(err))
		return nil, Internal("Bulk delete", err)
	}
	if deleted == 0 {
		return &models.BulkDeleteResult{Success: true, Message: "Silinecek işlem bulunamadı"}, nil
	}
	s.logger.Info("Transactions deleted", zap.String("user_id", caller.UID), zap.Int("count", deleted))

	usage := chargeCompleted(ctx, s.quota, s.logger, caller, offset, "", preview, usageTypeBulkDelete, quota.RequestChat)
	return &models.BulkDeleteResult{
		Success:      true,
		DeletedCount: deleted,
		Message:      fmt.Sprintf("%d işlem başarıyla silindi", deleted),
		Usage:        usage,
	}, nil
}

func (s *transactionService) query(f models.TransactionFilter, offset string) db.TransactionQuery {
	var q db.TransactionQuery
	if f.Days != nil {
		now := s.now()
		if *f.Days <= 0 {
			q.Since = quota.StartOfDay(now, offset)
		} else {
			q.Since = now.UTC().AddDate(0, 0, -*f.Days)
		}
	}
	if f.TransactionType != "all" {
		q.Type = f.TransactionType
	}
	q.Category = f.Category
	return q
}
