package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
)

// auditService implements the AuditService interface.
type auditService struct {
	auditRepo db.AuditRepository
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(auditRepo db.AuditRepository) AuditService {
	return &auditService{
		auditRepo: auditRepo,
	}
}

// CreateAuditLog stores one audit entry.
func (s *auditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	if s.auditRepo == nil {
		return fmt.Errorf("AuditRepository not initialized in AuditService")
	}
	if err := s.auditRepo.Create(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log via repository: %w", err)
	}
	return nil
}

// recordAudit appends an admin action to the audit log. Audit failures never
// fail the action; they are logged.
func recordAudit(ctx context.Context, audit AuditService, logger *zap.Logger, caller Caller, action, targetType, targetID string, details map[string]interface{}) {
	if audit == nil {
		return
	}
	entry := models.AuditLog{
		Actor:      caller.UID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		IPAddress:  caller.IP,
		UserAgent:  caller.UserAgent,
		Details:    details,
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.String("actor", caller.UID),
			zap.Error(err))
	}
}
