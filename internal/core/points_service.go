package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
)

type pointsService struct {
	users  db.UserRepository
	points db.PointsRepository
	admins AdminService
	audit  AuditService
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewPointsService(users db.UserRepository, points db.PointsRepository, admins AdminService, audit AuditService, logger *zap.Logger) PointsService {
	return &pointsService{
		users:  users,
		points: points,
		admins: admins,
		audit:  audit,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *pointsService) AdminAddPoints(ctx context.Context, caller Caller, req models.AdminAddPointsRequest) (*models.AddPointsResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.Points == 0 {
		return nil, NewError(codes.InvalidArgument, "User ID and points are required")
	}
	if req.Points < 0 {
		return nil, NewError(codes.InvalidArgument, "Points must be greater than 0")
	}
	if req.Points != math.Trunc(req.Points) || req.Points > math.MaxInt32 {
		return nil, NewError(codes.InvalidArgument, "Points must be an integer")
	}
	if err := requireAdmin(ctx, s.admins, caller, "Only admins can add points"); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "User not found")
		}
		return nil, Internal("Add points", err)
	}

	points := int(req.Points)
	description := strings.TrimSpace(req.Reason)
	if description == "" {
		description = "Admin bonus from " + caller.UID
	}
	now := s.now().UTC()
	balance, err := s.points.Apply(ctx, &models.PointTransaction{
		ID:          s.newID(),
		UserID:      userID,
		Points:      points,
		Activity:    models.ActivitySpecialEvent,
		Description: description,
		EarnedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, Internal("Add points", err)
	}

	s.logger.Info("Admin added points",
		zap.String("admin_id", caller.UID),
		zap.String("user_id", userID),
		zap.Int("points", points),
		zap.Int("new_balance", balance.TotalPoints))
	recordAudit(ctx, s.audit, s.logger, caller, ActionAdminAddPoints, "user", userID, map[string]interface{}{
		"points": points,
		"reason": description,
	})

	return &models.AddPointsResult{
		Success:     true,
		Message:     fmt.Sprintf("Successfully added %d points to user", points),
		NewBalance:  balance.TotalPoints,
		PointsAdded: points,
	}, nil
}
