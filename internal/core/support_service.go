package core

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/notify"
)

// Mailer sends the support team notification mail.
type Mailer interface {
	Enabled() bool
	SendEmail(recipient, subject, body string) error
}

var supportCategories = map[string]bool{
	"general": true,
	"bug":     true,
	"feature": true,
	"account": true,
	"payment": true,
	"other":   true,
}

// SupportConfig holds the optional support mail settings.
type SupportConfig struct {
	NotifyEmail string
}

type supportService struct {
	requests  db.SupportRepository
	users     db.UserRepository
	directory Directory
	admins    AdminService
	giftCards GiftCardService
	mailer    Mailer
	sender    notify.Sender
	audit     AuditService
	cfg       SupportConfig
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewSupportService creates a SupportService. giftCards, mailer and sender are
// optional.
func NewSupportService(requests db.SupportRepository, users db.UserRepository, directory Directory, admins AdminService, giftCards GiftCardService, mailer Mailer, sender notify.Sender, audit AuditService, cfg SupportConfig, logger *zap.Logger) SupportService {
	return &supportService{
		requests:  requests,
		users:     users,
		directory: directory,
		admins:    admins,
		giftCards: giftCards,
		mailer:    mailer,
		sender:    sender,
		audit:     audit,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// identity resolves the name and email shown on a support request: Auth
// first, then the profile document, which wins when it has real values.
func (s *supportService) identity(ctx context.Context, caller Caller) (email, name string) {
	email, name = orDefault(caller.Email, "N/A"), orDefault(caller.Name, "N/A")
	if s.directory != nil {
		if u, err := s.directory.GetUser(ctx, caller.UID); err == nil {
			email, name = orDefault(u.Email, email), orDefault(u.DisplayName, name)
		} else {
			s.logger.Debug("Could not get user from Auth", zap.String("user_id", caller.UID), zap.Error(err))
		}
	}
	if u, err := s.users.GetByID(ctx, caller.UID); err == nil {
		email = orDefault(u.ContactEmail(), email)
		name = orDefault(u.ContactName(), name)
	}
	return email, name
}

func (s *supportService) Submit(ctx context.Context, caller Caller, req models.SubmitSupportRequest) (*models.SupportResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(subject) < 3 {
		return nil, NewError(codes.InvalidArgument, "Subject must be at least 3 characters")
	}
	if utf8.RuneCountInString(message) < 10 {
		return nil, NewError(codes.InvalidArgument, "Message must be at least 10 characters")
	}
	if !supportCategories[req.Category] {
		return nil, NewError(codes.InvalidArgument, "Invalid category")
	}

	email, name := s.identity(ctx, caller)
	now := s.now().UTC()
	request := &models.SupportRequest{
		UserID:    caller.UID,
		UserEmail: email,
		UserName:  name,
		Subject:   subject,
		Message:   message,
		Category:  req.Category,
		Status:    models.SupportPending,
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []models.SupportMessage{{
			ID:         s.newID(),
			SenderType: models.SenderUser,
			SenderID:   caller.UID,
			SenderName: name,
			Message:    message,
			CreatedAt:  now,
		}},
	}
	id, err := s.requests.Create(ctx, request)
	if err != nil {
		return nil, Internal("Submit support request", err)
	}
	request.ID = id
	s.logger.Info("Support request created",
		zap.String("request_id", id),
		zap.String("user_id", caller.UID),
		zap.String("category", req.Category))

	// Both follow-ups are best effort; the request is already stored.
	if s.giftCards != nil && IsGiftCardRequest(req.Category, subject, message) {
		s.redeemFromMessage(ctx, caller, message, id)
	}
	s.mailSupport(request)

	return &models.SupportResult{
		Success:   true,
		Message:   "Support request submitted successfully",
		RequestID: id,
	}, nil
}

func (s *supportService) redeemFromMessage(ctx context.Context, caller Caller, message, requestID string) {
	claim, ok := ParseGiftCardClaim(message)
	if !ok {
		s.logger.Info("Could not parse gift card info from message", zap.String("request_id", requestID))
		return
	}
	if _, err := s.giftCards.RedeemFromClaim(ctx, caller, claim, requestID); err != nil {
		s.logger.Warn("Failed to process gift card request from message",
			zap.String("request_id", requestID),
			zap.String("user_id", caller.UID),
			zap.Error(err))
	}
}

func (s *supportService) mailSupport(req *models.SupportRequest) {
	if s.mailer == nil || !s.mailer.Enabled() || s.cfg.NotifyEmail == "" {
		return
	}
	body := fmt.Sprintf("<p><b>%s</b> (%s)</p><p>Kategori: %s</p><p>%s</p><p>Talep: %s</p>",
		html.EscapeString(req.UserName),
		html.EscapeString(req.UserEmail),
		html.EscapeString(req.Category),
		html.EscapeString(req.Message),
		req.ID)
	if err := s.mailer.SendEmail(s.cfg.NotifyEmail, "Yeni destek talebi: "+req.Subject, body); err != nil {
		s.logger.Warn("Failed to send support mail", zap.String("request_id", req.ID), zap.Error(err))
	}
}

// AddMessage appends a message to a request. Without an explicit sender type
// admins post as admin. An admin message moves a pending request to in_progress
// and notifies the owner.
func (s *supportService) AddMessage(ctx context.Context, caller Caller, req models.AddSupportMessageRequest) (*models.SupportResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RequestID) == "" {
		return nil, NewError(codes.InvalidArgument, "Request ID is required")
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, NewError(codes.InvalidArgument, "Message cannot be empty")
	}

	isAdmin, err := s.admins.IsAdmin(ctx, caller.UID)
	if err != nil {
		s.logger.Warn("Could not check admin status", zap.String("user_id", caller.UID), zap.Error(err))
	}
	senderType := req.SenderType
	if senderType == "" {
		senderType = models.SenderUser
		if isAdmin {
			senderType = models.SenderAdmin
		}
	}
	if senderType == models.SenderAdmin && !isAdmin {
		return nil, NewError(codes.PermissionDenied, "Only admins can send admin messages")
	}

	senderName := "Admin"
	if senderType == models.SenderAdmin {
		senderName = orDefault(caller.Name, orDefault(caller.Email, "Admin"))
	}

	msg := models.SupportMessage{
		ID:         s.newID(),
		SenderType: senderType,
		SenderID:   caller.UID,
		Message:    text,
		CreatedAt:  s.now().UTC(),
	}
	updated, err := s.requests.Update(ctx, req.RequestID, func(r *models.SupportRequest) error {
		msg.SenderName = senderName
		if senderType == models.SenderUser {
			if r.UserID != caller.UID {
				return NewError(codes.PermissionDenied, "Users can only message their own support requests")
			}
			msg.SenderName = orDefault(r.UserName, "User")
		}
		r.Messages = append(r.Messages, msg)
		r.UpdatedAt = msg.CreatedAt
		if senderType == models.SenderAdmin && r.Status == models.SupportPending {
			r.Status = models.SupportInProgress
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "Support request not found")
		}
		return nil, AsError("Add message", err)
	}
	s.logger.Info("Support message added",
		zap.String("request_id", updated.ID),
		zap.String("sender_type", senderType),
		zap.String("sender_id", caller.UID))

	if senderType == models.SenderAdmin {
		s.notifyOwner(ctx, updated)
	}
	return &models.SupportResult{
		Success:   true,
		Message:   "Message added successfully",
		RequestID: updated.ID,
		MessageID: msg.ID,
		Status:    updated.Status,
	}, nil
}

func (s *supportService) notifyOwner(ctx context.Context, req *models.SupportRequest) {
	if s.sender == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, req.UserID)
	if err != nil || owner.PushToken() == "" {
		return
	}
	if _, err := s.sender.Send(ctx, notify.SupportReply(owner.PushToken(), req.ID, req.Subject)); err != nil {
		s.logger.Warn("Failed to notify support request owner", zap.String("request_id", req.ID), zap.Error(err))
	}
}

// UpdateStatus moves a request forward through its lifecycle.
func (s *supportService) UpdateStatus(ctx context.Context, caller Caller, req models.UpdateSupportStatusRequest) (*models.SupportResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RequestID) == "" {
		return nil, NewError(codes.InvalidArgument, "Request ID is required")
	}
	if !models.ValidSupportStatus(req.Status) {
		return nil, NewError(codes.InvalidArgument, "Invalid status")
	}
	if err := requireAdmin(ctx, s.admins, caller, "Only admins can update support requests"); err != nil {
		return nil, err
	}

	var from string
	updated, err := s.requests.Update(ctx, req.RequestID, func(r *models.SupportRequest) error {
		from = r.Status
		if !models.CanTransition(r.Status, req.Status) {
			return Errorf(codes.FailedPrecondition, "Cannot change status from %s to %s", r.Status, req.Status)
		}
		now := s.now().UTC()
		r.Status = req.Status
		r.UpdatedAt = now
		if req.Status == models.SupportResolved {
			r.ResolvedAt = &now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "Support request not found")
		}
		return nil, AsError("Update support status", err)
	}
	recordAudit(ctx, s.audit, s.logger, caller, ActionSupportStatus, "support_request", updated.ID, map[string]interface{}{
		"from": from,
		"to":   updated.Status,
	})
	s.logger.Info("Support request status changed",
		zap.String("request_id", updated.ID),
		zap.String("from", from),
		zap.String("to", updated.Status))

	return &models.SupportResult{
		Success:   true,
		Message:   "Status updated",
		RequestID: updated.ID,
		Status:    updated.Status,
	}, nil
}
