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

// Legacy tally types of the task endpoints.
const (
	usageTypeSummary    = "summary"
	usageTypeBulkDelete = "bulk_delete"
)

// QuickAddResult is the response of parseQuickAddText.
type QuickAddResult struct {
	Success bool `json:"success"`
	reply.QuickAdd
}

type taskService struct {
	quota         QuotaService
	catalog       *prompt.Catalog
	model         ai.Generator
	defaultOffset string
	logger        *zap.Logger
	now           func() time.Time
}

// NewTaskService creates a TaskService.
func NewTaskService(q QuotaService, catalog *prompt.Catalog, model ai.Generator, defaultOffset string, logger *zap.Logger) TaskService {
	return &taskService{
		quota:         q,
		catalog:       catalog,
		model:         model,
		defaultOffset: defaultOffset,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *taskService) offset(o string) string {
	if o == "" {
		return s.defaultOffset
	}
	return o
}

// Categorize never fails once the input is valid: quota errors, model errors
// and unparsable answers all yield the keyword-based fallback.
func (s *taskService) Categorize(ctx context.Context, caller Caller, req models.CategorizeRequest) (*models.CategorizeResponse, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, NewError(codes.InvalidArgument, "Geçerli bir açıklama gerekli")
	}

	res, err := s.categorize(ctx, caller, description, req)
	if err != nil {
		s.logger.Warn("Categorization fell back to keywords", zap.String("user_id", caller.UID), zap.Error(err))
		fb := reply.FallbackCategorization(description)
		return &models.CategorizeResponse{
			Success:      true,
			CategoryID:   fb.CategoryID,
			CategoryName: fb.CategoryName,
			CategoryIcon: fb.CategoryIcon,
			Confidence:   fb.Confidence,
			Reasoning:    fb.Reasoning,
			IsFallback:   true,
			Error:        errorMessage(err),
		}, nil
	}
	return res, nil
}

func (s *taskService) categorize(ctx context.Context, caller Caller, description string, req models.CategorizeRequest) (*models.CategorizeResponse, error) {
	offset := s.offset(req.UserTimezone)
	preview, err := s.quota.CheckDailyLimit(ctx, caller, quota.RequestChat, offset, "")
	if err != nil {
		return nil, err
	}
	p, err := s.catalog.CategorizePrompt(description, req.AvailableCategories)
	if err != nil {
		return nil, err
	}
	answer, err := s.model.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	c := reply.ParseCategorization(answer.Text)
	chargeCompleted(ctx, s.quota, s.logger, caller, offset, "", preview, "", quota.RequestChat)
	return &models.CategorizeResponse{
		Success:      true,
		CategoryID:   c.CategoryID,
		CategoryName: c.CategoryName,
		CategoryIcon: c.CategoryIcon,
		Confidence:   c.Confidence,
		Reasoning:    c.Reasoning,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
	}, nil
}

// QuickAdd has no fallback: every failure is reported as internal.
func (s *taskService) QuickAdd(ctx context.Context, caller Caller, req models.QuickAddRequest) (*QuickAddResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, NewError(codes.InvalidArgument, "Text is required")
	}
	offset := s.offset(req.UserTimezone)

	out, err := func() (*QuickAddResult, error) {
		preview, err := s.quota.CheckDailyLimit(ctx, caller, quota.RequestChat, offset, "")
		if err != nil {
			return nil, err
		}
		p, err := s.catalog.QuickAddPrompt(text)
		if err != nil {
			return nil, err
		}
		answer, err := s.model.Generate(ctx, p)
		if err != nil {
			return nil, err
		}
		parsed := reply.ParseQuickAdd(answer.Text, quota.LocalTime(s.now(), offset))
		chargeCompleted(ctx, s.quota, s.logger, caller, offset, "", preview, "", quota.RequestChat)
		return &QuickAddResult{Success: true, QuickAdd: parsed}, nil
	}()
	if err != nil {
		s.logger.Error("Quick add parsing failed", zap.String("user_id", caller.UID), zap.Error(err))
		return nil, Internal("AI parsing", errorCause(err))
	}
	return out, nil
}

// Summary re-throws quota errors unchanged; other failures become internal.
func (s *taskService) Summary(ctx context.Context, caller Caller, req models.SummaryRequest) (*models.SummaryResponse, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if req.FinancialData == nil {
		return nil, NewError(codes.InvalidArgument, "Financial data is required")
	}
	offset := s.offset(req.UserTimezone)

	out, err := func() (*models.SummaryResponse, error) {
		preview, err := s.quota.CheckDailyLimit(ctx, caller, quota.RequestChat, offset, "")
		if err != nil {
			return nil, err
		}
		p, err := s.catalog.SummaryPrompt(*req.FinancialData, req.Period, req.Currency)
		if err != nil {
			return nil, err
		}
		answer, err := s.model.Generate(ctx, p)
		if err != nil {
			return nil, err
		}
		usage := chargeCompleted(ctx, s.quota, s.logger, caller, offset, "", preview, usageTypeSummary, quota.RequestChat)
		usage.Daily = nil
		return &models.SummaryResponse{Success: true, Summary: strings.TrimSpace(answer.Text), Usage: usage}, nil
	}()
	if err != nil {
		if CodeOf(err) == codes.ResourceExhausted {
			return nil, err
		}
		s.logger.Error("AI summary failed", zap.String("user_id", caller.UID), zap.Error(err))
		return nil, Internal("AI summary", errorCause(err))
	}
	return out, nil
}

// errorMessage is the client-facing text of err.
func errorMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	return err.Error()
}

// errorCause strips the code prefix of an *Error so that wrapping it as
// internal does not repeat the code.
func errorCause(err error) error {
	if e, ok := err.(*Error); ok && e.Err == nil {
		return errorString(e.Message)
	}
	return err
}

type errorString string

func (e errorString) Error() string { return string(e) }
