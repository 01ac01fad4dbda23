package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// RetryConfig controls how often a failed model call is repeated.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    1 * time.Second,
	MaxDelay:        8 * time.Second,
	BackoffMultiple: 2.0,
}

// Error categories.
const (
	CategoryBadRequest   = "bad_request"
	CategoryUnauthorized = "unauthorized"
	CategoryForbidden    = "forbidden"
	CategoryNotFound     = "not_found"
	CategoryTooLarge     = "payload_too_large"
	CategoryRateLimit    = "rate_limit"
	CategoryServer       = "server_error"
	CategoryTimeout      = "timeout"
	CategoryCanceled     = "canceled"
	CategoryQuota        = "quota_exceeded"
	CategoryNetwork      = "network_error"
	CategoryBlocked      = "blocked"
	CategoryUnknown      = "unknown"
)

// Error is a categorized model call failure.
type Error struct {
	Category   string
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Categorize classifies err. A nil error yields nil.
func Categorize(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	e := &Error{Category: CategoryUnknown, Message: err.Error(), Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		e.StatusCode = apiErr.Code
		switch apiErr.Code {
		case http.StatusBadRequest:
			e.Category, e.Message = CategoryBadRequest, "invalid request format or parameters"
		case http.StatusUnauthorized:
			e.Category, e.Message = CategoryUnauthorized, "invalid API key or authentication failed"
		case http.StatusForbidden:
			e.Category, e.Message = CategoryForbidden, "API key lacks required permissions"
		case http.StatusNotFound:
			e.Category, e.Message = CategoryNotFound, "model not found"
		case http.StatusRequestEntityTooLarge:
			e.Category, e.Message = CategoryTooLarge, "request size exceeds limit"
		case http.StatusTooManyRequests:
			e.Category, e.Message, e.Retryable = CategoryRateLimit, "rate limit exceeded", true
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			e.Category, e.Message, e.Retryable = CategoryServer, fmt.Sprintf("model server error (%d)", apiErr.Code), true
		default:
			e.Message = apiErr.Message
			e.Retryable = apiErr.Code >= 500
		}
		return e
	}

	var blocked *genai.BlockedError
	switch {
	case errors.As(err, &blocked):
		e.Category, e.Message = CategoryBlocked, "response blocked by safety filters"
		return e
	case errors.Is(err, context.DeadlineExceeded):
		e.Category, e.Message, e.Retryable = CategoryTimeout, "request timeout", true
		return e
	case errors.Is(err, context.Canceled):
		e.Category, e.Message = CategoryCanceled, "request was canceled"
		return e
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		e.Category = CategoryQuota
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		e.Category, e.Retryable = CategoryTimeout, true
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		e.Category, e.Retryable = CategoryNetwork, true
	}
	return e
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiple, float64(attempt-1))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

// withRetry runs call until it succeeds, fails with a non-retryable error or
// runs out of attempts. Rate-limit failures wait twice the backoff.
func withRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, call func(context.Context) (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last *Error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := call(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("Model call succeeded after retry", zap.Int("attempt", attempt))
			}
			return resp, nil
		}
		last = Categorize(err)
		logger.Warn("Model call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("category", last.Category),
			zap.Error(err))
		if !last.Retryable || attempt == attempts {
			break
		}
		delay := backoff(attempt, cfg)
		if last.Category == CategoryRateLimit {
			delay *= 2
		}
		select {
		case <-ctx.Done():
			return nil, Categorize(ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, last
}
