// Package ai wraps the hosted generative model behind a small interface used
// by the chat and task services.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"qanta-backend-go/internal/models"
)

// Profile mirrors prompt.Profile without importing it.
type Profile struct {
	Temperature     float32
	TopK            int32
	TopP            float32
	MaxOutputTokens int32
}

// ChatRequest is one assistant turn.
type ChatRequest struct {
	System  string
	Priming string
	History []models.ChatTurn
	Message string
	// Hint is sent as an extra text part after Message.
	Hint       string
	Attachment *Attachment
	Profile    Profile
}

// Reply is the model's text answer plus token accounting.
type Reply struct {
	Text  string
	Model string
	Usage models.TokenUsage
}

// Generator is implemented by Client; services depend on this interface.
type Generator interface {
	Chat(ctx context.Context, req ChatRequest) (*Reply, error)
	Generate(ctx context.Context, prompt string) (*Reply, error)
}

// Config selects models and call behaviour.
type Config struct {
	APIKey      string
	TextModel   string
	VisionModel string
	Timeout     time.Duration
	Retry       RetryConfig
}

// Client talks to the Gemini API.
type Client struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a Gemini client. The key is required.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash-lite"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gemini-2.0-flash-exp"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: c, cfg: cfg, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Chat sends a conversation turn. The system prompt and the priming answer
// open the history; attachments switch to the vision model.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Reply, error) {
	name := c.cfg.TextModel
	if req.Attachment != nil {
		name = c.cfg.VisionModel
	}
	model := c.client.GenerativeModel(name)
	model.SetTemperature(req.Profile.Temperature)
	model.SetTopK(req.Profile.TopK)
	model.SetTopP(req.Profile.TopP)
	model.SetMaxOutputTokens(req.Profile.MaxOutputTokens)
	model.ResponseMIMEType = "text/plain"

	history := buildHistory(req)

	parts := make([]genai.Part, 0, 3)
	if a := Downscale(req.Attachment); a != nil {
		parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
	}
	parts = append(parts, genai.Text(req.Message))
	if req.Hint != "" {
		parts = append(parts, genai.Text(req.Hint))
	}

	c.logger.Debug("Sending chat to model",
		zap.String("model", name),
		zap.Int("history", len(history)),
		zap.Bool("attachment", req.Attachment != nil))

	resp, err := c.call(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		// A failed SendMessage leaves the user turn in History, so every
		// attempt gets a fresh session.
		cs := model.StartChat()
		cs.History = append([]*genai.Content(nil), history...)
		return cs.SendMessage(ctx, parts...)
	})
	if err != nil {
		return nil, err
	}
	return toReply(name, resp)
}

// Generate runs a single-shot text prompt on the text model.
func (c *Client) Generate(ctx context.Context, prompt string) (*Reply, error) {
	model := c.client.GenerativeModel(c.cfg.TextModel)
	resp, err := c.call(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return model.GenerateContent(ctx, genai.Text(prompt))
	})
	if err != nil {
		return nil, err
	}
	return toReply(c.cfg.TextModel, resp)
}

func (c *Client) call(ctx context.Context, fn func(context.Context) (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return withRetry(ctx, c.cfg.Retry, c.logger, fn)
}

func buildHistory(req ChatRequest) []*genai.Content {
	history := make([]*genai.Content, 0, len(req.History)+2)
	history = append(history,
		&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(req.System)}},
		&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(req.Priming)}},
	)
	for _, turn := range req.History {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		history = append(history, &genai.Content{
			Role:  normalizeRole(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return history
}

func normalizeRole(role string) string {
	switch strings.ToLower(role) {
	case "model", "assistant", "ai":
		return "model"
	default:
		return "user"
	}
}

func toReply(model string, resp *genai.GenerateContentResponse) (*Reply, error) {
	text := responseText(resp)
	if text == "" {
		return nil, &Error{Category: CategoryUnknown, Message: "empty response from model"}
	}
	r := &Reply{Text: text, Model: model}
	if u := resp.UsageMetadata; u != nil {
		r.Usage = models.TokenUsage{
			PromptTokenCount:     u.PromptTokenCount,
			CandidatesTokenCount: u.CandidatesTokenCount,
			TotalTokenCount:      u.TotalTokenCount,
		}
	}
	return r, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
