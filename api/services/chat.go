package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/scsonic/nexavatar/api/brand"
	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/store"
)

// MaxQuestionLength is the longest user message accepted, in runes.
const MaxQuestionLength = 1000

// User-facing reply strings for rejected or failed requests.
const (
	MsgEmptyQuestion   = "請提供有效的問題"
	MsgQuestionTooLong = "輸入太長了，請縮短您的問題"
	MsgNoResponse      = "抱歉，我暫時無法回應您的問題，請稍後再試"
	MsgLLMFailure      = "抱歉，處理您的問題時遇到了技術問題，請稍後再試"
)

// Models lists the selectable chat models.
var Models = map[string]string{
	"gemma-3-27b-it": "Gemma 3 27B (推薦)",
	"gemma-3-9b-it":  "Gemma 3 9B (較快)",
	"gemma-3-2b-it":  "Gemma 3 2B (最快)",
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type chatStore interface {
	InsertChatLog(ctx context.Context, log *domain.ChatLog) error
}

// ChatRequest is one user question with its surrounding context.
type ChatRequest struct {
	Message    string
	Model      string
	BrandID    string
	SessionID  string
	AccessCode string
	IPAddress  string
	UserAgent  string
}

// ChatResult is the assistant's reply. OriginalLength counts the reply
// in runes; replies are never truncated.
type ChatResult struct {
	Response       string `json:"response"`
	OriginalLength int    `json:"original_length"`
	Truncated      bool   `json:"truncated"`
}

func result(response string) *ChatResult {
	return &ChatResult{Response: response, OriginalLength: utf8.RuneCountInString(response)}
}

// ChatService answers user questions with the brand's persona.
type ChatService struct {
	llm       chatCompleter
	store     chatStore
	brands    *brand.Registry
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(llm chatCompleter, s chatStore, brands *brand.Registry, model string, maxTokens int, logger *slog.Logger) *ChatService {
	if model == "" {
		model = "gemma-3-27b-it"
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ChatService{llm: llm, store: s, brands: brands, model: model, maxTokens: maxTokens, logger: logger}
}

// DefaultModel returns the model used when a request names none.
func (svc *ChatService) DefaultModel() string {
	return svc.model
}

// Reply validates the question, asks the model with the brand's system
// prompt, and records the exchange. Validation rejects and LLM failures
// come back as friendly replies, not errors.
func (svc *ChatService) Reply(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return result(MsgEmptyQuestion), nil
	}
	if utf8.RuneCountInString(message) > MaxQuestionLength {
		return result(MsgQuestionTooLong), nil
	}

	model := req.Model
	if _, ok := Models[model]; !ok {
		model = svc.model
	}
	b := svc.brands.Get(req.BrandID)

	resp, err := svc.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: svc.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})

	var answer string
	switch {
	case err != nil:
		svc.logger.Error("chat completion failed", "error", err, "brand", b.ID, "model", model)
		answer = MsgLLMFailure
	case len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "":
		answer = MsgNoResponse
	default:
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	svc.record(ctx, req, b.ID, message, answer)

	return result(answer), nil
}

func (svc *ChatService) record(ctx context.Context, req ChatRequest, brandID, question, answer string) {
	log := &domain.ChatLog{
		ID:          store.NewChatLogID(),
		SessionID:   req.SessionID,
		AccessCode:  req.AccessCode,
		UserMessage: question,
		BotResponse: answer,
		Brand:       brandID,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}
	if err := svc.store.InsertChatLog(ctx, log); err != nil {
		svc.logger.Error("failed to record chat log", "error", err, "session_id", req.SessionID)
	}
}
