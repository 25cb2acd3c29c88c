package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jaeyoon0415/convgate/db"
	"github.com/jaeyoon0415/convgate/db/models"
)

// Caller-visible error classes. Anything not wrapping one of these is an
// internal failure; raw provider and store detail stays in the logs.
var (
	ErrAIUnavailable    = errors.New("ai service unavailable")
	ErrStoreUnavailable = errors.New("conversation store unavailable")
	ErrInvalidRequest   = errors.New("invalid request")
)

// TurnStore is the persistence surface the gateway needs from the store.
type TurnStore interface {
	FetchRecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]models.Turn, error)
	InsertTurn(ctx context.Context, userID, sessionID, prompt, response string) error
	ListTurns(ctx context.Context, userID, sessionID string) ([]models.Turn, error)
}

// TextGenerator produces a completion for an assembled prompt context.
type TextGenerator interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
}

// ConversationService orchestrates one request end-to-end: load recent
// history, assemble the context, call the provider once, persist the new
// turn. Store and generator may be nil when the corresponding capability was
// never configured; requests then fail fast with the unavailable class.
type ConversationService struct {
	store             TurnStore
	generator         TextGenerator
	historyLimit      int
	systemInstruction string
	logger            *zap.SugaredLogger
}

func NewConversationService(store TurnStore, generator TextGenerator, historyLimit int, systemInstruction string, logger *zap.SugaredLogger) *ConversationService {
	if historyLimit <= 0 {
		historyLimit = 5
	}

	return &ConversationService{
		store:             store,
		generator:         generator,
		historyLimit:      historyLimit,
		systemInstruction: systemInstruction,
		logger:            logger,
	}
}

// GenerateResponse answers one prompt for a (user, session) pair.
//
// Persistence is deliberately best-effort: once the provider has produced a
// response, an insert failure is logged and the text is still returned, so a
// storage hiccup never discards an answer the user already paid for.
func (s *ConversationService) GenerateResponse(ctx context.Context, userID, sessionID, prompt string) (string, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" || strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: user_id, session_id and prompt are required", ErrInvalidRequest)
	}

	if s.generator == nil {
		return "", fmt.Errorf("%w: generator is not configured", ErrAIUnavailable)
	}
	if s.store == nil {
		return "", fmt.Errorf("%w: store is not configured", ErrStoreUnavailable)
	}

	history, err := s.store.FetchRecentTurns(ctx, userID, sessionID, s.historyLimit)
	if err != nil {
		s.logger.Warnw("fetch recent turns failed", "user_id", userID, "session_id", sessionID, "error", err)
		if db.IsUnavailable(err) {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return "", fmt.Errorf("load history: %w", err)
	}

	messages := BuildContext(history, s.systemInstruction, prompt)

	text, err := s.generator.Generate(ctx, messages)
	if err != nil {
		s.logger.Warnw("generation failed", "user_id", userID, "session_id", sessionID, "error", err)
		return "", fmt.Errorf("generate response: %w", err)
	}

	// The caller is gone; recording a turn it never received would corrupt
	// the history, so abort before the insert.
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("request cancelled: %w", err)
	}

	if err := s.store.InsertTurn(ctx, userID, sessionID, prompt, text); err != nil {
		s.logger.Errorw("persist turn failed, response still returned",
			"user_id", userID, "session_id", sessionID, "error", err)
	}

	return text, nil
}

// History returns the full recorded conversation for the pair, oldest first.
func (s *ConversationService) History(ctx context.Context, userID, sessionID string) ([]models.Turn, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: user_id and session_id are required", ErrInvalidRequest)
	}

	if s.store == nil {
		return nil, fmt.Errorf("%w: store is not configured", ErrStoreUnavailable)
	}

	turns, err := s.store.ListTurns(ctx, userID, sessionID)
	if err != nil {
		s.logger.Warnw("list turns failed", "user_id", userID, "session_id", sessionID, "error", err)
		if db.IsUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("list turns: %w", err)
	}

	return turns, nil
}
