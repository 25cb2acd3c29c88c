package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jaeyoon0415/convgate/db/models"
	"github.com/jaeyoon0415/convgate/services"
)

type stubStore struct {
	turns     []models.Turn
	fetchErr  error
	insertErr error
}

func (s *stubStore) FetchRecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]models.Turn, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.turns, nil
}

func (s *stubStore) InsertTurn(ctx context.Context, userID, sessionID, prompt, response string) error {
	return s.insertErr
}

func (s *stubStore) ListTurns(ctx context.Context, userID, sessionID string) ([]models.Turn, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.turns, nil
}

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(ctx context.Context, messages []services.ChatMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func setupTestRouter(t *testing.T, store services.TurnStore, generator services.TextGenerator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop().Sugar()
	conversations := services.NewConversationService(store, generator, 5, "sys", logger)

	router := gin.New()
	NewChatHandler(conversations, logger).RegisterRoutes(router)

	return router
}

func postGenerate(t *testing.T, router *gin.Engine, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/generate_ai_response", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleGenerateSuccess(t *testing.T) {
	router := setupTestRouter(t, &stubStore{}, &stubGenerator{text: "Hi there"})

	rec := postGenerate(t, router, map[string]string{
		"user_id":    "u1",
		"session_id": "s1",
		"prompt":     "Hello",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["response"] != "Hi there" {
		t.Fatalf("expected response 'Hi there', got %q", resp["response"])
	}
}

func TestHandleGenerateMissingFields(t *testing.T) {
	router := setupTestRouter(t, &stubStore{}, &stubGenerator{text: "x"})

	rec := postGenerate(t, router, map[string]string{
		"user_id": "u1",
		"prompt":  "Hello",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleGenerateAIUnavailable(t *testing.T) {
	router := setupTestRouter(t, &stubStore{}, nil)

	rec := postGenerate(t, router, map[string]string{
		"user_id":    "u1",
		"session_id": "s1",
		"prompt":     "Hello",
	})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleGenerateStoreUnavailable(t *testing.T) {
	store := &stubStore{fetchErr: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	router := setupTestRouter(t, store, &stubGenerator{text: "x"})

	rec := postGenerate(t, router, map[string]string{
		"user_id":    "u1",
		"session_id": "s1",
		"prompt":     "Hello",
	})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleGenerateInternalError(t *testing.T) {
	router := setupTestRouter(t, &stubStore{}, &stubGenerator{err: errors.New("upstream exploded")})

	rec := postGenerate(t, router, map[string]string{
		"user_id":    "u1",
		"session_id": "s1",
		"prompt":     "Hello",
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	if bytes.Contains(rec.Body.Bytes(), []byte("exploded")) {
		t.Fatalf("provider error detail leaked to caller: %s", rec.Body.String())
	}
}

func TestHandleConversations(t *testing.T) {
	store := &stubStore{turns: []models.Turn{
		{ID: "t1", Prompt: "p1", Response: "r1"},
		{ID: "t2", Prompt: "p2", Response: "r2"},
	}}
	router := setupTestRouter(t, store, nil)

	req, err := http.NewRequest(http.MethodGet, "/conversations?user_id=u1&session_id=s1", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Turns []map[string]string `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(resp.Turns))
	}
	if resp.Turns[0]["prompt"] != "p1" || resp.Turns[1]["prompt"] != "p2" {
		t.Fatalf("turns out of order: %+v", resp.Turns)
	}
}

func TestHandleConversationsMissingQuery(t *testing.T) {
	router := setupTestRouter(t, &stubStore{}, nil)

	req, err := http.NewRequest(http.MethodGet, "/conversations?user_id=u1", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
