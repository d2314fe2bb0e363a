package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/vidrag"
	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/ai/mock"
	"github.com/poiesic/vidrag/config"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/qa"
	"github.com/poiesic/vidrag/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcript = "Goroutines are lightweight threads managed by the Go runtime. " +
	"Channels let goroutines communicate by sending typed values."

func setupHandler(t *testing.T, gen *mock.MockGenerator) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""

	if gen == nil {
		gen = mock.NewMockGenerator()
	}
	app, err := vidrag.Open(cfg, vidrag.WithProvider(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen)))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	h, err := NewHandler(app)
	require.NoError(t, err)
	return h.Routes()
}

func do(t *testing.T, handler http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func ingest(t *testing.T, handler http.Handler, title string) SessionResponse {
	t.Helper()
	body := fmt.Sprintf(`{"title": %q, "transcript": %q, "metadata": {"uploader": "gopher"}}`, title, transcript)
	w := do(t, handler, http.MethodPost, "/api/videos", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SessionResponse](t, w)
}

func TestNewHandler(t *testing.T) {
	_, err := NewHandler(nil)
	assert.Equal(t, ErrAppRequired, err)
}

func TestHealth(t *testing.T) {
	w := do(t, setupHandler(t, nil), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestVideos(t *testing.T) {
	handler := setupHandler(t, nil)

	session := ingest(t, handler, "Go Routines!")
	assert.Equal(t, "go_routines", session.Namespace)
	assert.Positive(t, session.ChunkCount)

	w := do(t, handler, http.MethodGet, "/api/videos", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]VideoSummary](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Go Routines!", list[0].Title)
	assert.Equal(t, "gopher", list[0].Metadata.Uploader)

	w = do(t, handler, http.MethodGet, "/api/videos/GO_ROUTINES", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ChunkCount, decode[SessionResponse](t, w).ChunkCount)

	w = do(t, handler, http.MethodDelete, "/api/videos/go_routines", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, handler, http.MethodGet, "/api/videos/go_routines", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngest_BadRequests(t *testing.T) {
	handler := setupHandler(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title": `},
		{"missing title", `{"transcript": "text"}`},
		{"blank transcript", `{"title": "t", "transcript": "  "}`},
		{"title without namespace characters", `{"title": "!!!", "transcript": "text"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, handler, http.MethodPost, "/api/videos", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decode[errorBody](t, w)
			assert.Equal(t, "invalid_request_error", body.Error.Type)
		})
	}
}

func TestSummaryKeywordsQuiz(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
		if prompt.JSON {
			return `{"questions": [{"question": "Who manages goroutines?", "options": ["kernel", "runtime", "compiler", "linker"], "correct": "B"}]}`, nil
		}
		return "A short talk about goroutines.", nil
	}
	handler := setupHandler(t, gen)
	ingest(t, handler, "Go Talk")

	w := do(t, handler, http.MethodGet, "/api/videos/go_talk/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A short talk about goroutines.", decode[map[string]string](t, w)["summary"])

	w = do(t, handler, http.MethodGet, "/api/videos/go_talk/keywords?n=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = do(t, handler, http.MethodGet, "/api/videos/go_talk/quiz?n=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[quiz.Result](t, w)
	require.Len(t, result.Questions, 1)
	assert.Equal(t, "runtime", result.Questions[0].CorrectOption())

	w = do(t, handler, http.MethodGet, "/api/videos/go_talk/quiz?n=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, handler, http.MethodGet, "/api/videos/unknown/summary", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGrade(t *testing.T) {
	handler := setupHandler(t, nil)

	body := `{"questions": [{"question": "Q", "options": ["a", "b", "c", "d"], "correct": "C"}], "answers": ["c"]}`
	w := do(t, handler, http.MethodPost, "/api/quiz/grade", body)
	require.Equal(t, http.StatusOK, w.Code)
	score := decode[quiz.Score](t, w)
	assert.Equal(t, 1, score.Correct)
	assert.Equal(t, 1, score.Total)
}

func TestConversation(t *testing.T) {
	gen := mock.NewMockGeneratorWithReplies("first answer", "second answer")
	handler := setupHandler(t, gen)
	ingest(t, handler, "Go Talk")

	w := do(t, handler, http.MethodPost, "/api/videos/go_talk/conversations", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decode[ConversationResponse](t, w)
	require.NotEmpty(t, conv.ID)
	assert.Equal(t, "go_talk", conv.Namespace)

	w = do(t, handler, http.MethodPost, "/api/conversations/"+conv.ID+"/questions", `{"question": "What are goroutines?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "first answer", decode[AnswerResponse](t, w).Answer)

	w = do(t, handler, http.MethodPost, "/api/conversations/"+conv.ID+"/questions", `{"question": "And channels?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	prompt, _ := gen.LastPrompt()
	require.Len(t, prompt.History, 1)
	assert.Equal(t, "What are goroutines?", prompt.History[0].Question)

	w = do(t, handler, http.MethodGet, "/api/conversations/"+conv.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ConversationResponse](t, w).History, 2)

	w = do(t, handler, http.MethodPost, "/api/conversations/"+conv.ID+"/questions", `{"question": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, handler, http.MethodDelete, "/api/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, handler, http.MethodPost, "/api/conversations/"+conv.ID+"/questions", `{"question": "Still there?"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, handler, http.MethodDelete, "/api/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, handler, http.MethodPost, "/api/videos/unknown/conversations", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversation_ConcurrentQuestionsKeepWindow(t *testing.T) {
	handler := setupHandler(t, nil)
	ingest(t, handler, "Go Talk")

	w := do(t, handler, http.MethodPost, "/api/videos/go_talk/conversations", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[ConversationResponse](t, w).ID

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"question": "question %d"}`, i)
			req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+id+"/questions", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	w = do(t, handler, http.MethodGet, "/api/conversations/"+id, "")
	assert.Len(t, decode[ConversationResponse](t, w).History, qa.DefaultWindow)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("x: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", core.ErrConfiguration), http.StatusBadRequest},
		{fmt.Errorf("x: %w", core.ErrExternalService), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := statusOf(tt.err)
		assert.Equal(t, tt.code, code, "%v", tt.err)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: setupHandler(t, nil)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
