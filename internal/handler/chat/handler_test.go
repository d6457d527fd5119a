package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mirrorchat/gemini-bridge/internal/model/chat"
)

type stubAsker struct {
	result  chat.Result
	lastReq *chat.Request
}

func (s *stubAsker) Ask(_ context.Context, req chat.Request) chat.Result {
	s.lastReq = &req
	return s.result
}

func setupRouter(result chat.Result) (*chi.Mux, *stubAsker) {
	stub := &stubAsker{result: result}
	handler := New(stub)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, stub
}

func TestAskPostSuccess(t *testing.T) {
	r, stub := setupRouter(chat.Result{
		Success:  true,
		Response: "hello back",
		Metadata: &chat.Metadata{Model: "gemini"},
	})

	payload, _ := json.Marshal(map[string]string{"prompt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result chat.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !result.Success || result.Response != "hello back" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Prompt != "hello" {
		t.Fatalf("response does not echo the prompt: %+v", result)
	}
	if stub.lastReq == nil || stub.lastReq.Prompt != "hello" {
		t.Fatalf("service received %+v", stub.lastReq)
	}
}

func TestAskGetQueryParameter(t *testing.T) {
	r, stub := setupRouter(chat.Result{Success: true, Response: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/ask?prompt=hi", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if stub.lastReq == nil || stub.lastReq.Prompt != "hi" {
		t.Fatalf("service received %+v", stub.lastReq)
	}
}

func TestAskMissingPrompt(t *testing.T) {
	r, stub := setupRouter(chat.Result{Success: true})

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.lastReq != nil {
		t.Fatal("service must not be called without a prompt")
	}

	var result chat.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Success || result.Error != "Missing required parameter: prompt" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Prompt != "" {
		t.Fatalf("rejected request must not echo a prompt: %+v", result)
	}
}

func TestAskWhitespacePrompt(t *testing.T) {
	r, stub := setupRouter(chat.Result{Success: true})

	payload, _ := json.Marshal(map[string]string{"prompt": "   \n\t "})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.lastReq != nil {
		t.Fatal("service must not be called for a whitespace-only prompt")
	}
}

func TestAskInvalidBody(t *testing.T) {
	r, _ := setupRouter(chat.Result{Success: true})

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(`{not json`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAskFailureMapsTo500(t *testing.T) {
	r, _ := setupRouter(chat.Result{Success: false, Error: "HTTP 503"})

	payload, _ := json.Marshal(map[string]string{"prompt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	var result chat.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Success || result.Error != "HTTP 503" {
		t.Fatalf("unexpected result %+v", result)
	}
	// The prompt is echoed on failed bridge attempts too.
	if result.Prompt != "hello" {
		t.Fatalf("failed result does not echo the prompt: %+v", result)
	}
}

func TestAskUndecodableImageIsIgnored(t *testing.T) {
	r, stub := setupRouter(chat.Result{Success: true, Response: "ok"})

	payload, _ := json.Marshal(map[string]string{"prompt": "hello", "image": "%%% not base64 %%%"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if stub.lastReq == nil || stub.lastReq.Image != nil {
		t.Fatalf("bad image must degrade to text-only, got %+v", stub.lastReq)
	}
}
