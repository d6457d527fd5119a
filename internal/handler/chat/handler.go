package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mirrorchat/gemini-bridge/internal/model/chat"
	"github.com/mirrorchat/gemini-bridge/pkg/utils"
)

// Asker is the bridge surface the handler depends on.
type Asker interface {
	Ask(ctx context.Context, req chat.Request) chat.Result
}

// Handler exposes the chat bridge over HTTP.
type Handler struct {
	svc Asker
}

// New creates the chat handler.
func New(svc Asker) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the ask endpoint. GET carries the prompt as a query
// parameter (text-only); POST additionally accepts an image.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ask", h.handleAsk)
	r.Post("/ask", h.handleAsk)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var prompt, image string

	if r.Method == http.MethodPost {
		var payload struct {
			Prompt string `json:"prompt"`
			Image  string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		prompt = payload.Prompt
		image = payload.Image
	} else {
		prompt = r.URL.Query().Get("prompt")
	}

	if prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing required parameter: prompt")
		return
	}
	// Rejected here, before any network call happens downstream.
	if strings.TrimSpace(prompt) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Prompt cannot be empty")
		return
	}

	req := chat.Request{Prompt: prompt}
	if image != "" {
		attachment, err := chat.DecodeImage(image)
		if err != nil {
			// Image problems never fail the chat attempt.
			log.Printf("[chat] ignoring undecodable image payload: %v", err)
		} else {
			req.Image = attachment
		}
	}

	result := h.svc.Ask(r.Context(), req)
	result.Prompt = prompt

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	utils.RespondJSON(w, status, result)
}
