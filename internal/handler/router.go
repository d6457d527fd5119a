package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mirrorchat/gemini-bridge/internal/handler/chat"
	middlewarePkg "github.com/mirrorchat/gemini-bridge/internal/middleware"
	"github.com/mirrorchat/gemini-bridge/pkg/utils"
)

// NewRouter wires HTTP routes to the bridge service.
func NewRouter(svc chat.Asker) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(svc)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Gemini bridge is running",
		})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
	})

	return r
}
