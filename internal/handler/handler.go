package handler

import (
	"net/http"
)

// Handler carries cross-cutting HTTP concerns (CORS, health).
type Handler struct {
	frontendURL string
}

func New(frontendURL string) *Handler {
	return &Handler{frontendURL: frontendURL}
}

// CORS allows the configured frontend origin to call the API from a browser.
func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.frontendURL)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
