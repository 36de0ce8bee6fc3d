package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterHistoryRoutes(r chi.Router) {
	r.Get("/history", GetHistoryHandler)
	r.Delete("/history", ClearHistoryHandler)
}
