package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterTestMatchRoutes(r chi.Router, runner DryRunner) {
	r.Post("/test-match", TestMatchHandler(runner))
}
