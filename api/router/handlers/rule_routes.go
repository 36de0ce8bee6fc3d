package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterRuleRoutes(r chi.Router) {
	r.Route("/rules", func(r chi.Router) {
		r.Get("/", GetRulesHandler)
		r.Post("/", AddRuleHandler)
		r.Put("/", ReplaceRulesHandler)

		r.Route("/{ruleID}", func(r chi.Router) {
			r.Get("/", GetRuleHandler)
			r.Put("/", UpdateRuleHandler)
			r.Delete("/", DeleteRuleHandler)
			r.Post("/toggle", ToggleRuleHandler)
			r.Post("/move", MoveRuleHandler)
		})
	})
}
