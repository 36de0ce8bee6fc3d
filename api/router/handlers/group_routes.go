package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterGroupRoutes(r chi.Router) {
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", GetGroupsHandler)
		r.Post("/", AddGroupHandler)
		r.Put("/{groupID}", UpdateGroupHandler)
		r.Delete("/{groupID}", DeleteGroupHandler)
	})
}
