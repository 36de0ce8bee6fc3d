package handlers

import (
	"clipwatch/notify"

	"github.com/go-chi/chi/v5"
)

func RegisterPageRoutes(r chi.Router, hub *notify.Hub) {
	r.Get("/pages", ListPagesHandler(hub))
	r.Get("/pages/ws", PageSocketHandler(hub))
}
