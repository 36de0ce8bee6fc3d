package handlers

import (
	"clipwatch/logger"
	"clipwatch/models"
	"clipwatch/notify"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// pageEvent is what a page client reports over its socket.
type pageEvent struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

func ListPagesHandler(hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Sessions())
	}
}

// PageSocketHandler upgrades to a WebSocket and keeps the page session
// registered for as long as the socket stays open.
func PageSocketHandler(hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := models.PageRole(r.URL.Query().Get("role"))
		if role == "" {
			role = models.PageRolePage
		}
		if role != models.PageRolePage && role != models.PageRoleHelper {
			writeError(w, http.StatusBadRequest, "role must be 'page' or 'helper'")
			return
		}

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Error("PageSocketHandler: upgrade failed: %v", err)
			return
		}

		session := hub.Register(role, r.URL.Query().Get("url"), notify.NewWSConn(conn))
		defer hub.Unregister(session.ID)

		hello := models.PageMessage{Action: models.ActionSessionStarted, Data: session}
		if err := hub.Send(context.Background(), session.ID, hello); err != nil {
			logger.Warn("PageSocketHandler: greeting session %s: %v", session.ID, err)
			return
		}

		for {
			data, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				logger.Debug("Page session %s read ended: %v", session.ID, err)
				return
			}
			if op != ws.OpText {
				continue
			}
			var ev pageEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				logger.Debug("Page session %s sent invalid message: %v", session.ID, err)
				continue
			}
			switch ev.Type {
			case "focus":
				err = hub.Focus(session.ID)
			case "navigate":
				err = hub.Navigate(session.ID, ev.URL)
			default:
				logger.Debug("Page session %s sent unknown message type %q", session.ID, ev.Type)
			}
			if err != nil {
				logger.Warn("Page session %s: %v", session.ID, err)
			}
		}
	}
}
