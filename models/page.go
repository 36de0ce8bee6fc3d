package models

import "time"

// Page message actions understood by page clients.
const (
	ActionShowMatchNotification = "showMatchNotification"
	ActionCopyToClipboard       = "copyToClipboard"
	// ActionSessionStarted tells a freshly connected client its session id,
	// which it sends back as the tab header on its own requests.
	ActionSessionStarted = "sessionStarted"
)

// PageMessage is the envelope pushed to a page session.
type PageMessage struct {
	Action           string `json:"action"`
	Data             any    `json:"data,omitempty"`
	Text             string `json:"text,omitempty"`
	ShowNotification bool   `json:"showNotification,omitempty"`
}

// MatchNotification is the Data payload of a showMatchNotification message.
type MatchNotification struct {
	RulePattern string `json:"rulePattern"`
	Value       string `json:"value"`
	URL         string `json:"url"`
}

// PageRole distinguishes ordinary page sessions from the clipboard helper.
type PageRole string

const (
	PageRolePage   PageRole = "page"
	PageRoleHelper PageRole = "helper"
)

// PageSession describes a connected page client.
type PageSession struct {
	ID          string    `json:"id"`
	Role        PageRole  `json:"role"`
	URL         string    `json:"url"`
	ConnectedAt time.Time `json:"connectedAt"`
	FocusedAt   time.Time `json:"focusedAt"`
}
