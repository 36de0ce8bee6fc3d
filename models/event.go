package models

import (
	"net/http"
	"net/url"
	"strings"
)

// Phase is the point in the network lifecycle an event was captured at.
// Each phase corresponds to exactly one rule type.
type Phase = RuleType

// RequestBody holds either the raw body bytes or parsed form fields, mirroring
// what a browser exposes for an outgoing request.
type RequestBody struct {
	Raw      []byte              `json:"raw,omitempty"`
	FormData map[string][]string `json:"formData,omitempty"`
}

// Empty reports whether the body carries nothing to match against.
func (b *RequestBody) Empty() bool {
	return b == nil || (len(b.Raw) == 0 && b.FormData == nil)
}

// NetworkEvent is one intercepted network event handed to the matcher.
type NetworkEvent struct {
	Phase       Phase        `json:"phase"`
	URL         string       `json:"url"`
	Method      string       `json:"method,omitempty"`
	TabID       string       `json:"tabId,omitempty"`
	Headers     http.Header  `json:"headers,omitempty"`
	Body        *RequestBody `json:"body,omitempty"`
	ContentType string       `json:"contentType,omitempty"`
}

// Host returns the lowercase hostname of the event URL, or "" if it cannot be parsed.
func (e NetworkEvent) Host() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// MatchResult is produced when a rule's pattern matches an event.
type MatchResult struct {
	Rule       Rule     `json:"rule"`
	RuleIndex  int      `json:"ruleIndex"`
	RuleType   RuleType `json:"ruleType"`
	URLPattern string   `json:"urlPattern"`
	Value      string   `json:"value"`
	URL        string   `json:"url"`
	HeaderName string   `json:"headerName,omitempty"`
	ParamName  string   `json:"paramName,omitempty"`
	TabID      string   `json:"tabId,omitempty"`
}

// DisplayValue formats the value the way it is shown in on-page notifications.
func (m MatchResult) DisplayValue() string {
	switch m.RuleType {
	case RuleTypeHeader, RuleTypeResponseHeader:
		return m.HeaderName + ": " + m.Value
	case RuleTypeRequestParam:
		return m.ParamName + "=" + m.Value
	}
	return m.Value
}
