package handlers

import (
	"clipwatch/models"
	"net/http"
	"net/url"
)

// DryRunner matches an event against the stored rules without side effects.
type DryRunner interface {
	DryRun(ev models.NetworkEvent) []models.MatchResult
}

type testMatchRequest struct {
	URL             string              `json:"url" validate:"required,url"`
	Phase           models.RuleType     `json:"phase,omitempty" validate:"omitempty,oneof=url header responseHeader requestParam requestBody"`
	Method          string              `json:"method,omitempty"`
	Headers         map[string]string   `json:"headers,omitempty"`
	ResponseHeaders map[string]string   `json:"responseHeaders,omitempty"`
	Body            string              `json:"body,omitempty"`
	FormData        map[string][]string `json:"formData,omitempty"`
	ContentType     string              `json:"contentType,omitempty"`
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// events expands the request into one event per phase it has data for.
func (req testMatchRequest) events() []models.NetworkEvent {
	base := models.NetworkEvent{URL: req.URL, Method: req.Method, ContentType: req.ContentType}
	var body *models.RequestBody
	if req.Body != "" || req.FormData != nil {
		body = &models.RequestBody{Raw: []byte(req.Body), FormData: req.FormData}
	}

	var out []models.NetworkEvent
	for _, phase := range models.AllRuleTypes {
		if req.Phase != "" && req.Phase != phase {
			continue
		}
		ev := base
		ev.Phase = phase
		switch phase {
		case models.RuleTypeRequestBody:
			if body == nil {
				continue
			}
			ev.Body = body
		case models.RuleTypeRequestParam:
			if u, err := url.Parse(req.URL); err != nil || u.RawQuery == "" {
				continue
			}
		case models.RuleTypeHeader:
			ev.Headers = toHeader(req.Headers)
		case models.RuleTypeResponseHeader:
			if req.ResponseHeaders == nil {
				continue
			}
			ev.Headers = toHeader(req.ResponseHeaders)
		}
		out = append(out, ev)
	}
	return out
}

// TestMatchHandler reports which rules would fire for a described request.
func TestMatchHandler(runner DryRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testMatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, describeValidationError(err).Error())
			return
		}
		results := []models.MatchResult{}
		for _, ev := range req.events() {
			results = append(results, runner.DryRun(ev)...)
		}
		writeJSON(w, http.StatusOK, results)
	}
}
