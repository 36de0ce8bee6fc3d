package api

import (
	"bytes"
	"clipwatch/core"
	"clipwatch/database"
	"clipwatch/logger"
	"clipwatch/models"
	"clipwatch/notify"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv *httptest.Server
	hub *notify.Hub
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger.SetOutput(io.Discard)
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "api-test.db")))
	t.Cleanup(func() { database.CloseDB() })

	hub := notify.NewHub(notify.WithRetry(0, time.Millisecond))
	t.Cleanup(hub.Close)
	pipeline, err := core.NewPipeline(context.Background(), database.Store{}, core.NewMatcher(), &core.Dispatcher{}, 0)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(hub, pipeline))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"ok": true}, decode[map[string]bool](t, resp))

	resp = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRuleCRUD(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/rules", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Rule](t, resp))

	resp = env.do(t, http.MethodPost, "/api/rules", models.Rule{
		RuleType: models.RuleTypeHeader, URLPattern: `api\.test`, HeaderName: "Authorization", Enabled: true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Rule](t, resp)
	require.NotEmpty(t, created.ID)

	resp = env.do(t, http.MethodPost, "/api/rules/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[models.Rule](t, resp).Enabled)

	resp = env.do(t, http.MethodPost, "/api/rules/"+created.ID+"/toggle", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.Rule](t, resp).Enabled)

	update := created
	update.HeaderName = "X-Token"
	resp = env.do(t, http.MethodPut, "/api/rules/"+created.ID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "X-Token", decode[models.Rule](t, resp).HeaderName)

	resp = env.do(t, http.MethodDelete, "/api/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, decode[models.ErrorResponse](t, resp).Message)
}

func TestRuleValidation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		rule models.Rule
	}{
		{"unknown type", models.Rule{RuleType: "cookie", URLPattern: "x"}},
		{"missing pattern", models.Rule{RuleType: models.RuleTypeURL}},
		{"bad pattern", models.Rule{RuleType: models.RuleTypeURL, URLPattern: "("}},
		{"header without name", models.Rule{RuleType: models.RuleTypeResponseHeader, URLPattern: "x"}},
		{"param without name", models.Rule{RuleType: models.RuleTypeRequestParam, URLPattern: "x"}},
		{"unknown match kind", models.Rule{RuleType: models.RuleTypeRequestBody, URLPattern: "x", MatchKind: "css"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/rules", tt.rule)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestReplaceAndMoveRules(t *testing.T) {
	env := setupTestServer(t)
	rules := []models.Rule{
		{ID: "a", RuleType: models.RuleTypeURL, URLPattern: "a", MatchExpression: "$0", Enabled: true},
		{ID: "b", RuleType: models.RuleTypeURL, URLPattern: "b", MatchExpression: "$0", Enabled: true},
		{ID: "c", RuleType: models.RuleTypeURL, URLPattern: "c", MatchExpression: "$0", Enabled: true},
	}
	resp := env.do(t, http.MethodPut, "/api/rules", rules)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Rule](t, resp), 3)

	resp = env.do(t, http.MethodPost, "/api/rules/c/move", map[string]int{"index": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]models.Rule](t, resp)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})

	resp = env.do(t, http.MethodPost, "/api/rules/c/move", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroups(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/groups", models.RuleGroup{Name: "auth"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	group := decode[models.RuleGroup](t, resp)

	resp = env.do(t, http.MethodPost, "/api/rules", models.Rule{
		RuleType: models.RuleTypeURL, URLPattern: "x", MatchExpression: "$0", Enabled: true, Group: group.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/groups/"+group.ID, models.RuleGroup{Name: "tokens", Description: "bearer tokens"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tokens", decode[models.RuleGroup](t, resp).Name)

	resp = env.do(t, http.MethodPost, "/api/groups", models.RuleGroup{Name: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/groups/"+group.ID+"?mode=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/groups/"+group.ID+"?mode=delete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/rules", nil)
	assert.Empty(t, decode[[]models.Rule](t, resp))

	resp = env.do(t, http.MethodDelete, "/api/groups/"+group.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryEndpoints(t *testing.T) {
	env := setupTestServer(t)
	for _, v := range []string{"alpha", "beta"} {
		_, err := database.AddHistoryRecord(models.HistoryRecord{
			RuleType: models.RuleTypeURL, URLPattern: "p", Value: v, Timestamp: time.Now(), URL: "https://h.test/" + v,
		})
		require.NoError(t, err)
	}

	resp := env.do(t, http.MethodGet, "/api/history", nil)
	all := decode[[]models.HistoryRecord](t, resp)
	require.Len(t, all, 2)
	assert.Equal(t, "beta", all[0].Value)

	resp = env.do(t, http.MethodGet, "/api/history?q=ALPHA", nil)
	found := decode[[]models.HistoryRecord](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "alpha", found[0].Value)

	resp = env.do(t, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/history", nil)
	assert.Empty(t, decode[[]models.HistoryRecord](t, resp))
}

func TestSettingsEndpoints(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, models.DefaultAppSettings(), decode[models.AppSettings](t, resp))

	resp = env.do(t, http.MethodPut, "/api/settings", map[string]bool{"enableAutoCopy": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AppSettings{EnableAutoCopy: false, EnableMatchNotifications: true}, decode[models.AppSettings](t, resp))

	resp = env.do(t, http.MethodGet, "/api/settings/enableAutoCopy", nil)
	assert.Equal(t, map[string]bool{"enableAutoCopy": false}, decode[map[string]bool](t, resp))

	resp = env.do(t, http.MethodPut, "/api/settings/enableMatchNotifications", map[string]bool{"value": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AppSettings{}, decode[models.AppSettings](t, resp))

	resp = env.do(t, http.MethodGet, "/api/settings/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/settings/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.DefaultAppSettings(), decode[models.AppSettings](t, resp))
}

func TestTestMatchIsDryRun(t *testing.T) {
	env := setupTestServer(t)
	rules := []models.Rule{
		{ID: "u", RuleType: models.RuleTypeURL, URLPattern: `/item/(\d+)`, MatchExpression: "id=$1", Enabled: true},
		{ID: "h", RuleType: models.RuleTypeHeader, URLPattern: "shop", HeaderName: "authorization", Enabled: true},
		{ID: "p", RuleType: models.RuleTypeRequestParam, URLPattern: "shop", ParamName: "ref", Enabled: true},
		{ID: "b", RuleType: models.RuleTypeRequestBody, URLPattern: "shop", MatchExpression: "$.cart.id", Enabled: true},
	}
	require.NoError(t, database.SaveRules(rules))

	resp := env.do(t, http.MethodPost, "/api/test-match", map[string]interface{}{
		"url":     "https://shop.test/item/42?ref=mail",
		"headers": map[string]string{"Authorization": "Bearer X"},
		"body":    `{"cart":{"id":"c-9"}}`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]models.MatchResult](t, resp)

	values := map[string]string{}
	for _, res := range results {
		values[res.Rule.ID] = res.Value
	}
	assert.Equal(t, map[string]string{"u": "id=42", "h": "Bearer X", "p": "mail", "b": "c-9"}, values)

	history, err := database.GetHistoryRecords()
	require.NoError(t, err)
	assert.Empty(t, history)

	resp = env.do(t, http.MethodPost, "/api/test-match", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPageSocketLifecycle(t *testing.T) {
	env := setupTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/pages/ws?role=page&url=https%3A%2F%2Fshop.test%2F"

	conn, _, _, err := ws.Dial(context.Background(), wsURL)
	require.NoError(t, err)
	defer conn.Close()

	data, err := wsutil.ReadServerText(conn)
	require.NoError(t, err)
	var hello struct {
		Action string             `json:"action"`
		Data   models.PageSession `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &hello))
	assert.Equal(t, models.ActionSessionStarted, hello.Action)
	assert.Equal(t, "https://shop.test/", hello.Data.URL)

	require.NoError(t, wsutil.WriteClientText(conn, []byte(`{"type":"navigate","url":"https://shop.test/cart"}`)))
	assert.Eventually(t, func() bool {
		s, err := env.hub.Resolve("", "https://shop.test/cart")
		return err == nil && s.ID == hello.Data.ID && s.URL == "https://shop.test/cart"
	}, time.Second, 10*time.Millisecond)

	resp := env.do(t, http.MethodGet, "/api/pages", nil)
	pages := decode[[]models.PageSession](t, resp)
	require.Len(t, pages, 1)
	assert.Equal(t, hello.Data.ID, pages[0].ID)

	require.NoError(t, env.hub.Notify(context.Background(), hello.Data.ID, "https://shop.test/cart", models.PageMessage{
		Action: models.ActionShowMatchNotification,
		Data:   models.MatchNotification{RulePattern: "shop", Value: "v", URL: "https://shop.test/cart"},
	}))
	data, err = wsutil.ReadServerText(conn)
	require.NoError(t, err)
	assert.Contains(t, string(data), models.ActionShowMatchNotification)

	conn.Close()
	assert.Eventually(t, func() bool { return len(env.hub.Sessions()) == 0 }, time.Second, 10*time.Millisecond)

	resp = env.do(t, http.MethodGet, "/api/pages/ws?role=admin", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
