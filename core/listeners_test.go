package core

import (
	"bytes"
	"clipwatch/logger"
	"clipwatch/models"
	"compress/gzip"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.NetworkEvent
}

func (s *recordingSink) Handle(ev models.NetworkEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) phases() []models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Phase
	for _, ev := range s.events {
		out = append(out, ev.Phase)
	}
	return out
}

func (s *recordingSink) event(phase models.Phase) (models.NetworkEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Phase == phase {
			return ev, true
		}
	}
	return models.NetworkEvent{}, false
}

type upstreamSeen struct {
	header http.Header
	body   []byte
}

func startProxyAndUpstream(t *testing.T, sink EventSink, cfg ListenerConfig) (*http.Client, string, *upstreamSeen) {
	t.Helper()
	logger.SetOutput(io.Discard)
	seen := &upstreamSeen{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.header = r.Header.Clone()
		seen.body, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Session", "sess-1")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	proxySrv := httptest.NewServer(NewProxy(nil, sink, cfg))
	t.Cleanup(proxySrv.Close)

	proxyURL, err := url.Parse(proxySrv.URL)
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
	return client, upstream.URL, seen
}

func TestListenersEmitEventsInPhaseOrder(t *testing.T) {
	sink := &recordingSink{}
	client, upstreamURL, seen := startProxyAndUpstream(t, sink, ListenerConfig{})

	req, err := http.NewRequest(http.MethodPost, upstreamURL+"/login?token=abc", strings.NewReader(`{"user":"bob"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer X")
	req.Header.Set(DefaultTabHeader, "tab-7")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []models.Phase{
		models.RuleTypeURL,
		models.RuleTypeRequestBody,
		models.RuleTypeRequestParam,
		models.RuleTypeHeader,
		models.RuleTypeResponseHeader,
	}, sink.phases())

	for _, phase := range sink.phases() {
		ev, _ := sink.event(phase)
		assert.Equal(t, "tab-7", ev.TabID, phase)
		assert.Contains(t, ev.URL, "/login?token=abc", phase)
	}

	bodyEv, _ := sink.event(models.RuleTypeRequestBody)
	require.NotNil(t, bodyEv.Body)
	assert.Equal(t, `{"user":"bob"}`, string(bodyEv.Body.Raw))

	headerEv, _ := sink.event(models.RuleTypeHeader)
	assert.Equal(t, "Bearer X", headerEv.Headers.Get("Authorization"))
	assert.Empty(t, headerEv.Headers.Get(DefaultTabHeader))

	respEv, _ := sink.event(models.RuleTypeResponseHeader)
	assert.Equal(t, "sess-1", respEv.Headers.Get("X-Session"))

	assert.Equal(t, `{"user":"bob"}`, string(seen.body))
	assert.Empty(t, seen.header.Get(DefaultTabHeader))
}

func TestRequestWithoutBodyOrQuerySkipsThosePhases(t *testing.T) {
	sink := &recordingSink{}
	client, upstreamURL, _ := startProxyAndUpstream(t, sink, ListenerConfig{})

	resp, err := client.Get(upstreamURL + "/plain")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []models.Phase{models.RuleTypeURL, models.RuleTypeHeader, models.RuleTypeResponseHeader}, sink.phases())
}

func TestOversizedBodyIsForwardedButNotMatched(t *testing.T) {
	sink := &recordingSink{}
	client, upstreamURL, seen := startProxyAndUpstream(t, sink, ListenerConfig{MaxBodyBytes: 8})

	payload := strings.Repeat("x", 64)
	resp, err := client.Post(upstreamURL+"/upload", "text/plain", strings.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()

	_, ok := sink.event(models.RuleTypeRequestBody)
	assert.False(t, ok)
	assert.Equal(t, payload, string(seen.body))
}

func TestReadRequestBodyForms(t *testing.T) {
	logger.SetOutput(io.Discard)

	t.Run("urlencoded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "http://a.test/", strings.NewReader("token=abc&token=def&x=1"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		body, err := readRequestBody(r, DefaultMaxBodyBytes)
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"token": {"abc", "def"}, "x": {"1"}}, body.FormData)

		forwarded, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "token=abc&token=def&x=1", string(forwarded))
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("user", "bob"))
		fw, err := mw.CreateFormFile("avatar", "me.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("png"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "http://a.test/", bytes.NewReader(buf.Bytes()))
		r.Header.Set("Content-Type", mw.FormDataContentType())
		body, err := readRequestBody(r, DefaultMaxBodyBytes)
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"user": {"bob"}, "avatar": {"me.png"}}, body.FormData)
	})

	t.Run("gzip encoded json", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(`{"a":1}`))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		compressed := buf.Bytes()

		r := httptest.NewRequest(http.MethodPost, "http://a.test/", bytes.NewReader(compressed))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Content-Encoding", "gzip")
		body, err := readRequestBody(r, DefaultMaxBodyBytes)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body.Raw))

		forwarded, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, compressed, forwarded)
	})
}
