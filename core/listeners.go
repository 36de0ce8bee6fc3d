package core

import (
	"bytes"
	"clipwatch/logger"
	"clipwatch/models"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/elazarl/goproxy"
)

const (
	DefaultTabHeader    = "X-Clipwatch-Tab"
	DefaultMaxBodyBytes = 1 << 20
)

// EventSink receives intercepted network events.
type EventSink interface {
	Handle(ev models.NetworkEvent)
}

// ListenerConfig tunes how proxy traffic is turned into events.
type ListenerConfig struct {
	// TabHeader is the request header page clients use to tag their traffic
	// with their session id. It is removed before the request is forwarded.
	TabHeader    string
	MaxBodyBytes int64
}

func (c ListenerConfig) withDefaults() ListenerConfig {
	if c.TabHeader == "" {
		c.TabHeader = DefaultTabHeader
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// requestState travels with a request through the proxy callbacks.
type requestState struct {
	TabID string
}

func stateOf(ctx *goproxy.ProxyCtx) *requestState {
	if st, ok := ctx.UserData.(*requestState); ok {
		return st
	}
	return &requestState{}
}

// RegisterListeners installs one proxy callback per rule type, in the order
// the corresponding data becomes available for a request.
func RegisterListeners(proxy *goproxy.ProxyHttpServer, sink EventSink, cfg ListenerConfig) {
	cfg = cfg.withDefaults()
	registerURLListener(proxy, sink, cfg)
	registerRequestBodyListener(proxy, sink, cfg)
	registerRequestParamListener(proxy, sink)
	registerHeaderListener(proxy, sink, cfg)
	registerResponseHeaderListener(proxy, sink)
}

func registerURLListener(proxy *goproxy.ProxyHttpServer, sink EventSink, cfg ListenerConfig) {
	proxy.OnRequest().DoFunc(func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		st := &requestState{TabID: r.Header.Get(cfg.TabHeader)}
		ctx.UserData = st
		logger.ProxyDebug("REQ: %s %s (tab %q)", r.Method, r.URL, st.TabID)
		sink.Handle(models.NetworkEvent{
			Phase:  models.RuleTypeURL,
			URL:    r.URL.String(),
			Method: r.Method,
			TabID:  st.TabID,
		})
		return r, nil
	})
}

func registerRequestBodyListener(proxy *goproxy.ProxyHttpServer, sink EventSink, cfg ListenerConfig) {
	proxy.OnRequest().DoFunc(func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		if r.Body == nil || r.Body == http.NoBody {
			return r, nil
		}
		body, err := readRequestBody(r, cfg.MaxBodyBytes)
		if err != nil {
			logger.ProxyWarn("REQ: not matching body of %s %s: %v", r.Method, r.URL, err)
			return r, nil
		}
		if body.Empty() {
			return r, nil
		}
		sink.Handle(models.NetworkEvent{
			Phase:       models.RuleTypeRequestBody,
			URL:         r.URL.String(),
			Method:      r.Method,
			TabID:       stateOf(ctx).TabID,
			Body:        body,
			ContentType: r.Header.Get("Content-Type"),
		})
		return r, nil
	})
}

func registerRequestParamListener(proxy *goproxy.ProxyHttpServer, sink EventSink) {
	proxy.OnRequest().DoFunc(func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		if r.URL.RawQuery == "" {
			return r, nil
		}
		sink.Handle(models.NetworkEvent{
			Phase:  models.RuleTypeRequestParam,
			URL:    r.URL.String(),
			Method: r.Method,
			TabID:  stateOf(ctx).TabID,
		})
		return r, nil
	})
}

func registerHeaderListener(proxy *goproxy.ProxyHttpServer, sink EventSink, cfg ListenerConfig) {
	proxy.OnRequest().DoFunc(func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		r.Header.Del(cfg.TabHeader)
		sink.Handle(models.NetworkEvent{
			Phase:   models.RuleTypeHeader,
			URL:     r.URL.String(),
			Method:  r.Method,
			TabID:   stateOf(ctx).TabID,
			Headers: r.Header.Clone(),
		})
		return r, nil
	})
}

func registerResponseHeaderListener(proxy *goproxy.ProxyHttpServer, sink EventSink) {
	proxy.OnResponse().DoFunc(func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
		if resp == nil || ctx.Req == nil {
			return resp
		}
		logger.ProxyDebug("RESP: %d for %s %s", resp.StatusCode, ctx.Req.Method, ctx.Req.URL)
		sink.Handle(models.NetworkEvent{
			Phase:   models.RuleTypeResponseHeader,
			URL:     ctx.Req.URL.String(),
			Method:  ctx.Req.Method,
			TabID:   stateOf(ctx).TabID,
			Headers: resp.Header.Clone(),
		})
		return resp
	})
}

var errBodyTooLarge = errors.New("body exceeds match limit")

// readRequestBody captures up to limit bytes of the request body for
// matching and leaves r.Body readable from the start for forwarding.
func readRequestBody(r *http.Request, limit int64) (*models.RequestBody, error) {
	buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
		return nil, err
	}
	if int64(len(buf)) > limit {
		r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
		return nil, errBodyTooLarge
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))
	r.ContentLength = int64(len(buf))

	data, err := decodeContent(r.Header.Get("Content-Encoding"), buf)
	if err != nil {
		return nil, err
	}
	return parseRequestBody(r.Header.Get("Content-Type"), data, limit)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// parseRequestBody exposes form submissions as fields and everything else as raw bytes.
func parseRequestBody(contentType string, data []byte, limit int64) (*models.RequestBody, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return &models.RequestBody{Raw: data}, nil
	}
	switch strings.ToLower(mediaType) {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, err
		}
		return &models.RequestBody{FormData: values}, nil
	case "multipart/form-data":
		form, err := multipart.NewReader(bytes.NewReader(data), params["boundary"]).ReadForm(limit)
		if err != nil {
			return nil, err
		}
		defer form.RemoveAll()
		fields := make(map[string][]string, len(form.Value)+len(form.File))
		for k, v := range form.Value {
			fields[k] = v
		}
		for k, files := range form.File {
			for _, fh := range files {
				fields[k] = append(fields[k], fh.Filename)
			}
		}
		return &models.RequestBody{FormData: fields}, nil
	}
	return &models.RequestBody{Raw: data}, nil
}
