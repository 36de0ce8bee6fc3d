// Package notify tracks connected page clients and delivers messages to them.
package notify

import (
	"clipwatch/logger"
	"clipwatch/metrics"
	"clipwatch/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

var (
	// ErrNoTarget means no page session could be resolved for an event.
	ErrNoTarget = errors.New("no page session to deliver to")
	// ErrUnknownSession means the addressed session is not connected.
	ErrUnknownSession = errors.New("unknown page session")
	// ErrDeliveryFailed is returned once all delivery attempts are exhausted.
	ErrDeliveryFailed = errors.New("page message delivery failed")
)

const (
	DefaultRetries    = 3
	DefaultRetryDelay = time.Second
)

// Conn is the write side of a page client's channel.
type Conn interface {
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

type session struct {
	info models.PageSession
	conn Conn
	wmu  sync.Mutex
}

func (s *session) write(ctx context.Context, data []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(ctx, data)
}

// Hub is the registry of page sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	retries    uint
	retryDelay time.Duration
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Hub)

// WithRetry sets how many times a failed delivery is retried and the fixed pause between attempts.
func WithRetry(retries uint, delay time.Duration) Option {
	return func(h *Hub) {
		h.retries = retries
		h.retryDelay = delay
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		sessions:   make(map[string]*session),
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a connected client and returns its session.
func (h *Hub) Register(role models.PageRole, pageURL string, conn Conn) models.PageSession {
	if role == "" {
		role = models.PageRolePage
	}
	now := h.now()
	s := &session{
		info: models.PageSession{
			ID:          uuid.New().String(),
			Role:        role,
			URL:         pageURL,
			ConnectedAt: now,
			FocusedAt:   now,
		},
		conn: conn,
	}
	h.mu.Lock()
	h.sessions[s.info.ID] = s
	h.mu.Unlock()
	logger.Info("Page session %s connected (role %s, url %s)", s.info.ID, role, pageURL)
	return s.info
}

// Unregister removes a session and closes its connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := s.conn.Close(); err != nil {
		logger.Debug("Closing page session %s: %v", id, err)
	}
	logger.Info("Page session %s disconnected", id)
}

// Focus marks a session as the most recently active one.
func (h *Hub) Focus(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	s.info.FocusedAt = h.now()
	return nil
}

// Navigate records that a session's page moved to a new URL.
func (h *Hub) Navigate(id, pageURL string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	s.info.URL = pageURL
	return nil
}

// Sessions lists the connected sessions, oldest connection first.
func (h *Hub) Sessions() []models.PageSession {
	h.mu.RLock()
	out := make([]models.PageSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s.info)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// mostRecent returns the most recently focused session of role that satisfies keep.
func (h *Hub) mostRecent(role models.PageRole, keep func(models.PageSession) bool) (models.PageSession, bool) {
	var best models.PageSession
	found := false
	for _, s := range h.sessions {
		if s.info.Role != role || !keep(s.info) {
			continue
		}
		if !found || s.info.FocusedAt.After(best.FocusedAt) {
			best, found = s.info, true
		}
	}
	return best, found
}

// Resolve picks the page session an event belongs to: the session named by
// tabID, then a page showing sourceURL, then a page on the same host, then
// the most recently focused page.
func (h *Hub) Resolve(tabID, sourceURL string) (models.PageSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if tabID != "" {
		if s, ok := h.sessions[tabID]; ok && s.info.Role == models.PageRolePage {
			return s.info, nil
		}
	}
	if sourceURL != "" {
		if s, ok := h.mostRecent(models.PageRolePage, func(p models.PageSession) bool { return p.URL == sourceURL }); ok {
			return s, nil
		}
		if host := hostOf(sourceURL); host != "" {
			if s, ok := h.mostRecent(models.PageRolePage, func(p models.PageSession) bool { return hostOf(p.URL) == host }); ok {
				return s, nil
			}
		}
	}
	if s, ok := h.mostRecent(models.PageRolePage, func(models.PageSession) bool { return true }); ok {
		return s, nil
	}
	return models.PageSession{}, ErrNoTarget
}

// Send makes a single delivery attempt to session id.
func (h *Hub) Send(ctx context.Context, id string, msg models.PageMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding page message: %w", err)
	}
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if err := s.write(ctx, data); err != nil {
		return fmt.Errorf("writing to page session %s: %w", id, err)
	}
	return nil
}

// Deliver sends msg to session id, retrying failed attempts with a fixed
// delay. A session that disappears is not retried.
func (h *Hub) Deliver(ctx context.Context, id string, msg models.PageMessage) error {
	err := retry.Do(
		func() error {
			err := h.Send(ctx, id, msg)
			if errors.Is(err, ErrUnknownSession) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(h.retries+1),
		retry.Delay(h.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("Retrying %s delivery to page session %s (attempt %d): %v", msg.Action, id, n+1, err)
		}),
	)
	if err != nil {
		metrics.NotificationDeliveriesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	metrics.NotificationDeliveriesTotal.WithLabelValues("delivered").Inc()
	return nil
}

// Notify resolves the target page for an event and delivers msg in the
// background. Only resolution errors are returned; delivery failures are logged.
func (h *Hub) Notify(_ context.Context, tabID, sourceURL string, msg models.PageMessage) error {
	target, err := h.Resolve(tabID, sourceURL)
	if err != nil {
		metrics.NotificationDeliveriesTotal.WithLabelValues("no_target").Inc()
		return err
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.Deliver(h.ctx, target.ID, msg); err != nil {
			logger.Warn("Notification for %s not delivered: %v", sourceURL, err)
		}
	}()
	return nil
}

// SendToHelper makes one attempt to hand msg to the most recently focused helper session.
func (h *Hub) SendToHelper(ctx context.Context, msg models.PageMessage) error {
	h.mu.RLock()
	helper, ok := h.mostRecent(models.PageRoleHelper, func(models.PageSession) bool { return true })
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no helper session: %w", ErrNoTarget)
	}
	return h.Send(ctx, helper.ID, msg)
}

// SendToActive delivers msg to the most recently focused page session.
func (h *Hub) SendToActive(ctx context.Context, msg models.PageMessage) error {
	target, err := h.Resolve("", "")
	if err != nil {
		return err
	}
	return h.Deliver(ctx, target.ID, msg)
}

// Close stops pending deliveries and disconnects every session.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()
	for id, s := range sessions {
		if err := s.conn.Close(); err != nil {
			logger.Debug("Closing page session %s: %v", id, err)
		}
	}
}
