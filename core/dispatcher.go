package core

import (
	"clipwatch/logger"
	"clipwatch/metrics"
	"clipwatch/models"
	"clipwatch/notify"
	"context"
	"errors"
	"time"
)

// LastValueStore persists the most recent value extracted by a rule.
type LastValueStore interface {
	UpdateLastValue(ruleID string, lv models.LastValue) error
}

type HistoryStore interface {
	AddHistoryRecord(rec models.HistoryRecord) error
}

type SettingsStore interface {
	GetAppSettings() (models.AppSettings, error)
}

// ClipboardWriter writes text to whatever clipboard surface is available.
type ClipboardWriter interface {
	WriteText(ctx context.Context, text string) error
}

// Notifier pushes a message to the page that originated an event.
type Notifier interface {
	Notify(ctx context.Context, tabID, sourceURL string, msg models.PageMessage) error
}

// Dispatcher performs the side effects of a match. Each step runs
// independently: a failing step is logged and the remaining steps still run.
type Dispatcher struct {
	Rules     LastValueStore
	History   HistoryStore
	Settings  SettingsStore
	Clipboard ClipboardWriter
	Notifier  Notifier
	Now       func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) settings() models.AppSettings {
	if d.Settings == nil {
		return models.DefaultAppSettings()
	}
	s, err := d.Settings.GetAppSettings()
	if err != nil {
		logger.ProxyWarn("Dispatch: loading settings failed, using defaults: %v", err)
		metrics.DispatchFailuresTotal.WithLabelValues("settings").Inc()
		return models.DefaultAppSettings()
	}
	return s
}

func stepFailed(step string, res models.MatchResult, err error) {
	logger.ProxyError("Dispatch %s failed for rule %q (%s) on %s: %v", step, res.URLPattern, res.RuleType, res.URL, err)
	metrics.DispatchFailuresTotal.WithLabelValues(step).Inc()
}

// Dispatch copies, records, notifies and remembers a match result.
func (d *Dispatcher) Dispatch(ctx context.Context, res models.MatchResult) {
	settings := d.settings()
	now := d.now()

	if settings.EnableAutoCopy && d.Clipboard != nil {
		if err := d.Clipboard.WriteText(ctx, res.Value); err != nil {
			stepFailed("clipboard", res, err)
		}
	}

	if d.History != nil {
		rec := models.HistoryRecord{
			RuleType:   res.RuleType,
			URLPattern: res.URLPattern,
			HeaderName: res.HeaderName,
			ParamName:  res.ParamName,
			Value:      res.Value,
			Timestamp:  now,
			URL:        res.URL,
		}
		if err := d.History.AddHistoryRecord(rec); err != nil {
			stepFailed("history", res, err)
		}
	}

	if settings.EnableMatchNotifications && d.Notifier != nil {
		msg := models.PageMessage{
			Action: models.ActionShowMatchNotification,
			Data: models.MatchNotification{
				RulePattern: res.URLPattern,
				Value:       res.DisplayValue(),
				URL:         res.URL,
			},
		}
		err := d.Notifier.Notify(ctx, res.TabID, res.URL, msg)
		switch {
		case errors.Is(err, notify.ErrNoTarget):
			logger.ProxyDebug("Dispatch: no page to notify for %s", res.URL)
		case err != nil:
			stepFailed("notify", res, err)
		}
	}

	if d.Rules != nil && res.Rule.ID != "" {
		if err := d.Rules.UpdateLastValue(res.Rule.ID, models.LastValue{Value: res.Value, Timestamp: now}); err != nil {
			stepFailed("last_value", res, err)
		}
	}
}
