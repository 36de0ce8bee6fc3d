package core

import (
	"clipwatch/logger"
	"clipwatch/metrics"
	"clipwatch/models"
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
)

const closeTimeout = 5 * time.Second

// RuleSource loads the current ordered rule list.
type RuleSource interface {
	GetRules() ([]models.Rule, error)
}

// Pipeline ties rule loading, matching and dispatch together for every
// intercepted event.
type Pipeline struct {
	Rules      RuleSource
	Matcher    *Matcher
	Dispatcher *Dispatcher

	ctx  context.Context
	pool *ants.Pool
}

// NewPipeline creates a pipeline that processes events on a pool of workers.
// A non-positive worker count processes events inline.
func NewPipeline(ctx context.Context, rules RuleSource, matcher *Matcher, dispatcher *Dispatcher, workers int) (*Pipeline, error) {
	p := &Pipeline{Rules: rules, Matcher: matcher, Dispatcher: dispatcher, ctx: ctx}
	if workers > 0 {
		pool, err := ants.NewPool(workers)
		if err != nil {
			return nil, fmt.Errorf("creating dispatch worker pool: %w", err)
		}
		p.pool = pool
	}
	return p, nil
}

// Handle queues ev for matching and dispatch without blocking on side effects.
func (p *Pipeline) Handle(ev models.NetworkEvent) {
	metrics.EventsTotal.WithLabelValues(string(ev.Phase)).Inc()
	if p.pool == nil {
		p.process(ev)
		return
	}
	if err := p.pool.Submit(func() { p.process(ev) }); err != nil {
		logger.ProxyError("Dropping %s event for %s: %v", ev.Phase, ev.URL, err)
	}
}

func (p *Pipeline) process(ev models.NetworkEvent) {
	for _, res := range p.DryRun(ev) {
		p.Dispatcher.Dispatch(p.context(), res)
	}
}

// DryRun matches ev against the current rules without any side effects.
func (p *Pipeline) DryRun(ev models.NetworkEvent) []models.MatchResult {
	rules, err := p.Rules.GetRules()
	if err != nil {
		logger.ProxyError("Loading rules for %s event on %s: %v", ev.Phase, ev.URL, err)
		return nil
	}
	return p.Matcher.Match(ev, rules)
}

func (p *Pipeline) context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// Close waits a bounded time for in-flight events to finish.
func (p *Pipeline) Close() {
	if p.pool == nil {
		return
	}
	if err := p.pool.ReleaseTimeout(closeTimeout); err != nil {
		logger.ProxyWarn("Dispatch workers did not stop in %s: %v", closeTimeout, err)
	}
}
