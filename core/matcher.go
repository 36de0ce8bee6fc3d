package core

import (
	"clipwatch/logger"
	"clipwatch/metrics"
	"clipwatch/models"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Matcher evaluates rules against network events. It is safe for concurrent use.
type Matcher struct {
	patterns *patternCache
}

// MatcherOption configures a Matcher.
type MatcherOption func(*matcherOptions)

type matcherOptions struct {
	regexTimeout time.Duration
}

// WithRegexTimeout bounds how long a single pattern evaluation may run.
func WithRegexTimeout(d time.Duration) MatcherOption {
	return func(o *matcherOptions) { o.regexTimeout = d }
}

func NewMatcher(opts ...MatcherOption) *Matcher {
	o := matcherOptions{regexTimeout: DefaultRegexTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Matcher{patterns: newPatternCache(o.regexTimeout)}
}

// Match runs every enabled rule of the event's phase against ev and returns
// one result per rule that produced a non-empty value, in rule order.
// Failures of individual rules are logged and skipped.
func (m *Matcher) Match(ev models.NetworkEvent, rules []models.Rule) []models.MatchResult {
	var results []models.MatchResult
	for i, rule := range rules {
		if !rule.Enabled || rule.RuleType != ev.Phase {
			continue
		}
		res, ok := m.matchRule(i, rule, ev)
		if !ok {
			continue
		}
		metrics.MatchesTotal.WithLabelValues(string(rule.RuleType)).Inc()
		results = append(results, res)
	}
	return results
}

func (m *Matcher) matchRule(index int, rule models.Rule, ev models.NetworkEvent) (models.MatchResult, bool) {
	re, err := m.patterns.compile(rule.URLPattern)
	if err != nil {
		logger.ProxyError("Rule %d (%s): %v", index, rule.RuleType, err)
		metrics.RuleErrorsTotal.WithLabelValues("pattern").Inc()
		return models.MatchResult{}, false
	}
	urlMatch, err := re.FindStringMatch(ev.URL)
	if err != nil {
		logger.ProxyError("Rule %d (%s): matching %q against %s: %v", index, rule.RuleType, rule.URLPattern, ev.URL, err)
		metrics.RuleErrorsTotal.WithLabelValues("timeout").Inc()
		return models.MatchResult{}, false
	}
	if urlMatch == nil {
		return models.MatchResult{}, false
	}

	res := models.MatchResult{
		Rule:       rule,
		RuleIndex:  index,
		RuleType:   rule.RuleType,
		URLPattern: rule.URLPattern,
		URL:        ev.URL,
		TabID:      ev.TabID,
	}

	switch rule.RuleType {
	case models.RuleTypeURL:
		res.Value = expandGroups(rule.MatchExpression, urlMatch)
	case models.RuleTypeHeader, models.RuleTypeResponseHeader:
		res.HeaderName = rule.HeaderName
		res.Value = headerValue(ev.Headers, rule.HeaderName)
	case models.RuleTypeRequestParam:
		if rule.ParamName == "" {
			logger.ProxyDebug("Rule %d: requestParam rule without paramName skipped", index)
			return models.MatchResult{}, false
		}
		res.ParamName = rule.ParamName
		res.Value = queryParam(ev.URL, rule.ParamName)
	case models.RuleTypeRequestBody:
		v, err := m.extractBody(rule, ev.Body)
		if err != nil {
			if !errors.Is(err, errNoBody) && !errors.Is(err, errNoMatch) {
				logger.ProxyDebug("Rule %d (requestBody) on %s: %v", index, ev.URL, err)
				metrics.RuleErrorsTotal.WithLabelValues("body").Inc()
			}
			return models.MatchResult{}, false
		}
		res.Value = v
	default:
		return models.MatchResult{}, false
	}

	if res.Value == "" {
		return models.MatchResult{}, false
	}
	logger.ProxyDebug("Rule %d (%s) matched %s", index, rule.RuleType, ev.URL)
	return res, true
}

// headerValue returns the first value of name, compared case-insensitively.
func headerValue(h http.Header, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	// Headers built outside net/http may not be canonicalized.
	for k, vals := range h {
		if len(vals) > 0 && http.CanonicalHeaderKey(k) == http.CanonicalHeaderKey(name) {
			return vals[0]
		}
	}
	return ""
}

func queryParam(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(name)
}
