package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultRegexTimeout bounds a single regex evaluation.
const DefaultRegexTimeout = 250 * time.Millisecond

// maxCachedPatterns keeps a runaway set of distinct patterns from growing the cache forever.
const maxCachedPatterns = 1024

// patternCache compiles rule patterns once. Patterns use ECMAScript syntax so
// rules written for browser regexes behave the same here.
type patternCache struct {
	mu      sync.RWMutex
	timeout time.Duration
	byExpr  map[string]*regexp2.Regexp
}

func newPatternCache(timeout time.Duration) *patternCache {
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}
	return &patternCache{timeout: timeout, byExpr: make(map[string]*regexp2.Regexp)}
}

func (c *patternCache) compile(expr string) (*regexp2.Regexp, error) {
	c.mu.RLock()
	re, ok := c.byExpr[expr]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	re.MatchTimeout = c.timeout

	c.mu.Lock()
	if len(c.byExpr) >= maxCachedPatterns {
		c.byExpr = make(map[string]*regexp2.Regexp)
	}
	c.byExpr[expr] = re
	c.mu.Unlock()
	return re, nil
}

// ValidatePattern reports whether expr compiles as a rule pattern.
func ValidatePattern(expr string) error {
	_, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return nil
}

func groupText(m *regexp2.Match, n int) string {
	if m == nil {
		return ""
	}
	g := m.GroupByNumber(n)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

// expandGroups replaces every $N token in template with capture group N of m.
// A multi-digit token is read only while it still names an existing group, so
// $10 with a single group is group 1 followed by "0". Groups that do not exist
// or did not participate expand to "".
func expandGroups(template string, m *regexp2.Match) string {
	groups := 0
	if m != nil {
		groups = m.GroupCount()
	}
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		if template[i] != '$' {
			b.WriteByte(template[i])
			continue
		}
		start := i + 1
		n, end := -1, start
		for k := start; k < len(template) && template[k] >= '0' && template[k] <= '9'; k++ {
			v, err := strconv.Atoi(template[start : k+1])
			if err != nil || (k > start && v >= groups) {
				break
			}
			n, end = v, k+1
		}
		if n < 0 {
			b.WriteByte('$')
			continue
		}
		b.WriteString(groupText(m, n))
		i = end - 1
	}
	return b.String()
}
