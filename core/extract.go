package core

import (
	"bytes"
	"clipwatch/logger"
	"clipwatch/models"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/ohler55/ojg/jp"
	"github.com/oliveagle/jsonpath"
	"github.com/tidwall/gjson"
)

var (
	errNoBody  = errors.New("request has no body")
	errNoMatch = errors.New("expression matched nothing")
)

// bodyText turns a request body into the string rules are evaluated against.
// Raw bytes are decoded as UTF-8 with invalid sequences replaced; form data is
// serialized as a JSON object of string arrays.
func bodyText(body *models.RequestBody) (string, error) {
	if body.Empty() {
		return "", errNoBody
	}
	if len(body.Raw) > 0 {
		return strings.ToValidUTF8(string(body.Raw), "�"), nil
	}
	raw, err := json.Marshal(body.FormData)
	if err != nil {
		return "", fmt.Errorf("serializing form data: %w", err)
	}
	return string(raw), nil
}

// stringify renders a query result: strings as-is, everything else as JSON.
func stringify(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("stringifying query result: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// isMultiPath reports whether a JSONPath expression selects a list of matches
// rather than a single node.
func isMultiPath(expr string) bool {
	return strings.ContainsAny(expr, "*,:") || strings.Contains(expr, "?(")
}

func (m *Matcher) extractRegex(expr, body string) (string, error) {
	re, err := m.patterns.compile(expr)
	if err != nil {
		return "", err
	}
	match, err := re.FindStringMatch(body)
	if err != nil {
		return "", fmt.Errorf("evaluating pattern %q: %w", expr, err)
	}
	if match == nil {
		return "", errNoMatch
	}
	if v := groupText(match, 1); v != "" {
		return v, nil
	}
	return groupText(match, 0), nil
}

// usesExtendedPath reports whether expr needs syntax the basic lookup lacks:
// recursive descent, quoted bracket members or a missing root.
func usesExtendedPath(expr string) bool {
	return !strings.HasPrefix(expr, "$") ||
		strings.Contains(expr, "..") ||
		strings.Contains(expr, "['") ||
		strings.Contains(expr, `["`)
}

// rootedPath prefixes a bare path such as data.token with the root selector.
func rootedPath(expr string) string {
	switch {
	case strings.HasPrefix(expr, "$"), strings.HasPrefix(expr, "@"):
		return expr
	case strings.HasPrefix(expr, "["):
		return "$" + expr
	}
	return "$." + expr
}

func extractExtendedPath(expr string, data interface{}) (string, error) {
	x, err := jp.ParseString(rootedPath(expr))
	if err != nil {
		return "", fmt.Errorf("jsonpath %q: %w", expr, err)
	}
	found := x.Get(data)
	if len(found) == 0 {
		return "", errNoMatch
	}
	return stringify(found[0])
}

func extractJSONPathValue(expr string, data interface{}) (string, error) {
	if usesExtendedPath(expr) {
		return extractExtendedPath(expr, data)
	}
	res, err := jsonpath.JsonPathLookup(data, expr)
	if err != nil {
		if v, extErr := extractExtendedPath(expr, data); extErr == nil {
			return v, nil
		}
		return "", fmt.Errorf("jsonpath %q: %w", expr, err)
	}
	if list, ok := res.([]interface{}); ok && isMultiPath(expr) {
		if len(list) == 0 {
			return "", errNoMatch
		}
		res = list[0]
	}
	return stringify(res)
}

func extractJSONPath(expr, body string) (string, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return "", fmt.Errorf("parsing body as JSON: %w", err)
	}
	return extractJSONPathValue(expr, data)
}

func extractGJSON(expr, body string) (string, error) {
	if !gjson.Valid(body) {
		return "", errors.New("body is not valid JSON")
	}
	res := gjson.Get(body, expr)
	if !res.Exists() {
		return "", errNoMatch
	}
	if res.Type == gjson.String {
		return res.Str, nil
	}
	return res.Raw, nil
}

func extractXPath(expr, body string) (string, error) {
	doc, err := xmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing body as XML: %w", err)
	}
	node, err := xmlquery.Query(doc, expr)
	if err != nil {
		return "", fmt.Errorf("xpath %q: %w", expr, err)
	}
	if node == nil {
		return "", errNoMatch
	}
	return node.InnerText(), nil
}

// extractAuto tries the expression as JSONPath when the body is JSON and
// falls back to treating it as a regex over the raw body.
func (m *Matcher) extractAuto(expr, body string) (string, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err == nil {
		v, pathErr := extractJSONPathValue(expr, data)
		if pathErr == nil {
			return v, nil
		}
		logger.ProxyDebug("JSONPath %q failed (%v), falling back to regex", expr, pathErr)
	}
	return m.extractRegex(expr, body)
}

// extractBody applies a requestBody rule to the event body.
func (m *Matcher) extractBody(rule models.Rule, body *models.RequestBody) (string, error) {
	text, err := bodyText(body)
	if err != nil {
		return "", err
	}
	expr := rule.MatchExpression
	switch rule.EffectiveMatchKind() {
	case models.MatchKindRegex:
		return m.extractRegex(expr, text)
	case models.MatchKindJSONPath:
		return extractJSONPath(expr, text)
	case models.MatchKindGJSON:
		return extractGJSON(expr, text)
	case models.MatchKindXPath:
		return extractXPath(expr, text)
	case models.MatchKindAuto:
		return m.extractAuto(expr, text)
	}
	return "", fmt.Errorf("unknown match kind %q", rule.MatchKind)
}
