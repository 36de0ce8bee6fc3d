package models

import "time"

// RuleType selects the traffic phase a rule is evaluated in and how its value is extracted.
type RuleType string

const (
	RuleTypeURL            RuleType = "url"
	RuleTypeHeader         RuleType = "header"
	RuleTypeResponseHeader RuleType = "responseHeader"
	RuleTypeRequestParam   RuleType = "requestParam"
	RuleTypeRequestBody    RuleType = "requestBody"
)

// AllRuleTypes lists the rule types in traffic-phase order.
var AllRuleTypes = []RuleType{
	RuleTypeURL,
	RuleTypeRequestBody,
	RuleTypeRequestParam,
	RuleTypeHeader,
	RuleTypeResponseHeader,
}

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	for _, known := range AllRuleTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsHeaderType is true for rules that read a named header.
func (t RuleType) IsHeaderType() bool {
	return t == RuleTypeHeader || t == RuleTypeResponseHeader
}

// MatchKind says how a requestBody rule's MatchExpression is interpreted.
type MatchKind string

const (
	// MatchKindAuto tries JSONPath when the body parses as JSON and falls back to a regex.
	MatchKindAuto     MatchKind = "auto"
	MatchKindRegex    MatchKind = "regex"
	MatchKindJSONPath MatchKind = "jsonpath"
	MatchKindGJSON    MatchKind = "gjson"
	MatchKindXPath    MatchKind = "xpath"
)

// LastValue is the most recent value a rule extracted.
type LastValue struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Rule is a user-defined pattern describing which traffic to watch and what to extract.
type Rule struct {
	ID              string     `json:"id"`
	RuleType        RuleType   `json:"ruleType" validate:"required,oneof=url header responseHeader requestParam requestBody"`
	URLPattern      string     `json:"urlPattern" validate:"required"`
	MatchExpression string     `json:"matchExpression,omitempty"`
	MatchKind       MatchKind  `json:"matchKind,omitempty" validate:"omitempty,oneof=auto regex jsonpath gjson xpath"`
	HeaderName      string     `json:"headerName,omitempty" validate:"required_if=RuleType header,required_if=RuleType responseHeader"`
	ParamName       string     `json:"paramName,omitempty" validate:"required_if=RuleType requestParam"`
	Enabled         bool       `json:"enabled"`
	Group           string     `json:"group,omitempty"`
	LastValue       *LastValue `json:"lastValue,omitempty"`
}

// EffectiveMatchKind returns the rule's match kind, defaulting to auto.
func (r Rule) EffectiveMatchKind() MatchKind {
	if r.MatchKind == "" {
		return MatchKindAuto
	}
	return r.MatchKind
}

// RuleGroup partitions rules for display.
type RuleGroup struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
}

// GroupDeleteMode decides what happens to member rules when a group is deleted.
type GroupDeleteMode string

const (
	GroupDeleteUngroup GroupDeleteMode = "ungroup"
	GroupDeleteRules   GroupDeleteMode = "delete"
)
