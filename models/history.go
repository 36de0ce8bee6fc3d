package models

import "time"

// MaxHistoryRecords caps the history list; older records are evicted first.
const MaxHistoryRecords = 30

// HistoryRecord is one extracted value as logged by the dispatcher.
type HistoryRecord struct {
	ID         string    `json:"id"`
	RuleType   RuleType  `json:"ruleType"`
	URLPattern string    `json:"urlPattern"`
	HeaderName string    `json:"headerName,omitempty"`
	ParamName  string    `json:"paramName,omitempty"`
	Value      string    `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
	URL        string    `json:"url"`
}
