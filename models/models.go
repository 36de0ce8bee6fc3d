package models

import (
	"database/sql"
)

// NullString is a helper function to create a sql.NullString from a string.
// If the input string is empty, it returns a NullString with Valid set to false.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ErrorResponse is the JSON body returned by API handlers on failure.
type ErrorResponse struct {
	Message string `json:"message"`
}

