package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Code    int
	Message string
	Body    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

func newStatusError(code int, body []byte) *StatusError {
	se := &StatusError{Code: code, Body: strings.TrimSpace(string(body))}
	var payload struct {
		Msg   string `json:"msg"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		se.Message = payload.Msg
		if se.Message == "" {
			se.Message = payload.Error
		}
	}
	return se
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Non-standard statuses used by the backend.
const (
	StatusRerankerDownloading = 425
	StatusInvalidAPIKey       = 490
)

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
