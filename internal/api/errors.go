package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/imkarma/taskboard/internal/task"
)

var (
	// ErrNotFound matches any 404 from the server.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches any 401 from the server. The transport has
	// already cleared the stored credential by the time callers see it.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries the field messages the server rejected a write
// with. Messages are shown verbatim.
type ValidationError struct {
	Status   int
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// StatusError is a non-2xx response that is not a validation failure.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// Is lets errors.Is(err, ErrNotFound) and errors.Is(err, ErrUnauthorized)
// match on the status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	}
	return false
}

// NetworkError wraps a transport failure: the request never produced a
// response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// detailItem is one entry of a structured validation response.
type detailItem struct {
	Msg string `json:"msg"`
	Loc []any  `json:"loc,omitempty"`
}

// decodeError builds the typed error for a non-2xx response. The server
// reports problems as {"detail": "text"} or {"detail": [{"msg": ...}, ...]}.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	messages := parseDetail(raw)

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if len(messages) == 0 {
			messages = []string{http.StatusText(resp.StatusCode)}
		}
		return &ValidationError{Status: resp.StatusCode, Messages: messages}
	}
	return &StatusError{Code: resp.StatusCode, Detail: strings.Join(messages, ", ")}
}

func parseDetail(raw []byte) []string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(body.Detail, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var items []detailItem
	if err := json.Unmarshal(body.Detail, &items); err != nil {
		return nil
	}
	var out []string
	for _, it := range items {
		if it.Msg != "" {
			out = append(out, it.Msg)
		}
	}
	return out
}

// Message turns an operation error into the one line shown to the user.
// Validation problems (server or client side) are shown verbatim; a missing
// resource and an expired session get fixed wording; everything else,
// including network failures, collapses to fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Session expired. Please log in again."
	}
	if errors.Is(err, ErrNotFound) {
		var se *StatusError
		if errors.As(err, &se) && se.Detail != "" {
			return se.Detail
		}
		return "Not found"
	}
	if isInputError(err) {
		return err.Error()
	}
	return fallback
}

func isInputError(err error) bool {
	for _, target := range []error{
		task.ErrTitleRequired, task.ErrTitleTooLong, task.ErrDescriptionTooLong,
		task.ErrInvalidStatus, task.ErrInvalidPriority, task.ErrInvalidDueDate, task.ErrEmptyEdit,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
