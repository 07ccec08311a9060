package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	General ErrorKind = iota
	BadRequest
	Unauthorized
	Forbidden
	NotFound
	TooManyRequests
)

func (k ErrorKind) String() string {
	switch k {
	case BadRequest:
		return "bad request"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case TooManyRequests:
		return "too many requests"
	default:
		return "general"
	}
}

// Classify maps an HTTP status code to success or an [ErrorKind].
//
// 2xx and 3xx are successes; 3xx responses are treated as an empty no-op.
func Classify(status int) (bool, ErrorKind) {
	switch {
	case status >= 200 && status < 400:
		return true, General
	case status == http.StatusBadRequest:
		return false, BadRequest
	case status == http.StatusUnauthorized:
		return false, Unauthorized
	case status == http.StatusForbidden:
		return false, Forbidden
	case status == http.StatusNotFound:
		return false, NotFound
	case status == http.StatusTooManyRequests:
		return false, TooManyRequests
	default:
		return false, General
	}
}

// Error is returned by [Client.Send] for every failed call.
type Error struct {
	Kind       ErrorKind
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	msg := "spotify api: " + e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Title is the short heading shown to the user for this error.
func (e *Error) Title() string {
	switch e.Kind {
	case BadRequest:
		return "Server Error"
	case Unauthorized:
		return "Unauthorized"
	case Forbidden:
		return "Forbidden"
	case TooManyRequests:
		return "Rate Limited"
	default:
		return "Something Went Wrong"
	}
}

// Message is the explanatory text shown under [Error.Title].
func (e *Error) Message() string {
	switch e.Kind {
	case Unauthorized:
		return "Your Spotify session has expired. Run `spotctl auth login` to sign in again."
	case Forbidden:
		return "Spotify refused the request. Playback control requires a Spotify Premium account."
	case TooManyRequests:
		return "Too many requests were sent to Spotify. Wait a moment and try again."
	default:
		return "Something went wrong while talking to Spotify. Please try again."
	}
}

// KindOf returns the [ErrorKind] carried by err, or [General] if err is not an [*Error].
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return General
}

// AsError converts err into an [*Error], wrapping foreign errors as [General].
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: General, Err: err}
}

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// statusError builds the error for a non-success status, pulling the message out of
// Spotify's {"error": {...}} envelope when present.
func statusError(status int, kind ErrorKind, body []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		return &Error{Kind: kind, StatusCode: status, Err: errors.New(eb.Error.Message)}
	}
	return &Error{Kind: kind, StatusCode: status, Err: errors.New(http.StatusText(status))}
}
