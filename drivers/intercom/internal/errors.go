package driver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/goccy/go-json"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServer      = errors.New("server error")
	ErrClient      = errors.New("client error")
	ErrBadResponse = errors.New("bad response")
	ErrLocked      = errors.New("resource locked")
)

// documented defaults, used when the response carries no error.list payload
var defaultErrorMessages = map[int]string{
	http.StatusBadRequest:           "The request is missing or has a bad parameter.",
	http.StatusUnauthorized:         "Invalid authorization credentials.",
	http.StatusPaymentRequired:      "API plan restricted or the workspace is inactive.",
	http.StatusForbidden:            "User does not have permission to access the resource.",
	http.StatusNotFound:             "The resource specified cannot be found.",
	http.StatusMethodNotAllowed:     "The provided HTTP method is not supported by the URL.",
	http.StatusNotAcceptable:        "Format other than JSON was requested.",
	http.StatusRequestTimeout:       "The request stalled, please try again.",
	http.StatusConflict:             "Multiple existing users match the provided identifier.",
	http.StatusUnsupportedMediaType: "The request Content-Type header is not application/json.",
	http.StatusUnprocessableEntity:  "The data was well-formed but invalid.",
	http.StatusLocked:               "The resource is locked by another request, please try again.",
	http.StatusTooManyRequests:      "The API rate limit was exceeded.",
	http.StatusInternalServerError:  "An unexpected error occurred on Intercom's side.",
}

// HTTPError is returned by the client once a request failed permanently or the
// retry budget is exhausted. errors.Is matches it against its kind.
type HTTPError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() []error {
	if e.Retryable() {
		return []error{e.kind}
	}
	return []error{e.kind, constants.ErrNonRetryable}
}

// Retryable reports if the request may succeed when sent again
func (e *HTTPError) Retryable() bool {
	return !errors.Is(e.kind, ErrClient)
}

type errorList struct {
	Type   string `json:"type"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func newHTTPError(status int, body []byte) *HTTPError {
	kind := ErrClient
	switch {
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status == http.StatusLocked:
		kind = ErrLocked
	case status >= http.StatusInternalServerError:
		kind = ErrServer
	}

	var payload errorList
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && payload.Type == "error.list" && len(payload.Errors) > 0 {
		parts := make([]string, 0, len(payload.Errors))
		for _, item := range payload.Errors {
			if status == http.StatusUnauthorized && strings.Contains(item.Code, "token") {
				logger.Error("access_token is expired or invalid, re-authenticate the connection to generate a new access_token")
			}
			parts = append(parts, fmt.Sprintf("%s: %s", item.Code, item.Message))
		}
		return &HTTPError{
			StatusCode: status,
			Message:    fmt.Sprintf("HTTP-error-code: %d, Error:%s", status, strings.Join(parts, "; ")),
			kind:       kind,
		}
	}

	message, found := defaultErrorMessages[status]
	if !found {
		message = "Unknown Error"
	}
	return &HTTPError{
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP-error-code: %d, Error: %s", status, message),
		kind:       kind,
	}
}

// newBadResponse marks a 200 response whose body could not be decoded
func newBadResponse(status int, cause string) *HTTPError {
	return &HTTPError{
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP-error-code: %d, Error: %s", status, cause),
		kind:       ErrBadResponse,
	}
}
