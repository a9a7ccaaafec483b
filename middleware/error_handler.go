package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blackrose-eve/eve-oauth2/core"
)

var (
	// ErrTokenMissing is returned when the request carries no token and
	// credentials are required.
	ErrTokenMissing = errors.New("access token missing")

	// ErrTokenInvalid is matched by every error coming out of token
	// verification.
	ErrTokenInvalid = errors.New("access token invalid")

	// ErrInsufficientScope is returned when a valid token lacks a required
	// scope.
	ErrInsufficientScope = errors.New("insufficient scope")
)

// ErrorResponse is the JSON body written by the default error handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler writes the response for a request the middleware rejected.
// err matches ErrTokenMissing, ErrTokenInvalid or ErrInsufficientScope, or
// is an extraction error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler responds with:
//   - 401 and a WWW-Authenticate challenge for a missing or invalid token
//   - 403 for a missing scope
//   - 503 when the signing keys could not be obtained
//   - 400 for a malformed Authorization header
//   - 500 otherwise
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, challenge, body := Classify(err)

	w.Header().Set("Content-Type", "application/json")
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Classify maps a middleware error to a status code, a WWW-Authenticate
// challenge (possibly empty) and a response body.
func Classify(err error) (int, string, ErrorResponse) {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return http.StatusUnauthorized, `Bearer realm="eve-oauth2"`,
			ErrorResponse{Error: "token_missing", Message: "An access token is required."}
	case errors.Is(err, core.ErrKeyUnavailable):
		return http.StatusServiceUnavailable, "",
			ErrorResponse{Error: core.ErrorCodeKeyUnavailable, Message: "The token could not be verified right now."}
	case errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized, `Bearer realm="eve-oauth2", error="invalid_token"`,
			ErrorResponse{Error: core.CodeOf(err), Message: "The access token is invalid."}
	case errors.Is(err, ErrInsufficientScope):
		var se *scopeError
		scope := ""
		if errors.As(err, &se) {
			scope = strings.Join(se.missing, " ")
		}
		return http.StatusForbidden, fmt.Sprintf(`Bearer realm="eve-oauth2", error="insufficient_scope", scope=%q`, scope),
			ErrorResponse{Error: "insufficient_scope", Message: "The access token lacks a required scope."}
	case errors.Is(err, ErrMalformedAuthHeader):
		return http.StatusBadRequest, "",
			ErrorResponse{Error: "invalid_request", Message: "Authorization header format must be Bearer {token}."}
	default:
		return http.StatusInternalServerError, "",
			ErrorResponse{Error: "internal_error", Message: "Something went wrong while checking the access token."}
	}
}

// invalidError wraps a verification error so it matches ErrTokenInvalid
// while keeping its core kind reachable.
type invalidError struct {
	details error
}

func (e *invalidError) Is(target error) bool {
	return target == ErrTokenInvalid
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTokenInvalid, e.details)
}

func (e *invalidError) Unwrap() error {
	return e.details
}

type scopeError struct {
	missing []string
}

func (e *scopeError) Is(target error) bool {
	return target == ErrInsufficientScope
}

func (e *scopeError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrInsufficientScope, strings.Join(e.missing, ", "))
}
