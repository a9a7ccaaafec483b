package core

import "errors"

// Kind identifies a class of failure. Every error returned by this module
// matches exactly one Kind sentinel with errors.Is at its outermost layer.
type Kind struct {
	code string
}

// Code returns the machine-readable code of the kind, e.g. "token_expired".
func (k *Kind) Code() string { return k.code }

// Error implements the error interface so a *Kind can be used as a sentinel.
func (k *Kind) Error() string { return k.code }

// Error kinds.
var (
	ErrProviderUnreachable       = &Kind{code: ErrorCodeProviderUnreachable}
	ErrMalformedProviderResponse = &Kind{code: ErrorCodeMalformedProviderResponse}
	ErrNoUsableKey               = &Kind{code: ErrorCodeNoUsableKey}
	ErrInvalidSignature          = &Kind{code: ErrorCodeInvalidSignature}
	ErrInvalidIssuer             = &Kind{code: ErrorCodeInvalidIssuer}
	ErrInvalidAudience           = &Kind{code: ErrorCodeInvalidAudience}
	ErrTokenExpired              = &Kind{code: ErrorCodeTokenExpired}
	ErrTokenNotYetValid          = &Kind{code: ErrorCodeTokenNotYetValid}
	ErrMalformedToken            = &Kind{code: ErrorCodeMalformedToken}
	ErrKeyUnavailable            = &Kind{code: ErrorCodeKeyUnavailable}
	ErrTokenExchangeFailed       = &Kind{code: ErrorCodeTokenExchangeFailed}
	ErrInvalidRedirectURL        = &Kind{code: ErrorCodeInvalidRedirectURL}
	ErrCSRFStateMismatch         = &Kind{code: ErrorCodeCSRFStateMismatch}
)

// Error codes
const (
	ErrorCodeProviderUnreachable       = "provider_unreachable"
	ErrorCodeMalformedProviderResponse = "malformed_provider_response"
	ErrorCodeNoUsableKey               = "no_usable_key"
	ErrorCodeInvalidSignature          = "invalid_signature"
	ErrorCodeInvalidIssuer             = "invalid_issuer"
	ErrorCodeInvalidAudience           = "invalid_audience"
	ErrorCodeTokenExpired              = "token_expired"
	ErrorCodeTokenNotYetValid          = "token_not_yet_valid"
	ErrorCodeMalformedToken            = "token_malformed"
	ErrorCodeKeyUnavailable            = "key_unavailable"
	ErrorCodeTokenExchangeFailed       = "token_exchange_failed"
	ErrorCodeInvalidRedirectURL        = "invalid_redirect_url"
	ErrorCodeCSRFStateMismatch         = "csrf_state_mismatch"
)

// Error is the typed error returned by every package of this module.
// It provides structured error information that can be used for
// logging, metrics, and choosing an appropriate response.
type Error struct {
	// Kind classifies the failure.
	Kind *Kind

	// Message is a human-readable error message.
	Message string

	// Err is the underlying cause, possibly another *Error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error.
// Kinds of wrapped causes are reached through Unwrap.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Kind)
	return ok && k == e.Kind
}

// Code returns the code of the error's Kind.
func (e *Error) Code() string {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.code
}

// NewError creates a new *Error of the given kind.
func NewError(kind *Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the Kind of the outermost *Error in err's chain,
// or nil if there is none.
func KindOf(err error) *Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// CodeOf returns the code of KindOf(err), or "unknown".
func CodeOf(err error) string {
	if k := KindOf(err); k != nil {
		return k.code
	}
	return "unknown"
}
