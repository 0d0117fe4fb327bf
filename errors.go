package guestalbum

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeLoginFailed          = "LOGIN_FAILED"
	TextCodeRegistrationFailed   = "REGISTRATION_FAILED"
	TextCodeProfileUpdateFailed  = "PROFILE_UPDATE_FAILED"
	TextCodePasswordChangeFailed = "PASSWORD_CHANGE_FAILED"
	TextCodeSuperseded           = "SESSION_SUPERSEDED"
	TextCodeNotAuthenticated     = "NOT_AUTHENTICATED"
	TextCodeAlbumNotFound        = "ALBUM_NOT_FOUND"
	TextCodeAlbumUnavailable     = "ALBUM_UNAVAILABLE"
	TextCodeUnsupportedType      = "UNSUPPORTED_TYPE"
	TextCodeNoFile               = "NO_FILE"
	TextCodeUploadFailed         = "UPLOAD_FAILED"
	TextCodeOwnerRequestFailed   = "OWNER_REQUEST_FAILED"
	TextCodeInvalidInput         = "INVALID_INPUT"
)

// Default messages used when the server does not supply one.
const (
	MessageLoginFailed          = "login failed"
	MessageRegistrationFailed   = "registration failed"
	MessageProfileUpdateFailed  = "profile update failed"
	MessagePasswordChangeFailed = "password change failed"
	MessageUploadFailed         = "upload failed, try again"
)

// ReasonUnsupportedType is the rejection reason reported by the admission gate.
const ReasonUnsupportedType = "unsupported-type"

// ErrLoginFailed is returned when credentials are rejected or the login call fails.
var ErrLoginFailed = goerrors.New(MessageLoginFailed, goerrors.CategoryAuth).
	WithTextCode(TextCodeLoginFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrRegistrationFailed is returned when the server refuses a registration.
var ErrRegistrationFailed = goerrors.New(MessageRegistrationFailed, goerrors.CategoryValidation).
	WithTextCode(TextCodeRegistrationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrProfileUpdateFailed is returned when a profile patch is not applied.
var ErrProfileUpdateFailed = goerrors.New(MessageProfileUpdateFailed, goerrors.CategoryOperation).
	WithTextCode(TextCodeProfileUpdateFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordChangeFailed is returned when a password change is refused.
var ErrPasswordChangeFailed = goerrors.New(MessagePasswordChangeFailed, goerrors.CategoryOperation).
	WithTextCode(TextCodePasswordChangeFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrSuperseded is returned when a logout happened while a call was in flight
// and its result was dropped.
var ErrSuperseded = goerrors.New("session changed while request was in flight", goerrors.CategoryConflict).
	WithTextCode(TextCodeSuperseded).
	WithCode(goerrors.CodeConflict)

// ErrNotAuthenticated is returned by owner operations without a session.
var ErrNotAuthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlbumNotFound means the access code does not resolve to an album.
// Callers render a not-found state and do not retry.
var ErrAlbumNotFound = goerrors.New("album not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAlbumNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlbumUnavailable is a transport or server failure while resolving an album.
var ErrAlbumUnavailable = goerrors.New("album service unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeAlbumUnavailable).
	WithCode(http.StatusBadGateway)

// ErrUnsupportedType is returned by the admission gate for disallowed MIME types.
var ErrUnsupportedType = goerrors.New("unsupported file type", goerrors.CategoryValidation).
	WithTextCode(TextCodeUnsupportedType).
	WithCode(goerrors.CodeBadRequest)

// ErrNoFile is returned when a candidate carries no file.
var ErrNoFile = goerrors.New("no file selected", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNoFile).
	WithCode(goerrors.CodeBadRequest)

// ErrUploadFailed is the opaque upload failure. Server reasons are not distinguished.
var ErrUploadFailed = goerrors.New(MessageUploadFailed, goerrors.CategoryOperation).
	WithTextCode(TextCodeUploadFailed).
	WithCode(http.StatusBadGateway)

// ErrOwnerRequestFailed wraps failures of owner only calls.
var ErrOwnerRequestFailed = goerrors.New("owner request failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeOwnerRequestFailed).
	WithCode(http.StatusBadGateway)

// ErrInvalidInput is returned when local validation rejects a payload.
var ErrInvalidInput = goerrors.New("invalid input", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidInput).
	WithCode(goerrors.CodeBadRequest)

// failure clones base, replaces the message when one is given and records the cause.
func failure(base *goerrors.Error, message string, cause error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if message != "" {
		clone.Message = message
	}
	if cause != nil {
		clone.Source = cause
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// ErrorMessage returns the message of the outermost rich error in err,
// falling back to a server supplied message and then to fallback. Rich
// errors built by this package already carry the resolved server message.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}

	var m Messager
	if errors.As(err, &m) {
		if msg := m.APIMessage(); msg != "" {
			return msg
		}
	}

	return fallback
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// HasTextCode reports whether err is a rich error with the given text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsAlbumNotFound reports whether err means the access code is unresolvable.
func IsAlbumNotFound(err error) bool {
	return HasTextCode(err, TextCodeAlbumNotFound)
}

// IsUnsupportedType reports whether err is an admission rejection.
func IsUnsupportedType(err error) bool {
	return HasTextCode(err, TextCodeUnsupportedType)
}

// IsNotAuthenticated reports whether err is a missing session error.
func IsNotAuthenticated(err error) bool {
	return HasTextCode(err, TextCodeNotAuthenticated)
}

// IsSuperseded reports whether a result was dropped because of a logout.
func IsSuperseded(err error) bool {
	return HasTextCode(err, TextCodeSuperseded)
}
