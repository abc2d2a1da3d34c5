// Package errors defines the AppError returned across the service.
// Every AppError carries an i18n key so handlers can render it in the caller's locale.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/medflow/drug-warehouse/pkg/i18n"
)

// Sentinels matched with Is
var (
	ErrNotFound           = errors.New("resource not found")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrStorage            = errors.New("storage failure")
)

// Codes rendered in the response envelope
const (
	CodeNotFound           = "NOT_FOUND"
	CodeBadRequest         = "BAD_REQUEST"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeStorage            = "STORAGE_FAILURE"
)

// AppError is an error with an HTTP status and a localizable message
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"` // rendered in DefaultLocale
	MessageKey string            `json:"-"`
	Params     map[string]string `json:"-"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize renders the message in the locale carried by ctx
func (e *AppError) Localize(ctx context.Context) string {
	return e.LocalizeWith(i18n.LocalizerFromContext(ctx))
}

// LocalizeWith renders the message with l
func (e *AppError) LocalizeWith(l *i18n.Localizer) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return l.T(e.MessageKey, e.localizedParams(l))
}

// localizedParams resolves a resource_key param into a localized resource name
func (e *AppError) localizedParams(l *i18n.Localizer) map[string]string {
	key, ok := e.Params["resource_key"]
	if !ok {
		return e.Params
	}
	p := make(map[string]string, len(e.Params))
	for k, v := range e.Params {
		p[k] = v
	}
	p["resource"] = l.T("resources." + key)
	return p
}

func keyed(sentinel error, code string, status int, messageKey string, params map[string]string) *AppError {
	return &AppError{
		Err:        sentinel,
		Code:       code,
		Message:    i18n.T(messageKey, params),
		MessageKey: messageKey,
		Params:     params,
		StatusCode: status,
	}
}

// NotFoundWithKey reports a missing resource named by a resources.* key
func NotFoundWithKey(resourceKey string) *AppError {
	return keyed(ErrNotFound, CodeNotFound, http.StatusNotFound, "errors.not_found", map[string]string{
		"resource":     i18n.T("resources." + resourceKey),
		"resource_key": resourceKey,
	})
}

// NotFoundMessage reports an empty result with its own errors.* message
func NotFoundMessage(messageKey string) *AppError {
	return keyed(ErrNotFound, CodeNotFound, http.StatusNotFound, messageKey, nil)
}

// BadRequest reports a malformed request. detail is kept for logs only.
func BadRequest(detail string) *AppError {
	e := keyed(ErrBadRequest, CodeBadRequest, http.StatusBadRequest, "errors.bad_request", nil)
	e.Err = fmt.Errorf("%w: %s", ErrBadRequest, detail)
	return e
}

// InvalidJSON reports a body that could not be decoded
func InvalidJSON(cause error) *AppError {
	e := keyed(ErrBadRequest, CodeBadRequest, http.StatusBadRequest, "errors.invalid_json", nil)
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", ErrBadRequest, cause)
	}
	return e
}

// Conflict reports a write that collides with an existing row
func Conflict(detail string) *AppError {
	e := keyed(ErrConflict, CodeConflict, http.StatusConflict, "errors.conflict", nil)
	e.Err = fmt.Errorf("%w: %s", ErrConflict, detail)
	return e
}

// Internal wraps an unexpected failure
func Internal(cause error) *AppError {
	e := keyed(ErrInternal, CodeInternal, http.StatusInternalServerError, "errors.internal", nil)
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", ErrInternal, cause)
	}
	return e
}

// Validation reports per-field failures; details are already localized
func Validation(details map[string]string) *AppError {
	e := keyed(ErrValidation, CodeValidation, http.StatusBadRequest, "errors.validation_failed", nil)
	e.Details = details
	return e
}

// PreconditionFailed rejects an operation the batch's current state does not allow.
// messageKey names the errors.* message rendered to the caller.
func PreconditionFailed(messageKey string, params map[string]string) *AppError {
	return keyed(ErrPreconditionFailed, CodePreconditionFailed, http.StatusBadRequest, messageKey, params)
}

// Storage wraps a failed durable write. Callers see a generic message; err is kept for logs.
func Storage(err error) *AppError {
	e := keyed(ErrStorage, CodeStorage, http.StatusInternalServerError, "errors.storage_failure", nil)
	e.Err = fmt.Errorf("%w: %w", ErrStorage, err)
	return e
}

// IsServerError reports whether err should be treated as a 5xx.
// Errors that are not AppErrors count as server errors.
func IsServerError(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr.StatusCode >= http.StatusInternalServerError
}

// Is reports whether err matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
