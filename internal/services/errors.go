package services

import (
	"context"
	"errors"
	"strings"
)

// Taxonomy markers. Stage, routing, and validation code tags failures with one
// of these so the orchestrator can classify them without string matching.
var (
	ErrStageTransient    = errors.New("stage transient error")
	ErrStageFatal        = errors.New("stage fatal error")
	ErrDuplicateConflict = errors.New("duplicate conflict")
	ErrDataConflict      = errors.New("data conflict")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrRoutingFailure    = errors.New("routing failure")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrRunActive     = errors.New("run already active")
)

// Kind names an error class surfaced to callers.
type Kind string

const (
	KindStageTransient    Kind = "StageTransientError"
	KindStageFatal        Kind = "StageFatalError"
	KindDuplicateConflict Kind = "DuplicateConflict"
	KindDataConflict      Kind = "DataConflict"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindRoutingFailure    Kind = "RoutingFailure"
	KindValidation        Kind = "Validation"
	KindConfiguration     Kind = "Configuration"
	KindNotFound          Kind = "NotFound"
	KindTimeout           Kind = "Timeout"
	KindRunActive         Kind = "RunActive"
	KindCanceled          Kind = "Canceled"
	KindUnknown           Kind = "Unknown"
)

var kindOrder = []struct {
	marker error
	kind   Kind
}{
	{ErrStageFatal, KindStageFatal},
	{ErrStageTransient, KindStageTransient},
	{ErrDuplicateConflict, KindDuplicateConflict},
	{ErrDataConflict, KindDataConflict},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrRoutingFailure, KindRoutingFailure},
	{ErrRunActive, KindRunActive},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrNotFound, KindNotFound},
	{ErrTimeout, KindTimeout},
}

// ServiceError carries the classification marker together with stage context.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Marker != nil {
		b.WriteString(e.Marker.Error())
		b.WriteString(": ")
	}
	b.WriteString(buildDetail(e.Stage, e.Operation, e.Message))
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrStageTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithHint attaches an operator hint to a wrapped error. Errors that were not
// produced by Wrap are wrapped as transient first.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		clone := *svcErr
		clone.Hint = strings.TrimSpace(hint)
		return &clone
	}
	return &ServiceError{Marker: ErrStageTransient, Message: err.Error(), Hint: strings.TrimSpace(hint), Cause: err}
}

// ErrorDetails is the flattened view of a classified error.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts classification and context from err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err)}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Message = svcErr.Message
		details.Hint = svcErr.Hint
		details.Cause = svcErr.Cause
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

// KindOf maps err onto the error taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindOrder {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindUnknown
}

// Retryable reports whether re-running the whole pipeline may succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStageTransient, KindRoutingFailure, KindTimeout:
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
