package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Use with NewSubSystemError so ErrorCodeOf can resolve
// the (sentinel, subsystem) pair to a specific code.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicate     = fmt.Errorf("duplicate")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrLimitReached  = fmt.Errorf("limit reached")
	ErrDisabled      = fmt.Errorf("disabled")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
	ErrMisconfigured = fmt.Errorf("invalid configuration")
)

// Sentinel errors for the domain layer.
var (
	ErrConfigLoad    = fmt.Errorf("failed to load configuration")
	ErrEmptyResponse = fmt.Errorf("model returned empty response")
	ErrCircuitOpen   = fmt.Errorf("engine circuit open")
	ErrUnauthorized  = fmt.Errorf("unauthorized")
	ErrAuditWrite    = fmt.Errorf("failed to write audit log")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Resolver.Resolve")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "task", "model"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsConfigurationError reports whether err belongs to the configuration
// taxonomy: bad model identifier, unsupported provider, unknown or disabled
// agent, or malformed tool input. These are raised before any execution and
// are never retried.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMisconfigured) || errors.Is(err, ErrDisabled) || errors.Is(err, ErrInvalidInput) {
		return true
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.SubSystem == "agent" && errors.Is(de.Err, ErrNotFound)
	}
	return false
}

// ErrorCode is a machine-parseable error category for tool payloads and logs.
type ErrorCode string

const (
	CodeUnknown             ErrorCode = "UNKNOWN"
	CodeConfigLoad          ErrorCode = "CONFIG_LOAD"
	CodeEmptyResponse       ErrorCode = "EMPTY_RESPONSE"
	CodeCircuitOpen         ErrorCode = "CIRCUIT_OPEN"
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeAuditWrite          ErrorCode = "AUDIT_WRITE"
	CodeTaskNotFound        ErrorCode = "TASK_NOT_FOUND"
	CodeAgentNotFound       ErrorCode = "AGENT_NOT_FOUND"
	CodeAgentDisabled       ErrorCode = "AGENT_DISABLED"
	CodeModelIDInvalid      ErrorCode = "MODEL_ID_INVALID"
	CodeProviderUnsupported ErrorCode = "PROVIDER_UNSUPPORTED"
	CodeEngineFailure       ErrorCode = "ENGINE_FAILURE"
	CodeEngineTimeout       ErrorCode = "ENGINE_TIMEOUT"
	CodeBatchTooLarge       ErrorCode = "BATCH_TOO_LARGE"
	CodeImageInvalid        ErrorCode = "IMAGE_INVALID"

	// Category error codes: fallback codes when no subsystem-specific code matches.
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeDuplicate     ErrorCode = "DUPLICATE"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeLimitReached  ErrorCode = "LIMIT_REACHED"
	CodeDisabled      ErrorCode = "DISABLED"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
	CodeMisconfigured ErrorCode = "MISCONFIGURED"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:      CodeNotFound,
	ErrDuplicate:     CodeDuplicate,
	ErrTimeout:       CodeTimeout,
	ErrLimitReached:  CodeLimitReached,
	ErrDisabled:      CodeDisabled,
	ErrInvalidInput:  CodeInvalidInput,
	ErrProviderError: CodeProviderError,
	ErrMisconfigured: CodeMisconfigured,

	ErrConfigLoad:    CodeConfigLoad,
	ErrEmptyResponse: CodeEmptyResponse,
	ErrCircuitOpen:   CodeCircuitOpen,
	ErrUnauthorized:  CodeUnauthorized,
	ErrAuditWrite:    CodeAuditWrite,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"task":  CodeTaskNotFound,
		"agent": CodeAgentNotFound,
	},
	ErrDisabled: {
		"agent": CodeAgentDisabled,
	},
	ErrMisconfigured: {
		"model":    CodeModelIDInvalid,
		"provider": CodeProviderUnsupported,
	},
	ErrTimeout: {
		"engine": CodeEngineTimeout,
	},
	ErrProviderError: {
		"engine": CodeEngineFailure,
	},
	ErrLimitReached: {
		"batch": CodeBatchTooLarge,
	},
	ErrInvalidInput: {
		"image": CodeImageInvalid,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	var inner *DomainError
	if errors.As(e.Err, &inner) {
		return inner.Code()
	}
	return CodeUnknown
}
