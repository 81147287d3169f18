package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ServiceNotFound indicates an id that no catalog of the group declares
	ServiceNotFound ErrorCode = "SERVICE_NOT_FOUND"
	// GroupNotFound indicates an unknown configuration group
	GroupNotFound ErrorCode = "GROUP_NOT_FOUND"
	// ConfigMissing indicates a service id with no configuration map
	ConfigMissing ErrorCode = "CONFIG_MISSING"
	// CatalogInvalid indicates a malformed service catalog file
	CatalogInvalid ErrorCode = "CATALOG_INVALID"
	// ProfileNotFound indicates a missing saved profile
	ProfileNotFound ErrorCode = "PROFILE_NOT_FOUND"
	// ProfileNameRequired indicates a profile operation without a name
	ProfileNameRequired ErrorCode = "PROFILE_NAME_REQUIRED"
	// StoreUnavailable indicates the profile database could not be used
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// RetrieverError represents an error with code, message, and suggestions
type RetrieverError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a RetrieverError carrying the default fixes for its code.
func New(code ErrorCode, message string, cause error) *RetrieverError {
	return &RetrieverError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *RetrieverError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *RetrieverError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RetrieverError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *RetrieverError) WithDetails(details interface{}) *RetrieverError {
	e.Details = details
	return e
}

// Is matches any RetrieverError with the same code, so callers can write
// errors.Is(err, errors.Newf(errors.ServiceNotFound, "")).
func (e *RetrieverError) Is(target error) bool {
	var other *RetrieverError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// CodeOf extracts the code of the first RetrieverError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var re *RetrieverError
	if stderrors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ServiceNotFound: {
		{
			Type:        RunCommand,
			Command:     "retriever services",
			Safe:        true,
			Description: "List the services declared by each group",
		},
	},
	GroupNotFound: {
		{
			Type:        RunCommand,
			Command:     "retriever config show",
			Safe:        true,
			Description: "Show the configured groups",
		},
	},
	CatalogInvalid: {
		{
			Type:        EditFile,
			Path:        "SERVICES.toml",
			Description: "Fix the service declaration reported in the error",
		},
	},
	ProfileNotFound: {
		{
			Type:        RunCommand,
			Command:     "retriever profile list",
			Safe:        true,
			Description: "List saved profiles",
		},
	},
	ProfileNameRequired: {
		{
			Type:        RunCommand,
			Command:     "retriever profile save <name>",
			Safe:        true,
			Description: "Pass a non-empty profile name",
		},
	},
	StoreUnavailable: {
		{
			Type:        EditFile,
			Path:        ".retriever/config.json",
			Description: "Check store.path points to a writable location",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
