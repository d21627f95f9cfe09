// Package errors provides standardized error handling for the research
// process workers and the gateway.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSearchAPIFailed ErrorCode = "SEARCH_API_FAILED"
	ErrCodeSearchTimeout   ErrorCode = "SEARCH_TIMEOUT"

	ErrCodeScrapeFailed    ErrorCode = "SCRAPE_FAILED"
	ErrCodeScrapeTimeout   ErrorCode = "SCRAPE_TIMEOUT"
	ErrCodeWebsiteNotFound ErrorCode = "WEBSITE_NOT_FOUND"

	ErrCodeExtractionInvalidType ErrorCode = "EXTRACTION_INVALID_TYPE"

	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeLLMUnavailable     ErrorCode = "LLM_UNAVAILABLE"

	ErrCodeReportStoreFailed ErrorCode = "REPORT_STORE_FAILED"
	ErrCodeReportNotFound    ErrorCode = "REPORT_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeBrokerUnavailable        ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewSearchAPIFailedError creates a retryable search provider error.
func NewSearchAPIFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchAPIFailed,
		Message:   "Search API request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a non-retryable search timeout error.
// Search steps degrade to empty results instead of stalling the process.
func NewSearchTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Search API timed out",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScrapeFailedError creates a retryable scrape provider error.
func NewScrapeFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScrapeFailed,
		Message:   "Website scrape failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScrapeTimeoutError creates a non-retryable scrape timeout error.
func NewScrapeTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScrapeTimeout,
		Message:   "Website scrape timed out",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebsiteNotFoundError creates a non-retryable resolution error.
func NewWebsiteNotFoundError(companyName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebsiteNotFound,
		Message:   "No official website could be resolved",
		Details:   fmt.Sprintf("companyName: %s", companyName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionInvalidTypeError creates a non-retryable input error.
func NewExtractionInvalidTypeError(dataType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionInvalidType,
		Message:   "Unsupported extraction data type",
		Details:   fmt.Sprintf("dataType: %s", dataType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable model timeout error.
func NewLLMTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Language model request timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMSynthesisFailedError creates a retryable synthesis error.
func NewLLMSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMSynthesisFailed,
		Message:   "Report synthesis failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMUnavailableError creates a non-retryable provider configuration error.
func NewLLMUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMUnavailable,
		Message:   "No language model provider is available",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportStoreFailedError creates a retryable storage error.
func NewReportStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportStoreFailed,
		Message:   "Failed to persist research report",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportNotFoundError creates a non-retryable lookup error.
func NewReportNotFoundError(requestID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportNotFound,
		Message:   "Report not found",
		Details:   fmt.Sprintf("requestId: %s", requestID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a terminal delivery error; the
// process routes it via a BPMN error boundary rather than retrying.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Report delivery failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable infrastructure error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBrokerUnavailableError creates a retryable broker error.
func NewBrokerUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBrokerUnavailable,
		Message:   "Workflow broker unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid request input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Classification Helpers
// ==========================

// GetRetryCount maps error codes to bounded retry counts for job failure.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSearchAPIFailed, ErrCodeScrapeFailed:
		return 2
	case ErrCodeLLMTimeout, ErrCodeLLMSynthesisFailed:
		return 1
	case ErrCodeReportStoreFailed, ErrCodeDatabaseConnectionFailed,
		ErrCodeBrokerUnavailable:
		return 3
	default:
		return 0
	}
}

// IsRetryableErrorCode reports whether the code is classified retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ConvertToBPMNError converts a StandardError into a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: stdErr.Metadata,
	}
}
