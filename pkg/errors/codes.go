package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeRateLimited        ErrorCode = "COMMON_007"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeSearchError        ErrorCode = "COMMON_015"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Aliases kept short for call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// Judgment Pipeline Error Codes
const (
	ErrCodeNoInput           ErrorCode = "JDG_001"
	ErrCodeJudgmentNotFound  ErrorCode = "JDG_002"
	ErrCodeRecordInvalid     ErrorCode = "JDG_003"
	ErrCodeIdentifierInvalid ErrorCode = "JDG_004"
	ErrCodeDocumentDecode    ErrorCode = "JDG_005"
	ErrCodeClassifierFailed  ErrorCode = "JDG_006"
	ErrCodeExportFailed      ErrorCode = "JDG_007"
)

// Citation Graph Error Codes
const (
	ErrCodeGraphEmpty         ErrorCode = "GRF_001"
	ErrCodeGraphInvalidEdge   ErrorCode = "GRF_002"
	ErrCodeLayoutFailed       ErrorCode = "GRF_003"
	ErrCodeGraphConfigInvalid ErrorCode = "GRF_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeSearchError:        http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeNoInput:           http.StatusBadRequest,
	ErrCodeJudgmentNotFound:  http.StatusNotFound,
	ErrCodeRecordInvalid:     http.StatusUnprocessableEntity,
	ErrCodeIdentifierInvalid: http.StatusBadRequest,
	ErrCodeDocumentDecode:    http.StatusBadRequest,
	ErrCodeClassifierFailed:  http.StatusInternalServerError,
	ErrCodeExportFailed:      http.StatusInternalServerError,

	ErrCodeGraphEmpty:         http.StatusNotFound,
	ErrCodeGraphInvalidEdge:   http.StatusUnprocessableEntity,
	ErrCodeLayoutFailed:       http.StatusInternalServerError,
	ErrCodeGraphConfigInvalid: http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeRateLimited:        "rate limit exceeded",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeSearchError:        "search index error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeNoInput:           "no input documents",
	ErrCodeJudgmentNotFound:  "judgment not found",
	ErrCodeRecordInvalid:     "invalid judgment record",
	ErrCodeIdentifierInvalid: "invalid application number",
	ErrCodeDocumentDecode:    "failed to decode raw documents",
	ErrCodeClassifierFailed:  "text classifier failed",
	ErrCodeExportFailed:      "failed to export results",

	ErrCodeGraphEmpty:         "citation graph is empty",
	ErrCodeGraphInvalidEdge:   "invalid citation edge",
	ErrCodeLayoutFailed:       "graph layout failed",
	ErrCodeGraphConfigInvalid: "invalid graph configuration",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
