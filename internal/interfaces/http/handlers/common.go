// Package handlers implements the read-only HTTP API over stored judgment
// records and citation graphs.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// respondError maps err onto its HTTP status.  Server-side failures are
// masked with the default message of their code.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)
	body := APIError{Code: string(code), Message: err.Error()}

	var ae *errors.AppError
	if errors.As(err, &ae) {
		body.Message = ae.Message
		body.Detail = ae.Detail
	}
	if status >= http.StatusInternalServerError {
		body.Message = errors.DefaultMessageForCode(code)
		body.Detail = ""
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// queryInt reads an optional integer query parameter bounded by [min, max].
func queryInt(c *gin.Context, name string, def, min, max int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, errors.Newf(errors.ErrCodeValidation, "%s must be an integer in [%d, %d]", name, min, max).
			WithDetail(name + "=" + raw)
	}
	return v, nil
}
