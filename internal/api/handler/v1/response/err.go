package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"
)

// Err is the body of every error response.
type Err struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string            `json:"status"`
	ErrorText  string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (e *Err) Error() string {
	return e.ErrorText
}

func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error(e.StatusText,
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(e.Err),
		)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

// ErrBadRequest reports invalid input. ozzo-validation errors are split into
// per-field messages.
func ErrBadRequest(err error) *Err {
	e := &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		e.ErrorText = "Validation failed."
		e.Fields = make(map[string]string, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			e.Fields[field] = fieldErr.Error()
		}
	}

	return e
}

func ErrUnauthorized(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Authentication required.",
		ErrorText:      err.Error(),
	}
}

func ErrWrongCredentials(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Wrong credentials.",
		ErrorText:      "invalid username or password",
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFound(resource, key string, value any) *Err {
	err := fmt.Errorf("%s with %s %v not found", resource, key, value)

	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrTooManyRequests() *Err {
	return &Err{
		HTTPStatusCode: http.StatusTooManyRequests,
		StatusText:     "Too many requests.",
		ErrorText:      "rate limit exceeded, try again later",
	}
}

func ErrBadGateway(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadGateway,
		StatusText:     "Upstream service failed.",
		ErrorText:      "the upload service could not store the file",
	}
}

func ErrServiceUnavailable(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Service unavailable.",
		ErrorText:      "a backing service is unreachable",
	}
}

// ErrInternalServerError hides the cause from the client; RenderErr logs it.
func ErrInternalServerError(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
		ErrorText:      "something went wrong",
	}
}
