// Package apierror defines the error body returned by all http endpoints
package apierror

// Error codes
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeServerError    = "server_error"
)

// Error is the json body of an error response
type Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// InvalidRequest returns an invalid_request Error
func InvalidRequest(description string) Error {
	return Error{
		Error:            CodeInvalidRequest,
		ErrorDescription: description,
	}
}

// Unauthorized returns an unauthorized Error
func Unauthorized(description string) Error {
	return Error{
		Error:            CodeUnauthorized,
		ErrorDescription: description,
	}
}

// Forbidden returns a forbidden Error
func Forbidden(description string) Error {
	return Error{
		Error:            CodeForbidden,
		ErrorDescription: description,
	}
}

// NotFound returns a not_found Error
func NotFound(description string) Error {
	return Error{
		Error:            CodeNotFound,
		ErrorDescription: description,
	}
}

// ServerError returns a server_error Error
func ServerError(description string) Error {
	return Error{
		Error:            CodeServerError,
		ErrorDescription: description,
	}
}
