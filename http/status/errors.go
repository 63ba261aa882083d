package status

// HTTPError is an error carrying the status code it must be answered with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrTooLongRequestLine      = NewError(RequestURITooLong, "request line is too long")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
	ErrBadContentLength        = NewError(BadRequest, "malformed Content-Length value")
	ErrBadEncoding             = NewError(NotImplemented, "unsupported transfer encoding")
	ErrNotFound                = NewError(NotFound, "not found")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrRequestTimeout          = NewError(RequestTimeout, "request timeout")
)
