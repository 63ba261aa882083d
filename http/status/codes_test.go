package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	require.Equal(t, Status("OK"), Text(OK))
	require.Equal(t, Status("Not Found"), Text(NotFound))
	require.Equal(t, Status("Request Header Fields Too Large"), Text(RequestHeaderFieldsTooLarge))
	require.Empty(t, Text(599))
}

func TestAllowsBody(t *testing.T) {
	for _, code := range []Code{Continue, SwitchingProtocols, NoContent, NotModified} {
		require.False(t, AllowsBody(code), code)
	}

	for _, code := range []Code{OK, Created, NotFound, InternalServerError} {
		require.True(t, AllowsBody(code), code)
	}
}

func TestHTTPError(t *testing.T) {
	var httpErr HTTPError
	require.True(t, errors.As(ErrBodyTooLarge, &httpErr))
	require.Equal(t, RequestEntityTooLarge, httpErr.Code)
	require.Equal(t, "request body is too large", ErrBodyTooLarge.Error())
	require.False(t, Valid(42))
	require.True(t, Valid(NotFound))
}
