package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := InvalidState("cannot submit from status %q", "cancelled")
	require.Equal(t, KindInvalidState, KindOf(err))
	require.Equal(t, `cannot submit from status "cancelled"`, err.Error())

	// Kind survives wrapping with %w.
	wrapped := fmt.Errorf("submit failed: %w", err)
	require.Equal(t, KindInvalidState, KindOf(wrapped))
	require.True(t, Is(wrapped, KindInvalidState))

	require.Equal(t, KindInternal, KindOf(errors.New("plain")))
	require.Equal(t, KindInternal, KindOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("record not found")
	err := Wrap(KindNotFound, cause, "purchase order %s", "abc")
	require.ErrorIs(t, err, cause)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{InvalidState("x"), http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{Validation("x"), http.StatusBadRequest},
		{Configuration("x"), http.StatusUnprocessableEntity},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatus(tc.err))
	}
}
