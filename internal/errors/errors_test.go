package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/logging"
)

func TestErrorString(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, "step failed").WithOperation("Step").WithComponent("server")

	assert.Equal(t, "step failed: operation=Step, component=server: boom", err.Error())
	assert.NotEmpty(t, err.StackTrace())
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
		code   int
	}{
		{"invalid", Invalidf("turbines=%d", -1), InvalidArgument, http.StatusBadRequest, -32602},
		{"not found", NotFoundf("layout %q", "x"), NotFound, http.StatusNotFound, -32004},
		{"conflict", Conflictf("too many sessions"), Conflict, http.StatusConflict, -32009},
		{"plain", stderrors.New("plain"), Internal, http.StatusInternalServerError, -32000},
		{"wrapped", fmt.Errorf("outer: %w", NotFoundf("inner")), NotFound, http.StatusNotFound, -32004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, RPCCode(tt.err))
		})
	}
}

func TestIsAndAs(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := Wrap(sentinel, "context")

	assert.True(t, Is(err, sentinel))
	assert.Equal(t, sentinel, Unwrap(err))

	var target *Error
	require.True(t, As(fmt.Errorf("x: %w", err), &target))
	assert.Equal(t, "context", target.Message)
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.ErrorLevel, &buf)

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("angle index out of range")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/layouts", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Internal Server Error","kind":"internal"}`, rr.Body.String())
	assert.Contains(t, buf.String(), "Recovered from panic")
	assert.Contains(t, buf.String(), "angle index out of range")
}

func TestRecoveryMiddlewareReraisesAbort(t *testing.T) {
	logger := logging.New(logging.ErrorLevel, &bytes.Buffer{})
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
