package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akumm2k/reversi/internal/api/apierr"
	"github.com/akumm2k/reversi/internal/api/middleware"
	"github.com/akumm2k/reversi/internal/testutil"
)

func TestRecoveryAnswersInternalError(t *testing.T) {
	h := middleware.Recovery(testutil.NopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/game/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, apierr.CodeInternalError, body.Error.Code)
}

func TestRecoveryRepanicsOnAbort(t *testing.T) {
	h := middleware.Recovery(testutil.NopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingPassesThroughStatusAndFlush(t *testing.T) {
	var flushed bool
	h := middleware.Logging(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
			flushed = true
		}
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "hi", rr.Body.String())
	assert.True(t, flushed)
	assert.True(t, rr.Flushed)
}

func TestResponseWriterHijackUnsupported(t *testing.T) {
	rw := &middleware.ResponseWriter{ResponseWriter: httptest.NewRecorder()}

	_, _, err := rw.Hijack()
	assert.Error(t, err)
	assert.NotNil(t, rw.Unwrap())
}
