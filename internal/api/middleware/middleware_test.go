package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/blitzarena/internal/testutil"
)

func TestRecoveryWritesInternalError(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")

	entry, ok := logs.Find("panic recovered")
	require.True(t, ok)
	assert.Equal(t, "api", entry["component"])
}
