package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/provider"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", apperr.NotFound("pattern p1 not found"), http.StatusNotFound},
		{"conflict", apperr.Conflict("already rescued"), http.StatusConflict},
		{"validation", apperr.Validation("missing folder"), http.StatusBadRequest},
		// Upstream throttling is transient, not a server fault.
		{"rate limited", &provider.RateLimitedError{}, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
