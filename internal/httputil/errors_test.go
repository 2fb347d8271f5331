package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sitegate/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAbortWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		accept     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "auth denied as text",
			err:        domain.WrapAuthDenied("you are not a member of the required organization", nil),
			wantStatus: http.StatusForbidden,
			wantBody:   "you are not a member of the required organization\n",
		},
		{
			name:       "network failure hides details",
			err:        domain.WrapNetworkOperation("token exchange", errors.New("dial tcp: i/o timeout")),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "authentication with GitHub failed\n",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "An error occurred\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			AbortWithError(c, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if !c.IsAborted() {
				t.Error("expected context to be aborted")
			}
		})
	}
}

func TestAbortWithErrorJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Accept", "application/json")

	AbortWithError(c, domain.WrapAuthFailed("invalid or expired authorization code", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != "Unauthorized" || resp.Details != "invalid or expired authorization code" {
		t.Errorf("unexpected response %+v", resp)
	}
}
