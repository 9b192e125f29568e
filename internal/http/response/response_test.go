package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fieldsales-backend/internal/platform/ctxutil"
)

func TestRespondErrorCarriesRequestIDAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodGet, "/api/visits/9", nil)
	c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{RequestID: "req-9"}))

	RespondError(c, http.StatusNotFound, "visit_not_found", errors.New("visit 9 not found"))

	if rec.Code != http.StatusNotFound || !c.IsAborted() {
		t.Fatalf("status=%d aborted=%v", rec.Code, c.IsAborted())
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "visit_not_found" || env.Error.RequestID != "req-9" || env.Error.Message != "visit 9 not found" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(c.Errors) != 1 {
		t.Fatalf("expected the error recorded on the context, got %v", c.Errors)
	}
}

func TestRespondErrorWithoutCauseUsesStatusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondError(c, http.StatusInternalServerError, "visit_service_missing", nil)

	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Message != "Internal Server Error" || env.Error.RequestID != "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}
