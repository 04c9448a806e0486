package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
)

func postTurn(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/dialog/turn", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleTurn_RejectsMalformedBody(t *testing.T) {
	handler := handleTurn(nil, nil, zap.NewNop())

	rec := postTurn(t, handler, "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.ReplyError))
}

func TestHandleTurn_RequiresBusinessAndSession(t *testing.T) {
	handler := handleTurn(nil, nil, zap.NewNop())

	rec := postTurn(t, handler, `{"utterance":{"intent":"create_appointment"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postTurn(t, handler, `{"business_id":1,"utterance":{"intent":"create_appointment"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "session_key обязателен")
}

func TestWriteJSON_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, model.NoneReply())

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"none"`)
}
