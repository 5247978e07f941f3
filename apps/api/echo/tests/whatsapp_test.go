package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorbro/core/notify"
)

func Test_whatsappApi(t *testing.T) {
	e := setup(t)

	runHTTPTests(t, e, []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/whatsapp/send-text",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/whatsapp/send-text", token: e.studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown template", method: http.MethodPost, path: "/v1/whatsapp/send-notification", token: e.adminToken,
			body:     []byte(`{"to": "9876543210", "templateType": "HELLO"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, notify.Failed(notify.ErrNoContent)),
		},
		{
			name: "text sent", method: http.MethodPost, path: "/v1/whatsapp/send-text", token: e.adminToken,
			body:     []byte(`{"to": "9876543210", "message": "hello"}`),
			wantData: marchallObj(t, notify.Succeeded(nil)),
		},
	})

	rec := e.serve(http.MethodPost, "/v1/whatsapp/send-notification", e.adminToken, []byte(`{
		"to": "9876543210",
		"templateType": "REVIEW_SCHEDULED",
		"data": {"studentName": "Asha", "taskName": "Week 1", "date": "2025-01-25", "time": "10:00 AM"}
	}`))
	assertCode(t, rec, http.StatusOK)
	sent := e.transport.SentOf(notify.ReviewScheduled)
	require.Len(t, sent, 1)
	assert.Equal(t, "Asha", sent[0].Data.StudentName)
	assert.Contains(t, sent[0].Body, "25/01/2025")

	e.transport.Fail = notify.ErrNotConfigured
	rec = e.serve(http.MethodPost, "/v1/whatsapp/send-text", e.adminToken, []byte(`{"to": "9876543210", "message": "hello"}`))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, notify.Failed(notify.ErrNotConfigured)),
	}, rec)
}
