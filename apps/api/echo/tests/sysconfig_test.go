package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/mentorbro/apps/api/echo"
	"github.com/trezcool/mentorbro/core/sysconfig"
)

func Test_systemConfigApi(t *testing.T) {
	e := setup(t)
	path := "/v1/system-config"

	runHTTPTests(t, e, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", method: http.MethodGet, path: path, token: e.reviewerToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid url", method: http.MethodPut, path: path, token: e.adminToken, body: []byte(`{"whapi": {"apiUrl": "nope"}}`),
			wantCode: http.StatusBadRequest,
		},
	})

	// defaults are created on first read
	rec := e.serve(http.MethodGet, path, e.adminToken)
	assertCode(t, rec, http.StatusOK)
	var conf sysconfig.SystemConfig
	unmarshallObj(t, rec, &conf)
	assert.NotEmpty(t, conf.ID)
	assert.True(t, conf.SendMailOnReviewerAssignToStudent)
	assert.True(t, conf.ReceiveMessageOnWhatsappInReviewSchedule)
	assert.Equal(t, "https://gate.whapi.cloud", conf.Whapi.APIURL)

	rec = e.serve(http.MethodPost, path+"/ensure", e.adminToken)
	assertCode(t, rec, http.StatusOK)
	var ensured sysconfig.SystemConfig
	unmarshallObj(t, rec, &ensured)
	assert.Equal(t, conf.ID, ensured.ID, "idempotent")

	rec = e.serve(http.MethodGet, path+"/credentials/whapi", e.adminToken)
	assertCode(t, rec, http.StatusOK)
	var status echoapi.CredentialsStatus
	unmarshallObj(t, rec, &status)
	assert.False(t, status.Valid)

	// partial update
	rec = e.serve(http.MethodPut, path, e.adminToken, []byte(`{
		"whapi": {"token": " tok "},
		"receiveMessageOnWhatsappInReviewSchedule": false
	}`))
	assertCode(t, rec, http.StatusOK)
	var updated sysconfig.SystemConfig
	unmarshallObj(t, rec, &updated)
	assert.Equal(t, conf.ID, updated.ID)
	assert.Equal(t, "tok", updated.Whapi.Token)
	assert.Equal(t, "https://gate.whapi.cloud", updated.Whapi.APIURL, "untouched fields are kept")
	assert.False(t, updated.ReceiveMessageOnWhatsappInReviewSchedule)
	assert.True(t, updated.SendMailOnReviewerAssignToStudent)

	rec = e.serve(http.MethodGet, path+"/credentials/whapi", e.adminToken)
	unmarshallObj(t, rec, &status)
	assert.Equal(t, echoapi.CredentialsStatus{Section: sysconfig.SectionWhapi, Valid: true}, status)
}
