package whatsapp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/services/whatsapp"
	"github.com/trezcool/mentorbro/storage/database/inmem"
	"github.com/trezcool/mentorbro/tests"
)

type whapiRequest struct {
	Auth string
	To   string `json:"to"`
	Body string `json:"body"`
}

type fakeWhapi struct {
	*httptest.Server
	mu       sync.Mutex
	requests []whapiRequest
	status   int
	response string
}

func newFakeWhapi(t *testing.T) *fakeWhapi {
	f := &fakeWhapi{status: http.StatusOK, response: `{"sent":true,"message":{"id":"msg-1"}}`}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages/text", r.URL.Path)

		var req whapiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		req.Auth = r.Header.Get("Authorization")

		f.mu.Lock()
		f.requests = append(f.requests, req)
		status, response := f.status, f.response
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeWhapi) Requests() []whapiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]whapiRequest(nil), f.requests...)
}

func newClient(t *testing.T, apiURL, token, defaultNumber string) (*whatsapp.Client, *sysconfig.Service) {
	conf := core.NewTestConfig()
	conf.Whapi.APIURL = apiURL
	conf.Whapi.Token = token
	conf.Whapi.DefaultNumber = defaultNumber
	settings := sysconfig.NewService(inmemdb.NewConfigRepository(inmemdb.Open()), core.NewValidator(core.NewTranslator()))
	return whatsapp.NewClient(conf, settings, testutil.NewLogger(t)), settings
}

func TestClient_SendTextMessage(t *testing.T) {
	tests := []struct {
		name          string
		token         string
		defaultNumber string
		to            string
		body          string
		wantTo        string
		wantErr       string
	}{
		{name: "10 digit number", token: "tok", to: "98765 43210", body: "hi", wantTo: "919876543210@s.whatsapp.net"},
		{name: "with country code", token: "tok", to: "+44 7911 123456", body: "hi", wantTo: "447911123456@s.whatsapp.net"},
		{name: "group id", token: "tok", to: "120363417698652224@g.us", body: "hi", wantTo: "120363417698652224@g.us"},
		{name: "default number", token: "tok", defaultNumber: "9876543210", body: "hi", wantTo: "919876543210@s.whatsapp.net"},
		{name: "not configured", to: "9876543210", body: "hi", wantErr: notify.ErrNotConfigured},
		{name: "no recipient", token: "tok", body: "hi", wantErr: notify.ErrNoRecipient},
		{name: "no content", token: "tok", to: "9876543210", body: " ", wantErr: notify.ErrNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeWhapi(t)
			client, _ := newClient(t, srv.URL, tt.token, tt.defaultNumber)

			res := client.SendTextMessage(context.Background(), tt.to, tt.body)
			if tt.wantErr != "" {
				assert.False(t, res.Success)
				assert.Equal(t, tt.wantErr, res.Error)
				assert.Empty(t, srv.Requests())
				return
			}

			require.True(t, res.Success, res.Error)
			reqs := srv.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.wantTo, reqs[0].To)
			assert.Equal(t, tt.body, reqs[0].Body)
			assert.Equal(t, "Bearer tok", reqs[0].Auth)
			assert.Equal(t, true, res.Data.(map[string]interface{})["sent"])
		})
	}
}

func TestClient_SendTextMessage_apiError(t *testing.T) {
	srv := newFakeWhapi(t)
	srv.status = http.StatusUnauthorized
	srv.response = `{"message":"invalid token"}`
	client, _ := newClient(t, srv.URL, "tok", "")

	res := client.SendTextMessage(context.Background(), "9876543210", "hi")
	assert.False(t, res.Success)
	assert.Equal(t, "invalid token", res.Error)

	srv.response = `oops`
	res = client.SendTextMessage(context.Background(), "9876543210", "hi")
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to send WhatsApp message", res.Error)
}

func TestClient_SendTextMessage_unreachable(t *testing.T) {
	srv := newFakeWhapi(t)
	srv.Close()
	client, _ := newClient(t, srv.URL, "tok", "")

	res := client.SendTextMessage(context.Background(), "9876543210", "hi")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestClient_SendTextMessage_cancelled(t *testing.T) {
	srv := newFakeWhapi(t)
	client, _ := newClient(t, srv.URL, "tok", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := client.SendTextMessage(ctx, "9876543210", "hi")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.Canceled.Error())
	assert.Empty(t, srv.Requests())
}

func TestClient_storedCredentials(t *testing.T) {
	// stored credentials win over the environment ones once valid
	ctx := context.Background()
	env := newFakeWhapi(t)
	stored := newFakeWhapi(t)
	client, settings := newClient(t, env.URL, "env-token", "")

	tok, url, num := "db-token", stored.URL, "9123456780"
	_, err := settings.Update(ctx, sysconfig.Update{Whapi: &sysconfig.WhapiUpdate{Token: &tok, APIURL: &url, DefaultNumber: &num}})
	require.NoError(t, err)

	res := client.SendTextMessage(ctx, "", "hi")
	require.True(t, res.Success, res.Error)
	assert.Empty(t, env.Requests())
	reqs := stored.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer db-token", reqs[0].Auth)
	assert.Equal(t, "919123456780@s.whatsapp.net", reqs[0].To)
}

func TestClient_SendNotification(t *testing.T) {
	srv := newFakeWhapi(t)
	client, _ := newClient(t, srv.URL, "tok", "")
	ctx := context.Background()

	res := client.SendNotification(ctx, "9876543210", notify.ReviewReminder, notify.Data{
		StudentName:  "Asha",
		TaskName:     "Week 1",
		ReviewerName: "Ravi",
		Time:         "10:30 AM",
	})
	require.True(t, res.Success, res.Error)
	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Body, "Review Reminder for *Ravi*")
	assert.Contains(t, reqs[0].Body, "*10:30 AM*")

	res = client.SendNotification(ctx, "9876543210", notify.TemplateType("UNKNOWN"), notify.Data{})
	assert.False(t, res.Success)
	assert.Equal(t, notify.ErrNoContent, res.Error)

	res = client.SendNotification(ctx, "9876543210", notify.TemplateType("UNKNOWN"), notify.Data{Message: "free text"})
	require.True(t, res.Success)
	assert.Equal(t, "free text", srv.Requests()[1].Body)
}
