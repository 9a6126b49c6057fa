package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/kaupskip/email-service/internal/core/domain/emaillog"
	"github.com/kaupskip/email-service/internal/core/ports"
	"github.com/kaupskip/email-service/internal/infrastructure/httpserver"
)

type verificationServiceMock struct {
	IssueFn   func(ctx context.Context, userID, email string) (string, error)
	ConfirmFn func(ctx context.Context, userID, code string) (bool, error)
}

func (m *verificationServiceMock) Issue(ctx context.Context, userID, email string) (string, error) {
	if m.IssueFn != nil {
		return m.IssueFn(ctx, userID, email)
	}
	return "code-x", nil
}

func (m *verificationServiceMock) Confirm(ctx context.Context, userID, code string) (bool, error) {
	if m.ConfirmFn != nil {
		return m.ConfirmFn(ctx, userID, code)
	}
	return false, nil
}

type mailerMock struct {
	SendFn  func(ctx context.Context, intent ports.NotificationIntent) ports.SendResult
	Intents []ports.NotificationIntent
}

func (m *mailerMock) Send(ctx context.Context, intent ports.NotificationIntent) ports.SendResult {
	m.Intents = append(m.Intents, intent)
	if m.SendFn != nil {
		return m.SendFn(ctx, intent)
	}
	return ports.SendResult{Delivered: true}
}

type emailLogRepoMock struct {
	CreateFn func(ctx context.Context, log *emaillog.EmailLog) error
	ListFn   func(ctx context.Context, filter *emaillog.Filter) ([]*emaillog.EmailLog, error)
}

func (m *emailLogRepoMock) Create(ctx context.Context, log *emaillog.EmailLog) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, log)
	}
	return nil
}

func (m *emailLogRepoMock) List(ctx context.Context, filter *emaillog.Filter) ([]*emaillog.EmailLog, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return nil, nil
}

func newTestServer(t *testing.T, svc ports.VerificationService, mailer ports.Mailer, logs ports.EmailLogRepository) *httptest.Server {
	t.Helper()
	cfg := &httpserver.ServerConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
		SiteURL:      "https://kaupskip.example",
	}
	deps := httpserver.ServerDeps{
		VerificationService: svc,
		Mailer:              mailer,
		EmailLogRepository:  logs,
	}
	srv := httpserver.NewServer(cfg, logrus.New(), deps)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRequestVerification_Success(t *testing.T) {
	svc := &verificationServiceMock{IssueFn: func(ctx context.Context, userID, email string) (string, error) {
		require.Equal(t, "u1", userID)
		require.Equal(t, "a@b.com", email)
		return "issued-code", nil
	}}
	mailer := &mailerMock{}
	ts := newTestServer(t, svc, mailer, &emailLogRepoMock{})

	resp, out := postJSON(t, ts.URL+"/api/v1/verifications", map[string]string{"user_id": "u1", "email": "a@b.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["success"])

	require.Len(t, mailer.Intents, 1)
	intent := mailer.Intents[0]
	require.Equal(t, ports.KindVerification, intent.Kind)
	require.Equal(t, "a@b.com", intent.Recipient)
	require.Equal(t, "issued-code", intent.Data["token"])
	require.Equal(t, "https://kaupskip.example/verify?token=issued-code", intent.Data["url"])
}

func TestRequestVerification_InvalidBody(t *testing.T) {
	ts := newTestServer(t, &verificationServiceMock{}, &mailerMock{}, &emailLogRepoMock{})

	resp, _ := postJSON(t, ts.URL+"/api/v1/verifications", map[string]string{"user_id": "u1", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/api/v1/verifications", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestVerification_StoreUnavailable(t *testing.T) {
	svc := &verificationServiceMock{IssueFn: func(ctx context.Context, userID, email string) (string, error) {
		return "", ports.ErrStoreUnavailable
	}}
	ts := newTestServer(t, svc, &mailerMock{}, &emailLogRepoMock{})

	resp, out := postJSON(t, ts.URL+"/api/v1/verifications", map[string]string{"user_id": "u1", "email": "a@b.com"})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "store_unavailable", out["error"])
}

func TestRequestVerification_DeliveryFailed(t *testing.T) {
	mailer := &mailerMock{SendFn: func(ctx context.Context, intent ports.NotificationIntent) ports.SendResult {
		return ports.SendResult{Delivered: false}
	}}
	ts := newTestServer(t, &verificationServiceMock{}, mailer, &emailLogRepoMock{})

	resp, out := postJSON(t, ts.URL+"/api/v1/verifications", map[string]string{"user_id": "u1", "email": "a@b.com"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "delivery_failed", out["error"])
}

func TestCheckVerification(t *testing.T) {
	svc := &verificationServiceMock{ConfirmFn: func(ctx context.Context, userID, code string) (bool, error) {
		return userID == "u1" && code == "good", nil
	}}
	ts := newTestServer(t, svc, &mailerMock{}, &emailLogRepoMock{})

	resp, err := http.Get(ts.URL + "/api/v1/verifications/u1?code=good")
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["verified"])

	resp, err = http.Get(ts.URL + "/api/v1/verifications/u1?code=bad")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, out["verified"])

	// Missing code parameter is a client error.
	resp, err = http.Get(ts.URL + "/api/v1/verifications/u1")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckVerification_StoreUnavailable(t *testing.T) {
	svc := &verificationServiceMock{ConfirmFn: func(ctx context.Context, userID, code string) (bool, error) {
		return false, ports.ErrStoreUnavailable
	}}
	ts := newTestServer(t, svc, &mailerMock{}, &emailLogRepoMock{})

	resp, err := http.Get(ts.URL + "/api/v1/verifications/u1?code=x")
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, false, out["verified"])
	require.Equal(t, "store_unavailable", out["error"])
}

func TestListEmailLogs(t *testing.T) {
	now := time.Now().UTC()
	logs := &emailLogRepoMock{ListFn: func(ctx context.Context, filter *emaillog.Filter) ([]*emaillog.EmailLog, error) {
		require.Equal(t, 5, filter.Limit)
		require.Equal(t, 10, filter.Offset)
		return []*emaillog.EmailLog{{EmailTo: "a@b.com", EmailType: "verification", Status: emaillog.StatusSent, SentAt: &now, CreatedAt: now}}, nil
	}}
	ts := newTestServer(t, &verificationServiceMock{}, &mailerMock{}, logs)

	resp, err := http.Get(ts.URL + "/api/v1/email-logs?limit=5&offset=10")
	require.NoError(t, err)
	var out []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out, 1)
	require.Equal(t, "a@b.com", out[0]["email_to"])

	resp, err = http.Get(ts.URL + "/api/v1/email-logs?limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
