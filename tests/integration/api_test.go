package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	httpHandler "thirdplace-webhooks/internal/adapter/http/handler"
	redisStorage "thirdplace-webhooks/internal/adapter/storage/redis"
	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/service"
	"thirdplace-webhooks/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAESKey       = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testTriggerToken = "test-trigger-token"
	testPassword     = "StrongPass123!"
)

// testApp builds the full application stack: real HTTP layer, middleware,
// handlers and services, with in-memory repos and miniredis behind the
// delivery claim store. This is the closest thing to a deployed instance
// that runs inside one test process.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	claimStore := redisStorage.NewClaimStore(rdb)

	// Core services with real implementations
	encSvc, err := service.NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	// In-memory repos
	configRepo := newInMemoryConfigRepo()
	deliveryRepo := newInMemoryDeliveryRepo(configRepo)
	adminRepo := newInMemoryAdminRepo()

	// Business services
	log := logger.New("error", false)
	authSvc := service.NewAuthService(adminRepo, hashSvc, tokenSvc)
	configSvc := service.NewWebhookConfigService(configRepo, deliveryRepo, encSvc, log)
	publisherSvc := service.NewPublisherService(configRepo, deliveryRepo, log)
	reportingSvc := service.NewReportingService(deliveryRepo)
	dispatchSvc := service.NewDispatchService(
		deliveryRepo,
		encSvc,
		sigSvc,
		claimStore,
		&http.Client{Timeout: 5 * time.Second},
		log,
		service.DispatchOptions{ClaimTTL: 500 * time.Millisecond},
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:      authSvc,
		ConfigSvc:    configSvc,
		ReportingSvc: reportingSvc,
		DispatchSvc:  dispatchSvc,
		PublisherSvc: publisherSvc,
		TokenSvc:     tokenSvc,
		TriggerToken: testTriggerToken,
		Logger:       log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server: server,
		redis:  mr,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// request performs an HTTP call against the test server, decodes the JSON
// body, and returns (statusCode, body).
func (a *testApp) request(t *testing.T, method, path string, body any, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func (a *testApp) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	code, _ := a.request(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	code, body := a.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, code)
	return body["data"].(map[string]interface{})["token"].(string)
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func triggerHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testTriggerToken}
}

func (a *testApp) createConfig(t *testing.T, token, url, secret string, events []string) string {
	t.Helper()

	payload := map[string]any{
		"name":   "test endpoint",
		"url":    url,
		"events": events,
	}
	if secret != "" {
		payload["secret_key"] = secret
	}
	code, body := a.request(t, http.MethodPost, "/api/v1/webhooks", payload, authHeader(token))
	require.Equal(t, http.StatusCreated, code, "body: %v", body)
	return body["data"].(map[string]interface{})["id"].(string)
}

func (a *testApp) publish(t *testing.T, eventType string, payload any) {
	t.Helper()

	code, body := a.request(t, http.MethodPost, "/internal/events", map[string]any{
		"event_type": eventType,
		"payload":    payload,
	}, triggerHeader())
	require.Equal(t, http.StatusCreated, code, "body: %v", body)
}

func (a *testApp) dispatch(t *testing.T) map[string]interface{} {
	t.Helper()

	code, body := a.request(t, http.MethodPost, "/internal/dispatch", nil, triggerHeader())
	require.Equal(t, http.StatusOK, code, "body: %v", body)
	return body["data"].(map[string]interface{})
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	code, body := app.request(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	code, body := app.request(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ops-admin",
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusCreated, code)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["admin_id"])
	assert.Equal(t, "ops-admin", data["username"])

	// Duplicate username rejected
	code, body = app.request(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ops-admin",
		"password": testPassword,
	}, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "AUTH_002", body["error_code"])

	code, body = app.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "ops-admin",
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["data"].(map[string]interface{})["token"])

	code, _ = app.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "ops-admin",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestIntegration_WebhookRoutesRequireJWT(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	code, body := app.request(t, http.MethodGet, "/api/v1/webhooks", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_003", body["error_code"])
}

func TestIntegration_InternalRoutesRequireTriggerToken(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	code, body := app.request(t, http.MethodPost, "/internal/dispatch", nil, map[string]string{
		"Authorization": "Bearer wrong-token",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_005", body["error_code"])
}

// TestIntegration_EndToEndDelivery walks the whole pipeline: an admin
// registers an endpoint, the backend publishes an event, a dispatch cycle
// delivers it, and the receiver verifies the HMAC over the exact bytes.
func TestIntegration_EndToEndDelivery(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const secret = "whsec_integration_test"

	type received struct {
		body      []byte
		signature string
		userAgent string
	}
	gotCh := make(chan received, 1)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotCh <- received{
			body:      body,
			signature: r.Header.Get("X-Webhook-Signature"),
			userAgent: r.Header.Get("User-Agent"),
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"received":true}`)
	}))
	defer receiver.Close()

	token := app.registerAndLogin(t, "e2e-admin")
	configID := app.createConfig(t, token, receiver.URL, secret, []string{domain.EventRegistrationConfirmed})

	app.publish(t, domain.EventRegistrationConfirmed, map[string]any{
		"registration_id": "reg-42",
		"event_id":        "evt-7",
	})

	summary := app.dispatch(t)
	assert.Equal(t, float64(1), summary["processed"])
	assert.Equal(t, float64(0), summary["failed"])

	var got received
	select {
	case got = <-gotCh:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never called")
	}

	// Receiver-side signature verification over the raw body.
	require.NotEmpty(t, got.body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(got.body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, got.signature)
	assert.JSONEq(t, `{"registration_id":"reg-42","event_id":"evt-7"}`, string(got.body))
	assert.Contains(t, got.userAgent, "thirdplace-webhooks")

	// Delivery history shows the terminal row.
	code, body := app.request(t, http.MethodGet, "/api/v1/deliveries?config_id="+configID, nil, authHeader(token))
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	row := items[0].(map[string]interface{})
	assert.Equal(t, "delivered", row["status"])
	assert.Equal(t, float64(1), row["attempts"])
	assert.Equal(t, float64(200), row["response_status"])
	assert.JSONEq(t, `{"received":true}`, row["response_body"].(string))
}

// TestIntegration_RetryUntilExhausted drives a delivery into the terminal
// failed state: three cycles against an endpoint that always returns 500.
func TestIntegration_RetryUntilExhausted(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	var hits atomic.Int64
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer receiver.Close()

	token := app.registerAndLogin(t, "retry-admin")
	configID := app.createConfig(t, token, receiver.URL, "", []string{domain.EventUserJoinedCommunity})

	app.publish(t, domain.EventUserJoinedCommunity, map[string]any{"user_id": "u-1"})

	for i := 1; i <= domain.MaxDeliveryAttempts; i++ {
		// Claims from the previous cycle must lapse first.
		app.redis.FastForward(time.Second)
		summary := app.dispatch(t)
		assert.Equal(t, float64(1), summary["failed"], "cycle %d", i)
	}
	assert.Equal(t, int64(domain.MaxDeliveryAttempts), hits.Load())

	// A fourth cycle finds nothing eligible.
	app.redis.FastForward(time.Second)
	summary := app.dispatch(t)
	assert.Equal(t, float64(0), summary["total"])

	code, body := app.request(t, http.MethodGet, "/api/v1/deliveries?status=failed", nil, authHeader(token))
	require.Equal(t, http.StatusOK, code)
	items := body["data"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 1)
	row := items[0].(map[string]interface{})
	assert.Equal(t, float64(domain.MaxDeliveryAttempts), row["attempts"])
	assert.Equal(t, float64(500), row["response_status"])
	assert.Contains(t, row["error_message"], "endpoint returned 500")

	code, body = app.request(t, http.MethodGet, "/api/v1/deliveries/stats?config_id="+configID, nil, authHeader(token))
	require.Equal(t, http.StatusOK, code)
	stats := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["failed"])
	assert.Equal(t, float64(1), stats["exhausted"])
}

// TestIntegration_RowFailureDoesNotBlockOthers registers one dead endpoint
// and one live one; the dead endpoint must not stop the live delivery.
func TestIntegration_RowFailureDoesNotBlockOthers(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	var liveHits atomic.Int64
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		liveHits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer live.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer dead.Close()

	token := app.registerAndLogin(t, "mixed-admin")
	app.createConfig(t, token, dead.URL, "", []string{domain.EventPaymentCaptured})
	app.createConfig(t, token, live.URL, "", []string{domain.EventPaymentCaptured})

	app.publish(t, domain.EventPaymentCaptured, map[string]any{"amount": 4200})

	summary := app.dispatch(t)
	assert.Equal(t, float64(2), summary["total"])
	assert.Equal(t, float64(1), summary["processed"])
	assert.Equal(t, float64(1), summary["failed"])
	assert.Equal(t, int64(1), liveHits.Load())
}

func TestIntegration_SendTestDelivery(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	token := app.registerAndLogin(t, "sendtest-admin")
	configID := app.createConfig(t, token, receiver.URL, "", []string{domain.EventDiscussionCreated})

	code, body := app.request(t, http.MethodPost, "/api/v1/webhooks/"+configID+"/test", nil, authHeader(token))
	require.Equal(t, http.StatusCreated, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, domain.EventWebhookTest, data["event_type"])
	assert.Equal(t, "pending", data["status"])

	summary := app.dispatch(t)
	assert.Equal(t, float64(1), summary["processed"])
}

func TestIntegration_UpdateDeactivatesEndpoint(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	token := app.registerAndLogin(t, "deactivate-admin")
	configID := app.createConfig(t, token, receiver.URL, "", []string{domain.EventEventCancelled})

	code, body := app.request(t, http.MethodPut, "/api/v1/webhooks/"+configID, map[string]any{
		"is_active": false,
	}, authHeader(token))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["data"].(map[string]interface{})["is_active"])

	// Inactive endpoints receive no fan-out.
	code, body = app.request(t, http.MethodPost, "/internal/events", map[string]any{
		"event_type": domain.EventEventCancelled,
		"payload":    map[string]any{"event_id": "evt-9"},
	}, triggerHeader())
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["fan_out"])
}

func TestIntegration_PublishRejectsUnknownEventType(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	code, body := app.request(t, http.MethodPost, "/internal/events", map[string]any{
		"event_type": "order.teleported",
		"payload":    map[string]any{"x": 1},
	}, triggerHeader())
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "CFG_003", body["error_code"])
}
