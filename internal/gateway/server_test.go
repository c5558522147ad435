package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagate/internal/bot"
	"wagate/internal/config"
	"wagate/internal/llm"
	"wagate/internal/prompts"
)

type fakeReplier struct {
	fn func(senderID, text string) string
}

func (f *fakeReplier) Reply(_ context.Context, senderID, text string) string {
	return f.fn(senderID, text)
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentText
	errFn func() error
}

type sentText struct {
	to, body string
}

func (f *fakeSender) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentText{to: to, body: body})
	if f.errFn != nil {
		return f.errFn()
	}
	return nil
}

func (f *fakeSender) all() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.sent...)
}

func testConfig() *config.Config {
	return &config.Config{
		WhatsApp: config.WhatsAppConfig{VerifyToken: "verify-me"},
		Limits:   config.LimitsConfig{PerSenderRate: 100, Burst: 100},
	}
}

func newTestServer(cfg *config.Config, replier Replier, sender Sender) *Server {
	return NewServer(cfg, replier, sender, nil)
}

func deliveryBody(messageID, from, text string) string {
	return fmt.Sprintf(`{"entry":[{"changes":[{"field":"messages","value":{"messages":[
		{"from":%q,"id":%q,"type":"text","text":{"body":%q}}
	]}}]}]}`, from, messageID, text)
}

func TestVerifyHandshake(t *testing.T) {
	s := newTestServer(testConfig(), nil, nil)

	get := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/webhook?"+query, nil)
		s.Handler().ServeHTTP(w, req)
		return w
	}

	w := get("hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1158201444", w.Body.String())

	// The handshake is repeatable with a fresh challenge.
	w = get("hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=other")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "other", w.Body.String())

	w = get("hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1158201444")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get("hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=1158201444")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get("")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeliverDispatchesReply(t *testing.T) {
	replier := &fakeReplier{fn: func(senderID, text string) string {
		return "reply to " + text
	}}
	sender := &fakeSender{}
	s := newTestServer(testConfig(), replier, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(deliveryBody("wamid.1", "15551234567", "2+2")))
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	s.WaitIdle()
	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "15551234567", sent[0].to)
	assert.Equal(t, "reply to 2+2", sent[0].body)
}

func TestDeliverNoOpAcks(t *testing.T) {
	sender := &fakeSender{}
	s := newTestServer(testConfig(), &fakeReplier{fn: func(_, _ string) string { return "x" }}, sender)

	payloads := []string{
		`{}`,
		`{"entry":[{"changes":[{"field":"messages","value":{"statuses":[{"id":"wamid.s","status":"read"}]}}]}]}`,
		`{"entry":[{"changes":[{"field":"messages","value":{"messages":[{"from":"1","id":"m","type":"image"}]}}]}]}`,
		`not json`,
	}
	for _, payload := range payloads {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	}

	s.WaitIdle()
	assert.Empty(t, sender.all())
}

func TestDeliverDeduplicates(t *testing.T) {
	sender := &fakeSender{}
	s := newTestServer(testConfig(), &fakeReplier{fn: func(_, _ string) string { return "once" }}, sender)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(deliveryBody("wamid.same", "1", "hello")))
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	s.WaitIdle()
	assert.Len(t, sender.all(), 1)
}

func TestDeliverRateLimitsSender(t *testing.T) {
	cfg := testConfig()
	cfg.Limits = config.LimitsConfig{PerSenderRate: 1, Burst: 1}
	sender := &fakeSender{}
	s := newTestServer(cfg, &fakeReplier{fn: func(_, _ string) string { return "r" }}, sender)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		body := deliveryBody(fmt.Sprintf("wamid.%d", i), "15550001111", "spam")
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
		s.Handler().ServeHTTP(w, req)
		// Over-limit deliveries are still acked; the platform must not redeliver.
		assert.Equal(t, http.StatusOK, w.Code)
	}

	s.WaitIdle()
	assert.Len(t, sender.all(), 1)
}

func TestDeliverRejectsBadSignature(t *testing.T) {
	cfg := testConfig()
	cfg.WhatsApp.AppSecret = "app-secret"
	sender := &fakeSender{}
	s := newTestServer(cfg, &fakeReplier{fn: func(_, _ string) string { return "r" }}, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(deliveryBody("wamid.1", "1", "hi")))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	s.WaitIdle()
	assert.Empty(t, sender.all())
}

func TestDeliverSendFailureStillAcks(t *testing.T) {
	sender := &fakeSender{errFn: func() error { return errors.New("recipient unreachable") }}
	s := newTestServer(testConfig(), &fakeReplier{fn: func(_, _ string) string { return "r" }}, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(deliveryBody("wamid.1", "1", "hi")))
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	s.WaitIdle()
	// One attempt, no retry.
	assert.Len(t, sender.all(), 1)
}

type erroringLLM struct{}

func (erroringLLM) Chat(context.Context, llm.ChatParams) (*llm.Result, error) {
	return nil, errors.New("upstream unavailable")
}

func TestDeliverCompletionFailureDispatchesFallback(t *testing.T) {
	responder := &bot.Responder{Client: erroringLLM{}}
	sender := &fakeSender{}
	s := newTestServer(testConfig(), responder, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(deliveryBody("wamid.1", "15551234567", "2+2")))
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	s.WaitIdle()
	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, prompts.Fallback, sent[0].body)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(testConfig(), nil, nil)

	for _, path := range []string{"/", "/health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", path, nil)
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	}
}

func TestTapRequiresToken(t *testing.T) {
	cfg := testConfig()
	cfg.Ops.Token = "ops-secret"
	s := newTestServer(cfg, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws", nil)
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTapDisabledWithoutToken(t *testing.T) {
	s := newTestServer(testConfig(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws?token=anything", nil)
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
