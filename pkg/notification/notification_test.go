package notification

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"CareCompanion/pkg/errors"
	"CareCompanion/pkg/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
	paths  []string
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(b, &m)
		c.mu.Lock()
		c.bodies = append(c.bodies, m)
		c.auth = append(c.auth, r.Header.Get("Authorization"))
		c.paths = append(c.paths, r.URL.Path)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestWebhookSendEvent(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK))
	defer srv.Close()

	w := NewWebhook(WebhookConfig{URL: srv.URL}, nil)
	err := w.SendEvent(context.Background(), "emergency_alert", map[string]any{
		"userId":   "u1",
		"detected": []string{"help me"},
	})
	require.NoError(t, err)
	require.Len(t, c.bodies, 1)
	assert.Equal(t, "emergency_alert", c.bodies[0]["event"])
	assert.Equal(t, "u1", c.bodies[0]["userId"])
	assert.Equal(t, []any{"help me"}, c.bodies[0]["detected"])
}

func TestWebhookSendReport(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusAccepted))
	defer srv.Close()

	w := NewWebhook(WebhookConfig{URL: srv.URL}, nil)
	err := w.SendReport(context.Background(), "emergency_report", Report{
		SubjectID: "u1", Recipient: "care@example.com", Subject: "Emergency alert for u1",
		Body: "Level: EMERGENCY", Timestamp: "2024-05-01T00:00:00.000Z",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"event":     "emergency_report",
		"userId":    "u1",
		"email":     "care@example.com",
		"subject":   "Emergency alert for u1",
		"report":    "Level: EMERGENCY",
		"timestamp": "2024-05-01T00:00:00.000Z",
	}, c.bodies[0])
}

func TestWebhookFailures(t *testing.T) {
	err := NewWebhook(WebhookConfig{}, nil).SendEvent(context.Background(), "x", nil)
	assert.True(t, errors.IsCode(err, errors.CodeNotConfigured))

	srv := httptest.NewServer((&capture{}).handler(http.StatusBadGateway))
	defer srv.Close()
	err = NewWebhook(WebhookConfig{URL: srv.URL, RetryCount: 1}, nil).SendEvent(context.Background(), "x", nil)
	assert.True(t, errors.IsCode(err, errors.CodeUpstream))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	err = NewWebhook(WebhookConfig{URL: slow.URL, Timeout: 20 * time.Millisecond}, nil).SendEvent(context.Background(), "x", nil)
	assert.True(t, errors.IsCode(err, errors.CodeUpstream))
}

func TestCaregiverPushOverJPush(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK))
	defer srv.Close()

	cli := NewJPushClient(JPushConfig{AppKey: "key", MasterSecret: "secret", BaseURL: srv.URL})
	require.NotNil(t, cli)
	p := NewCaregiverPush(cli)

	err := p.SendEvent(context.Background(), "emergency_alert", map[string]any{
		"userId": "u1", "level": "emergency", "detected": []string{"i fell"},
	})
	require.NoError(t, err)
	require.Len(t, c.bodies, 1)
	assert.Equal(t, "/v3/push", c.paths[0])
	assert.Contains(t, c.auth[0], "Basic ")
	assert.Equal(t, map[string]any{"alias": []any{"care_u1"}}, c.bodies[0]["audience"])
	notif := c.bodies[0]["notification"].(map[string]any)
	assert.Equal(t, "Emergency alert for u1: i fell", notif["alert"])

	require.NoError(t, p.SendReport(context.Background(), "emergency_report", Report{SubjectID: "u1", Subject: "s", Body: "b"}))
	assert.Len(t, c.bodies, 2)
}

func TestCaregiverPushNotConfigured(t *testing.T) {
	assert.Nil(t, NewJPushClient(JPushConfig{}))
	err := NewCaregiverPush(nil).SendEvent(context.Background(), "x", map[string]any{"userId": "u1"})
	assert.True(t, errors.IsCode(err, errors.CodeNotConfigured))

	err = NewCaregiverPush(&stubPush{}).SendEvent(context.Background(), "x", map[string]any{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidInput))
}

type stubPush struct{}

func (stubPush) Push(context.Context, string, string, map[string]interface{}, map[string]interface{}) error {
	return nil
}

func TestStreamNotifier(t *testing.T) {
	hub := sse.NewHub(time.Minute)
	s := NewStream(hub)
	ctx := context.Background()

	err := s.SendEvent(ctx, "safety_concern", map[string]any{"userId": "u1"})
	assert.ErrorIs(t, err, ErrNoListeners)

	_, unsub := hub.Subscribe("u1")
	defer unsub()
	assert.NoError(t, s.SendEvent(ctx, "safety_concern", map[string]any{"userId": "u1"}))
	assert.NoError(t, s.SendReport(ctx, "emergency_report", Report{SubjectID: "u1"}))
}

type fakeChannel struct {
	err   error
	calls int
}

func (f *fakeChannel) SendEvent(context.Context, string, map[string]any) error {
	f.calls++
	return f.err
}

func (f *fakeChannel) SendReport(context.Context, string, Report) error {
	f.calls++
	return f.err
}

func TestFanout(t *testing.T) {
	ok := &fakeChannel{}
	bad := &fakeChannel{err: stderrors.New("down")}
	ctx := context.Background()

	f := NewFanout(nil, Channel{"webhook", bad}, Channel{"push", ok})
	assert.NoError(t, f.SendEvent(ctx, "emergency_alert", nil))
	assert.NoError(t, f.SendReport(ctx, "emergency_report", Report{}))
	assert.Equal(t, 2, ok.calls)
	assert.Equal(t, 2, bad.calls)
	assert.Equal(t, []string{"webhook", "push"}, f.Channels())

	allBad := NewFanout(nil, Channel{"webhook", bad}, Channel{"stream", &fakeChannel{err: ErrNoListeners}})
	err := allBad.SendEvent(ctx, "x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoListeners)
	assert.Contains(t, err.Error(), "webhook: down")

	err = NewFanout(nil).SendEvent(ctx, "x", nil)
	assert.True(t, errors.IsCode(err, errors.CodeNotConfigured))
}
