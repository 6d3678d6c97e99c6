package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/models"
	"CareCompanion/internal/safety"
	"CareCompanion/pkg/llm"
	"CareCompanion/pkg/notification"
	"CareCompanion/pkg/search"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	event   string
	payload map[string]any
}

type fakeNotifier struct {
	mu      sync.Mutex
	events  []sentEvent
	reports []notification.Report
	fail    bool
}

func (n *fakeNotifier) SendEvent(ctx context.Context, event string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return stderrors.New("webhook down")
	}
	n.events = append(n.events, sentEvent{event, payload})
	return nil
}

func (n *fakeNotifier) SendReport(ctx context.Context, event string, report notification.Report) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return stderrors.New("webhook down")
	}
	n.reports = append(n.reports, report)
	return nil
}

func (n *fakeNotifier) eventNames() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.event)
	}
	return out
}

type memStore struct {
	mu      sync.Mutex
	records map[string][]any
	msgs    []models.ChatMessage
	fail    bool
}

func (s *memStore) Append(ctx context.Context, table string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return stderrors.New("db locked")
	}
	if s.records == nil {
		s.records = map[string][]any{}
	}
	s.records[table] = append(s.records[table], record)
	if m, ok := record.(*models.ChatMessage); ok {
		s.msgs = append(s.msgs, *m)
	}
	return nil
}

func (s *memStore) RecentMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, stderrors.New("db locked")
	}
	var out []models.ChatMessage
	for _, m := range s.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) RecentMemories(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, stderrors.New("db locked")
	}
	var out []models.Memory
	for i := len(s.records[models.TableMemories]) - 1; i >= 0 && len(out) < limit; i-- {
		if m := s.records[models.TableMemories][i].(*models.Memory); m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) SafetyEvents(ctx context.Context, userID string, limit int) ([]models.SafetyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, stderrors.New("db locked")
	}
	var out []models.SafetyEvent
	for i := len(s.records[models.TableSafetyEvents]) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.records[models.TableSafetyEvents][i].(*models.SafetyEvent); e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memStore) Medications(ctx context.Context, userID string) ([]models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, stderrors.New("db locked")
	}
	var out []models.Medication
	for _, r := range s.records[models.TableMedications] {
		if m := r.(*models.Medication); m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) CountWellnessLogs(ctx context.Context, userID, kind string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.records[models.TableWellnessLogs] {
		if l := r.(*models.WellnessLog); l.UserID == userID && l.Type == kind && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range s.msgs {
		if !m.CreatedAt.Before(since) && !seen[m.UserID] {
			seen[m.UserID] = true
			out = append(out, m.UserID)
		}
	}
	return out, nil
}

func (s *memStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[table])
}

type fakeTTS struct{ fail bool }

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (string, error) {
	if f.fail {
		return "", stderrors.New("quota exceeded")
	}
	return "https://audio.test/" + fmt.Sprint(len(text)) + ".mp3", nil
}

type fakeLLM struct {
	history []llm.Message
	opts    llm.ReplyOptions
	fail    bool
}

func (f *fakeLLM) Reply(ctx context.Context, input string, history []llm.Message, opts llm.ReplyOptions) (string, error) {
	if f.fail {
		return "", stderrors.New("model overloaded")
	}
	f.history, f.opts = history, opts
	return "That sounds lovely. Shall we utilize the afternoon for a walk?", nil
}

// 同步执行，断言时无需等待
type syncRunner struct{}

func (syncRunner) Go(name string, fn func(ctx context.Context) error) { _ = fn(context.Background()) }

type fixedIDs struct{}

func (fixedIDs) NewID() string { return "alert_fixed" }

type harness struct {
	router   *gin.Engine
	notifier *fakeNotifier
	store    *memStore
	tts      *fakeTTS
	llm      *fakeLLM
	search   *search.Transcripts
	handlers *Handlers
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{notifier: &fakeNotifier{}, store: &memStore{}, tts: &fakeTTS{}, llm: &fakeLLM{}}
	esc := safety.NewEscalator(h.notifier,
		safety.WithStore(h.store),
		safety.WithRunner(syncRunner{}),
		safety.WithIDGenerator(fixedIDs{}),
		safety.WithCareCircleEmail("family@example.com"))
	tr, err := search.Open(search.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	h.search = tr
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	hs := NewHandlers(Deps{
		Store:     h.store,
		Escalator: esc,
		Persona:   companion.NewPersonaWithPicker(func(int) int { return 0 }),
		LLM:       h.llm,
		LLMModel:  "gemini-2.0-flash",
		TTS:       h.tts,
		TTSModel:  "eleven_monolingual_v1",
		Notifier:  h.notifier,
		Search:    tr,
		Runner:    syncRunner{},
		Now:       func() time.Time { return now },

		CareCircleEmail: "family@example.com",
	})
	h.handlers = hs
	h.router = gin.New()
	hs.Register(h.router)
	return h
}

func (h *harness) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api"+path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return h.serve(t, req)
}

func (h *harness) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	return h.serve(t, httptest.NewRequest(http.MethodGet, "/api"+path, nil))
}

func (h *harness) serve(t *testing.T, req *http.Request) (int, map[string]any) {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestChatboxEmergencyEscalates(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/chatbox", gin.H{"userId": "u1", "input": "I fell in the kitchen, please help me"})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["emergency"])
	assert.Equal(t, "alert_fixed", body["alertId"])
	alert := body["alert"].(map[string]any)
	assert.Equal(t, "emergency", alert["level"])
	assert.Equal(t, true, alert["caregiverAlert"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "Safety protocol", data["reasoningModel"])
	assert.Equal(t, "eleven_monolingual_v1", data["voiceModel"])
	assert.Equal(t, true, data["firstTurn"])
	assert.True(t, strings.HasPrefix(body["ttsText"].(string), "Safety first. I hear you need help"))
	assert.NotNil(t, body["audioUrl"])

	assert.Equal(t, []string{safety.EventEmergencyAlert}, h.notifier.eventNames())
	require.Len(t, h.notifier.reports, 1)
	assert.Equal(t, "family@example.com", h.notifier.reports[0].Recipient)
	assert.Equal(t, 1, h.store.count(models.TableSafetyEvents))
	assert.Equal(t, 2, h.store.count(models.TableChatMessages))
	assert.Nil(t, h.llm.history, "the model is not consulted on the safety path")
}

func TestChatboxSafetyPathSurvivesFailures(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = true
	h.tts.fail = true

	code, body := h.post(t, "/chatbox", gin.H{"userId": "u1", "input": "chest pain"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alert_fixed", body["alertId"])
	assert.Equal(t, false, body["notified"])
	assert.Nil(t, body["audioUrl"])
	assert.Contains(t, body, "audioUrl")
}

func TestChatboxConcernIsCheckIn(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/chatbox", gin.H{"userId": "u2", "input": "I feel lonely today"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["emergency"])
	assert.Equal(t, "Safety check-in", body["data"].(map[string]any)["reasoningModel"])
	assert.Equal(t, []string{safety.EventSafetyConcern}, h.notifier.eventNames())
	assert.Equal(t, "chatbox", h.notifier.events[0].payload["source"])
	assert.Empty(t, h.notifier.reports)
}

func TestChatboxNormalUsesModel(t *testing.T) {
	h := newHarness(t)
	h.store.msgs = []models.ChatMessage{
		{UserID: "u3", Role: models.RoleUser, Content: "Good morning"},
		{UserID: "u3", Role: models.RoleAssistant, Content: "Good morning to you"},
	}

	code, body := h.post(t, "/chatbox", gin.H{"userId": "u3", "input": "Please don't talk about my old job. What should I do today?"})
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "gemini-2.0-flash", data["reasoningModel"])
	assert.Equal(t, true, data["firstTurn"])
	assert.Contains(t, body["ttsText"], "use the afternoon")
	assert.NotContains(t, body, "alertId")

	require.Len(t, h.llm.history, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Text: "Good morning to you"}, h.llm.history[1])
	assert.Equal(t, []string{"my old job"}, h.llm.opts.AvoidTopics)
	assert.True(t, h.llm.opts.FirstTurn)
	assert.Empty(t, h.notifier.eventNames())

	// same day, second turn
	_, body = h.post(t, "/chatbox", gin.H{"userId": "u3", "input": "I had tea"})
	assert.Equal(t, false, body["data"].(map[string]any)["firstTurn"])
	assert.Len(t, h.llm.history, 4)
}

func TestChatboxValidationAndModelFailure(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/chatbox", gin.H{"userId": "u1", "input": "   "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please share a little about how you are feeling.", body["error"])

	h.llm.fail = true
	code, body = h.post(t, "/chatbox", gin.H{"input": "tell me a story"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, body["success"])
}

func TestChatHistory(t *testing.T) {
	h := newHarness(t)
	h.store.msgs = []models.ChatMessage{
		{UserID: "u1", Role: models.RoleUser, Content: "hi", CreatedAt: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)},
		{UserID: "u1", Role: models.RoleAssistant, Content: "hello", CreatedAt: time.Date(2026, 5, 4, 8, 0, 1, 0, time.UTC)},
	}
	code, body := h.get(t, "/chatbox/history/u1")
	require.Equal(t, http.StatusOK, code)
	items := body["data"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"type": "companion", "text": "hello", "timestamp": "2026-05-04T08:00:01.000Z"}, items[1])

	h.store.fail = true
	code, body = h.get(t, "/chatbox/history/u1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["data"])
}

func TestEmpathy(t *testing.T) {
	h := newHarness(t)

	_, body := h.post(t, "/empathy", gin.H{"userId": "u1", "userInput": "I'm scared, call an ambulance"})
	assert.Equal(t, true, body["emergency"])
	assert.Equal(t, "emergency", body["data"].(map[string]any)["emotion"])
	assert.Equal(t, safety.Reassure(safety.LevelEmergency), body["ttsText"])
	assert.Equal(t, []string{safety.EventEmergencyAlert}, h.notifier.eventNames())

	_, body = h.post(t, "/empathy", gin.H{"userId": "u1", "userInput": "I feel sad and worried"})
	assert.Equal(t, false, body["emergency"])
	assert.Equal(t, "concern", body["alert"].(map[string]any)["level"])
	assert.Equal(t, "stressed", body["data"].(map[string]any)["emotion"])
	assert.Len(t, h.notifier.eventNames(), 1, "concern is not escalated from empathy")

	_, body = h.post(t, "/empathy", gin.H{"userId": "u1", "userInput": "a nice quiet day"})
	assert.Nil(t, body["alert"])
	assert.Equal(t, "calm", body["data"].(map[string]any)["emotion"])
}

func TestVitals(t *testing.T) {
	h := newHarness(t)

	code, body := h.post(t, "/safety/vitals", gin.H{"userId": "u1", "vitals": gin.H{"heartRate": 72}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Vitals within normal range", body["message"])
	assert.Empty(t, h.notifier.eventNames())

	_, body = h.post(t, "/safety/vitals", gin.H{"userId": "u1", "vitals": gin.H{"heartRate": 140, "location": gin.H{"lat": 1.5, "lng": 2.25}}})
	assert.Equal(t, "urgent", body["alert"].(map[string]any)["level"])
	assert.Equal(t, "alert_fixed", body["alertId"])
	assert.Equal(t, safety.Reassure(safety.LevelUrgent), body["ttsText"])
	require.Equal(t, []string{safety.EventEmergencyAlert}, h.notifier.eventNames())
	assert.NotNil(t, h.notifier.events[0].payload["location"])
	assert.Empty(t, h.notifier.reports, "urgent sends no incident report")

	code, _ = h.post(t, "/safety/vitals", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSafetyCheckResolvesBothSignals(t *testing.T) {
	h := newHarness(t)
	_, body := h.post(t, "/safety/check", gin.H{
		"userId": "u1",
		"text":   "feeling tired",
		"vitals": gin.H{"fallDetected": true},
	})
	alert := body["alert"].(map[string]any)
	assert.Equal(t, "emergency", alert["level"])
	assert.Equal(t, []any{safety.TagFallDetected}, alert["detected"])
	assert.Equal(t, true, body["emailQueued"])
	assert.Len(t, h.notifier.reports, 1)
	assert.Contains(t, h.notifier.reports[0].Body, "Fall sensor triggered")

	code, _ := h.post(t, "/safety/check", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, code)

	_, body = h.post(t, "/safety/check", gin.H{"userId": "u1", "text": "lovely weather"})
	assert.Equal(t, "normal", body["alert"].(map[string]any)["level"])
	assert.NotContains(t, body, "alertId")
}

func TestManualEmergency(t *testing.T) {
	h := newHarness(t)
	_, body := h.post(t, "/safety/emergency", gin.H{"userId": "u9", "type": "sos_button", "location": gin.H{"lat": 51.5, "lng": -0.12}})

	alert := body["alert"].(map[string]any)
	assert.Equal(t, []any{"sos_button"}, alert["detected"])
	assert.Equal(t, "Help is on the way... stay calm.", alert["message"])
	assert.Equal(t, safety.Reassure(safety.LevelEmergency), body["ttsText"])
	require.Len(t, h.notifier.reports, 1)
	assert.Contains(t, h.notifier.reports[0].Body, "Location: (51.5000, -0.1200)")
	assert.Contains(t, h.notifier.reports[0].Body, "Timestamp: 2026-05-04T09:30:00.000Z")
}

func TestCheckInLowMoodAlerts(t *testing.T) {
	h := newHarness(t)
	_, body := h.post(t, "/checkin", gin.H{"userId": "u1", "userInput": "I feel so alone lately"})

	plan := body["data"].(map[string]any)
	assert.Equal(t, "low", plan["mood"])
	assert.True(t, strings.HasSuffix(body["ttsText"].(string), plan["summary"].(string)))
	assert.Equal(t, 1, h.store.count(models.TableCheckIns))
	require.Equal(t, []string{"mood_alert"}, h.notifier.eventNames())
	assert.Equal(t, map[string]any{"userId": "u1", "mood": "low", "timestamp": "2026-05-04T09:30:00.000Z"}, h.notifier.events[0].payload)

	_, body = h.post(t, "/checkin", gin.H{"userId": "u1", "userInput": "all good"})
	assert.Equal(t, "good", body["data"].(map[string]any)["mood"])
	assert.Len(t, h.notifier.eventNames(), 1)
}

func TestWellnessLog(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/wellness/log", gin.H{"userId": "u1", "type": "water", "value": "1 glass"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Good job staying hydrated! You're doing great.", body["ttsText"])
	assert.Equal(t, 1, h.store.count(models.TableWellnessLogs))

	code, _ = h.post(t, "/wellness/log", gin.H{"userId": "u1", "type": "water", "value": "1 glass"})
	assert.Equal(t, http.StatusConflict, code)

	h.store.fail = true
	code, body = h.post(t, "/wellness/log", gin.H{"userId": "u1", "type": "medication", "value": "morning"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Could not log activity", body["error"])

	code, _ = h.post(t, "/wellness/log", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTTS(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/tts", gin.H{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Text is required.", body["error"])

	code, body = h.post(t, "/tts", gin.H{"text": "Hello there"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "https://audio.test/11.mp3", body["audioUrl"])

	h.tts.fail = true
	code, _ = h.post(t, "/tts", gin.H{"text": "Hello there"})
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestHealthAndQuestions(t *testing.T) {
	h := newHarness(t)
	code, body := h.get(t, "/health")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2026-05-04T09:30:00.000Z", body["timestamp"])

	_, body = h.get(t, "/safety/checkin-questions?timeOfDay=evening")
	qs := body["data"].(map[string]any)["questions"].([]any)
	assert.Equal(t, "How was your day today?", qs[0])

	code, _ = h.get(t, "/safety/stream")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChatSearch(t *testing.T) {
	h := newHarness(t)
	status, _ := h.post(t, "/chatbox", map[string]any{"userId": "rose", "input": "I miss my garden"})
	require.Equal(t, http.StatusOK, status)

	status, body := h.get(t, "/chatbox/search/rose?q=garden")
	require.Equal(t, http.StatusOK, status)
	hits := body["hits"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "user", hits[0].(map[string]any)["role"])

	_, body = h.get(t, "/chatbox/search/rose?q=walk")
	hits = body["hits"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "companion", hits[0].(map[string]any)["role"])

	_, body = h.get(t, "/chatbox/search/sam?q=garden")
	assert.Empty(t, body["hits"])

	status, _ = h.get(t, "/chatbox/search/rose")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSafetySocketRequiresHub(t *testing.T) {
	h := newHarness(t)
	status, _ := h.get(t, "/safety/ws")
	assert.Equal(t, http.StatusBadRequest, status)
	status, body := h.get(t, "/safety/ws?userId=rose")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "Live updates are not enabled.", body["error"])
}

func TestEscalationIsRecorded(t *testing.T) {
	h := newHarness(t)
	_, _ = h.post(t, "/safety/vitals", gin.H{"userId": "u5", "vitals": gin.H{"heartRate": 140}})

	code, body := h.get(t, "/safety/events/u5")
	require.Equal(t, http.StatusOK, code)
	events := body["data"].([]any)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	assert.Equal(t, "alert_fixed", ev["alertId"])
	assert.Equal(t, "urgent", ev["level"])
	assert.Equal(t, []any{safety.TagElevatedHeartRate}, ev["detected"])
	assert.Equal(t, true, ev["notified"])
	assert.Equal(t, float64(140), ev["vitals"].(map[string]any)["heartRate"])

	_, body = h.get(t, "/safety/events/nobody")
	assert.Equal(t, []any{}, body["data"])

	h.store.fail = true
	code, _ = h.get(t, "/safety/events/u5")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestMemories(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/memory", gin.H{"userId": "u1", "storyInput": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please share a memory with me.", body["error"])

	for _, story := range []string{"Our first house had a red door. We painted it together.", "The summer at the lake"} {
		code, body = h.post(t, "/memory", gin.H{"userId": "u1", "storyInput": story})
		require.Equal(t, http.StatusOK, code)
	}
	data := body["data"].(map[string]any)
	assert.Equal(t, "The summer at the lake", data["title"])
	assert.Equal(t, "The summer at the lake.", data["story"])
	assert.Equal(t, []any{"personal"}, data["tags"])
	assert.Nil(t, data["imageUrl"])
	assert.Contains(t, body["ttsText"], `I've saved your story about "The summer at the lake".`)
	assert.True(t, strings.HasPrefix(body["ttsText"].(string), "I'd love to hear about that…"))

	_, body = h.get(t, "/memory/u1?limit=1")
	list := body["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "The summer at the lake", list[0].(map[string]any)["title"])

	_, body = h.get(t, "/memory/u1?limit=abc")
	assert.Len(t, body["data"], 2)

	h.store.fail = true
	code, body = h.post(t, "/memory", gin.H{"userId": "u1", "storyInput": "One more"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "I had trouble saving that... can we try once more?", body["error"])
	code, _ = h.get(t, "/memory/u1")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 25, clampLimit("", 25, 100))
	assert.Equal(t, 25, clampLimit("lots", 25, 100))
	assert.Equal(t, 1, clampLimit("-4", 25, 100))
	assert.Equal(t, 100, clampLimit("500", 25, 100))
	assert.Equal(t, 7, clampLimit("7", 25, 100))
}

func TestBuddy(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/buddy", gin.H{"userId": "u1", "messageFrom": "Joan", "messageText": "Thinking of you!"})
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "warm", data["tone"])
	assert.Equal(t, "Your friend Joan sent a warm hello… they're thinking of you today. It's nice to connect with others… when you're ready.", body["ttsText"])
	assert.Equal(t, 1, h.store.count(models.TableBuddyMessages))

	h.store.fail = true
	code, _ = h.post(t, "/buddy", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusOK, code, "a failed save does not block the reply")
}

func TestWeeklyReport(t *testing.T) {
	h := newHarness(t)
	code, body := h.post(t, "/report/weekly", gin.H{"userId": " "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User ID is required.", body["error"])

	yesterday := time.Date(2026, 5, 3, 18, 0, 0, 0, time.UTC)
	h.store.msgs = []models.ChatMessage{
		{UserID: "u1", Role: models.RoleUser, Content: "I planted tomatoes", CreatedAt: yesterday},
		{UserID: "u1", Role: models.RoleAssistant, Content: "How lovely", CreatedAt: yesterday},
	}
	code, body = h.post(t, "/report/weekly", gin.H{"userId": "u1", "userName": "Rose"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "family@example.com", body["sentTo"])
	report := body["report"].(string)
	assert.True(t, strings.HasPrefix(report, "Weekly Care Report for Rose"))
	assert.Contains(t, report, "Rose had 1 chat message with their companion this week.")
	assert.Contains(t, report, `• "I planted tomatoes"`)

	require.Len(t, h.notifier.reports, 1)
	sent := h.notifier.reports[0]
	assert.Equal(t, "Weekly report for Rose", sent.Subject)
	assert.Equal(t, "family@example.com", sent.Recipient)
	assert.Equal(t, report, sent.Body)

	// notifier failure does not change the response
	h.notifier.fail = true
	code, _ = h.post(t, "/report/weekly", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusOK, code)
}

func TestSendWeeklyReports(t *testing.T) {
	h := newHarness(t)
	recent := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	h.store.msgs = []models.ChatMessage{
		{UserID: "a", Role: models.RoleUser, Content: "hello", CreatedAt: recent},
		{UserID: "b", Role: models.RoleUser, Content: "hi", CreatedAt: recent},
		{UserID: "a", Role: models.RoleUser, Content: "again", CreatedAt: recent},
		{UserID: "gone", Role: models.RoleUser, Content: "long ago", CreatedAt: recent.AddDate(0, -1, 0)},
	}
	require.NoError(t, h.handlers.SendWeeklyReports(context.Background()))
	require.Len(t, h.notifier.reports, 2)
	assert.Equal(t, "a", h.notifier.reports[0].SubjectID)
	assert.Equal(t, "Weekly report for Companion friend", h.notifier.reports[0].Subject)
	assert.Equal(t, "b", h.notifier.reports[1].SubjectID)
}

func TestNudges(t *testing.T) {
	h := newHarness(t)
	code, _ := h.get(t, "/wellness/nudges")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.post(t, "/wellness/medications", gin.H{"userId": "u1", "name": "Metformin", "times": []string{"9:00"}})
	require.Equal(t, http.StatusOK, code)
	code, _ = h.post(t, "/wellness/medications", gin.H{"userId": "u1", "name": "Statin", "times": []string{"late"}})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.post(t, "/wellness/medications", gin.H{"userId": "u1", "name": "Statin"})
	assert.Equal(t, http.StatusBadRequest, code)

	for i := 0; i < 3; i++ {
		h.post(t, "/wellness/log", gin.H{"userId": "u1", "type": "water", "value": fmt.Sprint(i)})
	}

	code, body := h.get(t, "/wellness/nudges?userId=u1&timeOfDay=morning&mood=good&temp=90")
	require.Equal(t, http.StatusOK, code)
	var kinds []string
	for _, n := range body["data"].([]any) {
		kinds = append(kinds, n.(map[string]any)["type"].(string))
	}
	// 09:30 matches the 09:00 dose; 3 of 8 glasses leaves 5
	assert.Equal(t, []string{"medication", "weather", "hydration", "activity"}, kinds)
	hydration := body["data"].([]any)[2].(map[string]any)
	assert.Equal(t, "5 more glasses of water to reach your goal today.", hydration["message"])
	assert.Contains(t, hydration["ttsMessage"], "It is warm today")

	code, _ = h.get(t, "/wellness/nudges?userId=u1&temp=hot")
	assert.Equal(t, http.StatusBadRequest, code)

	_, body = h.get(t, "/wellness/nudges?userId=u2&timeOfDay=evening&mood=low&stress=high")
	kinds = nil
	for _, n := range body["data"].([]any) {
		kinds = append(kinds, n.(map[string]any)["type"].(string))
	}
	assert.Equal(t, []string{"hydration", "rest", "activity"}, kinds)
}
