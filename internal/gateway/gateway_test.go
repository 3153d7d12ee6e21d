package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/basket/go-study/internal/gateway"
	"github.com/basket/go-study/internal/persistence"
	"github.com/basket/go-study/internal/planner"
)

type fakeAssistant struct {
	reply string
	calls []string
}

func (f *fakeAssistant) GenerateResponse(_ context.Context, input string) string {
	f.calls = append(f.calls, input)
	return f.reply
}

type testEnv struct {
	store     *persistence.Store
	assistant *fakeAssistant
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	assistant := &fakeAssistant{reply: "assistant reply"}
	plannerSvc := planner.NewService(store, assistant, nil)

	srv := gateway.New(gateway.Config{
		Store:             store,
		Assistant:         assistant,
		Planner:           plannerSvc,
		AgentName:         "StudyBuddy",
		ConfigFingerprint: "cfg-test",
	})
	return &testEnv{store: store, assistant: assistant, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (e *testEnv) addTask(t *testing.T, subject string) int64 {
	t.Helper()
	rec := e.do(t, "POST", "/api/tasks", map[string]string{"subject": subject})
	if rec.Code != http.StatusOK {
		t.Fatalf("add task: status %d: %s", rec.Code, rec.Body.String())
	}
	tasks, err := e.store.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, task := range tasks {
		if task.Subject == subject {
			return task.ID
		}
	}
	t.Fatalf("task %q not found after create", subject)
	return 0
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["healthy"] != true || body["db_ok"] != true {
		t.Errorf("unexpected health payload: %v", body)
	}
	if body["config_fingerprint"] != "cfg-test" {
		t.Errorf("fingerprint missing: %v", body)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)
	for _, payload := range []any{
		map[string]string{"message": ""},
		map[string]string{"message": "   "},
		map[string]string{},
	} {
		rec := env.do(t, "POST", "/api/chat", payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %v: expected 400, got %d", payload, rec.Code)
		}
		body := decodeMap(t, rec)
		if body["error"] != "No message provided" {
			t.Errorf("unexpected error message: %v", body)
		}
	}
	if len(env.assistant.calls) != 0 {
		t.Error("assistant must not be called for empty messages")
	}
}

func TestChat_SavesBothSides(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "POST", "/api/chat", map[string]string{"message": "hello there"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeMap(t, rec)
	if body["response"] != "assistant reply" {
		t.Errorf("unexpected response: %v", body)
	}

	history, err := env.store.ChatHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("chat history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user+agent messages, got %d", len(history))
	}
	if history[0].Sender != "user" || history[0].Message != "hello there" {
		t.Errorf("unexpected user message: %+v", history[0])
	}
	if history[1].Sender != "agent" || history[1].Message != "assistant reply" {
		t.Errorf("unexpected agent message: %+v", history[1])
	}
}

func TestTasks_CreateAndList(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/tasks", map[string]string{"subject": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank subject: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, "POST", "/api/tasks", map[string]string{
		"subject":  "Statistics",
		"deadline": "2026-09-15",
		"priority": "High",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeMap(t, rec); body["message"] != "Task added successfully" {
		t.Errorf("unexpected create response: %v", body)
	}

	rec = env.do(t, "GET", "/api/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var tasks []persistence.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Subject != "Statistics" || tasks[0].Priority != "High" {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
}

func TestTasks_ListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/api/tasks", nil)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("empty list must encode as [], got %q", got)
	}
}

func TestTasks_UpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Geometry")

	rec := env.do(t, "PUT", "/api/tasks/"+itoa(id), map[string]any{"priority": "Low", "completed": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, err := env.store.GetTask(context.Background(), id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Priority != "Low" || !got.Completed || got.Subject != "Geometry" {
		t.Errorf("unexpected task after update: %+v", got)
	}

	rec = env.do(t, "DELETE", "/api/tasks/"+itoa(id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if _, err := env.store.GetTask(context.Background(), id); err == nil {
		t.Error("task should be gone after delete")
	}
}

func TestTasks_CompleteUncomplete(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Latin")

	rec := env.do(t, "POST", "/api/tasks/"+itoa(id)+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", rec.Code)
	}
	got, _ := env.store.GetTask(context.Background(), id)
	if !got.Completed {
		t.Error("task should be completed")
	}

	rec = env.do(t, "POST", "/api/tasks/"+itoa(id)+"/uncomplete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("uncomplete: expected 200, got %d", rec.Code)
	}
	got, _ = env.store.GetTask(context.Background(), id)
	if got.Completed {
		t.Error("task should be incomplete again")
	}
}

func TestTasks_BadID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "DELETE", "/api/tasks/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestSuggestSubtasks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/tasks/999/suggest-subtasks", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown task: expected 404, got %d", rec.Code)
	}

	id := env.addTask(t, "Organic Chemistry")
	rec = env.do(t, "POST", "/api/tasks/"+itoa(id)+"/suggest-subtasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeMap(t, rec); body["subtasks"] != "assistant reply" {
		t.Errorf("unexpected subtasks payload: %v", body)
	}
}

func TestGeneratePlan(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/generate-plan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeMap(t, rec); body["plan"] != "No tasks available to generate a study plan." {
		t.Errorf("empty store should yield fixed reply: %v", body)
	}

	env.addTask(t, "Astronomy")
	rec = env.do(t, "GET", "/api/generate-plan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeMap(t, rec); body["plan"] != "assistant reply" {
		t.Errorf("unexpected plan payload: %v", body)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.addTask(t, "Music Theory")

	rec := env.do(t, "GET", "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["total"] != float64(1) || body["completed"] != float64(0) {
		t.Errorf("unexpected stats: %v", body)
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)
	env.addTask(t, "Rendered Subject")

	rec := env.do(t, "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type: %q", ct)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "StudyBuddy") {
		t.Errorf("agent name missing from page")
	}
	if !strings.Contains(page, "Rendered Subject") {
		t.Errorf("task subject missing from page")
	}
}

func TestIndex_UnknownPath(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/healthz", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response should carry a generated request id")
	}

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	echo := httptest.NewRecorder()
	env.handler.ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("incoming id should be honored, got %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
