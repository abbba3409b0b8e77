package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stride-app/stride/internal/app/engagement"
	"github.com/stride-app/stride/internal/domain"
	"github.com/stride-app/stride/internal/health"
	"github.com/stride-app/stride/internal/infra/lock"
	"github.com/stride-app/stride/internal/infra/sqlite"
)

const testToday = "2024-01-01"

func newTestServer(t *testing.T) (*Server, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := engagement.FixedClock{Day: domain.MustParseDate(testToday)}
	eng := engagement.NewEngine(db, lock.NewKeyed(), clock, nil)
	return NewServer(db, eng, clock, nil), db
}

// do sends one request through the router. user "" omits the header.
func do(t *testing.T, srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func createUser(t *testing.T, srv *Server, id string) {
	t.Helper()
	w := do(t, srv, "POST", "/api/users", "", `{"id":"`+id+`","name":"`+id+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func createTask(t *testing.T, srv *Server, user, body string) domain.Task {
	t.Helper()
	w := do(t, srv, "POST", "/api/tasks", user, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: status = %d, body = %s", w.Code, w.Body.String())
	}
	var task domain.Task
	decode(t, w, &task)
	return task
}

// ─── Health & Middleware ────────────────────────────────────────────────────

func TestAPI_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestAPI_HealthWithChecker(t *testing.T) {
	srv, db := newTestServer(t)
	c := health.NewChecker(0, nil, health.PingCheck("store", db))
	c.RunOnce(context.Background())
	srv.SetHealth(c)

	w := do(t, srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Status string          `json:"status"`
		Checks []health.Status `json:"checks"`
	}
	decode(t, w, &body)
	if body.Status != "ok" || len(body.Checks) != 1 || !body.Checks[0].Healthy {
		t.Errorf("body = %+v", body)
	}
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	if w := do(t, srv, "GET", "/metrics", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: status = %d, want 404", w.Code)
	}
	srv.EnableMetrics()
	w := do(t, srv, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "stride_http_requests_total") {
		t.Error("metrics output should include stride_http_requests_total")
	}
}

func TestAPI_CORS(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, "OPTIONS", "/api/tasks", "", "")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS: Access-Control-Allow-Origin should be *")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), UserHeader) {
		t.Errorf("allowed headers should include %s", UserHeader)
	}
}

func TestAPI_CORSRestricted(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetCORSOrigins([]string{"http://localhost:3000"})

	req := httptest.NewRequest("OPTIONS", "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin should not be allowed, got %q", got)
	}
}

func TestAPI_Identity(t *testing.T) {
	srv, _ := newTestServer(t)
	if w := do(t, srv, "GET", "/api/tasks", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", w.Code)
	}
	if w := do(t, srv, "GET", "/api/tasks", "ghost", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", w.Code)
	}
}

// ─── Users & Profile ────────────────────────────────────────────────────────

func TestAPI_CreateUser(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	if w := do(t, srv, "POST", "/api/users", "", `{"id":"alice2","name":"alice"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate name: status = %d, want 409", w.Code)
	}
	if w := do(t, srv, "POST", "/api/users", "", `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank name: status = %d, want 400", w.Code)
	}

	w := do(t, srv, "POST", "/api/users", "", `{"name":"bob"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("generated id: status = %d", w.Code)
	}
	var u domain.User
	decode(t, w, &u)
	if u.ID == "" || u.Name != "bob" {
		t.Errorf("user = %+v", u)
	}
}

func TestAPI_ProfileDefaults(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	w := do(t, srv, "GET", "/api/profile", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	decode(t, w, &body)
	want := map[string]float64{"xp": 0, "level": 1, "current_streak": 0, "xp_to_next_level": 100, "progress_pct": 0}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %v, want %v", k, body[k], v)
		}
	}
	if body["last_completion_date"] != nil {
		t.Errorf("last_completion_date = %v, want null", body["last_completion_date"])
	}
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

func TestAPI_CreateTask(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	task := createTask(t, srv, "alice", `{"title":"Write report","due_date":"2024-01-05","start_time":"09:30"}`)
	if task.ID == "" || task.Priority != domain.PriorityMedium || task.Completed {
		t.Errorf("task = %+v", task)
	}
	if task.DueDate == nil || task.DueDate.String() != "2024-01-05" {
		t.Errorf("due_date = %v", task.DueDate)
	}
	if task.StartTime == nil || *task.StartTime != "09:30:00" {
		t.Errorf("start_time = %v, want 09:30:00", task.StartTime)
	}
}

func TestAPI_CreateTask_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	bodies := []string{
		`{"title":""}`,
		`{"title":"x","priority":"urgent"}`,
		`{"title":"x","due_date":"01/05/2024"}`,
		`{"title":"x","start_time":"25:00"}`,
		`{"title":"` + strings.Repeat("a", domain.MaxTitleLen+1) + `"}`,
		`{"title":"x","unknown":1}`,
		`not json`,
	}
	for _, body := range bodies {
		if w := do(t, srv, "POST", "/api/tasks", "alice", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %.40s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestAPI_ListTasks_FilterAndOwnership(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	createUser(t, srv, "bob")

	createTask(t, srv, "alice", `{"title":"a1","due_date":"2024-01-05"}`)
	createTask(t, srv, "alice", `{"title":"a2"}`)
	createTask(t, srv, "bob", `{"title":"b1","due_date":"2024-01-05"}`)

	w := do(t, srv, "GET", "/api/tasks", "alice", "")
	var all []domain.Task
	decode(t, w, &all)
	if len(all) != 2 {
		t.Errorf("alice tasks = %d, want 2", len(all))
	}

	w = do(t, srv, "GET", "/api/tasks?due_date=2024-01-05", "alice", "")
	var due []domain.Task
	decode(t, w, &due)
	if len(due) != 1 || due[0].Title != "a1" {
		t.Errorf("filtered = %+v", due)
	}

	if w := do(t, srv, "GET", "/api/tasks?due_date=bad", "alice", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad filter: status = %d, want 400", w.Code)
	}
}

func TestAPI_ListTasks_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	w := do(t, srv, "GET", "/api/tasks", "alice", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestAPI_GetTask_OtherUser(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	createUser(t, srv, "bob")
	task := createTask(t, srv, "alice", `{"title":"private"}`)

	if w := do(t, srv, "GET", "/api/tasks/"+task.ID, "bob", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := do(t, srv, "GET", "/api/tasks/"+task.ID, "alice", ""); w.Code != http.StatusOK {
		t.Errorf("owner status = %d, want 200", w.Code)
	}
}

func TestAPI_UpdateTask(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	task := createTask(t, srv, "alice", `{"title":"draft","due_date":"2024-01-05"}`)

	w := do(t, srv, "PATCH", "/api/tasks/"+task.ID, "alice",
		`{"title":"final","priority":"H","due_date":null,"completed":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got domain.Task
	decode(t, w, &got)
	if got.Title != "final" || got.Priority != domain.PriorityHigh {
		t.Errorf("task = %+v", got)
	}
	if got.DueDate != nil {
		t.Errorf("due_date = %v, want cleared", got.DueDate)
	}
	if got.Completed {
		t.Error("completed must not be writable through update")
	}

	if w := do(t, srv, "PATCH", "/api/tasks/missing", "alice", `{"title":"x"}`); w.Code != http.StatusNotFound {
		t.Errorf("missing task: status = %d, want 404", w.Code)
	}
	if w := do(t, srv, "PATCH", "/api/tasks/"+task.ID, "alice", `{"title":null}`); w.Code != http.StatusBadRequest {
		t.Errorf("null title: status = %d, want 400", w.Code)
	}
}

func TestAPI_DeleteTask(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	task := createTask(t, srv, "alice", `{"title":"gone"}`)

	if w := do(t, srv, "DELETE", "/api/tasks/"+task.ID, "alice", ""); w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w := do(t, srv, "DELETE", "/api/tasks/"+task.ID, "alice", ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}

// ─── Completion ─────────────────────────────────────────────────────────────

func TestAPI_CompleteTask(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	task := createTask(t, srv, "alice", `{"title":"ship","priority":"H"}`)

	w := do(t, srv, "POST", "/api/tasks/"+task.ID+"/complete", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]interface{}
	decode(t, w, &body)

	if body["status"] != "task completed" {
		t.Errorf("status = %v", body["status"])
	}
	if body["xp_earned"] != float64(15) || body["current_xp"] != float64(15) || body["current_streak"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if body["leveled_up"] != false {
		t.Errorf("leveled_up = %v, want false", body["leveled_up"])
	}
	if v, ok := body["new_level"]; !ok || v != nil {
		t.Errorf("new_level = %v (present %v), want null", v, ok)
	}
}

func TestAPI_CompleteTask_LevelUp(t *testing.T) {
	srv, db := newTestServer(t)
	createUser(t, srv, "alice")
	task := createTask(t, srv, "alice", `{"title":"ship","due_date":"`+testToday+`"}`)

	ctx := context.Background()
	err := db.InTx(ctx, func(s domain.CompletionStore) error {
		p, err := s.GetProfile(ctx, "alice")
		if err != nil {
			return err
		}
		p.XP = 95
		return s.SaveProfile(ctx, p)
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	w := do(t, srv, "POST", "/api/tasks/"+task.ID+"/complete", "alice", "")
	var body map[string]interface{}
	decode(t, w, &body)
	if body["xp_earned"] != float64(20) || body["current_xp"] != float64(115) {
		t.Errorf("body = %v", body)
	}
	if body["leveled_up"] != true || body["new_level"] != float64(2) {
		t.Errorf("leveled_up = %v, new_level = %v", body["leveled_up"], body["new_level"])
	}

	w = do(t, srv, "GET", "/api/profile", "alice", "")
	var profile map[string]interface{}
	decode(t, w, &profile)
	if profile["level"] != float64(2) || profile["xp_to_next_level"] != float64(167) {
		t.Errorf("profile = %v", profile)
	}
	if profile["last_completion_date"] != testToday {
		t.Errorf("last_completion_date = %v", profile["last_completion_date"])
	}
}

func TestAPI_CompleteTask_AlreadyCompleted(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	task := createTask(t, srv, "alice", `{"title":"ship"}`)

	do(t, srv, "POST", "/api/tasks/"+task.ID+"/complete", "alice", "")
	w := do(t, srv, "POST", "/api/tasks/"+task.ID+"/complete", "alice", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "task already completed" {
		t.Errorf("body = %v", body)
	}

	w = do(t, srv, "GET", "/api/profile", "alice", "")
	var profile map[string]interface{}
	decode(t, w, &profile)
	if profile["xp"] != float64(10) {
		t.Errorf("xp = %v, want 10 (second completion awards nothing)", profile["xp"])
	}
}

func TestAPI_CompleteTask_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")
	if w := do(t, srv, "POST", "/api/tasks/nope/complete", "alice", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ─── Planner ────────────────────────────────────────────────────────────────

func TestAPI_Notes(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	w := do(t, srv, "POST", "/api/notes", "alice", `{"content":"first"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var first domain.DailyNote
	decode(t, w, &first)
	if first.Date.String() != testToday {
		t.Errorf("date = %s, want %s", first.Date, testToday)
	}

	do(t, srv, "POST", "/api/notes", "alice", `{"content":"second"}`)
	w = do(t, srv, "GET", "/api/notes", "alice", "")
	var notes []domain.DailyNote
	decode(t, w, &notes)
	if len(notes) != 1 || notes[0].Content != "second" {
		t.Errorf("notes = %+v, want one note with second", notes)
	}

	w = do(t, srv, "PUT", "/api/notes/"+first.ID, "alice", `{"content":"third"}`)
	if w.Code != http.StatusOK {
		t.Errorf("update status = %d", w.Code)
	}
	w = do(t, srv, "GET", "/api/notes/"+first.ID, "alice", "")
	var got domain.DailyNote
	decode(t, w, &got)
	if got.Content != "third" {
		t.Errorf("get note content = %q, want third", got.Content)
	}
	createUser(t, srv, "bob")
	if w := do(t, srv, "GET", "/api/notes/"+first.ID, "bob", ""); w.Code != http.StatusNotFound {
		t.Errorf("other user get: status = %d, want 404", w.Code)
	}
	if w := do(t, srv, "DELETE", "/api/notes/"+first.ID, "alice", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, srv, "PUT", "/api/notes/"+first.ID, "alice", `{"content":"x"}`); w.Code != http.StatusNotFound {
		t.Errorf("update deleted note: status = %d, want 404", w.Code)
	}
}

func TestAPI_FocusItems(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	w := do(t, srv, "POST", "/api/focus-items", "alice", `{"text":"deep work"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var item domain.FocusItem
	decode(t, w, &item)

	if w := do(t, srv, "POST", "/api/focus-items", "alice", `{"text":"  "}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank text: status = %d, want 400", w.Code)
	}

	w = do(t, srv, "GET", "/api/focus-items", "alice", "")
	var items []domain.FocusItem
	decode(t, w, &items)
	if len(items) != 1 || items[0].Text != "deep work" {
		t.Errorf("items = %+v", items)
	}

	w = do(t, srv, "PATCH", "/api/focus-items/"+item.ID, "alice", `{"text":"  shallow work "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	var patched domain.FocusItem
	decode(t, w, &patched)
	if patched.Text != "shallow work" || patched.ID != item.ID {
		t.Errorf("patched = %+v", patched)
	}

	w = do(t, srv, "GET", "/api/focus-items/"+item.ID, "alice", "")
	var got domain.FocusItem
	decode(t, w, &got)
	if got.Text != "shallow work" {
		t.Errorf("get text = %q, want shallow work", got.Text)
	}

	if w := do(t, srv, "PUT", "/api/focus-items/"+item.ID, "alice", `{"text":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank update: status = %d, want 400", w.Code)
	}
	if w := do(t, srv, "PATCH", "/api/focus-items/missing", "alice", `{"text":"x"}`); w.Code != http.StatusNotFound {
		t.Errorf("missing item: status = %d, want 404", w.Code)
	}

	if w := do(t, srv, "DELETE", "/api/focus-items/"+item.ID, "alice", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, srv, "GET", "/api/focus-items/"+item.ID, "alice", ""); w.Code != http.StatusNotFound {
		t.Errorf("get deleted item: status = %d, want 404", w.Code)
	}
}

func TestAPI_ScheduleEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	createUser(t, srv, "alice")

	for _, body := range []string{
		`{"title":"review","start_time":"14:00"}`,
		`{"title":"standup","start_time":"09:30","end_time":"09:45"}`,
	} {
		if w := do(t, srv, "POST", "/api/schedule-events", "alice", body); w.Code != http.StatusCreated {
			t.Fatalf("create %s: status = %d", body, w.Code)
		}
	}
	if w := do(t, srv, "POST", "/api/schedule-events", "alice", `{"title":"x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing start_time: status = %d, want 400", w.Code)
	}

	w := do(t, srv, "GET", "/api/schedule-events", "alice", "")
	var events []domain.ScheduleEvent
	decode(t, w, &events)
	if len(events) != 2 || events[0].Title != "standup" || events[1].Title != "review" {
		t.Fatalf("events = %+v, want standup then review", events)
	}
	if events[0].EndTime == nil || *events[0].EndTime != "09:45:00" {
		t.Errorf("end_time = %v", events[0].EndTime)
	}

	review := events[1].ID
	w = do(t, srv, "PUT", "/api/schedule-events/"+review, "alice",
		`{"title":"design review","start_time":"08:00","end_time":"08:30"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated domain.ScheduleEvent
	decode(t, w, &updated)
	if updated.Title != "design review" || updated.StartTime != "08:00:00" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.EndTime == nil || *updated.EndTime != "08:30:00" {
		t.Errorf("end_time = %v, want 08:30:00", updated.EndTime)
	}

	w = do(t, srv, "PATCH", "/api/schedule-events/"+review, "alice", `{"end_time":null}`)
	var cleared domain.ScheduleEvent
	decode(t, w, &cleared)
	if cleared.EndTime != nil || cleared.Title != "design review" {
		t.Errorf("cleared = %+v", cleared)
	}

	w = do(t, srv, "GET", "/api/schedule-events", "alice", "")
	decode(t, w, &events)
	if len(events) != 2 || events[0].ID != review {
		t.Errorf("moved event should now sort first: %+v", events)
	}

	for _, body := range []string{`{"start_time":"7pm"}`, `{"start_time":null}`, `{"title":" "}`} {
		if w := do(t, srv, "PATCH", "/api/schedule-events/"+review, "alice", body); w.Code != http.StatusBadRequest {
			t.Errorf("patch %s: status = %d, want 400", body, w.Code)
		}
	}
	if w := do(t, srv, "GET", "/api/schedule-events/missing", "alice", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing event: status = %d, want 404", w.Code)
	}

	if w := do(t, srv, "DELETE", "/api/schedule-events/"+review, "alice", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
}
