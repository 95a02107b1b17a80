// Package testutil provides an in-memory task service for tests. It speaks
// the same JSON contract as the real backend and is served over httptest.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/imkarma/taskboard/internal/task"
)

// FakeStore is an in-memory task backend with call counting, error
// injection and optional request gating.
type FakeStore struct {
	Server *httptest.Server

	mu     sync.Mutex
	tasks  map[int64]task.Task
	nextID int64
	calls  map[string]int
	users  map[string]fakeUser // email -> user
	tokens map[string]string   // token -> email
	now    func() time.Time

	requireAuth bool

	// FailNext makes the next request to the route ("GET /tasks") answer
	// with the given status and detail body.
	failNext map[string]failure

	// gate, when set, blocks matching requests until released.
	gate      chan struct{}
	gateRoute string
	entered   chan struct{}
}

type fakeUser struct {
	ID       int64
	Email    string
	Username string
	Password string
	Role     string
}

type failure struct {
	status int
	detail any
}

// NewFakeStore starts the fake backend. It is closed on test cleanup by the
// caller via Close.
func NewFakeStore() *FakeStore {
	f := &FakeStore{
		tasks:    make(map[int64]task.Task),
		nextID:   1,
		calls:    make(map[string]int),
		users:    make(map[string]fakeUser),
		tokens:   make(map[string]string),
		failNext: make(map[string]failure),
		now:      time.Now,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// URL is the API root to hand to api.New.
func (f *FakeStore) URL() string { return f.Server.URL + "/api" }

// Close shuts the server down.
func (f *FakeStore) Close() { f.Server.Close() }

// Seed inserts a task with a chosen id, bypassing the API.
func (f *FakeStore) Seed(t task.Task) task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = f.nextID
	}
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.now().Add(time.Duration(t.ID) * time.Millisecond)
	}
	f.tasks[t.ID] = t
	return t
}

// Task returns the stored task, if present.
func (f *FakeStore) Task(id int64) (task.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// AddUser registers an account and returns a valid token for it.
func (f *FakeStore) AddUser(email, username, password, role string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := fakeUser{ID: int64(len(f.users) + 1), Email: email, Username: username, Password: password, Role: role}
	f.users[email] = u
	tok := "tok-" + username
	f.tokens[tok] = email
	return tok
}

// RequireAuth makes task routes reject requests without a valid bearer
// token.
func (f *FakeStore) RequireAuth(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requireAuth = on
}

// RevokeTokens invalidates every issued token.
func (f *FakeStore) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// Calls returns how many requests hit route, e.g. "GET /tasks".
func (f *FakeStore) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// FailNext makes the next request to route fail with status. detail is
// encoded as the "detail" field: a string or a slice of messages.
func (f *FakeStore) FailNext(route string, status int, detail any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msgs, ok := detail.([]string); ok {
		items := make([]map[string]any, 0, len(msgs))
		for _, m := range msgs {
			items = append(items, map[string]any{"msg": m, "loc": []string{"body"}})
		}
		detail = items
	}
	f.failNext[route] = failure{status: status, detail: detail}
}

// Gate holds every request to route until the returned release func is
// called. Entered receives once per request that reached the gate.
func (f *FakeStore) Gate(route string) (release func(), entered <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.gateRoute = route
	f.entered = make(chan struct{}, 64)
	g := f.gate
	var once sync.Once
	return func() { once.Do(func() { close(g) }) }, f.entered
}

func (f *FakeStore) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	route := r.Method + " " + routeOf(path)

	f.mu.Lock()
	f.calls[route]++
	fail, failing := f.failNext[route]
	if failing {
		delete(f.failNext, route)
	}
	requireAuth := f.requireAuth
	var gate chan struct{}
	var entered chan struct{}
	if f.gate != nil && f.gateRoute == route {
		gate, entered = f.gate, f.entered
	}
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	if failing {
		writeJSON(w, fail.status, map[string]any{"detail": fail.detail})
		return
	}

	switch {
	case path == "/auth/login" && r.Method == http.MethodPost:
		f.login(w, r)
		return
	case path == "/auth/register" && r.Method == http.MethodPost:
		f.register(w, r)
		return
	}

	email, authed := f.authenticate(r)
	if (requireAuth || path == "/auth/me") && !authed {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
		return
	}

	switch {
	case path == "/auth/me" && r.Method == http.MethodGet:
		f.me(w, email)
	case path == "/tasks" && r.Method == http.MethodGet:
		f.list(w, r)
	case path == "/tasks" && r.Method == http.MethodPost:
		f.create(w, r)
	case path == "/tasks/stats/summary" && r.Method == http.MethodGet:
		f.stats(w)
	case strings.HasPrefix(path, "/tasks/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(path, "/tasks/"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{{"msg": "value is not a valid integer"}}})
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.get(w, id)
		case http.MethodPut:
			f.update(w, r, id)
		case http.MethodDelete:
			f.delete(w, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	}
}

// routeOf collapses numeric ids so counters group by endpoint.
func routeOf(path string) string {
	if strings.HasPrefix(path, "/tasks/") && path != "/tasks/stats/summary" {
		return "/tasks/{id}"
	}
	return path
}

func (f *FakeStore) authenticate(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[strings.TrimPrefix(h, "Bearer ")]
	return email, ok
}

func (f *FakeStore) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	u, ok := f.users[body.Email]
	var tok string
	if ok && u.Password == body.Password {
		tok = "tok-" + u.Username
		f.tokens[tok] = u.Email
	}
	f.mu.Unlock()

	if tok == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": tok, "token_type": "bearer"})
}

func (f *FakeStore) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	_, exists := f.users[body.Email]
	var u fakeUser
	if !exists {
		u = fakeUser{ID: int64(len(f.users) + 1), Email: body.Email, Username: body.Username, Password: body.Password, Role: "user"}
		f.users[body.Email] = u
	}
	f.mu.Unlock()

	if exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Email already registered"})
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (f *FakeStore) me(w http.ResponseWriter, email string) {
	f.mu.Lock()
	u := f.users[email]
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, userJSON(u))
}

func userJSON(u fakeUser) map[string]any {
	return map[string]any{
		"id": u.ID, "email": u.Email, "username": u.Username, "role": u.Role,
		"created_at": "2024-01-01T09:30:00.250000",
	}
}

// naiveLayout is how a SQLite-backed service renders date-times: no zone,
// microseconds.
const naiveLayout = "2006-01-02T15:04:05.000000"

func naive(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(naiveLayout)
}

// naiveTaskJSON renders t with zone-less timestamps.
func naiveTaskJSON(t task.Task) map[string]any {
	return map[string]any{
		"id": t.ID, "title": t.Title, "description": t.Description,
		"status": t.Status, "priority": t.Priority,
		"due_date": naive(t.DueDate), "created_at": naive(&t.CreatedAt), "updated_at": naive(t.UpdatedAt),
	}
}

func (f *FakeStore) list(w http.ResponseWriter, r *http.Request) {
	filter := task.Filter{
		Status:   task.Status(r.URL.Query().Get("status")),
		Priority: task.Priority(r.URL.Query().Get("priority")),
	}

	f.mu.Lock()
	out := make([]task.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	f.mu.Unlock()

	// Newest first, like the real service.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeStore) get(w http.ResponseWriter, id int64) {
	t, ok := f.Task(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Task not found"})
		return
	}
	writeJSON(w, http.StatusOK, naiveTaskJSON(t))
}

// decodeEdit reads the JSON body produced by task.Edit. Key presence
// matters: an explicit null clears an optional field.
func decodeEdit(r *http.Request) (task.Edit, []string) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return task.Edit{}, []string{"invalid JSON body"}
	}

	var out task.Edit
	var problems []string
	if v, ok := raw["title"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			problems = append(problems, "title: str type expected")
		} else {
			out.Title = &s
		}
	}
	if v, ok := raw["description"]; ok {
		var d *string
		_ = json.Unmarshal(v, &d)
		if d == nil {
			out.ClearDescription = true
		} else {
			out.Description = d
		}
	}
	if v, ok := raw["status"]; ok {
		var s task.Status
		_ = json.Unmarshal(v, &s)
		out.Status = &s
	}
	if v, ok := raw["priority"]; ok {
		var p task.Priority
		_ = json.Unmarshal(v, &p)
		out.Priority = &p
	}
	if v, ok := raw["due_date"]; ok {
		var d *time.Time
		if err := json.Unmarshal(v, &d); err != nil {
			problems = append(problems, "due_date: invalid datetime format")
		} else if d == nil {
			out.ClearDueDate = true
		} else {
			out.DueDate = d
		}
	}
	if err := out.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	return out, problems
}

func (f *FakeStore) create(w http.ResponseWriter, r *http.Request) {
	e, problems := decodeEdit(r)
	if e.Title == nil {
		problems = append(problems, "title: field required")
	}
	if len(problems) > 0 {
		writeValidation(w, problems)
		return
	}

	f.mu.Lock()
	t := task.Task{ID: f.nextID, Status: task.StatusTodo, Priority: task.PriorityMedium}
	f.nextID++
	t = e.Apply(t)
	t.CreatedAt = f.now().Add(time.Duration(t.ID) * time.Millisecond)
	f.tasks[t.ID] = t
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, t)
}

func (f *FakeStore) update(w http.ResponseWriter, r *http.Request, id int64) {
	e, problems := decodeEdit(r)
	if len(problems) > 0 {
		writeValidation(w, problems)
		return
	}

	f.mu.Lock()
	t, ok := f.tasks[id]
	if ok {
		t = e.Apply(t)
		now := f.now()
		t.UpdatedAt = &now
		f.tasks[id] = t
	}
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Task not found"})
		return
	}
	writeJSON(w, http.StatusOK, naiveTaskJSON(t))
}

func (f *FakeStore) delete(w http.ResponseWriter, id int64) {
	f.mu.Lock()
	_, ok := f.tasks[id]
	delete(f.tasks, id)
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Task not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeStore) stats(w http.ResponseWriter) {
	st := task.Stats{StatusStats: map[task.Status]int{}, PriorityStats: map[task.Priority]int{}}
	for _, s := range task.Statuses() {
		st.StatusStats[s] = 0
	}
	for _, p := range task.Priorities() {
		st.PriorityStats[p] = 0
	}

	f.mu.Lock()
	for _, t := range f.tasks {
		st.StatusStats[t.Status]++
		st.PriorityStats[t.Priority]++
	}
	f.mu.Unlock()

	for _, n := range st.StatusStats {
		st.TotalTasks += n
	}
	writeJSON(w, http.StatusOK, st)
}

func writeValidation(w http.ResponseWriter, problems []string) {
	items := make([]map[string]any, 0, len(problems))
	for _, p := range problems {
		items = append(items, map[string]any{"msg": p, "loc": []string{"body"}})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
