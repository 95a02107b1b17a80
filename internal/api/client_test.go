package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/imkarma/taskboard/internal/api"
	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/testutil"
)

func init() { log.Discard() }

// memCreds is an in-memory api.Credentials.
type memCreds struct {
	mu      sync.Mutex
	tok     *oauth2.Token
	cleared int
}

func (m *memCreds) Token() (*oauth2.Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return nil, false
	}
	return m.tok, true
}

func (m *memCreds) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	m.cleared++
	return nil
}

func newClient(t *testing.T, opts ...api.Option) (*api.Client, *testutil.FakeStore) {
	t.Helper()
	fake := testutil.NewFakeStore()
	t.Cleanup(fake.Close)
	c, err := api.New(fake.URL(), opts...)
	require.NoError(t, err)
	return c, fake
}

func ptr[T any](v T) *T { return &v }

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := api.New("not a url")
	assert.Error(t, err)
}

func TestCRUD(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, task.Edit{
		Title:    ptr("Write report"),
		Status:   ptr(task.StatusTodo),
		Priority: ptr(task.PriorityHigh),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := c.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)

	updated, err := c.UpdateTask(ctx, created.ID, task.StatusEdit(task.StatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, updated.Status)
	assert.Equal(t, "Write report", updated.Title)

	list, err := c.ListTasks(ctx, task.Filter{Status: task.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.DeleteTask(ctx, created.ID))

	_, err = c.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)

	err = c.DeleteTask(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "Task not found", api.Message(err, "Failed to delete task"))
}

func TestListTasks_EmptyIsNonNil(t *testing.T) {
	c, _ := newClient(t)
	list, err := c.ListTasks(context.Background(), task.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListTasks_SendsFilter(t *testing.T) {
	c, fake := newClient(t)
	fake.Seed(task.Task{ID: 1, Title: "a", Status: task.StatusTodo, Priority: task.PriorityLow})
	fake.Seed(task.Task{ID: 2, Title: "b", Status: task.StatusTodo, Priority: task.PriorityHigh})
	fake.Seed(task.Task{ID: 3, Title: "c", Status: task.StatusDone, Priority: task.PriorityHigh})

	list, err := c.ListTasks(context.Background(), task.Filter{Status: task.StatusTodo, Priority: task.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestStats(t *testing.T) {
	c, fake := newClient(t)
	fake.Seed(task.Task{Title: "a", Status: task.StatusTodo, Priority: task.PriorityLow})
	fake.Seed(task.Task{Title: "b", Status: task.StatusDone, Priority: task.PriorityLow})

	s, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalTasks)
	assert.Equal(t, 1, s.StatusStats[task.StatusTodo])
	assert.Equal(t, 0, s.StatusStats[task.StatusInProgress])
	assert.Equal(t, 2, s.PriorityStats[task.PriorityLow])
}

func TestValidationError_JoinsMessages(t *testing.T) {
	c, fake := newClient(t)
	fake.FailNext("POST /tasks", http.StatusUnprocessableEntity, []string{"title too short", "priority invalid"})

	_, err := c.CreateTask(context.Background(), task.Edit{Title: ptr("x")})
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"title too short", "priority invalid"}, ve.Messages)
	assert.Equal(t, "title too short, priority invalid", api.Message(err, "Failed to save task."))
}

func TestValidationError_StringDetail(t *testing.T) {
	c, fake := newClient(t)
	fake.FailNext("PUT /tasks/{id}", http.StatusBadRequest, "Due date must be in the future")
	fake.Seed(task.Task{ID: 5, Title: "t"})

	_, err := c.UpdateTask(context.Background(), 5, task.StatusEdit(task.StatusDone))
	assert.Equal(t, "Due date must be in the future", api.Message(err, "Failed to save task."))
}

func TestNetworkError_UsesFallback(t *testing.T) {
	c, fake := newClient(t)
	fake.Close()

	_, err := c.ListTasks(context.Background(), task.Filter{})
	var ne *api.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "Failed to load tasks", api.Message(err, "Failed to load tasks"))
}

func TestServerError_UsesFallback(t *testing.T) {
	c, fake := newClient(t)
	fake.FailNext("GET /tasks/stats/summary", http.StatusInternalServerError, "boom")

	_, err := c.Stats(context.Background())
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Equal(t, "Failed to load statistics", api.Message(err, "Failed to load statistics"))
}

func TestMessage_ClientValidation(t *testing.T) {
	assert.Equal(t, "title is required", api.Message(task.ErrTitleRequired, "Failed to save task."))
	assert.Equal(t, "", api.Message(nil, "x"))
	assert.Equal(t, "x", api.Message(errors.New("other"), "x"))
}

func TestInterceptor_AttachesBearerAndRequestID(t *testing.T) {
	var seenAuth, seenID atomic.Value
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seenAuth.Store(r.Header.Get("Authorization"))
		seenID.Store(r.Header.Get("X-Request-ID"))
		return http.DefaultTransport.RoundTrip(r)
	})
	creds := &memCreds{tok: &oauth2.Token{AccessToken: "secret", TokenType: "bearer"}}
	c, _ := newClient(t, api.WithCredentials(creds), api.WithTransport(rt))

	_, err := c.ListTasks(context.Background(), task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", seenAuth.Load())
	assert.NotEmpty(t, seenID.Load())
}

func TestInterceptor_NoCredentialNoHeader(t *testing.T) {
	var seenAuth atomic.Value
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seenAuth.Store(r.Header.Get("Authorization"))
		return http.DefaultTransport.RoundTrip(r)
	})
	c, _ := newClient(t, api.WithCredentials(&memCreds{}), api.WithTransport(rt))

	_, err := c.ListTasks(context.Background(), task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "", seenAuth.Load())
}

func TestInterceptor_401ClearsSessionAndFiresHook(t *testing.T) {
	creds := &memCreds{tok: &oauth2.Token{AccessToken: "stale"}}
	var expired atomic.Int32
	c, fake := newClient(t, api.WithCredentials(creds), api.OnExpired(func() { expired.Add(1) }))
	fake.RequireAuth(true)

	_, err := c.ListTasks(context.Background(), task.Filter{})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 1, creds.cleared)
	assert.Equal(t, int32(1), expired.Load())
	_, ok := creds.Token()
	assert.False(t, ok)
}

func TestLogin_WrongPasswordIsNotExpiry(t *testing.T) {
	creds := &memCreds{}
	var expired atomic.Int32
	c, fake := newClient(t, api.WithCredentials(creds), api.OnExpired(func() { expired.Add(1) }))
	fake.AddUser("ada@example.com", "ada", "pw", "user")

	_, err := c.Login(context.Background(), "ada@example.com", "nope")
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 0, creds.cleared)
	assert.Equal(t, int32(0), expired.Load())
}

func TestLoginAndMe(t *testing.T) {
	creds := &memCreds{}
	c, fake := newClient(t, api.WithCredentials(creds))
	fake.AddUser("ada@example.com", "ada", "pw", "admin")

	tok, err := c.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-ada", tok.AccessToken)

	creds.tok = tok
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, u.IsAdmin())
}

func TestRegister_Duplicate(t *testing.T) {
	c, _ := newClient(t)
	reg := api.Registration{Email: "new@example.com", Username: "new", Password: "pw"}

	u, err := c.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, "new", u.Username)

	_, err = c.Register(context.Background(), reg)
	assert.Equal(t, "Email already registered", api.Message(err, "Registration failed"))
}

func TestTimeout(t *testing.T) {
	c, fake := newClient(t, api.WithTimeout(50*time.Millisecond))
	release, _ := fake.Gate("GET /tasks")
	defer release()

	_, err := c.ListTasks(context.Background(), task.Filter{})
	var ne *api.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestGetTask_ZonelessTimestamps(t *testing.T) {
	c, fake := newClient(t)
	created := time.Date(2025, 5, 1, 10, 20, 30, 123456000, time.UTC)
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fake.Seed(task.Task{ID: 4, Title: "naive", Status: task.StatusTodo, Priority: task.PriorityLow, CreatedAt: created, DueDate: &due})

	got, err := c.GetTask(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due, *got.DueDate)
	assert.Nil(t, got.UpdatedAt)
}

func TestListAndMe_ZonelessTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tasks":
			_, _ = w.Write([]byte(`[{"id":1,"title":"a","status":"todo","priority":"low","description":null,
				"due_date":null,"created_at":"2025-05-01T10:20:30","updated_at":null}]`))
		case "/api/auth/me":
			_, _ = w.Write([]byte(`{"id":1,"email":"ada@example.com","username":"ada","role":"user",
				"created_at":"2025-05-01T10:20:30.123456"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := api.New(srv.URL + "/api")
	require.NoError(t, err)

	list, err := c.ListTasks(context.Background(), task.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 20, 30, 0, time.UTC), list[0].CreatedAt)

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 20, 30, 123456000, time.UTC), u.CreatedAt)
}
