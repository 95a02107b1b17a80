package board

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/taskboard/internal/api"
	"github.com/imkarma/taskboard/internal/kanban"
	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/session"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/testutil"
	"github.com/imkarma/taskboard/internal/view"
)

func newBoard(t *testing.T, onExpired func()) (*Board, *testutil.FakeStore) {
	t.Helper()
	log.Discard()
	fake := testutil.NewFakeStore()
	t.Cleanup(fake.Close)

	sess, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	b, err := New(Options{
		APIURL:    fake.URL(),
		Timeout:   2 * time.Second,
		Session:   sess,
		Mode:      view.ModeKanban,
		OnExpired: onExpired,
	})
	require.NoError(t, err)
	return b, fake
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Options{APIURL: "not a url"})
	assert.Error(t, err)
}

func TestNew_UsesMode(t *testing.T) {
	b, _ := newBoard(t, nil)
	assert.Equal(t, view.ModeKanban, b.View.Mode())
}

func TestSave_CreateThenEdit(t *testing.T) {
	b, fake := newBoard(t, nil)
	ctx := context.Background()

	d := task.NewDraft()
	d.Title = "  Write report  "
	d.Priority = string(task.PriorityHigh)
	d.DueDate = "2030-01-02"

	created, err := b.Save(ctx, d, 0)
	require.NoError(t, err)
	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, task.StatusTodo, created.Status)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), created.DueDate.UTC())

	d = task.DraftFrom(*created)
	d.Status = string(task.StatusInProgress)
	d.DueDate = ""
	updated, err := b.Save(ctx, d, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, updated.Status)
	assert.Nil(t, updated.DueDate)

	stored, ok := fake.Task(created.ID)
	require.True(t, ok)
	assert.Nil(t, stored.DueDate)
	assert.Equal(t, 1, fake.Calls("POST /tasks"))
	assert.Equal(t, 1, fake.Calls("PUT /tasks/{id}"))
}

func TestSave_InvalidDraftNeverReachesServer(t *testing.T) {
	b, fake := newBoard(t, nil)

	d := task.NewDraft()
	d.Title = "ok"
	d.DueDate = "next tuesday"
	_, err := b.Save(context.Background(), d, 0)
	assert.ErrorIs(t, err, task.ErrInvalidDueDate)
	assert.Equal(t, `invalid due date: "next tuesday" (want YYYY-MM-DD)`, api.Message(err, "Failed to save task"))
	assert.Zero(t, fake.Calls("POST /tasks"))
}

func TestMove(t *testing.T) {
	b, fake := newBoard(t, nil)
	ctx := context.Background()
	fake.Seed(task.Task{ID: 1, Title: "a", Status: task.StatusTodo, Priority: task.PriorityLow})

	moved, out, err := b.Move(ctx, 1, task.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, kanban.Moved, out)
	assert.Equal(t, task.StatusDone, moved.Status)

	same, out, err := b.Move(ctx, 1, task.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, kanban.SameColumn, out)
	assert.Equal(t, task.StatusDone, same.Status)

	assert.Equal(t, 1, fake.Calls("PUT /tasks/{id}"))
	assert.Equal(t, kanban.Idle, b.Drag.State())
}

func TestMove_Errors(t *testing.T) {
	b, fake := newBoard(t, nil)
	ctx := context.Background()

	_, _, err := b.Move(ctx, 1, "archived")
	assert.ErrorIs(t, err, task.ErrInvalidStatus)

	_, _, err = b.Move(ctx, 404, task.StatusDone)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Zero(t, fake.Calls("PUT /tasks/{id}"))
	assert.Equal(t, kanban.Idle, b.Drag.State())
}

func TestDrop_StaleViewIssuesNothing(t *testing.T) {
	b, fake := newBoard(t, nil)
	fake.Seed(task.Task{ID: 1, Title: "a", Status: task.StatusTodo, Priority: task.PriorityLow})

	visible, err := b.List(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Drag.Start(99, task.StatusTodo))

	done := task.StatusDone
	_, out, err := b.Drop(context.Background(), &done, visible)
	require.NoError(t, err)
	assert.Equal(t, kanban.Stale, out)
	assert.Zero(t, fake.Calls("PUT /tasks/{id}"))
}

func TestOverdueIndicatorOnListedTasks(t *testing.T) {
	b, fake := newBoard(t, nil)
	past := time.Now().Add(-48 * time.Hour).UTC()
	fake.Seed(task.Task{ID: 1, Title: "late", Status: task.StatusTodo, Priority: task.PriorityLow, DueDate: &past})
	fake.Seed(task.Task{ID: 2, Title: "whenever", Status: task.StatusTodo, Priority: task.PriorityLow})

	ts, err := b.List(context.Background())
	require.NoError(t, err)
	byID := map[int64]task.Task{}
	for _, tk := range ts {
		byID[tk.ID] = tk
	}

	label, overdue := byID[1].DueIndicator(time.Now())
	assert.NotEmpty(t, label)
	assert.True(t, overdue)

	label, overdue = byID[2].DueIndicator(time.Now())
	assert.Empty(t, label)
	assert.False(t, overdue)
}

func TestLoginWhoamiLogout(t *testing.T) {
	b, fake := newBoard(t, nil)
	ctx := context.Background()
	fake.AddUser("ada@example.com", "ada", "secret", "admin")
	fake.RequireAuth(true)

	_, err := b.Whoami(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = b.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, b.Session.LoggedIn())

	u, err := b.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, u.IsAdmin())

	me, err := b.Whoami(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	_, err = b.List(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Logout())
	assert.False(t, b.Session.LoggedIn())
	_, err = b.List(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestLogin_ProfileFailureClearsSession(t *testing.T) {
	b, fake := newBoard(t, nil)
	ctx := context.Background()
	fake.AddUser("ada@example.com", "ada", "secret", "user")
	fake.FailNext("GET /auth/me", 500, "boom")

	_, err := b.Login(ctx, "ada@example.com", "secret")
	require.Error(t, err)
	assert.False(t, b.Session.LoggedIn())
	_, ok := b.Session.Token()
	assert.False(t, ok)

	u, err := b.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, b.Session.LoggedIn())
}

func TestExpiredSessionFiresHook(t *testing.T) {
	var expired atomic.Int32
	b, fake := newBoard(t, func() { expired.Add(1) })
	ctx := context.Background()
	fake.AddUser("ada@example.com", "ada", "secret", "user")
	fake.RequireAuth(true)

	_, err := b.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	fake.RevokeTokens()
	_, err = b.Stats(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, int32(1), expired.Load())
	assert.False(t, b.Session.LoggedIn())
}

func TestRegister(t *testing.T) {
	b, _ := newBoard(t, nil)
	u, err := b.Register(context.Background(), api.Registration{Email: "bo@example.com", Username: "bo", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "bo", u.Username)
	assert.False(t, b.Session.LoggedIn())
}
