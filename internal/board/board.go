// Package board wires the session, API client, query cache, mutation
// coordinator, view controller and drag engine into the one dashboard the
// CLI and the TUI both drive.
package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/api"
	"github.com/imkarma/taskboard/internal/cache"
	"github.com/imkarma/taskboard/internal/kanban"
	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/mutation"
	"github.com/imkarma/taskboard/internal/session"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/view"
)

// ErrNotLoggedIn is returned by operations that need a stored session.
var ErrNotLoggedIn = errors.New("not logged in (run: taskboard login)")

// Options configures a Board.
type Options struct {
	APIURL    string
	Timeout   time.Duration
	Session   *session.Store
	Mode      view.Mode
	Transport http.RoundTripper
	// OnExpired runs after a 401 cleared the session. It may be called from
	// any goroutine.
	OnExpired func()
	Logger    *logrus.Logger
}

// Board is the dashboard. Its view controller and drag engine belong to the
// caller's event loop; everything else is safe for concurrent use.
type Board struct {
	Session   *session.Store
	Client    *api.Client
	Tasks     *cache.Tasks
	Mutations *mutation.Coordinator
	View      *view.Controller
	Drag      *kanban.Engine

	log *logrus.Logger
}

// New builds a board talking to o.APIURL.
func New(o Options) (*Board, error) {
	l := o.Logger
	if l == nil {
		l = log.GetLogger()
	}

	opts := []api.Option{api.WithLogger(l)}
	if o.Timeout > 0 {
		opts = append(opts, api.WithTimeout(o.Timeout))
	}
	if o.Transport != nil {
		opts = append(opts, api.WithTransport(o.Transport))
	}
	if o.Session != nil {
		opts = append(opts, api.WithCredentials(o.Session))
	}
	if o.OnExpired != nil {
		opts = append(opts, api.OnExpired(o.OnExpired))
	}

	client, err := api.New(o.APIURL, opts...)
	if err != nil {
		return nil, err
	}

	tc := cache.NewTasks(cache.New(), client)
	coord := mutation.New(client, tc.Cache())
	coord.SetLogger(l)

	return &Board{
		Session:   o.Session,
		Client:    client,
		Tasks:     tc,
		Mutations: coord,
		View:      view.New(tc, o.Mode),
		Drag:      &kanban.Engine{},
		log:       l,
	}, nil
}

// List returns the task set for the current filter.
func (b *Board) List(ctx context.Context) ([]task.Task, error) {
	return b.View.Tasks(ctx)
}

// Stats returns the aggregate counts.
func (b *Board) Stats(ctx context.Context) (task.Stats, error) {
	return b.Tasks.Stats(ctx)
}

// Save validates a form draft and creates a task (editingID == 0) or
// updates the one being edited.
func (b *Board) Save(ctx context.Context, d task.Draft, editingID int64) (*task.Task, error) {
	e, err := d.Validate()
	if err != nil {
		return nil, err
	}
	if editingID == 0 {
		return b.Mutations.Create(ctx, e)
	}
	return b.Mutations.Update(ctx, editingID, e)
}

// Delete removes task id.
func (b *Board) Delete(ctx context.Context, id int64) error {
	return b.Mutations.Delete(ctx, id)
}

// Drop ends the current drag gesture over dest against the visible task
// set, and persists the move when there is one.
func (b *Board) Drop(ctx context.Context, dest *task.Status, visible []task.Task) (*task.Task, kanban.Outcome, error) {
	m, out := b.Drag.Drop(dest, visible)
	if out != kanban.Moved {
		b.log.WithField("outcome", out).Debug("drop ignored")
		return nil, out, nil
	}
	t, err := kanban.Commit(ctx, b.Mutations, m)
	return t, out, err
}

// Move moves task id to column to with a one-shot gesture: the task is
// looked up, picked up from its current column and dropped on to.
func (b *Board) Move(ctx context.Context, id int64, to task.Status) (*task.Task, kanban.Outcome, error) {
	if !to.Valid() {
		return nil, kanban.Cancelled, fmt.Errorf("%w: %q", task.ErrInvalidStatus, to)
	}
	cur, err := b.Client.GetTask(ctx, id)
	if err != nil {
		return nil, kanban.Cancelled, err
	}
	if err := b.Drag.Start(cur.ID, cur.Status); err != nil {
		return nil, kanban.Cancelled, err
	}
	t, out, err := b.Drop(ctx, &to, []task.Task{*cur})
	if out == kanban.SameColumn {
		return cur, out, nil
	}
	return t, out, err
}

// Refresh marks all cached queries stale so the next read refetches.
func (b *Board) Refresh() {
	b.log.WithField("cached", b.Tasks.Cache().Len()).Debug("refresh")
	b.Mutations.Resync()
}

// Login exchanges credentials for a token, stores it and records the
// user's profile.
func (b *Board) Login(ctx context.Context, email, password string) (*api.User, error) {
	if b.Session == nil {
		return nil, errors.New("login: no session store")
	}
	tok, err := b.Client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := b.Session.Save(tok, nil); err != nil {
		return nil, err
	}
	u, err := b.Client.Me(ctx)
	if err == nil {
		err = b.Session.SetUser(*u)
	}
	if err != nil {
		// A token without a profile is not kept.
		if cerr := b.Session.Clear(); cerr != nil {
			b.log.WithError(cerr).Warn("clear session after failed login")
		}
		return nil, err
	}
	b.Refresh()
	b.log.WithField("user", u.Email).Info("logged in")
	return u, nil
}

// Logout forgets the stored credential and every cached query.
func (b *Board) Logout() error {
	if b.Session == nil {
		return nil
	}
	if err := b.Session.Clear(); err != nil {
		return err
	}
	b.Refresh()
	b.log.Info("logged out")
	return nil
}

// Register creates an account without logging in.
func (b *Board) Register(ctx context.Context, r api.Registration) (*api.User, error) {
	return b.Client.Register(ctx, r)
}

// Whoami returns the stored user, asking the server when the profile is
// not known yet.
func (b *Board) Whoami(ctx context.Context) (*api.User, error) {
	if b.Session == nil || !b.Session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if u, ok := b.Session.User(); ok {
		return &u, nil
	}
	u, err := b.Client.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.Session.SetUser(*u); err != nil {
		return nil, err
	}
	return u, nil
}

// Close releases the session database.
func (b *Board) Close() error {
	if b.Session == nil {
		return nil
	}
	return b.Session.Close()
}
