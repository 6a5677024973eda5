package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/vrt/internal/client"
)

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = errors.New("not logged in, run 'vrtctl login' first")

// DefaultTimeout bounds a request when App.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// App is the client state shared by all commands.
type App struct {
	Store   *client.Store
	Timeout time.Duration

	mu      sync.Mutex
	waiting *waiter
}

type waiter struct {
	success, failure client.Type
	ch               chan client.Action
}

// NewApp builds the client store on top of adapter and hydrates the session
// from storage. Session changes are written back to storage.
func NewApp(adapter client.Adapter, storage client.Storage, logger *slog.Logger) *App {
	app := &App{Timeout: DefaultTimeout}
	session := client.LoadSession(storage, logger)
	app.Store = client.NewStore(client.Reduce, client.InitialState(session),
		client.ObserveActions(app.observe),
		client.APIMiddleware(adapter, logger),
	)
	client.SyncSession(app.Store, storage, logger)
	return app
}

func (a *App) observe(act client.Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.waiting
	if w == nil || (act.Type != w.success && act.Type != w.failure) {
		return
	}
	a.waiting = nil
	w.ch <- act
}

// Request dispatches a request action and waits for its outcome. A failure
// outcome is returned as an error carrying its message.
func (a *App) Request(ctx context.Context, act client.Action) (client.Action, error) {
	d, _ := client.Describe(act)
	if d == nil {
		return client.Action{}, fmt.Errorf("%s is not a request", act.Type)
	}

	w := &waiter{success: d.SuccessType, failure: d.FailureType, ch: make(chan client.Action, 1)}
	a.mu.Lock()
	a.waiting = w
	a.mu.Unlock()

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	a.Store.Dispatch(act)

	select {
	case out := <-w.ch:
		if out.Error {
			msg, _ := out.Payload.(string)
			return out, errors.New(msg)
		}
		return out, nil
	case <-timer.C:
		a.forget(w)
		return client.Action{}, fmt.Errorf("%s: no response after %s", act.Type, timeout)
	case <-ctx.Done():
		a.forget(w)
		return client.Action{}, ctx.Err()
	}
}

func (a *App) forget(w *waiter) {
	a.mu.Lock()
	if a.waiting == w {
		a.waiting = nil
	}
	a.mu.Unlock()
}

// Session returns the signed-in session or ErrNotSignedIn.
func (a *App) Session() (*client.Session, error) {
	s := a.Store.GetState().User
	if !s.SignedIn() {
		return nil, ErrNotSignedIn
	}
	return s, nil
}
