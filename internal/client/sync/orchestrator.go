// Package sync runs the client side of multi-device synchronization:
// it owns the session, debounces pushes after local edits, merges
// server responses without dropping newer local work, and can replace
// local state wholesale on an explicit pull.
package sync

import (
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smarttodo/sync/internal/client/api"
	"github.com/smarttodo/sync/internal/client/store"
	"github.com/smarttodo/sync/internal/models"
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// DefaultDebounce is how long the orchestrator waits after the last
// local edit before pushing.
const DefaultDebounce = 2 * time.Second

type debounceState int

const (
	stateIdle debounceState = iota
	statePending
)

// Orchestrator coordinates the local store and the server API.
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	store *store.Store
	api   *api.Client

	mu       stdsync.Mutex
	session  *Session
	state    debounceState
	timer    *time.Timer
	debounce time.Duration
	deviceID string

	cron *cron.Cron
	now  func() int64
}

// New builds an orchestrator over the given store and API client,
// restoring any persisted session.
func New(st *store.Store, apiClient *api.Client) (*Orchestrator, error) {
	deviceID, err := st.DeviceID()
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}

	session, err := loadSession(st)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session != nil {
		apiClient.SetToken(session.AccessToken)
	}

	return &Orchestrator{
		store:    st,
		api:      apiClient,
		session:  session,
		debounce: DefaultDebounce,
		deviceID: deviceID,
		now:      models.NowMillis,
	}, nil
}

// Session returns the current session, or nil when logged out.
func (o *Orchestrator) Session() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Login authenticates, persists the session, and pulls the server's
// task list so the device starts from the canonical state.
func (o *Orchestrator) Login(email, password string) error {
	resp, err := o.api.Login(email, password)
	if err != nil {
		return err
	}
	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		Name:         resp.User.Name,
	}
	if err := saveSession(o.store, session); err != nil {
		return err
	}

	o.mu.Lock()
	o.session = session
	o.mu.Unlock()
	o.api.SetToken(session.AccessToken)

	return o.Pull()
}

// Register creates an account and logs the device in.
func (o *Orchestrator) Register(email, password, name string) error {
	resp, err := o.api.Register(email, password, name)
	if err != nil {
		return err
	}
	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		Name:         resp.User.Name,
	}
	if err := saveSession(o.store, session); err != nil {
		return err
	}

	o.mu.Lock()
	o.session = session
	o.mu.Unlock()
	o.api.SetToken(session.AccessToken)
	return nil
}

// Logout revokes the refresh token (best effort) and clears the
// session. Local tasks stay on the device.
func (o *Orchestrator) Logout() error {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()

	if session != nil && session.RefreshToken != "" {
		if err := o.api.Logout(session.RefreshToken); err != nil {
			slog.Warn("server logout failed", "error", err)
		}
	}
	return o.clearSession()
}

func (o *Orchestrator) clearSession() error {
	o.mu.Lock()
	o.session = nil
	if o.timer != nil {
		o.timer.Stop()
	}
	o.state = stateIdle
	o.mu.Unlock()

	o.api.SetToken("")
	return o.store.ClearSession()
}

// SchedulePush arms (or re-arms) the debounced push. Every local edit
// calls this; the push fires once the edits go quiet for the debounce
// window.
func (o *Orchestrator) SchedulePush() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return
	}
	if o.state == statePending {
		o.timer.Reset(o.debounce)
		return
	}
	o.state = statePending
	o.timer = time.AfterFunc(o.debounce, o.firePush)
}

func (o *Orchestrator) firePush() {
	o.mu.Lock()
	o.state = stateIdle
	o.mu.Unlock()

	if err := o.Push(); err != nil {
		// Transient failures are silent; local state is intact and the
		// next edit or periodic sync retries.
		slog.Debug("push failed", "error", err)
	}
}

// Push sends the full local task set to the server and merges the
// response back. A 401 forces a logout.
func (o *Orchestrator) Push() error {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	if session == nil {
		return ErrNotLoggedIn
	}

	tasks, err := o.store.ListTasks()
	if err != nil {
		return err
	}

	resp, err := o.api.SyncTasks(tasks, o.deviceID)
	if errors.Is(err, api.ErrUnauthorized) {
		slog.Warn("session expired, logging out")
		return o.clearSession()
	}
	if err != nil {
		return err
	}

	if err := o.merge(resp.Tasks); err != nil {
		return err
	}
	return o.store.SetLastSyncTime(resp.SyncTime)
}

// merge applies the server's task list without destroying local work:
// unknown tasks are inserted, known tasks are overwritten only when the
// server copy is newer. It never deletes.
func (o *Orchestrator) merge(serverTasks []models.Task) error {
	for i := range serverTasks {
		remote := serverTasks[i]
		local, err := o.store.GetTask(remote.ID)
		if err != nil {
			return err
		}
		if local != nil && local.UpdatedAt >= remote.UpdatedAt {
			continue
		}
		if err := o.store.SaveTask(&remote); err != nil {
			return err
		}
	}
	return nil
}

// Pull replaces the local task set with the server's. Unpushed local
// edits are discarded; callers surface that to the user.
func (o *Orchestrator) Pull() error {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	if session == nil {
		return ErrNotLoggedIn
	}

	tasks, err := o.api.FetchTasks()
	if errors.Is(err, api.ErrUnauthorized) {
		slog.Warn("session expired, logging out")
		return o.clearSession()
	}
	if err != nil {
		return err
	}

	if err := o.store.ReplaceAll(tasks); err != nil {
		return err
	}
	return o.store.SetLastSyncTime(o.now())
}

// StartAutoSync pushes periodically in the background until
// StopAutoSync is called.
func (o *Orchestrator) StartAutoSync(interval time.Duration) error {
	c := cron.New()
	schedule := fmt.Sprintf("@every %s", interval)
	if _, err := c.AddFunc(schedule, func() {
		if err := o.Push(); err != nil && !errors.Is(err, ErrNotLoggedIn) {
			slog.Debug("auto sync failed", "error", err)
		}
	}); err != nil {
		return err
	}
	c.Start()

	o.mu.Lock()
	o.cron = c
	o.mu.Unlock()
	return nil
}

// StopAutoSync stops the periodic push and waits for a running one.
func (o *Orchestrator) StopAutoSync() {
	o.mu.Lock()
	c := o.cron
	o.cron = nil
	o.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Flush fires any pending debounced push immediately and waits for it.
// The CLI calls this before exiting so short-lived invocations still
// sync.
func (o *Orchestrator) Flush() error {
	o.mu.Lock()
	// Stop() returning false means the timer already fired and firePush
	// owns this push; pushing again here would duplicate it.
	pending := o.state == statePending && o.timer.Stop()
	if pending {
		o.state = stateIdle
	}
	session := o.session
	o.mu.Unlock()

	if !pending || session == nil {
		return nil
	}
	return o.Push()
}
