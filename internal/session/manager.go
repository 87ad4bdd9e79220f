// Package session owns the authentication lifecycle against the Strapi
// identity backend: one session slot, its persisted mirror, and the
// background refresh monitor. The manager is an explicitly constructed
// object; nothing in here is process-global.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/winstonacademy/crm-gateway/internal"
	"github.com/winstonacademy/crm-gateway/internal/telemetry"
	"github.com/winstonacademy/crm-gateway/internal/token"
)

// IdentityClient is the slice of the backend client the manager needs.
type IdentityClient interface {
	Login(ctx context.Context, identifier, password string) (jwt string, rawUser map[string]any, err error)
	GetUser(ctx context.Context, bearer string, id int64) (map[string]any, error)
}

// State is what subscribers observe. A refresh that commits, a login, and a
// logout each produce one State; there is no intermediate "refreshing" state.
type State struct {
	User          *User
	Authenticated bool
}

type Options struct {
	RefreshThreshold time.Duration
	MonitorInterval  time.Duration
	AdminIdentifiers []string
}

// Manager holds the single session slot. At most one session exists per
// process; login overwrites it unconditionally and logout clears it.
type Manager struct {
	client IdentityClient
	store  Store
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex
	user  *User
	token string
	// epoch increments on every login and logout. A refresh response only
	// commits when the epoch it started under is still current, so a
	// response that raced a logout cannot resurrect the session.
	epoch uint64

	group singleflight.Group

	subMu sync.Mutex
	subs  map[int]func(State)
	nextSub int

	monMu   sync.Mutex
	monitor *monitor
}

func NewManager(client IdentityClient, store Store, logger *slog.Logger, opts Options) *Manager {
	if opts.RefreshThreshold <= 0 {
		opts.RefreshThreshold = token.DefaultRefreshThreshold
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = 5 * time.Minute
	}

	m := &Manager{
		client: client,
		store:  store,
		logger: logger,
		opts:   opts,
		subs:   make(map[int]func(State)),
	}

	m.hydrate()
	return m
}

// hydrate adopts a persisted session at construction time. No network call
// is made; an expired persisted token is discarded rather than adopted.
func (m *Manager) hydrate() {
	storedToken, ok, err := m.store.Get(StorageKeyToken)
	if err != nil || !ok || storedToken == "" {
		return
	}

	storedUser, ok, err := m.store.Get(StorageKeyUser)
	if err != nil || !ok || storedUser == "" {
		return
	}

	if token.IsExpired(storedToken) {
		m.logger.Info("discarding expired persisted session")
		m.clearStore()
		return
	}

	var u User
	if err := json.Unmarshal([]byte(storedUser), &u); err != nil {
		m.logger.Warn("persisted user is unreadable, discarding session", "error", err)
		m.clearStore()
		return
	}

	m.mu.Lock()
	m.user = &u
	m.token = storedToken
	m.mu.Unlock()

	m.startMonitor()
	m.logger.Info("session hydrated from store", "user_id", u.ID)
}

// Login authenticates against the backend, fetches the extended profile,
// and commits the session. A profile fetch failure is not a login failure:
// the session falls back to heuristic permissions instead.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*User, error) {
	jwt, rawUser, err := m.client.Login(ctx, identifier, password)
	if err != nil {
		telemetry.LoginAttempts.WithLabelValues(telemetry.OutcomeRejected).Inc()
		return nil, err
	}

	id := extractID(rawUser)

	var user *User
	profile, profileErr := m.client.GetUser(ctx, jwt, id)
	if profileErr != nil {
		m.logger.Warn("profile fetch failed after login, using fallback permissions",
			"identifier", identifier, "error", profileErr)
		user = FallbackUser(identifier, id, m.opts.AdminIdentifiers)
	} else {
		user = NormalizeUser(profile)
		if user.ID == 0 {
			user.ID = id
		}
	}

	m.mu.Lock()
	m.user = user
	m.token = jwt
	m.epoch++
	m.persistLocked()
	m.mu.Unlock()

	m.startMonitor()
	m.notify(State{User: user, Authenticated: true})
	telemetry.LoginAttempts.WithLabelValues(telemetry.OutcomeSuccess).Inc()

	m.logger.Info("login successful", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Logout clears the slot and the persisted mirror and stops the monitor.
// Idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	hadSession := m.user != nil || m.token != ""
	m.user = nil
	m.token = ""
	m.epoch++
	m.mu.Unlock()

	m.stopMonitor()
	m.clearStore()

	if hadSession {
		m.notify(State{})
		m.logger.Info("session cleared")
	}
}

// CurrentUser is a pure in-memory read.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// CurrentToken returns the held token, tearing the session down as a side
// effect when the token has expired. An expired token is never handed out.
func (m *Manager) CurrentToken() string {
	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()

	if tok == "" {
		return ""
	}
	if token.IsExpired(tok) {
		m.logger.Info("held token expired, logging out")
		telemetry.ForcedLogouts.Inc()
		m.Logout()
		return ""
	}
	return tok
}

// ValidToken is CurrentToken with a typed failure instead of "".
func (m *Manager) ValidToken() (string, error) {
	tok := m.CurrentToken()
	if tok == "" {
		return "", internal.ErrNoValidToken
	}
	return tok, nil
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	user, tok := m.user, m.token
	m.mu.Unlock()
	return user != nil && tok != "" && !token.IsExpired(tok)
}

// RefreshUser re-fetches the profile under the current token and replaces
// the cached user wholesale. Concurrent callers join a single request.
// Policy: 401 tears the session down; an unreachable backend degrades to
// the previously cached user with no error; both are invisible to the UI.
func (m *Manager) RefreshUser(ctx context.Context) (*User, error) {
	m.mu.Lock()
	tok, cached, epoch := m.token, m.user, m.epoch
	m.mu.Unlock()

	if tok == "" || cached == nil || cached.ID == 0 {
		return nil, nil
	}

	v, err, _ := m.group.Do("refresh-user", func() (any, error) {
		raw, err := m.client.GetUser(ctx, tok, cached.ID)
		if err != nil {
			return nil, err
		}
		return NormalizeUser(raw), nil
	})

	if err != nil {
		if errors.Is(err, internal.ErrUnauthorized) {
			m.logger.Info("token rejected during refresh, logging out")
			telemetry.UserRefreshes.WithLabelValues(telemetry.OutcomeUnauthorized).Inc()
			telemetry.ForcedLogouts.Inc()
			m.Logout()
			return nil, nil
		}
		// Unreachable or misbehaving backend: keep the session as-is.
		m.logger.Debug("user refresh degraded, keeping cached user", "error", err)
		telemetry.UserRefreshes.WithLabelValues(telemetry.OutcomeDegraded).Inc()
		return cached, nil
	}

	fresh := v.(*User)
	if fresh.ID == 0 {
		fresh.ID = cached.ID
	}

	m.mu.Lock()
	if m.epoch != epoch {
		// Session changed while the request was in flight.
		m.mu.Unlock()
		return nil, nil
	}
	m.user = fresh
	m.persistLocked()
	m.mu.Unlock()

	m.notify(State{User: fresh, Authenticated: true})
	telemetry.UserRefreshes.WithLabelValues(telemetry.OutcomeSuccess).Inc()
	return fresh, nil
}

// RefreshToken does not rotate the token: the backend issues no refresh
// tokens, so "refresh" means re-deriving the user under the still-valid
// JWT. Returns false and tears the session down when the token already
// expired.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()

	if tok == "" {
		return false
	}
	if token.IsExpired(tok) {
		telemetry.ForcedLogouts.Inc()
		m.Logout()
		return false
	}

	_, _ = m.RefreshUser(ctx)
	return true
}

// Subscribe registers a state-change observer and returns its remover.
// Callbacks run synchronously on the mutating goroutine and must not block.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// Close stops the monitor without clearing the session, for shutdown.
func (m *Manager) Close() {
	m.stopMonitor()
}

func (m *Manager) notify(state State) {
	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (m *Manager) persistLocked() {
	data, err := json.Marshal(m.user)
	if err != nil {
		m.logger.Error("failed to serialize session user", "error", err)
		return
	}
	if err := m.store.Set(StorageKeyUser, string(data)); err != nil {
		m.logger.Error("failed to persist session user", "error", err)
	}
	if err := m.store.Set(StorageKeyToken, m.token); err != nil {
		m.logger.Error("failed to persist session token", "error", err)
	}
}

func (m *Manager) clearStore() {
	if err := m.store.Delete(StorageKeyUser); err != nil {
		m.logger.Error("failed to clear persisted user", "error", err)
	}
	if err := m.store.Delete(StorageKeyToken); err != nil {
		m.logger.Error("failed to clear persisted token", "error", err)
	}
}
