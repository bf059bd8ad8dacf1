package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/logging"
	"github.com/example/shiporbit-client/internal/persistence"
)

// AuthAPI is the slice of the backend client the manager depends on.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (api.AuthResponse, error)
	CurrentUser(ctx context.Context) (api.User, error)
	Logout(ctx context.Context) error
}

// Result is the structured outcome of a login attempt. Failures carry a
// user-facing message instead of escaping as errors so callers can render an
// inline banner.
type Result struct {
	Success bool
	Message string
}

// Manager owns the session: the single writer for token and user. Many
// readers (the API client's token source, the gate, the CLI) observe it.
type Manager struct {
	api    AuthAPI
	store  persistence.SessionStore
	now    func() time.Time
	logger *slog.Logger

	mu        sync.RWMutex
	token     string
	user      *api.User
	isLoading bool
}

// NewManager constructs a Manager with the provided dependencies.
func NewManager(authAPI AuthAPI, store persistence.SessionStore, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		api:       authAPI,
		store:     store,
		now:       now,
		logger:    logging.Default(logger),
		isLoading: true,
	}
}

func (m *Manager) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.ServiceLogger(ctx, m.logger, "SessionManager", operation, attrs...)
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the authenticated user, or nil.
func (m *Manager) User() *api.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// IsAuthenticated is true iff both token and user are present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != "" && m.user != nil
}

// IsLoading reports whether initial hydration is still in flight.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isLoading
}

// Hydrate restores the session from durable storage and revalidates it
// against the backend. Stale or tampered local state is never trusted: any
// failure clears storage and resets to unauthenticated. There are exactly
// two outcomes: authenticated, or unauthenticated with storage cleared.
func (m *Manager) Hydrate(ctx context.Context) {
	defer m.setLoading(false)
	logger := m.log(ctx, "Hydrate")

	state, err := m.store.LoadSession(ctx)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logger.WarnContext(ctx, "stored session unusable, failing closed", "error", err)
			m.teardown(ctx)
		}
		return
	}

	var user api.User
	if err := json.Unmarshal(state.UserJSON, &user); err != nil {
		logger.WarnContext(ctx, "stored user unreadable, failing closed", "error", err)
		m.teardown(ctx)
		return
	}

	// A token that self-describes its expiry can be rejected without a
	// network round-trip. Opaque tokens skip this check.
	if TokenExpired(state.Token, m.now()) {
		logger.InfoContext(ctx, "stored token expired, failing closed")
		m.teardown(ctx)
		return
	}

	m.mu.Lock()
	m.token = state.Token
	m.user = &user
	m.mu.Unlock()

	if _, err := m.api.CurrentUser(ctx); err != nil {
		logger.WarnContext(ctx, "session revalidation failed", "error", err, "error_kind", api.ErrorKind(err))
		m.teardown(ctx)
		return
	}

	logger.InfoContext(ctx, "session hydrated", "user_id", user.ID)
}

// Login authenticates with credentials and stores the session on success.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	logger := m.log(ctx, "Login", "email", email)

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		logger.ErrorContext(ctx, "login rejected", "error", err, "error_kind", api.ErrorKind(err))
		return Result{Success: false, Message: userMessage(err)}
	}
	return m.Adopt(ctx, resp)
}

// Adopt stores a ready-made auth response (token plus user), e.g. the result
// of a registration flow that logs the user in.
func (m *Manager) Adopt(ctx context.Context, resp api.AuthResponse) Result {
	logger := m.log(ctx, "Adopt", "user_id", resp.User.ID)

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		logger.ErrorContext(ctx, "failed to serialize user", "error", err)
		return Result{Success: false, Message: api.FallbackMessage}
	}

	m.mu.Lock()
	m.token = resp.Token
	user := resp.User
	m.user = &user
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, persistence.SessionState{
		Token:     resp.Token,
		UserJSON:  userJSON,
		UpdatedAt: m.now().UTC(),
	}); err != nil {
		// In-memory session stands; it just will not survive a restart.
		logger.WarnContext(ctx, "failed to persist session", "error", err)
	}

	logger.InfoContext(ctx, "session established")
	return Result{Success: true, Message: resp.Message}
}

// Logout tears local state down synchronously, then fires a best-effort
// server-side invalidation whose failure is deliberately ignored: local
// logout must never be blocked by network failure.
func (m *Manager) Logout(ctx context.Context) {
	m.teardown(ctx)
	if err := m.api.Logout(ctx); err != nil {
		m.log(ctx, "Logout").DebugContext(ctx, "server-side logout failed, ignoring", "error", err)
	}
}

// HandleUnauthorized is the 401 fail-safe hook for the API client: clears
// local state regardless of which request tripped it.
func (m *Manager) HandleUnauthorized() {
	m.teardown(context.Background())
}

// RefreshUser refetches the current user, keeping onboarding gate state
// (shipping needs, email verification) current after those steps complete.
func (m *Manager) RefreshUser(ctx context.Context) error {
	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	token := m.token
	m.user = &user
	m.mu.Unlock()

	if userJSON, err := json.Marshal(user); err == nil {
		if err := m.store.SaveSession(ctx, persistence.SessionState{
			Token:     token,
			UserJSON:  userJSON,
			UpdatedAt: m.now().UTC(),
		}); err != nil {
			m.log(ctx, "RefreshUser").WarnContext(ctx, "failed to persist refreshed user", "error", err)
		}
	}
	return nil
}

func (m *Manager) teardown(ctx context.Context) {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx); err != nil {
		m.log(ctx, "teardown").WarnContext(ctx, "failed to clear stored session", "error", err)
	}
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	m.isLoading = loading
	m.mu.Unlock()
}

func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return api.FallbackMessage
}
