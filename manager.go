package guestalbum

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// TokenKey is the well known key the bearer token is persisted under.
const TokenKey = "token"

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithTokenKey overrides the credential store key.
func WithTokenKey(key string) ManagerOption {
	return func(m *Manager) {
		if key != "" {
			m.tokenKey = key
		}
	}
}

// WithManagerLogger overrides the logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish session events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithManagerClock injects a custom clock (useful for tests).
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithLoginValidation toggles local validation of login and registration
// input before any network call.
func WithLoginValidation(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.validate = enabled
	}
}

// Manager owns the session. It is the only mutator of session state and
// keeps the Authorization header and the credential store in step with
// the token on every transition.
type Manager struct {
	auth         AuthAPI
	store        CredentialStore
	tokenKey     string
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	validate     bool

	mu          sync.RWMutex
	state       State
	epoch       uint64
	mirrored    string
	subscribers map[int]func(State)
	nextSubID   int
}

// NewManager creates a session manager. Call Start once to mirror the
// stored token and re-validate it.
func NewManager(auth AuthAPI, store CredentialStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		auth:         auth,
		store:        store,
		tokenKey:     TokenKey,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
		validate:     true,
		state:        InitialState(""),
		subscribers:  map[int]func(State){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// State returns the current session snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	s.User = m.state.User.clone()
	return s
}

// Authorized implements Authorizer.
func (m *Manager) Authorized() error {
	return RequireAuthenticated(m.State())
}

// Subscribe registers fn to receive every new state. The returned function
// removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Start seeds the token from the credential store, mirrors it into the
// Authorization header and only then runs the one time CheckSession.
func (m *Manager) Start(ctx context.Context) {
	token := m.loadToken(ctx)

	m.mu.Lock()
	m.state = InitialState(token)
	m.mirrorLocked(ctx, token)
	m.mu.Unlock()

	m.CheckSession(ctx)
}

// CheckSession re-validates the held token against the profile endpoint.
// Any failure is treated as never having logged in.
func (m *Manager) CheckSession(ctx context.Context) {
	current := m.State()
	if !current.HasToken() {
		m.dispatch(ctx, Logout{})
		return
	}

	epoch := m.currentEpoch()
	user, err := m.auth.Profile(ctx)
	if err != nil {
		m.logger.Info("stored session rejected (status %d), dropping to anonymous", StatusCodeOf(err))
		if m.dispatchIf(ctx, epoch, Logout{}) {
			m.record(ctx, ActivityEvent{
				EventType: ActivityEventSessionDropped,
				Metadata:  map[string]any{"status": StatusCodeOf(err)},
			})
		}
		return
	}

	if m.dispatchIf(ctx, epoch, LoginSuccess{User: user, Token: current.Token}) {
		m.record(ctx, ActivityEvent{EventType: ActivityEventSessionRestored, UserID: user.ID})
	}
}

// Login authenticates with email and password. A nil error means the
// session is now authenticated. Failures are recorded in the session state
// and returned as ErrLoginFailed carrying the server supplied message.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	credentials := LoginCredentials{Email: email, Password: password}
	epoch := m.dispatch(ctx, LoginStart{})

	if m.validate {
		if err := credentials.Validate(); err != nil {
			return m.loginFailed(ctx, epoch, ErrLoginFailed, validationMessage(err), err)
		}
	}

	resp, err := m.auth.Login(ctx, credentials)
	if err != nil {
		return m.loginFailed(ctx, epoch, ErrLoginFailed, ErrorMessage(err, MessageLoginFailed), err)
	}

	return m.loginSucceeded(ctx, epoch, ErrLoginFailed, resp, ActivityEventLoginSuccess)
}

// Register creates an account. Registration implies login: on success the
// session is authenticated immediately.
func (m *Manager) Register(ctx context.Context, registration Registration) error {
	registration = registration.Normalize()
	epoch := m.dispatch(ctx, LoginStart{})

	if m.validate {
		if err := registration.Validate(); err != nil {
			return m.loginFailed(ctx, epoch, ErrRegistrationFailed, validationMessage(err), err)
		}
	}

	resp, err := m.auth.Register(ctx, registration)
	if err != nil {
		return m.loginFailed(ctx, epoch, ErrRegistrationFailed, ErrorMessage(err, MessageRegistrationFailed), err)
	}

	return m.loginSucceeded(ctx, epoch, ErrRegistrationFailed, resp, ActivityEventRegistered)
}

// Logout always succeeds locally. When a token is held the server is
// notified best effort; a failure there is logged and otherwise ignored.
func (m *Manager) Logout(ctx context.Context) {
	current := m.State()
	if current.HasToken() {
		if err := m.auth.Logout(ctx, current.Token); err != nil {
			m.logger.Warn("logout notification failed: %v", err)
			m.record(ctx, ActivityEvent{
				EventType: ActivityEventLogoutNotifyFailed,
				Metadata:  map[string]any{"error": err.Error()},
			})
		}
	}

	m.dispatch(ctx, Logout{})
	m.record(ctx, ActivityEvent{EventType: ActivityEventLogout, UserID: userID(current.User)})
}

// UpdateProfile applies patch to the current user. Token and
// authentication status are never changed. On failure the state is left
// untouched. An anonymous session gets ErrNotAuthenticated and no call.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	if err := m.Authorized(); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return failure(ErrProfileUpdateFailed, validationMessage(err), err, nil)
	}

	epoch := m.currentEpoch()
	updated, err := m.auth.UpdateProfile(ctx, patch)
	if err != nil {
		return failure(ErrProfileUpdateFailed, ErrorMessage(err, MessageProfileUpdateFailed), err, map[string]any{
			"status": StatusCodeOf(err),
		})
	}

	var applied bool
	m.mu.Lock()
	if m.epoch == epoch && m.state.IsAuthenticated {
		user := mergeProfile(m.state.User, updated)
		m.applyLocked(ctx, UpdateUser{User: user})
		applied = true
	}
	m.mu.Unlock()

	if !applied {
		return ErrSuperseded.Clone()
	}

	m.notify()
	m.record(ctx, ActivityEvent{EventType: ActivityEventProfileUpdated, UserID: userID(updated)})
	return nil
}

// ChangePassword has no effect on session state either way.
func (m *Manager) ChangePassword(ctx context.Context, change PasswordChange) error {
	if err := m.Authorized(); err != nil {
		return err
	}
	if err := change.Validate(); err != nil {
		return failure(ErrPasswordChangeFailed, validationMessage(err), err, nil)
	}

	if err := m.auth.ChangePassword(ctx, change); err != nil {
		return failure(ErrPasswordChangeFailed, ErrorMessage(err, MessagePasswordChangeFailed), err, map[string]any{
			"status": StatusCodeOf(err),
		})
	}

	m.record(ctx, ActivityEvent{EventType: ActivityEventPasswordChanged, UserID: userID(m.State().User)})
	return nil
}

// ClearError drops the last failure message.
func (m *Manager) ClearError(ctx context.Context) {
	m.dispatch(ctx, ClearError{})
}

func (m *Manager) loginSucceeded(ctx context.Context, epoch uint64, base *goerrors.Error, resp *AuthResponse, event ActivityEventType) error {
	if resp == nil || resp.AccessToken == "" {
		return m.loginFailed(ctx, epoch, base, "server returned no access token", nil)
	}

	user := resp.User
	if !m.dispatchIf(ctx, epoch, LoginSuccess{User: &user, Token: resp.AccessToken}) {
		return ErrSuperseded.Clone()
	}

	m.record(ctx, ActivityEvent{EventType: event, UserID: user.ID})
	return nil
}

func (m *Manager) loginFailed(ctx context.Context, epoch uint64, base *goerrors.Error, message string, cause error) error {
	if message == "" {
		message = base.Message
	}

	if !m.dispatchIf(ctx, epoch, LoginFailure{Message: message}) {
		return ErrSuperseded.Clone()
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Metadata:  map[string]any{"message": message, "status": StatusCodeOf(cause)},
	})

	return failure(base, message, cause, nil)
}

// dispatch applies action unconditionally and returns the epoch after it.
func (m *Manager) dispatch(ctx context.Context, action Action) uint64 {
	m.mu.Lock()
	m.applyLocked(ctx, action)
	epoch := m.epoch
	m.mu.Unlock()

	m.notify()
	return epoch
}

// dispatchIf applies action only if no logout happened since epoch was
// captured. Late results are dropped silently.
func (m *Manager) dispatchIf(ctx context.Context, epoch uint64, action Action) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debug("dropping late %s result", action.Type())
		return false
	}
	m.applyLocked(ctx, action)
	m.mu.Unlock()

	m.notify()
	return true
}

func (m *Manager) applyLocked(ctx context.Context, action Action) {
	next := Reduce(m.state, action)
	if _, ok := action.(Logout); ok {
		m.epoch++
	}
	m.state = next
	if next.Token != m.mirrored {
		m.mirrorLocked(ctx, next.Token)
	}
}

// mirrorLocked pushes token into the Authorization header and the
// credential store before any dependent call can observe the new state.
func (m *Manager) mirrorLocked(ctx context.Context, token string) {
	m.auth.SetAuthorization(AuthorizationHeader(token))
	m.mirrored = token

	if m.store == nil {
		return
	}

	var err error
	if token != "" {
		err = m.store.Set(ctx, m.tokenKey, token)
	} else {
		err = m.store.Clear(ctx, m.tokenKey)
	}
	if err != nil {
		m.logger.Error("credential store update failed: %v", err)
	}
}

func (m *Manager) loadToken(ctx context.Context) string {
	if m.store == nil {
		return ""
	}
	token, ok, err := m.store.Get(ctx, m.tokenKey)
	if err != nil {
		m.logger.Error("credential store read failed: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

func (m *Manager) notify() {
	m.mu.RLock()
	snapshot := m.state
	snapshot.User = m.state.User.clone()
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (m *Manager) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, m.activitySink, m.logger, m.now, event)
}

// mergeProfile folds a profile-only update response into current.
func mergeProfile(current, updated *User) *User {
	if updated == nil {
		return current.clone()
	}
	if updated.HasIdentity() || current == nil {
		return updated.clone()
	}

	merged := current.clone()
	if updated.Profile != nil {
		p := *updated.Profile
		merged.Profile = &p
	}
	if updated.FirstName != "" {
		merged.FirstName = updated.FirstName
	}
	if updated.LastName != "" {
		merged.LastName = updated.LastName
	}
	if updated.Phone != "" {
		merged.Phone = updated.Phone
	}
	return merged
}

func userID(u *User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
