package guestalbum

// SessionStatus names the observable states of a session.
type SessionStatus string

const (
	StatusAnonymous      SessionStatus = "anonymous"
	StatusAuthenticating SessionStatus = "authenticating"
	StatusAuthenticated  SessionStatus = "authenticated"
	StatusFailed         SessionStatus = "failed"
)

// State is an immutable snapshot of the session. Reduce never mutates a
// State it receives.
type State struct {
	User            *User
	Token           string
	IsAuthenticated bool
	Loading         bool
	Error           string
}

// AnonymousState is the state after logout or a failed re-authentication.
func AnonymousState() State {
	return State{}
}

// InitialState is the state at process start, before the stored token has
// been re-validated.
func InitialState(token string) State {
	return State{Token: token, Loading: true}
}

// Status derives the named state. Loading wins while a call is in flight.
func (s State) Status() SessionStatus {
	switch {
	case s.Loading:
		return StatusAuthenticating
	case s.IsAuthenticated:
		return StatusAuthenticated
	case s.Error != "":
		return StatusFailed
	default:
		return StatusAnonymous
	}
}

// HasToken reports whether a bearer token is held.
func (s State) HasToken() bool {
	return s.Token != ""
}

// Action is the closed set of session transitions. Only the types declared
// in this package implement it.
type Action interface {
	Type() string
	sessionAction()
}

const (
	ActionLoginStart   = "LOGIN_START"
	ActionLoginSuccess = "LOGIN_SUCCESS"
	ActionLoginFailure = "LOGIN_FAILURE"
	ActionLogout       = "LOGOUT"
	ActionUpdateUser   = "UPDATE_USER"
	ActionClearError   = "CLEAR_ERROR"
)

type LoginStart struct{}

type LoginSuccess struct {
	User  *User
	Token string
}

type LoginFailure struct {
	Message string
}

type Logout struct{}

// UpdateUser replaces the user only. It is expected while authenticated
// but that is not enforced.
type UpdateUser struct {
	User *User
}

type ClearError struct{}

func (LoginStart) Type() string   { return ActionLoginStart }
func (LoginSuccess) Type() string { return ActionLoginSuccess }
func (LoginFailure) Type() string { return ActionLoginFailure }
func (Logout) Type() string       { return ActionLogout }
func (UpdateUser) Type() string   { return ActionUpdateUser }
func (ClearError) Type() string   { return ActionClearError }

func (LoginStart) sessionAction()   {}
func (LoginSuccess) sessionAction() {}
func (LoginFailure) sessionAction() {}
func (Logout) sessionAction()       {}
func (UpdateUser) sessionAction()   {}
func (ClearError) sessionAction()   {}

// Reduce applies action to state and returns the next state.
func Reduce(state State, action Action) State {
	next := state
	next.User = state.User.clone()

	switch a := action.(type) {
	case LoginStart:
		next.Loading = true
		next.Error = ""
	case LoginSuccess:
		next.User = a.User.clone()
		next.Token = a.Token
		next.IsAuthenticated = true
		next.Loading = false
		next.Error = ""
	case LoginFailure:
		next.User = nil
		next.Token = ""
		next.IsAuthenticated = false
		next.Loading = false
		next.Error = a.Message
	case Logout:
		return AnonymousState()
	case UpdateUser:
		next.User = a.User.clone()
	case ClearError:
		next.Error = ""
	}

	return next
}

// Replay folds actions over initial.
func Replay(initial State, actions ...Action) State {
	state := initial
	for _, action := range actions {
		state = Reduce(state, action)
	}
	return state
}
