package guestalbum_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guestalbum "github.com/goliatone/go-guestalbum"
)

func TestInitialStateIsAuthenticating(t *testing.T) {
	state := guestalbum.InitialState("tok")
	assert.Equal(t, guestalbum.StatusAuthenticating, state.Status())
	assert.True(t, state.HasToken())
	assert.False(t, state.IsAuthenticated)

	assert.Equal(t, guestalbum.StatusAuthenticating, guestalbum.InitialState("").Status())
}

func TestReduceLoginSuccess(t *testing.T) {
	user := &guestalbum.User{ID: 7, FirstName: "Ada"}
	state := guestalbum.Replay(guestalbum.AnonymousState(),
		guestalbum.LoginStart{},
		guestalbum.LoginSuccess{User: user, Token: "tok123"},
	)

	assert.Equal(t, guestalbum.StatusAuthenticated, state.Status())
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Equal(t, "tok123", state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, "Ada", state.User.FirstName)

	user.FirstName = "changed"
	assert.Equal(t, "Ada", state.User.FirstName)
}

func TestReduceLoginFailureClearsSession(t *testing.T) {
	state := guestalbum.Replay(guestalbum.AnonymousState(),
		guestalbum.LoginSuccess{User: &guestalbum.User{ID: 1}, Token: "tok"},
		guestalbum.LoginStart{},
		guestalbum.LoginFailure{Message: "bad credentials"},
	)

	assert.Equal(t, guestalbum.StatusFailed, state.Status())
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, "bad credentials", state.Error)
}

func TestReduceLoginStartClearsError(t *testing.T) {
	state := guestalbum.Replay(guestalbum.AnonymousState(),
		guestalbum.LoginFailure{Message: "nope"},
		guestalbum.LoginStart{},
	)
	assert.True(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestReduceLogoutIsIdempotent(t *testing.T) {
	authenticated := guestalbum.Reduce(guestalbum.AnonymousState(),
		guestalbum.LoginSuccess{User: &guestalbum.User{ID: 1}, Token: "tok"})

	once := guestalbum.Reduce(authenticated, guestalbum.Logout{})
	twice := guestalbum.Reduce(once, guestalbum.Logout{})

	assert.Equal(t, guestalbum.AnonymousState(), once)
	assert.Equal(t, once, twice)
	assert.Equal(t, guestalbum.StatusAnonymous, twice.Status())
}

func TestReduceUpdateUserKeepsTokenAndStatus(t *testing.T) {
	authenticated := guestalbum.Reduce(guestalbum.AnonymousState(),
		guestalbum.LoginSuccess{User: &guestalbum.User{ID: 1, FirstName: "Ada"}, Token: "tok"})

	next := guestalbum.Reduce(authenticated, guestalbum.UpdateUser{User: &guestalbum.User{ID: 1, FirstName: "Grace"}})

	assert.Equal(t, "tok", next.Token)
	assert.True(t, next.IsAuthenticated)
	assert.Equal(t, "Grace", next.User.FirstName)
	assert.Equal(t, "Ada", authenticated.User.FirstName)
}

func TestReduceClearError(t *testing.T) {
	failed := guestalbum.Reduce(guestalbum.AnonymousState(), guestalbum.LoginFailure{Message: "x"})
	cleared := guestalbum.Reduce(failed, guestalbum.ClearError{})
	assert.Empty(t, cleared.Error)
	assert.Equal(t, guestalbum.StatusAnonymous, cleared.Status())
}

func TestReplayIsDeterministic(t *testing.T) {
	actions := []guestalbum.Action{
		guestalbum.LoginStart{},
		guestalbum.LoginFailure{Message: "first"},
		guestalbum.LoginStart{},
		guestalbum.LoginSuccess{User: &guestalbum.User{ID: 2, Email: "a@b.com"}, Token: "t2"},
		guestalbum.UpdateUser{User: &guestalbum.User{ID: 2, Email: "a@b.com", FirstName: "Ada"}},
		guestalbum.ClearError{},
	}

	first := guestalbum.Replay(guestalbum.InitialState("seed"), actions...)
	second := guestalbum.Replay(guestalbum.InitialState("seed"), actions...)

	assert.Equal(t, first, second)
	assert.Equal(t, "t2", first.Token)
	assert.Equal(t, "Ada", first.User.FirstName)
}

func TestActionTypes(t *testing.T) {
	cases := map[string]guestalbum.Action{
		guestalbum.ActionLoginStart:   guestalbum.LoginStart{},
		guestalbum.ActionLoginSuccess: guestalbum.LoginSuccess{},
		guestalbum.ActionLoginFailure: guestalbum.LoginFailure{},
		guestalbum.ActionLogout:       guestalbum.Logout{},
		guestalbum.ActionUpdateUser:   guestalbum.UpdateUser{},
		guestalbum.ActionClearError:   guestalbum.ClearError{},
	}
	for want, action := range cases {
		assert.Equal(t, want, action.Type())
	}
}

func TestAuthenticatedIffLastTerminalWasLoginSuccess(t *testing.T) {
	pool := []guestalbum.Action{
		guestalbum.LoginStart{},
		guestalbum.LoginSuccess{User: &guestalbum.User{ID: 1}, Token: "tok"},
		guestalbum.LoginFailure{Message: "nope"},
		guestalbum.Logout{},
		guestalbum.UpdateUser{User: &guestalbum.User{ID: 2}},
		guestalbum.ClearError{},
	}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		state := guestalbum.AnonymousState()
		lastTerminal := ""
		steps := rng.Intn(12)
		for j := 0; j < steps; j++ {
			action := pool[rng.Intn(len(pool))]
			state = guestalbum.Reduce(state, action)
			switch action.Type() {
			case guestalbum.ActionLoginSuccess, guestalbum.ActionLoginFailure, guestalbum.ActionLogout:
				lastTerminal = action.Type()
			}
		}
		assert.Equal(t, lastTerminal == guestalbum.ActionLoginSuccess, state.IsAuthenticated)
		if !state.IsAuthenticated {
			assert.Empty(t, state.Token)
		}
	}
}
