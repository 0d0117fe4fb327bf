// Package storetest runs the behaviour every CredentialStore must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guestalbum "github.com/goliatone/go-guestalbum"
)

// Run exercises s with get, set, overwrite and clear round trips.
func Run(t *testing.T, s guestalbum.CredentialStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		v, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "token", "tok123"))
		v, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok123", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "token", "tok456"))
		v, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok456", v)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "other", "value"))
		require.NoError(t, s.Clear(ctx, "other"))
		v, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok456", v)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx, "token"))
		_, ok, err := s.Get(ctx, "token")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear missing is a no-op", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx, "never-set"))
	})

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, s.Set(ctx, " ", "x"))
		_, _, err := s.Get(ctx, "")
		assert.Error(t, err)
		assert.Error(t, s.Clear(ctx, ""))
	})
}
