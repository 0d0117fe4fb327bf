package guestalbum_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guestalbum "github.com/goliatone/go-guestalbum"
	"github.com/goliatone/go-guestalbum/api"
	"github.com/goliatone/go-guestalbum/internal/apitest"
	"github.com/goliatone/go-guestalbum/store"
)

type harness struct {
	server    *apitest.Server
	client    *api.Client
	creds     *store.Memory
	manager   *guestalbum.Manager
	owner     *guestalbum.Owner
	resolver  *guestalbum.Resolver
	gate      *guestalbum.Gate
	submitter *guestalbum.Submitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	server := apitest.NewServer()
	t.Cleanup(server.Close)

	client := api.New(api.Config{BaseURL: server.BaseURL()})
	creds := store.NewMemory()
	manager := guestalbum.NewManager(client, creds, guestalbum.WithManagerLogger(guestalbum.NopLogger()))
	anonymous := client.Anonymous()

	return &harness{
		server:    server,
		client:    client,
		creds:     creds,
		manager:   manager,
		owner:     guestalbum.NewOwner(manager, client),
		resolver:  guestalbum.NewResolver(anonymous, guestalbum.WithResolverLogger(guestalbum.NopLogger())),
		gate:      guestalbum.NewGate(guestalbum.WithGateLogger(guestalbum.NopLogger())),
		submitter: guestalbum.NewSubmitter(anonymous, guestalbum.WithSubmitterLogger(guestalbum.NopLogger())),
	}
}

func TestIntegrationOwnerAndGuestFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.server.AddUser(guestalbum.User{Email: "ada@example.com", Username: "ada", FirstName: "Ada"}, "x")

	h.manager.Start(ctx)
	assert.Empty(t, h.server.RequestsFor(apitest.RouteProfile))

	require.NoError(t, h.manager.Login(ctx, "ada@example.com", "x"))
	assert.Equal(t, guestalbum.StatusAuthenticated, h.manager.State().Status())
	assert.Equal(t, guestalbum.AuthorizationHeader(h.manager.State().Token), h.client.Authorization())

	album, err := h.owner.CreateAlbum(ctx, guestalbum.AlbumDraft{
		Title:       "Our Day",
		EventTypeID: 1,
		EventDate:   "2026-06-01",
	})
	require.NoError(t, err)
	require.NotEmpty(t, album.AccessCode)

	res, err := h.resolver.ResolveAlbum(ctx, album.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, album.ID, res.Capability.AlbumID)

	admitted, err := h.gate.Admit(guestalbum.Candidate{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)

	_, err = h.submitter.Submit(ctx, res.Capability.AccessCode, admitted)
	require.NoError(t, err)

	uploadReqs := h.server.RequestsFor(apitest.RouteUpload)
	require.Len(t, uploadReqs, 1)
	assert.Empty(t, uploadReqs[0].Authorization)
	form, err := uploadReqs[0].MultipartForm()
	require.NoError(t, err)
	assert.Equal(t, []string{""}, form.Value["message"])
	assert.Equal(t, []string{""}, form.Value["uploader_name"])

	uploads, err := h.owner.Uploads(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.True(t, uploads[0].Pending())

	h.manager.Logout(ctx)
	assert.Empty(t, h.client.Authorization())
	_, ok, err := h.creds.Get(ctx, guestalbum.TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.owner.EventTypes(ctx)
	assert.True(t, guestalbum.IsNotAuthenticated(err))
}

func TestIntegrationRestoresStoredSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.server.AddUser(guestalbum.User{Email: "ada@example.com", Username: "ada"}, "x")
	token := h.server.IssueToken("ada@example.com")
	require.NoError(t, h.creds.Set(ctx, guestalbum.TokenKey, token))

	h.manager.Start(ctx)

	state := h.manager.State()
	assert.Equal(t, guestalbum.StatusAuthenticated, state.Status())
	assert.Equal(t, "ada", state.User.Username)

	profileReqs := h.server.RequestsFor(apitest.RouteProfile)
	require.Len(t, profileReqs, 1)
	assert.Equal(t, "Bearer "+token, profileReqs[0].Authorization)
}

func TestIntegrationRevokedCodeIsNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	date := guestalbum.Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	h.server.AddAlbum(guestalbum.Album{
		Title:      "Wedding",
		AccessCode: "ABCD1234",
		EventDate:  date,
		Privacy:    guestalbum.PrivacyPrivate,
	})

	res, err := h.resolver.ResolveAlbum(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, "Wedding", res.Album.Title)
	assert.Equal(t, "2026-06-01", res.Album.EventDate.String())
	assert.Equal(t, guestalbum.PrivacyPrivate, res.Album.Privacy)

	h.server.RemoveAlbum("ABCD1234")
	_, err = h.resolver.ResolveAlbum(ctx, "ABCD1234")
	assert.True(t, guestalbum.IsAlbumNotFound(err))

	_, err = h.resolver.ResolveAlbum(ctx, "NOPE")
	assert.True(t, guestalbum.IsAlbumNotFound(err))
}

func TestIntegrationServerFailureIsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.server.AddAlbum(guestalbum.Album{Title: "Wedding", AccessCode: "ABCD1234"})
	h.server.Fail(apitest.RouteAlbum, http.StatusServiceUnavailable, map[string]any{"detail": "maintenance"})

	_, err := h.resolver.ResolveAlbum(context.Background(), "ABCD1234")
	require.Error(t, err)
	assert.False(t, guestalbum.IsAlbumNotFound(err))
	assert.True(t, guestalbum.HasTextCode(err, guestalbum.TextCodeAlbumUnavailable))
}
