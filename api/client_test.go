package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guestalbum "github.com/goliatone/go-guestalbum"
	"github.com/goliatone/go-guestalbum/api"
	"github.com/goliatone/go-guestalbum/internal/apitest"
)

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	server := apitest.NewServer()
	t.Cleanup(server.Close)
	return api.New(api.Config{BaseURL: server.BaseURL()}), server
}

func TestLoginReadsAccessToken(t *testing.T) {
	client, server := newClient(t)
	server.AddUser(guestalbum.User{Email: "a@b.com", FirstName: "Ada"}, "x")

	resp, err := client.Login(context.Background(), guestalbum.LoginCredentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", resp.User.FirstName)
	assert.NotEmpty(t, resp.AccessToken)

	reqs := server.RequestsFor(apitest.RouteLogin)
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v1/auth/login/", reqs[0].Path)
	assert.Empty(t, reqs[0].Authorization)

	var body map[string]string
	require.NoError(t, reqs[0].JSON(&body))
	assert.Equal(t, "a@b.com", body["email"])
	assert.Equal(t, "x", body["password"])
}

func TestLoginTokenFieldFallbacks(t *testing.T) {
	cases := map[string]map[string]any{
		"access_token": {"user": map[string]any{"id": 1}, "access_token": "t1"},
		"token":        {"user": map[string]any{"id": 1}, "token": "t1"},
		"access":       {"user": map[string]any{"id": 1}, "access": "t1", "token": "ignored"},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(payload)
			}))
			defer srv.Close()

			client := api.New(api.Config{BaseURL: srv.URL})
			resp, err := client.Login(context.Background(), guestalbum.LoginCredentials{Email: "a@b.com", Password: "x"})
			require.NoError(t, err)
			assert.Equal(t, "t1", resp.AccessToken)
		})
	}
}

func TestLoginFailureExtractsMessage(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.Login(context.Background(), guestalbum.LoginCredentials{Email: "nobody@b.com", Password: "x"})
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	assert.Equal(t, "No active account found with the given credentials", apiErr.APIMessage())
	assert.Equal(t, "No active account found with the given credentials", guestalbum.ErrorMessage(err, "fallback"))
}

func TestErrorBodyShapes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "message wins", status: 400, body: `{"message":"bad","detail":"worse"}`, want: "bad"},
		{name: "detail", status: 401, body: `{"detail":"expired"}`, want: "expired"},
		{name: "field errors", status: 400, body: `{"password":["too short"],"email":["taken"]}`, want: "email: taken; password: too short"},
		{name: "non field", status: 400, body: `{"non_field_errors":["nope"]}`, want: "nope"},
		{name: "html", status: 502, body: `<html>bad gateway</html>`, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			err := api.New(api.Config{BaseURL: srv.URL}).ChangePassword(context.Background(), guestalbum.PasswordChange{})
			require.Error(t, err)
			assert.Equal(t, tc.status, guestalbum.StatusCodeOf(err))
			assert.Equal(t, tc.want, guestalbum.ErrorMessage(err, ""))
		})
	}
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := api.New(api.Config{BaseURL: base}).Album(context.Background(), "ABCD1234")
	require.Error(t, err)
	assert.Equal(t, 0, guestalbum.StatusCodeOf(err))
}

func TestSetAuthorization(t *testing.T) {
	client, server := newClient(t)
	server.AddUser(guestalbum.User{Email: "a@b.com", Username: "ada"}, "x")
	token := server.IssueToken("a@b.com")

	_, err := client.Profile(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, guestalbum.StatusCodeOf(err))

	client.SetAuthorization(guestalbum.AuthorizationHeader(token))
	user, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)

	client.SetAuthorization("")
	_, err = client.Profile(context.Background())
	require.Error(t, err)

	reqs := server.RequestsFor(apitest.RouteProfile)
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "Bearer "+token, reqs[1].Authorization)
	assert.Empty(t, reqs[2].Authorization)
}

func TestAnonymousClientDropsAuthorization(t *testing.T) {
	client, server := newClient(t)
	album := server.AddAlbum(guestalbum.Album{Title: "Wedding"})

	client.SetAuthorization("Bearer secret")
	anon := client.Anonymous()

	_, err := anon.Album(context.Background(), album.AccessCode)
	require.NoError(t, err)

	reqs := server.RequestsFor(apitest.RouteAlbum)
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "Bearer secret", client.Authorization())
}

func TestLogoutPostsRefresh(t *testing.T) {
	client, server := newClient(t)
	server.AddUser(guestalbum.User{Email: "a@b.com"}, "x")
	token := server.IssueToken("a@b.com")
	client.SetAuthorization(guestalbum.AuthorizationHeader(token))

	require.NoError(t, client.Logout(context.Background(), token))

	reqs := server.RequestsFor(apitest.RouteLogout)
	require.Len(t, reqs, 1)
	var body map[string]string
	require.NoError(t, reqs[0].JSON(&body))
	assert.Equal(t, token, body["refresh"])
}

func TestUpdateProfileShapes(t *testing.T) {
	client, server := newClient(t)
	server.AddUser(guestalbum.User{Email: "a@b.com", Username: "ada"}, "x")
	client.SetAuthorization(guestalbum.AuthorizationHeader(server.IssueToken("a@b.com")))

	bio := "hello"
	user, err := client.UpdateProfile(context.Background(), guestalbum.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.True(t, user.HasIdentity())
	require.NotNil(t, user.Profile)
	assert.Equal(t, "hello", user.Profile.Bio)

	server.ProfileOnlyUpdates(true)
	bio = "again"
	user, err = client.UpdateProfile(context.Background(), guestalbum.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.False(t, user.HasIdentity())
	require.NotNil(t, user.Profile)
	assert.Equal(t, "again", user.Profile.Bio)
}

func TestAlbumAndEventTypes(t *testing.T) {
	client, server := newClient(t)
	server.AddUser(guestalbum.User{Email: "a@b.com", Username: "ada"}, "x")
	client.SetAuthorization(guestalbum.AuthorizationHeader(server.IssueToken("a@b.com")))

	types, err := client.EventTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "wedding", types[0].Slug)

	album, err := client.CreateAlbum(context.Background(), guestalbum.AlbumDraft{
		Title:       "Our Day",
		EventTypeID: 1,
		EventDate:   "2026-06-01",
		Privacy:     guestalbum.PrivacyPrivate,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, album.ID)
	assert.NotEmpty(t, album.AccessCode)
	assert.Equal(t, "2026-06-01", album.EventDate.String())

	fetched, err := client.Album(context.Background(), album.ID.String())
	require.NoError(t, err)
	assert.Equal(t, album.AccessCode, fetched.AccessCode)

	_, err = client.Album(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, guestalbum.StatusCodeOf(err))
}

func TestAlbumUploadsAcceptsBothListShapes(t *testing.T) {
	id := uuid.New()
	bodies := []string{
		`[{"id":"` + id.String() + `","original_filename":"a.jpg","status":"pending"}]`,
		`{"count":1,"results":[{"id":"` + id.String() + `","original_filename":"a.jpg","status":"pending"}]}`,
	}

	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/uploads/album/"+id.String()+"/", r.URL.Path)
			_, _ = io.WriteString(w, body)
		}))

		uploads, err := api.New(api.Config{BaseURL: srv.URL}).AlbumUploads(context.Background(), id)
		srv.Close()

		require.NoError(t, err)
		require.Len(t, uploads, 1)
		assert.True(t, uploads[0].Pending())
	}
}

func TestUploadSendsSingleMultipartRequest(t *testing.T) {
	client, server := newClient(t)
	album := server.AddAlbum(guestalbum.Album{Title: "Wedding", AccessCode: "ABCD1234"})

	err := client.Anonymous().Upload(context.Background(), "ABCD1234", guestalbum.UploadPayload{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)

	reqs := server.RequestsFor(apitest.RouteUpload)
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/v1/uploads/ABCD1234/", reqs[0].Path)

	form, err := reqs[0].MultipartForm()
	require.NoError(t, err)
	require.Contains(t, form.Value, "message")
	require.Contains(t, form.Value, "uploader_name")
	assert.Equal(t, []string{""}, form.Value["message"])
	assert.Equal(t, []string{""}, form.Value["uploader_name"])
	require.Len(t, form.File["file"], 1)
	assert.Equal(t, "photo.jpg", form.File["file"][0].Filename)
	assert.Equal(t, "image/jpeg", form.File["file"][0].Header.Get("Content-Type"))

	uploads := server.Uploads(album.ID)
	require.Len(t, uploads, 1)
	assert.True(t, uploads[0].Pending())
	assert.EqualValues(t, len("jpeg-bytes"), uploads[0].FileSize)
}

// gatedReader blocks its first read until the server has seen the request.
type gatedReader struct {
	gate <-chan struct{}
	data io.Reader
	held bool
}

func (r *gatedReader) Read(p []byte) (int, error) {
	if !r.held {
		r.held = true
		select {
		case <-r.gate:
		case <-time.After(5 * time.Second):
			return 0, errors.New("request was not sent before the body was read")
		}
	}
	return r.data.Read(p)
}

func TestUploadStreamsBody(t *testing.T) {
	arrived := make(chan struct{})
	sizes := make(chan int64, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			sizes <- files[0].Size
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	body := &gatedReader{gate: arrived, data: strings.NewReader(strings.Repeat("v", 4<<20))}
	err := api.New(api.Config{BaseURL: srv.URL}).Upload(context.Background(), "ABCD1234", guestalbum.UploadPayload{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Body:        body,
	})
	require.NoError(t, err)
	require.Len(t, sizes, 1)
	assert.EqualValues(t, 4<<20, <-sizes)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk read failed") }

func TestUploadBodyErrorFailsRequest(t *testing.T) {
	client, server := newClient(t)
	album := server.AddAlbum(guestalbum.Album{Title: "Wedding", AccessCode: "ABCD1234"})

	err := client.Upload(context.Background(), "ABCD1234", guestalbum.UploadPayload{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Body:        failingReader{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk read failed")
	assert.Empty(t, server.Uploads(album.ID))
}

func TestCustomEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/albums/by-code/ABCD1234", r.URL.Path)
		_, _ = io.WriteString(w, `{"title":"Custom"}`)
	}))
	defer srv.Close()

	client := api.New(api.Config{
		BaseURL:   srv.URL + "/v2",
		Endpoints: api.Endpoints{Album: "albums/by-code/%s"},
	})

	album, err := client.Album(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, "Custom", album.Title)
}
