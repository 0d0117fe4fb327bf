// Package apitest provides an in-process fake of the album API for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	guestalbum "github.com/goliatone/go-guestalbum"
)

// Route names, usable with Fail and RequestsFor.
const (
	RouteLogin          = "login"
	RouteRegister       = "register"
	RouteLogout         = "logout"
	RouteProfile        = "profile"
	RouteProfileUpdate  = "profile-update"
	RoutePasswordChange = "password-change"
	RouteEventTypes     = "event-types"
	RouteCreateAlbum    = "create-album"
	RouteAlbum          = "album"
	RouteAlbumUploads   = "album-uploads"
	RouteUpload         = "upload"
)

const prefix = "/api/v1"

// Request is a recorded request.
type Request struct {
	Route         string
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// JSON decodes the recorded body into out.
func (r Request) JSON(out any) error {
	return json.Unmarshal(r.Body, out)
}

// MultipartForm parses the recorded body as multipart form data.
func (r Request) MultipartForm() (*multipart.Form, error) {
	_, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return nil, err
	}
	return multipart.NewReader(bytes.NewReader(r.Body), params["boundary"]).ReadForm(32 << 20)
}

type account struct {
	user     guestalbum.User
	password string
}

type failure struct {
	status int
	body   any
}

// Server is a fake album API backed by memory.
type Server struct {
	*httptest.Server

	mu                 sync.Mutex
	profileOnlyUpdates bool
	nextUserID         int64
	accounts           map[string]*account
	tokens             map[string]string
	albums             map[string]*guestalbum.Album
	uploads            map[uuid.UUID][]guestalbum.Upload
	eventTypes         []guestalbum.EventType
	failures           map[string]failure
	requests           []Request
}

// NewServer starts a fake API. Call Close when done.
func NewServer() *Server {
	s := &Server{
		nextUserID: 1,
		accounts:   map[string]*account{},
		tokens:     map[string]string{},
		albums:     map[string]*guestalbum.Album{},
		uploads:    map[uuid.UUID][]guestalbum.Upload{},
		failures:   map[string]failure{},
		eventTypes: []guestalbum.EventType{
			{ID: 1, Name: "Wedding", NameTR: "Düğün", Slug: "wedding"},
			{ID: 2, Name: "Birthday", NameTR: "Doğum Günü", Slug: "birthday"},
		},
	}

	r := mux.NewRouter()
	r.Use(s.record)
	v1 := r.PathPrefix(prefix).Subrouter()

	v1.HandleFunc("/auth/login/", s.login).Methods(http.MethodPost).Name(RouteLogin)
	v1.HandleFunc("/auth/register/", s.register).Methods(http.MethodPost).Name(RouteRegister)
	v1.HandleFunc("/auth/logout/", s.logout).Methods(http.MethodPost).Name(RouteLogout)
	v1.HandleFunc("/auth/profile/", s.profile).Methods(http.MethodGet).Name(RouteProfile)
	v1.HandleFunc("/auth/profile/update/", s.profileUpdate).Methods(http.MethodPatch).Name(RouteProfileUpdate)
	v1.HandleFunc("/auth/password/change/", s.passwordChange).Methods(http.MethodPost).Name(RoutePasswordChange)
	v1.HandleFunc("/albums/event-types/", s.listEventTypes).Methods(http.MethodGet).Name(RouteEventTypes)
	v1.HandleFunc("/albums/", s.createAlbum).Methods(http.MethodPost).Name(RouteCreateAlbum)
	v1.HandleFunc("/albums/{code}/", s.album).Methods(http.MethodGet).Name(RouteAlbum)
	v1.HandleFunc("/uploads/album/{id}/", s.albumUploads).Methods(http.MethodGet).Name(RouteAlbumUploads)
	v1.HandleFunc("/uploads/{code}/", s.upload).Methods(http.MethodPost).Name(RouteUpload)

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL returns the API base URL including the version prefix.
func (s *Server) BaseURL() string {
	return s.URL + prefix + "/"
}

// AddUser registers an account and returns the stored user.
func (s *Server) AddUser(user guestalbum.User, password string) guestalbum.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(user, password)
}

func (s *Server) addUserLocked(user guestalbum.User, password string) guestalbum.User {
	if user.ID == 0 {
		user.ID = s.nextUserID
	}
	if user.ID >= s.nextUserID {
		s.nextUserID = user.ID + 1
	}
	s.accounts[strings.ToLower(user.Email)] = &account{user: user, password: password}
	return user
}

// IssueToken returns a valid access token for the account with email.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(strings.ToLower(email))
}

func (s *Server) issueLocked(email string) string {
	token := "tok-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tokens[token] = email
	return token
}

// RevokeToken invalidates token.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// AddAlbum stores album under its id and access code.
func (s *Server) AddAlbum(album guestalbum.Album) guestalbum.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAlbumLocked(album)
}

func (s *Server) addAlbumLocked(album guestalbum.Album) guestalbum.Album {
	if album.ID == uuid.Nil {
		album.ID = uuid.New()
	}
	if album.AccessCode == "" {
		album.AccessCode = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	if album.Status == "" {
		album.Status = guestalbum.AlbumStatusActive
	}
	if album.Privacy == "" {
		album.Privacy = guestalbum.PrivacyPublic
	}
	stored := album
	s.albums[album.ID.String()] = &stored
	s.albums[album.AccessCode] = &stored
	return album
}

// RemoveAlbum revokes the access code of an album.
func (s *Server) RemoveAlbum(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if album, ok := s.albums[code]; ok {
		delete(s.albums, album.AccessCode)
		delete(s.albums, album.ID.String())
	}
}

// AddUpload attaches an upload record to an album.
func (s *Server) AddUpload(albumID uuid.UUID, upload guestalbum.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	s.uploads[albumID] = append(s.uploads[albumID], upload)
}

// Uploads returns the uploads stored for an album.
func (s *Server) Uploads(albumID uuid.UUID) []guestalbum.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]guestalbum.Upload(nil), s.uploads[albumID]...)
}

// ProfileOnlyUpdates makes the profile update endpoint answer with the
// nested profile only, the way some backends do.
func (s *Server) ProfileOnlyUpdates(enabled bool) {
	s.mu.Lock()
	s.profileOnlyUpdates = enabled
	s.mu.Unlock()
}

// Fail makes every request to route answer with status and body until
// Recover is called.
func (s *Server) Fail(route string, status int, body any) {
	s.mu.Lock()
	s.failures[route] = failure{status: status, body: body}
	s.mu.Unlock()
}

// Recover clears a failure installed with Fail.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	delete(s.failures, route)
	s.mu.Unlock()
}

// Requests returns every recorded request in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsFor returns the recorded requests that matched route.
func (s *Server) RequestsFor(route string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Route:         name,
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		f, failing := s.failures[name]
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(in.Email)]
	if !ok || acc.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}
	token := s.issueLocked(strings.ToLower(in.Email))
	writeJSON(w, http.StatusOK, map[string]any{"user": acc.user, "access": token, "refresh": "refresh-" + token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in guestalbum.Registration
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(in.Email)
	if _, exists := s.accounts[email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"email": []string{"user with this email already exists."}})
		return
	}

	now := time.Now().UTC()
	user := s.addUserLocked(guestalbum.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		FullName:  strings.TrimSpace(in.FirstName + " " + in.LastName),
		Phone:     in.Phone,
		CreatedAt: &now,
	}, in.Password)
	token := s.issueLocked(email)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "access": token, "refresh": "refresh-" + token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.currentLocked(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	delete(s.tokens, guestalbum.TokenFromHeader(r.Header.Get("Authorization")))
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.currentLocked(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type"})
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) profileUpdate(w http.ResponseWriter, r *http.Request) {
	var patch guestalbum.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.currentLocked(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}

	u := &acc.user
	if u.Profile == nil {
		u.Profile = &guestalbum.Profile{}
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&u.FirstName, patch.FirstName)
	apply(&u.LastName, patch.LastName)
	apply(&u.Phone, patch.Phone)
	apply(&u.Profile.Bio, patch.Bio)
	apply(&u.Profile.Website, patch.Website)
	apply(&u.Profile.Location, patch.Location)
	apply(&u.Profile.BirthDate, patch.BirthDate)
	if patch.Email != nil && !strings.EqualFold(*patch.Email, u.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"email": []string{"email cannot be changed here."}})
		return
	}
	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)

	if s.profileOnlyUpdates {
		writeJSON(w, http.StatusOK, u.Profile)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) passwordChange(w http.ResponseWriter, r *http.Request) {
	var in guestalbum.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.currentLocked(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	if acc.password != in.OldPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"old_password": []string{"Wrong password."}})
		return
	}
	if in.NewPassword != in.NewPasswordConfirm {
		writeJSON(w, http.StatusBadRequest, map[string]any{"new_password_confirm": []string{"Passwords do not match."}})
		return
	}
	acc.password = in.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed"})
}

func (s *Server) listEventTypes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.eventTypes)
}

func (s *Server) createAlbum(w http.ResponseWriter, r *http.Request) {
	var draft guestalbum.AlbumDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.currentLocked(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}

	var eventType *guestalbum.EventType
	for i := range s.eventTypes {
		if s.eventTypes[i].ID == draft.EventTypeID {
			et := s.eventTypes[i]
			eventType = &et
		}
	}
	if eventType == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"event_type_id": []string{"Invalid event type."}})
		return
	}

	date, err := time.Parse("2006-01-02", draft.EventDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"event_date": []string{"Invalid date."}})
		return
	}

	now := time.Now().UTC()
	album := s.addAlbumLocked(guestalbum.Album{
		Title:         draft.Title,
		Description:   draft.Description,
		EventType:     eventType,
		EventDate:     guestalbum.Date{Time: date},
		EventLocation: draft.EventLocation,
		Owner:         acc.user.Username,
		Privacy:       draft.Privacy,
		CreatedAt:     &now,
	})
	album.UploadURL = fmt.Sprintf("/upload/%s", album.AccessCode)
	writeJSON(w, http.StatusCreated, album)
}

func (s *Server) album(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	s.mu.Lock()
	defer s.mu.Unlock()
	album, ok := s.albums[code]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) albumUploads(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.currentLocked(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	uploads := s.uploads[id]
	if uploads == nil {
		uploads = []guestalbum.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(uploads), "results": uploads})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed multipart body"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"file": []string{"No file was submitted."}})
		return
	}
	defer file.Close()
	size, _ := io.Copy(io.Discard, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	album, ok := s.albums[code]
	if !ok || album.AccessCode != code {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	if album.Status != guestalbum.AlbumStatusActive {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Album is not accepting uploads."})
		return
	}

	now := time.Now().UTC()
	upload := guestalbum.Upload{
		ID:               uuid.New(),
		OriginalFilename: header.Filename,
		FileSize:         size,
		MimeType:         header.Header.Get("Content-Type"),
		UploaderName:     r.FormValue("uploader_name"),
		Message:          r.FormValue("message"),
		Status:           guestalbum.UploadStatusPending,
		CreatedAt:        &now,
	}
	s.uploads[album.ID] = append(s.uploads[album.ID], upload)
	album.TotalUploads++
	writeJSON(w, http.StatusCreated, upload)
}

func (s *Server) currentLocked(r *http.Request) (*account, bool) {
	token := guestalbum.TokenFromHeader(r.Header.Get("Authorization"))
	if token == "" {
		return nil, false
	}
	email, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	acc, ok := s.accounts[email]
	return acc, ok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
