package guestalbum_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	guestalbum "github.com/goliatone/go-guestalbum"
)

// MockAuthAPI implements guestalbum.AuthAPI
type MockAuthAPI struct {
	mock.Mock

	mu      sync.Mutex
	headers []string
}

func (m *MockAuthAPI) SetAuthorization(header string) {
	m.mu.Lock()
	m.headers = append(m.headers, header)
	m.mu.Unlock()
}

// Header returns the last Authorization header that was set.
func (m *MockAuthAPI) Header() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.headers) == 0 {
		return ""
	}
	return m.headers[len(m.headers)-1]
}

// Headers returns every header value that was set, in order.
func (m *MockAuthAPI) Headers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.headers...)
}

func (m *MockAuthAPI) Login(ctx context.Context, credentials guestalbum.LoginCredentials) (*guestalbum.AuthResponse, error) {
	args := m.Called(ctx, credentials)
	if resp, ok := args.Get(0).(*guestalbum.AuthResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Register(ctx context.Context, registration guestalbum.Registration) (*guestalbum.AuthResponse, error) {
	args := m.Called(ctx, registration)
	if resp, ok := args.Get(0).(*guestalbum.AuthResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthAPI) Profile(ctx context.Context) (*guestalbum.User, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*guestalbum.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) UpdateProfile(ctx context.Context, patch guestalbum.ProfilePatch) (*guestalbum.User, error) {
	args := m.Called(ctx, patch)
	if user, ok := args.Get(0).(*guestalbum.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) ChangePassword(ctx context.Context, change guestalbum.PasswordChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

// MockAlbumAPI implements guestalbum.OwnerAPI and guestalbum.AlbumUploader
type MockAlbumAPI struct {
	mock.Mock
}

func (m *MockAlbumAPI) Album(ctx context.Context, codeOrID string) (*guestalbum.Album, error) {
	args := m.Called(ctx, codeOrID)
	if album, ok := args.Get(0).(*guestalbum.Album); ok {
		return album, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAlbumAPI) AlbumUploads(ctx context.Context, albumID uuid.UUID) ([]guestalbum.Upload, error) {
	args := m.Called(ctx, albumID)
	if uploads, ok := args.Get(0).([]guestalbum.Upload); ok {
		return uploads, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAlbumAPI) EventTypes(ctx context.Context) ([]guestalbum.EventType, error) {
	args := m.Called(ctx)
	if types, ok := args.Get(0).([]guestalbum.EventType); ok {
		return types, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAlbumAPI) CreateAlbum(ctx context.Context, draft guestalbum.AlbumDraft) (*guestalbum.Album, error) {
	args := m.Called(ctx, draft)
	if album, ok := args.Get(0).(*guestalbum.Album); ok {
		return album, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAlbumAPI) Upload(ctx context.Context, accessCode string, payload guestalbum.UploadPayload) error {
	args := m.Called(ctx, accessCode, payload)
	return args.Error(0)
}

// MockCredentialStore implements guestalbum.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCredentialStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCredentialStore) Clear(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockAuthorizer implements guestalbum.Authorizer
type MockAuthorizer struct {
	Err error
}

func (m MockAuthorizer) Authorized() error {
	return m.Err
}

// statusError is a transport error carrying an HTTP status and message.
type statusError struct {
	status  int
	message string
}

func (e statusError) Error() string      { return e.message }
func (e statusError) StatusCode() int    { return e.status }
func (e statusError) APIMessage() string { return e.message }

// recordingSink collects activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []guestalbum.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event guestalbum.ActivityEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) Types() []guestalbum.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]guestalbum.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
