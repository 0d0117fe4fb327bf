package guestalbum

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore persists the bearer token across process restarts.
// Get reports ok=false when the key is absent.
type CredentialStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// AuthAPI is the authentication half of the remote API contract.
type AuthAPI interface {
	// SetAuthorization replaces the Authorization header sent on every
	// subsequent request. An empty value removes the header.
	SetAuthorization(header string)
	Login(ctx context.Context, credentials LoginCredentials) (*AuthResponse, error)
	Register(ctx context.Context, registration Registration) (*AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error)
	ChangePassword(ctx context.Context, change PasswordChange) error
}

// AlbumReader resolves an album by access code or id.
type AlbumReader interface {
	Album(ctx context.Context, codeOrID string) (*Album, error)
}

// AlbumUploader exercises an upload capability.
type AlbumUploader interface {
	Upload(ctx context.Context, accessCode string, payload UploadPayload) error
}

// OwnerAPI holds the calls only an authenticated album owner makes.
type OwnerAPI interface {
	AlbumReader
	AlbumUploads(ctx context.Context, albumID uuid.UUID) ([]Upload, error)
	EventTypes(ctx context.Context) ([]EventType, error)
	CreateAlbum(ctx context.Context, draft AlbumDraft) (*Album, error)
}

// Authorizer reports whether the current session may perform owner calls.
type Authorizer interface {
	Authorized() error
}

// StatusCoder is implemented by transport errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Messager is implemented by transport errors that carry a server supplied,
// human readable message.
type Messager interface {
	APIMessage() string
}

// AuthResponse is the payload returned by login and register.
type AuthResponse struct {
	User        User
	AccessToken string
}

// User is the authenticated account profile.
type User struct {
	ID         int64      `json:"id,omitempty"`
	Username   string     `json:"username,omitempty"`
	Email      string     `json:"email,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	FullName   string     `json:"full_name,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	IsVerified bool       `json:"is_verified,omitempty"`
	Profile    *Profile   `json:"profile,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Profile holds the optional public profile attributes of a user.
type Profile struct {
	Avatar    string `json:"avatar,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Website   string `json:"website,omitempty"`
	Location  string `json:"location,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}

// HasIdentity is false for the profile-only shape some servers return
// from the profile update endpoint.
func (u *User) HasIdentity() bool {
	return u != nil && (u.ID != 0 || u.Email != "" || u.Username != "")
}

// DisplayName returns the best name available for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Profile != nil {
		p := *u.Profile
		c.Profile = &p
	}
	return &c
}

// AlbumStatus is the lifecycle status of an album.
type AlbumStatus = string

const (
	AlbumStatusDraft     AlbumStatus = "draft"
	AlbumStatusActive    AlbumStatus = "active"
	AlbumStatusCompleted AlbumStatus = "completed"
	AlbumStatusArchived  AlbumStatus = "archived"
)

// AlbumPrivacy is the visibility setting of an album.
type AlbumPrivacy = string

const (
	PrivacyPublic            AlbumPrivacy = "public"
	PrivacyPrivate           AlbumPrivacy = "private"
	PrivacyPasswordProtected AlbumPrivacy = "password_protected"
)

// EventType describes the kind of event an album was created for.
type EventType struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	NameTR string `json:"name_tr,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Album is the public metadata of an event album.
type Album struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug,omitempty"`
	Description   string       `json:"description,omitempty"`
	EventType     *EventType   `json:"event_type,omitempty"`
	EventDate     Date         `json:"event_date"`
	EventLocation string       `json:"event_location,omitempty"`
	Owner         string       `json:"owner,omitempty"`
	Status        AlbumStatus  `json:"status,omitempty"`
	Privacy       AlbumPrivacy `json:"privacy,omitempty"`
	AccessCode    string       `json:"access_code,omitempty"`
	UploadURL     string       `json:"upload_url,omitempty"`
	TotalUploads  int          `json:"total_uploads,omitempty"`
	ViewCount     int          `json:"view_count,omitempty"`
	CreatedAt     *time.Time   `json:"created_at,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
}

// AlbumDraft is the payload used to create an album.
type AlbumDraft struct {
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	EventTypeID   int64        `json:"event_type_id"`
	EventDate     string       `json:"event_date"`
	EventLocation string       `json:"event_location,omitempty"`
	Privacy       AlbumPrivacy `json:"privacy,omitempty"`
}

// UploadStatus is the moderation status of an upload.
type UploadStatus = string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusApproved   UploadStatus = "approved"
	UploadStatusRejected   UploadStatus = "rejected"
	UploadStatusProcessing UploadStatus = "processing"
)

// Upload is a server owned upload record. Clients only observe it.
type Upload struct {
	ID                  uuid.UUID    `json:"id"`
	OriginalFilename    string       `json:"original_filename"`
	FileType            string       `json:"file_type,omitempty"`
	FileSize            int64        `json:"file_size,omitempty"`
	MimeType            string       `json:"mime_type,omitempty"`
	File                string       `json:"file,omitempty"`
	UploaderName        string       `json:"uploader_name,omitempty"`
	UploaderDisplayName string       `json:"uploader_display_name,omitempty"`
	Message             string       `json:"message,omitempty"`
	Caption             string       `json:"caption,omitempty"`
	Status              UploadStatus `json:"status,omitempty"`
	CreatedAt           *time.Time   `json:"created_at,omitempty"`
}

// Pending reports whether the upload still awaits owner approval.
func (u Upload) Pending() bool {
	return u.Status == UploadStatusPending
}

// UploadPayload is the multipart body of an anonymous upload.
type UploadPayload struct {
	Filename     string
	ContentType  string
	Body         io.Reader
	Message      string
	UploaderName string
}

const dateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// some serializers send a full timestamp for date fields
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ALBUM "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ALBUM "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ALBUM "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ALBUM "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }
