package guestalbum

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// Validate will run validation rules
func (d AlbumDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&d.EventTypeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&d.EventDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(&d.Privacy, validation.In(
			PrivacyPublic,
			PrivacyPrivate,
			PrivacyPasswordProtected,
		)),
	)
}

// Owner groups the calls an authenticated album owner makes. Every call
// checks the session first and returns ErrNotAuthenticated without I/O when
// there is none.
type Owner struct {
	session Authorizer
	albums  OwnerAPI
}

// NewOwner creates the owner facade.
func NewOwner(session Authorizer, albums OwnerAPI) *Owner {
	return &Owner{session: session, albums: albums}
}

// EventTypes lists the event types an album can be created with.
func (o *Owner) EventTypes(ctx context.Context) ([]EventType, error) {
	if err := o.session.Authorized(); err != nil {
		return nil, err
	}
	types, err := o.albums.EventTypes(ctx)
	if err != nil {
		return nil, ownerFailure("event types", err)
	}
	return types, nil
}

// CreateAlbum validates draft and creates the album.
func (o *Owner) CreateAlbum(ctx context.Context, draft AlbumDraft) (*Album, error) {
	if err := o.session.Authorized(); err != nil {
		return nil, err
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.EventLocation = strings.TrimSpace(draft.EventLocation)
	if draft.Privacy == "" {
		draft.Privacy = PrivacyPublic
	}
	if err := draft.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	album, err := o.albums.CreateAlbum(ctx, draft)
	if err != nil {
		return nil, ownerFailure("create album", err)
	}
	return album, nil
}

// Album fetches an owned album by id or access code.
func (o *Owner) Album(ctx context.Context, id string) (*Album, error) {
	if err := o.session.Authorized(); err != nil {
		return nil, err
	}
	album, err := o.albums.Album(ctx, id)
	if err != nil {
		if unresolvable(StatusCodeOf(err)) {
			return nil, failure(ErrAlbumNotFound, "", err, map[string]any{"album": id})
		}
		return nil, ownerFailure("album", err)
	}
	return album, nil
}

// Uploads lists the uploads of an album in server order, pending ones included.
func (o *Owner) Uploads(ctx context.Context, albumID uuid.UUID) ([]Upload, error) {
	if err := o.session.Authorized(); err != nil {
		return nil, err
	}
	uploads, err := o.albums.AlbumUploads(ctx, albumID)
	if err != nil {
		return nil, ownerFailure("album uploads", err)
	}
	return uploads, nil
}

func ownerFailure(op string, err error) error {
	return failure(ErrOwnerRequestFailed, ErrorMessage(err, op+" request failed"), err, map[string]any{
		"operation": op,
		"status":    StatusCodeOf(err),
	})
}
