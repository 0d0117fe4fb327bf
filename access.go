package guestalbum

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Capability is the write scoped right to create uploads on one album. It is
// derived from an access code and never persisted.
type Capability struct {
	AccessCode string
	AlbumID    uuid.UUID
}

// ShareURL returns the guest upload link for the capability, the payload
// usually rendered as a QR code.
func (c Capability) ShareURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/upload/" + url.PathEscape(c.AccessCode)
}

// Resolution is a resolved access code.
type Resolution struct {
	Album      *Album
	Capability Capability
}

// ResolverOption customizes Resolver construction.
type ResolverOption func(*Resolver)

// WithResolverLogger overrides the logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver turns access codes into album metadata and an upload capability.
// It has no notion of the logged in user.
type Resolver struct {
	albums AlbumReader
	logger Logger
}

// NewResolver creates a resolver backed by albums. albums should be an
// anonymous client so no Authorization header is sent.
func NewResolver(albums AlbumReader, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		albums: albums,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ResolveAlbum resolves code. An unknown or revoked code returns
// ErrAlbumNotFound; callers render a not found state and do not retry.
// Transport and server failures return ErrAlbumUnavailable.
func (r *Resolver) ResolveAlbum(ctx context.Context, code string) (*Resolution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, failure(ErrAlbumNotFound, "", nil, map[string]any{"access_code": code})
	}

	album, err := r.albums.Album(ctx, code)
	if err != nil {
		status := StatusCodeOf(err)
		meta := map[string]any{"access_code": code, "status": status}
		if unresolvable(status) {
			r.logger.Debug("access code %q unresolvable (status %d)", code, status)
			return nil, failure(ErrAlbumNotFound, "", err, meta)
		}
		r.logger.Warn("album lookup for %q failed: %v", code, err)
		return nil, failure(ErrAlbumUnavailable, "", err, meta)
	}

	if album == nil {
		return nil, failure(ErrAlbumNotFound, "", nil, map[string]any{"access_code": code})
	}

	capability := Capability{AccessCode: album.AccessCode, AlbumID: album.ID}
	if capability.AccessCode == "" {
		capability.AccessCode = code
	}

	return &Resolution{Album: album, Capability: capability}, nil
}

func unresolvable(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}
