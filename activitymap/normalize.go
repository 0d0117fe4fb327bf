// Package activitymap flattens guestalbum activity events into a transport
// agnostic record for log sinks and downstream collectors.
package activitymap

import (
	"strconv"
	"strings"
	"time"

	guestalbum "github.com/goliatone/go-guestalbum"
)

const (
	// MetadataKeyAccessCode stores the album access code of upload events.
	MetadataKeyAccessCode = "access_code"
	// MetadataKeyUserID stores the acting user id when the actor is not the user.
	MetadataKeyUserID = "user_id"
)

const (
	ObjectTypeUser  = "user"
	ObjectTypeAlbum = "album"

	defaultChannel = "guestalbum"
	guestActorID   = "guest"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Fields returns the record as a flat map, metadata keys prefixed with "meta.".
func (n Normalized) Fields() map[string]any {
	fields := map[string]any{
		"actor_id":    n.ActorID,
		"verb":        n.Verb,
		"occurred_at": n.OccurredAt.Format(time.RFC3339),
	}
	if n.ObjectType != "" {
		fields["object_type"] = n.ObjectType
	}
	if n.ObjectID != "" {
		fields["object_id"] = n.ObjectID
	}
	if n.Channel != "" {
		fields["channel"] = n.Channel
	}
	for k, v := range n.Metadata {
		fields["meta."+k] = v
	}
	return fields
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

// WithDefaultChannel sets the channel used when the event type carries no
// namespace.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if channel = strings.TrimSpace(channel); channel != "" {
			opts.channel = channel
		}
	}
}

// WithActorFallback sets the actor id of events without a user id.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

// WithClock sets the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// Normalize converts an activity event. Upload events are about an album
// and are acted on by a guest; session events are about the user.
func Normalize(event guestalbum.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		actorFallback: guestActorID,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	verb := string(event.EventType)
	channel := options.channel
	if ns, _, ok := strings.Cut(verb, "."); ok && ns != "" {
		channel = ns
	}

	actorID := options.actorFallback
	if event.UserID != 0 {
		actorID = strconv.FormatInt(event.UserID, 10)
	}

	out := Normalized{
		ActorID:    actorID,
		Verb:       verb,
		Channel:    channel,
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: event.OccurredAt,
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = options.now()
	}

	code := strings.TrimSpace(event.AccessCode)
	switch {
	case code != "":
		out.ObjectType = ObjectTypeAlbum
		out.ObjectID = code
		if event.UserID != 0 {
			out.Metadata = withKey(out.Metadata, MetadataKeyUserID, event.UserID)
		}
	case event.UserID != 0:
		out.ObjectType = ObjectTypeUser
		out.ObjectID = actorID
	}

	return out
}

func withKey(m map[string]any, key string, value any) map[string]any {
	if m == nil {
		m = map[string]any{}
	}
	if _, exists := m[key]; !exists {
		m[key] = value
	}
	return m
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
