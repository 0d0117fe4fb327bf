package guestalbum

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Confirmation is the opaque success result of an upload.
type Confirmation struct {
	AccessCode  string
	Filename    string
	SubmittedAt time.Time
}

// SubmitterOption customizes Submitter construction.
type SubmitterOption func(*Submitter)

// WithSubmitterLogger overrides the logger.
func WithSubmitterLogger(logger Logger) SubmitterOption {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSubmitterActivitySink sets the ActivitySink for upload events.
func WithSubmitterActivitySink(sink ActivitySink) SubmitterOption {
	return func(s *Submitter) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// WithSubmitterClock injects a custom clock (useful for tests).
func WithSubmitterClock(clock func() time.Time) SubmitterOption {
	return func(s *Submitter) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Submitter exercises an upload capability, once per call.
type Submitter struct {
	uploads      AlbumUploader
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewSubmitter creates a submitter backed by uploads.
func NewSubmitter(uploads AlbumUploader, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		uploads:      uploads,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit sends file to the album scoped by accessCode. It makes at most one
// request and never retries. Every failure is reported as ErrUploadFailed.
func (s *Submitter) Submit(ctx context.Context, accessCode string, file Admitted) (*Confirmation, error) {
	accessCode = strings.TrimSpace(accessCode)
	if !file.valid() || !file.hasFile() {
		return nil, ErrNoFile.Clone()
	}
	if accessCode == "" {
		return nil, failure(ErrAlbumNotFound, "", nil, nil)
	}

	payload := UploadPayload{
		Filename:     file.Filename(),
		ContentType:  file.ContentType(),
		Body:         file.candidate.Body,
		Message:      cleanText(file.Message()),
		UploaderName: cleanText(file.DisplayName()),
	}

	if err := s.uploads.Upload(ctx, accessCode, payload); err != nil {
		s.logger.Warn("upload of %q to %q failed: %v", payload.Filename, accessCode, err)
		s.record(ctx, ActivityEvent{
			EventType:  ActivityEventUploadFailed,
			AccessCode: accessCode,
			Metadata:   map[string]any{"filename": payload.Filename, "status": StatusCodeOf(err)},
		})
		return nil, failure(ErrUploadFailed, "", err, map[string]any{"access_code": accessCode})
	}

	confirmation := &Confirmation{
		AccessCode:  accessCode,
		Filename:    payload.Filename,
		SubmittedAt: s.now(),
	}

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventUploadSubmitted,
		AccessCode: accessCode,
		Metadata:   map[string]any{"filename": payload.Filename, "content_type": payload.ContentType},
		OccurredAt: confirmation.SubmittedAt,
	})

	return confirmation, nil
}

// Reject reports an admission rejection to the activity sink.
func (s *Submitter) Reject(ctx context.Context, accessCode string, c Candidate, err error) {
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventUploadRejected,
		AccessCode: accessCode,
		Metadata: map[string]any{
			"filename":     c.Filename,
			"content_type": c.ContentType,
			"error":        ErrorMessage(err, ""),
		},
	})
}

func (s *Submitter) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, event)
}

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
