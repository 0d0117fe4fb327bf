package guestalbum_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	guestalbum "github.com/goliatone/go-guestalbum"
)

func newTestSubmitter(opts ...guestalbum.SubmitterOption) (*guestalbum.Submitter, *MockAlbumAPI) {
	uploads := &MockAlbumAPI{}
	opts = append([]guestalbum.SubmitterOption{guestalbum.WithSubmitterLogger(guestalbum.NopLogger())}, opts...)
	return guestalbum.NewSubmitter(uploads, opts...), uploads
}

func admit(t *testing.T, c guestalbum.Candidate) guestalbum.Admitted {
	t.Helper()
	admitted, err := newTestGate().Admit(c)
	require.NoError(t, err)
	return admitted
}

func TestSubmitSendsOneRequest(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	submitter, uploads := newTestSubmitter(
		guestalbum.WithSubmitterClock(func() time.Time { return now }),
		guestalbum.WithSubmitterActivitySink(sink),
	)

	c := candidate("photo.png", "image/png")
	uploads.On("Upload", mock.Anything, "ABCD1234", mock.MatchedBy(func(p guestalbum.UploadPayload) bool {
		return p.Filename == "photo.png" &&
			p.ContentType == "image/png" &&
			p.Body == c.Body &&
			p.Message == "" &&
			p.UploaderName == ""
	})).Return(nil).Once()

	confirmation, err := submitter.Submit(context.Background(), "ABCD1234", admit(t, c))
	require.NoError(t, err)
	assert.Equal(t, &guestalbum.Confirmation{AccessCode: "ABCD1234", Filename: "photo.png", SubmittedAt: now}, confirmation)
	assert.Equal(t, []guestalbum.ActivityEventType{guestalbum.ActivityEventUploadSubmitted}, sink.Types())
	uploads.AssertNumberOfCalls(t, "Upload", 1)
}

func TestSubmitNormalizesText(t *testing.T) {
	submitter, uploads := newTestSubmitter()

	c := candidate("a.png", "image/png")
	c.DisplayName = "  S\u0327ule "
	c.Message = "Gu\u0308l\n"

	uploads.On("Upload", mock.Anything, "ABCD1234", mock.MatchedBy(func(p guestalbum.UploadPayload) bool {
		return p.UploaderName == "\u015eule" && p.Message == "G\u00fcl"
	})).Return(nil).Once()

	_, err := submitter.Submit(context.Background(), "ABCD1234", admit(t, c))
	require.NoError(t, err)
	uploads.AssertExpectations(t)
}

func TestSubmitFailureIsOpaque(t *testing.T) {
	sink := &recordingSink{}
	submitter, uploads := newTestSubmitter(guestalbum.WithSubmitterActivitySink(sink))

	uploads.On("Upload", mock.Anything, "ABCD1234", mock.Anything).
		Return(statusError{status: http.StatusRequestEntityTooLarge, message: "file too large"}).Once()

	confirmation, err := submitter.Submit(context.Background(), "ABCD1234", admit(t, candidate("a.png", "image/png")))
	assert.Nil(t, confirmation)
	require.Error(t, err)
	assert.True(t, guestalbum.HasTextCode(err, guestalbum.TextCodeUploadFailed))
	assert.Equal(t, guestalbum.MessageUploadFailed, guestalbum.ErrorMessage(err, ""))
	assert.Equal(t, []guestalbum.ActivityEventType{guestalbum.ActivityEventUploadFailed}, sink.Types())
	uploads.AssertNumberOfCalls(t, "Upload", 1)
}

func TestSubmitRequiresAdmittedFile(t *testing.T) {
	submitter, uploads := newTestSubmitter()

	_, err := submitter.Submit(context.Background(), "ABCD1234", guestalbum.Admitted{})
	assert.True(t, guestalbum.HasTextCode(err, guestalbum.TextCodeNoFile))
	uploads.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitRequiresAttachedFile(t *testing.T) {
	submitter, uploads := newTestSubmitter()

	cases := []guestalbum.Candidate{
		{Filename: "a.png", ContentType: "image/png"},
		{ContentType: "image/png", Body: strings.NewReader("x")},
	}
	for _, c := range cases {
		_, err := submitter.Submit(context.Background(), "ABCD1234", admit(t, c))
		assert.True(t, guestalbum.HasTextCode(err, guestalbum.TextCodeNoFile))
	}
	uploads.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitRequiresAccessCode(t *testing.T) {
	submitter, uploads := newTestSubmitter()

	_, err := submitter.Submit(context.Background(), " ", admit(t, candidate("a.png", "image/png")))
	assert.True(t, guestalbum.IsAlbumNotFound(err))
	uploads.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectRecordsActivity(t *testing.T) {
	sink := &recordingSink{}
	submitter, _ := newTestSubmitter(guestalbum.WithSubmitterActivitySink(sink))

	c := candidate("setup.exe", "application/x-msdownload")
	_, err := newTestGate().Admit(c)
	require.Error(t, err)

	submitter.Reject(context.Background(), "ABCD1234", c, err)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, guestalbum.ActivityEventUploadRejected, event.EventType)
	assert.Equal(t, "ABCD1234", event.AccessCode)
	assert.Equal(t, "setup.exe", event.Metadata["filename"])
	assert.False(t, event.OccurredAt.IsZero())
}
