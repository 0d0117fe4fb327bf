package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	guestalbum "github.com/goliatone/go-guestalbum"
	"github.com/google/uuid"
)

var (
	_ guestalbum.OwnerAPI      = (*Client)(nil)
	_ guestalbum.AlbumUploader = (*Client)(nil)
)

// Album implements guestalbum.AlbumReader.
func (c *Client) Album(ctx context.Context, codeOrID string) (*guestalbum.Album, error) {
	var out guestalbum.Album
	if err := c.doJSON(ctx, "album", http.MethodGet, c.endpoint(c.config.Endpoints.Album, codeOrID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EventTypes implements guestalbum.OwnerAPI.
func (c *Client) EventTypes(ctx context.Context) ([]guestalbum.EventType, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "event types", http.MethodGet, c.endpoint(c.config.Endpoints.EventTypes), nil, &raw); err != nil {
		return nil, err
	}
	types, err := decodeList[guestalbum.EventType](raw)
	if err != nil {
		return nil, &Error{Operation: "event types", Detail: "failed to decode response", Err: err}
	}
	return types, nil
}

// CreateAlbum implements guestalbum.OwnerAPI.
func (c *Client) CreateAlbum(ctx context.Context, draft guestalbum.AlbumDraft) (*guestalbum.Album, error) {
	var out guestalbum.Album
	if err := c.doJSON(ctx, "create album", http.MethodPost, c.endpoint(c.config.Endpoints.CreateAlbum), draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AlbumUploads implements guestalbum.OwnerAPI.
func (c *Client) AlbumUploads(ctx context.Context, albumID uuid.UUID) ([]guestalbum.Upload, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "album uploads", http.MethodGet, c.endpoint(c.config.Endpoints.AlbumUploads, albumID.String()), nil, &raw); err != nil {
		return nil, err
	}
	uploads, err := decodeList[guestalbum.Upload](raw)
	if err != nil {
		return nil, &Error{Operation: "album uploads", Detail: "failed to decode response", Err: err}
	}
	return uploads, nil
}

// Upload implements guestalbum.AlbumUploader. It sends a single multipart
// request with the file, message and uploader_name fields; the last two are
// always present even when empty. The body is streamed from payload.Body
// while the request is in flight.
func (c *Client) Upload(ctx context.Context, accessCode string, payload guestalbum.UploadPayload) error {
	if payload.Body == nil {
		return &Error{Operation: "upload", Detail: "missing file body"}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	contentType := writer.FormDataContentType()

	written := make(chan error, 1)
	go func() {
		err := writeUploadForm(writer, payload)
		_ = pw.CloseWithError(err)
		written <- err
	}()

	err := c.do(ctx, "upload", http.MethodPost, c.endpoint(c.config.Endpoints.Upload, accessCode), pr, contentType, nil)
	_ = pr.Close()

	// the writer only sees ErrClosedPipe when the request ended first
	if werr := <-written; werr != nil && !errors.Is(werr, io.ErrClosedPipe) {
		return transportError("upload", werr)
	}
	return err
}

func writeUploadForm(writer *multipart.Writer, payload guestalbum.UploadPayload) error {
	part, err := writer.CreatePart(filePartHeader(payload.Filename, payload.ContentType))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, payload.Body); err != nil {
		return err
	}
	if err := writer.WriteField("message", payload.Message); err != nil {
		return err
	}
	if err := writer.WriteField("uploader_name", payload.UploaderName); err != nil {
		return err
	}
	return writer.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(filename, contentType string) textproto.MIMEHeader {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}
