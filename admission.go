package guestalbum

import (
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultAllowedTypes is the upload allow list.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/quicktime",
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
	"audio/ogg",
	"text/plain",
	"application/pdf",
}

// Candidate is a file a guest wants to upload.
type Candidate struct {
	Filename    string
	ContentType string
	Body        io.Reader
	DisplayName string
	Message     string
}

// Admitted is a candidate that passed the admission gate. Only Gate.Admit
// produces non zero values.
type Admitted struct {
	candidate   Candidate
	contentType string
}

// Filename returns the admitted file name.
func (a Admitted) Filename() string { return a.candidate.Filename }

// ContentType returns the normalized MIME type.
func (a Admitted) ContentType() string { return a.contentType }

// DisplayName returns the optional uploader name.
func (a Admitted) DisplayName() string { return a.candidate.DisplayName }

// Message returns the optional message.
func (a Admitted) Message() string { return a.candidate.Message }

// valid reports whether a went through Admit.
func (a Admitted) valid() bool {
	return a.contentType != ""
}

// hasFile reports whether the admitted candidate carries a file to send.
func (a Admitted) hasFile() bool {
	return a.candidate.Body != nil && strings.TrimSpace(a.candidate.Filename) != ""
}

// GateOption customizes Gate construction.
type GateOption func(*Gate)

// WithAllowedTypes replaces the allow list.
func WithAllowedTypes(types ...string) GateOption {
	return func(g *Gate) {
		if len(types) == 0 {
			return
		}
		g.allowed = map[string]struct{}{}
		g.order = nil
		for _, t := range types {
			g.add(t)
		}
	}
}

// WithGateLogger overrides the logger.
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Gate checks candidates against the MIME allow list before anything is
// sent. Only the declared type is checked, the server re validates.
type Gate struct {
	allowed map[string]struct{}
	order   []string
	logger  Logger
}

// NewGate creates a gate with DefaultAllowedTypes unless overridden.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		allowed: map[string]struct{}{},
		logger:  defLogger{},
	}
	for _, t := range DefaultAllowedTypes {
		g.add(t)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gate) add(t string) {
	t = normalizeMediaType(t)
	if t == "" {
		return
	}
	if _, ok := g.allowed[t]; ok {
		return
	}
	g.allowed[t] = struct{}{}
	g.order = append(g.order, t)
}

// AllowedTypes returns a copy of the allow list.
func (g *Gate) AllowedTypes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Accept returns the allow list as a comma separated accept string.
func (g *Gate) Accept() string {
	return strings.Join(g.order, ",")
}

// Allowed reports whether contentType is on the allow list.
func (g *Gate) Allowed(contentType string) bool {
	_, ok := g.allowed[normalizeMediaType(contentType)]
	return ok
}

// Admit is synchronous and local. It looks only at the declared type and
// returns ErrUnsupportedType for types outside the allow list. Whether a
// file is attached is checked by the Submitter.
func (g *Gate) Admit(c Candidate) (Admitted, error) {
	ct := normalizeMediaType(c.ContentType)
	if _, ok := g.allowed[ct]; !ok {
		g.logger.Debug("rejected %q with type %q", c.Filename, c.ContentType)
		return Admitted{}, failure(ErrUnsupportedType, "", nil, map[string]any{
			"reason":       ReasonUnsupportedType,
			"content_type": c.ContentType,
			"filename":     c.Filename,
		})
	}

	return Admitted{candidate: c, contentType: ct}, nil
}

// DetectContentType guesses a MIME type from the first bytes of a file,
// falling back to the file extension. It is meant for callers that have to
// declare a type, the gate never calls it.
func DetectContentType(name string, head []byte) string {
	if len(head) > 0 {
		detected := mimetype.Detect(head)
		if ct := normalizeMediaType(detected.String()); ct != "" && ct != "application/octet-stream" {
			return ct
		}
	}

	if i := strings.LastIndex(name, "."); i >= 0 {
		if ct := normalizeMediaType(mime.TypeByExtension(name[i:])); ct != "" {
			return ct
		}
	}

	return "application/octet-stream"
}

func normalizeMediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return strings.ToLower(mt)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
