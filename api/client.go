package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL   = "http://localhost:8000/api/v1/"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "go-guestalbum"

	maxErrorBody = 64 << 10
)

// Endpoints holds the request paths relative to the base URL. Paths with a
// %s verb take the escaped access code or id.
type Endpoints struct {
	Login          string
	Register       string
	Logout         string
	Profile        string
	ProfileUpdate  string
	PasswordChange string
	Album          string
	EventTypes     string
	CreateAlbum    string
	AlbumUploads   string
	Upload         string
}

// DefaultEndpoints returns the stock API paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:          "auth/login/",
		Register:       "auth/register/",
		Logout:         "auth/logout/",
		Profile:        "auth/profile/",
		ProfileUpdate:  "auth/profile/update/",
		PasswordChange: "auth/password/change/",
		Album:          "albums/%s/",
		EventTypes:     "albums/event-types/",
		CreateAlbum:    "albums/",
		AlbumUploads:   "uploads/album/%s/",
		Upload:         "uploads/%s/",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Endpoints{
		Login:          pick(e.Login, d.Login),
		Register:       pick(e.Register, d.Register),
		Logout:         pick(e.Logout, d.Logout),
		Profile:        pick(e.Profile, d.Profile),
		ProfileUpdate:  pick(e.ProfileUpdate, d.ProfileUpdate),
		PasswordChange: pick(e.PasswordChange, d.PasswordChange),
		Album:          pick(e.Album, d.Album),
		EventTypes:     pick(e.EventTypes, d.EventTypes),
		CreateAlbum:    pick(e.CreateAlbum, d.CreateAlbum),
		AlbumUploads:   pick(e.AlbumUploads, d.AlbumUploads),
		Upload:         pick(e.Upload, d.Upload),
	}
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
	Endpoints  Endpoints
}

// Client talks to the album API. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client

	mu            sync.RWMutex
	authorization string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	cfg.Endpoints = cfg.Endpoints.withDefaults()

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
	}
}

// Anonymous returns a client with the same configuration and no
// Authorization header. Guest calls go through it.
func (c *Client) Anonymous() *Client {
	return &Client{
		config:     c.config,
		httpClient: c.httpClient,
	}
}

// SetAuthorization replaces the Authorization header sent on every
// subsequent request. An empty value removes it.
func (c *Client) SetAuthorization(header string) {
	c.mu.Lock()
	c.authorization = strings.TrimSpace(header)
	c.mu.Unlock()
}

// Authorization returns the current Authorization header value.
func (c *Client) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

func (c *Client) endpoint(path string, args ...string) string {
	if len(args) > 0 {
		escaped := make([]any, len(args))
		for i, a := range args {
			escaped[i] = url.PathEscape(a)
		}
		path = fmt.Sprintf(path, escaped...)
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) doJSON(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return transportError(op, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, target, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return transportError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth := c.Authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return responseError(op, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Operation: op, Status: resp.StatusCode, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Operation: op, Status: resp.StatusCode, Detail: "failed to decode response", Err: err}
	}
	return nil
}

// decodeList accepts either a bare JSON array or a paginated
// {"results": [...]} envelope.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
