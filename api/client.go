package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTimeout bounds a single request to the game server.
const DefaultTimeout = 8 * time.Second

// ErrMalformed wraps every reply that could not be decoded or has the wrong
// shape.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned for non-2xx replies.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: api status %d", e.Path, e.Code)
}

// Client talks to the game server over its JSON endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c
}

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Start begins a new match with the options currently held by the server.
func (c *Client) Start(ctx context.Context) (*GameState, error) {
	var out GameState
	if err := c.do(ctx, http.MethodPost, "/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetOptions confirms mode and placement and starts a match with them.
func (c *Client) SetOptions(ctx context.Context, opts Options) (*GameState, error) {
	var out GameState
	if err := c.do(ctx, http.MethodPost, "/set_options", opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// State fetches the current match without changing it.
func (c *Client) State(ctx context.Context) (*GameState, error) {
	var out GameState
	if err := c.do(ctx, http.MethodGet, "/state", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserMove fires at the opponent board.
func (c *Client) UserMove(ctx context.Context, at Coord) (*MoveResult, error) {
	var out MoveResult
	if err := c.do(ctx, http.MethodPost, "/user_move", at, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ManualPlace places the next ship between two cells of the user's board.
func (c *Client) ManualPlace(ctx context.Context, start, end Coord) (*PlacementResult, error) {
	body := struct {
		Start Coord `json:"start"`
		End   Coord `json:"end"`
	}{start, end}
	var out PlacementResult
	if err := c.do(ctx, http.MethodPost, "/manual_place", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AutoMove advances an engine-versus-engine match by one turn.
func (c *Client) AutoMove(ctx context.Context) (*AutoMoveResult, error) {
	var out AutoMoveResult
	if err := c.do(ctx, http.MethodPost, "/auto_move", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches every recorded match.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var out StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	if out.UserVsMCTS == nil {
		out.UserVsMCTS = []MatchRecord{}
	}
	if out.MCTSVsMLMCTS == nil {
		out.MCTSVsMLMCTS = []MatchRecord{}
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request done", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			c.logger.Warn("rejected reply", "path", path, "error", err)
			return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
		}
	}
	return nil
}

// validator is implemented by replies that carry boards.
type validator interface {
	validate() error
}
