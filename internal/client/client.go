// Package client talks to the lucky-draw HTTP API. Client is a thin typed
// wrapper over the endpoints; Controller layers the player flow on top.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Config struct {
	Members        []string         `json:"members"`
	TotalBoxes     int              `json:"totalBoxes"`
	MaxDraws       int              `json:"maxDraws"`
	Policy         luckydraw.Policy `json:"policy"`
	PollIntervalMs int64            `json:"pollIntervalMs"`
	ConfirmWord    string           `json:"confirmWord"`
}

// PollInterval is the server's suggested refresh interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

type DrawResult struct {
	Reward int64               `json:"reward"`
	State  luckydraw.GameState `json:"state"`
}

type Stats struct {
	Stats   luckydraw.Stats          `json:"stats"`
	Results map[string]*int64        `json:"results"`
	Log     []luckydraw.DrawLogEntry `json:"log"`
}

// Event is one message of the live state stream.
type Event struct {
	Type   string              `json:"type"`
	Member string              `json:"member,omitempty"`
	BoxID  int                 `json:"boxId,omitempty"`
	Reward int64               `json:"reward,omitempty"`
	State  luckydraw.GameState `json:"state"`
}

// Client is safe for sequential use. The admin session lives in its cookie
// jar, the player session in its bearer token.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// New returns a client for the server at baseURL. A nil httpClient gets a
// default with a 10 s timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		copied := *httpClient
		copied.Jar = jar
		httpClient = &copied
	}
	return &Client{base: base, http: httpClient}, nil
}

func (c *Client) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg)
	return cfg, err
}

func (c *Client) State(ctx context.Context) (luckydraw.GameState, error) {
	var s luckydraw.GameState
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &s)
	return s, err
}

// Login authenticates member and keeps the session token for Draw.
func (c *Client) Login(ctx context.Context, member, password string) (luckydraw.GameState, error) {
	var resp struct {
		Token string              `json:"token"`
		State luckydraw.GameState `json:"state"`
	}
	body := map[string]string{"member": member, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &resp); err != nil {
		return luckydraw.GameState{}, err
	}
	c.token = resp.Token
	return resp.State, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.token = ""
	return err
}

// Draw opens boxID as the logged-in member.
func (c *Client) Draw(ctx context.Context, boxID int) (DrawResult, error) {
	var res DrawResult
	err := c.do(ctx, http.MethodPost, "/api/draw", map[string]int{"boxId": boxID}, &res)
	return res, err
}

func (c *Client) AdminLogin(ctx context.Context, password string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/login", map[string]string{"password": password}, nil)
}

func (c *Client) AdminLogout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/admin/logout", nil, nil)
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &st)
	return st, err
}

// Export copies the CSV export to w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/admin/export.csv", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) Reset(ctx context.Context, pin, confirmation string) (luckydraw.GameState, error) {
	var s luckydraw.GameState
	body := map[string]string{"pin": pin, "confirmation": confirmation}
	err := c.do(ctx, http.MethodPost, "/api/admin/reset", body, &s)
	return s, err
}

// Watch streams state events over the websocket until ctx is done or the
// connection drops, calling fn for each.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	u := *c.base
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path += "/api/ws"

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", u.String(), err)
	}
	defer conn.CloseNow()

	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(ev)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns any non-2xx response into an APIError.
// On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return nil, &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	return resp, nil
}
