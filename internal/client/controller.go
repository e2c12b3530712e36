package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrDrawInFlight = errors.New("a draw is already in progress")
)

// Controller drives one player's session: login, keeping a cached state
// fresh, drawing once and reporting the win once. The cache is only ever
// replaced by server responses, never patched locally.
type Controller struct {
	client *Client
	logger *slog.Logger

	mu      sync.Mutex
	member  string
	state   luckydraw.GameState
	win     *int64
	drawing bool
}

func NewController(c *Client, logger *slog.Logger) *Controller {
	return &Controller{client: c, logger: logger}
}

// Login re-reads the shared state before authenticating so a member who drew
// on another device is refused without a round-trip to the draw endpoint.
func (c *Controller) Login(ctx context.Context, member, password string) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	_, drawn := c.state.Result(member)
	c.mu.Unlock()
	if drawn {
		return luckydraw.ErrAlreadyDrawn
	}

	s, err := c.client.Login(ctx, member, password)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.member = member
	c.state = s
	c.win = nil
	c.mu.Unlock()
	c.logger.Info("logged in", "member", member)
	return nil
}

// Refresh replaces the cached state with the server's.
func (c *Controller) Refresh(ctx context.Context) error {
	s, err := c.client.State(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	return nil
}

// Poll refreshes every interval until ctx is done. Failed refreshes are
// logged and retried on the next tick.
func (c *Controller) Poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("refresh failed", "error", err)
			}
		}
	}
}

// Draw opens boxID for the logged-in member. It refuses locally when the
// cache already shows a result. Any failure triggers a resync.
func (c *Controller) Draw(ctx context.Context, boxID int) (int64, error) {
	c.mu.Lock()
	member := c.member
	switch {
	case member == "":
		c.mu.Unlock()
		return 0, ErrNotLoggedIn
	case c.drawing:
		c.mu.Unlock()
		return 0, ErrDrawInFlight
	}
	if _, drawn := c.state.Result(member); drawn {
		c.mu.Unlock()
		return 0, luckydraw.ErrAlreadyDrawn
	}
	c.drawing = true
	c.mu.Unlock()

	res, err := c.client.Draw(ctx, boxID)

	c.mu.Lock()
	c.drawing = false
	c.mu.Unlock()

	if err != nil {
		if rerr := c.Refresh(ctx); rerr != nil {
			c.logger.Warn("resync after failed draw", "error", rerr)
		}
		return 0, err
	}

	c.mu.Lock()
	c.state = res.State
	reward := res.Reward
	c.win = &reward
	c.mu.Unlock()
	return res.Reward, nil
}

// TakeWin returns the amount won by the last draw, once.
func (c *Controller) TakeWin() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.win == nil {
		return 0, false
	}
	v := *c.win
	c.win = nil
	return v, true
}

// State returns a copy of the cached state.
func (c *Controller) State() luckydraw.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) Member() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.member
}

// CanDraw reports whether the cached state lets the member draw.
func (c *Controller) CanDraw() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.member == "" || c.drawing {
		return false
	}
	_, drawn := c.state.Result(c.member)
	return !drawn
}
