package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// maxModifyAttempts bounds retries when another instance commits between our
// read and write.
const maxModifyAttempts = 5

// DrawResult is the outcome of a successful draw.
type DrawResult struct {
	Reward int64               `json:"reward"`
	State  luckydraw.GameState `json:"state"`
}

// Game serializes draws and resets against the shared state. Within one
// process a mutex orders them; across processes the store's version check
// does.
type Game struct {
	mu       sync.Mutex
	store    StateStore
	rules    luckydraw.Rules
	resetPIN string
	events   Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewGame(store StateStore, rules luckydraw.Rules, resetPIN string, events Publisher, logger *slog.Logger) *Game {
	return &Game{
		store:    store,
		rules:    rules,
		resetPIN: resetPIN,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

func (g *Game) Rules() luckydraw.Rules { return g.rules }

// State returns the current state, rewards of unopened boxes included.
// Callers sending it to players must use Public.
func (g *Game) State(ctx context.Context) (luckydraw.GameState, error) {
	s, err := g.store.Load(ctx)
	if err != nil {
		return luckydraw.GameState{}, unavailable(err)
	}
	return s, nil
}

// Draw opens boxID for member. Rejections leave the stored state untouched
// and carry a *luckydraw.Error.
func (g *Game) Draw(ctx context.Context, member string, boxID int) (DrawResult, error) {
	if member == "" {
		return DrawResult{}, luckydraw.ErrInvalidPayload
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var reward int64
	apply := func(s *luckydraw.GameState) error {
		next, r, err := g.rules.Draw(*s, member, boxID, g.now())
		if err != nil {
			return err
		}
		*s, reward = next, r
		return nil
	}

	var (
		state luckydraw.GameState
		err   error
	)
	for attempt := 1; attempt <= maxModifyAttempts; attempt++ {
		state, err = g.store.Modify(ctx, apply)
		if !errors.Is(err, ErrVersionConflict) {
			break
		}
		g.logger.Warn("draw lost a race, retrying", "member", member, "box", boxID, "attempt", attempt)
	}
	if err != nil {
		if _, ok := luckydraw.KindOf(err); ok {
			return DrawResult{}, err
		}
		return DrawResult{}, unavailable(err)
	}

	g.logger.Info("box opened", "member", member, "box", boxID, "reward", reward, "draws", state.DrawCount())
	public := state.Public()
	g.events.Publish(ctx, StateEvent{Type: eventDraw, Member: member, BoxID: boxID, Reward: reward, State: public})
	return DrawResult{Reward: reward, State: public}, nil
}

// Reset replaces the state with a fresh session once the PIN and the
// confirmation word check out.
func (g *Game) Reset(ctx context.Context, pin, confirmation string) (luckydraw.GameState, error) {
	if err := luckydraw.VerifyReset(pin, g.resetPIN, confirmation); err != nil {
		g.logger.Warn("reset rejected", "error", err)
		return luckydraw.GameState{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Save(ctx, g.rules.Initial(g.now()))
	if err != nil {
		return luckydraw.GameState{}, unavailable(err)
	}

	g.logger.Info("session reset")
	public := state.Public()
	g.events.Publish(ctx, StateEvent{Type: eventReset, State: public})
	return public, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
