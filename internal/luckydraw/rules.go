// Package luckydraw holds the lucky-draw game state machine: the canonical
// session state, its normalization, reward assignment and the draw transition.
// It has no I/O; persistence and serialization of concurrent draws live in the
// server package.
package luckydraw

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion tags every persisted GameState.
const SchemaVersion = 2

// Policy selects how a box's reward is decided.
type Policy string

const (
	// PolicySequence rewards the n-th draw of the session with Sequence[n],
	// regardless of the box. Draws are capped at len(Sequence).
	PolicySequence Policy = "sequence"
	// PolicyWeighted pre-assigns a weighted-random reward to every box when the
	// session is created.
	PolicyWeighted Policy = "weighted"
)

// Member is a roster entry. Password is compared case-sensitively.
type Member struct {
	Name     string `json:"name"`
	Password string `json:"-"`
}

// Roster is the fixed participant list.
type Roster []Member

// UnmarshalText parses "name:password,name:password".
func (r *Roster) UnmarshalText(text []byte) error {
	var out Roster
	for _, part := range strings.Split(string(text), ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, password, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || password == "" {
			return fmt.Errorf("roster entry %q: want name:password", part)
		}
		out = append(out, Member{Name: name, Password: password})
	}
	*r = out
	return nil
}

// Names returns member names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r))
	for i, m := range r {
		names[i] = m.Name
	}
	return names
}

// Has reports whether name is on the roster.
func (r Roster) Has(name string) bool {
	for _, m := range r {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Rules are the session constants every state operation is evaluated against.
type Rules struct {
	Members    Roster
	TotalBoxes int
	// MaxDraws caps successful draws per session. Zero disables the cap.
	MaxDraws int
	Policy   Policy
	Weights  Table
	Sequence []int64
	// Random returns a uniform float64 in [0, 1). Nil means CryptoFloat64.
	Random func() float64
}

// Validate checks the rules are internally consistent.
func (r Rules) Validate() error {
	if len(r.Members) == 0 {
		return errors.New("roster is empty")
	}
	seen := make(map[string]bool, len(r.Members))
	for _, m := range r.Members {
		if seen[m.Name] {
			return fmt.Errorf("duplicate member %q", m.Name)
		}
		seen[m.Name] = true
	}
	if r.TotalBoxes < 1 {
		return fmt.Errorf("total boxes must be at least 1, got %d", r.TotalBoxes)
	}
	if r.MaxDraws < 0 {
		return fmt.Errorf("max draws must not be negative, got %d", r.MaxDraws)
	}
	switch r.Policy {
	case PolicySequence:
		if len(r.Sequence) == 0 {
			return errors.New("reward sequence is empty")
		}
		for _, v := range r.Sequence {
			if v <= 0 {
				return fmt.Errorf("sequence reward %d must be positive", v)
			}
		}
	case PolicyWeighted:
		if err := r.Weights.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown reward policy %q", r.Policy)
	}
	return nil
}

// DrawCap is the effective maximum number of draws, or 0 when uncapped.
func (r Rules) DrawCap() int {
	limit := r.MaxDraws
	if r.Policy == PolicySequence && (limit == 0 || limit > len(r.Sequence)) {
		limit = len(r.Sequence)
	}
	return limit
}

func (r Rules) random() float64 {
	if r.Random != nil {
		return r.Random()
	}
	return CryptoFloat64()
}
