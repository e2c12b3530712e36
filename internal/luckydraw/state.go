package luckydraw

import "time"

// Box is one numbered box. OpenedBy is set once and never changes afterwards.
type Box struct {
	ID       int     `json:"id"`
	Reward   *int64  `json:"reward"`
	OpenedBy *string `json:"openedBy"`
}

// DrawLogEntry records one successful draw.
type DrawLogEntry struct {
	Member    string    `json:"member"`
	Reward    int64     `json:"reward"`
	BoxID     int       `json:"boxId"`
	Timestamp time.Time `json:"timestamp"`
}

// GameState is the single shared session document.
type GameState struct {
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"createdAt"`
	Boxes         []Box             `json:"boxes"`
	MemberResults map[string]*int64 `json:"memberResults"`
	DrawLogs      []DrawLogEntry    `json:"drawLogs"`
}

// Initial returns a fresh session: every box closed, every result unset.
// Under PolicyWeighted each box gets its reward now; under PolicySequence
// rewards are decided when a box is opened.
func (r Rules) Initial(now time.Time) GameState {
	boxes := make([]Box, r.TotalBoxes)
	for i := range boxes {
		boxes[i] = Box{ID: i + 1}
		if r.Policy == PolicyWeighted {
			boxes[i].Reward = ptr(r.Weights.Pick(r.random))
		}
	}
	results := make(map[string]*int64, len(r.Members))
	for _, m := range r.Members {
		results[m.Name] = nil
	}
	return GameState{
		Version:       SchemaVersion,
		CreatedAt:     now.UTC(),
		Boxes:         boxes,
		MemberResults: results,
		DrawLogs:      []DrawLogEntry{},
	}
}

// Clone returns a deep copy.
func (s GameState) Clone() GameState {
	out := s
	out.Boxes = make([]Box, len(s.Boxes))
	for i, b := range s.Boxes {
		out.Boxes[i] = Box{ID: b.ID, Reward: copyPtr(b.Reward), OpenedBy: copyPtr(b.OpenedBy)}
	}
	out.MemberResults = make(map[string]*int64, len(s.MemberResults))
	for name, v := range s.MemberResults {
		out.MemberResults[name] = copyPtr(v)
	}
	out.DrawLogs = append([]DrawLogEntry{}, s.DrawLogs...)
	return out
}

// Public hides the reward of every unopened box. Anything sent to players
// goes through Public.
func (s GameState) Public() GameState {
	out := s.Clone()
	for i := range out.Boxes {
		if out.Boxes[i].OpenedBy == nil {
			out.Boxes[i].Reward = nil
		}
	}
	return out
}

// Box returns the box with the given id.
func (s GameState) Box(id int) (Box, bool) {
	if id < 1 || id > len(s.Boxes) || s.Boxes[id-1].ID != id {
		return Box{}, false
	}
	return s.Boxes[id-1], true
}

// Result returns the member's reward if they have drawn.
func (s GameState) Result(member string) (int64, bool) {
	v := s.MemberResults[member]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// DrawCount is the number of completed draws.
func (s GameState) DrawCount() int { return len(s.DrawLogs) }

func ptr[T any](v T) *T { return &v }

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
