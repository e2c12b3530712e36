package luckydraw

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestDrawSuccess(t *testing.T) {
	r := testRules()
	before := r.Initial(t0)

	after, reward, err := r.Draw(before, "Đức", 7, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if reward != 20000 {
		t.Errorf("reward = %d, want first sequence value 20000", reward)
	}
	assertValid(t, r, after)

	box, _ := after.Box(7)
	if box.OpenedBy == nil || *box.OpenedBy != "Đức" || box.Reward == nil || *box.Reward != reward {
		t.Errorf("box 7 = %+v, want opened by Đức with %d", box, reward)
	}
	if v, ok := after.Result("Đức"); !ok || v != reward {
		t.Errorf("result = %d/%v, want %d", v, ok, reward)
	}
	if len(after.DrawLogs) != 1 {
		t.Fatalf("logs = %d, want 1", len(after.DrawLogs))
	}
	if e := after.DrawLogs[0]; e.Member != "Đức" || e.BoxID != 7 || e.Reward != reward || !e.Timestamp.Equal(t0.Add(time.Second)) {
		t.Errorf("log entry = %+v", e)
	}

	// The input state is not touched.
	if before.DrawCount() != 0 || before.Boxes[6].OpenedBy != nil || before.MemberResults["Đức"] != nil {
		t.Error("draw mutated its input state")
	}
}

func TestDrawSequenceFollowsDrawOrder(t *testing.T) {
	r := testRules()
	s := r.Initial(t0)

	var got []int64
	for i, step := range []struct {
		member string
		box    int
	}{{"Thành", 18}, {"Ánh", 1}, {"Đức", 9}} {
		var reward int64
		var err error
		s, reward, err = r.Draw(s, step.member, step.box, t0.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		got = append(got, reward)
	}

	want := []int64{20000, 10000, 50000}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("draw %d reward = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDrawWeightedUsesPreassignedReward(t *testing.T) {
	r := weightedRules()
	s := r.Initial(t0)
	pre := int64(100000)
	s.Boxes[3].Reward = &pre

	_, reward, err := r.Draw(s, "Ánh", 4, t0)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if reward != pre {
		t.Errorf("reward = %d, want pre-assigned %d", reward, pre)
	}
}

func TestDrawWeightedDrawsForUnassignedBox(t *testing.T) {
	r := weightedRules()
	s := r.Normalize([]byte(`{}`))

	_, reward, err := r.Draw(s, "Ánh", 2, t0)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if reward != 5000 {
		t.Errorf("reward = %d, want 5000 from weighted table", reward)
	}
}

func TestDrawPreconditions(t *testing.T) {
	r := testRules()
	s := r.Initial(t0)
	s, _, _ = r.Draw(s, "Ánh", 1, t0)

	full := s
	full, _, _ = r.Draw(full, "Đức", 2, t0)
	full, _, _ = r.Draw(full, "Thành", 3, t0)

	tests := []struct {
		name   string
		state  GameState
		member string
		box    int
		want   error
	}{
		{"unknown member", s, "Mallory", 2, ErrUnknownMember},
		{"unknown member checked before cap", full, "Mallory", 4, ErrUnknownMember},
		{"case sensitive member", s, "ánh", 2, ErrUnknownMember},
		{"cap reached", full, "Ánh", 4, ErrCapReached},
		{"cap checked before box", full, "Ánh", 1, ErrCapReached},
		{"box zero", s, "Đức", 0, ErrBoxUnavailable},
		{"box out of range", s, "Đức", 19, ErrBoxUnavailable},
		{"box already opened", s, "Đức", 1, ErrBoxUnavailable},
		{"box checked before member", s, "Ánh", 1, ErrBoxUnavailable},
		{"member already drew", s, "Ánh", 2, ErrAlreadyDrawn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := json.Marshal(tt.state)
			got, _, err := r.Draw(tt.state, tt.member, tt.box, t0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			after, _ := json.Marshal(got)
			if !bytes.Equal(before, after) {
				t.Error("rejected draw changed the state")
			}
		})
	}
}

func TestDrawNoRewardLeft(t *testing.T) {
	r := testRules()
	r.MaxDraws = 0
	r.Sequence = []int64{20000}
	s := r.Initial(t0)
	s, _, _ = r.Draw(s, "Ánh", 1, t0)

	// DrawCap follows the sequence length, so the cap fires first.
	if _, _, err := r.Draw(s, "Đức", 2, t0); !errors.Is(err, ErrCapReached) {
		t.Fatalf("err = %v, want %v", err, ErrCapReached)
	}
	if _, err := r.rewardFor(s, Box{ID: 2}); !errors.Is(err, ErrNoRewardLeft) {
		t.Fatalf("rewardFor err = %v, want %v", err, ErrNoRewardLeft)
	}
}

func TestDrawRandomSequencesNeverRepeat(t *testing.T) {
	r := weightedRules()
	r.TotalBoxes = 6
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		s := r.Initial(t0)
		for attempt := 0; attempt < 20; attempt++ {
			member := r.Members[rng.IntN(len(r.Members))].Name
			box := rng.IntN(r.TotalBoxes+2) - 1
			if next, _, err := r.Draw(s, member, box, t0); err == nil {
				s = next
			}
		}
		assertValid(t, r, s)
	}
}

func TestVerifyReset(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		confirm string
		want    error
	}{
		{"ok upper", "2026", "RESET", nil},
		{"ok lower", "2026", "reset", nil},
		{"ok padded", "2026", "  Reset ", nil},
		{"wrong pin", "1234", "RESET", ErrWrongPIN},
		{"pin checked first", "1234", "nope", ErrWrongPIN},
		{"empty pin", "", "RESET", ErrWrongPIN},
		{"wrong word", "2026", "RESTART", ErrNotConfirmed},
		{"empty word", "2026", "", ErrNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyReset(tt.pin, "2026", tt.confirm); !errors.Is(err, tt.want) {
				t.Errorf("VerifyReset = %v, want %v", err, tt.want)
			}
		})
	}

	if err := VerifyReset("", "", "RESET"); !errors.Is(err, ErrWrongPIN) {
		t.Errorf("unset PIN must never match, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
		ok   bool
	}{
		{ErrInvalidPayload, KindValidation, true},
		{ErrCapReached, KindConflict, true},
		{ErrWrongPIN, KindForbidden, true},
		{errors.Join(errors.New("wrapped"), ErrAlreadyDrawn), KindConflict, true},
		{errors.New("disk full"), 0, false},
	}
	for _, tt := range tests {
		got, ok := KindOf(tt.err)
		if got != tt.want || ok != tt.ok {
			t.Errorf("KindOf(%v) = %v/%v, want %v/%v", tt.err, got, ok, tt.want, tt.ok)
		}
	}
}
