package luckydraw

import (
	"crypto/subtle"
	"strings"
	"time"
)

// ConfirmWord must be typed (case-insensitively) to confirm a reset.
const ConfirmWord = "RESET"

// Draw opens boxID for member. Preconditions are checked in this order and the
// first failure is returned with s untouched:
//
//  1. member is on the roster
//  2. the draw cap has not been reached
//  3. the box exists and is unopened
//  4. the member has not drawn yet
//
// On success the returned state has the box opened, the member's result set
// and one log entry appended, all stamped with now.
func (r Rules) Draw(s GameState, member string, boxID int, now time.Time) (GameState, int64, error) {
	if !r.Members.Has(member) {
		return s, 0, ErrUnknownMember
	}
	if limit := r.DrawCap(); limit > 0 && s.DrawCount() >= limit {
		return s, 0, ErrCapReached
	}
	box, ok := s.Box(boxID)
	if !ok || box.OpenedBy != nil {
		return s, 0, ErrBoxUnavailable
	}
	if _, drawn := s.Result(member); drawn {
		return s, 0, ErrAlreadyDrawn
	}

	reward, err := r.rewardFor(s, box)
	if err != nil {
		return s, 0, err
	}

	next := s.Clone()
	next.Boxes[boxID-1].OpenedBy = ptr(member)
	next.Boxes[boxID-1].Reward = ptr(reward)
	next.MemberResults[member] = ptr(reward)
	next.DrawLogs = append(next.DrawLogs, DrawLogEntry{
		Member:    member,
		Reward:    reward,
		BoxID:     boxID,
		Timestamp: now.UTC(),
	})
	return next, reward, nil
}

func (r Rules) rewardFor(s GameState, box Box) (int64, error) {
	switch r.Policy {
	case PolicySequence:
		n := s.DrawCount()
		if n >= len(r.Sequence) {
			return 0, ErrNoRewardLeft
		}
		return r.Sequence[n], nil
	default:
		if box.Reward != nil {
			return *box.Reward, nil
		}
		// Boxes rebuilt by Normalize carry no reward; draw one now.
		return r.Weights.Pick(r.random), nil
	}
}

// VerifyReset checks the reset gate: the exact PIN, then the confirmation word.
func VerifyReset(pin, wantPIN, confirmation string) error {
	if wantPIN == "" || subtle.ConstantTimeCompare([]byte(pin), []byte(wantPIN)) != 1 {
		return ErrWrongPIN
	}
	if !strings.EqualFold(strings.TrimSpace(confirmation), ConfirmWord) {
		return ErrNotConfirmed
	}
	return nil
}
