package luckydraw

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Normalize turns an arbitrary, possibly malformed payload into a GameState
// that satisfies every invariant of r. It never fails and is pure: it reads no
// clock and no randomness, so identical input always yields identical output.
//
// The draw log is authoritative. Boxes' openedBy and members' results are
// rebuilt from the surviving log entries; whatever the payload claims for them
// is ignored. Log entries with wrong field types, unknown members, out-of-range
// boxes, repeated boxes or members, or beyond the draw cap are dropped.
func (r Rules) Normalize(raw []byte) GameState {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		doc = nil
	}

	candidate := GameState{
		CreatedAt: decodeTime(doc["createdAt"]),
		Boxes:     decodeBoxes(doc["boxes"]),
		DrawLogs:  decodeLogs(doc["drawLogs"]),
	}
	return r.Canonical(candidate)
}

// Canonical enforces r's invariants on an already typed state. It is
// idempotent: Canonical(Canonical(s)) equals Canonical(s).
func (r Rules) Canonical(s GameState) GameState {
	boxes := make([]Box, r.TotalBoxes)
	for i := range boxes {
		boxes[i] = Box{ID: i + 1}
	}
	if r.Policy == PolicyWeighted {
		seen := make(map[int]bool, len(s.Boxes))
		for _, b := range s.Boxes {
			if b.ID < 1 || b.ID > r.TotalBoxes || seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			if b.Reward != nil && *b.Reward > 0 {
				boxes[b.ID-1].Reward = ptr(*b.Reward)
			}
		}
	}

	results := make(map[string]*int64, len(r.Members))
	for _, m := range r.Members {
		results[m.Name] = nil
	}

	limit := r.DrawCap()
	logs := make([]DrawLogEntry, 0, len(s.DrawLogs))
	usedBox := make(map[int]bool, len(s.DrawLogs))
	for _, e := range s.DrawLogs {
		if limit > 0 && len(logs) == limit {
			break
		}
		if !r.Members.Has(e.Member) || results[e.Member] != nil {
			continue
		}
		if e.BoxID < 1 || e.BoxID > r.TotalBoxes || usedBox[e.BoxID] {
			continue
		}
		if e.Reward <= 0 {
			continue
		}
		usedBox[e.BoxID] = true

		entry := DrawLogEntry{
			Member:    e.Member,
			Reward:    e.Reward,
			BoxID:     e.BoxID,
			Timestamp: e.Timestamp.UTC(),
		}
		logs = append(logs, entry)
		boxes[e.BoxID-1].OpenedBy = ptr(entry.Member)
		boxes[e.BoxID-1].Reward = ptr(entry.Reward)
		results[entry.Member] = ptr(entry.Reward)
	}

	return GameState{
		Version:       SchemaVersion,
		CreatedAt:     s.CreatedAt.UTC(),
		Boxes:         boxes,
		MemberResults: results,
		DrawLogs:      logs,
	}
}

func decodeBoxes(raw json.RawMessage) []Box {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	boxes := make([]Box, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		id, ok := decodeInt(fields["id"])
		if !ok || id > math.MaxInt32 {
			continue
		}
		b := Box{ID: int(id)}
		if v, ok := decodeInt(fields["reward"]); ok {
			b.Reward = &v
		}
		boxes = append(boxes, b)
	}
	return boxes
}

func decodeLogs(raw json.RawMessage) []DrawLogEntry {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	logs := make([]DrawLogEntry, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		member, ok := decodeString(fields["member"])
		if !ok {
			continue
		}
		reward, ok := decodeInt(fields["reward"])
		if !ok {
			continue
		}
		boxID, ok := decodeInt(fields["boxId"])
		if !ok || boxID > math.MaxInt32 {
			continue
		}
		ts, ok := decodeString(fields["timestamp"])
		if !ok {
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			continue
		}
		logs = append(logs, DrawLogEntry{Member: member, Reward: reward, BoxID: int(boxID), Timestamp: at})
	}
	return logs
}

func decodeTime(raw json.RawMessage) time.Time {
	s, ok := decodeString(raw)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeInt accepts JSON numbers with an integral value only. Quoted numbers,
// fractions and null are rejected.
func decodeInt(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
