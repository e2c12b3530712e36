package luckydraw

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func testRules() Rules {
	return Rules{
		Members: Roster{
			{Name: "Ánh", Password: "anh123"},
			{Name: "Đức", Password: "duc123"},
			{Name: "Thành", Password: "thanh123"},
		},
		TotalBoxes: 18,
		MaxDraws:   3,
		Policy:     PolicySequence,
		Sequence:   []int64{20000, 10000, 50000},
	}
}

func weightedRules() Rules {
	r := testRules()
	r.Policy = PolicyWeighted
	r.MaxDraws = 0
	r.Weights = Table{{5000, 50}, {10000, 30}, {20000, 20}}
	r.Random = constRandom(0.1)
	return r
}

// assertValid checks every GameState invariant against r.
func assertValid(t *testing.T, r Rules, s GameState) {
	t.Helper()

	if s.Version != SchemaVersion {
		t.Errorf("version = %d, want %d", s.Version, SchemaVersion)
	}
	if len(s.Boxes) != r.TotalBoxes {
		t.Fatalf("boxes = %d, want %d", len(s.Boxes), r.TotalBoxes)
	}
	for i, b := range s.Boxes {
		if b.ID != i+1 {
			t.Errorf("box %d has id %d", i, b.ID)
		}
	}
	if len(s.MemberResults) != len(r.Members) {
		t.Errorf("member results = %d, want %d", len(s.MemberResults), len(r.Members))
	}
	if limit := r.DrawCap(); limit > 0 && len(s.DrawLogs) > limit {
		t.Errorf("draw logs = %d, exceeds cap %d", len(s.DrawLogs), limit)
	}

	logByBox := map[int]DrawLogEntry{}
	logByMember := map[string]int{}
	for _, e := range s.DrawLogs {
		if _, dup := logByBox[e.BoxID]; dup {
			t.Errorf("box %d appears twice in draw log", e.BoxID)
		}
		logByBox[e.BoxID] = e
		logByMember[e.Member]++
	}
	for _, b := range s.Boxes {
		e, logged := logByBox[b.ID]
		if (b.OpenedBy != nil) != logged {
			t.Errorf("box %d: openedBy=%v but logged=%v", b.ID, b.OpenedBy, logged)
			continue
		}
		if logged && *b.OpenedBy != e.Member {
			t.Errorf("box %d opened by %q, log says %q", b.ID, *b.OpenedBy, e.Member)
		}
		if !logged && r.Policy == PolicySequence && b.Reward != nil {
			t.Errorf("box %d: unopened box carries a reward under sequence policy", b.ID)
		}
	}
	for _, m := range r.Members {
		n := logByMember[m.Name]
		if n > 1 {
			t.Errorf("member %q appears %d times in draw log", m.Name, n)
		}
		v, has := s.MemberResults[m.Name]
		if !has {
			t.Errorf("member %q missing from results", m.Name)
		}
		if (v != nil) != (n == 1) {
			t.Errorf("member %q: result=%v but log entries=%d", m.Name, v, n)
		}
	}
}

func TestNormalizeMalformedInputs(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantLogs int
	}{
		{"empty bytes", ``, 0},
		{"null", `null`, 0},
		{"empty object", `{}`, 0},
		{"array", `[1,2,3]`, 0},
		{"string", `"state"`, 0},
		{"wrong field types", `{"version":"x","createdAt":12,"boxes":"many","memberResults":[],"drawLogs":{"a":1}}`, 0},
		{"missing boxes", `{"boxes":[{"id":1,"reward":5000,"openedBy":null},{"id":7}]}`, 0},
		{"extra boxes", `{"boxes":[{"id":0},{"id":19},{"id":250},{"id":-3},{"id":"4"},{"id":2.5}]}`, 0},
		{"malformed log entries", `{"drawLogs":[
			null, 7, "x",
			{"member":"Ánh","reward":"20000","boxId":3,"timestamp":"2026-01-01T00:00:00Z"},
			{"member":"Ánh","reward":20000,"boxId":"3","timestamp":"2026-01-01T00:00:00Z"},
			{"member":"Ánh","reward":20000,"boxId":3,"timestamp":1767225600},
			{"member":"Ánh","reward":20000,"boxId":3,"timestamp":"yesterday"},
			{"member":42,"reward":20000,"boxId":3,"timestamp":"2026-01-01T00:00:00Z"}
		]}`, 0},
		{"unknown member and out of range box", `{"drawLogs":[
			{"member":"Mallory","reward":20000,"boxId":3,"timestamp":"2026-01-01T00:00:00Z"},
			{"member":"Ánh","reward":20000,"boxId":99,"timestamp":"2026-01-01T00:00:00Z"},
			{"member":"Ánh","reward":0,"boxId":4,"timestamp":"2026-01-01T00:00:00Z"}
		]}`, 0},
		{"duplicate member and box", `{"drawLogs":[
			{"member":"Ánh","reward":20000,"boxId":3,"timestamp":"2026-01-01T00:00:00Z"},
			{"member":"Ánh","reward":10000,"boxId":4,"timestamp":"2026-01-01T00:01:00Z"},
			{"member":"Đức","reward":10000,"boxId":3,"timestamp":"2026-01-01T00:02:00Z"},
			{"member":"Đức","reward":10000,"boxId":5,"timestamp":"2026-01-01T00:03:00Z"}
		]}`, 2},
		{"over the cap", `{"drawLogs":[
			{"member":"Ánh","reward":20000,"boxId":1,"timestamp":"2026-01-01T00:00:00Z"},
			{"member":"Đức","reward":10000,"boxId":2,"timestamp":"2026-01-01T00:01:00Z"},
			{"member":"Thành","reward":50000,"boxId":3,"timestamp":"2026-01-01T00:02:00Z"},
			{"member":"Đức","reward":50000,"boxId":4,"timestamp":"2026-01-01T00:03:00Z"}
		]}`, 3},
		{"results and openedBy without log", `{
			"boxes":[{"id":1,"reward":5000,"openedBy":"Ánh"}],
			"memberResults":{"Ánh":5000,"Đức":"lots"}
		}`, 0},
		{"prior schema version", `{"version":1,"createdAt":"2025-12-31T17:00:00+07:00",
			"boxes":[{"id":1,"reward":5000,"opened":true}],
			"results":{"Ánh":5000},
			"drawLogs":[{"member":"Thành","reward":5000,"boxId":1,"timestamp":"2025-12-31T17:05:00+07:00"}]}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRules()
			s := r.Normalize([]byte(tt.raw))
			assertValid(t, r, s)
			if len(s.DrawLogs) != tt.wantLogs {
				t.Errorf("draw logs = %d, want %d", len(s.DrawLogs), tt.wantLogs)
			}
		})
	}
}

func TestNormalizeKeepsFirstOccurrence(t *testing.T) {
	r := testRules()
	s := r.Normalize([]byte(`{"drawLogs":[
		{"member":"Ánh","reward":20000,"boxId":3,"timestamp":"2026-01-01T00:00:00Z"},
		{"member":"Ánh","reward":10000,"boxId":4,"timestamp":"2026-01-01T00:01:00Z"}
	]}`))

	if got, _ := s.Result("Ánh"); got != 20000 {
		t.Errorf("result = %d, want 20000", got)
	}
	if b, _ := s.Box(3); b.OpenedBy == nil || *b.OpenedBy != "Ánh" {
		t.Errorf("box 3 should be opened by Ánh, got %+v", b)
	}
	if b, _ := s.Box(4); b.OpenedBy != nil {
		t.Errorf("box 4 should be closed, got %+v", b)
	}
}

func TestNormalizePriorSchemaTimestamps(t *testing.T) {
	r := testRules()
	s := r.Normalize([]byte(`{"createdAt":"2025-12-31T17:00:00+07:00"}`))

	want := time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC)
	if !s.CreatedAt.Equal(want) || s.CreatedAt.Location() != time.UTC {
		t.Errorf("createdAt = %v, want %v in UTC", s.CreatedAt, want)
	}
}

func TestNormalizeWeightedKeepsPreassignedRewards(t *testing.T) {
	r := weightedRules()
	s := r.Normalize([]byte(`{"boxes":[{"id":1,"reward":20000},{"id":2,"reward":-5},{"id":1,"reward":5000}]}`))
	assertValid(t, r, s)

	if b, _ := s.Box(1); b.Reward == nil || *b.Reward != 20000 {
		t.Errorf("box 1 reward = %v, want 20000", b.Reward)
	}
	if b, _ := s.Box(2); b.Reward != nil {
		t.Errorf("box 2 reward = %v, want nil", *b.Reward)
	}
	if b, _ := s.Box(3); b.Reward != nil {
		t.Errorf("missing box 3 reward = %v, want nil", *b.Reward)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	now := time.Date(2026, 2, 1, 8, 30, 0, 123456789, time.UTC)
	r := testRules()
	played, _, err := r.Draw(r.Initial(now), "Đức", 5, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	playedJSON, _ := json.Marshal(played)

	wr := weightedRules()
	initialWeighted, _ := json.Marshal(wr.Initial(now))

	inputs := []struct {
		rules Rules
		raw   string
	}{
		{r, `null`},
		{r, `{}`},
		{r, `{"boxes":[{"id":3,"openedBy":"Ánh"}],"drawLogs":[{"member":"Ánh","reward":1,"boxId":3,"timestamp":"2026-01-01T00:00:00.5+01:00"}]}`},
		{r, string(playedJSON)},
		{wr, string(initialWeighted)},
		{wr, `{"boxes":[{"id":2,"reward":10000}],"drawLogs":[{"member":"Thành","reward":777,"boxId":2,"timestamp":"2026-01-01T00:00:00Z"}]}`},
	}

	for i, in := range inputs {
		once := in.rules.Normalize([]byte(in.raw))
		onceJSON, err := json.Marshal(once)
		if err != nil {
			t.Fatalf("input %d: marshal: %v", i, err)
		}
		twiceJSON, _ := json.Marshal(in.rules.Normalize(onceJSON))
		if !bytes.Equal(onceJSON, twiceJSON) {
			t.Errorf("input %d: normalize not idempotent:\n once: %s\ntwice: %s", i, onceJSON, twiceJSON)
		}

		again, _ := json.Marshal(in.rules.Normalize([]byte(in.raw)))
		if !bytes.Equal(onceJSON, again) {
			t.Errorf("input %d: normalize not deterministic", i)
		}

		canonical, _ := json.Marshal(in.rules.Canonical(once))
		if !bytes.Equal(onceJSON, canonical) {
			t.Errorf("input %d: canonical changed a normalized state", i)
		}
	}
}

func TestNormalizeRoundTripsPlayedState(t *testing.T) {
	now := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	r := testRules()
	s, _, err := r.Draw(r.Initial(now), "Ánh", 9, now)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	raw, _ := json.Marshal(s)

	got := r.Normalize(raw)
	if got.DrawCount() != 1 {
		t.Fatalf("draw count = %d, want 1", got.DrawCount())
	}
	if v, ok := got.Result("Ánh"); !ok || v != 20000 {
		t.Errorf("result = %d/%v, want 20000", v, ok)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, now)
	}
}
