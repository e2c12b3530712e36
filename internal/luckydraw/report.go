package luckydraw

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// Stats are derived from a state on demand; nothing here is persisted.
type Stats struct {
	Members        int   `json:"members"`
	Played         int   `json:"played"`
	OpenedBoxes    int   `json:"openedBoxes"`
	RemainingBoxes int   `json:"remainingBoxes"`
	Draws          int   `json:"draws"`
	MaxDraws       int   `json:"maxDraws"`
	TotalPaid      int64 `json:"totalPaid"`
}

func (r Rules) Stats(s GameState) Stats {
	st := Stats{
		Members:  len(r.Members),
		Draws:    s.DrawCount(),
		MaxDraws: r.DrawCap(),
	}
	for _, m := range r.Members {
		if v, ok := s.Result(m.Name); ok {
			st.Played++
			st.TotalPaid += v
		}
	}
	for _, b := range s.Boxes {
		if b.OpenedBy != nil {
			st.OpenedBoxes++
		}
	}
	st.RemainingBoxes = len(s.Boxes) - st.OpenedBoxes
	return st
}

// ExportHeader is the first CSV record written by WriteCSV.
var ExportHeader = []string{"timestamp", "member", "box_id", "reward"}

// WriteCSV writes the draw log in chronological order (the order draws were
// committed), one record per draw, timestamps in RFC 3339 UTC.
func WriteCSV(w io.Writer, logs []DrawLogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, e := range logs {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Member,
			strconv.Itoa(e.BoxID),
			strconv.FormatInt(e.Reward, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Newest returns the log newest first, as the dashboard lists it.
func Newest(logs []DrawLogEntry) []DrawLogEntry {
	out := make([]DrawLogEntry, len(logs))
	for i, e := range logs {
		out[len(logs)-1-i] = e
	}
	return out
}
