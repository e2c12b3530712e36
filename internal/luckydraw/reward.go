package luckydraw

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Tier is one row of a weighted reward table.
type Tier struct {
	Value  int64   `json:"value"`
	Weight float64 `json:"weight"`
}

// Table is a weighted reward table. P(Value_i) = Weight_i / sum(Weight).
type Table []Tier

// Pick draws u in [0, total) from random (uniform in [0, 1)) and returns the first
// tier whose cumulative weight reaches u. Rounding overshoot falls back to the
// lowest value, so Pick always returns a value for a non-empty table.
func (t Table) Pick(random func() float64) int64 {
	if len(t) == 0 {
		return 0
	}
	var total float64
	for _, tier := range t {
		total += tier.Weight
	}

	u := random() * total
	var cumulative float64
	for _, tier := range t {
		cumulative += tier.Weight
		if u <= cumulative {
			return tier.Value
		}
	}
	return t.lowest()
}

func (t Table) lowest() int64 {
	low := t[0].Value
	for _, tier := range t[1:] {
		if tier.Value < low {
			low = tier.Value
		}
	}
	return low
}

// Validate rejects empty tables, non-positive values and non-positive weights.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("reward table is empty")
	}
	for _, tier := range t {
		if tier.Value <= 0 {
			return fmt.Errorf("reward value %d must be positive", tier.Value)
		}
		if !(tier.Weight > 0) {
			return fmt.Errorf("weight for reward %d must be positive", tier.Value)
		}
	}
	return nil
}

// UnmarshalText parses "value:weight,value:weight".
func (t *Table) UnmarshalText(text []byte) error {
	var out Table
	for _, part := range strings.Split(string(text), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, weight, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("reward tier %q: want value:weight", part)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("reward tier %q: %w", part, err)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
		if err != nil {
			return fmt.Errorf("reward tier %q: %w", part, err)
		}
		out = append(out, Tier{Value: v, Weight: w})
	}
	*t = out
	return nil
}

// CryptoFloat64 returns a uniform float64 in [0, 1) read from crypto/rand.
// It panics if the random source fails.
func CryptoFloat64() float64 {
	return floatFrom(rand.Reader)
}

func floatFrom(r io.Reader) float64 {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		panic(fmt.Sprintf("luckydraw: reading random source: %v", err))
	}
	return float64(binary.LittleEndian.Uint64(b[:])>>11) / (1 << 53)
}
