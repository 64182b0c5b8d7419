package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TrendEntry is one month of a trend series.
type TrendEntry struct {
	Month string
	Value float64
}

// TrendMap is a month-keyed series that keeps the key order of the JSON object it
// was decoded from. The analytics service emits months in ascending order and that
// order is trusted as-is; nothing here re-sorts keys.
//
// A nil TrendMap means the field was absent; a non-nil empty one means the service
// returned an empty object.
type TrendMap []TrendEntry

// Len returns the number of months in the series.
func (t TrendMap) Len() int {
	return len(t)
}

// Get returns the value recorded for month.
func (t TrendMap) Get(month string) (float64, bool) {
	for _, e := range t {
		if e.Month == month {
			return e.Value, true
		}
	}
	return 0, false
}

// UnmarshalJSON decodes a JSON object while preserving key order. A repeated key
// keeps its first position and takes the last value.
func (t *TrendMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading trend: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("trend must be a JSON object, got %v", tok)
	}

	entries := TrendMap{}
	index := make(map[string]int)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading trend key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("trend key must be a string, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading trend value for month %s: %w", key, err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("trend value for month %s must be a number, got %v", key, valTok)
		}
		value, err := num.Float64()
		if err != nil {
			return fmt.Errorf("parsing trend value for month %s: %w", key, err)
		}

		if i, seen := index[key]; seen {
			entries[i].Value = value
			continue
		}
		index[key] = len(entries)
		entries = append(entries, TrendEntry{Month: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading trend: %w", err)
	}

	*t = entries
	return nil
}

// MarshalJSON encodes the series as a JSON object in its own key order.
func (t TrendMap) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Month)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToChartPoints converts a trend into chart points, one per month in the trend's
// own order. Labels are "Month <key>"; values pass through unchanged.
// An absent or empty trend yields an empty, non-nil slice.
func ToChartPoints(trend TrendMap) []ChartPoint {
	points := make([]ChartPoint, 0, len(trend))
	for _, e := range trend {
		points = append(points, ChartPoint{
			Month: "Month " + e.Month,
			Value: e.Value,
		})
	}
	return points
}
