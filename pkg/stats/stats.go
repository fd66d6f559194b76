// Package stats computes robust descriptive summaries over price series.
package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

const fenceMultiplier = 1.5

// Summary is a robust descriptive summary of a numeric series. When Count is
// zero every other field is NaN; the JSON encoding renders those sentinels as
// null.
type Summary struct {
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Median     float64 `json:"median"`
	P25        float64 `json:"p25"`
	P75        float64 `json:"p75"`
	AvgTrimmed float64 `json:"avg_trimmed"`
}

// Empty returns the all-sentinel summary for an empty series.
func Empty() Summary {
	nan := math.NaN()
	return Summary{
		Count:      0,
		Min:        nan,
		Max:        nan,
		Avg:        nan,
		Median:     nan,
		P25:        nan,
		P75:        nan,
		AvgTrimmed: nan,
	}
}

// Summarize computes a Summary over the given prices. Non-finite values are
// filtered out before anything else, so Count always equals the number of
// finite inputs. Pure and deterministic: the same series always yields the
// same summary.
func Summarize(prices []float64) Summary {
	finite := make([]float64, 0, len(prices))
	for _, p := range prices {
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			finite = append(finite, p)
		}
	}
	if len(finite) == 0 {
		return Empty()
	}

	sort.Float64s(finite)

	s := Summary{
		Count: len(finite),
		Min:   finite[0],
		Max:   finite[len(finite)-1],
		Avg:   mean(finite),
	}
	s.P25 = quantile(finite, 0.25)
	s.Median = quantile(finite, 0.5)
	s.P75 = quantile(finite, 0.75)

	// Tukey fences over the interquartile range.
	iqr := s.P75 - s.P25
	lo := s.P25 - fenceMultiplier*iqr
	hi := s.P75 + fenceMultiplier*iqr

	trimmed := make([]float64, 0, len(finite))
	for _, p := range finite {
		if p >= lo && p <= hi {
			trimmed = append(trimmed, p)
		}
	}
	if len(trimmed) == 0 {
		s.AvgTrimmed = s.Avg
	} else {
		s.AvgTrimmed = mean(trimmed)
	}

	return s
}

// quantile returns the midpoint of the two order statistics bounding
// (n-1)*p on an ascending-sorted series. This is a fixed, reproducible
// definition, not nearest-rank.
func quantile(sorted []float64, p float64) float64 {
	pos := float64(len(sorted)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return (sorted[lo] + sorted[hi]) / 2
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// MarshalJSON encodes the summary with NaN sentinels as JSON null, since
// encoding/json refuses bare NaN.
func (s Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"count":`)
	buf.WriteString(strconv.Itoa(s.Count))
	fields := []struct {
		name  string
		value float64
	}{
		{"min", s.Min},
		{"max", s.Max},
		{"avg", s.Avg},
		{"median", s.Median},
		{"p25", s.P25},
		{"p75", s.P75},
		{"avg_trimmed", s.AvgTrimmed},
	}
	for _, f := range fields {
		buf.WriteString(`,"`)
		buf.WriteString(f.name)
		buf.WriteString(`":`)
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			buf.WriteString("null")
		} else {
			b, err := json.Marshal(f.value)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a summary, mapping null fields back to NaN.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw struct {
		Count      int      `json:"count"`
		Min        *float64 `json:"min"`
		Max        *float64 `json:"max"`
		Avg        *float64 `json:"avg"`
		Median     *float64 `json:"median"`
		P25        *float64 `json:"p25"`
		P75        *float64 `json:"p75"`
		AvgTrimmed *float64 `json:"avg_trimmed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	deref := func(p *float64) float64 {
		if p == nil {
			return math.NaN()
		}
		return *p
	}
	s.Count = raw.Count
	s.Min = deref(raw.Min)
	s.Max = deref(raw.Max)
	s.Avg = deref(raw.Avg)
	s.Median = deref(raw.Median)
	s.P25 = deref(raw.P25)
	s.P75 = deref(raw.P75)
	s.AvgTrimmed = deref(raw.AvgTrimmed)
	return nil
}
