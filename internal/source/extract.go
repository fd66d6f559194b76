package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Provider responses vary in field naming and nesting, so every field is
// extracted by probing an ordered list of candidate paths: the first path
// that yields a usable value wins, and absence degrades to the zero value
// rather than failing the record.

// firstArray returns the first candidate path that resolves to a JSON array,
// or a non-existent result when none match.
func firstArray(body []byte, paths []string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.IsArray() {
			return r
		}
	}
	return gjson.Result{}
}

// firstString returns the first candidate path with a non-empty string value.
func firstString(rec gjson.Result, paths []string) string {
	for _, p := range paths {
		if r := rec.Get(p); r.Exists() {
			if s := strings.TrimSpace(r.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstFinite probes the candidate paths in order and returns the first value
// that parses to a finite float, along with the index of the matching path.
// Numbers are taken directly; strings go through ParseFloat. A record with no
// parseable candidate reports ok == false and must be dropped by the caller.
func firstFinite(rec gjson.Result, paths []string) (val float64, idx int, ok bool) {
	for i, p := range paths {
		r := rec.Get(p)
		if !r.Exists() {
			continue
		}

		var v float64
		switch r.Type {
		case gjson.Number:
			v = r.Num
		case gjson.String:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
			if err != nil {
				continue
			}
			v = parsed
		default:
			continue
		}

		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		return v, i, true
	}
	return 0, -1, false
}
