// Package extract pulls structured records out of free-text generation output.
//
// Extraction is two-phase: a strict parse of the JSON slice found in the text, then a
// per-field default table. Nothing here returns an error for malformed input; callers get
// a best-effort value and, where useful, a Note describing what was substituted.
package extract

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Note records which fields fell back to defaults and why.
type Note struct {
	Defaulted []string
	Reason    string
}

func (n Note) Empty() bool { return len(n.Defaulted) == 0 && n.Reason == "" }

// Slice returns the text between the first open and the last close delimiter, inclusive.
func Slice(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, close)
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

// Object returns the first {...} slice of text if it is valid JSON.
func Object(text string) (string, bool) {
	raw, ok := Slice(text, '{', '}')
	if !ok || !gjson.Valid(raw) {
		return "", false
	}
	return raw, true
}

// Array returns the first [...] slice of text if it is valid JSON.
func Array(text string) (string, bool) {
	raw, ok := Slice(text, '[', ']')
	if !ok || !gjson.Valid(raw) {
		return "", false
	}
	return raw, true
}

// DecodeArray slices the JSON array out of text and decodes it into dst.
// It reports false when no decodable array is present.
func DecodeArray(text string, dst any) bool {
	raw, ok := Array(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// StringField reads key from a JSON object, returning def when it is absent or not a string.
func StringField(raw, key, def string) string {
	r := gjson.Get(raw, key)
	if r.Type != gjson.String {
		return def
	}
	return r.Str
}

var firstInt = regexp.MustCompile(`\d+`)

// IntFrom extracts an integer from a JSON value: numbers are truncated, strings yield their
// first embedded integer.
func IntFrom(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		switch {
		case r.Num > math.MaxInt32:
			return math.MaxInt32, true
		case r.Num < math.MinInt32:
			return math.MinInt32, true
		}
		return int(r.Num), true
	case gjson.String:
		m := firstInt.FindString(r.Str)
		if m == "" {
			return 0, false
		}
		return digits(m)
	}
	return 0, false
}

// digits parses an unsigned run of digits, saturating at MaxInt32 when it overflows.
func digits(m string) (int, bool) {
	v, err := strconv.Atoi(m)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt32, true
	}
	if err != nil {
		return 0, false
	}
	return v, true
}
