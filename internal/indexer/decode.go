package indexer

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/snapetech/panelm3u/internal/provider"
)

// flexString accepts a JSON string, number or null. Panels send ids and even names
// either way depending on version. Arrays, objects and booleans decode as empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*f = flexString(normalizeNumber(string(b)))
		return nil
	case '[', '{', 't', 'f':
		*f = ""
		return nil
	}
	return fmt.Errorf("expected string or number, got %q", b[:1])
}

func (f flexString) String() string { return string(f) }

// normalizeNumber turns integral floats ("501.0", "5.01e2") into their integer form.
func normalizeNumber(s string) string {
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return s
	}
	return strconv.FormatInt(int64(v), 10)
}

// id parses a positive integer id; ok is false for anything else.
func (f flexString) id() (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(f)), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// splitArray returns the elements of a top-level JSON array.
func splitArray(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("%w: expected array", provider.ErrMalformed)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}
	return items, nil
}

// splitArrayOrObject accepts either a top-level array or an object whose values are the
// items (keyed by id). Object values are returned in key order, numeric keys numerically.
func splitArrayOrObject(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sortKeys(keys)
		items := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			items = append(items, m[k])
		}
		return items, nil
	}
	return splitArray(body)
}

// sortKeys orders numeric-looking keys numerically before any others, which sort as strings.
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.ParseInt(keys[i], 10, 64)
		b, berr := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}
