package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexNumber decodes a number the feed may send as a JSON number, a numeric
// string, a {"raw": n} object or null. Anything else decodes as not valid
// instead of failing the whole document.
type flexNumber struct {
	Value float64
	Valid bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	*n = flexNumber{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		n.set(parseFieldValue(s))
	case '{':
		var obj struct {
			Raw flexNumber `json:"raw"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		*n = obj.Raw
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		n.set(f, true)
	}
	return nil
}

func (n *flexNumber) set(f float64, ok bool) {
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	n.Value = f
	n.Valid = true
}

// Ptr returns nil when the value was absent
func (n flexNumber) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// parseFieldValue parses numeric strings such as "1,234.5" or "12.5%"
func parseFieldValue(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "%")
	if cleaned == "" || cleaned == "N/A" || cleaned == "--" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	return f, err == nil
}

// flexBool decodes true/false or their string forms; anything else is false
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, err := strconv.ParseBool(s)
	*b = flexBool(err == nil && v)
	return nil
}

// flexString decodes a string. Numbers keep their literal text; anything
// else decodes as empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch {
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = flexString(v)
		}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*s = flexString(data)
	}
	return nil
}

// flexList decodes a JSON array element by element. Null elements and
// elements that do not decode are dropped and a value that is not an array decodes as empty.
type flexList[T any] []T

func (l *flexList[T]) UnmarshalJSON(data []byte) error {
	*l = nil

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	out := make(flexList[T], 0, len(raw))
	for _, elem := range raw {
		if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
			continue
		}
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// rawObject returns data as a generic object, or nil when it is not one
func rawObject(data json.RawMessage) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	return obj
}
