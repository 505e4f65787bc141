package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// TimeLayout is the canonical serialization for timestamps (ISO-8601 UTC instant).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Value is a dynamically typed cell. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	t    time.Time
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Text(s string) Value { return Value{kind: KindText, s: s} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// Number wraps f; NaN and infinities collapse to Null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, n: f}
}

// FromAny converts a decoded scalar (JSON, YAML, spreadsheet cell) into a Value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String())
		}
		return Number(f)
	case time.Time:
		return Time(t)
	default:
		return Text(fmt.Sprint(v))
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMissing reports whether the cell counts as null-or-empty: Null, or text that is
// empty after trimming.
func (v Value) IsMissing() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.s) == ""
	}
	return false
}

func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) TextValue() (string, bool) { return v.s, v.kind == KindText }
func (v Value) TimeValue() (time.Time, bool) { return v.t, v.kind == KindTime }

// Float returns the numeric reading of v. Numbers pass through, text is parsed
// with strconv after trimming; everything else is not numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindText:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String renders the value the way it would appear in a text cell. Null renders
// as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindText:
		return v.s
	case KindTime:
		return v.t.Format(TimeLayout)
	}
	return ""
}

// Key is a kind-qualified representation; two values share a Key iff they are
// identical cells.
func (v Value) Key() string {
	if v.kind == KindNull {
		return "\x00"
	}
	return strconv.Itoa(int(v.kind)) + ":" + v.String()
}

// Equal reports cell identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindText:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(v.t.Format(TimeLayout))
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts null, booleans, numbers and strings. Strings stay text;
// the engine decides later whether they are dates.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Null()
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	switch raw.(type) {
	case map[string]any, []any:
		return fmt.Errorf("decode value: nested %s is not a scalar", string(b))
	}
	*v = FromAny(raw)
	return nil
}

// MarshalYAML lets strategy files round-trip custom values.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindNumber:
		return v.n, nil
	case KindText:
		return v.s, nil
	case KindTime:
		return v.t.Format(TimeLayout), nil
	}
	return nil, nil
}

// UnmarshalYAML implements yaml.v3's obsolete-style unmarshaler, which keeps this
// package free of a yaml import.
func (v *Value) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
