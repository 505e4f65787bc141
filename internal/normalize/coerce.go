package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

var (
	plainNumberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	groupedRe     = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)
	currency      = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "")
)

// ParseNumber reads a locale-formatted numeric string. Currency symbols and
// thousands separators are stripped; a trailing % divides by 100.
func ParseNumber(s string, opt Options) (float64, bool) {
	raw := currency.Replace(strings.TrimSpace(s))
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	pct := false
	if strings.HasSuffix(raw, "%") {
		pct = true
		raw = strings.TrimSuffix(raw, "%")
	}
	if raw == "" {
		return 0, false
	}
	dec, thou := opt.DecimalSeparator, opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0 && !groupedRe.MatchString(raw):
			// "1,5" has no valid grouping, so the comma is the decimal mark.
			dec = ','
		default:
			dec, thou = '.', ','
		}
	}
	if thou == 0 {
		thou = ','
	}
	if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	if !plainNumberRe.MatchString(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if pct {
		f /= 100
	}
	return f, true
}

// nativeLayouts are tried first; they cover ISO-8601, RFC and long-form dates.
var nativeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
}

// alternateLayouts are MM/DD/YYYY, MM-DD-YYYY and YYYY-MM-DD, in that order.
var alternateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"2006-01-02",
}

// ParseDate parses s as a calendar date or instant. time.Parse rejects
// out-of-range days, so "02/30/2024" fails instead of rolling over.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range nativeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, l := range alternateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsBoolLiteral reports whether v is a boolean or one of "true", "false", "1", "0".
func IsBoolLiteral(v table.Value) bool {
	if _, ok := v.BoolValue(); ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v.String())) {
	case "true", "false", "1", "0":
		return true
	}
	return false
}

// NumberOf reads v as a number using ParseNumber for text.
func NumberOf(v table.Value, opt Options) (float64, bool) {
	switch v.Kind() {
	case table.KindNumber:
		return v.Float()
	case table.KindText:
		s, _ := v.TextValue()
		return ParseNumber(s, opt)
	}
	return 0, false
}

// DateOf reads v as a timestamp. Numbers are not treated as epoch offsets.
func DateOf(v table.Value) (time.Time, bool) {
	switch v.Kind() {
	case table.KindTime:
		return v.TimeValue()
	case table.KindText:
		s, _ := v.TextValue()
		return ParseDate(s)
	}
	return time.Time{}, false
}

// ToNumber coerces v to a Number, or Null when it does not parse.
func ToNumber(v table.Value, opt Options) table.Value {
	if f, ok := NumberOf(v, opt); ok {
		return table.Number(f)
	}
	return table.Null()
}

// ToDate coerces v to a Time, or Null when it does not parse.
func ToDate(v table.Value) table.Value {
	if t, ok := DateOf(v); ok {
		return table.Time(t)
	}
	return table.Null()
}

// ToBool maps true, "true", "1" and 1 to true and every other present value to
// false. Missing values stay Null.
func ToBool(v table.Value) table.Value {
	if v.IsMissing() {
		return table.Null()
	}
	if b, ok := v.BoolValue(); ok {
		return table.Bool(b)
	}
	switch strings.ToLower(strings.TrimSpace(v.String())) {
	case "true", "1":
		return table.Bool(true)
	}
	return table.Bool(false)
}

// ToText renders v as standardized text; blank results become Null.
func ToText(v table.Value) table.Value {
	if v.IsMissing() {
		return table.Null()
	}
	s := Standardize(v.String())
	if s == "" {
		return table.Null()
	}
	return table.Text(s)
}
