// Package normalize repairs individual cells: mis-decoded text, whitespace,
// e-mail and name casing, locale-formatted numbers and loosely formatted dates.
// Every function is total: a value that cannot be repaired becomes Null.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Options controls numeric parsing.
type Options struct {
	// DecimalSeparator forces the decimal mark. If 0, it is detected per value.
	DecimalSeparator rune
	// ThousandsSeparator forces the grouping mark. If 0, common marks are stripped.
	ThousandsSeparator rune
}

// mojibake maps UTF-8 sequences that were decoded as Latin-1/Windows-1252 back to
// the intended character. Longer sequences come first: strings.Replacer compares
// in argument order.
var mojibake = strings.NewReplacer(
	"â€™", "'",
	"â€˜", "'",
	"â€œ", "\"",
	"â€\u009d", "\"",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	"â€¢", "•",
	"Ã©", "é",
	"Ã¨", "è",
	"Ãª", "ê",
	"Ã«", "ë",
	"Ã¡", "á",
	"Ã¢", "â",
	"Ã¤", "ä",
	"Ã£", "ã",
	"Ã§", "ç",
	"Ã­", "í",
	"Ã®", "î",
	"Ã¯", "ï",
	"Ã³", "ó",
	"Ã´", "ô",
	"Ã¶", "ö",
	"Ãµ", "õ",
	"Ãº", "ú",
	"Ã»", "û",
	"Ã¼", "ü",
	"Ã±", "ñ",
	"Ã‰", "É",
	"Ã\u00a0", "à",
	"Â\u00a0", " ",
	"Â°", "°",
	"â€", "\"",
)

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameLikeRe = regexp.MustCompile(`^[\p{L}][\p{L} '\-]*$`)
)

const maxNameTokens = 4

// FixEncoding replaces known mis-decoded sequences. Unmatched text passes through.
func FixEncoding(s string) string {
	return mojibake.Replace(s)
}

// CollapseSpace trims s and folds internal whitespace runs into one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Standardize applies the text rules for string columns: e-mail shaped values
// are lower-cased, short name-like values are title-cased.
func Standardize(s string) string {
	s = CollapseSpace(s)
	switch {
	case s == "":
		return s
	case emailRe.MatchString(s):
		return strings.ToLower(s)
	case nameLikeRe.MatchString(s) && len(strings.Fields(s)) <= maxNameTokens:
		// Casers are stateful; one per call.
		return cases.Title(language.Und).String(s)
	}
	return s
}

// Cell is the type-independent repair applied before inference: encoding fix-up
// and whitespace folding for text, with blank text becoming Null.
func Cell(v table.Value) table.Value {
	s, ok := v.TextValue()
	if !ok {
		return v
	}
	s = CollapseSpace(FixEncoding(s))
	if s == "" {
		return table.Null()
	}
	return table.Text(s)
}

// Row returns a repaired copy of r restricted to headers; absent keys become Null.
func Row(r table.Row, headers []string) table.Row {
	out := make(table.Row, len(headers))
	for _, h := range headers {
		out[h] = Cell(r.Get(h))
	}
	return out
}
