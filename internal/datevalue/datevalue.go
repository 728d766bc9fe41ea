// Package datevalue models the loose "Month Year" dates used in CV records.
//
// A date either parses into a structured (year, month) pair or degrades to an
// opaque string such as "Present" that is passed through verbatim. Parsing
// never fails.
package datevalue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// monthNames is indexed by month number. Index 0 is reserved and never matches.
var monthNames = [13]string{
	"",
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Value is either Structured (year, month) or Opaque (raw text).
type Value struct {
	year  int
	month time.Month
	raw   string
}

// Structured builds a structured value. Months outside 1-12 yield an opaque value.
func Structured(year int, month time.Month) Value {
	if month < time.January || month > time.December {
		return Opaque(fmt.Sprintf("%d-%d", year, month))
	}
	return Value{year: year, month: month}
}

// Opaque wraps text that is not a recognizable date.
func Opaque(raw string) Value {
	return Value{raw: raw}
}

// Parse converts "<MonthName> <Year>" into a structured value. The month name
// matches case-insensitively; anything else stays opaque.
func Parse(text string) Value {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return Opaque(text)
	}
	month := lookupMonth(parts[0])
	if month == 0 {
		return Opaque(text)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Opaque(text)
	}
	return Value{year: year, month: month}
}

// FromAny converts a decoded YAML/TOML/JSON scalar into a Value.
func FromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Opaque("")
	case Value:
		return v
	case string:
		return Parse(v)
	case time.Time:
		return Structured(v.Year(), v.Month())
	default:
		return Opaque(fmt.Sprint(v))
	}
}

func lookupMonth(token string) time.Month {
	title := cases.Title(language.English).String(token)
	for i := 1; i < len(monthNames); i++ {
		if monthNames[i] == title {
			return time.Month(i)
		}
	}
	return 0
}

// IsStructured reports whether v carries a (year, month) pair.
func (v Value) IsStructured() bool { return v.month != 0 }

// Year returns the year of a structured value, 0 otherwise.
func (v Value) Year() int { return v.year }

// Month returns the month of a structured value, 0 otherwise.
func (v Value) Month() time.Month { return v.month }

// Raw returns the original text of an opaque value.
func (v Value) Raw() string { return v.raw }

// IsZero reports whether v is an empty opaque value.
func (v Value) IsZero() bool { return !v.IsStructured() && v.raw == "" }

// String renders the long form.
func (v Value) String() string { return FormatLong(v) }

// FormatLong renders "September 2018"; opaque values are returned unchanged.
func FormatLong(v Value) string {
	if !v.IsStructured() {
		return v.raw
	}
	return fmt.Sprintf("%s %d", monthNames[v.month], v.year)
}

// FormatShort renders "Sep 2018"; opaque values are returned unchanged.
func FormatShort(v Value) string {
	if !v.IsStructured() {
		return v.raw
	}
	return fmt.Sprintf("%s %d", monthNames[v.month][:3], v.year)
}

// Compare orders values chronologically. Structured values compare by
// (year, month). Opaque values ("Present", "ongoing") are greater than every
// structured value and equal to each other.
func Compare(a, b Value) int {
	switch {
	case !a.IsStructured() && !b.IsStructured():
		return 0
	case !a.IsStructured():
		return 1
	case !b.IsStructured():
		return -1
	}
	if a.year != b.year {
		if a.year < b.year {
			return -1
		}
		return 1
	}
	switch {
	case a.month < b.month:
		return -1
	case a.month > b.month:
		return 1
	default:
		return 0
	}
}
