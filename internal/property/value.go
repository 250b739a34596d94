// Package property implements the typed value model and the inline
// [key::value] mini-language found in note bodies.
package property

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind enumerates the value variants a property can carry.
type Kind string

const (
	KindNull     Kind = "null"
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindCheckbox Kind = "checkbox"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindList     Kind = "list"
	KindTags     Kind = "tags"
	KindLinks    Kind = "links"
	KindLink     Kind = "link"
)

// Value is a tagged variant. Exactly the fields relevant to Kind are set:
// Text for text/date/datetime/link targets, Number for numbers, Bool for
// checkboxes, Items for list/tags/links.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
	Items  []string
}

func Null() Value                { return Value{Kind: KindNull} }
func Text(s string) Value        { return Value{Kind: KindText, Text: s} }
func Number(n float64) Value     { return Value{Kind: KindNumber, Number: n} }
func Checkbox(b bool) Value      { return Value{Kind: KindCheckbox, Bool: b} }
func Date(s string) Value        { return Value{Kind: KindDate, Text: s} }
func DateTime(s string) Value    { return Value{Kind: KindDateTime, Text: s} }
func List(items []string) Value  { return Value{Kind: KindList, Items: items} }
func Tags(items []string) Value  { return Value{Kind: KindTags, Items: items} }
func Links(items []string) Value { return Value{Kind: KindLinks, Items: items} }
func Link(target string) Value   { return Value{Kind: KindLink, Text: target} }

var (
	numberRe   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2})?$`)
	linkRe     = regexp.MustCompile(`^\[\[([^\[\]|]+)(?:\|[^\[\]]*)?\]\]$`)
)

// Infer types a raw inline value. Order: empty, checkbox, number, date,
// datetime, wikilink, comma list (links when every part is a wikilink),
// plain text.
func Infer(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Null()
	}
	switch strings.ToLower(raw) {
	case "true":
		return Checkbox(true)
	case "false":
		return Checkbox(false)
	}
	if numberRe.MatchString(raw) {
		n, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			return Number(n)
		}
	}
	if dateRe.MatchString(raw) {
		return Date(raw)
	}
	if dateTimeRe.MatchString(raw) {
		return DateTime(raw)
	}
	if m := linkRe.FindStringSubmatch(raw); m != nil {
		return Link(strings.TrimSpace(m[1]))
	}
	if strings.Contains(raw, ",") {
		parts := splitTrim(raw)
		allLinks := len(parts) > 0
		for _, p := range parts {
			if !linkRe.MatchString(p) {
				allLinks = false
				break
			}
		}
		if allLinks {
			targets := make([]string, len(parts))
			for i, p := range parts {
				targets[i] = strings.TrimSpace(linkRe.FindStringSubmatch(p)[1])
			}
			return Links(targets)
		}
		return List(parts)
	}
	return Text(raw)
}

func splitTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsEmpty reports whether the value carries no content.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindText, KindDate, KindDateTime, KindLink:
		return v.Text == ""
	case KindList, KindTags, KindLinks:
		return len(v.Items) == 0
	default:
		return false
	}
}

// String renders the value for display. Whole numbers drop the fraction,
// other numbers keep two decimals.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindNumber:
		return formatNumber(v.Number)
	case KindCheckbox:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindList, KindTags, KindLinks:
		return strings.Join(v.Items, ", ")
	default:
		return v.Text
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'f', 2, 64)
}

// SortKey projects the value onto a string whose lexicographic order is a
// total order across values of the same kind: numbers are offset and
// zero-padded, booleans sort false before true, everything else compares
// as lowercased text. List kinds sort by their first element.
func (v Value) SortKey() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindNumber:
		return fmt.Sprintf("%020.6f", v.Number+1e15)
	case KindCheckbox:
		if v.Bool {
			return "1"
		}
		return "0"
	case KindList, KindTags, KindLinks:
		if len(v.Items) == 0 {
			return ""
		}
		return strings.ToLower(v.Items[0])
	default:
		return strings.ToLower(v.Text)
	}
}

// AsNumber coerces the value to a float where meaningful.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
