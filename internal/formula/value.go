// Package formula evaluates spreadsheet-style formulas over a cell grid.
package formula

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind enumerates cell value variants.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindText
	KindError
)

// CellValue is the result of evaluating a cell or a formula. Errors live in
// values and never abort a render.
type CellValue struct {
	Kind   ValueKind
	Number float64
	Text   string
	Err    string
}

func Empty() CellValue { return CellValue{Kind: KindEmpty} }

func NumberVal(n float64) CellValue { return CellValue{Kind: KindNumber, Number: n} }

func TextVal(s string) CellValue { return CellValue{Kind: KindText, Text: s} }

func ErrorVal(msg string) CellValue { return CellValue{Kind: KindError, Err: msg} }

// IsEmpty reports whether the value carries no content.
func (v CellValue) IsEmpty() bool {
	return v.Kind == KindEmpty || (v.Kind == KindText && v.Text == "")
}

// AsNumber coerces the value to a float where possible.
func (v CellValue) AsNumber() (float64, bool) {
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

// String renders the value for display.
func (v CellValue) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Number == math.Trunc(v.Number) && !math.IsInf(v.Number, 0) {
			return strconv.FormatFloat(v.Number, 'f', 0, 64)
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindError:
		return "#ERROR: " + v.Err
	default:
		return ""
	}
}

// truthy is the IF condition rule: non-zero numbers and non-empty text.
func (v CellValue) truthy() bool {
	switch v.Kind {
	case KindNumber:
		return v.Number != 0
	case KindText:
		return v.Text != ""
	default:
		return false
	}
}

// CellRef addresses one cell, zero-based column and row.
type CellRef struct {
	Col int
	Row int
}

var cellRefRe = regexp.MustCompile(`^([A-Za-z]+)([1-9]\d*)$`)

// ParseCellRef parses a reference like "A1" or "BC12".
func ParseCellRef(s string) (CellRef, bool) {
	m := cellRefRe.FindStringSubmatch(s)
	if m == nil {
		return CellRef{}, false
	}
	row, err := strconv.Atoi(m[2])
	if err != nil {
		return CellRef{}, false
	}
	return CellRef{Col: columnIndex(m[1]), Row: row - 1}, true
}

// columnIndex converts a column label to its zero-based index: A=0, Z=25,
// AA=26.
func columnIndex(label string) int {
	n := 0
	for _, c := range strings.ToUpper(label) {
		n = n*26 + int(c-'A'+1)
	}
	return n - 1
}

// columnLabel is the inverse of columnIndex.
func columnLabel(col int) string {
	var b []byte
	for col >= 0 {
		b = append([]byte{byte('A' + col%26)}, b...)
		col = col/26 - 1
	}
	return string(b)
}
