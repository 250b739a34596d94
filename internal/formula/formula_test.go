package formula

import (
	"math"
	"testing"
	"time"
)

func evalOn(t *testing.T, g *Grid, expr string) CellValue {
	t.Helper()
	return g.Evaluate(expr)
}

func wantNumber(t *testing.T, v CellValue, n float64) {
	t.Helper()
	if v.Kind != KindNumber {
		t.Fatalf("value = %+v, want number %v", v, n)
	}
	if math.Abs(v.Number-n) > 1e-9 {
		t.Errorf("number = %v, want %v", v.Number, n)
	}
}

func wantText(t *testing.T, v CellValue, s string) {
	t.Helper()
	if v.Kind != KindText || v.Text != s {
		t.Errorf("value = %+v, want text %q", v, s)
	}
}

func wantError(t *testing.T, v CellValue, msg string) {
	t.Helper()
	if v.Kind != KindError {
		t.Fatalf("value = %+v, want error", v)
	}
	if msg != "" && v.Err != msg {
		t.Errorf("err = %q, want %q", v.Err, msg)
	}
}

func TestParseCellRef(t *testing.T) {
	cases := []struct {
		in       string
		col, row int
		ok       bool
	}{
		{"A1", 0, 0, true},
		{"B7", 1, 6, true},
		{"Z10", 25, 9, true},
		{"AA1", 26, 0, true},
		{"a2", 0, 1, true},
		{"1A", 0, 0, false},
		{"A0", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		ref, ok := ParseCellRef(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseCellRef(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && (ref.Col != tc.col || ref.Row != tc.row) {
			t.Errorf("ParseCellRef(%q) = %+v, want col=%d row=%d", tc.in, ref, tc.col, tc.row)
		}
	}
}

func TestArithmeticAndPrecedence(t *testing.T) {
	g := NewGrid(nil)
	wantNumber(t, evalOn(t, g, "=1+2*3"), 7)
	wantNumber(t, evalOn(t, g, "=(1+2)*3"), 9)
	wantNumber(t, evalOn(t, g, "=-4+10"), 6)
	wantNumber(t, evalOn(t, g, "=10/4"), 2.5)
	wantError(t, evalOn(t, g, "=1/0"), "division by zero")
}

func TestComparisons(t *testing.T) {
	g := NewGrid(nil)
	wantNumber(t, evalOn(t, g, "=2>1"), 1)
	wantNumber(t, evalOn(t, g, "=2<=1"), 0)
	wantNumber(t, evalOn(t, g, `="abc"="ABC"`), 1)
	wantNumber(t, evalOn(t, g, `=1<>2`), 1)
}

func TestCellReferences(t *testing.T) {
	g := NewGrid([][]string{
		{"10", "20"},
		{"5", "=A1+B1"},
	})
	wantNumber(t, g.Cell(CellRef{Col: 1, Row: 1}), 30)
	wantNumber(t, evalOn(t, g, "=A2*B2"), 150)
}

func TestRanges(t *testing.T) {
	g := NewGrid([][]string{
		{"1", "x"},
		{"2", "4"},
		{"3", ""},
	})
	wantNumber(t, evalOn(t, g, "=SUM(A1:A3)"), 6)
	wantNumber(t, evalOn(t, g, "=SUM(A:A)"), 6)
	wantNumber(t, evalOn(t, g, "=SUM(A1:B3)"), 10)
	wantNumber(t, evalOn(t, g, "=SUM(1:1)"), 1)
	wantNumber(t, evalOn(t, g, "=COUNT(A1:B3)"), 4)
	wantNumber(t, evalOn(t, g, "=COUNTA(A1:B3)"), 5)
	wantError(t, evalOn(t, g, "=A1:A3"), "")
}

func TestAggregates(t *testing.T) {
	g := NewGrid([][]string{{"4"}, {"1"}, {"7"}})
	wantNumber(t, evalOn(t, g, "=MIN(A:A)"), 1)
	wantNumber(t, evalOn(t, g, "=MAX(A:A)"), 7)
	wantNumber(t, evalOn(t, g, "=AVG(A:A)"), 4)
	wantNumber(t, evalOn(t, g, "=SUM(A:A, 8)"), 20)
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	g := NewGrid(nil)
	wantNumber(t, evalOn(t, g, "=ROUND(2.5)"), 3)
	wantNumber(t, evalOn(t, g, "=ROUND(-2.5)"), -3)
	wantNumber(t, evalOn(t, g, "=ROUND(3.14159, 2)"), 3.14)
	wantNumber(t, evalOn(t, g, "=ABS(-3)"), 3)
}

func TestIf(t *testing.T) {
	g := NewGrid([][]string{{"12"}})
	wantText(t, evalOn(t, g, `=IF(A1>10, "big", "small")`), "big")
	wantText(t, evalOn(t, g, `=IF(A1>100, "big", "small")`), "small")
	wantError(t, evalOn(t, g, `=IF(A1>10, "big")`), "IF takes 3 arguments")
}

func TestTextFunctions(t *testing.T) {
	g := NewGrid(nil)
	wantText(t, evalOn(t, g, `=CONCAT("foo", "bar", 3)`), "foobar3")
	wantText(t, evalOn(t, g, `=UPPER("abc")`), "ABC")
	wantText(t, evalOn(t, g, `=LOWER("ABC")`), "abc")
	wantText(t, evalOn(t, g, `=TRIM("  pad  ")`), "pad")
	wantNumber(t, evalOn(t, g, `=LEN("hello")`), 5)
	wantText(t, evalOn(t, g, `=LEFT("hello", 2)`), "he")
	wantText(t, evalOn(t, g, `=RIGHT("hello", 2)`), "lo")
	wantText(t, evalOn(t, g, `=MID("hello", 2, 3)`), "ell")
	wantText(t, evalOn(t, g, `=REPLACE("hello", 1, 4, "ci")`), "cio")
	wantText(t, evalOn(t, g, `=SUBSTITUTE("a-b-c", "-", "+")`), "a+b+c")
	wantText(t, evalOn(t, g, `=REPT("ab", 3)`), "ababab")
	wantText(t, evalOn(t, g, `=TEXT(3.14159, "0.00")`), "3.14")
	wantText(t, evalOn(t, g, `=TEXT(0.25, "0%")`), "25%")
	wantText(t, evalOn(t, g, `="a" & "b"`), "ab")
}

func TestDateFunctions(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	saved := now
	now = func() time.Time { return fixed }
	defer func() { now = saved }()

	g := NewGrid(nil)
	wantText(t, evalOn(t, g, "=TODAY()"), "2024-03-15")
	wantText(t, evalOn(t, g, "=NOW()"), "2024-03-15T10:30:00")
	wantNumber(t, evalOn(t, g, `=YEAR("2024-03-15")`), 2024)
	wantNumber(t, evalOn(t, g, `=MONTH("2024-03-15")`), 3)
	wantNumber(t, evalOn(t, g, `=DAY("2024-03-15")`), 15)
	wantNumber(t, evalOn(t, g, `=HOUR("2024-03-15T10:30")`), 10)
	wantNumber(t, evalOn(t, g, `=MINUTE("2024-03-15T10:30")`), 30)
	// 2024-03-15 is a Friday; ISO weekday numbering starts at Monday.
	wantNumber(t, evalOn(t, g, `=WEEKDAY("2024-03-15")`), 5)
	wantNumber(t, evalOn(t, g, `=WEEKNUM("2024-01-04")`), 1)
	wantNumber(t, evalOn(t, g, `=DATEDIF("2024-01-01", "2024-03-01", "D")`), 60)
	wantNumber(t, evalOn(t, g, `=DATEDIF("2024-01-01", "2024-03-01", "M")`), 2)
	wantNumber(t, evalOn(t, g, `=DATEDIF("2020-01-01", "2024-01-01", "Y")`), 4)
	wantNumber(t, evalOn(t, g, `=DATEDIF("2024-01-01T00:00", "2024-01-02T06:00", "H")`), 30)
	wantText(t, evalOn(t, g, `=DATEFORMAT("2024-03-15", "DD/MM/YYYY")`), "15/03/2024")
	wantText(t, evalOn(t, g, `=EOMONTH("2024-02-10", 0)`), "2024-02-29")
	wantText(t, evalOn(t, g, `=EOMONTH("2024-01-31", 1)`), "2024-02-29")
}

func TestCircularReference(t *testing.T) {
	g := NewGrid([][]string{
		{"=B1", "=A1"},
	})
	wantError(t, g.Cell(CellRef{Col: 0, Row: 0}), "circular")

	// Self-reference is the smallest cycle.
	g2 := NewGrid([][]string{{"=A1"}})
	wantError(t, g2.Cell(CellRef{Col: 0, Row: 0}), "circular")
}

func TestFormulaChains(t *testing.T) {
	g := NewGrid([][]string{
		{"2", "=A1*10", "=B1+1"},
	})
	wantNumber(t, g.Cell(CellRef{Col: 2, Row: 0}), 21)
}

func TestErrorsStayInValues(t *testing.T) {
	g := NewGrid([][]string{
		{"=NOSUCHFN(1)", "=A1+1"},
	})
	wantError(t, g.Cell(CellRef{Col: 0, Row: 0}), "unknown function NOSUCHFN")
	// The dependent cell surfaces the upstream error instead of a panic.
	wantError(t, g.Cell(CellRef{Col: 1, Row: 0}), "")
}

func TestCaseInsensitiveFunctionNames(t *testing.T) {
	g := NewGrid([][]string{{"1"}, {"2"}})
	wantNumber(t, evalOn(t, g, "=sum(a1:a2)"), 3)
	wantNumber(t, evalOn(t, g, "=Sum(A:A)"), 3)
}
