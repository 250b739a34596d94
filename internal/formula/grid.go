package formula

import (
	"strconv"
	"strings"
)

// Grid holds the raw cell contents of one view. Cells whose text starts
// with '=' are formulas and are evaluated on demand; everything else is a
// literal.
type Grid struct {
	cells map[CellRef]string
	rows  int
	cols  int
}

// NewGrid builds a grid from row-major raw cell text.
func NewGrid(rows [][]string) *Grid {
	g := &Grid{cells: make(map[CellRef]string)}
	for r, row := range rows {
		for c, raw := range row {
			g.Set(CellRef{Col: c, Row: r}, raw)
		}
	}
	return g
}

// Set stores raw text at ref, growing the grid bounds.
func (g *Grid) Set(ref CellRef, raw string) {
	if raw == "" {
		delete(g.cells, ref)
	} else {
		g.cells[ref] = raw
	}
	if ref.Row+1 > g.rows {
		g.rows = ref.Row + 1
	}
	if ref.Col+1 > g.cols {
		g.cols = ref.Col + 1
	}
}

// Raw returns the unevaluated text at ref.
func (g *Grid) Raw(ref CellRef) string {
	return g.cells[ref]
}

// Rows and Cols report the grid bounds.
func (g *Grid) Rows() int { return g.rows }

func (g *Grid) Cols() int { return g.cols }

// Cell evaluates the cell at ref: literals are typed directly, formulas run
// through the evaluator with circular-reference detection.
func (g *Grid) Cell(ref CellRef) CellValue {
	ev := &evaluator{grid: g, visiting: make(map[CellRef]bool)}
	return ev.cell(ref)
}

// Evaluate runs one formula string against the grid. The leading '=' is
// optional.
func (g *Grid) Evaluate(expr string) CellValue {
	ev := &evaluator{grid: g, visiting: make(map[CellRef]bool)}
	return ev.formula(expr)
}

// Literal types a non-formula cell: blank is empty, numeric text is a
// number, anything else is text.
func Literal(raw string) CellValue {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Empty()
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return NumberVal(n)
	}
	return TextVal(raw)
}
