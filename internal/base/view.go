package base

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/laguz/internal/formula"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/query"
)

// ViewResult is one rendered view: the effective columns, the backing rows,
// and the evaluated cell grid. Special rows are interleaved at their
// configured positions, bottom by default.
type ViewResult struct {
	Columns []ColumnConfig
	Notes   []query.NoteWithProperties
	Records []models.GroupedRecord

	Cells [][]formula.CellValue
	// SpecialRowStart is the number of data rows. When no special row
	// carries a position it is also the index of the first special row.
	SpecialRowStart int
	// SpecialRowIndex holds the row index in Cells of each special row,
	// in config order.
	SpecialRowIndex []int
}

// RunView materializes a view through the query engine. Note-backed views
// apply the view's filters and sort; record-backed views read the coalesced
// record model directly.
func RunView(eng *query.Engine, b *Base, viewID string) (*ViewResult, error) {
	v, err := b.View(viewID)
	if err != nil {
		return nil, err
	}

	res := &ViewResult{Columns: v.Columns}
	var raw [][]string

	switch b.SourceType {
	case SourceNotes:
		notes, err := eng.Notes(b.SourceFolder, v.Filters, v.Sort)
		if err != nil {
			return nil, err
		}
		res.Notes = notes
		if len(res.Columns) == 0 {
			res.Columns = []ColumnConfig{{Property: "name"}, {Property: "folder"}, {Property: "tags"}}
		}
		for i := range notes {
			row := make([]string, len(res.Columns))
			for c, col := range res.Columns {
				row[c] = notes[i].Get(col.Property).String()
			}
			raw = append(raw, row)
		}

	case SourceGroupedRecords:
		recs, err := eng.GroupedRecords(b.SourceFolder)
		if err != nil {
			return nil, err
		}
		res.Records = recs
		if len(res.Columns) == 0 {
			res.Columns = recordColumns(recs)
		}
		raw = recordRows(recs, res.Columns)

	case SourcePropertyRecords:
		recs, cols, err := eng.PropertyRecords(b.FilterProperty, b.SourceFolder)
		if err != nil {
			return nil, err
		}
		res.Records = recs
		if len(res.Columns) == 0 {
			res.Columns = append(res.Columns, ColumnConfig{Property: b.FilterProperty})
			for _, c := range cols {
				res.Columns = append(res.Columns, ColumnConfig{Property: c})
			}
		}
		raw = recordRows(recs, res.Columns)

	default:
		return nil, fmt.Errorf("base: unknown source type %q", b.SourceType)
	}

	// Special rows evaluate against the data rows only, so a total row's
	// =SUM(A:A) does not include itself wherever the row is placed.
	res.SpecialRowStart = len(raw)
	grid := formula.NewGrid(raw)

	evalSpecial := func(sr SpecialRow) []formula.CellValue {
		row := make([]formula.CellValue, len(res.Columns))
		for c, col := range res.Columns {
			cell, ok := sr.Cells[col.Property]
			switch {
			case !ok:
				row[c] = formula.Empty()
			case strings.HasPrefix(cell, "="):
				row[c] = grid.Evaluate(cell)
			default:
				row[c] = formula.Literal(cell)
			}
		}
		return row
	}

	// Bucket special rows by insertion point: a row with position p goes
	// before data row p, nil appends, out-of-range clamps.
	inserts := make(map[int][]int)
	for i, sr := range v.SpecialRows {
		p := len(raw)
		if sr.Position != nil {
			p = *sr.Position
			if p < 0 {
				p = 0
			}
			if p > len(raw) {
				p = len(raw)
			}
		}
		inserts[p] = append(inserts[p], i)
	}

	res.Cells = make([][]formula.CellValue, 0, len(raw)+len(v.SpecialRows))
	res.SpecialRowIndex = make([]int, len(v.SpecialRows))
	emitSpecial := func(before int) {
		for _, i := range inserts[before] {
			res.SpecialRowIndex[i] = len(res.Cells)
			res.Cells = append(res.Cells, evalSpecial(v.SpecialRows[i]))
		}
	}
	for r := 0; r < len(raw); r++ {
		emitSpecial(r)
		row := make([]formula.CellValue, len(res.Columns))
		for c := range res.Columns {
			row[c] = grid.Cell(formula.CellRef{Col: c, Row: r})
		}
		res.Cells = append(res.Cells, row)
	}
	emitSpecial(len(raw))
	return res, nil
}

// recordColumns derives the column set from the union of record keys.
func recordColumns(recs []models.GroupedRecord) []ColumnConfig {
	seen := make(map[string]struct{})
	for _, r := range recs {
		for _, p := range r.Properties {
			seen[p.Key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ColumnConfig, len(keys))
	for i, k := range keys {
		out[i] = ColumnConfig{Property: k}
	}
	return out
}

func recordRows(recs []models.GroupedRecord, cols []ColumnConfig) [][]string {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		byKey := make(map[string]string, len(r.Properties))
		for _, p := range r.Properties {
			byKey[p.Key] = p.Value
		}
		row := make([]string, len(cols))
		for c, col := range cols {
			row[c] = byKey[col.Property]
		}
		rows[i] = row
	}
	return rows
}
