package query

import (
	"sort"
	"strings"

	"github.com/starford/laguz/internal/property"
)

// SortConfig names the property to order by and the direction, "asc" or
// "desc".
type SortConfig struct {
	Property  string `yaml:"property" json:"property"`
	Direction string `yaml:"direction" json:"direction"`
}

// sortNotes orders notes in place by the configured property. Null values
// sort last regardless of direction; the sort is stable so equal keys keep
// their folder/name order.
func sortNotes(notes []NoteWithProperties, cfg SortConfig) {
	desc := strings.EqualFold(cfg.Direction, "desc")
	sort.SliceStable(notes, func(i, j int) bool {
		a := notes[i].Get(cfg.Property)
		b := notes[j].Get(cfg.Property)

		aNull := a.Kind == property.KindNull
		bNull := b.Kind == property.KindNull
		if aNull || bNull {
			return !aNull && bNull
		}

		ka, kb := a.SortKey(), b.SortKey()
		if desc {
			return ka > kb
		}
		return ka < kb
	})
}
