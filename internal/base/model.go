// Package base implements Bases: saved table views over notes, grouped
// records, and property records, persisted as YAML.
package base

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/laguz/internal/query"
)

// SourceType selects what a base reads: whole notes, the coalesced grouped
// records, or records filtered by one property.
type SourceType string

const (
	SourceNotes           SourceType = "notes"
	SourceGroupedRecords  SourceType = "grouped_records"
	SourcePropertyRecords SourceType = "property_records"
)

// Base is the persisted definition of one table. Unknown YAML keys survive
// a round-trip through Extra so configs written by newer versions are not
// stripped.
type Base struct {
	ID           int64  `yaml:"-"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description,omitempty"`
	SourceFolder string `yaml:"source_folder,omitempty"`

	SourceType     SourceType `yaml:"source_type"`
	FilterProperty string     `yaml:"filter_property,omitempty"`

	Views      []BaseView `yaml:"views"`
	ActiveView int        `yaml:"-"`

	Extra map[string]any `yaml:",inline"`
}

// BaseView is one configured rendering of a base.
type BaseView struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Editable bool   `yaml:"editable,omitempty"`

	Columns     []ColumnConfig    `yaml:"columns,omitempty"`
	Filters     query.FilterGroup `yaml:"filters,omitempty"`
	Sort        *query.SortConfig `yaml:"sort,omitempty"`
	SpecialRows []SpecialRow      `yaml:"special_rows,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// ColumnConfig maps one property to a table column.
type ColumnConfig struct {
	Property    string            `yaml:"property"`
	Title       string            `yaml:"title,omitempty"`
	Width       int               `yaml:"width,omitempty"`
	Hidden      bool              `yaml:"hidden,omitempty"`
	Aggregation query.Aggregation `yaml:"aggregation,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// SpecialRow is an extra row rendered alongside the data rows. Cell contents
// starting with '=' are formulas evaluated against the data grid. Position,
// when set, inserts the row before that data row; rows without a position
// go at the bottom. CSSClass is carried through for clients that style the
// rendered row.
type SpecialRow struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name,omitempty"`
	Cells    map[string]string `yaml:"cells"`
	Position *int              `yaml:"position,omitempty"`
	CSSClass string            `yaml:"css_class,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

// NewView returns an empty table view with a fresh id.
func NewView(name string) BaseView {
	return BaseView{ID: uuid.NewString(), Name: name, Type: "table"}
}

// NewSpecialRow returns an empty special row with a fresh id.
func NewSpecialRow(name string) SpecialRow {
	return SpecialRow{ID: uuid.NewString(), Name: name, Cells: make(map[string]string)}
}

// Validate checks the definition before it is persisted.
func (b *Base) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.SourceType, validation.Required,
			validation.In(SourceNotes, SourceGroupedRecords, SourcePropertyRecords)),
		validation.Field(&b.FilterProperty,
			validation.Required.When(b.SourceType == SourcePropertyRecords).
				Error("filter_property is required for property_records")),
	)
}

// SetSourceType transitions the base to a new source. Moving to
// PropertyRecords requires a non-empty filter property; the transition
// fails without touching the base otherwise.
func (b *Base) SetSourceType(st SourceType, filterProperty string) error {
	switch st {
	case SourceNotes, SourceGroupedRecords:
		b.SourceType = st
		b.FilterProperty = ""
		return nil
	case SourcePropertyRecords:
		if filterProperty == "" {
			return fmt.Errorf("base: property_records needs a filter property")
		}
		b.SourceType = st
		b.FilterProperty = filterProperty
		return nil
	}
	return fmt.Errorf("base: unknown source type %q", st)
}

// View returns the view with the given id.
func (b *Base) View(id string) (*BaseView, error) {
	for i := range b.Views {
		if b.Views[i].ID == id {
			return &b.Views[i], nil
		}
	}
	return nil, fmt.Errorf("base: view %q not found", id)
}

// CanEdit reports whether rows of the view may be edited. Record-backed
// sources are always editable; note-backed views honor the flag.
func (b *Base) CanEdit(v *BaseView) bool {
	if b.SourceType == SourceNotes {
		return v.Editable
	}
	return true
}

// EncodeConfig serializes the base definition to its YAML blob.
func (b *Base) EncodeConfig() (string, error) {
	out, err := yaml.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("base: encode config: %w", err)
	}
	return string(out), nil
}

// DecodeConfig parses a YAML blob into a Base.
func DecodeConfig(blob string) (*Base, error) {
	var b Base
	if err := yaml.Unmarshal([]byte(blob), &b); err != nil {
		return nil, fmt.Errorf("base: decode config: %w", err)
	}
	return &b, nil
}
