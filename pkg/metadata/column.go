// Package metadata holds the declarative descriptors a page hands to the grid engine:
// columns, join options, form tabs and async option sources.
package metadata

import (
	"github.com/bitechdev/ResolveGrid/pkg/common"
)

// ColumnType selects default formatting and filter behaviour.
type ColumnType string

const (
	TypeText     ColumnType = "text"
	TypeInt      ColumnType = "int"
	TypeFloat    ColumnType = "float"
	TypeDate     ColumnType = "date"
	TypeDateTime ColumnType = "datetime"
	TypeTime     ColumnType = "time"
	TypeList     ColumnType = "list"
	TypeEnum     ColumnType = "enum"
	TypeCheckbox ColumnType = "checkbox"
	TypeColor    ColumnType = "color"
	TypeHTML     ColumnType = "html"
	TypeCurrency ColumnType = "currency"
	TypePicture  ColumnType = "picture"
	TypeTextarea ColumnType = "textarea"
)

var columnTypes = map[ColumnType]bool{
	TypeText: true, TypeInt: true, TypeFloat: true, TypeDate: true, TypeDateTime: true,
	TypeTime: true, TypeList: true, TypeEnum: true, TypeCheckbox: true, TypeColor: true,
	TypeHTML: true, TypeCurrency: true, TypePicture: true, TypeTextarea: true,
}

func (t ColumnType) Valid() bool {
	return columnTypes[t]
}

// IsTemporal reports whether values of this type are compared as ranges by the backend.
func (t ColumnType) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime || t == TypeTime
}

// SearchType enables a filter control on a column. Empty means not searchable.
type SearchType string

const (
	SearchNone     SearchType = ""
	SearchText     SearchType = "text"
	SearchInt      SearchType = "int"
	SearchFloat    SearchType = "float"
	SearchDate     SearchType = "date"
	SearchDateTime SearchType = "datetime"
	SearchList     SearchType = "list"
	SearchEnum     SearchType = "enum"
	SearchLocation SearchType = "location"
)

// IsPrefixMatched reports whether a startsWith request on this filter is sent as "begins".
func (s SearchType) IsPrefixMatched() bool {
	return s == SearchEnum || s == SearchList || s == SearchLocation
}

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// RenderFunc turns a record into pre-formatted display text. It must be pure and
// return "" when the data it needs is missing.
type RenderFunc func(rec common.Record) string

// DisabledFunc decides from the current form data whether a field is read only.
type DisabledFunc func(data common.Record) bool

// Always returns a DisabledFunc with a constant answer.
func Always(disabled bool) DisabledFunc {
	return func(common.Record) bool { return disabled }
}

// Column describes one grid column, and the form field of the same name.
type Column struct {
	Field       string
	Label       string
	Text        string
	Type        ColumnType
	SearchField string
	Searchable  SearchType
	Sortable    bool
	Resizable   bool
	Width       int
	Size        string
	Align       Align
	Hidden      bool
	JoinTable   []string
	Options     []common.Option
	Load        *LoadSpec
	Render      RenderFunc
	Disabled    DisabledFunc
	Default     interface{}
	Required    bool
}

// Caption is the header text.
func (c Column) Caption() string {
	if c.Label != "" {
		return c.Label
	}
	if c.Text != "" {
		return c.Text
	}
	return c.Field
}

// BackendField is the field filters and sorts are sent on.
func (c Column) BackendField() string {
	if c.SearchField != "" {
		return c.SearchField
	}
	return c.Field
}

// OptionText maps a raw value through the static option list.
func (c Column) OptionText(value interface{}) (string, bool) {
	for _, opt := range c.Options {
		if common.SameValue(opt.ID, value) {
			return opt.Text, true
		}
	}
	return "", false
}

// Kind is the column type, text when none was declared.
func (c Column) Kind() ColumnType {
	if c.Type == "" {
		return TypeText
	}
	return c.Type
}
