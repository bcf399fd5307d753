package metadata

import (
	"github.com/bitechdev/ResolveGrid/pkg/common"
)

// FormTab groups fields, or nested detail grids, on the add/edit surface.
type FormTab struct {
	Label  string
	Fields []string
	Grids  []SubGrid
}

// SubGrid is a detail grid bound to the parent record id through ParentField.
type SubGrid struct {
	Name        string
	ParentField string
	Config      *GridConfig
}

// ShowFlags toggles toolbar buttons.
type ShowFlags struct {
	Reload  bool
	Columns bool
	Search  bool
	Add     bool
	Edit    bool
	Delete  bool
	Save    bool
}

type Toolbar struct {
	Show ShowFlags
}

// DefaultToolbar shows every action.
func DefaultToolbar() Toolbar {
	return Toolbar{Show: ShowFlags{
		Reload: true, Columns: true, Search: true, Add: true, Edit: true, Delete: true, Save: true,
	}}
}

// GridConfig is everything a page declares about one grid.
type GridConfig struct {
	Name        string
	RecID       string
	Limit       int
	Columns     []Column
	Joins       []JoinOption
	FormFields  []string
	FormTabs    []FormTab
	Toolbar     Toolbar
	SearchLogic string

	// FormLoadURL, when set, makes edit fetch the record instead of using the grid row.
	FormLoadURL     string
	FormLoadName    string
	FormLoadRequest func(recid interface{}) common.Envelope
	FormDataMapper  func(raw common.Record) common.Record
}

// RecIDField is the record identifier field, "id" unless configured.
func (g *GridConfig) RecIDField() string {
	if g.RecID != "" {
		return g.RecID
	}
	return "id"
}

// PageSize is the configured limit, 100 unless configured.
func (g *GridConfig) PageSize() int {
	if g.Limit > 0 {
		return g.Limit
	}
	return 100
}

// Column finds a column by its field.
func (g *GridConfig) Column(field string) (Column, bool) {
	for _, c := range g.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// Join finds a join option by key.
func (g *GridConfig) Join(key string) (JoinOption, bool) {
	for _, j := range g.Joins {
		if j.Key == key {
			return j, true
		}
	}
	return JoinOption{}, false
}

// FormFieldNames lists the form fields in order: FormFields, then the fields of every tab.
// With neither declared, every column is a form field.
func (g *GridConfig) FormFieldNames() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range g.FormFields {
		add(f)
	}
	for _, tab := range g.FormTabs {
		for _, f := range tab.Fields {
			add(f)
		}
	}
	if len(out) == 0 {
		for _, c := range g.Columns {
			add(c.Field)
		}
	}
	return out
}

// MapFormData runs FormDataMapper, or returns a copy of raw when none is set.
func (g *GridConfig) MapFormData(raw common.Record) common.Record {
	if g.FormDataMapper == nil {
		return raw.Clone()
	}
	out := g.FormDataMapper(raw)
	if out == nil {
		return common.Record{}
	}
	return out
}

// LoadRequest builds the form load envelope for recid.
func (g *GridConfig) LoadRequest(recid interface{}) common.Envelope {
	if g.FormLoadRequest != nil {
		return g.FormLoadRequest(recid)
	}
	return common.Envelope{Request: common.RequestBody{
		Action: common.ActionGetRecord,
		Name:   g.FormLoadName,
		Recid:  recid,
	}}
}
