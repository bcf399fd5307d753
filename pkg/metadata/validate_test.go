package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitechdev/ResolveGrid/pkg/common"
)

func productGrid() *GridConfig {
	return &GridConfig{
		Name:  "cafeteriaProducts",
		RecID: "Id",
		Columns: []Column{
			{Field: "Id", Type: TypeInt, Hidden: true},
			{Field: "Name", Type: TypeText, Searchable: SearchText, Sortable: true, Required: true},
			{Field: "Price", Type: TypeCurrency, Sortable: true},
			{Field: "PlaceId", Type: TypeList, JoinTable: []string{"CafeteriaPlace"},
				Load: &LoadSpec{URL: "/api/places", DependsOn: nil}},
			{Field: "SourceId", Type: TypeList, Load: &LoadSpec{URL: "/api/sources"}},
			{Field: "FieldId", Type: TypeList, Load: &LoadSpec{
				URLFunc:   func(d common.Record) string { return "/api/fields/" + d.String("SourceId") },
				DependsOn: []string{"SourceId"},
			}},
		},
		Joins: []JoinOption{
			{Key: "CafeteriaPlace", Default: true, Nested: true},
			{Key: "Place", Parent: "CafeteriaPlace"},
		},
		FormTabs: []FormTab{{Label: "General", Fields: []string{"Name", "Price", "PlaceId"}}},
	}
}

func TestGridConfig_ValidateOK(t *testing.T) {
	g := productGrid()
	assert.NoError(t, g.Validate())
	assert.NotPanics(t, func() { g.MustValidate() })
}

func TestGridConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *GridConfig)
		message string
	}{
		{"unknown type", func(g *GridConfig) { g.Columns[1].Type = "money" }, "unknown type"},
		{"duplicate column", func(g *GridConfig) { g.Columns = append(g.Columns, Column{Field: "Name"}) }, "duplicate column"},
		{"empty field", func(g *GridConfig) { g.Columns = append(g.Columns, Column{}) }, "has no field"},
		{"unknown parent", func(g *GridConfig) { g.Joins[1].Parent = "Nope" }, "unknown parent"},
		{"join cycle", func(g *GridConfig) { g.Joins[0].Parent = "Place" }, "cycle"},
		{"undeclared join table", func(g *GridConfig) { g.Columns[2].JoinTable = []string{"Menu"} }, "undeclared join"},
		{"form field not column", func(g *GridConfig) { g.FormFields = []string{"Ghost"} }, "not a column"},
		{"dynamic load without deps", func(g *GridConfig) { g.Columns[5].Load.DependsOn = nil }, "declares no dependencies"},
		{"dependency unknown", func(g *GridConfig) { g.Columns[5].Load.DependsOn = []string{"Ghost"} }, "unknown field"},
		{"load without url", func(g *GridConfig) { g.Columns[4].Load.URL = "" }, "has no url"},
		{"bad search logic", func(g *GridConfig) { g.SearchLogic = "XOR" }, "search logic"},
		{"tab with fields and grids", func(g *GridConfig) {
			g.FormTabs[0].Grids = []SubGrid{{Name: "lines", ParentField: "ProductId", Config: &GridConfig{}}}
		}, "both fields and grids"},
		{"sub grid without parent field", func(g *GridConfig) {
			g.FormTabs = append(g.FormTabs, FormTab{Label: "Lines", Grids: []SubGrid{{Name: "lines", Config: &GridConfig{}}}})
		}, "no parent field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := productGrid()
			tt.mutate(g)
			err := g.Validate()
			assert.ErrorIs(t, err, ErrInvalidMetadata)
			assert.Contains(t, err.Error(), tt.message)
			assert.Panics(t, func() { g.MustValidate() })
		})
	}
}

func TestColumnHelpers(t *testing.T) {
	c := Column{Field: "PlaceName", SearchField: "PlaceId", Options: []common.Option{{ID: 1, Text: "Lobby"}}}
	assert.Equal(t, "PlaceId", c.BackendField())
	assert.Equal(t, "PlaceName", c.Caption())
	assert.Equal(t, TypeText, c.Kind())

	text, ok := c.OptionText(float64(1))
	assert.True(t, ok)
	assert.Equal(t, "Lobby", text)

	c.Text = "Place"
	assert.Equal(t, "Place", c.Caption())
	c.Label = "Cafeteria place"
	assert.Equal(t, "Cafeteria place", c.Caption())
}

func TestLoadSpec_MapRecords(t *testing.T) {
	spec := &LoadSpec{
		URL: "/api/places",
		Map: func(records []common.Record) []common.Option {
			out := make([]common.Option, 0, len(records))
			for _, r := range records {
				id, _ := r.Get("PlaceId")
				out = append(out, common.Option{ID: id, Text: r.String("Title")})
			}
			return out
		},
	}

	assert.Equal(t, []common.Option{}, spec.MapRecords(nil))
	assert.Equal(t, []common.Option{}, spec.MapRecords([]common.Record{}))

	opts := spec.MapRecords([]common.Record{{"PlaceId": 2, "Title": "Lobby"}})
	assert.Equal(t, []common.Option{{ID: 2, Text: "Lobby"}}, opts)

	spec.Map = nil
	opts = spec.MapRecords([]common.Record{{"Id": 5, "Name": "Garden"}})
	assert.Equal(t, []common.Option{{ID: 5, Text: "Garden"}}, opts)
}

func TestGridConfig_FormFieldNames(t *testing.T) {
	g := productGrid()
	assert.Equal(t, []string{"Name", "Price", "PlaceId"}, g.FormFieldNames())

	g.FormTabs = nil
	assert.Len(t, g.FormFieldNames(), len(g.Columns))
}
