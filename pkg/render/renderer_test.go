package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/config"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
	"github.com/bitechdev/ResolveGrid/pkg/settings"
)

func productGrid() *metadata.GridConfig {
	return &metadata.GridConfig{
		Name:  "products",
		RecID: "Id",
		Limit: 10,
		Columns: []metadata.Column{
			{Field: "Id", Type: metadata.TypeInt, Sortable: true, Hidden: true},
			{Field: "Name", Label: "Product", Searchable: metadata.SearchText, Sortable: true, Resizable: true, Width: 150},
			{Field: "Price", Type: metadata.TypeCurrency, Searchable: metadata.SearchFloat, Sortable: true},
			{Field: "PlaceName", SearchField: "PlaceId", Sortable: true, Searchable: metadata.SearchList},
			{Field: "Active", Type: metadata.TypeCheckbox},
			{Field: "Status", Type: metadata.TypeEnum, Options: []common.Option{{ID: 1, Text: "On sale"}, {ID: 2, Text: "Withdrawn"}}},
			{Field: "Badge", Render: func(rec common.Record) string {
				if rec.String("Status") == "" {
					return ""
				}
				return `<b>` + rec.String("Name") + `</b>`
			}},
			{Field: "CafeteriaPlace.Place.Name", Label: "Place"},
		},
	}
}

func records(n int) []common.Record {
	out := make([]common.Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, common.Record{"Id": float64(i), "Name": "Tea", "Price": 1234.5, "Status": float64(1)})
	}
	return out
}

func newTestRenderer(t *testing.T, store settings.Store) *Renderer {
	t.Helper()
	opts := DefaultOptions()
	opts.CurrencyPrefix = "$"
	opts.Settings = store
	r, err := NewRenderer(context.Background(), productGrid(), opts)
	require.NoError(t, err)
	return r
}

func TestRender_CellsFollowVisibleColumns(t *testing.T) {
	r := newTestRenderer(t, nil)
	resp := common.GridResponse{
		Status: common.StatusSuccess,
		Total:  1,
		Records: []common.Record{{
			"Id": float64(7), "Name": "Tea", "Price": 1234.5, "Active": true, "Status": float64(2),
			"CafeteriaPlace": map[string]interface{}{"Place": map[string]interface{}{"Name": "Main hall"}},
		}},
	}

	view := r.Render(resp, common.QueryParams{Page: 1, Limit: 10, Sort: []common.SortOption{{Field: "Name", Direction: "desc"}}})
	require.Len(t, view.Rows, 1)

	fields := make([]string, 0)
	for _, h := range view.Headers {
		fields = append(fields, h.Field)
	}
	assert.Equal(t, []string{"Name", "Price", "PlaceName", "Active", "Status", "Badge", "CafeteriaPlace.Place.Name"}, fields)
	assert.Equal(t, "Product", view.Headers[0].Caption)
	assert.Equal(t, "desc", view.Headers[0].SortDirection)
	assert.Equal(t, "", view.Headers[1].SortDirection)

	row := view.Rows[0]
	assert.Equal(t, float64(7), row.RecID)
	texts := make(map[string]Cell)
	for _, c := range row.Cells {
		texts[c.Field] = c
	}
	assert.Equal(t, "Tea", texts["Name"].Text)
	assert.Equal(t, "$1,234.50", texts["Price"].Text)
	assert.Equal(t, "", texts["PlaceName"].Text)
	assert.Equal(t, "Yes", texts["Active"].Text)
	assert.Equal(t, "Withdrawn", texts["Status"].Text)
	assert.Equal(t, "<b>Tea</b>", texts["Badge"].Text)
	assert.True(t, texts["Badge"].HTML)
	assert.Equal(t, "Main hall", texts["CafeteriaPlace.Place.Name"].Text)
}

func TestRender_PanickingRenderIsEmpty(t *testing.T) {
	cfg := &metadata.GridConfig{Name: "g", Columns: []metadata.Column{
		{Field: "x", Render: func(rec common.Record) string { return rec["missing"].(string) }},
	}}
	r, err := NewRenderer(context.Background(), cfg, DefaultOptions())
	require.NoError(t, err)

	view := r.Render(common.GridResponse{Total: 1, Records: []common.Record{{"x": 1}}}, common.QueryParams{Page: 1, Limit: 10})
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "", view.Rows[0].Cells[0].Text)
}

func TestRender_PaginationScenario(t *testing.T) {
	r := newTestRenderer(t, nil)

	view := r.Render(common.GridResponse{Status: common.StatusSuccess, Total: 25, Records: records(10)}, common.QueryParams{Page: 1, Limit: 10})
	assert.Equal(t, 3, view.Pager.Pages)
	assert.True(t, view.Pager.HasNext)
	assert.False(t, view.Pager.HasPrev)
	assert.Empty(t, view.Warnings)

	view = r.Render(common.GridResponse{Status: common.StatusSuccess, Total: 25, Records: records(5)}, common.QueryParams{Page: 3, Limit: 10, Offset: 20})
	assert.Equal(t, int64(21), view.Pager.From)
	assert.Equal(t, int64(25), view.Pager.To)
	assert.False(t, view.Pager.HasNext)
}

func TestRender_OverfilledPageIsTrimmed(t *testing.T) {
	r := newTestRenderer(t, nil)

	view := r.Render(common.GridResponse{Status: common.StatusSuccess, Total: 25, Records: records(12)}, common.QueryParams{Page: 1, Limit: 10})
	assert.Len(t, view.Rows, 10)
	assert.Equal(t, float64(10), view.Rows[9].RecID)
	assert.Equal(t, 3, view.Pager.Pages)
	assert.Equal(t, int64(1), view.Pager.From)
	assert.Equal(t, int64(10), view.Pager.To)
	require.Len(t, view.Warnings, 1)
	assert.Contains(t, view.Warnings[0], "12 records for a page of 10")
}

func TestNewRenderer_ZeroOptionsUseDefaults(t *testing.T) {
	cfg := &metadata.GridConfig{
		Name:  "employees",
		RecID: "Id",
		Columns: []metadata.Column{
			{Field: "HireDate", Type: metadata.TypeDate},
			{Field: "ClockIn", Type: metadata.TypeTime},
			{Field: "Active", Type: metadata.TypeCheckbox},
			{Field: "Salary", Type: metadata.TypeCurrency},
			{Field: "Name", Resizable: true},
		},
	}
	r, err := NewRenderer(context.Background(), cfg, Options{})
	require.NoError(t, err)

	view := r.Render(common.GridResponse{Status: common.StatusSuccess, Total: 1, Records: []common.Record{{
		"Id": float64(1), "HireDate": "2024-05-01T10:00:00Z", "ClockIn": "08:30:00", "Active": true, "Salary": 1500.0, "Name": "Ada",
	}}}, common.QueryParams{Page: 1, Limit: 10})
	require.Len(t, view.Rows, 1)
	cells := map[string]string{}
	for _, c := range view.Rows[0].Cells {
		cells[c.Field] = c.Text
	}
	assert.Equal(t, "2024-05-01", cells["HireDate"])
	assert.Equal(t, "08:30", cells["ClockIn"])
	assert.Equal(t, "Yes", cells["Active"])
	assert.Equal(t, "1,500.00", cells["Salary"])

	require.NoError(t, r.Resize(context.Background(), "Name", 5))
	assert.Equal(t, 30, r.VisibleColumns()[4].Width)
}

func TestNewRenderer_ExplicitZeroPrecisionKept(t *testing.T) {
	cfg := &metadata.GridConfig{Name: "p", Columns: []metadata.Column{{Field: "Price", Type: metadata.TypeCurrency}}}
	r, err := NewRenderer(context.Background(), cfg, Options{CurrencySuffix: " kr"})
	require.NoError(t, err)

	view := r.Render(common.GridResponse{Status: common.StatusSuccess, Total: 1, Records: []common.Record{{"Price": 12.0}}}, common.QueryParams{Limit: 10})
	assert.Equal(t, "12 kr", view.Rows[0].Cells[0].Text)
}

func TestRender_UndercountWarning(t *testing.T) {
	r := newTestRenderer(t, nil)

	view := r.Render(common.GridResponse{Status: common.StatusSuccess, Total: 10, Records: records(10)}, common.QueryParams{Page: 1, Limit: 10})
	require.Len(t, view.Rows, 10)
	require.Len(t, view.Warnings, 1)
	assert.Contains(t, view.Warnings[0], "undercounting")
}

func TestRender_ErrorResponseIsEmptyGrid(t *testing.T) {
	r := newTestRenderer(t, nil)

	view := r.Render(common.ErrorResponse("down"), common.QueryParams{Page: 1, Limit: 10})
	assert.Equal(t, common.StatusError, view.Status)
	assert.Empty(t, view.Rows)
	assert.Equal(t, int64(0), view.Pager.Total)
	assert.Equal(t, 1, view.Pager.Pages)
}

func TestToggleSort(t *testing.T) {
	r := newTestRenderer(t, nil)

	s, err := r.ToggleSort(nil, "Name")
	require.NoError(t, err)
	assert.Equal(t, []common.SortOption{{Field: "Name", Direction: "asc"}}, s)

	s, err = r.ToggleSort(s, "Name")
	require.NoError(t, err)
	assert.Equal(t, "desc", s[0].Direction)

	s, err = r.ToggleSort(s, "PlaceName")
	require.NoError(t, err)
	assert.Equal(t, []common.SortOption{{Field: "PlaceId", Direction: "asc"}}, s)

	_, err = r.ToggleSort(s, "Active")
	assert.ErrorIs(t, err, ErrNotSortable)
	_, err = r.ToggleSort(s, "Nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestLayout_PersistedPerGrid(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	r := newTestRenderer(t, store)

	assert.ErrorIs(t, r.Resize(ctx, "Price", 90), ErrNotResizable)
	require.NoError(t, r.Resize(ctx, "Name", 5))
	require.NoError(t, r.SetHidden(ctx, "Active", true))
	require.NoError(t, r.Move(ctx, "Status", 0))

	saved, err := settings.LoadColumns(ctx, store, "products")
	require.NoError(t, err)
	require.NotEmpty(t, saved)
	assert.Equal(t, "Status", saved[0].Field)

	again := newTestRenderer(t, store)
	cols := again.VisibleColumns()
	require.NotEmpty(t, cols)
	assert.Equal(t, "Status", cols[0].Field)
	for _, c := range cols {
		assert.NotEqual(t, "Active", c.Field)
		if c.Field == "Name" {
			assert.Equal(t, 30, c.Width)
		}
	}
}

func TestFilterControls(t *testing.T) {
	r := newTestRenderer(t, nil)

	controls := r.FilterControls()
	require.Len(t, controls, 3)
	assert.Equal(t, "Name", controls[0].Field)
	assert.Equal(t, metadata.SearchText, controls[0].Type)
	assert.Equal(t, metadata.SearchList, controls[2].Type)
}

func TestFormatValue(t *testing.T) {
	opts := DefaultOptions()
	opts.CurrencySuffix = " EUR"
	opts.CurrencyPrecision = 1
	day := time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name  string
		col   metadata.Column
		value interface{}
		want  string
	}{
		{"nil", metadata.Column{Type: metadata.TypeText}, nil, ""},
		{"currency", metadata.Column{Type: metadata.TypeCurrency}, "12.24", "12.2 EUR"},
		{"int", metadata.Column{Type: metadata.TypeInt}, float64(42), "42"},
		{"date string", metadata.Column{Type: metadata.TypeDate}, "2024-05-01T13:45:00Z", "2024-05-01"},
		{"datetime", metadata.Column{Type: metadata.TypeDateTime}, day, "2024-05-01 13:45"},
		{"time", metadata.Column{Type: metadata.TypeTime}, "13:45:10", "13:45"},
		{"unparsable date", metadata.Column{Type: metadata.TypeDate}, "soon", "soon"},
		{"checkbox no", metadata.Column{Type: metadata.TypeCheckbox}, float64(0), "No"},
		{"checkbox string", metadata.Column{Type: metadata.TypeCheckbox}, "true", "Yes"},
		{"option miss", metadata.Column{Type: metadata.TypeList, Options: []common.Option{{ID: "a", Text: "A"}}}, "b", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := FormatValue(tt.col, tt.value, opts)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.RenderConfig{Locale: "de", CurrencySuffix: " €", CurrencyPrecision: 2, DateFormat: "02.01.2006"})
	assert.Equal(t, "de", opts.Locale.String())
	assert.Equal(t, "02.01.2006", opts.DateFormat)

	got, _ := FormatValue(metadata.Column{Type: metadata.TypeCurrency}, 1234.5, opts)
	assert.Equal(t, "1.234,50 €", got)

	opts = OptionsFromConfig(config.RenderConfig{Locale: "??"})
	assert.Equal(t, "en", opts.Locale.String())
}
