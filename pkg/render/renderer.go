// Package render turns grid responses into view models: header cells, display rows,
// page controls and filter controls. It owns the user's column layout.
package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
	"github.com/bitechdev/ResolveGrid/pkg/settings"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotSortable   = errors.New("column is not sortable")
	ErrNotResizable  = errors.New("column is not resizable")
)

type Header struct {
	Field     string
	Caption   string
	Width     int
	Size      string
	Align     metadata.Align
	Sortable  bool
	Resizable bool
	// SortDirection is "asc", "desc" or "" for the current request.
	SortDirection string
}

type Cell struct {
	Field string
	Text  string
	HTML  bool
}

type Row struct {
	RecID    interface{}
	Cells    []Cell
	Record   common.Record
	Selected bool
}

// View is everything a page needs to paint the grid.
type View struct {
	Status   string
	Message  string
	Headers  []Header
	Rows     []Row
	Pager    Pager
	Warnings []string
}

// FilterControl is one filter input offered to the user.
type FilterControl struct {
	Field   string
	Label   string
	Type    metadata.SearchType
	Options []common.Option
}

type columnState struct {
	field  string
	hidden bool
	width  int
}

// Renderer is safe for concurrent use.
type Renderer struct {
	cfg  *metadata.GridConfig
	opts Options

	mu     sync.RWMutex
	layout []columnState
}

// NewRenderer builds a renderer and applies any persisted layout for the grid. Unset
// formatting options fall back to DefaultOptions.
// Persisted entries for columns the grid no longer declares are ignored.
func NewRenderer(ctx context.Context, cfg *metadata.GridConfig, opts Options) (*Renderer, error) {
	opts = opts.withDefaults()
	r := &Renderer{cfg: cfg, opts: opts}
	for _, c := range cfg.Columns {
		r.layout = append(r.layout, columnState{field: c.Field, hidden: c.Hidden, width: c.Width})
	}

	if opts.Settings == nil {
		return r, nil
	}
	saved, err := settings.LoadColumns(ctx, opts.Settings, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load column layout of %s: %w", cfg.Name, err)
	}
	r.applySaved(saved)
	return r, nil
}

func (r *Renderer) applySaved(saved []settings.ColumnSetting) {
	if len(saved) == 0 {
		return
	}
	order := make(map[string]int, len(saved))
	for _, s := range saved {
		order[s.Field] = s.Order
		for i := range r.layout {
			if r.layout[i].field == s.Field {
				r.layout[i].hidden = s.Hidden
				if s.Width > 0 {
					r.layout[i].width = s.Width
				}
			}
		}
	}
	// Columns added since the layout was saved go last, in declaration order.
	sort.SliceStable(r.layout, func(i, j int) bool {
		oi, iok := order[r.layout[i].field]
		oj, jok := order[r.layout[j].field]
		if iok != jok {
			return iok
		}
		return iok && oi < oj
	})
}

func (r *Renderer) persist(ctx context.Context) error {
	if r.opts.Settings == nil {
		return nil
	}
	cols := make([]settings.ColumnSetting, 0, len(r.layout))
	for i, s := range r.layout {
		cols = append(cols, settings.ColumnSetting{Field: s.field, Hidden: s.hidden, Width: s.width, Order: i})
	}
	if err := settings.SaveColumns(ctx, r.opts.Settings, r.cfg.Name, cols); err != nil {
		logger.Error("Failed to save column layout of %s: %v", r.cfg.Name, err)
		return err
	}
	return nil
}

func (r *Renderer) index(field string) int {
	for i, s := range r.layout {
		if s.field == field {
			return i
		}
	}
	return -1
}

// VisibleColumns returns the columns shown, in the user's order, with the user's widths.
func (r *Renderer) VisibleColumns() []metadata.Column {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visible()
}

func (r *Renderer) visible() []metadata.Column {
	out := make([]metadata.Column, 0, len(r.layout))
	for _, s := range r.layout {
		if s.hidden {
			continue
		}
		col, ok := r.cfg.Column(s.field)
		if !ok {
			continue
		}
		col.Width = s.width
		out = append(out, col)
	}
	return out
}

// Render materializes resp. params is the request resp answers.
func (r *Renderer) Render(resp common.GridResponse, params common.QueryParams) View {
	r.mu.RLock()
	cols := r.visible()
	r.mu.RUnlock()

	records := resp.Records
	var overfill string
	if params.Limit > 0 && len(records) > params.Limit {
		overfill = fmt.Sprintf("backend returned %d records for a page of %d; extra records dropped", len(records), params.Limit)
		logger.Warn("Grid %s: %s", r.cfg.Name, overfill)
		records = records[:params.Limit]
	}

	view := View{
		Status:  resp.Status,
		Message: resp.Message,
		Headers: make([]Header, 0, len(cols)),
		Rows:    make([]Row, 0, len(records)),
	}
	if overfill != "" {
		view.Warnings = append(view.Warnings, overfill)
	}

	for _, c := range cols {
		view.Headers = append(view.Headers, Header{
			Field:         c.Field,
			Caption:       c.Caption(),
			Width:         c.Width,
			Size:          c.Size,
			Align:         c.Align,
			Sortable:      c.Sortable,
			Resizable:     c.Resizable,
			SortDirection: sortDirection(params.Sort, c),
		})
	}

	recidField := r.cfg.RecIDField()
	for _, rec := range records {
		row := Row{Record: rec, Cells: make([]Cell, 0, len(cols))}
		row.RecID, _ = rec.Get(recidField)
		for _, c := range cols {
			text, isHTML := FormatCell(c, rec, r.opts)
			row.Cells = append(row.Cells, Cell{Field: c.Field, Text: text, HTML: isHTML})
		}
		view.Rows = append(view.Rows, row)
	}

	view.Pager = NewPager(resp.Total, params.Limit, params.Page, len(records))

	if params.Limit > 0 && resp.Total == int64(params.Limit) && len(resp.Records) == params.Limit {
		msg := fmt.Sprintf("total equals page size %d; the backend may be undercounting rows", params.Limit)
		logger.Warn("Grid %s: %s", r.cfg.Name, msg)
		view.Warnings = append(view.Warnings, msg)
	}

	return view
}

func sortDirection(sorts []common.SortOption, col metadata.Column) string {
	for _, s := range sorts {
		if s.Field == col.BackendField() {
			return strings.ToLower(s.Direction)
		}
	}
	return ""
}

// ToggleSort returns the sort that results from clicking the header of field: ascending
// first, then flipping direction on every further click.
func (r *Renderer) ToggleSort(current []common.SortOption, field string) ([]common.SortOption, error) {
	col, ok := r.cfg.Column(field)
	if !ok {
		return current, fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	if !col.Sortable {
		return current, fmt.Errorf("%w: %s", ErrNotSortable, field)
	}

	dir := "asc"
	if d := sortDirection(current, col); d == "asc" {
		dir = "desc"
	}
	return []common.SortOption{{Field: col.BackendField(), Direction: dir}}, nil
}

// Resize sets the width of a resizable column and persists the layout.
func (r *Renderer) Resize(ctx context.Context, field string, width int) error {
	col, ok := r.cfg.Column(field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	if !col.Resizable {
		return fmt.Errorf("%w: %s", ErrNotResizable, field)
	}
	if width < r.opts.MinColumnWidth {
		width = r.opts.MinColumnWidth
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.layout[r.index(field)].width = width
	return r.persist(ctx)
}

// SetHidden shows or hides a column and persists the layout.
func (r *Renderer) SetHidden(ctx context.Context, field string, hidden bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(field)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	r.layout[i].hidden = hidden
	return r.persist(ctx)
}

// Move places field at position to (clamped) and persists the layout.
func (r *Renderer) Move(ctx context.Context, field string, to int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := r.index(field)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	if to < 0 {
		to = 0
	}
	if to >= len(r.layout) {
		to = len(r.layout) - 1
	}
	s := r.layout[from]
	r.layout = append(r.layout[:from], r.layout[from+1:]...)
	r.layout = append(r.layout[:to], append([]columnState{s}, r.layout[to:]...)...)
	return r.persist(ctx)
}

// FilterControls lists the columns a filter control is offered for, in declaration order.
func (r *Renderer) FilterControls() []FilterControl {
	out := make([]FilterControl, 0)
	for _, c := range r.cfg.Columns {
		if c.Searchable == metadata.SearchNone {
			continue
		}
		out = append(out, FilterControl{
			Field:   c.Field,
			Label:   c.Caption(),
			Type:    c.Searchable,
			Options: c.Options,
		})
	}
	return out
}
