package grid

import (
	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/render"
)

// Select replaces the selection with ids. Ids not on the current page are ignored.
func (e *Engine) Select(ids ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = e.selected[:0]
	for _, id := range ids {
		if e.onPage(id) && !e.isSelected(id) {
			e.selected = append(e.selected, id)
		}
	}
}

func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = nil
}

// SelectedIDs returns the selected record ids in selection order.
func (e *Engine) SelectedIDs() []interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]interface{}(nil), e.selected...)
}

// SelectedRecords returns the selected rows of the current page.
func (e *Engine) SelectedRecords() []common.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]common.Record, 0, len(e.selected))
	for _, id := range e.selected {
		if rec, ok := e.record(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

func (e *Engine) record(id interface{}) (common.Record, bool) {
	for _, row := range e.view.Rows {
		if row.RecID != nil && common.SameValue(row.RecID, id) {
			return row.Record, true
		}
	}
	return nil, false
}

func (e *Engine) onPage(id interface{}) bool {
	_, ok := e.record(id)
	return ok
}

func (e *Engine) isSelected(id interface{}) bool {
	for _, s := range e.selected {
		if common.SameValue(s, id) {
			return true
		}
	}
	return false
}

// pruneSelection drops selected ids that are no longer on the page.
func (e *Engine) pruneSelection() {
	kept := e.selected[:0]
	for _, id := range e.selected {
		if e.onPage(id) {
			kept = append(kept, id)
		}
	}
	e.selected = kept
}

func (e *Engine) markSelected(v render.View) render.View {
	if len(v.Rows) == 0 {
		return v
	}
	rows := make([]render.Row, len(v.Rows))
	copy(rows, v.Rows)
	for i := range rows {
		rows[i].Selected = rows[i].RecID != nil && e.isSelected(rows[i].RecID)
	}
	v.Rows = rows
	return v
}
