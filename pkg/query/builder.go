// Package query turns grid UI state into the QueryParams sent to a data source.
package query

import (
	"fmt"
	"strings"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

// Operators the filter UI may produce, before normalization.
const (
	UIEquals     = "equals"
	UIIs         = "is"
	UIStartsWith = "startsWith"
	UIBegins     = "begins"
	UIContains   = "contains"
	UIBetween    = "between"
)

// Filter is one active filter as collected by the UI, addressed by column field.
type Filter struct {
	Field    string
	Operator string
	Value    interface{}
}

// State is the renderer state a query is built from.
type State struct {
	Page        int
	Limit       int
	Filters     []Filter
	SearchAll   string
	SearchLogic string
	Sort        []common.SortOption
	ShowDeleted bool

	// Joins holds explicit user choices. Keys absent here fall back to the join's default.
	Joins map[string]bool
}

// Warning reports a part of the state that was dropped while building.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

type Builder struct {
	cfg *metadata.GridConfig
}

func NewBuilder(cfg *metadata.GridConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build is deterministic: the same state always yields the same parameters.
// Filters and sorts on unknown columns are dropped and reported.
func (b *Builder) Build(s State) (common.QueryParams, []Warning) {
	var warnings []Warning
	warn := func(field, format string, args ...interface{}) {
		w := Warning{Field: field, Message: fmt.Sprintf(format, args...)}
		logger.Warn("Grid %s: dropping %s", b.cfg.Name, w.String())
		warnings = append(warnings, w)
	}

	limit := s.Limit
	if limit <= 0 {
		limit = b.cfg.PageSize()
	}
	page := s.Page
	if page < 1 {
		page = 1
	}

	params := common.QueryParams{
		Page:        page,
		Limit:       limit,
		Offset:      (page - 1) * limit,
		ShowDeleted: s.ShowDeleted,
	}

	if strings.TrimSpace(s.SearchAll) != "" {
		params.Search = b.searchAll(strings.TrimSpace(s.SearchAll))
		params.SearchLogic = common.LogicOr
	} else {
		for _, f := range s.Filters {
			col, ok := b.findColumn(f.Field)
			if !ok {
				warn(f.Field, "unknown column in search")
				continue
			}
			if col.Searchable == metadata.SearchNone {
				warn(f.Field, "column is not searchable")
				continue
			}
			cond, err := normalize(col, f)
			if err != nil {
				warn(f.Field, "%v", err)
				continue
			}
			params.Search = append(params.Search, cond)
		}
		if len(params.Search) > 0 {
			params.SearchLogic = searchLogic(s.SearchLogic, b.cfg.SearchLogic)
		}
	}

	for _, so := range s.Sort {
		col, ok := b.findColumn(so.Field)
		if !ok {
			warn(so.Field, "unknown column in sort")
			continue
		}
		if !col.Sortable {
			warn(so.Field, "column is not sortable")
			continue
		}
		params.Sort = append(params.Sort, common.SortOption{
			Field:     col.BackendField(),
			Direction: direction(so.Direction),
		})
	}

	params.Join = b.ResolveJoins(s.Joins)

	return params, warnings
}

func (b *Builder) findColumn(field string) (metadata.Column, bool) {
	if col, ok := b.cfg.Column(field); ok {
		return col, true
	}
	for _, c := range b.cfg.Columns {
		if c.SearchField != "" && c.SearchField == field {
			return c, true
		}
	}
	return metadata.Column{}, false
}

// searchAll expands a free text query into contains conditions over every text-searchable column.
func (b *Builder) searchAll(text string) []common.SearchCondition {
	out := make([]common.SearchCondition, 0)
	for _, c := range b.cfg.Columns {
		if c.Searchable != metadata.SearchText {
			continue
		}
		out = append(out, common.SearchCondition{
			Field:    c.BackendField(),
			Operator: common.OpContains,
			Value:    text,
			Type:     string(c.Searchable),
		})
	}
	return out
}

func searchLogic(requested, configured string) string {
	for _, l := range []string{requested, configured} {
		switch strings.ToUpper(l) {
		case common.LogicAnd:
			return common.LogicAnd
		case common.LogicOr:
			return common.LogicOr
		}
	}
	return common.LogicAnd
}

func direction(d string) string {
	if strings.EqualFold(d, "desc") {
		return "desc"
	}
	return "asc"
}
