package gridserver

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
)

const dateOnly = "2006-01-02"

// lookupField resolves a client field name (JSON name, Go name or column) to a column.
func (m *entityModel) lookupField(name string) *schema.Field {
	if f := m.schema.LookUpField(name); f != nil && f.DBName != "" {
		return f
	}
	for _, f := range m.schema.Fields {
		if f.DBName == "" {
			continue
		}
		jsonName := strings.Split(f.Tag.Get("json"), ",")[0]
		if strings.EqualFold(jsonName, name) || strings.EqualFold(f.Name, name) || strings.EqualFold(f.DBName, name) {
			return f
		}
	}
	return nil
}

func column(f *schema.Field) clause.Column {
	return clause.Column{Table: clause.CurrentTable, Name: f.DBName}
}

func primaryKeyEq(model *entityModel, recid interface{}) clause.Expression {
	return clause.Eq{Column: column(model.schema.PrioritizedPrimaryField), Value: recid}
}

// applySearch adds the filters as one AND or OR group.
func applySearch(tx *gorm.DB, model *entityModel, search []common.SearchCondition, logic string) *gorm.DB {
	exprs := make([]clause.Expression, 0, len(search))
	for _, cond := range search {
		f := model.lookupField(cond.Field)
		if f == nil {
			logger.Warn("Search field '%s' has no column in %s", cond.Field, model.name)
			continue
		}
		expr, ok := searchExpr(f, cond)
		if !ok {
			logger.Warn("Unsupported search %s on '%s' ignored", cond.Operator, cond.Field)
			continue
		}
		exprs = append(exprs, expr)
	}
	if len(exprs) == 0 {
		return tx
	}
	if strings.EqualFold(logic, common.LogicOr) {
		return tx.Where(clause.Or(exprs...))
	}
	return tx.Where(clause.And(exprs...))
}

func searchExpr(f *schema.Field, cond common.SearchCondition) (clause.Expression, bool) {
	col := column(f)
	switch cond.Operator {
	case common.OpIs, "":
		return clause.Eq{Column: col, Value: cond.Value}, true
	case common.OpContains:
		pattern := "%" + strings.ToLower(common.ToString(cond.Value)) + "%"
		return clause.Expr{SQL: "LOWER(?) LIKE ?", Vars: []interface{}{col, pattern}}, true
	case common.OpBegins:
		return clause.Expr{SQL: "? LIKE ?", Vars: []interface{}{col, common.ToString(cond.Value) + "%"}}, true
	case common.OpBetween:
		from, to, ok := bounds(cond.Value)
		if !ok {
			return nil, false
		}
		if f.DataType == schema.Time {
			return dateRange(col, from, to), true
		}
		return clause.Expr{SQL: "(? BETWEEN ? AND ?)", Vars: []interface{}{col, from, to}}, true
	}
	return nil, false
}

func bounds(v interface{}) (interface{}, interface{}, bool) {
	switch vals := v.(type) {
	case []interface{}:
		if len(vals) == 2 {
			return vals[0], vals[1], true
		}
		if len(vals) == 1 {
			return vals[0], vals[0], true
		}
	case nil:
	default:
		return vals, vals, true
	}
	return nil, nil, false
}

// dateRange matches a time column against inclusive bounds. A date-only upper bound
// covers that whole day.
func dateRange(col clause.Column, from, to interface{}) clause.Expression {
	lo, loErr := common.ParseDateTime(common.ToString(from))
	hi, hiErr := common.ParseDateTime(common.ToString(to))
	if loErr != nil || hiErr != nil {
		return clause.Expr{SQL: "(? BETWEEN ? AND ?)", Vars: []interface{}{col, from, to}}
	}
	if _, err := time.Parse(dateOnly, common.ToString(to)); err == nil {
		return clause.Expr{SQL: "(? >= ? AND ? < ?)", Vars: []interface{}{col, lo, col, hi.AddDate(0, 0, 1)}}
	}
	return clause.Expr{SQL: "(? BETWEEN ? AND ?)", Vars: []interface{}{col, lo, hi}}
}

func applySort(tx *gorm.DB, model *entityModel, sorts []common.SortOption) *gorm.DB {
	for _, s := range sorts {
		f := model.lookupField(s.Field)
		if f == nil {
			continue
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: column(f),
			Desc:   strings.EqualFold(s.Direction, "desc"),
		})
	}
	return tx
}

// applyJoins preloads each relation path such as "CafeteriaPlace.Place". Paths that
// do not follow declared relations are dropped.
func applyJoins(tx *gorm.DB, model *entityModel, joins []string) *gorm.DB {
	for _, path := range joins {
		if !validRelationPath(model.schema, path) {
			logger.Warn("Unknown relation '%s' on %s removed", path, model.name)
			continue
		}
		logger.Debug("Preloading relation: %s", path)
		tx = tx.Preload(path)
	}
	return tx
}

func validRelationPath(sch *schema.Schema, path string) bool {
	if path == "" {
		return false
	}
	for _, part := range strings.Split(path, ".") {
		if sch == nil {
			return false
		}
		rel, ok := sch.Relationships.Relations[part]
		if !ok || !declaredRelation(part, rel) {
			return false
		}
		sch = rel.FieldSchema
	}
	return true
}

// declaredRelation reports whether rel is a relation field of the model itself. GORM also
// caches back-references such as "_CafeteriaPlace_Products" once the related schema is parsed.
func declaredRelation(name string, rel *schema.Relationship) bool {
	return !strings.HasPrefix(name, "_") && rel.Field != nil && rel.Field.Name == name
}
