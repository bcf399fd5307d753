package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

// normalize maps a UI filter onto a backend condition:
// equals on temporal columns becomes a [v, v] between, startsWith becomes begins on
// enum, list and location filters and contains elsewhere, remaining equals become is,
// and a scalar between is widened to [v, v].
func normalize(col metadata.Column, f Filter) (common.SearchCondition, error) {
	cond := common.SearchCondition{
		Field: col.BackendField(),
		Value: f.Value,
		Type:  string(col.Searchable),
	}

	temporal := col.Kind().IsTemporal() ||
		col.Searchable == metadata.SearchDate || col.Searchable == metadata.SearchDateTime

	switch strings.ToLower(f.Operator) {
	case "", strings.ToLower(UIEquals), UIIs, "=", "eq":
		if temporal {
			cond.Operator = common.OpBetween
		} else {
			cond.Operator = common.OpIs
		}
	case strings.ToLower(UIStartsWith), UIBegins, "beginswith":
		if col.Searchable.IsPrefixMatched() {
			cond.Operator = common.OpBegins
		} else {
			cond.Operator = common.OpContains
		}
	case UIContains, "like":
		cond.Operator = common.OpContains
	case UIBetween:
		cond.Operator = common.OpBetween
	default:
		return cond, fmt.Errorf("unsupported operator %q", f.Operator)
	}

	if cond.Operator == common.OpBetween {
		pair, err := widen(f.Value)
		if err != nil {
			return cond, err
		}
		cond.Value = pair
	}

	return cond, nil
}

// widen returns a two element range for a between condition.
func widen(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("between needs a value")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []interface{}{v, v}, nil
	}
	switch rv.Len() {
	case 1:
		x := rv.Index(0).Interface()
		return []interface{}{x, x}, nil
	case 2:
		return []interface{}{rv.Index(0).Interface(), rv.Index(1).Interface()}, nil
	default:
		return nil, fmt.Errorf("between needs one or two values, got %d", rv.Len())
	}
}
