package metadata

import (
	"github.com/bitechdev/ResolveGrid/pkg/common"
)

// LoadSpec describes where a form field's options come from.
type LoadSpec struct {
	URL        string
	URLFunc    func(data common.Record) string
	Method     string
	Data       interface{}
	DataFunc   func(data common.Record) interface{}
	Map        func(records []common.Record) []common.Option
	InjectAuth bool
	// DependsOn lists the form fields whose change re-runs this load.
	DependsOn []string
}

// ResolveURL returns the URL for the given form data.
func (l *LoadSpec) ResolveURL(data common.Record) string {
	if l.URLFunc != nil {
		return l.URLFunc(data)
	}
	return l.URL
}

// ResolveData returns the request payload for the given form data.
func (l *LoadSpec) ResolveData(data common.Record) interface{} {
	if l.DataFunc != nil {
		return l.DataFunc(data)
	}
	return l.Data
}

// IsDynamic reports whether the load depends on form data.
func (l *LoadSpec) IsDynamic() bool {
	return l.URLFunc != nil || l.DataFunc != nil
}

// MapRecords applies Map. Nil or empty input yields an empty, non-nil list.
func (l *LoadSpec) MapRecords(records []common.Record) []common.Option {
	if len(records) == 0 {
		return []common.Option{}
	}
	if l.Map == nil {
		return DefaultOptionMap(records)
	}
	out := l.Map(records)
	if out == nil {
		return []common.Option{}
	}
	return out
}

// DependsOnField reports whether a change of field should re-run the load.
func (l *LoadSpec) DependsOnField(field string) bool {
	for _, dep := range l.DependsOn {
		if dep == field {
			return true
		}
	}
	return false
}

// DefaultOptionMap reads Id/id and Name/name/text from each record.
func DefaultOptionMap(records []common.Record) []common.Option {
	out := make([]common.Option, 0, len(records))
	for _, rec := range records {
		id, ok := rec.Get("Id")
		if !ok {
			id, _ = rec.Get("id")
		}
		text := rec.String("Name")
		if text == "" {
			text = rec.String("name")
		}
		if text == "" {
			text = rec.String("text")
		}
		out = append(out, common.Option{ID: id, Text: text})
	}
	return out
}
