package form

import (
	"github.com/bitechdev/ResolveGrid/pkg/common"
)

// FlattenJoined returns a FormDataMapper copying nested joined values onto flat fields.
// paths maps the flat field to the dot path it is read from, for example
// {"PlaceId": "CafeteriaPlace.PlaceID"}. Flat fields whose path is missing are left unset.
func FlattenJoined(paths map[string]string) func(raw common.Record) common.Record {
	return func(raw common.Record) common.Record {
		out := raw.Clone()
		for flat, path := range paths {
			if v, ok := raw.Get(path); ok {
				out[flat] = v
			}
		}
		return out
	}
}
