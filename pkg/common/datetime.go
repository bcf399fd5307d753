package common

import (
	"time"
)

var dateLayouts = []string{time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"15:04:05.000",
	"15:04:05",
	"15:04"}

// ParseDateTime tries the layouts the backend and date pickers are known to produce.
func ParseDateTime(str string) (time.Time, error) {
	var lasterror error
	for _, f := range dateLayouts {
		tx, err := time.Parse(f, str)
		if err == nil {
			return tx, nil
		}
		lasterror = err
	}

	return time.Time{}, lasterror
}

func ToJSONDT(dt time.Time) string {
	return dt.Format(time.RFC3339)
}
