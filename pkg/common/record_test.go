package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestRecord_Get(t *testing.T) {
	rec := decodeRecord(t, `{
		"Id": 7,
		"Name": "Tea",
		"CafeteriaPlace": {"PlaceID": 3, "Place": {"Name": "Lobby"}},
		"Prices": [{"Amount": 1.5}, {"Amount": 2}],
		"Note": null
	}`)

	v, ok := rec.Get("CafeteriaPlace.Place.Name")
	assert.True(t, ok)
	assert.Equal(t, "Lobby", v)

	v, ok = rec.Get("Prices.1.Amount")
	assert.True(t, ok)
	assert.Equal(t, float64(2), v)

	_, ok = rec.Get("CafeteriaPlace.Missing")
	assert.False(t, ok)
	_, ok = rec.Get("Prices.9.Amount")
	assert.False(t, ok)
	_, ok = rec.Get("Name.Deeper")
	assert.False(t, ok)

	assert.Equal(t, "7", rec.String("Id"))
	assert.Equal(t, "", rec.String("Note"))
	assert.Equal(t, "", rec.String("Nothing.Here"))
	assert.Equal(t, "", Record(nil).String("Id"))
}

func TestRecord_Set(t *testing.T) {
	rec := Record{}
	rec.Set("Place.Id", 4)
	rec.Set("Name", "Coffee")

	v, ok := rec.Get("Place.Id")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	assert.Equal(t, "Coffee", rec.String("Name"))
}

func TestToInt64(t *testing.T) {
	for _, in := range []interface{}{5, int64(5), float64(5), "5", " 5 "} {
		got, ok := ToInt64(in)
		assert.True(t, ok, "%v", in)
		assert.Equal(t, int64(5), got)
	}
	_, ok := ToInt64("five")
	assert.False(t, ok)
	_, ok = ToInt64(nil)
	assert.False(t, ok)
}

func TestSameValue(t *testing.T) {
	assert.True(t, SameValue(3, float64(3)))
	assert.True(t, SameValue("3", 3))
	assert.False(t, SameValue("3", 4))
	assert.True(t, SameValue(nil, nil))
	assert.False(t, SameValue(nil, 0))
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse("boom")
	assert.True(t, resp.IsError())
	assert.Equal(t, int64(0), resp.Total)
	assert.NotNil(t, resp.Records)
	assert.Empty(t, resp.Records)
}

func TestParseDateTime(t *testing.T) {
	tm, err := ParseDateTime("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 2024, tm.Year())

	tm, err = ParseDateTime("05.03.2024 14:30")
	require.NoError(t, err)
	assert.Equal(t, 14, tm.Hour())

	_, err = ParseDateTime("not a date")
	assert.Error(t, err)
}
