package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

type fakeLoader struct {
	mu    sync.Mutex
	calls []string
	fn    func(url string) ([]common.Option, error)
}

func (l *fakeLoader) LoadOptions(_ context.Context, spec *metadata.LoadSpec, data common.Record) ([]common.Option, error) {
	url := spec.ResolveURL(data)
	l.mu.Lock()
	l.calls = append(l.calls, url)
	l.mu.Unlock()
	return l.fn(url)
}

func (l *fakeLoader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// alarmGrid has a Field select whose options depend on the chosen Source.
func alarmGrid() *metadata.GridConfig {
	return &metadata.GridConfig{
		Name:  "alarms",
		RecID: "Id",
		Columns: []metadata.Column{
			{Field: "Id", Type: metadata.TypeInt},
			{Field: "Name", Required: true},
			{Field: "Kind", Type: metadata.TypeList, Default: "threshold"},
			{Field: "Source", Type: metadata.TypeList, Load: &metadata.LoadSpec{URL: "/sources"}},
			{Field: "Field", Type: metadata.TypeList, Load: &metadata.LoadSpec{
				URLFunc:   func(data common.Record) string { return "/fields?source=" + data.String("Source") },
				DependsOn: []string{"Source"},
			}},
			{Field: "Limit", Type: metadata.TypeFloat, Disabled: func(data common.Record) bool {
				return data.String("Kind") != "threshold"
			}},
		},
		FormFields: []string{"Name", "Kind", "Source", "Field", "Limit"},
	}
}

func alarmLoader() *fakeLoader {
	return &fakeLoader{fn: func(url string) ([]common.Option, error) {
		switch url {
		case "/sources":
			return []common.Option{{ID: "A", Text: "Source A"}, {ID: "B", Text: "Source B"}}, nil
		case "/fields?source=A":
			return []common.Option{{ID: "temp", Text: "Temperature"}, {ID: "hum", Text: "Humidity"}}, nil
		case "/fields?source=B":
			return []common.Option{{ID: "hum", Text: "Humidity"}, {ID: "co2", Text: "CO2"}}, nil
		}
		return []common.Option{}, nil
	}}
}

func TestOpenAdd_DefaultsAndParallelLoads(t *testing.T) {
	loader := alarmLoader()
	f := New(alarmGrid(), Config{Options: loader})

	require.NoError(t, f.OpenAdd(context.Background()))
	assert.Equal(t, StateEditing, f.State())
	assert.False(t, f.IsEdit())
	assert.Equal(t, "threshold", f.Value("Kind"))
	assert.Len(t, f.Options("Source"), 2)
	assert.ElementsMatch(t, []string{"/sources", "/fields?source="}, loader.Calls())

	assert.ErrorIs(t, f.OpenAdd(context.Background()), ErrFormOpen)
}

func TestSetValue_DependentReloadClearsStaleValue(t *testing.T) {
	ctx := context.Background()
	loader := alarmLoader()
	f := New(alarmGrid(), Config{Options: loader})
	require.NoError(t, f.OpenEdit(ctx, 3, common.Record{"Id": 3, "Name": "Hot", "Kind": "threshold", "Source": "A", "Field": "temp"}))
	assert.Len(t, f.Options("Field"), 2)
	before := len(loader.Calls())

	require.NoError(t, f.SetValue(ctx, "Source", "B"))

	calls := loader.Calls()[before:]
	assert.Equal(t, []string{"/fields?source=B"}, calls)
	assert.Nil(t, f.Value("Field"))
	assert.Equal(t, []common.Option{{ID: "hum", Text: "Humidity"}, {ID: "co2", Text: "CO2"}}, f.Options("Field"))
}

func TestSetValue_DependentValueKeptWhenStillValid(t *testing.T) {
	ctx := context.Background()
	f := New(alarmGrid(), Config{Options: alarmLoader()})
	require.NoError(t, f.OpenEdit(ctx, 3, common.Record{"Id": 3, "Source": "A", "Field": "hum"}))

	require.NoError(t, f.SetValue(ctx, "Source", "B"))
	assert.Equal(t, "hum", f.Value("Field"))
}

func TestSetValue_UnchangedValueDoesNotReload(t *testing.T) {
	ctx := context.Background()
	loader := alarmLoader()
	f := New(alarmGrid(), Config{Options: loader})
	require.NoError(t, f.OpenEdit(ctx, 3, common.Record{"Id": 3, "Source": "A"}))
	before := len(loader.Calls())

	require.NoError(t, f.SetValue(ctx, "Source", "A"))
	require.NoError(t, f.SetValue(ctx, "Name", "x"))
	assert.Len(t, loader.Calls(), before)
}

func TestDisabledIsReevaluated(t *testing.T) {
	ctx := context.Background()
	f := New(alarmGrid(), Config{})
	require.NoError(t, f.OpenAdd(ctx))

	assert.False(t, f.IsDisabled("Limit"))
	require.NoError(t, f.SetValue(ctx, "Limit", 40))

	require.NoError(t, f.SetValue(ctx, "Kind", "offline"))
	assert.True(t, f.IsDisabled("Limit"))
	assert.ErrorIs(t, f.SetValue(ctx, "Limit", 50), ErrFieldDisabled)

	for _, field := range f.Fields() {
		if field.Name == "Limit" {
			assert.True(t, field.Disabled)
		}
	}
	assert.ErrorIs(t, f.SetValue(ctx, "Nope", 1), ErrUnknownField)
}

func TestSubmit_ErrorKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	saved := 0
	f := New(alarmGrid(), Config{
		OnSave: func(context.Context, common.Record, bool) (common.SaveResult, error) {
			return common.SaveResult{Error: true, Message: "Duplicate name"}, nil
		},
		OnSaved: func(context.Context, common.SaveResult) { saved++ },
	})
	require.NoError(t, f.OpenAdd(ctx))
	require.NoError(t, f.SetValue(ctx, "Name", "Hot"))

	res, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, res.Error)
	assert.Equal(t, StateEditingWithError, f.State())
	assert.Equal(t, "Duplicate name", f.Message())
	assert.Equal(t, "Hot", f.Value("Name"))
	assert.Equal(t, 0, saved)
}

func TestSubmit_SuccessClosesAndNotifies(t *testing.T) {
	ctx := context.Background()
	var got common.Record
	var gotEdit bool
	saved := 0
	f := New(alarmGrid(), Config{
		OnSave: func(_ context.Context, data common.Record, isEdit bool) (common.SaveResult, error) {
			got, gotEdit = data, isEdit
			return common.SaveResult{Record: data}, nil
		},
		OnSaved: func(context.Context, common.SaveResult) { saved++ },
	})
	require.NoError(t, f.OpenEdit(ctx, 9, common.Record{"Name": "Cold"}))

	res, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.False(t, res.Error)
	assert.True(t, gotEdit)
	assert.Equal(t, 9, got["Id"])
	assert.Equal(t, StateClosed, f.State())
	assert.Equal(t, 1, saved)
}

func TestSubmit_RequiredFields(t *testing.T) {
	ctx := context.Background()
	called := false
	f := New(alarmGrid(), Config{OnSave: func(context.Context, common.Record, bool) (common.SaveResult, error) {
		called = true
		return common.SaveResult{}, nil
	}})
	require.NoError(t, f.OpenAdd(ctx))

	res, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, res.Error)
	assert.Contains(t, f.Message(), "Name")
	assert.Equal(t, StateEditingWithError, f.State())
	assert.False(t, called)
}

func TestSubmit_SecondSubmitWhileSaving(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	f := New(alarmGrid(), Config{OnSave: func(context.Context, common.Record, bool) (common.SaveResult, error) {
		calls++
		close(started)
		<-release
		return common.SaveResult{}, nil
	}})
	require.NoError(t, f.OpenAdd(ctx))
	require.NoError(t, f.SetValue(ctx, "Name", "Hot"))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx)
		done <- err
	}()
	<-started

	assert.Equal(t, StateSaving, f.State())
	assert.True(t, f.IsDisabled("Name"))
	_, err := f.Submit(ctx)
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("save did not finish")
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateClosed, f.State())
}

func TestSubmit_TransportErrorIsSaveError(t *testing.T) {
	ctx := context.Background()
	f := New(alarmGrid(), Config{OnSave: func(context.Context, common.Record, bool) (common.SaveResult, error) {
		return common.SaveResult{}, errors.New("connection reset")
	}})
	require.NoError(t, f.OpenEdit(ctx, 1, common.Record{"Name": "x"}))

	res, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, res.Error)
	assert.Equal(t, "connection reset", f.Message())
	assert.Equal(t, StateEditingWithError, f.State())
}

func TestOpenEdit_FormLoadAndMapper(t *testing.T) {
	ctx := context.Background()
	grid := &metadata.GridConfig{
		Name:         "cafeteriaProducts",
		RecID:        "Id",
		FormLoadURL:  "/cafeteria/products",
		FormLoadName: "CafeteriaProduct",
		Columns: []metadata.Column{
			{Field: "Id"}, {Field: "Name"}, {Field: "PlaceId", Type: metadata.TypeList},
		},
		FormDataMapper: FlattenJoined(map[string]string{"PlaceId": "CafeteriaPlace.PlaceID"}),
	}
	var env common.Envelope
	f := New(grid, Config{LoadRecord: func(_ context.Context, e common.Envelope) (common.Record, error) {
		env = e
		return common.Record{"Id": 4, "Name": "Tea", "CafeteriaPlace": map[string]interface{}{"PlaceID": 12}}, nil
	}})

	require.NoError(t, f.OpenEdit(ctx, 4, common.Record{"Id": 4, "Name": "stale"}))
	assert.Equal(t, common.ActionGetRecord, env.Request.Action)
	assert.Equal(t, "CafeteriaProduct", env.Request.Name)
	assert.Equal(t, 4, env.Request.Recid)
	assert.Equal(t, 12, f.Value("PlaceId"))
	assert.Equal(t, "Tea", f.Value("Name"))
}

func TestOpenEdit_LoadFailureCloses(t *testing.T) {
	grid := &metadata.GridConfig{Name: "g", FormLoadURL: "/x", Columns: []metadata.Column{{Field: "id"}}}
	f := New(grid, Config{LoadRecord: func(context.Context, common.Envelope) (common.Record, error) {
		return nil, errors.New("gone")
	}})

	assert.Error(t, f.OpenEdit(context.Background(), 1, nil))
	assert.Equal(t, StateClosed, f.State())
	require.NoError(t, f.OpenAdd(context.Background()))
}

func TestOptionLoadFailureLeavesEmptyList(t *testing.T) {
	loader := &fakeLoader{fn: func(string) ([]common.Option, error) { return nil, errors.New("503") }}
	f := New(alarmGrid(), Config{Options: loader})

	require.NoError(t, f.OpenAdd(context.Background()))
	assert.Equal(t, StateEditing, f.State())
	assert.NotNil(t, f.Options("Source"))
	assert.Empty(t, f.Options("Source"))
}

func TestFlattenJoined(t *testing.T) {
	mapper := FlattenJoined(map[string]string{
		"PlaceId": "CafeteriaPlace.PlaceID",
		"MenuId":  "CafeteriaPlace.Menu.Id",
	})
	raw := common.Record{"Id": 1, "CafeteriaPlace": map[string]interface{}{"PlaceID": float64(5)}}

	out := mapper(raw)
	assert.Equal(t, float64(5), out["PlaceId"])
	_, ok := out["MenuId"]
	assert.False(t, ok)
	_, ok = raw["PlaceId"]
	assert.False(t, ok)
}
