// Package form implements the add/edit surface of a grid: a state machine from open
// through async option loading and editing to save.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

type State int

const (
	StateClosed State = iota
	StateLoading
	StateEditing
	StateSaving
	StateEditingWithError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateEditingWithError:
		return "editing-with-error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrFormOpen       = errors.New("form is already open")
	ErrNotEditing     = errors.New("form is not in an editable state")
	ErrSaveInProgress = errors.New("save already in progress")
	ErrUnknownField   = errors.New("unknown form field")
	ErrFieldDisabled  = errors.New("field is disabled")
	ErrNoSaveHandler  = errors.New("no save handler configured")
)

// OptionLoader resolves a field's option list. datasource.RESTClient implements it.
type OptionLoader interface {
	LoadOptions(ctx context.Context, spec *metadata.LoadSpec, data common.Record) ([]common.Option, error)
}

// RecordLoader fetches the raw record for edit when the grid declares FormLoadURL.
type RecordLoader func(ctx context.Context, env common.Envelope) (common.Record, error)

// SaveFunc persists form data. isEdit is false for add.
type SaveFunc func(ctx context.Context, data common.Record, isEdit bool) (common.SaveResult, error)

type Config struct {
	Options    OptionLoader
	LoadRecord RecordLoader
	OnSave     SaveFunc
	// OnSaved runs after a successful save, with the form already closed.
	OnSaved func(ctx context.Context, result common.SaveResult)
}

// Field is the view of one form input.
type Field struct {
	Name     string
	Label    string
	Type     metadata.ColumnType
	Value    interface{}
	Options  []common.Option
	Disabled bool
	Required bool
}

// Form is one add/edit surface. It is safe for concurrent use.
type Form struct {
	grid *metadata.GridConfig
	conf Config

	mu      sync.Mutex
	state   State
	isEdit  bool
	recid   interface{}
	data    common.Record
	options map[string][]common.Option
	message string
	// generation changes on every open and close so late loads from an earlier
	// session are dropped.
	generation uint64
	loadSeq    map[string]uint64
}

func New(grid *metadata.GridConfig, conf Config) *Form {
	return &Form{
		grid:    grid,
		conf:    conf,
		options: make(map[string][]common.Option),
		loadSeq: make(map[string]uint64),
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) IsEdit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isEdit
}

func (f *Form) RecID() interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recid
}

// Message is the error of the last failed save.
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Data returns a copy of the current form data.
func (f *Form) Data() common.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.Clone()
}

func (f *Form) Value(field string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := f.data.Get(field)
	return v
}

func (f *Form) Options(field string) []common.Option {
	f.mu.Lock()
	defer f.mu.Unlock()
	src := f.options[field]
	out := make([]common.Option, len(src))
	copy(out, src)
	return out
}

// OpenAdd opens the form with the declared column defaults.
func (f *Form) OpenAdd(ctx context.Context) error {
	data := common.Record{}
	for _, name := range f.grid.FormFieldNames() {
		if col, ok := f.grid.Column(name); ok && col.Default != nil {
			data.Set(name, col.Default)
		}
	}
	gen, err := f.begin(false, nil)
	if err != nil {
		return err
	}
	return f.populate(ctx, gen, data)
}

// OpenEdit opens the form for record. With FormLoadURL declared the record is fetched
// again through the record loader. Either way FormDataMapper shapes the form data.
func (f *Form) OpenEdit(ctx context.Context, recid interface{}, record common.Record) error {
	gen, err := f.begin(true, recid)
	if err != nil {
		return err
	}

	raw := record
	if f.grid.FormLoadURL != "" {
		if f.conf.LoadRecord == nil {
			f.abort(gen)
			return fmt.Errorf("grid %s declares a form load URL but no record loader is configured", f.grid.Name)
		}
		raw, err = f.conf.LoadRecord(ctx, f.grid.LoadRequest(recid))
		if err != nil {
			f.abort(gen)
			return fmt.Errorf("failed to load record %v: %w", recid, err)
		}
	}
	if raw == nil {
		raw = common.Record{}
	}
	return f.populate(ctx, gen, f.grid.MapFormData(raw))
}

func (f *Form) begin(isEdit bool, recid interface{}) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateClosed {
		return 0, ErrFormOpen
	}
	f.generation++
	f.state = StateLoading
	f.isEdit = isEdit
	f.recid = recid
	f.data = common.Record{}
	f.options = make(map[string][]common.Option)
	f.message = ""
	return f.generation, nil
}

func (f *Form) abort(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation == gen {
		f.reset()
	}
}

func (f *Form) populate(ctx context.Context, gen uint64, data common.Record) error {
	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		return ErrNotEditing
	}
	f.data = data
	f.mu.Unlock()

	if err := f.loadAll(ctx, gen, data.Clone()); err != nil {
		f.abort(gen)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return ErrNotEditing
	}
	f.state = StateEditing
	return nil
}

// Close discards the form without saving.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Form) reset() {
	f.generation++
	f.state = StateClosed
	f.isEdit = false
	f.recid = nil
	f.data = nil
	f.options = make(map[string][]common.Option)
	f.message = ""
}

func (f *Form) editable() bool {
	return f.state == StateEditing || f.state == StateEditingWithError
}

func (f *Form) isFormField(field string) bool {
	for _, name := range f.grid.FormFieldNames() {
		if name == field {
			return true
		}
	}
	return false
}

// IsDisabled evaluates the field's Disabled predicate against the current data.
// Every field is disabled while a save is in flight.
func (f *Form) IsDisabled(field string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disabled(field)
}

func (f *Form) disabled(field string) bool {
	if f.state == StateSaving {
		return true
	}
	col, ok := f.grid.Column(field)
	if !ok || col.Disabled == nil {
		return false
	}
	return col.Disabled(f.data.Clone())
}

// Fields returns the form inputs in form order.
func (f *Form) Fields() []Field {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := f.grid.FormFieldNames()
	out := make([]Field, 0, len(names))
	for _, name := range names {
		col, ok := f.grid.Column(name)
		if !ok {
			col = metadata.Column{Field: name}
		}
		v, _ := f.data.Get(name)
		opts := f.options[name]
		if opts == nil {
			opts = col.Options
		}
		out = append(out, Field{
			Name:     name,
			Label:    col.Caption(),
			Type:     col.Kind(),
			Value:    v,
			Options:  opts,
			Disabled: f.disabled(name),
			Required: col.Required,
		})
	}
	return out
}

// SetValue changes one field. Loads depending on the field are re-run, and a dependent
// value no longer among its options is cleared.
func (f *Form) SetValue(ctx context.Context, field string, value interface{}) error {
	f.mu.Lock()
	if !f.editable() {
		f.mu.Unlock()
		return ErrNotEditing
	}
	if !f.isFormField(field) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if f.disabled(field) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFieldDisabled, field)
	}
	old, _ := f.data.Get(field)
	f.data.Set(field, value)
	gen := f.generation
	changed := !common.SameValue(old, value)
	f.mu.Unlock()

	if !changed {
		return nil
	}
	return f.cascade(ctx, gen, field)
}

func (f *Form) validate() []string {
	missing := make([]string, 0)
	for _, name := range f.grid.FormFieldNames() {
		col, ok := f.grid.Column(name)
		if !ok || !col.Required || f.disabled(name) {
			continue
		}
		v, _ := f.data.Get(name)
		if strings.TrimSpace(common.ToString(v)) == "" {
			missing = append(missing, col.Caption())
		}
	}
	return missing
}

// Submit saves the form. A failed save keeps the form open with the message and every
// field untouched. A second Submit while saving returns ErrSaveInProgress.
func (f *Form) Submit(ctx context.Context) (common.SaveResult, error) {
	f.mu.Lock()
	if f.state == StateSaving {
		f.mu.Unlock()
		return common.SaveResult{}, ErrSaveInProgress
	}
	if !f.editable() {
		f.mu.Unlock()
		return common.SaveResult{}, ErrNotEditing
	}
	if f.conf.OnSave == nil {
		f.mu.Unlock()
		return common.SaveResult{}, ErrNoSaveHandler
	}
	if missing := f.validate(); len(missing) > 0 {
		f.state = StateEditingWithError
		f.message = "required: " + strings.Join(missing, ", ")
		res := common.SaveResult{Error: true, Message: f.message}
		f.mu.Unlock()
		return res, nil
	}
	f.state = StateSaving
	gen := f.generation
	data := f.data.Clone()
	isEdit := f.isEdit
	if isEdit && f.recid != nil {
		if _, ok := data.Get(f.grid.RecIDField()); !ok {
			data.Set(f.grid.RecIDField(), f.recid)
		}
	}
	f.mu.Unlock()

	res, err := f.conf.OnSave(ctx, data, isEdit)
	if err != nil {
		logger.Error("Save of grid %s failed: %v", f.grid.Name, err)
		res = common.SaveResult{Error: true, Message: err.Error()}
	}

	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		return res, nil
	}
	if res.Error {
		f.state = StateEditingWithError
		f.message = res.Message
		if f.message == "" {
			f.message = "save failed"
		}
		f.mu.Unlock()
		return res, nil
	}
	f.reset()
	f.mu.Unlock()

	if f.conf.OnSaved != nil {
		f.conf.OnSaved(ctx, res)
	}
	return res, nil
}
