// Package grid is the orchestrator a page instantiates: it owns the query state, the
// rendered rows, the selection and the one open form, and routes toolbar actions.
package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/datasource"
	"github.com/bitechdev/ResolveGrid/pkg/form"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
	"github.com/bitechdev/ResolveGrid/pkg/query"
	"github.com/bitechdev/ResolveGrid/pkg/render"
)

var (
	ErrNoDataSource = errors.New("no data source configured")
	ErrFormOpen     = form.ErrFormOpen
)

// DeleteFunc removes the records with the given ids in one batch.
type DeleteFunc func(ctx context.Context, ids []interface{}) (common.DeleteResult, error)

// Notifier surfaces messages to the user.
type Notifier interface {
	Warn(msg string)
	Error(msg string)
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, msg string) bool
}

type Config struct {
	Grid       *metadata.GridConfig
	DataSource datasource.DataSource
	OnSave     form.SaveFunc
	OnDelete   DeleteFunc
	Options    form.OptionLoader
	LoadRecord form.RecordLoader
	Notifier   Notifier
	Confirmer  Confirmer
	Render     render.Options
}

// Engine is one grid instance. It is safe for concurrent use.
type Engine struct {
	id       string
	conf     Config
	grid     *metadata.GridConfig
	builder  *query.Builder
	renderer *render.Renderer
	source   datasource.SafeSource
	form     *form.Form
	flight   singleflight.Group

	mu       sync.Mutex
	state    query.State
	issued   uint64
	applied  uint64
	pending  map[uint64]bool
	held     *loaded
	inflight int
	view     render.View
	selected []interface{}
}

// loaded is a completed reload waiting for a newer pending one.
type loaded struct {
	seq      uint64
	params   common.QueryParams
	resp     common.GridResponse
	warnings []query.Warning
}

// New validates the grid metadata and builds an engine. No data is loaded until Reload.
func New(ctx context.Context, conf Config) (*Engine, error) {
	if conf.Grid == nil {
		return nil, fmt.Errorf("%w: no grid config", metadata.ErrInvalidMetadata)
	}
	if err := conf.Grid.Validate(); err != nil {
		return nil, err
	}
	if conf.DataSource == nil {
		return nil, fmt.Errorf("grid %s: %w", conf.Grid.Name, ErrNoDataSource)
	}
	if conf.Notifier == nil {
		conf.Notifier = LogNotifier{}
	}

	renderer, err := render.NewRenderer(ctx, conf.Grid, conf.Render)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:       uuid.NewString(),
		conf:     conf,
		grid:     conf.Grid,
		builder:  query.NewBuilder(conf.Grid),
		renderer: renderer,
		source:   datasource.Safe(conf.DataSource),
		pending:  make(map[uint64]bool),
		state:    query.State{Page: 1, Limit: conf.Grid.PageSize()},
	}
	e.form = form.New(conf.Grid, form.Config{
		Options:    conf.Options,
		LoadRecord: conf.LoadRecord,
		OnSave:     conf.OnSave,
		OnSaved: func(ctx context.Context, _ common.SaveResult) {
			if _, err := e.Reload(ctx); err != nil {
				logger.Warn("Grid %s: reload after save failed: %v", e.grid.Name, err)
			}
		},
	})
	return e, nil
}

// MustNew is New for metadata known to be valid; it panics otherwise.
func MustNew(ctx context.Context, conf Config) *Engine {
	e, err := New(ctx, conf)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) ID() string {
	return e.id
}

func (e *Engine) Grid() *metadata.GridConfig {
	return e.grid
}

func (e *Engine) Renderer() *render.Renderer {
	return e.renderer
}

func (e *Engine) Form() *form.Form {
	return e.form
}

// State returns a copy of the current query state.
func (e *Engine) State() query.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	s.Filters = append([]query.Filter(nil), e.state.Filters...)
	s.Sort = append([]common.SortOption(nil), e.state.Sort...)
	if e.state.Joins != nil {
		s.Joins = make(map[string]bool, len(e.state.Joins))
		for k, v := range e.state.Joins {
			s.Joins[k] = v
		}
	}
	return s
}

// View returns the last applied view with the current selection marked.
func (e *Engine) View() render.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markSelected(e.view)
}

// Loading reports whether a reload is in flight.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight > 0
}

// Reload fetches the page described by the current state. Identical reloads already in
// flight are joined rather than repeated. A response is applied unless a newer reload was
// applied or is still pending; either way the engine's latest view is returned. When the
// newest reload is cancelled, the newest completed response still pending application is
// applied instead.
func (e *Engine) Reload(ctx context.Context) (render.View, error) {
	e.mu.Lock()
	params, warnings := e.builder.Build(e.state)
	e.issued++
	seq := e.issued
	e.pending[seq] = true
	e.inflight++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inflight--
		e.mu.Unlock()
	}()

	logger.Debug("Grid %s (%s): reload #%d page %d", e.grid.Name, e.id, seq, params.Page)

	ch := e.flight.DoChan(params.Key(), func() (interface{}, error) {
		return e.source(context.WithoutCancel(ctx), params), nil
	})

	var resp common.GridResponse
	select {
	case <-ctx.Done():
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.pending, seq)
		if e.held != nil && !e.newerPending(e.held.seq) {
			logger.Debug("Grid %s: reload #%d cancelled, applying #%d", e.grid.Name, seq, e.held.seq)
			e.apply(*e.held)
		}
		return e.markSelected(e.view), ctx.Err()
	case res := <-ch:
		resp = res.Val.(common.GridResponse)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, seq)
	done := loaded{seq: seq, params: params, resp: resp, warnings: warnings}
	switch {
	case seq < e.applied:
		logger.Debug("Grid %s: discarding reload #%d, #%d is applied", e.grid.Name, seq, e.applied)
	case e.newerPending(seq):
		logger.Debug("Grid %s: holding reload #%d, a newer one is pending", e.grid.Name, seq)
		if e.held == nil || e.held.seq < seq {
			e.held = &done
		}
	default:
		e.apply(done)
	}
	return e.markSelected(e.view), nil
}

func (e *Engine) newerPending(seq uint64) bool {
	for s := range e.pending {
		if s > seq {
			return true
		}
	}
	return false
}

// apply renders l as the current view. Callers hold e.mu.
func (e *Engine) apply(l loaded) {
	view := e.renderer.Render(l.resp, l.params)
	for _, w := range l.warnings {
		view.Warnings = append(view.Warnings, w.String())
	}
	e.applied = l.seq
	if e.held != nil && e.held.seq <= l.seq {
		e.held = nil
	}
	e.view = view
	e.pruneSelection()
}

func (e *Engine) update(ctx context.Context, fn func(s *query.State)) (render.View, error) {
	e.mu.Lock()
	fn(&e.state)
	e.mu.Unlock()
	return e.Reload(ctx)
}

func (e *Engine) SetPage(ctx context.Context, page int) (render.View, error) {
	return e.update(ctx, func(s *query.State) { s.Page = page })
}

func (e *Engine) SetLimit(ctx context.Context, limit int) (render.View, error) {
	return e.update(ctx, func(s *query.State) {
		s.Limit = limit
		s.Page = 1
	})
}

// SetSearch replaces the active filters and returns to the first page.
func (e *Engine) SetSearch(ctx context.Context, filters []query.Filter, logic string) (render.View, error) {
	return e.update(ctx, func(s *query.State) {
		s.Filters = append([]query.Filter(nil), filters...)
		s.SearchLogic = logic
		s.SearchAll = ""
		s.Page = 1
	})
}

// SetSearchAll searches text over every text searchable column.
func (e *Engine) SetSearchAll(ctx context.Context, text string) (render.View, error) {
	return e.update(ctx, func(s *query.State) {
		s.SearchAll = text
		s.Page = 1
	})
}

// SetSort toggles the sort on field, as a header click does.
func (e *Engine) SetSort(ctx context.Context, field string) (render.View, error) {
	e.mu.Lock()
	next, err := e.renderer.ToggleSort(e.state.Sort, field)
	if err != nil {
		e.mu.Unlock()
		return e.View(), err
	}
	e.state.Sort = next
	e.mu.Unlock()
	return e.Reload(ctx)
}

// SetJoins records explicit join choices. Joins not mentioned keep their default.
func (e *Engine) SetJoins(ctx context.Context, joins map[string]bool) (render.View, error) {
	return e.update(ctx, func(s *query.State) {
		if s.Joins == nil {
			s.Joins = make(map[string]bool, len(joins))
		}
		for k, v := range joins {
			s.Joins[k] = v
		}
	})
}

func (e *Engine) SetShowDeleted(ctx context.Context, show bool) (render.View, error) {
	return e.update(ctx, func(s *query.State) {
		s.ShowDeleted = show
		s.Page = 1
	})
}

// OpenAddForm opens the form for a new record.
func (e *Engine) OpenAddForm(ctx context.Context) error {
	return e.form.OpenAdd(ctx)
}

// OpenEditForm opens the form for record, identified by the grid's record id field.
func (e *Engine) OpenEditForm(ctx context.Context, record common.Record) error {
	recid, _ := record.Get(e.grid.RecIDField())
	return e.form.OpenEdit(ctx, recid, record)
}

// SubmitForm saves the open form. On success the grid reloads with its state preserved.
func (e *Engine) SubmitForm(ctx context.Context) (common.SaveResult, error) {
	res, err := e.form.Submit(ctx)
	if err == nil && res.Error {
		e.conf.Notifier.Error(res.Message)
	}
	return res, err
}

func (e *Engine) CloseForm() {
	e.form.Close()
}
