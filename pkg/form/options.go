package form

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

const maxParallelLoads = 4

// loadable returns the form fields that declare a load spec.
func (f *Form) loadable() []metadata.Column {
	out := make([]metadata.Column, 0)
	for _, name := range f.grid.FormFieldNames() {
		if col, ok := f.grid.Column(name); ok && col.Load != nil {
			out = append(out, col)
		}
	}
	return out
}

// fetch runs one load. Load failures leave the field with an empty option list; only
// cancellation is returned.
func (f *Form) fetch(ctx context.Context, col metadata.Column, data common.Record) ([]common.Option, error) {
	if f.conf.Options == nil {
		return col.Load.MapRecords(nil), nil
	}
	opts, err := f.conf.Options.LoadOptions(ctx, col.Load, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Loading options of %s.%s failed: %v", f.grid.Name, col.Field, err)
		return []common.Option{}, nil
	}
	if opts == nil {
		opts = []common.Option{}
	}
	return opts, nil
}

// loadAll resolves every load spec in parallel.
func (f *Form) loadAll(ctx context.Context, gen uint64, data common.Record) error {
	cols := f.loadable()
	if len(cols) == 0 {
		return nil
	}

	var mu sync.Mutex
	results := make(map[string][]common.Option, len(cols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for _, col := range cols {
		col := col
		g.Go(func() error {
			opts, err := f.fetch(gctx, col, data)
			if err != nil {
				return err
			}
			mu.Lock()
			results[col.Field] = opts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return nil
	}
	for field, opts := range results {
		f.options[field] = opts
	}
	return nil
}

// cascade re-runs the loads depending on changed. Clearing a dependent value counts as a
// change of that field, so chains of dependencies settle in one call.
func (f *Form) cascade(ctx context.Context, gen uint64, changed string) error {
	queue := []string{changed}
	visited := map[string]bool{}

	for len(queue) > 0 {
		field := queue[0]
		queue = queue[1:]
		if visited[field] {
			continue
		}
		visited[field] = true

		for _, col := range f.loadable() {
			if !col.Load.DependsOnField(field) {
				continue
			}
			cleared, err := f.reload(ctx, gen, col)
			if err != nil {
				return err
			}
			if cleared {
				queue = append(queue, col.Field)
			}
		}
	}
	return nil
}

// reload refreshes the options of col and reports whether its value was cleared.
// A reload superseded by a newer one for the same field is discarded.
func (f *Form) reload(ctx context.Context, gen uint64, col metadata.Column) (bool, error) {
	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		return false, ErrNotEditing
	}
	f.loadSeq[col.Field]++
	seq := f.loadSeq[col.Field]
	data := f.data.Clone()
	f.mu.Unlock()

	opts, err := f.fetch(ctx, col, data)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen || f.loadSeq[col.Field] != seq {
		return false, nil
	}
	f.options[col.Field] = opts

	current, ok := f.data.Get(col.Field)
	if !ok || current == nil || common.ToString(current) == "" {
		return false, nil
	}
	for _, o := range opts {
		if common.SameValue(o.ID, current) {
			return false, nil
		}
	}
	f.data.Set(col.Field, nil)
	return true, nil
}
