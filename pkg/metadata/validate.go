package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitechdev/ResolveGrid/pkg/common"
)

var ErrInvalidMetadata = errors.New("invalid grid metadata")

// Validate checks the declared metadata for programming errors. All problems are
// reported together, wrapped in ErrInvalidMetadata.
func (g *GridConfig) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	fields := make(map[string]bool, len(g.Columns))
	for i, c := range g.Columns {
		if strings.TrimSpace(c.Field) == "" {
			fail("column %d has no field", i)
			continue
		}
		if fields[c.Field] {
			fail("duplicate column %q", c.Field)
		}
		fields[c.Field] = true

		if c.Type != "" && !c.Type.Valid() {
			fail("column %q has unknown type %q", c.Field, c.Type)
		}
		if c.Width < 0 {
			fail("column %q has negative width", c.Field)
		}
		for _, jt := range c.JoinTable {
			if _, ok := g.Join(jt); !ok {
				fail("column %q depends on undeclared join %q", c.Field, jt)
			}
		}
		if c.Load != nil {
			if c.Load.URL == "" && c.Load.URLFunc == nil {
				fail("column %q load has no url", c.Field)
			}
			if c.Load.IsDynamic() && len(c.Load.DependsOn) == 0 {
				fail("column %q load is a function of form data but declares no dependencies", c.Field)
			}
		}
	}

	for _, c := range g.Columns {
		if c.Load == nil {
			continue
		}
		for _, dep := range c.Load.DependsOn {
			if !fields[dep] {
				fail("column %q load depends on unknown field %q", c.Field, dep)
			}
			if dep == c.Field {
				fail("column %q load depends on itself", c.Field)
			}
		}
	}

	errs = append(errs, g.validateJoins()...)

	for _, f := range g.FormFields {
		if !fields[f] {
			fail("form field %q is not a column", f)
		}
	}
	for _, tab := range g.FormTabs {
		if len(tab.Fields) > 0 && len(tab.Grids) > 0 {
			fail("form tab %q declares both fields and grids", tab.Label)
		}
		for _, f := range tab.Fields {
			if !fields[f] {
				fail("form tab %q field %q is not a column", tab.Label, f)
			}
		}
		for _, sg := range tab.Grids {
			if sg.ParentField == "" {
				fail("sub grid %q in tab %q has no parent field", sg.Name, tab.Label)
			}
			if sg.Config == nil {
				fail("sub grid %q in tab %q has no config", sg.Name, tab.Label)
				continue
			}
			if err := sg.Config.Validate(); err != nil {
				fail("sub grid %q: %w", sg.Name, err)
			}
		}
	}

	if g.SearchLogic != "" && g.SearchLogic != common.LogicAnd && g.SearchLogic != common.LogicOr {
		fail("search logic must be AND or OR, got %q", g.SearchLogic)
	}
	if g.Limit < 0 {
		fail("negative limit %d", g.Limit)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrInvalidMetadata, g.Name, errors.Join(errs...))
}

// validateJoins enforces that join options form a tree.
func (g *GridConfig) validateJoins() []error {
	var errs []error
	keys := make(map[string]JoinOption, len(g.Joins))
	for _, j := range g.Joins {
		if j.Key == "" {
			errs = append(errs, fmt.Errorf("join option without key"))
			continue
		}
		if _, dup := keys[j.Key]; dup {
			errs = append(errs, fmt.Errorf("duplicate join %q", j.Key))
		}
		keys[j.Key] = j
	}

	for _, j := range g.Joins {
		if j.Parent == "" {
			continue
		}
		if _, ok := keys[j.Parent]; !ok {
			errs = append(errs, fmt.Errorf("join %q has unknown parent %q", j.Key, j.Parent))
			continue
		}
		seen := map[string]bool{j.Key: true}
		for p := j.Parent; p != ""; p = keys[p].Parent {
			if seen[p] {
				errs = append(errs, fmt.Errorf("join %q is part of a parent cycle", j.Key))
				break
			}
			seen[p] = true
		}
	}
	return errs
}

// MustValidate panics on invalid metadata. Intended for package level page declarations.
func (g *GridConfig) MustValidate() *GridConfig {
	if err := g.Validate(); err != nil {
		panic(err)
	}
	return g
}
