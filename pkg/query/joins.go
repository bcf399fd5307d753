package query

import (
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

// ResolveJoins returns the join paths to request, parents before children, as dotted
// paths ("CafeteriaPlace", "CafeteriaPlace.Place").
//
// A join is wanted when the user selected it, or when the user made no choice and it is
// a default, required by a visible column, or a child of a wanted nested join.
// A wanted join is only emitted if its parent is emitted.
func (b *Builder) ResolveJoins(selected map[string]bool) []string {
	if len(b.cfg.Joins) == 0 {
		return nil
	}

	required := make(map[string]bool)
	for _, c := range b.cfg.Columns {
		if c.Hidden {
			continue
		}
		for _, jt := range c.JoinTable {
			required[jt] = true
		}
	}

	children := make(map[string][]metadata.JoinOption)
	roots := make([]metadata.JoinOption, 0)
	for _, j := range b.cfg.Joins {
		if j.Parent == "" {
			roots = append(roots, j)
		} else {
			children[j.Parent] = append(children[j.Parent], j)
		}
	}

	wanted := func(j metadata.JoinOption, parentNested bool) bool {
		if choice, explicit := selected[j.Key]; explicit {
			return choice
		}
		return j.Default || required[j.Key] || parentNested
	}

	out := make([]string, 0)
	var walk func(j metadata.JoinOption, prefix string, parentNested bool)
	walk = func(j metadata.JoinOption, prefix string, parentNested bool) {
		if !wanted(j, parentNested) {
			return
		}
		path := j.Key
		if prefix != "" {
			path = prefix + "." + j.Key
		}
		out = append(out, path)
		for _, child := range children[j.Key] {
			walk(child, path, j.Nested)
		}
	}
	for _, root := range roots {
		walk(root, "", false)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
