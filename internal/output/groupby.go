/*
Copyright © 2024 the fiaestimate authors.
This file is part of fiaestimate.

fiaestimate is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fiaestimate is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fiaestimate.  If not, see <http://www.gnu.org/licenses/>.
*/

package output

// GroupSpec is one element of a request's group-by list (§6.3): either
// a literal column name or one of the two shortcuts, each with its own
// variant axis.
type GroupSpec struct {
	Column string // set when Shortcut == ShortcutNone
	Shortcut
	SizeClassVariant SizeClassVariant // only consulted when Shortcut == ShortcutSizeClass
}

// Shortcut is the closed set of group-by shortcuts (§6.3:
// "by_species, by_size_class with standard/descriptive/market class
// variants").
type Shortcut int

const (
	ShortcutNone Shortcut = iota
	ShortcutSpecies
	ShortcutSizeClass
)

// ResolvedColumn returns the literal column name a GroupSpec expands
// to — the name used both for projection pushdown into the join and
// for the result frame's header.
func (g GroupSpec) ResolvedColumn() string {
	switch g.Shortcut {
	case ShortcutSpecies:
		return "SPCD"
	case ShortcutSizeClass:
		return "SIZE_CLASS"
	default:
		return g.Column
	}
}

// ResolveGroupColumns expands a request's group-by specification into
// the literal column names that appear, in order, in the result
// frame's header (§6.2: "<group-keys…> (in request order)").
func ResolveGroupColumns(specs []GroupSpec) []string {
	cols := make([]string, len(specs))
	for i, s := range specs {
		cols[i] = s.ResolvedColumn()
	}
	return cols
}
