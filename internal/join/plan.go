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

// Package join is the join planner (§2 L6). It builds the single,
// deterministic join topology — PPSA → POP_STRATUM → PLOT → COND →
// TREE — that the value calculators consume, restricted to a resolved
// evaluation set and projected down to only the columns a request's
// value calculators and filters actually need. The TREE_GRM_* tables
// are not joined here: the GRM and area-change estimators in the root
// package build their own queries.
//
// TREE joins in as a LEFT JOIN: a condition with no qualifying TREE
// rows (nonforest, nonstocked forest) must still surface one row with
// all tree_* columns null, so it still counts toward n_h (§4.4) even
// though it contributes zero to every tree-level numerator.
package join

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/usfs-fia/fiaestimate/internal/tbl"
)

// baseColumns are always pulled regardless of projection, since every
// downstream layer (L5 adjust, L8 estimate) needs them to do its job.
var baseColumns = map[string][]string{
	"ppsa":   {"STRATUM_CN", "PLT_CN"},
	"strat":  {"CN", "ESTN_UNIT_CN", "EXPNS", "P1POINTCNT", "P2POINTCNT", "ADJ_FACTOR_MICR", "ADJ_FACTOR_SUBP", "ADJ_FACTOR_MACR"},
	"plot":   {"CN", "STATECD", "INVYR", "MACRO_BREAKPOINT_DIA", "PREV_PLT_CN"},
	"cond":   {"PLT_CN", "CONDID", "CONDPROP_UNADJ", "PROP_BASIS", "COND_STATUS_CD", "SITECLCD", "RESERVCD", "FORTYPCD", "OWNGRPCD", "SICOND", "SIBASE"},
	"tree":   {"CN", "PLT_CN", "CONDID", "STATUSCD", "DIA", "SPCD", "TPA_UNADJ", "TREECLCD", "AGENTCD"},
}

// Level selects whether the plan joins down to TREE or stops at COND,
// for estimators whose numerator is a condition-level quantity (area,
// area change) rather than a tree-level one.
type Level int

const (
	LevelCond Level = iota
	LevelTree
)

// Plan is a fully-specified join: the evaluation restriction, the
// extra columns requested by filters and value calculators beyond the
// always-present base set, and whether TREE participates.
type Plan struct {
	EVALIDs []int
	Level   Level
	// ExtraTree/ExtraCond are additional column names, beyond
	// baseColumns, to project from TREE and COND respectively —
	// typically the union of a filter.Expr's Deps and a value
	// calculator's input columns.
	ExtraTree []string
	ExtraCond []string
}

// aliasedColumns renders one entity's projected columns as
// "alias.COL AS alias_COL" clauses, deduplicating against the base set
// and sorting for a deterministic query string (stable caching keys,
// §11).
func aliasedColumns(alias string, base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	cols := make([]string, 0, len(base)+len(extra))
	for _, c := range base {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, c := range extra {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = fmt.Sprintf("%s.%s AS %s_%s", alias, c, alias, c)
	}
	return out
}

// Build renders the plan into a parameterized SQL query against the
// fixed topology. The EVALID restriction applies at PPSA, the entry
// point of the join, so every downstream table is implicitly scoped to
// the resolved evaluation set.
func (p Plan) Build() (query string, args []interface{}) {
	var cols []string
	cols = append(cols, aliasedColumns("strat", baseColumns["strat"], nil)...)
	cols = append(cols, aliasedColumns("plot", baseColumns["plot"], nil)...)
	cols = append(cols, aliasedColumns("cond", baseColumns["cond"], p.ExtraCond)...)

	var b strings.Builder
	b.WriteString("SELECT ")
	treeCols := aliasedColumns("tree", baseColumns["tree"], p.ExtraTree)
	if p.Level == LevelTree {
		cols = append(cols, treeCols...)
	}
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM POP_PLOT_STRATUM_ASSGN ppsa")
	b.WriteString(" JOIN POP_STRATUM strat ON strat.CN = ppsa.STRATUM_CN")
	b.WriteString(" JOIN PLOT plot ON plot.CN = ppsa.PLT_CN")
	b.WriteString(" JOIN COND cond ON cond.PLT_CN = plot.CN")
	if p.Level == LevelTree {
		// LEFT JOIN: a treeless condition must still produce one row
		// (all tree_* columns null) so it isn't dropped from n_h.
		b.WriteString(" LEFT JOIN TREE tree ON tree.PLT_CN = cond.PLT_CN AND tree.CONDID = cond.CONDID")
	}

	placeholders := make([]string, len(p.EVALIDs))
	args = make([]interface{}, len(p.EVALIDs))
	for i, id := range p.EVALIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	b.WriteString(" WHERE ppsa.EVALID IN (")
	b.WriteString(strings.Join(placeholders, ", "))
	b.WriteString(")")

	return b.String(), args
}

// Run executes the plan against store and returns the joined Frame,
// still column-prefixed (strat_, plot_, cond_, tree_) so downstream
// layers can disambiguate identically-named columns across entities
// (e.g. cond_CONDID vs. tree_CONDID).
func Run(ctx context.Context, store *tbl.Store, p Plan) (*tbl.Frame, error) {
	if len(p.EVALIDs) == 0 {
		return nil, fmt.Errorf("join: plan has no EVALIDs to restrict to")
	}
	query, args := p.Build()
	return store.Query(ctx, query, args...)
}

// String renders a short diagnostic summary of the plan, for
// structured logging (the EVALID restriction itself is always bound
// as a parameterized arg, never interpolated into SQL text).
func (p Plan) String() string {
	level := "COND"
	if p.Level == LevelTree {
		level = "TREE"
	}
	return fmt.Sprintf("join.Plan{evalids=[%s] level=%s}", evalidList(p.EVALIDs), level)
}

func evalidList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
