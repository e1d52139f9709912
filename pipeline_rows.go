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

package fiaestimate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/usfs-fia/fiaestimate/internal/adjust"
	"github.com/usfs-fia/fiaestimate/internal/estimate"
	"github.com/usfs-fia/fiaestimate/internal/filter"
	"github.com/usfs-fia/fiaestimate/internal/join"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
	"github.com/usfs-fia/fiaestimate/internal/tbl"
)

// groupedObservations buckets estimate.Observation rows by the
// group-by tuple a request resolved to, preserving first-seen order so
// output is deterministic (§5 "Ordering guarantees").
type groupedObservations struct {
	order []string
	keys  map[string][]output.GroupKey
	obs   map[string][]estimate.Observation
	nCond map[string]map[string]bool
}

func newGroupedObservations() *groupedObservations {
	return &groupedObservations{
		keys:  map[string][]output.GroupKey{},
		obs:   map[string][]estimate.Observation{},
		nCond: map[string]map[string]bool{},
	}
}

func (g *groupedObservations) add(groupKey string, keys []output.GroupKey, o estimate.Observation, condTag string) {
	if _, ok := g.obs[groupKey]; !ok {
		g.order = append(g.order, groupKey)
		g.keys[groupKey] = keys
		g.nCond[groupKey] = map[string]bool{}
	}
	g.obs[groupKey] = append(g.obs[groupKey], o)
	if condTag != "" {
		g.nCond[groupKey][condTag] = true
	}
}

// tierAdjustment reads a joined row's stratum adjustment triple.
func tierAdjustment(row map[string]interface{}) adjust.StratumAdjustment {
	return adjust.StratumAdjustment{
		Micr: floatOf(row["strat_ADJ_FACTOR_MICR"]),
		Subp: floatOf(row["strat_ADJ_FACTOR_SUBP"]),
		Macr: floatOf(row["strat_ADJ_FACTOR_MACR"]),
	}
}

func floatOf(v interface{}) float64 {
	f, _ := toFloat(v)
	return f
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// rowCell extracts column col (bare or prefixed) from frame row i as
// an interface{}, nil when the cell is null — the representation
// filter.Expr.Eval and filter.LandMask/TreeTypeMask expect.
func rowCell(f *tbl.Frame, col string, i int) interface{} {
	if fs, null, ok := f.Float(col); ok {
		if null[i] {
			return nil
		}
		return fs[i]
	}
	if ss, null, ok := f.String(col); ok {
		if null[i] {
			return nil
		}
		return ss[i]
	}
	return nil
}

// entityRow builds the bare-column map a filter.Expr/filter.LandMask/
// filter.TreeTypeMask expects for one entity, reading the
// alias-prefixed columns the join planner produces.
func entityRow(f *tbl.Frame, prefix string, i int, catalog map[filter.Entity]map[string]bool, entity filter.Entity) map[string]interface{} {
	out := map[string]interface{}{}
	for col := range catalog[entity] {
		out[col] = rowCell(f, prefix+"_"+col, i)
	}
	return out
}

// domainForRow composes the full §4.3 domain indicator for a joined
// row. isTreeLevel gates whether the tree-type mask/tree-domain are
// evaluated at all (condition-level passes leave them true, which is
// harmless since Domain.Indicator() never consults them).
func domainForRow(f *tbl.Frame, i int, req Request, preds predicates, catalog *refcat.Catalog, isTreeLevel bool) adjust.Domain {
	condRow := entityRow(f, "cond", i, filter.Columns, filter.CondEntity)
	plotRow := entityRow(f, "plot", i, filter.Columns, filter.PlotEntity)

	landMask := filter.LandMask(req.LandType, condRow)
	areaOK, _ := preds.area.Eval(condRow)
	plotOK, _ := preds.plot.Eval(plotRow)

	d := adjust.Domain{LandMask: landMask, AreaDomain: areaOK && plotOK, TreeTypeMask: true, TreeDomain: true}
	if isTreeLevel {
		treeRow := entityRow(f, "tree", i, filter.Columns, filter.TreeEntity)
		d.TreeTypeMask = filter.TreeTypeMask(req.TreeType, treeRow, catalog, req.TreeTypeOptions)
		treeOK, _ := preds.tree.Eval(treeRow)
		d.TreeDomain = treeOK
	}
	return d
}

// accumulateRows runs the numerator pass: for every joined row it
// resolves the plot-design tier (tree-level only), the domain
// indicator, the tier/basis-specific expansion weight, the group-by
// tuple, and hands all of it to spec's rowValueFunc.
func accumulateRows(f *tbl.Frame, level join.Level, req Request, preds predicates, fn rowValueFunc, catalog *refcat.Catalog, grouped *groupedObservations) error {
	plotCN, _, _ := f.String("plot_CN")
	stratCN, _, _ := f.String("strat_CN")
	_, condpropNull, _ := f.Float("cond_CONDPROP_UNADJ")
	propBasisS, _, _ := f.String("cond_PROP_BASIS")
	expnsF, _, _ := f.Float("strat_EXPNS")

	var diaF []float64
	var diaNull []bool
	var mbpF []float64
	var mbpNull []bool
	var treeCNNull []bool
	if level == join.LevelTree {
		diaF, diaNull, _ = f.Float("tree_DIA")
		mbpF, mbpNull, _ = f.Float("plot_MACRO_BREAKPOINT_DIA")
		_, treeCNNull, _ = f.String("tree_CN")
	}

	for i := 0; i < f.NRows; i++ {
		// A treeless condition surfaces from the LEFT JOIN with all
		// tree_* columns null. Under a group-by it belongs to no group
		// (its group key would be a null tuple); the plot universe
		// appended in shapeResults keeps its plot counting toward n_h.
		if treeCNNull != nil && treeCNNull[i] && len(req.GroupBy) > 0 {
			continue
		}
		basis, ok := adjust.ParseConditionBasis(propBasisS[i])
		if !ok {
			continue // unrecognized PROP_BASIS: exclude rather than misattribute area (§3.1).
		}
		strat := tierAdjustment(map[string]interface{}{
			"strat_ADJ_FACTOR_MICR": rowCell(f, "strat_ADJ_FACTOR_MICR", i),
			"strat_ADJ_FACTOR_SUBP": rowCell(f, "strat_ADJ_FACTOR_SUBP", i),
			"strat_ADJ_FACTOR_MACR": rowCell(f, "strat_ADJ_FACTOR_MACR", i),
		})
		domain := domainForRow(f, i, req, preds, catalog, level == join.LevelTree)

		// weight is the domain-free, attribute-free expansion factor
		// (ADJ_tier·EXPNS or ADJ_basis·EXPNS); it deliberately excludes
		// TPA_UNADJ/CONDPROP_UNADJ, since every value.* formula already
		// multiplies those in itself (§4.6) — baking them in here too
		// would double-count them.
		var weight float64
		if level == join.LevelTree {
			if condpropNull[i] {
				continue
			}
			tier := adjust.SelectTier(diaF[i], !diaNull[i], mbpF[i], !mbpNull[i])
			weight = strat.Factor(tier) * expnsF[i]
		} else {
			if condpropNull[i] {
				continue
			}
			weight = basis.Factor(strat) * expnsF[i]
		}

		row := map[string]interface{}{}
		for col := range filter.Columns[filter.TreeEntity] {
			row[col] = rowCell(f, "tree_"+col, i)
		}
		for col := range filter.Columns[filter.CondEntity] {
			row[col] = rowCell(f, "cond_"+col, i)
		}

		yNum, yDen := fn(row, weight, domain, catalog)

		groupKeys, groupKeyStr := resolveGroupKeys(req.GroupBy, row, catalog)
		// Always key on cond_CONDID, not tree_CONDID: a LEFT-JOINed
		// treeless row has a null tree_CONDID, which would otherwise
		// collide every treeless condition on a plot into one tag and
		// undercount NConditions. CONDID is numeric in FIA extracts,
		// so it is read through rowCell, not the string accessor.
		condTag := plotCN[i] + "/" + cellString(rowCell(f, "cond_CONDID", i))
		obs := estimate.Observation{PlotCN: plotCN[i], StratumCN: stratCN[i], YNum: yNum, YDen: yDen}
		grouped.add(groupKeyStr, groupKeys, obs, condTag)
	}
	return nil
}

// accumulateDenominator runs the always-condition-level, ungrouped
// shared forest-area denominator pass every per-acre ratio estimator
// but Area and SiteIndex uses (§C.3: the independence boundary for a
// per-acre ratio's denominator is the land domain, not the group-by).
// Area and SiteIndex are "local ratio" estimators whose numerator pass
// already produces both Y and X (see rowValueFunc/pipelineSpec.localRatio)
// and never call this.
func accumulateDenominator(f *tbl.Frame, req Request, preds predicates) ([]estimate.Observation, error) {
	plotCN, _, _ := f.String("plot_CN")
	stratCN, _, _ := f.String("strat_CN")
	condpropF, condpropNull, _ := f.Float("cond_CONDPROP_UNADJ")
	propBasisS, _, _ := f.String("cond_PROP_BASIS")
	expnsF, _, _ := f.Float("strat_EXPNS")

	out := make([]estimate.Observation, 0, f.NRows)
	for i := 0; i < f.NRows; i++ {
		if condpropNull[i] {
			continue
		}
		basis, ok := adjust.ParseConditionBasis(propBasisS[i])
		if !ok {
			continue
		}
		strat := adjust.StratumAdjustment{
			Micr: floatOf(rowCell(f, "strat_ADJ_FACTOR_MICR", i)),
			Subp: floatOf(rowCell(f, "strat_ADJ_FACTOR_SUBP", i)),
			Macr: floatOf(rowCell(f, "strat_ADJ_FACTOR_MACR", i)),
		}
		domain := domainForRow(f, i, req, preds, nil, false)
		x := adjust.CondExpansion(condpropF[i], basis, strat, expnsF[i], domain)
		out = append(out, estimate.Observation{PlotCN: plotCN[i], StratumCN: stratCN[i], YDen: x})
	}
	return out, nil
}

// resolveGroupKeys expands a request's group-by specification for one
// row into its literal (column, value) tuples and a stable string key
// for bucketing.
func resolveGroupKeys(specs []output.GroupSpec, row map[string]interface{}, catalog *refcat.Catalog) ([]output.GroupKey, string) {
	if len(specs) == 0 {
		return nil, ""
	}
	keys := make([]output.GroupKey, len(specs))
	parts := make([]string, len(specs))
	for i, spec := range specs {
		col := spec.ResolvedColumn()
		var val string
		switch spec.Shortcut {
		case output.ShortcutSpecies:
			val = fmt.Sprintf("%d", int(floatOf(row["SPCD"])))
		case output.ShortcutSizeClass:
			val = output.SizeClass(spec.SizeClassVariant, floatOf(row["DIA"]), int(floatOf(row["SPCD"])), catalog)
		default:
			val = cellString(row[col])
		}
		keys[i] = output.GroupKey{Column: col, Value: val}
		parts[i] = col + "=" + val
	}
	return keys, strings.Join(parts, "|")
}

// shapeResults finalizes every group bucket through the estimator
// (§4.4) and assembles the presentation rows (§6.2). A grouped
// per-acre ratio shares one unsplit denominator across every group
// (§C.3); req.Totals skips the denominator (and variance-of-ratio
// machinery) entirely regardless of how many groups there are.
//
// universe is the evaluation set's full plot assignment as zero-valued
// observations, appended to every group before estimation: a plot with
// no member rows in a group must still count toward n_h (§4.4), or a
// grouped stratum mean would divide by the member-plot count and the
// sum of grouped totals would exceed the ungrouped total (§8
// "Partition consistency"). Appending a zero for a plot that is
// already present changes nothing, since plot aggregation sums.
func shapeResults(grouped *groupedObservations, denomObs, universe []estimate.Observation, strata map[string]estimate.StratumMeta, units map[string]estimate.EstnUnitMeta, req Request, year int, spec pipelineSpec) ([]output.Row, error) {
	scale := output.ScaleAcre
	if req.Totals {
		scale = output.ScaleTotal
	}
	valueColumn := output.ValueColumnName(spec.estimator, scale, req.GRMMeasure)

	order := grouped.order
	if len(order) == 0 {
		order = []string{""}
		if _, ok := grouped.obs[""]; !ok {
			grouped.obs[""] = nil
			grouped.nCond[""] = map[string]bool{}
		}
	}

	rows := make([]output.Row, 0, len(order))
	for _, key := range order {
		obs := make([]estimate.Observation, 0, len(grouped.obs[key])+len(universe)+len(denomObs))
		obs = append(obs, grouped.obs[key]...)
		obs = append(obs, universe...)
		var result estimate.Result
		switch {
		case req.Totals:
			result = estimate.EstimateTotal(obs, strata, units, req.Variance)
		case spec.localRatio:
			result = estimate.EstimateRatio(obs, strata, units, req.Variance)
		default:
			obs = append(obs, denomObs...)
			result = estimate.EstimateRatio(obs, strata, units, req.Variance)
		}
		rows = append(rows, output.Row{
			GroupKeys:   grouped.keys[key],
			Year:        year,
			ValueColumn: valueColumn,
			Result:      result,
			NConditions: len(grouped.nCond[key]),
		})
	}
	return rows, nil
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
