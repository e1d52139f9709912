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
	"context"
	"fmt"
	"strings"

	"github.com/usfs-fia/fiaestimate/internal/estimate"
	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/filter"
	"github.com/usfs-fia/fiaestimate/internal/grm"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
	"github.com/usfs-fia/fiaestimate/internal/tbl"
)

// buildAreaChangeQuery renders the GRM accountant's condition-level
// change topology (§4.5 "Area change"): SUBP_COND_CHNG_MTRX joined to
// the current condition (for the group-by/domain attributes a result
// is reported against) and, via its own PREV_PLT_CN/PREVCOND columns,
// to the previous condition (for classifying the row's land-status
// transition). The previous condition is left-joined: a plot new to
// this remeasurement pair has no previous condition row; such a row's
// previous land status fails every land-type preset, so isGain/isLoss
// below count it as a gain when its current condition is inside the
// preset and never as a loss.
func buildAreaChangeQuery(evalids []int) (string, []interface{}) {
	const q = `SELECT
		strat.CN AS strat_CN, strat.EXPNS AS strat_EXPNS,
		plot.CN AS plot_CN, plot.STATECD AS plot_STATECD, plot.INVYR AS plot_INVYR,
		plot.MACRO_BREAKPOINT_DIA AS plot_MACRO_BREAKPOINT_DIA,
		scm.CONDID AS scm_CONDID, scm.SUBPTYP_PROP_CHNG AS scm_SUBPTYP_PROP_CHNG,
		cond.CONDID AS cond_CONDID, cond.COND_STATUS_CD AS cond_COND_STATUS_CD,
		cond.SITECLCD AS cond_SITECLCD, cond.RESERVCD AS cond_RESERVCD,
		cond.FORTYPCD AS cond_FORTYPCD, cond.OWNGRPCD AS cond_OWNGRPCD,
		cond.CONDPROP_UNADJ AS cond_CONDPROP_UNADJ, cond.SICOND AS cond_SICOND, cond.SIBASE AS cond_SIBASE,
		prevcond.COND_STATUS_CD AS prevcond_COND_STATUS_CD,
		prevcond.SITECLCD AS prevcond_SITECLCD, prevcond.RESERVCD AS prevcond_RESERVCD
	FROM SUBP_COND_CHNG_MTRX scm
	JOIN PLOT plot ON plot.CN = scm.PLT_CN
	JOIN POP_PLOT_STRATUM_ASSGN ppsa ON ppsa.PLT_CN = plot.CN
	JOIN POP_STRATUM strat ON strat.CN = ppsa.STRATUM_CN
	JOIN COND cond ON cond.PLT_CN = scm.PLT_CN AND cond.CONDID = scm.CONDID
	LEFT JOIN COND prevcond ON prevcond.PLT_CN = scm.PREV_PLT_CN AND prevcond.CONDID = scm.PREVCOND
	WHERE ppsa.EVALID IN (%s)`

	placeholders := make([]string, len(evalids))
	args := make([]interface{}, len(evalids))
	for i, id := range evalids {
		placeholders[i] = "?"
		args[i] = id
	}
	return fmt.Sprintf(q, strings.Join(placeholders, ", ")), args
}

// AreaChange estimates the annualized (or, with req.Annual false,
// REMPER-totaled) gain, loss, or net acreage of the requested
// land-type transition (§4.5 "Area change", §6.3 "change_type"). It
// is condition-level and total-only: there is no per-acre form of an
// area-change estimate, so req.Totals is not consulted.
func (db *Database) AreaChange(ctx context.Context, req Request) ([]output.Row, error) {
	rows, err := db.evaluationRows(ctx)
	if err != nil {
		return nil, err
	}
	set, err := evalid.Resolve(rows, req.States, evalid.Change, req.Selector)
	if err != nil {
		return nil, &EvaluationError{States: req.States, EvalType: string(evalid.Change), Err: err}
	}
	year := 0
	for _, e := range set.Evaluations {
		if e.EndInvYr > year {
			year = e.EndInvYr
		}
	}
	evalids := set.EVALIDs()

	areaExpr, err := compilePredicate(req.AreaDomain, filter.CondEntity)
	if err != nil {
		return nil, err
	}
	plotExpr, err := compilePredicate(req.PlotDomain, filter.PlotEntity)
	if err != nil {
		return nil, err
	}

	strata, err := db.strataMeta(ctx, evalids)
	if err != nil {
		return nil, err
	}
	units, err := db.unitsMeta(ctx, evalids)
	if err != nil {
		return nil, err
	}
	remper, err := db.remeasurementPeriods(ctx, evalids)
	if err != nil {
		return nil, err
	}
	universe, err := db.plotUniverse(ctx, evalids)
	if err != nil {
		return nil, err
	}

	query, args := buildAreaChangeQuery(evalids)
	f, err := db.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: running area-change join: %w", err)
	}

	grouped := newGroupedObservations()
	if err := accumulateAreaChange(f, req, areaExpr, plotExpr, remper, db.catalog, grouped); err != nil {
		return nil, err
	}

	rowsOut := make([]output.Row, 0, len(grouped.order))
	order := grouped.order
	if len(order) == 0 {
		order = []string{""}
		grouped.obs[""] = nil
		grouped.nCond[""] = map[string]bool{}
	}
	valueColumn := output.ValueColumnName(output.EstimatorAreaChange, output.ScaleTotal, 0)
	for _, key := range order {
		// Seed every group with the evaluation set's full plot
		// assignment: a plot with no change-matrix rows (or none in
		// this group) still counts toward n_h (§4.4).
		obs := make([]estimate.Observation, 0, len(grouped.obs[key])+len(universe))
		obs = append(obs, grouped.obs[key]...)
		obs = append(obs, universe...)
		result := estimate.EstimateTotal(obs, strata, units, req.Variance)
		rowsOut = append(rowsOut, output.Row{
			GroupKeys:   grouped.keys[key],
			Year:        year,
			ValueColumn: valueColumn,
			Result:      result,
			NConditions: len(grouped.nCond[key]),
		})
	}
	return rowsOut, nil
}

// isGain and isLoss classify a row's (previous, current) land-status
// transition under the request's land-type preset (§4.5 "Area
// change"). A row whose previous condition was outside the preset
// and whose current condition is inside it is a gain; the reverse is
// a loss; every other row (including "no change" rows where both or
// neither condition is in the preset) contributes to neither.
func isGain(lt filter.LandType, prevRow, curRow map[string]interface{}) bool {
	return !filter.LandMask(lt, prevRow) && filter.LandMask(lt, curRow)
}

func isLoss(lt filter.LandType, prevRow, curRow map[string]interface{}) bool {
	return filter.LandMask(lt, prevRow) && !filter.LandMask(lt, curRow)
}

func accumulateAreaChange(f *tbl.Frame, req Request, areaExpr, plotExpr *filter.Expr, remper map[string]float64, catalog *refcat.Catalog, grouped *groupedObservations) error {
	plotCN, _, _ := f.String("plot_CN")
	stratCN, _, _ := f.String("strat_CN")
	subtypF, subtypNull, _ := f.Float("scm_SUBPTYP_PROP_CHNG")
	expnsF, _, _ := f.Float("strat_EXPNS")

	for i := 0; i < f.NRows; i++ {
		if subtypNull[i] {
			continue
		}
		rp := remper[plotCN[i]]

		curRow := map[string]interface{}{
			"COND_STATUS_CD": rowCell(f, "cond_COND_STATUS_CD", i),
			"SITECLCD":       rowCell(f, "cond_SITECLCD", i),
			"RESERVCD":       rowCell(f, "cond_RESERVCD", i),
		}
		prevRow := map[string]interface{}{
			"COND_STATUS_CD": rowCell(f, "prevcond_COND_STATUS_CD", i),
			"SITECLCD":       rowCell(f, "prevcond_SITECLCD", i),
			"RESERVCD":       rowCell(f, "prevcond_RESERVCD", i),
		}
		gain := isGain(req.LandType, prevRow, curRow)
		loss := isLoss(req.LandType, prevRow, curRow)

		g, l, n := grm.AreaChange(subtypF[i], rp, gain, loss)
		v := grm.Select(req.ChangeType, g, l, n)

		condRowFull := map[string]interface{}{}
		for col := range filter.Columns[filter.CondEntity] {
			condRowFull[col] = rowCell(f, "cond_"+col, i)
		}
		plotRow := map[string]interface{}{}
		for col := range filter.Columns[filter.PlotEntity] {
			plotRow[col] = rowCell(f, "plot_"+col, i)
		}
		areaOK, _ := areaExpr.Eval(condRowFull)
		plotOK, _ := plotExpr.Eval(plotRow)
		if areaOK && plotOK {
			v *= expnsF[i]
		} else {
			v = 0
		}
		if !req.Annual {
			v *= rp
		}

		groupKeys, groupKeyStr := resolveGroupKeys(req.GroupBy, condRowFull, catalog)
		condTag := plotCN[i] + "/" + cellString(rowCell(f, "cond_CONDID", i))
		obs := estimate.Observation{PlotCN: plotCN[i], StratumCN: stratCN[i], YNum: v}
		grouped.add(groupKeyStr, groupKeys, obs, condTag)
	}
	return nil
}
