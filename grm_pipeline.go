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
	"github.com/usfs-fia/fiaestimate/internal/join"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
	"github.com/usfs-fia/fiaestimate/internal/tbl"
)

// remeasurementPeriods adapts the Database's evaluation-set-keyed
// REMPER cache into the plain map grmPipeline needs.
func (db *Database) remeasurementPeriods(ctx context.Context, evalids []int) (map[string]float64, error) {
	v, err := db.remperMD.Get(ctx, newEvalidSetKey(evalids))
	if err != nil {
		return nil, err
	}
	return v.(map[string]float64), nil
}

// buildGRMQuery renders the GRM accountant's own join topology (§4.5):
// TREE_GRM_COMPONENT driving TREE/TREE_GRM_BEGIN/TREE_GRM_MIDPT, joined
// down through COND/PLOT/POP_PLOT_STRATUM_ASSGN/POP_STRATUM exactly as
// the main join planner does, restricted to the resolved evaluation
// set. TREE_GRM_BEGIN/MIDPT are left-joined: an ingrowth tree has no
// begin record, and grm.Compute's ingrowth branch never reads vBegin.
func buildGRMQuery(evalids []int) (string, []interface{}) {
	const q = `SELECT
		strat.CN AS strat_CN, strat.ESTN_UNIT_CN AS strat_ESTN_UNIT_CN, strat.EXPNS AS strat_EXPNS,
		strat.P1POINTCNT AS strat_P1POINTCNT, strat.ADJ_FACTOR_MICR AS strat_ADJ_FACTOR_MICR,
		strat.ADJ_FACTOR_SUBP AS strat_ADJ_FACTOR_SUBP, strat.ADJ_FACTOR_MACR AS strat_ADJ_FACTOR_MACR,
		plot.CN AS plot_CN, plot.STATECD AS plot_STATECD, plot.INVYR AS plot_INVYR,
		plot.MACRO_BREAKPOINT_DIA AS plot_MACRO_BREAKPOINT_DIA,
		cond.CONDID AS cond_CONDID, cond.CONDPROP_UNADJ AS cond_CONDPROP_UNADJ, cond.PROP_BASIS AS cond_PROP_BASIS,
		cond.COND_STATUS_CD AS cond_COND_STATUS_CD, cond.SITECLCD AS cond_SITECLCD, cond.RESERVCD AS cond_RESERVCD,
		cond.FORTYPCD AS cond_FORTYPCD, cond.OWNGRPCD AS cond_OWNGRPCD, cond.SICOND AS cond_SICOND, cond.SIBASE AS cond_SIBASE,
		tree.CN AS tree_CN, tree.PLT_CN AS tree_PLT_CN, tree.CONDID AS tree_CONDID, tree.STATUSCD AS tree_STATUSCD,
		tree.DIA AS tree_DIA, tree.SPCD AS tree_SPCD, tree.TPA_UNADJ AS tree_TPA_UNADJ,
		tree.TREECLCD AS tree_TREECLCD, tree.AGENTCD AS tree_AGENTCD,
		grm.SUBPTYP_GRM AS grm_SUBPTYP_GRM, grm.COMPONENT AS grm_COMPONENT,
		grm.TPAGROW_UNADJ AS grm_TPAGROW_UNADJ, grm.TPAMORT_UNADJ AS grm_TPAMORT_UNADJ, grm.TPAREMV_UNADJ AS grm_TPAREMV_UNADJ,
		beg.DIA AS beg_DIA, beg.VOLCFNET AS beg_VOLCFNET, beg.DRYBIO_AG AS beg_DRYBIO_AG,
		mid.DIA AS mid_DIA, mid.VOLCFNET AS mid_VOLCFNET, mid.DRYBIO_AG AS mid_DRYBIO_AG
	FROM TREE_GRM_COMPONENT grm
	JOIN TREE tree ON tree.CN = grm.TRE_CN
	JOIN COND cond ON cond.PLT_CN = tree.PLT_CN AND cond.CONDID = tree.CONDID
	JOIN PLOT plot ON plot.CN = tree.PLT_CN
	JOIN POP_PLOT_STRATUM_ASSGN ppsa ON ppsa.PLT_CN = plot.CN
	JOIN POP_STRATUM strat ON strat.CN = ppsa.STRATUM_CN
	LEFT JOIN TREE_GRM_BEGIN beg ON beg.TRE_CN = grm.TRE_CN
	LEFT JOIN TREE_GRM_MIDPT mid ON mid.TRE_CN = grm.TRE_CN
	WHERE ppsa.EVALID IN (%s)`

	placeholders := make([]string, len(evalids))
	args := make([]interface{}, len(evalids))
	for i, id := range evalids {
		placeholders[i] = "?"
		args[i] = id
	}
	return fmt.Sprintf(q, strings.Join(placeholders, ", ")), args
}

// grmEstimator selects which of a Contribution's three fields a GRM
// request reports.
type grmEstimator int

const (
	grmMortality grmEstimator = iota
	grmGrowth
	grmRemovals
)

// runGRM implements the Mortality/Growth/Removals family (§4.5): it is
// structurally a per-acre ratio like TPA/Volume/…, sharing the same
// forest-area denominator pass, but its numerator pass runs its own
// TREE_GRM_* join instead of the main join planner's topology.
func (db *Database) runGRM(ctx context.Context, req Request, which grmEstimator, est output.Estimator) ([]output.Row, error) {
	evalType := evalid.Growth
	switch which {
	case grmMortality:
		evalType = evalid.Mortality
	case grmRemovals:
		evalType = evalid.Removal
	}

	rows, err := db.evaluationRows(ctx)
	if err != nil {
		return nil, err
	}
	set, err := evalid.Resolve(rows, req.States, evalType, req.Selector)
	if err != nil {
		return nil, &EvaluationError{States: req.States, EvalType: string(evalType), Err: err}
	}
	year := 0
	for _, e := range set.Evaluations {
		if e.EndInvYr > year {
			year = e.EndInvYr
		}
	}
	evalids := set.EVALIDs()

	treeExpr, err := compilePredicate(req.TreeDomain, filter.TreeEntity)
	if err != nil {
		return nil, err
	}
	areaExpr, err := compilePredicate(req.AreaDomain, filter.CondEntity)
	if err != nil {
		return nil, err
	}
	plotExpr, err := compilePredicate(req.PlotDomain, filter.PlotEntity)
	if err != nil {
		return nil, err
	}
	preds := predicates{tree: treeExpr, area: areaExpr, plot: plotExpr}

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

	query, args := buildGRMQuery(evalids)
	f, err := db.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: running GRM join: %w", err)
	}

	grouped := newGroupedObservations()
	if err := accumulateGRM(f, req, preds, remper, which, db.catalog, grouped); err != nil {
		return nil, err
	}

	var denomObs []estimate.Observation
	if !req.Totals {
		denomPlan := join.Plan{EVALIDs: evalids, Level: join.LevelCond}
		denomFrame, derr := join.Run(ctx, db.store, denomPlan)
		if derr != nil {
			return nil, fmt.Errorf("fiaestimate: running GRM denominator join: %w", derr)
		}
		denomObs, err = accumulateDenominator(denomFrame, req, preds)
		if err != nil {
			return nil, err
		}
	}

	spec := pipelineSpec{estimator: est}
	return shapeResults(grouped, denomObs, universe, strata, units, req, year, spec)
}

func accumulateGRM(f *tbl.Frame, req Request, preds predicates, remper map[string]float64, which grmEstimator, catalog *refcat.Catalog, grouped *groupedObservations) error {
	treePLT, _, _ := f.String("tree_PLT_CN")
	stratCN, _, _ := f.String("strat_CN")
	componentS, componentNull, _ := f.String("grm_COMPONENT")
	subptypF, subptypNull, _ := f.Float("grm_SUBPTYP_GRM")
	tpaGrowF, _, _ := f.Float("grm_TPAGROW_UNADJ")
	tpaMortF, _, _ := f.Float("grm_TPAMORT_UNADJ")
	tpaRemvF, _, _ := f.Float("grm_TPAREMV_UNADJ")
	expnsF, _, _ := f.Float("strat_EXPNS")

	begDiaF, _, _ := f.Float("beg_DIA")
	begVolF, _, _ := f.Float("beg_VOLCFNET")
	begBioF, _, _ := f.Float("beg_DRYBIO_AG")
	midDiaF, _, _ := f.Float("mid_DIA")
	midVolF, _, _ := f.Float("mid_VOLCFNET")
	midBioF, _, _ := f.Float("mid_DRYBIO_AG")

	for i := 0; i < f.NRows; i++ {
		if componentNull[i] || subptypNull[i] {
			continue
		}
		family, err := grm.ClassifyComponent(componentS[i])
		if err != nil {
			continue // an unrecognized COMPONENT value excludes the row rather than halting the whole estimate.
		}
		tier, err := grm.ParseTier(int(subptypF[i]))
		if err != nil {
			continue
		}
		rp := remper[treePLT[i]]

		gstrat := grm.StratumAdjustment{
			Micr: floatOf(rowCell(f, "strat_ADJ_FACTOR_MICR", i)),
			Subp: floatOf(rowCell(f, "strat_ADJ_FACTOR_SUBP", i)),
			Macr: floatOf(rowCell(f, "strat_ADJ_FACTOR_MACR", i)),
		}

		domain := domainForRow(f, i, req, preds, catalog, true)

		vBegin := grm.Value(req.Measure, begDiaF[i], begVolF[i], begBioF[i])
		vMid := grm.Value(req.Measure, midDiaF[i], midVolF[i], midBioF[i])
		contribution := grm.Compute(family, vBegin, vMid, rp, tpaGrowF[i], tpaMortF[i], tpaRemvF[i])
		expanded := grm.Expand(contribution, tier, gstrat, expnsF[i])

		var v float64
		switch which {
		case grmMortality:
			v = expanded.Mortality
		case grmRemovals:
			v = expanded.Removal
		default:
			v = expanded.Growth
		}
		v *= domain.TreeIndicator()
		if !req.Annual {
			v *= rp
		}

		row := map[string]interface{}{}
		for col := range filter.Columns[filter.TreeEntity] {
			row[col] = rowCell(f, "tree_"+col, i)
		}
		groupKeys, groupKeyStr := resolveGroupKeys(req.GroupBy, row, catalog)

		condTag := treePLT[i] + "/" + cellString(rowCell(f, "tree_CONDID", i))
		obs := estimate.Observation{PlotCN: treePLT[i], StratumCN: stratCN[i], YNum: v}
		grouped.add(groupKeyStr, groupKeys, obs, condTag)
	}
	return nil
}

// Mortality estimates annualized (or, with req.Annual false, REMPER-
// totaled) per-acre mortality of the requested measure (§4.5).
func (db *Database) Mortality(ctx context.Context, req Request) ([]output.Row, error) {
	return db.runGRM(ctx, req, grmMortality, output.EstimatorMortality)
}

// Growth estimates annualized net growth of the requested measure
// (§4.5): survivor growth plus ingrowth minus mortality and removal
// losses, per grm.Compute's dispatch table.
func (db *Database) Growth(ctx context.Context, req Request) ([]output.Row, error) {
	return db.runGRM(ctx, req, grmGrowth, output.EstimatorGrowth)
}

// Removals estimates annualized per-acre removals (harvest/diversion)
// of the requested measure (§4.5).
func (db *Database) Removals(ctx context.Context, req Request) ([]output.Row, error) {
	return db.runGRM(ctx, req, grmRemovals, output.EstimatorRemovals)
}
