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

	"github.com/usfs-fia/fiaestimate/internal/adjust"
	"github.com/usfs-fia/fiaestimate/internal/estimate"
	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/filter"
	"github.com/usfs-fia/fiaestimate/internal/join"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
)

// rowValueFunc computes a row's already-tier/basis-expanded but
// domain-free weight into a numerator (and, for the "local ratio"
// estimators, a denominator) contribution. domain is already resolved
// for the row (land mask, area domain, tree-type mask, tree domain);
// the function decides which of domain.Indicator()/TreeIndicator()
// gates its own numerator, since Area's denominator deliberately
// ignores the land mask while everything else's doesn't (§4.6).
type rowValueFunc func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (yNum, yDen float64)

// pipelineSpec is what a concrete estimator (estimators.go) supplies
// to runPipeline: everything about it that isn't shared plumbing.
type pipelineSpec struct {
	evalType evalid.EvalType
	level    join.Level // the level of the row pass that produces Y (and, for localRatio, X)

	numerator rowValueFunc

	// localRatio, when true, means the numerator pass's rowValueFunc
	// also returns X directly — Area and SiteIndex are both
	// condition-level ratios whose numerator and denominator come from
	// the very same row (§4.6 "Area", "Site index"). When false, X (the
	// forest-area denominator every other per-acre ratio estimator
	// uses) is computed by a second, always condition-level, ungrouped
	// pass — shared across every group bucket so a grouped per-acre
	// ratio's denominator isn't accidentally fragmented per group
	// (§C.3).
	localRatio bool

	// estimator drives the result's value-column name (§6.2); scale is
	// derived from req.Totals rather than carried separately, since no
	// request reports both in one call.
	estimator output.Estimator

	// extraTree/extraCond are the value calculator's own column needs
	// beyond the join planner's always-present base set (§2 L6
	// "baseColumns") — e.g. Volume needs VOLCFNET/VOLCFGRS/VOLBFNET/
	// VOLCSNET, none of which TPA or BasalArea require. Merged with the
	// group-by projection in projectionColumns.
	extraTree []string
	extraCond []string
}

// runPipeline implements the shared half of §4.7's state machine:
// Configured → EvaluationResolved → TablesLoaded → Joined → Valued →
// PlotAggregated → Stratified → PopulationEstimated. Formatted is the
// caller's job (estimators.go shapes the returned observations'
// estimate.Result into output.Row).
func (db *Database) runPipeline(ctx context.Context, req Request, spec pipelineSpec) ([]output.Row, error) {
	rows, err := db.evaluationRows(ctx)
	if err != nil {
		return nil, err
	}
	set, err := evalid.Resolve(rows, req.States, spec.evalType, req.Selector)
	if err != nil {
		return nil, &EvaluationError{States: req.States, EvalType: string(spec.evalType), Err: err}
	}
	year := 0
	for _, e := range set.Evaluations {
		if e.EndInvYr > year {
			year = e.EndInvYr
		}
	}

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

	evalids := set.EVALIDs()
	strata, err := db.strataMeta(ctx, evalids)
	if err != nil {
		return nil, err
	}
	units, err := db.unitsMeta(ctx, evalids)
	if err != nil {
		return nil, err
	}
	universe, err := db.plotUniverse(ctx, evalids)
	if err != nil {
		return nil, err
	}

	extraTree, extraCond := projectionColumns(req)
	extraTree = append(extraTree, spec.extraTree...)
	extraCond = append(extraCond, spec.extraCond...)
	if treeExpr != nil {
		extraTree = append(extraTree, treeExpr.Deps...)
	}

	mainPlan := join.Plan{EVALIDs: evalids, Level: spec.level, ExtraTree: extraTree, ExtraCond: extraCond}
	mainFrame, err := join.Run(ctx, db.store, mainPlan)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: running join: %w", err)
	}

	grouped := newGroupedObservations()
	if err := accumulateRows(mainFrame, spec.level, req, preds, spec.numerator, db.catalog, grouped); err != nil {
		return nil, err
	}

	var denomObs []estimate.Observation
	if !spec.localRatio && !req.Totals {
		denomPlan := join.Plan{EVALIDs: evalids, Level: join.LevelCond, ExtraCond: extraCond}
		denomFrame, err := join.Run(ctx, db.store, denomPlan)
		if err != nil {
			return nil, fmt.Errorf("fiaestimate: running denominator join: %w", err)
		}
		denomObs, err = accumulateDenominator(denomFrame, req, preds)
		if err != nil {
			return nil, err
		}
	}

	return shapeResults(grouped, denomObs, universe, strata, units, req, year, spec)
}

// predicates bundles the three compiled, entity-scoped expressions a
// request supplies (§4.2).
type predicates struct {
	tree, area, plot *filter.Expr
}

func compilePredicate(source string, entity filter.Entity) (*filter.Expr, error) {
	expr, err := filter.Compile(source, entity)
	if err != nil {
		field := "tree_domain"
		switch entity {
		case filter.CondEntity:
			field = "area_domain"
		case filter.PlotEntity:
			field = "plot_domain"
		}
		return nil, &FilterParseError{Field: field, Err: err}
	}
	return expr, nil
}

// strataMeta and unitsMeta adapt the Database's evaluation-set-keyed
// caches (§5, §11) into the plain maps the estimate package consumes.
func (db *Database) strataMeta(ctx context.Context, evalids []int) (map[string]estimate.StratumMeta, error) {
	v, err := db.strataMD.Get(ctx, newEvalidSetKey(evalids))
	if err != nil {
		return nil, err
	}
	return v.(map[string]estimate.StratumMeta), nil
}

func (db *Database) unitsMeta(ctx context.Context, evalids []int) (map[string]estimate.EstnUnitMeta, error) {
	v, err := db.unitsMD.Get(ctx, newEvalidSetKey(evalids))
	if err != nil {
		return nil, err
	}
	return v.(map[string]estimate.EstnUnitMeta), nil
}

// projectionColumns is the union of every group-by specification's
// literal column beyond the join planner's always-present base set
// (§4.2 "Result": "a validated dependency set... feeds projection
// pushdown"). The tree predicate's dependencies (filter.Expr.Deps)
// are appended separately by runPipeline, since the TREE catalog
// names volume, biomass and carbon columns outside the join's base
// set; the COND and PLOT catalogs lie wholly inside it.
func projectionColumns(req Request) (extraTree, extraCond []string) {
	for _, g := range req.GroupBy {
		col := g.ResolvedColumn()
		switch {
		case col == "SPCD":
			extraTree = append(extraTree, "SPCD")
		case col == "SIZE_CLASS":
			extraTree = append(extraTree, "DIA", "SPCD")
		case filter.Columns[filter.TreeEntity][col]:
			extraTree = append(extraTree, col)
		case filter.Columns[filter.CondEntity][col]:
			extraCond = append(extraCond, col)
		}
	}
	return extraTree, extraCond
}
