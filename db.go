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
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/usfs-fia/fiaestimate/internal/cache"
	"github.com/usfs-fia/fiaestimate/internal/estimate"
	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
	"github.com/usfs-fia/fiaestimate/internal/tbl"
)

// Database is an opened, ready-to-query fiaestimate handle: the table
// access layer, the reference catalog, and the caches that back the
// shared, read-mostly resources of §5 ("the opened database handle,
// cached stratum tables, the reference catalog"). Every Request is run
// against a Database; a Database is safe for concurrent use by
// independent requests once Open returns.
type Database struct {
	store   *tbl.Store
	catalog *refcat.Catalog
	log     *logrus.Entry

	evalRows  *cache.Cache // key "all" -> []evalid.Row
	strataMD  *cache.Cache // key evalidSetKey -> map[string]estimate.StratumMeta
	unitsMD   *cache.Cache // key evalidSetKey -> map[string]estimate.EstnUnitMeta
	remperMD  *cache.Cache // key evalidSetKey -> map[string]float64, keyed by current PLT_CN
	plotsMD   *cache.Cache // key evalidSetKey -> []estimate.Observation, zero-valued, one per assigned plot
}

// Open opens the database at cfg.DatabasePath, validates its schema
// (§6.1), and wires the caches described in §5. catalog is the
// species/forest-type reference set (L1); it is constructed once per
// deployment and handed in rather than loaded here, since where the
// reference tables themselves come from is a deployment concern
// (refcat.NewCatalog's own doc comment).
func Open(ctx context.Context, cfg *Config, catalog *refcat.Catalog) (*Database, error) {
	store, err := tbl.Open(ctx, cfg.DatabasePath)
	if err != nil {
		if se, ok := err.(*tbl.SchemaError); ok {
			logrus.WithField("table", se.Table).WithField("column", se.Column).Error("schema validation failed")
			return nil, &SchemaError{Err: se}
		}
		return nil, fmt.Errorf("fiaestimate: opening database: %w", err)
	}

	db := &Database{
		store:   store,
		catalog: catalog,
		log:     logrus.WithField("component", "fiaestimate.Database"),
	}
	db.evalRows = cache.New(db.buildEvalRows, cfg.CacheSize)
	db.strataMD = cache.New(db.buildStrataMeta, cfg.CacheSize)
	db.unitsMD = cache.New(db.buildUnitsMeta, cfg.CacheSize)
	db.remperMD = cache.New(db.buildRemper, cfg.CacheSize)
	db.plotsMD = cache.New(db.buildPlotUniverse, cfg.CacheSize)
	return db, nil
}

// Close releases the underlying database handle.
func (db *Database) Close() error { return db.store.Close() }

// Catalog exposes the reference catalog backing this Database.
func (db *Database) Catalog() *refcat.Catalog { return db.catalog }

const evalRowsKey = "all"

// buildEvalRows loads the (state, EVALID, type) facts the evaluation
// resolver (L3) partitions over, joining POP_EVAL against
// POP_EVAL_TYP. It is cached under a single constant key since the
// fact table itself doesn't vary by request (§3.1).
func (db *Database) buildEvalRows(ctx context.Context, _ interface{}) (interface{}, error) {
	const q = `SELECT e.STATECD, e.EVALID, t.EVAL_TYP, e.START_INVYR, e.END_INVYR
		FROM POP_EVAL e JOIN POP_EVAL_TYP t ON t.EVAL_CN = e.CN`
	f, err := db.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: loading evaluation facts: %w", err)
	}
	rows := make([]evalid.Row, 0, f.NRows)
	stateF, stateNull, _ := f.Float("STATECD")
	evalidF, evalidNull, _ := f.Float("EVALID")
	typS, typNull, _ := f.String("EVAL_TYP")
	startF, startNull, _ := f.Float("START_INVYR")
	endF, endNull, _ := f.Float("END_INVYR")
	for i := 0; i < f.NRows; i++ {
		if stateNull[i] || evalidNull[i] || typNull[i] {
			continue
		}
		r := evalid.Row{
			State:  int(stateF[i]),
			EVALID: int(evalidF[i]),
			Type:   evalid.EvalType(typS[i]),
		}
		if !startNull[i] {
			r.StartInvYr = int(startF[i])
		}
		if !endNull[i] {
			r.EndInvYr = int(endF[i])
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// evaluationRows returns the cached evaluation-fact table.
func (db *Database) evaluationRows(ctx context.Context) ([]evalid.Row, error) {
	v, err := db.evalRows.Get(ctx, evalRowsKey)
	if err != nil {
		return nil, err
	}
	return v.([]evalid.Row), nil
}

// evalidSetKey is the cache key for every per-evaluation-set
// metadata cache: a sorted, deduplicated EVALID list so that two
// requests resolving to the same evaluation set share one cache
// entry regardless of resolution order.
type evalidSetKey struct {
	EVALIDs []int
}

func newEvalidSetKey(evalids []int) evalidSetKey {
	sorted := append([]int(nil), evalids...)
	sort.Ints(sorted)
	return evalidSetKey{EVALIDs: sorted}
}

// buildStrataMeta loads the POP_STRATUM population metadata (stratum
// CN, its estimation unit, and its P1 point count) for one evaluation
// set, the bucket the estimator (L8) needs but never derives itself.
func (db *Database) buildStrataMeta(ctx context.Context, key interface{}) (interface{}, error) {
	k := key.(evalidSetKey)
	args := make([]interface{}, len(k.EVALIDs))
	placeholders := make([]string, len(k.EVALIDs))
	for i, id := range k.EVALIDs {
		args[i] = id
		placeholders[i] = "?"
	}
	q := fmt.Sprintf(`SELECT CN, ESTN_UNIT_CN, P1POINTCNT FROM POP_STRATUM WHERE EVALID IN (%s)`, joinPlaceholders(placeholders))
	f, err := db.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: loading stratum metadata: %w", err)
	}
	cnS, cnNull, _ := f.String("CN")
	euS, euNull, _ := f.String("ESTN_UNIT_CN")
	p1F, p1Null, _ := f.Float("P1POINTCNT")
	out := make(map[string]estimate.StratumMeta, f.NRows)
	for i := 0; i < f.NRows; i++ {
		if cnNull[i] || euNull[i] {
			continue
		}
		meta := estimate.StratumMeta{CN: cnS[i], EstnUnitCN: euS[i]}
		if !p1Null[i] {
			if p1F[i] < 0 {
				return nil, &NumericError{GroupKey: cnS[i], Description: "negative P1 point count"}
			}
			meta.P1Count = p1F[i]
		}
		out[meta.CN] = meta
	}
	return out, nil
}

// buildUnitsMeta loads the POP_ESTN_UNIT population metadata (area
// used) for every estimation unit reachable from an evaluation set.
func (db *Database) buildUnitsMeta(ctx context.Context, key interface{}) (interface{}, error) {
	k := key.(evalidSetKey)
	args := make([]interface{}, len(k.EVALIDs))
	placeholders := make([]string, len(k.EVALIDs))
	for i, id := range k.EVALIDs {
		args[i] = id
		placeholders[i] = "?"
	}
	q := fmt.Sprintf(`SELECT DISTINCT peu.CN AS CN, peu.AREA_USED AS AREA_USED
		FROM POP_ESTN_UNIT peu
		JOIN POP_EVAL pe ON pe.CN = peu.EVAL_CN
		WHERE pe.EVALID IN (%s)`, joinPlaceholders(placeholders))
	f, err := db.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: loading estimation-unit metadata: %w", err)
	}
	cnS, cnNull, _ := f.String("CN")
	areaF, areaNull, _ := f.Float("AREA_USED")
	out := make(map[string]estimate.EstnUnitMeta, f.NRows)
	for i := 0; i < f.NRows; i++ {
		if cnNull[i] {
			continue
		}
		meta := estimate.EstnUnitMeta{CN: cnS[i]}
		if !areaNull[i] {
			meta.AreaUsed = areaF[i]
		}
		out[meta.CN] = meta
	}
	return out, nil
}

// buildRemper resolves, for every plot in an evaluation set, the
// remeasurement period (in years) between a plot and its previous
// measurement, via PLOT.PREV_PLT_CN: the current plot's INVYR minus
// the previous plot's INVYR (§C.6: a tree's remeasurement period is a
// property of its plot's remeasurement pair, not of the tree row
// itself). Plots with no previous plot, or a null INVYR on either
// side, are left out of the map.
func (db *Database) buildRemper(ctx context.Context, key interface{}) (interface{}, error) {
	k := key.(evalidSetKey)
	args := make([]interface{}, len(k.EVALIDs))
	placeholders := make([]string, len(k.EVALIDs))
	for i, id := range k.EVALIDs {
		args[i] = id
		placeholders[i] = "?"
	}
	q := fmt.Sprintf(`SELECT cur.CN AS CN, cur.INVYR AS CUR_INVYR, prev.INVYR AS PREV_INVYR
		FROM PLOT cur
		JOIN POP_PLOT_STRATUM_ASSGN ppsa ON ppsa.PLT_CN = cur.CN
		LEFT JOIN PLOT prev ON prev.CN = cur.PREV_PLT_CN
		WHERE ppsa.EVALID IN (%s)`, joinPlaceholders(placeholders))
	f, err := db.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: loading remeasurement periods: %w", err)
	}
	cnS, cnNull, _ := f.String("CN")
	curF, curNull, _ := f.Float("CUR_INVYR")
	prevF, prevNull, _ := f.Float("PREV_INVYR")
	out := make(map[string]float64, f.NRows)
	for i := 0; i < f.NRows; i++ {
		if cnNull[i] || curNull[i] || prevNull[i] {
			continue
		}
		out[cnS[i]] = curF[i] - prevF[i]
	}
	return out, nil
}

// buildPlotUniverse loads the complete plot-stratum assignment for an
// evaluation set as zero-valued observations. Every estimator seeds
// each group's observation list with these before estimation, so a
// plot contributing nothing to a group — or absent entirely from a
// numerator join that starts below PLOT, like the GRM component join —
// still counts toward n_h (§4.4 "it still counts toward n_h").
func (db *Database) buildPlotUniverse(ctx context.Context, key interface{}) (interface{}, error) {
	k := key.(evalidSetKey)
	args := make([]interface{}, len(k.EVALIDs))
	placeholders := make([]string, len(k.EVALIDs))
	for i, id := range k.EVALIDs {
		args[i] = id
		placeholders[i] = "?"
	}
	q := fmt.Sprintf(`SELECT DISTINCT ppsa.PLT_CN AS PLT_CN, ppsa.STRATUM_CN AS STRATUM_CN
		FROM POP_PLOT_STRATUM_ASSGN ppsa
		WHERE ppsa.EVALID IN (%s)`, joinPlaceholders(placeholders))
	f, err := db.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fiaestimate: loading plot assignments: %w", err)
	}
	pltS, pltNull, _ := f.String("PLT_CN")
	stratS, stratNull, _ := f.String("STRATUM_CN")
	out := make([]estimate.Observation, 0, f.NRows)
	for i := 0; i < f.NRows; i++ {
		if pltNull[i] || stratNull[i] {
			continue
		}
		out = append(out, estimate.Observation{PlotCN: pltS[i], StratumCN: stratS[i]})
	}
	return out, nil
}

// plotUniverse adapts the plot-assignment cache into the zero-valued
// observation list the estimators seed each group with.
func (db *Database) plotUniverse(ctx context.Context, evalids []int) ([]estimate.Observation, error) {
	v, err := db.plotsMD.Get(ctx, newEvalidSetKey(evalids))
	if err != nil {
		return nil, err
	}
	return v.([]estimate.Observation), nil
}

func joinPlaceholders(ps []string) string {
	out := ps[0]
	for _, p := range ps[1:] {
		out += ", " + p
	}
	return out
}
