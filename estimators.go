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

	"github.com/usfs-fia/fiaestimate/internal/adjust"
	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/join"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
	"github.com/usfs-fia/fiaestimate/internal/value"
)

// toValueRow adapts one joined row's raw columns (as read off the
// validated filter.Columns catalog, §4.2) into the narrow view the
// value calculators (L7) need.
func toValueRow(row map[string]interface{}) value.Row {
	dia, hasDIA := toFloat(row["DIA"])
	return value.Row{
		DIA:           dia,
		HasDIA:        hasDIA,
		TPAUnadj:      floatOf(row["TPA_UNADJ"]),
		VolCFNet:      floatOf(row["VOLCFNET"]),
		VolCFGrs:      floatOf(row["VOLCFGRS"]),
		VolBFNet:      floatOf(row["VOLBFNET"]),
		VolCSNet:      floatOf(row["VOLCSNET"]),
		DryBioAG:      floatOf(row["DRYBIO_AG"]),
		DryBioBG:      floatOf(row["DRYBIO_BG"]),
		CarbonAG:      floatOf(row["CARBON_AG"]),
		CarbonBG:      floatOf(row["CARBON_BG"]),
		CondpropUnadj: floatOf(row["CONDPROP_UNADJ"]),
		SICond:        floatOf(row["SICOND"]),
		SIBase:        int(floatOf(row["SIBASE"])),
	}
}

// Area estimates forest (or timberland) area, or its share of total
// land, depending on req.Totals (§4.6 "Area"). It is condition-level
// and "local ratio": the denominator comes from the very same row as
// the numerator, so no separate forest-area pass runs.
func (db *Database) Area(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:   evalid.Area,
		level:      join.LevelCond,
		localRatio: true,
		estimator:  output.EstimatorArea,
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			num, den := value.Area(vr, domain.Indicator() == 1, req.Totals)
			return weight * num, weight * den
		},
	}
	return db.runPipeline(ctx, req, spec)
}

// TPA estimates trees per acre (or population tree count, if
// req.Totals) over the tree-level domain (§4.6 "TPA / Basal area").
func (db *Database) TPA(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:  evalid.Volume,
		level:     join.LevelTree,
		estimator: output.EstimatorTPA,
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			return weight * domain.TreeIndicator() * value.TPA(vr), 0
		},
	}
	return db.runPipeline(ctx, req, spec)
}

// BasalArea estimates basal area per acre (or population total).
func (db *Database) BasalArea(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:  evalid.Volume,
		level:     join.LevelTree,
		estimator: output.EstimatorBasalArea,
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			return weight * domain.TreeIndicator() * value.BasalArea(vr), 0
		},
	}
	return db.runPipeline(ctx, req, spec)
}

// Volume estimates net (or gross/sawlog-board-foot/sound) cubic or
// board-foot volume per acre, per req.VolType (§4.6 "Volume").
func (db *Database) Volume(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:  evalid.Volume,
		level:     join.LevelTree,
		estimator: output.EstimatorVolume,
		extraTree: []string{"VOLCFNET", "VOLCFGRS", "VOLBFNET", "VOLCSNET"},
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			return weight * domain.TreeIndicator() * value.Volume(vr, req.VolType), 0
		},
	}
	return db.runPipeline(ctx, req, spec)
}

// Biomass estimates aboveground/belowground/total dry biomass (short
// tons) per acre, per req.BiomassComponent (§4.6 "Biomass & carbon").
func (db *Database) Biomass(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:  evalid.Volume,
		level:     join.LevelTree,
		estimator: output.EstimatorBiomass,
		extraTree: []string{"DRYBIO_AG", "DRYBIO_BG"},
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			return weight * domain.TreeIndicator() * value.Biomass(vr, req.BiomassComponent), 0
		},
	}
	return db.runPipeline(ctx, req, spec)
}

// Carbon estimates the requested carbon pool (short tons) per acre,
// reading FIA's own CARBON_AG/CARBON_BG columns directly rather than
// a flat fraction of biomass (§4.6 "Biomass & carbon").
func (db *Database) Carbon(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:  evalid.Volume,
		level:     join.LevelTree,
		estimator: output.EstimatorCarbon,
		extraTree: []string{"CARBON_AG", "CARBON_BG"},
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			return weight * domain.TreeIndicator() * value.Carbon(vr, req.CarbonPool), 0
		},
	}
	return db.runPipeline(ctx, req, spec)
}

// SiteIndex estimates mean site index (§4.6 "Site index"). It is
// condition-level and "local ratio" like Area, but unlike Area both
// its numerator and denominator share the exact same domain mask —
// callers should group by SIBASE, since site index values computed
// against different base ages are not comparable and this estimator
// does not enforce that grouping itself.
func (db *Database) SiteIndex(ctx context.Context, req Request) ([]output.Row, error) {
	spec := pipelineSpec{
		evalType:   evalid.Area,
		level:      join.LevelCond,
		localRatio: true,
		estimator:  output.EstimatorSiteIndex,
		numerator: func(row map[string]interface{}, weight float64, domain adjust.Domain, catalog *refcat.Catalog) (float64, float64) {
			vr := toValueRow(row)
			num, den := value.SiteIndex(vr)
			ind := domain.Indicator()
			return weight * ind * num, weight * ind * den
		},
	}
	return db.runPipeline(ctx, req, spec)
}
