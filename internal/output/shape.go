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

// Package output is the output shaper (§2 L10): group-by expansion,
// estimator-specific value-column naming, and assembly of the final
// result frame schema (§6.2).
package output

import (
	"fmt"

	"github.com/usfs-fia/fiaestimate/internal/estimate"
)

// Estimator names the family of estimate a request computed, driving
// the value-column name (§6.2 "Estimator-specific value column
// names").
type Estimator int

const (
	EstimatorArea Estimator = iota
	EstimatorTPA
	EstimatorBasalArea
	EstimatorVolume
	EstimatorBiomass
	EstimatorCarbon
	EstimatorMortality
	EstimatorGrowth
	EstimatorRemovals
	EstimatorAreaChange
	EstimatorSiteIndex
)

// Scale distinguishes a per-acre ratio from a population total, for
// the estimators that report both (§6.2: "VOLUME_ACRE/VOLUME_TOTAL").
type Scale int

const (
	ScaleAcre Scale = iota
	ScaleTotal
)

// GRMMeasure is the measure axis used to name MORT_*/GROW_*/REMV_*
// columns (§6.3 "measure ∈ {volume, biomass, tpa, count, basal_area}").
type GRMMeasure int

const (
	GRMMeasureVolume GRMMeasure = iota
	GRMMeasureBiomass
	GRMMeasureTPA
	GRMMeasureCount
	GRMMeasureBasalArea
)

func (m GRMMeasure) suffix() string {
	switch m {
	case GRMMeasureBiomass:
		return "BIOMASS"
	case GRMMeasureTPA:
		return "TPA"
	case GRMMeasureCount:
		return "COUNT"
	case GRMMeasureBasalArea:
		return "BASAL_AREA"
	default:
		return "VOLUME"
	}
}

// ValueColumnName computes the estimator-specific value column name
// from §6.2. measure is only consulted for Mortality/Growth/Removals;
// scale is only consulted for the estimators that distinguish acre
// from total.
func ValueColumnName(est Estimator, scale Scale, measure GRMMeasure) string {
	switch est {
	case EstimatorArea:
		return "AREA"
	case EstimatorTPA:
		return "TPA"
	case EstimatorBasalArea:
		return "BAA"
	case EstimatorVolume:
		if scale == ScaleTotal {
			return "VOLUME_TOTAL"
		}
		return "VOLUME_ACRE"
	case EstimatorBiomass:
		if scale == ScaleTotal {
			return "BIO_TOTAL"
		}
		return "BIO_ACRE"
	case EstimatorCarbon:
		if scale == ScaleTotal {
			return "CARB_TOTAL"
		}
		return "CARB_ACRE"
	case EstimatorMortality:
		return "MORT_" + measure.suffix()
	case EstimatorGrowth:
		return "GROW_" + measure.suffix()
	case EstimatorRemovals:
		return "REMV_" + measure.suffix()
	case EstimatorAreaChange:
		return "AREA_CHANGE_TOTAL"
	case EstimatorSiteIndex:
		return "SI_MEAN"
	default:
		return "ESTIMATE"
	}
}

// GroupKey is one resolved (column name, value) pair for a result
// row, after group-by shortcut expansion (e.g. by_species → SPCD).
type GroupKey struct {
	Column string
	Value  string
}

// Row is one line of the final result frame: the resolved group keys
// in request order, the evaluation's end-inventory year, and the
// estimator's Result, shaped into the §6.2 schema.
type Row struct {
	GroupKeys   []GroupKey
	Year        int
	ValueColumn string
	Result      estimate.Result
	NConditions int
}

// Columns returns the result frame's header, in the §6.2 order: group
// keys first (in request order), then the fixed reporting columns. A
// condition-level estimator passes includeNConditions true; a
// tree-level one (GRM, volume, biomass, …) leaves it out — §6.2 scopes
// N_CONDITIONS to "condition-level estimators" only.
func Columns(groupKeyNames []string, valueColumn string, includeNConditions bool) []string {
	cols := append([]string(nil), groupKeyNames...)
	cols = append(cols, "YEAR", valueColumn, "SE", "VARIANCE", "CV", "CI_LOWER", "CI_UPPER", "N_PLOTS")
	if includeNConditions {
		cols = append(cols, "N_CONDITIONS")
	}
	return cols
}

// CellValue renders one named cell of a Row for presentation,
// formatting null (nil-pointer) fields as the empty string rather than
// a sentinel number (§7 tier 3: "nulls for undefined cells").
func CellValue(r Row, column string) (string, error) {
	for _, gk := range r.GroupKeys {
		if gk.Column == column {
			return gk.Value, nil
		}
	}
	switch column {
	case "YEAR":
		return fmt.Sprintf("%d", r.Year), nil
	case r.ValueColumn:
		return floatOrNull(r.Result.Estimate), nil
	case "SE":
		return floatOrNull(r.Result.SE), nil
	case "VARIANCE":
		return floatOrNull(r.Result.Variance), nil
	case "CV":
		return floatOrNull(r.Result.CV), nil
	case "CI_LOWER":
		return floatOrNull(r.Result.CILower), nil
	case "CI_UPPER":
		return floatOrNull(r.Result.CIUpper), nil
	case "N_PLOTS":
		return fmt.Sprintf("%d", r.Result.NPlots), nil
	case "N_CONDITIONS":
		return fmt.Sprintf("%d", r.NConditions), nil
	default:
		return "", fmt.Errorf("output: unknown result column %q", column)
	}
}

func floatOrNull(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
