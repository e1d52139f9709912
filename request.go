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
	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/filter"
	"github.com/usfs-fia/fiaestimate/internal/grm"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/value"
)

// Request is the common estimator surface (§6.3): every per-estimator
// entry point on *Database takes one of these. Fields that don't apply
// to a given estimator (e.g. VolType on a Mortality request) are
// simply ignored, rather than forcing a family of near-identical
// request types on every caller — the closed enums the spec calls for
// live on the fields themselves (value.VolType, grm.Measure, …), not
// as ad hoc strings.
type Request struct {
	// States restricts evaluation resolution to these FIPS codes; a
	// nil/empty slice composes every state present in the evaluation
	// facts table (§4.1 "Compose multi-state by union").
	States []int
	// Selector chooses among the evaluations available for each
	// (state, type) pair (§4.1). The zero value is not meaningful;
	// use evalid.MostRecentSelector, evalid.YearSelector, or
	// evalid.ExplicitSelector.
	Selector evalid.Selector

	// TreeDomain, AreaDomain, and PlotDomain are the three optional
	// predicate strings (§4.2). An empty string compiles to "no
	// additional restriction".
	TreeDomain string
	AreaDomain string
	PlotDomain string

	LandType filter.LandType
	TreeType filter.TreeType

	// TreeTypeOptions parameterizes the TreeGrowingStock/TreeSawlog
	// AGENTCD exclusion set (filter.TreeTypeOptions); the zero value is
	// filter.DefaultTreeTypeOptions (no tree excluded by agent code).
	TreeTypeOptions filter.TreeTypeOptions

	// GroupBy is the group-by specification (§6.3); nil produces a
	// single ungrouped result row.
	GroupBy []output.GroupSpec

	// Totals selects population totals over per-acre ratios (§4.4
	// "when the user requests only a total, the denominator path is
	// skipped"); Variance false skips the stratum-variance/covariance
	// computation entirely, not merely its reporting (§C.4).
	Totals   bool
	Variance bool

	// VolType selects the volume column for a Volume request.
	VolType value.VolType
	// BiomassComponent selects the biomass component for a Biomass
	// request.
	BiomassComponent value.Component
	// CarbonPool selects the carbon pool for a Carbon request.
	CarbonPool value.Pool

	// Measure selects the per-tree quantity for a GRM request
	// (Mortality/Growth/Removals); GRMMeasure drives the result's
	// value-column name via output.ValueColumnName.
	Measure    grm.Measure
	GRMMeasure output.GRMMeasure
	// ChangeType selects which area-change quantity an AreaChange
	// request reports (§4.5 "Area change", §6.3 "change_type").
	ChangeType grm.ChangeType
	// Annual reports an annualized rate (the GRM tables' native
	// per-year form, §3.2.6) when true; false reports the total
	// change accumulated over the remeasurement period instead, by
	// multiplying the annualized contribution back out by REMPER.
	Annual bool
}

// Per §4.1, a per-acre ratio estimator draws both its numerator and
// denominator from the *same* evaluation rather than a union of an
// Area-type and a Volume-type evaluation; every tree-level estimator
// below accordingly resolves against evalid.Volume, which is
// self-sufficient for both forest area and tree attributes within one
// (state, cycle) pair. Area resolves against evalid.Area; the GRM
// estimators and area change each resolve against their own type
// (evalid.Growth/Mortality/Removal/Change).
