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

package filter

import "github.com/usfs-fia/fiaestimate/internal/refcat"

// TreeType is the closed set of tree-domain presets (§4.2 "Tree-type
// translation").
type TreeType int

const (
	TreeAll TreeType = iota
	TreeLive
	TreeDead
	TreeGrowingStock
	TreeSawlog
)

// TreeTypeOptions parameterizes the growing-stock test's AGENTCD
// exclusion set. spec.md §4.2 names "AGENTCD NOT IN (…)" without
// enumerating the codes, and §9's Open Questions flags the sawlog
// thresholds as needing confirmation against the published FIA
// standard rather than a single documentation fragment; the AGENTCD
// exclusion set has the same character and is left as an explicit,
// overridable option rather than a hard-coded guess.
type TreeTypeOptions struct {
	// ExcludedAgentCodes disqualifies a TREECLCD==2 tree from the
	// GrowingStock class when its AGENTCD is a member. Empty by
	// default: no tree is excluded by agent code alone.
	ExcludedAgentCodes map[int]bool
}

// DefaultTreeTypeOptions is the conservative default: form/vigor class
// (TREECLCD) and species eligibility are enforced, AGENTCD is not.
var DefaultTreeTypeOptions = TreeTypeOptions{}

// TreeTypeMask evaluates the tree-type preset against one TREE row,
// consulting catalog for the growing-stock species test (§4.2:
// "growing-stock species test via reference catalog").
func TreeTypeMask(tt TreeType, row map[string]interface{}, catalog *refcat.Catalog, opts TreeTypeOptions) bool {
	status, ok := asInt(row["STATUSCD"])
	if !ok {
		return false
	}
	switch tt {
	case TreeLive:
		return status == 1
	case TreeDead:
		return status == 2
	case TreeGrowingStock:
		return growingStock(row, catalog, opts)
	case TreeSawlog:
		if !growingStock(row, catalog, opts) {
			return false
		}
		spcd, ok := asInt(row["SPCD"])
		if !ok {
			return false
		}
		dia, ok := asFloat(row["DIA"])
		if !ok {
			return false
		}
		return dia >= catalog.SawlogDiameterThreshold(spcd)
	default: // TreeAll
		return true
	}
}

func growingStock(row map[string]interface{}, catalog *refcat.Catalog, opts TreeTypeOptions) bool {
	status, ok := asInt(row["STATUSCD"])
	if !ok || status != 1 {
		return false
	}
	treeclcd, ok := asInt(row["TREECLCD"])
	if !ok || treeclcd != 2 {
		return false
	}
	if opts.ExcludedAgentCodes != nil {
		if agent, ok := asInt(row["AGENTCD"]); ok && opts.ExcludedAgentCodes[agent] {
			return false
		}
	}
	dia, ok := asFloat(row["DIA"])
	if !ok || dia < 5.0 {
		return false
	}
	spcd, ok := asInt(row["SPCD"])
	if !ok {
		return false
	}
	if catalog != nil && !catalog.IsGrowingStockSpecies(spcd) {
		return false
	}
	return true
}
