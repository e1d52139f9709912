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

package output

import (
	"fmt"
	"math"

	"github.com/usfs-fia/fiaestimate/internal/refcat"
)

// SizeClassVariant selects which of the three by_size_class groupings
// (§6.3) a request asks for.
type SizeClassVariant int

const (
	SizeClassStandard SizeClassVariant = iota
	SizeClassDescriptive
	SizeClassMarket
)

// StandardSizeClass buckets a diameter into FIA's conventional 2-inch
// diameter classes, labeled by the class's inclusive bounds
// ("05.0-06.9", "07.0-08.9", …), with everything below 5.0in folded
// into the sapling class and no upper bound on the last class.
func StandardSizeClass(dia float64) string {
	if dia < 5.0 {
		return "01.0-04.9"
	}
	lower := 5.0 + 2.0*math.Floor((dia-5.0)/2.0)
	upper := lower + 1.9
	return fmt.Sprintf("%04.1f-%04.1f", lower, upper)
}

// DescriptiveSizeClass labels a tree with the common forestry terms
// for its size, splitting poletimber from sawtimber at the species'
// growing-stock sawlog threshold (catalog may be nil, in which case
// the hardwood threshold is used uniformly).
//
// Open question carried from spec.md §9 (the sawlog diameter
// threshold is documented inconsistently across FIA revisions): this
// boundary inherits whatever threshold the catalog is configured
// with, via refcat.Catalog.WithSawlogThresholds.
func DescriptiveSizeClass(dia float64, spcd int, catalog *refcat.Catalog) string {
	switch {
	case dia < 1.0:
		return "seedling"
	case dia < 5.0:
		return "sapling"
	default:
		threshold := 11.0
		if catalog != nil {
			threshold = catalog.SawlogDiameterThreshold(spcd)
		}
		if dia < threshold {
			return "poletimber"
		}
		return "sawtimber"
	}
}

// MarketSizeClass is the coarse sawtimber/poletimber split alone
// (§6.3's "market class variant"), reusing the same threshold logic
// as DescriptiveSizeClass but collapsing seedling/sapling into
// "poletimber" — the market distinction only separates growing-stock
// trees large enough to sell as sawlogs from ones that aren't.
func MarketSizeClass(dia float64, spcd int, catalog *refcat.Catalog) string {
	threshold := 11.0
	if catalog != nil {
		threshold = catalog.SawlogDiameterThreshold(spcd)
	}
	if dia >= threshold {
		return "sawtimber"
	}
	return "poletimber"
}

// SizeClass dispatches to the requested variant.
func SizeClass(variant SizeClassVariant, dia float64, spcd int, catalog *refcat.Catalog) string {
	switch variant {
	case SizeClassDescriptive:
		return DescriptiveSizeClass(dia, spcd, catalog)
	case SizeClassMarket:
		return MarketSizeClass(dia, spcd, catalog)
	default:
		return StandardSizeClass(dia)
	}
}
