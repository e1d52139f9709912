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

// Package refcat holds the immutable reference catalog: species,
// forest-type groups, state codes, and stocking-class lookups that
// the rest of the engine treats as a fixed, non-statistical input.
package refcat

// Species describes one entry of the FIA master species list that the
// engine needs in order to classify growing-stock and sawlog trees.
type Species struct {
	SPCD        int
	CommonName  string
	Softwood    bool
	GrowingStock bool // whether the species is eligible for the growing-stock class at all
}

// Catalog is an immutable, in-memory reference set. It is constructed
// once per database open and shared across every request against that
// database; nothing in the engine mutates it.
type Catalog struct {
	species     map[int]Species
	forestTypes map[int]ForestTypeGroup
	stateNames  map[int]string

	sawlogSoftwood   float64
	sawlogHardwood   float64
	softwoodOverride map[int]float64
}

// ForestTypeGroup is the coarse grouping FIA uses to report forest
// area and volume by forest type (e.g. "Oak / hickory group").
type ForestTypeGroup struct {
	GroupCode int
	GroupName string
}

// NewCatalog builds a Catalog from pre-loaded lookup slices. The
// loading of these slices from whatever reference tables a particular
// deployment ships is the caller's responsibility (§1 "species/forest-type
// lookup tables are treated as immutable reference sets" places that
// ingestion outside the core); NewCatalog only indexes what it is given.
func NewCatalog(species []Species, forestTypes []ForestTypeGroup, states map[int]string) *Catalog {
	c := &Catalog{
		species:          make(map[int]Species, len(species)),
		forestTypes:      make(map[int]ForestTypeGroup, len(forestTypes)),
		stateNames:       states,
		sawlogSoftwood:   9.0,
		sawlogHardwood:   11.0,
		softwoodOverride: map[int]float64{},
	}
	for _, s := range species {
		c.species[s.SPCD] = s
	}
	for _, f := range forestTypes {
		c.forestTypes[f.GroupCode] = f
	}
	if c.stateNames == nil {
		c.stateNames = map[int]string{}
	}
	return c
}

// Species looks up a species by SPCD. ok is false for an SPCD not
// present in the catalog; callers must not assume catalog completeness.
func (c *Catalog) Species(spcd int) (Species, bool) {
	s, ok := c.species[spcd]
	return s, ok
}

// IsSoftwood reports whether spcd is a softwood species. Unknown
// species are conservatively treated as hardwood, since the sawlog
// diameter threshold for an unrecognized species must not silently
// default to the (lower) softwood threshold.
func (c *Catalog) IsSoftwood(spcd int) bool {
	s, ok := c.species[spcd]
	return ok && s.Softwood
}

// IsGrowingStockSpecies reports whether spcd is eligible for the
// GrowingStock tree-type class at all (some species, e.g. some minor
// hardwoods, are never counted as growing stock regardless of form
// and vigor). Unknown species are excluded.
func (c *Catalog) IsGrowingStockSpecies(spcd int) bool {
	s, ok := c.species[spcd]
	return ok && s.GrowingStock
}

// ForestTypeGroup maps a detailed FORTYPCD to its reporting group.
func (c *Catalog) ForestTypeGroup(fortypcd int) (ForestTypeGroup, bool) {
	g, ok := c.forestTypes[fortypcd/10*10]
	if ok {
		return g, true
	}
	g, ok = c.forestTypes[fortypcd]
	return g, ok
}

// StateName returns the postal or full name associated with a
// numeric FIPS state code, for presentation purposes only; the core
// estimators never branch on this value.
func (c *Catalog) StateName(code int) (string, bool) {
	n, ok := c.stateNames[code]
	return n, ok
}

// WithSawlogThresholds overrides the default softwood/hardwood sawlog
// diameter thresholds, for deployments that need to track a revision
// of the FIA standard other than the one this package defaults to.
func (c *Catalog) WithSawlogThresholds(softwood, hardwood float64) *Catalog {
	c.sawlogSoftwood = softwood
	c.sawlogHardwood = hardwood
	return c
}

// SawlogDiameterThreshold returns the minimum diameter at which a
// growing-stock tree of the given species is classified as a sawlog
// tree (§4.2 "Tree-type translation", Sawlog).
//
// Open question in spec.md: the published FIA documentation gives
// conflicting thresholds across revisions for a handful of edge
// species. This implementation follows the standard two-class rule —
// 9.0 in for softwoods, 11.0 in for hardwoods — which is the
// threshold actually encoded in FIA's own SAWTIMBER tree-class logic;
// a deployment with access to the authoritative current standard
// should override via WithSawlogThresholds.
func (c *Catalog) SawlogDiameterThreshold(spcd int) float64 {
	if sw, ok := c.softwoodOverride[spcd]; ok {
		return sw
	}
	if c.IsSoftwood(spcd) {
		return c.sawlogSoftwood
	}
	return c.sawlogHardwood
}
