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

// Package cache is the caching fabric (§2 L11): stratum-table and
// reference-catalog memoization keyed on evaluation set, with a
// single-writer policy where the loser of a concurrent race discards
// its duplicate work and every reader proceeds without blocking.
package cache

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// keyOf returns a stable string key for object, suitable for use as a
// cache or request key. Most keys here are plain evaluation-set
// structs that gob-encode cleanly; the spew fallback exists for the
// rare object that doesn't (e.g. one holding a NaN, which gob refuses
// when it appears inside a map key).
func keyOf(object interface{}) string {
	if s, ok := object.(fmt.Stringer); ok {
		return s.String()
	}
	h := fnv.New128a()
	enc := gob.NewEncoder(h)
	if err := enc.Encode(object); err == nil {
		sum := h.Sum(nil)
		return fmt.Sprintf("%x", sum)
	}
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	return fmt.Sprintf("%x", h.Sum(nil))
}
