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

// LandType is the closed set of area-domain presets (§4.2
// "Land-type translation").
type LandType int

const (
	LandAll LandType = iota
	LandForest
	LandTimber
)

// LandMask evaluates the land-type preset against one COND row. row
// must carry COND_STATUS_CD, and, for LandTimber, SITECLCD and
// RESERVCD.
func LandMask(lt LandType, row map[string]interface{}) bool {
	status, ok := asInt(row["COND_STATUS_CD"])
	if !ok {
		return false
	}
	switch lt {
	case LandForest:
		return status == 1
	case LandTimber:
		if status != 1 {
			return false
		}
		site, ok := asInt(row["SITECLCD"])
		if !ok || site < 1 || site > 6 {
			return false
		}
		reserv, ok := asInt(row["RESERVCD"])
		return ok && reserv == 0
	default: // LandAll: no additional restriction beyond a sampled condition.
		return true
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
