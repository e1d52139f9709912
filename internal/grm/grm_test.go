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

package grm

import "testing"

func TestClassifyComponent(t *testing.T) {
	cases := map[string]ComponentFamily{
		"SURVIVOR":   FamilySurvivor,
		"INGROWTH":   FamilyIngrowth,
		"REVERSION1": FamilyIngrowth,
		"REVERSION2": FamilyIngrowth,
		"MORTALITY1": FamilyMortality,
		"MORTALITY2": FamilyMortality,
		"CUT1":       FamilyCut,
		"CUT2":       FamilyCut,
		"DIVERSION1": FamilyCut,
		"DIVERSION2": FamilyCut,
	}
	for raw, want := range cases {
		got, err := ClassifyComponent(raw)
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ClassifyComponent(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestClassifyComponentUnknown(t *testing.T) {
	if _, err := ClassifyComponent("BOGUS"); err == nil {
		t.Fatal("want an error for an unrecognized component")
	}
}

func TestParseTier(t *testing.T) {
	cases := map[int]Tier{0: TierNone, 1: TierSubp, 2: TierMicr, 3: TierMacr}
	for code, want := range cases {
		got, err := ParseTier(code)
		if err != nil || got != want {
			t.Fatalf("ParseTier(%d) = %v, %v; want %v", code, got, err, want)
		}
	}
	if _, err := ParseTier(4); err == nil {
		t.Fatal("want an error for an out-of-range SUBPTYP_GRM")
	}
}

func TestComputeSurvivor(t *testing.T) {
	c := Compute(FamilySurvivor, 100, 150, 5, 2, 0, 0)
	want := (150.0 - 100.0) / 5.0 * 2.0
	if c.Growth != want || c.Mortality != 0 || c.Removal != 0 {
		t.Fatalf("got %+v, want Growth=%v", c, want)
	}
}

func TestComputeIngrowth(t *testing.T) {
	c := Compute(FamilyIngrowth, 0, 80, 5, 3, 0, 0)
	want := 80.0 / 5.0 * 3.0
	if c.Growth != want {
		t.Fatalf("got %+v, want Growth=%v", c, want)
	}
}

func TestComputeMortality(t *testing.T) {
	c := Compute(FamilyMortality, 0, 60, 5, 0, 4, 0)
	if c.Growth != -60*4 || c.Mortality != 60*4 || c.Removal != 0 {
		t.Fatalf("got %+v", c)
	}
}

func TestComputeCut(t *testing.T) {
	c := Compute(FamilyCut, 0, 90, 5, 0, 0, 2)
	if c.Growth != -90*2 || c.Removal != 90*2 || c.Mortality != 0 {
		t.Fatalf("got %+v", c)
	}
}

func TestExpandDropsTierNone(t *testing.T) {
	c := Contribution{Growth: 10, Mortality: 5, Removal: 3}
	strat := StratumAdjustment{Micr: 1.2, Subp: 1.1, Macr: 1.0}
	got := Expand(c, TierNone, strat, 100)
	if got != (Contribution{}) {
		t.Fatalf("want zero contribution for TierNone, got %+v", got)
	}
}

func TestExpandAppliesFactor(t *testing.T) {
	c := Contribution{Growth: 10}
	strat := StratumAdjustment{Subp: 1.1}
	got := Expand(c, TierSubp, strat, 100)
	want := 10 * 1.1 * 100
	if got.Growth != want {
		t.Fatalf("got %v, want %v", got.Growth, want)
	}
}

func TestAreaChange(t *testing.T) {
	gain, loss, net := AreaChange(4.0, 5.0, true, false)
	if gain != 0.2 || loss != 0 || net != 0.2 {
		t.Fatalf("got gain=%v loss=%v net=%v", gain, loss, net)
	}
}

func TestAreaChangeZeroRemper(t *testing.T) {
	gain, loss, net := AreaChange(4.0, 0, true, false)
	if gain != 0 || loss != 0 || net != 0 {
		t.Fatalf("want all zero for a zero remeasurement period, got %v %v %v", gain, loss, net)
	}
}

func TestSelectChangeType(t *testing.T) {
	if got := Select(ChangeGrossGain, 1, 2, 3); got != 1 {
		t.Fatalf("got %v", got)
	}
	if got := Select(ChangeGrossLoss, 1, 2, 3); got != 2 {
		t.Fatalf("got %v", got)
	}
	if got := Select(ChangeNet, 1, 2, 3); got != 3 {
		t.Fatalf("got %v", got)
	}
}
