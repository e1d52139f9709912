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

import (
	"testing"

	"github.com/usfs-fia/fiaestimate/internal/refcat"
)

func TestCompileAndEvalSimple(t *testing.T) {
	e, err := Compile("DIA >= 5.0 AND STATUSCD == 1", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Eval(map[string]interface{}{"DIA": 7.2, "STATUSCD": 1})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("want true")
	}
	ok, err = e.Eval(map[string]interface{}{"DIA": 3.0, "STATUSCD": 1})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("want false")
	}
}

func TestCompileEmptyIsAlwaysTrue(t *testing.T) {
	e, err := Compile("", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatalf("want nil *Expr for empty source, got %+v", e)
	}
	ok, err := e.Eval(map[string]interface{}{"anything": 1})
	if err != nil || !ok {
		t.Fatalf("nil Expr should always evaluate true, got %v, %v", ok, err)
	}
}

func TestCompileUnknownColumn(t *testing.T) {
	_, err := Compile("NOT_A_REAL_COLUMN > 1", TreeEntity)
	if _, ok := err.(*UnknownColumn); !ok {
		t.Fatalf("got %v (%T), want *UnknownColumn", err, err)
	}
}

func TestCompileParseError(t *testing.T) {
	_, err := Compile("DIA >>> 5", TreeEntity)
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("got %v (%T), want *ParseError", err, err)
	}
}

func TestCompileRecordsDeps(t *testing.T) {
	e, err := Compile("DIA >= 5.0 AND SPCD == 131", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"DIA": true, "SPCD": true}
	if len(e.Deps) != len(want) {
		t.Fatalf("got deps %v", e.Deps)
	}
	for _, d := range e.Deps {
		if !want[d] {
			t.Fatalf("unexpected dep %q", d)
		}
	}
}

func TestEvalIsNull(t *testing.T) {
	e, err := Compile("DIA IS NULL", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Eval(map[string]interface{}{"DIA": nil})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("want true when DIA is nil")
	}
	ok, err = e.Eval(map[string]interface{}{"DIA": 5.0})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("want false when DIA is non-nil")
	}
}

func TestEvalIsNotNull(t *testing.T) {
	e, err := Compile("DIA IS NOT NULL", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Eval(map[string]interface{}{"DIA": 5.0})
	if err != nil || !ok {
		t.Fatalf("want true when DIA is non-nil, got %v, %v", ok, err)
	}
	ok, err = e.Eval(map[string]interface{}{"DIA": nil})
	if err != nil || ok {
		t.Fatalf("want false when DIA is nil, got %v, %v", ok, err)
	}
}

// TestEvalNullBindsFalse covers §4.3: a null operand to a non-null-aware
// operator conservatively binds the whole predicate to false rather than
// propagating an error.
func TestEvalNullBindsFalse(t *testing.T) {
	e, err := Compile("DIA < 5.0", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Eval(map[string]interface{}{"DIA": nil})
	if err != nil {
		t.Fatalf("want no error, got %v", err)
	}
	if ok {
		t.Fatal("want false for a null operand")
	}
}

func TestEvalIn(t *testing.T) {
	e, err := Compile("SPCD IN (131, 110, 833)", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Eval(map[string]interface{}{"SPCD": 110})
	if err != nil || !ok {
		t.Fatalf("want 110 to match the IN list, got %v, %v", ok, err)
	}
	ok, err = e.Eval(map[string]interface{}{"SPCD": 802})
	if err != nil || ok {
		t.Fatalf("want 802 to not match the IN list, got %v, %v", ok, err)
	}
}

// TestEvalNotIn covers §4.2's documented "NOT IN (...)" operator
// combination (e.g. the AGENTCD exclusion set): the NOT must bind to
// the whole membership test rather than leaking through as a stray
// "!" that govaluate can't parse.
func TestEvalNotIn(t *testing.T) {
	e, err := Compile("AGENTCD NOT IN (10, 20)", TreeEntity)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Eval(map[string]interface{}{"AGENTCD": 10})
	if err != nil || ok {
		t.Fatalf("want 10 to be excluded by NOT IN, got %v, %v", ok, err)
	}
	ok, err = e.Eval(map[string]interface{}{"AGENTCD": 30})
	if err != nil || !ok {
		t.Fatalf("want 30 to pass NOT IN, got %v, %v", ok, err)
	}
}

func TestLandMask(t *testing.T) {
	cases := []struct {
		name string
		lt   LandType
		row  map[string]interface{}
		want bool
	}{
		{"forest on forest cond", LandForest, map[string]interface{}{"COND_STATUS_CD": 1}, true},
		{"forest on nonforest cond", LandForest, map[string]interface{}{"COND_STATUS_CD": 2}, false},
		{"timber qualifies", LandTimber, map[string]interface{}{"COND_STATUS_CD": 1, "SITECLCD": 3, "RESERVCD": 0}, true},
		{"timber reserved excluded", LandTimber, map[string]interface{}{"COND_STATUS_CD": 1, "SITECLCD": 3, "RESERVCD": 1}, false},
		{"timber low productivity excluded", LandTimber, map[string]interface{}{"COND_STATUS_CD": 1, "SITECLCD": 7, "RESERVCD": 0}, false},
		{"all requires sampled cond", LandAll, map[string]interface{}{"COND_STATUS_CD": 5}, true},
		{"all rejects missing status", LandAll, map[string]interface{}{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := LandMask(c.lt, c.row); got != c.want {
				t.Fatalf("LandMask(%v, %v) = %v, want %v", c.lt, c.row, got, c.want)
			}
		})
	}
}

func testCatalog() *refcat.Catalog {
	return refcat.NewCatalog(
		[]refcat.Species{
			{SPCD: 131, CommonName: "loblolly pine", Softwood: true, GrowingStock: true},
			{SPCD: 802, CommonName: "white oak", Softwood: false, GrowingStock: true},
			{SPCD: 999, CommonName: "excluded shrub", Softwood: false, GrowingStock: false},
		},
		nil, nil,
	)
}

func TestTreeTypeMaskLiveDead(t *testing.T) {
	cat := testCatalog()
	live := map[string]interface{}{"STATUSCD": 1}
	dead := map[string]interface{}{"STATUSCD": 2}
	if !TreeTypeMask(TreeLive, live, cat, DefaultTreeTypeOptions) {
		t.Fatal("want live tree classified live")
	}
	if TreeTypeMask(TreeLive, dead, cat, DefaultTreeTypeOptions) {
		t.Fatal("want dead tree not classified live")
	}
	if !TreeTypeMask(TreeDead, dead, cat, DefaultTreeTypeOptions) {
		t.Fatal("want dead tree classified dead")
	}
}

func TestTreeTypeMaskGrowingStock(t *testing.T) {
	cat := testCatalog()
	row := map[string]interface{}{
		"STATUSCD": 1, "TREECLCD": 2, "DIA": 8.0, "SPCD": 131,
	}
	if !TreeTypeMask(TreeGrowingStock, row, cat, DefaultTreeTypeOptions) {
		t.Fatal("want qualifying tree classified growing stock")
	}

	smallRow := map[string]interface{}{
		"STATUSCD": 1, "TREECLCD": 2, "DIA": 3.0, "SPCD": 131,
	}
	if TreeTypeMask(TreeGrowingStock, smallRow, cat, DefaultTreeTypeOptions) {
		t.Fatal("want sub-5in tree excluded from growing stock")
	}

	ineligibleSpecies := map[string]interface{}{
		"STATUSCD": 1, "TREECLCD": 2, "DIA": 8.0, "SPCD": 999,
	}
	if TreeTypeMask(TreeGrowingStock, ineligibleSpecies, cat, DefaultTreeTypeOptions) {
		t.Fatal("want species ineligible for growing stock excluded")
	}
}

func TestTreeTypeMaskGrowingStockAgentExclusion(t *testing.T) {
	cat := testCatalog()
	row := map[string]interface{}{
		"STATUSCD": 1, "TREECLCD": 2, "DIA": 8.0, "SPCD": 131, "AGENTCD": 30,
	}
	opts := TreeTypeOptions{ExcludedAgentCodes: map[int]bool{30: true}}
	if TreeTypeMask(TreeGrowingStock, row, cat, opts) {
		t.Fatal("want tree with excluded AGENTCD rejected")
	}
	if !TreeTypeMask(TreeGrowingStock, row, cat, DefaultTreeTypeOptions) {
		t.Fatal("want the same tree accepted when no agent codes are excluded")
	}
}

func TestTreeTypeMaskSawlogThreshold(t *testing.T) {
	cat := testCatalog()
	softwood := map[string]interface{}{
		"STATUSCD": 1, "TREECLCD": 2, "SPCD": 131, "DIA": 9.0,
	}
	if !TreeTypeMask(TreeSawlog, softwood, cat, DefaultTreeTypeOptions) {
		t.Fatal("want 9in softwood to clear the softwood sawlog threshold")
	}
	hardwood := map[string]interface{}{
		"STATUSCD": 1, "TREECLCD": 2, "SPCD": 802, "DIA": 9.0,
	}
	if TreeTypeMask(TreeSawlog, hardwood, cat, DefaultTreeTypeOptions) {
		t.Fatal("want 9in hardwood to fall short of the hardwood sawlog threshold")
	}
}
