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
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/filter"
	"github.com/usfs-fia/fiaestimate/internal/grm"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
	"github.com/usfs-fia/fiaestimate/internal/value"
)

// The fixture is one miniature two-evaluation state: evaluation 412101
// (EXPCURR + EXPVOL) over plots P1 (fully forested, three trees) and
// P2 (nonforest, treeless), and remeasurement evaluation 412102
// (EXPGROW/EXPMORT/EXPREMV/EXPCHNG) over plots P3 (remeasured forest,
// one survivor, one mortality tree) and P4 (nonforest). All adjustment
// factors and EXPNS are 1 and each estimation unit covers 100 acres,
// so every expected value below is checkable by hand.
var fixtureStatements = []string{
	`CREATE TABLE PLOT (
		CN TEXT, PREV_PLT_CN TEXT, STATECD INTEGER, INVYR INTEGER,
		MACRO_BREAKPOINT_DIA REAL)`,
	`CREATE TABLE COND (
		PLT_CN TEXT, CONDID INTEGER, CONDPROP_UNADJ REAL, PROP_BASIS TEXT,
		COND_STATUS_CD INTEGER, SITECLCD INTEGER, RESERVCD INTEGER,
		FORTYPCD INTEGER, OWNGRPCD INTEGER, SICOND REAL, SIBASE INTEGER,
		PREV_CONDID INTEGER)`,
	`CREATE TABLE TREE (
		CN TEXT, PLT_CN TEXT, CONDID INTEGER, STATUSCD INTEGER, DIA REAL,
		SPCD INTEGER, TPA_UNADJ REAL, TREECLCD INTEGER, AGENTCD INTEGER,
		VOLCFNET REAL, VOLCFGRS REAL, VOLBFNET REAL, VOLCSNET REAL,
		DRYBIO_AG REAL, DRYBIO_BG REAL, CARBON_AG REAL, CARBON_BG REAL,
		PREV_TRE_CN TEXT)`,
	`CREATE TABLE POP_EVAL (
		CN TEXT, EVALID INTEGER, STATECD INTEGER, START_INVYR INTEGER,
		END_INVYR INTEGER, EVAL_DESCR TEXT)`,
	`CREATE TABLE POP_EVAL_TYP (EVAL_CN TEXT, EVAL_TYP TEXT)`,
	`CREATE TABLE POP_ESTN_UNIT (
		CN TEXT, EVAL_CN TEXT, AREA_USED REAL, P1PNTCNT_EU REAL)`,
	`CREATE TABLE POP_STRATUM (
		CN TEXT, ESTN_UNIT_CN TEXT, EVALID INTEGER, EXPNS REAL,
		P1POINTCNT REAL, P2POINTCNT REAL,
		ADJ_FACTOR_MICR REAL, ADJ_FACTOR_SUBP REAL, ADJ_FACTOR_MACR REAL)`,
	`CREATE TABLE POP_PLOT_STRATUM_ASSGN (
		STRATUM_CN TEXT, PLT_CN TEXT, EVALID INTEGER)`,
	`CREATE TABLE TREE_GRM_COMPONENT (
		TRE_CN TEXT, SUBPTYP_GRM INTEGER, COMPONENT TEXT,
		TPAGROW_UNADJ REAL, TPAMORT_UNADJ REAL, TPAREMV_UNADJ REAL)`,
	`CREATE TABLE TREE_GRM_BEGIN (
		TRE_CN TEXT, DIA REAL, VOLCFNET REAL, DRYBIO_AG REAL, DRYBIO_BG REAL)`,
	`CREATE TABLE TREE_GRM_MIDPT (
		TRE_CN TEXT, DIA REAL, VOLCFNET REAL, DRYBIO_AG REAL, DRYBIO_BG REAL)`,
	`CREATE TABLE SUBP_COND_CHNG_MTRX (
		PLT_CN TEXT, PREV_PLT_CN TEXT, CONDID INTEGER, PREVCOND INTEGER,
		SUBPTYP_PROP_CHNG REAL)`,
	`CREATE TABLE BEGINEND (ONEORTWO INTEGER)`,

	`INSERT INTO POP_EVAL VALUES
		('E1', 412101, 41, 2019, 2021, 'current area and volume'),
		('E2', 412102, 41, 2016, 2021, 'remeasurement')`,
	`INSERT INTO POP_EVAL_TYP VALUES
		('E1', 'EXPCURR'), ('E1', 'EXPVOL'),
		('E2', 'EXPGROW'), ('E2', 'EXPMORT'), ('E2', 'EXPREMV'), ('E2', 'EXPCHNG')`,
	`INSERT INTO POP_ESTN_UNIT VALUES
		('U1', 'E1', 100, 2), ('U2', 'E2', 100, 2)`,
	`INSERT INTO POP_STRATUM VALUES
		('S1', 'U1', 412101, 1, 2, 2, 1, 1, 1),
		('S2', 'U2', 412102, 1, 2, 2, 1, 1, 1)`,
	`INSERT INTO POP_PLOT_STRATUM_ASSGN VALUES
		('S1', 'P1', 412101), ('S1', 'P2', 412101),
		('S2', 'P3', 412102), ('S2', 'P4', 412102)`,
	`INSERT INTO PLOT VALUES
		('P1', NULL, 41, 2021, NULL),
		('P2', NULL, 41, 2021, NULL),
		('P3', 'P3PREV', 41, 2021, NULL),
		('P4', NULL, 41, 2021, NULL),
		('P3PREV', NULL, 41, 2016, NULL)`,
	`INSERT INTO COND VALUES
		('P1', 1, 1.0, 'SUBP', 1, 3, 0, 201, 40, 95, 50, NULL),
		('P2', 1, 1.0, 'SUBP', 2, NULL, 0, NULL, 40, NULL, NULL, NULL),
		('P3', 1, 1.0, 'SUBP', 1, 3, 0, 201, 40, NULL, NULL, NULL),
		('P4', 1, 1.0, 'SUBP', 2, NULL, 0, NULL, 40, NULL, NULL, NULL),
		('P3PREV', 1, 1.0, 'SUBP', 2, NULL, 0, NULL, 40, NULL, NULL, NULL)`,
	`INSERT INTO TREE VALUES
		('T1', 'P1', 1, 1, 10.0, 202, 6.0, 2, 0, 20.0, 25.0, 80.0, 22.0, 1000, 200, 500, 100, NULL),
		('T2', 'P1', 1, 1, 3.0, 312, 75.0, 2, 0, NULL, NULL, NULL, NULL, 20, 5, 10, 2, NULL),
		('T3', 'P1', 1, 2, 12.0, 202, 6.0, 3, 30, 15.0, 18.0, 60.0, 16.0, 800, 150, 400, 80, NULL),
		('T4', 'P3', 1, 1, 11.0, 202, 6.0, 2, 0, 24.0, 30.0, 90.0, 26.0, 1100, 220, 550, 110, NULL),
		('T5', 'P3', 1, 2, 9.5, 202, 6.0, 3, 30, 16.0, 19.0, 65.0, 17.0, 780, 140, 390, 70, NULL)`,
	`INSERT INTO TREE_GRM_COMPONENT VALUES
		('T4', 1, 'SURVIVOR', 6.0, 0, 0),
		('T5', 1, 'MORTALITY1', 0, 1.2, 0)`,
	`INSERT INTO TREE_GRM_BEGIN VALUES ('T4', 9.0, 14.0, 700, 140)`,
	`INSERT INTO TREE_GRM_MIDPT VALUES
		('T4', 10.0, 19.0, 850, 170),
		('T5', 9.5, 16.0, 750, 150)`,
	`INSERT INTO SUBP_COND_CHNG_MTRX VALUES ('P3', 'P3PREV', 1, 1, 4.0)`,
	`INSERT INTO BEGINEND VALUES (1), (2)`,
}

func writeFixture(t *testing.T, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fia.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening fixture database: %v", err)
	}
	defer db.Close()
	for _, stmt := range fixtureStatements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("building fixture: %v\nstatement: %s", err, stmt)
		}
	}
	for _, stmt := range extra {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("altering fixture: %v\nstatement: %s", err, stmt)
		}
	}
	return path
}

func testCatalog() *refcat.Catalog {
	return refcat.NewCatalog([]refcat.Species{
		{SPCD: 202, CommonName: "Douglas-fir", Softwood: true, GrowingStock: true},
		{SPCD: 312, CommonName: "bigleaf maple", Softwood: false, GrowingStock: true},
	}, nil, map[int]string{41: "Oregon"})
}

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	path := writeFixture(t)
	db, err := Open(context.Background(), &Config{DatabasePath: path, CacheSize: 10}, testCatalog())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func estimateOf(t *testing.T, rows []output.Row, i int) float64 {
	t.Helper()
	if i >= len(rows) {
		t.Fatalf("result has %d rows, want at least %d", len(rows), i+1)
	}
	if rows[i].Result.Estimate == nil {
		t.Fatalf("row %d: nil estimate", i)
	}
	return *rows[i].Result.Estimate
}

func near(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func TestOpenFailsOnMissingColumn(t *testing.T) {
	path := writeFixture(t, `ALTER TABLE TREE DROP COLUMN TPA_UNADJ`)
	_, err := Open(context.Background(), &Config{DatabasePath: path, CacheSize: 10}, testCatalog())
	if err == nil {
		t.Fatal("Open: want schema error for missing TREE.TPA_UNADJ, got nil")
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Open: got %T (%v), want *SchemaError", err, err)
	}
}

func TestTPATotalsAndPerAcre(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
		Variance: true,
	}

	totalReq := base
	totalReq.Totals = true
	totals, err := db.TPA(ctx, totalReq)
	if err != nil {
		t.Fatalf("TPA totals: %v", err)
	}
	// Live trees on P1 expand to 6 + 75 = 81; P2 contributes zero but
	// still counts toward n_h, so the total is 100 acres x mean(81, 0).
	if got := estimateOf(t, totals, 0); !near(got, 4050) {
		t.Errorf("TPA total = %v, want 4050", got)
	}
	if totals[0].Result.NPlots != 2 {
		t.Errorf("TPA total NPlots = %d, want 2 (nonforest plot must count)", totals[0].Result.NPlots)
	}
	if totals[0].Result.Variance == nil || *totals[0].Result.Variance < 0 {
		t.Errorf("TPA total variance = %v, want non-negative", totals[0].Result.Variance)
	}
	if totals[0].Year != 2021 {
		t.Errorf("TPA total Year = %d, want 2021", totals[0].Year)
	}

	perAcre, err := db.TPA(ctx, base)
	if err != nil {
		t.Fatalf("TPA per acre: %v", err)
	}
	// 4050 trees over 50 forested acres.
	if got := estimateOf(t, perAcre, 0); !near(got, 81) {
		t.Errorf("TPA per acre = %v, want 81", got)
	}
}

// TestRatioIdentity checks §8's ratio identity: per-acre estimate x
// total forest area = total estimate.
func TestRatioIdentity(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
	}

	perAcre, err := db.TPA(ctx, base)
	if err != nil {
		t.Fatalf("TPA per acre: %v", err)
	}
	totalReq := base
	totalReq.Totals = true
	total, err := db.TPA(ctx, totalReq)
	if err != nil {
		t.Fatalf("TPA total: %v", err)
	}
	areaReq := Request{Selector: evalid.MostRecentSelector(), LandType: filter.LandForest, Totals: true}
	area, err := db.Area(ctx, areaReq)
	if err != nil {
		t.Fatalf("Area total: %v", err)
	}
	want := estimateOf(t, perAcre, 0) * estimateOf(t, area, 0)
	if got := estimateOf(t, total, 0); !near(got, want) {
		t.Errorf("per-acre x area = %v, total = %v: ratio identity violated", want, got)
	}
}

// TestPartitionConsistency checks §8's partition consistency: the sum
// of grouped totals equals the ungrouped total. This only holds when
// every plot counts toward n_h in every group, including plots with no
// member rows in a group.
func TestPartitionConsistency(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
		Totals:   true,
	}

	ungrouped, err := db.TPA(ctx, base)
	if err != nil {
		t.Fatalf("TPA ungrouped: %v", err)
	}

	grouped := base
	grouped.GroupBy = []output.GroupSpec{{Shortcut: output.ShortcutSpecies}}
	bySpecies, err := db.TPA(ctx, grouped)
	if err != nil {
		t.Fatalf("TPA by species: %v", err)
	}
	if len(bySpecies) != 2 {
		t.Fatalf("TPA by species: got %d groups, want 2 (SPCD 202 and 312)", len(bySpecies))
	}
	var sum float64
	for i, row := range bySpecies {
		sum += estimateOf(t, bySpecies, i)
		if row.Result.NPlots != 2 {
			t.Errorf("group %v NPlots = %d, want 2 (every assigned plot counts in every group)",
				row.GroupKeys, row.Result.NPlots)
		}
	}
	if want := estimateOf(t, ungrouped, 0); !near(sum, want) {
		t.Errorf("sum of grouped totals = %v, ungrouped total = %v", sum, want)
	}
}

func TestVolumeGrossAtLeastNet(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
		Totals:   true,
	}

	net, err := db.Volume(ctx, base)
	if err != nil {
		t.Fatalf("Volume net: %v", err)
	}
	grossReq := base
	grossReq.VolType = value.VolGross
	gross, err := db.Volume(ctx, grossReq)
	if err != nil {
		t.Fatalf("Volume gross: %v", err)
	}
	// T1 is the only live tree with volume: net 6x20 = 120, gross
	// 6x25 = 150; totals 6000 and 7500.
	gotNet, gotGross := estimateOf(t, net, 0), estimateOf(t, gross, 0)
	if !near(gotNet, 6000) {
		t.Errorf("net volume total = %v, want 6000", gotNet)
	}
	if !near(gotGross, 7500) {
		t.Errorf("gross volume total = %v, want 7500", gotGross)
	}
	if gotGross < gotNet {
		t.Errorf("gross (%v) < net (%v): gross >= net violated", gotGross, gotNet)
	}
}

// TestDomainMonotonicity checks §8: tightening the tree domain never
// increases a total.
func TestDomainMonotonicity(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
		Totals:   true,
	}

	all, err := db.TPA(ctx, base)
	if err != nil {
		t.Fatalf("TPA unrestricted: %v", err)
	}
	narrow := base
	narrow.TreeDomain = "DIA >= 5.0"
	big, err := db.TPA(ctx, narrow)
	if err != nil {
		t.Fatalf("TPA DIA >= 5: %v", err)
	}
	// Only T1 (DIA 10) survives: 100 x mean(6, 0) = 300.
	gotAll, gotBig := estimateOf(t, all, 0), estimateOf(t, big, 0)
	if !near(gotBig, 300) {
		t.Errorf("TPA with DIA >= 5.0 = %v, want 300", gotBig)
	}
	if gotBig > gotAll {
		t.Errorf("tightened domain total %v exceeds unrestricted total %v", gotBig, gotAll)
	}
}

func TestAreaShareAndSiteIndex(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	share, err := db.Area(ctx, Request{Selector: evalid.MostRecentSelector(), LandType: filter.LandForest})
	if err != nil {
		t.Fatalf("Area share: %v", err)
	}
	// One of the two fully-sampled plots is forest.
	if got := estimateOf(t, share, 0); !near(got, 0.5) {
		t.Errorf("forest share of land = %v, want 0.5", got)
	}
	if share[0].NConditions != 2 {
		t.Errorf("Area NConditions = %d, want 2", share[0].NConditions)
	}

	si, err := db.SiteIndex(ctx, Request{Selector: evalid.MostRecentSelector(), LandType: filter.LandForest})
	if err != nil {
		t.Fatalf("SiteIndex: %v", err)
	}
	// P1 is the only forested condition; its SICOND is 95.
	if got := estimateOf(t, si, 0); !near(got, 95) {
		t.Errorf("mean site index = %v, want 95", got)
	}
}

func TestMortalityGrowthRemovals(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		Totals:   true,
		Annual:   true,
	}

	// T5's MORTALITY1 row: V_mid 16 x TPAMORT_UNADJ 1.2 = 19.2 per
	// acre on P3; P4 counts with zero. Total 100 x mean(19.2, 0).
	mort, err := db.Mortality(ctx, base)
	if err != nil {
		t.Fatalf("Mortality: %v", err)
	}
	if got := estimateOf(t, mort, 0); !near(got, 960) {
		t.Errorf("annual mortality total = %v, want 960", got)
	}
	if mort[0].Result.NPlots != 2 {
		t.Errorf("Mortality NPlots = %d, want 2 (plot without GRM rows must count)", mort[0].Result.NPlots)
	}

	// T4's SURVIVOR row grows (19-14)/5 x 6 = 6; the mortality row
	// subtracts 19.2. Net growth total 100 x mean(-13.2, 0) = -660.
	grow, err := db.Growth(ctx, base)
	if err != nil {
		t.Fatalf("Growth: %v", err)
	}
	if got := estimateOf(t, grow, 0); !near(got, -660) {
		t.Errorf("annual net growth total = %v, want -660", got)
	}

	remv, err := db.Removals(ctx, base)
	if err != nil {
		t.Fatalf("Removals: %v", err)
	}
	if got := estimateOf(t, remv, 0); got != 0 {
		t.Errorf("annual removals total = %v, want 0", got)
	}
	if remv[0].Result.CV != nil {
		t.Errorf("Removals CV = %v, want nil for a zero estimate", *remv[0].Result.CV)
	}

	// Per-acre mortality over the 50 forested acres of U2.
	perAcre := base
	perAcre.Totals = false
	mortAcre, err := db.Mortality(ctx, perAcre)
	if err != nil {
		t.Fatalf("Mortality per acre: %v", err)
	}
	if got := estimateOf(t, mortAcre, 0); !near(got, 19.2) {
		t.Errorf("annual mortality per acre = %v, want 19.2", got)
	}
}

func TestAreaChangeGainLossNet(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		Annual:   true,
		Variance: true,
	}

	run := func(ct grm.ChangeType) float64 {
		req := base
		req.ChangeType = ct
		rows, err := db.AreaChange(ctx, req)
		if err != nil {
			t.Fatalf("AreaChange(%v): %v", ct, err)
		}
		return estimateOf(t, rows, 0)
	}

	// P3 went nonforest -> forest on all four subplots over a 5-year
	// remeasurement period: gain 4/4/5 = 0.2 acre-fraction per year,
	// total 100 x mean(0.2, 0) = 10 acres per year.
	gain := run(grm.ChangeGrossGain)
	loss := run(grm.ChangeGrossLoss)
	net := run(grm.ChangeNet)
	if !near(gain, 10) {
		t.Errorf("gross gain = %v, want 10", gain)
	}
	if loss != 0 {
		t.Errorf("gross loss = %v, want 0", loss)
	}
	if !near(gain-loss, net) {
		t.Errorf("gain - loss = %v, net = %v: round trip violated", gain-loss, net)
	}
}

func TestConfigurationErrors(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	_, err := db.TPA(ctx, Request{States: []int{99}, Selector: evalid.MostRecentSelector()})
	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("TPA with unknown state: got %T (%v), want *EvaluationError", err, err)
	}
	var nme *evalid.NoMatchingEvaluation
	if !errors.As(err, &nme) {
		t.Errorf("TPA with unknown state: error does not unwrap to NoMatchingEvaluation: %v", err)
	}

	_, err = db.TPA(ctx, Request{Selector: evalid.MostRecentSelector(), TreeDomain: "NO_SUCH_COLUMN == 1"})
	var fpe *FilterParseError
	if !errors.As(err, &fpe) {
		t.Fatalf("TPA with unknown column: got %T (%v), want *FilterParseError", err, err)
	}
	if fpe.Field != "tree_domain" {
		t.Errorf("FilterParseError.Field = %q, want %q", fpe.Field, "tree_domain")
	}
}

// TestIdempotence checks §8: the same request against an unchanged
// database produces bit-identical output.
func TestIdempotence(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	req := Request{
		Selector: evalid.MostRecentSelector(),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
		Variance: true,
		GroupBy:  []output.GroupSpec{{Shortcut: output.ShortcutSpecies}},
	}

	first, err := db.TPA(ctx, req)
	if err != nil {
		t.Fatalf("TPA first run: %v", err)
	}
	second, err := db.TPA(ctx, req)
	if err != nil {
		t.Fatalf("TPA second run: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i].Result, second[i].Result
		if *a.Estimate != *b.Estimate {
			t.Errorf("row %d: estimates differ: %v vs %v", i, *a.Estimate, *b.Estimate)
		}
		if *a.Variance != *b.Variance {
			t.Errorf("row %d: variances differ: %v vs %v", i, *a.Variance, *b.Variance)
		}
	}
}

// TestExplicitSelector resolves by literal EVALID rather than the
// most-recent policy.
func TestExplicitSelector(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	rows, err := db.TPA(ctx, Request{
		Selector: evalid.ExplicitSelector(412101),
		LandType: filter.LandForest,
		TreeType: filter.TreeLive,
		Totals:   true,
	})
	if err != nil {
		t.Fatalf("TPA explicit: %v", err)
	}
	if got := estimateOf(t, rows, 0); !near(got, 4050) {
		t.Errorf("TPA total under explicit EVALID = %v, want 4050", got)
	}
}
