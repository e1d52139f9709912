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

package join

import (
	"strings"
	"testing"
)

func TestBuildCondLevelOmitsTreeJoin(t *testing.T) {
	p := Plan{EVALIDs: []int{411901}, Level: LevelCond}
	query, args := p.Build()
	if strings.Contains(query, "JOIN TREE") {
		t.Fatalf("cond-level plan should not join TREE: %s", query)
	}
	if strings.Contains(query, "tree.") {
		t.Fatalf("cond-level plan should not project TREE columns: %s", query)
	}
	if len(args) != 1 || args[0] != 411901 {
		t.Fatalf("got args %v", args)
	}
}

func TestBuildTreeLevelIncludesTree(t *testing.T) {
	p := Plan{EVALIDs: []int{411901, 412101}, Level: LevelTree, ExtraTree: []string{"VOLCFNET"}}
	query, args := p.Build()
	if !strings.Contains(query, "JOIN TREE tree ON tree.PLT_CN = cond.PLT_CN AND tree.CONDID = cond.CONDID") {
		t.Fatalf("tree-level plan must join TREE: %s", query)
	}
	if !strings.Contains(query, "tree.VOLCFNET AS tree_VOLCFNET") {
		t.Fatalf("extra tree column not projected: %s", query)
	}
	if len(args) != 2 {
		t.Fatalf("got %d args, want 2", len(args))
	}
}

func TestBuildDeduplicatesExtraColumns(t *testing.T) {
	p := Plan{EVALIDs: []int{1}, Level: LevelTree, ExtraTree: []string{"DIA", "DIA", "VOLCFNET"}}
	query, _ := p.Build()
	if strings.Count(query, "tree_DIA") != 1 {
		t.Fatalf("expected DIA to be deduplicated in projection: %s", query)
	}
}

func TestPlanString(t *testing.T) {
	p := Plan{EVALIDs: []int{411901, 412101}, Level: LevelTree}
	s := p.String()
	if !strings.Contains(s, "411901,412101") || !strings.Contains(s, "TREE") {
		t.Fatalf("got %q", s)
	}
}
