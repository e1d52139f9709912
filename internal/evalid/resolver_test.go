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

package evalid

import "testing"

func sampleRows() []Row {
	return []Row{
		{State: 41, EVALID: 411901, Type: Volume, StartInvYr: 2015, EndInvYr: 2019},
		{State: 41, EVALID: 412101, Type: Volume, StartInvYr: 2017, EndInvYr: 2021},
		{State: 41, EVALID: 412001, Type: Area, StartInvYr: 2016, EndInvYr: 2020},
		{State: 37, EVALID: 372301, Type: Volume, StartInvYr: 2019, EndInvYr: 2023},
	}
}

func TestResolveMostRecent(t *testing.T) {
	set, err := Resolve(sampleRows(), []int{41}, Volume, MostRecentSelector())
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Evaluations) != 1 || set.Evaluations[0].EVALID != 412101 {
		t.Fatalf("got %+v, want the 412101 evaluation", set.Evaluations)
	}
}

func TestResolveMultiState(t *testing.T) {
	set, err := Resolve(sampleRows(), []int{41, 37}, Volume, MostRecentSelector())
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Evaluations) != 2 {
		t.Fatalf("got %d evaluations, want 2", len(set.Evaluations))
	}
}

func TestResolveYear(t *testing.T) {
	set, err := Resolve(sampleRows(), []int{41}, Volume, YearSelector(2019))
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Evaluations) != 1 || set.Evaluations[0].EVALID != 411901 {
		t.Fatalf("got %+v", set.Evaluations)
	}
}

func TestResolveNoMatch(t *testing.T) {
	_, err := Resolve(sampleRows(), []int{6}, Volume, MostRecentSelector())
	if _, ok := err.(*NoMatchingEvaluation); !ok {
		t.Fatalf("got %v, want NoMatchingEvaluation", err)
	}
}

func TestResolveExplicitInconsistent(t *testing.T) {
	rows := append(sampleRows(), Row{State: 41, EVALID: 412102, Type: Volume, StartInvYr: 2017, EndInvYr: 2021})
	_, err := Resolve(rows, []int{41}, Volume, ExplicitSelector(412101, 412102))
	if _, ok := err.(*InconsistentEvaluation); !ok {
		t.Fatalf("got %v, want InconsistentEvaluation", err)
	}
}

func TestResolveExplicitOK(t *testing.T) {
	set, err := Resolve(sampleRows(), []int{41}, Volume, ExplicitSelector(411901))
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Evaluations) != 1 || set.Evaluations[0].EVALID != 411901 {
		t.Fatalf("got %+v", set.Evaluations)
	}
}
