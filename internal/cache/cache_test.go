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

package cache

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestCacheBuildsOncePerKey(t *testing.T) {
	var calls int32
	c := New(func(ctx context.Context, key interface{}) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return key.(string) + "-built", nil
	}, 10)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		v, err := c.Get(ctx, "412101")
		if err != nil {
			t.Fatal(err)
		}
		if v.(string) != "412101-built" {
			t.Errorf("got %v", v)
		}
	}
	if calls != 1 {
		t.Errorf("build called %d times, want 1", calls)
	}
}

func TestCacheDistinctKeys(t *testing.T) {
	var calls int32
	c := New(func(ctx context.Context, key interface{}) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return key, nil
	}, 10)

	ctx := context.Background()
	if _, err := c.Get(ctx, "412101"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "372301"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("build called %d times, want 2", calls)
	}
}
