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
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
)

// BuildFunc produces the cached value for key. It runs at most once
// per distinct key (per Cache), regardless of how many concurrent
// requests ask for that key at the same time.
type BuildFunc func(ctx context.Context, key interface{}) (interface{}, error)

// Cache memoizes the result of an expensive, evaluation-set-keyed
// build — a stratum table join, a reference-catalog load — behind a
// bounded in-memory LRU. It is the generic form of the stratum-table
// and reference-table caches in §3.3's "Lifecycles" note: built once
// per database open, discarded only when the Cache itself is.
//
// Concurrency matches §5: readers never block on each other, and a
// race to build the same key resolves to a single build whose result
// every racing caller receives (requestcache's Deduplicate option);
// nothing here holds a lock across the build call itself.
type Cache struct {
	build BuildFunc
	size  int

	initOnce sync.Once
	inner    *requestcache.Cache
}

// New creates a Cache that calls build at most once per key and
// retains up to size built results in memory.
func New(build BuildFunc, size int) *Cache {
	if size <= 0 {
		size = 100
	}
	return &Cache{build: build, size: size}
}

func (c *Cache) init() {
	c.initOnce.Do(func() {
		c.inner = requestcache.NewCache(
			func(ctx context.Context, request interface{}) (interface{}, error) {
				return c.build(ctx, request)
			},
			runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(c.size),
		)
	})
}

// Get returns the cached value for key, building it (and caching the
// result) if this is the first request for that key. The value
// returned is shared across callers: treat it as read-only, matching
// the read-mostly-resource policy in §5.
func (c *Cache) Get(ctx context.Context, key interface{}) (interface{}, error) {
	c.init()
	req := c.inner.NewRequest(ctx, key, keyOf(key))
	v, err := req.Result()
	if err != nil {
		return nil, fmt.Errorf("cache: building %v: %w", key, err)
	}
	return v, nil
}
