// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package programs maintains the process-wide cache of compiled contract
// programs. Compilation is expensive and classes are immutable once
// declared, so every class is compiled at most once per process and the
// result is shared by all executions, across blocks and goroutines.
package programs

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// Cache resolves class hashes to compiled programs. A cache is safe for
// concurrent use; concurrent requests for the same class are served by a
// single compilation run whose result all requesters share. Entries are
// never evicted.
//
// Compilation failures are deterministic properties of a class, so they are
// cached like successful results and a failing class is not re-compiled.
// Failures to fetch the class definition from the state are not cached;
// they are infrastructure problems and the next request retries.
type Cache struct {
	compiler turandot.Compiler

	mu      sync.Mutex
	entries map[turandot.ClassHash]*entry
}

// entry is the resolution of a single class hash. The ready channel is
// closed once program and err carry the result; until then, only the
// goroutine that created the entry may touch those fields.
type entry struct {
	ready   chan struct{}
	program turandot.CompiledProgram
	err     error
}

// NewCache creates an empty cache compiling classes with the given compiler.
func NewCache(compiler turandot.Compiler) *Cache {
	return &Cache{
		compiler: compiler,
		entries:  map[turandot.ClassHash]*entry{},
	}
}

// GetOrCompile returns the compiled program for the given class, fetching
// the class definition through the given reader and compiling it if this is
// the first request for the class. The call blocks until the result is
// available. A returned error either reports a failed definition fetch,
// wrapping the reader's error, or a failed compilation, wrapping
// ErrCompilationFailed.
func (c *Cache) GetOrCompile(hash turandot.ClassHash, reader turandot.StateReader) (turandot.CompiledProgram, error) {
	c.mu.Lock()
	if e, found := c.entries[hash]; found {
		c.mu.Unlock()
		<-e.ready
		return e.program, e.err
	}
	e := &entry{ready: make(chan struct{})}
	c.entries[hash] = e
	c.mu.Unlock()

	// This goroutine owns the entry; all others wait on the ready channel.
	definition, err := reader.Class(hash)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, hash)
		c.mu.Unlock()
		e.err = fmt.Errorf("failed to fetch class %v: %w", hash, err)
		close(e.ready)
		return nil, e.err
	}

	program, err := c.compiler.Compile(definition)
	if err != nil {
		e.err = fmt.Errorf("%w: class %v: %v", turandot.ErrCompilationFailed, hash, err)
	} else {
		e.program = program
	}
	close(e.ready)
	return e.program, e.err
}

// Size returns the number of resolved or in-flight classes in the cache.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
