// Package cache memoizes compiled expression units across reactive
// updates. Bindings re-evaluate every frame but recompile only when a
// distinct expression shape first appears, so the cache is keyed by the
// structural hash of the tree with the serialized tree as a tie-break
// against collisions.
//
// An optional SQLite-backed store adds a persistent tier underneath the
// in-memory LRU, letting ahead-of-time compiled units survive process
// restarts.
package cache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/reflexlang/reflex/pkg/ast"
	"github.com/reflexlang/reflex/pkg/bytecode"
)

// DefaultCapacity bounds the in-memory tier when no capacity is given.
const DefaultCapacity = 256

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

type cacheEntry struct {
	hash uint64
	tree []byte
	unit *bytecode.Unit
}

// Cache is a thread-safe LRU of compiled units.
type Cache struct {
	mu      sync.Mutex
	cap     int
	ll      *list.List
	byHash  map[uint64][]*list.Element
	store   *Store
	hits    uint64
	misses  uint64
	evicted uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore attaches a persistent tier consulted on memory misses and
// written through on compilation.
func WithStore(s *Store) Option {
	return func(c *Cache) { c.store = s }
}

// New returns a cache holding at most capacity units in memory.
// Non-positive capacities fall back to DefaultCapacity.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		cap:    capacity,
		ll:     list.New(),
		byHash: make(map[uint64][]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompile returns the cached unit for expr, compiling it through
// the full pipeline (fold, compile, dead-code sweep) on first sight.
// The returned unit is shared and must be treated as read-only.
func (c *Cache) GetOrCompile(expr ast.Expr) (*bytecode.Unit, error) {
	hash := ast.Hash(expr)
	tree, err := ast.ToJSON(expr)
	if err != nil {
		return nil, fmt.Errorf("keying expression: %w", err)
	}

	c.mu.Lock()
	if unit := c.lookup(hash, tree); unit != nil {
		c.hits++
		c.mu.Unlock()
		return unit, nil
	}
	c.misses++
	c.mu.Unlock()

	// Persistent tier, then compile. Done outside the lock; a racing
	// duplicate compile is harmless since units are interchangeable.
	unit, err := c.loadOrCompile(hash, tree, expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.insert(hash, tree, unit)
	c.mu.Unlock()
	return unit, nil
}

// Get returns the in-memory cached unit for expr, if any.
func (c *Cache) Get(expr ast.Expr) (*bytecode.Unit, bool) {
	tree, err := ast.ToJSON(expr)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if unit := c.lookup(ast.Hash(expr), tree); unit != nil {
		c.hits++
		return unit, true
	}
	c.misses++
	return nil, false
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evicted, Entries: c.ll.Len()}
}

// Purge drops every in-memory entry. The persistent tier is untouched.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.byHash = make(map[uint64][]*list.Element)
}

func (c *Cache) loadOrCompile(hash uint64, tree []byte, expr ast.Expr) (*bytecode.Unit, error) {
	if c.store != nil {
		if unit, err := c.store.Load(hash, tree); err == nil && unit != nil {
			return unit, nil
		}
	}

	unit, err := bytecode.NewCompiler().Compile(bytecode.Fold(expr))
	if err != nil {
		return nil, fmt.Errorf("compiling expression: %w", err)
	}
	bytecode.EliminateDeadCode(unit)

	if c.store != nil {
		// Best effort; a write failure only costs a recompile later.
		_ = c.store.Save(hash, tree, unit)
	}
	return unit, nil
}

// lookup must be called with the mutex held.
func (c *Cache) lookup(hash uint64, tree []byte) *bytecode.Unit {
	for _, el := range c.byHash[hash] {
		e := el.Value.(*cacheEntry)
		if string(e.tree) == string(tree) {
			c.ll.MoveToFront(el)
			return e.unit
		}
	}
	return nil
}

// insert must be called with the mutex held.
func (c *Cache) insert(hash uint64, tree []byte, unit *bytecode.Unit) {
	if c.lookup(hash, tree) != nil {
		return
	}
	el := c.ll.PushFront(&cacheEntry{hash: hash, tree: tree, unit: unit})
	c.byHash[hash] = append(c.byHash[hash], el)

	for c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
		c.evicted++
	}
}

func (c *Cache) remove(el *list.Element) {
	e := el.Value.(*cacheEntry)
	c.ll.Remove(el)
	bucket := c.byHash[e.hash]
	for i, candidate := range bucket {
		if candidate == el {
			c.byHash[e.hash] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(c.byHash[e.hash]) == 0 {
		delete(c.byHash, e.hash)
	}
}
