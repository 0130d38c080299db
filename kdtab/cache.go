package kdtab

import (
	"database/sql/driver"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	sqlite "modernc.org/sqlite"

	idxapi "github.com/viant/sqlite-kdtree/index"
)

// DefaultCacheSize bounds the number of dataset indices kept in memory.
const DefaultCacheSize = 256

// Global shared cache of indices keyed by db path/table/dataset for cross-connection reuse.
var sharedCache = struct {
	mu    sync.Mutex
	byKey *lru.Cache[string, *cacheEntry]
}{byKey: mustNewCache(DefaultCacheSize)}

func mustNewCache(size int) *lru.Cache[string, *cacheEntry] {
	c, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		panic(err)
	}
	return c
}

type cacheEntry struct {
	mu       sync.RWMutex
	idx      idxapi.Index
	building bool
	cond     *sync.Cond
	// version changes on every invalidation or direct publish; a build may
	// only publish when the version it started from is still current.
	version uint64
}

func newCacheEntry() *cacheEntry {
	e := &cacheEntry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *cacheEntry) get() idxapi.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

func (e *cacheEntry) set(idx idxapi.Index) {
	e.mu.Lock()
	e.idx = idx
	e.version++
	e.mu.Unlock()
}

func (e *cacheEntry) invalidate() {
	e.set(nil)
}

// publish stores idx only when no invalidation happened since the build
// that produced it started at version.
func (e *cacheEntry) publish(idx idxapi.Index, version uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.version != version {
		return false
	}
	e.idx = idx
	return true
}

func (e *cacheEntry) waitForBuild() idxapi.Index {
	e.mu.Lock()
	for e.building {
		e.cond.Wait()
	}
	idx := e.idx
	e.mu.Unlock()
	return idx
}

// startBuild claims the build for the caller and returns the version the
// build starts from; false means an index is present or another goroutine
// is already building it.
func (e *cacheEntry) startBuild() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idx != nil || e.building {
		return 0, false
	}
	e.building = true
	return e.version, true
}

func (e *cacheEntry) finishBuild() {
	e.mu.Lock()
	e.building = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

func cacheKey(dbPath, tableName, dataset string) string {
	return dbPath + "|" + tableName + "|" + dataset
}

func getCacheEntry(key string) *cacheEntry {
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	if entry, ok := sharedCache.byKey.Get(key); ok {
		return entry
	}
	entry := newCacheEntry()
	sharedCache.byKey.Add(key, entry)
	return entry
}

// SetCacheSize replaces the shared cache with an empty one holding at most
// size dataset indices.
func SetCacheSize(size int) error {
	c, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return err
	}
	sharedCache.mu.Lock()
	sharedCache.byKey = c
	sharedCache.mu.Unlock()
	return nil
}

// InvalidateCache clears cached indices for a given shadow/dataset across
// active connections. An empty dataset clears every dataset of the table.
func InvalidateCache(shadow, dataset string) int {
	tableName := tableNameFromShadow(shadow)
	if tableName == "" {
		tableName = shadow
	}
	match := func(k string) bool {
		if dataset == "" {
			return strings.Contains(k, "|"+tableName+"|")
		}
		return strings.HasSuffix(k, "|"+tableName+"|"+dataset)
	}
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	count := 0
	for _, k := range sharedCache.byKey.Keys() {
		if !match(k) {
			continue
		}
		if entry, ok := sharedCache.byKey.Peek(k); ok {
			entry.invalidate()
			count++
		}
	}
	if count > 0 {
		currentLogger().Debug("kd index invalidated", "shadow", shadow, "dataset", dataset, "entries", count)
	}
	return count
}

// invalidateFunc implements SQL scalar kd_invalidate(shadow TEXT, dataset TEXT) → INT.
func invalidateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return int64(0), nil
	}
	shadow, err := asString(args[0])
	if err != nil {
		return int64(0), nil
	}
	ds, err := asString(args[1])
	if err != nil {
		return int64(0), nil
	}
	return int64(InvalidateCache(shadow, ds)), nil
}
