package variable

import (
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"
)

// globalCache stores parse trees keyed by the xxh3 hash of their source.
// Trees are immutable, so parsers of identical strings share them.
var globalCache sync.Map

// state holds the parse tree of one source string.
type state struct {
	once   sync.Once
	source string
	root   *Node
}

// cacheKey returns the cache key of source.
func cacheKey(source string) string {
	return strconv.FormatUint(xxh3.HashString(source), 36)
}

// cached returns the parse tree of source, calling parse at most once per
// distinct source string for the life of the process (or until [ClearCache]).
func cached(source string, parse func() *Node) *Node {
	entry := &state{source: source}

	value, _ := globalCache.LoadOrStore(cacheKey(source), entry)

	meta, ok := value.(*state)
	if !ok || meta.source != source {
		// Hash collision: parse without caching.
		return parse()
	}

	meta.once.Do(func() { meta.root = parse() })

	return meta.root
}

// CacheLen returns the number of parse trees currently cached.
func CacheLen() int {
	n := 0

	globalCache.Range(func(any, any) bool {
		n++

		return true
	})

	return n
}

// ClearCache removes all cached parse trees.
// This is primarily useful for testing or when memory needs to be reclaimed.
func ClearCache() {
	globalCache.Clear()
}
