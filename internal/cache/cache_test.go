package cache

import (
	"testing"

	"github.com/nyxdb/sstable/internal/block"
)

func newTestBlock(t *testing.T) *block.Block {
	t.Helper()
	b := block.NewBuilder(16)
	b.Add([]byte("k"), []byte("v"))
	blk, err := block.New(b.Finish())
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	return blk
}

func TestCacheGetInsert(t *testing.T) {
	c := New(4)
	key := Key{CacheID: 1, Offset: 100}

	if _, ok := c.Get(key); ok {
		t.Fatalf("expected miss on empty cache")
	}

	blk := newTestBlock(t)
	c.Insert(key, blk)

	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected hit after Insert")
	}
	if got != blk {
		t.Errorf("Get returned a different Block than Insert stored")
	}
}

func TestCacheEviction(t *testing.T) {
	c := New(2)
	blk := newTestBlock(t)

	c.Insert(Key{CacheID: 1, Offset: 1}, blk)
	c.Insert(Key{CacheID: 1, Offset: 2}, blk)
	c.Insert(Key{CacheID: 1, Offset: 3}, blk) // evicts offset 1 (LRU)

	if _, ok := c.Get(Key{CacheID: 1, Offset: 1}); ok {
		t.Errorf("expected offset 1 to be evicted")
	}
	if _, ok := c.Get(Key{CacheID: 1, Offset: 2}); !ok {
		t.Errorf("expected offset 2 to still be cached")
	}
	if _, ok := c.Get(Key{CacheID: 1, Offset: 3}); !ok {
		t.Errorf("expected offset 3 to still be cached")
	}
	if c.Count() != 2 {
		t.Errorf("Count() = %d, want 2", c.Count())
	}
}

func TestCacheGetPromotesToMostRecentlyUsed(t *testing.T) {
	c := New(2)
	blk := newTestBlock(t)

	c.Insert(Key{CacheID: 1, Offset: 1}, blk)
	c.Insert(Key{CacheID: 1, Offset: 2}, blk)
	c.Get(Key{CacheID: 1, Offset: 1}) // touch 1, making 2 the LRU
	c.Insert(Key{CacheID: 1, Offset: 3}, blk)

	if _, ok := c.Get(Key{CacheID: 1, Offset: 2}); ok {
		t.Errorf("expected offset 2 to be evicted after being passed over")
	}
	if _, ok := c.Get(Key{CacheID: 1, Offset: 1}); !ok {
		t.Errorf("expected offset 1 to survive, it was recently touched")
	}
}

func TestCacheDistinctCacheIDsDoNotAlias(t *testing.T) {
	c := New(4)
	blkA := newTestBlock(t)
	blkB := newTestBlock(t)

	c.Insert(Key{CacheID: 1, Offset: 0}, blkA)
	c.Insert(Key{CacheID: 2, Offset: 0}, blkB)

	gotA, _ := c.Get(Key{CacheID: 1, Offset: 0})
	gotB, _ := c.Get(Key{CacheID: 2, Offset: 0})
	if gotA == gotB {
		t.Errorf("distinct cache IDs aliased the same entry")
	}
}

func TestNewCacheIDMonotonic(t *testing.T) {
	a := NewCacheID()
	b := NewCacheID()
	if b <= a {
		t.Errorf("NewCacheID() not monotonic: %d then %d", a, b)
	}
}

func TestKeyBytesEncoding(t *testing.T) {
	k := Key{CacheID: 1, Offset: 2}
	b := k.Bytes()
	if len(b) != 16 {
		t.Fatalf("Bytes() length = %d, want 16", len(b))
	}
	if b[0] != 1 || b[8] != 2 {
		t.Errorf("Bytes() = % x, want little-endian CacheID then Offset", b)
	}
}

func TestCacheZeroCapacityDisablesCaching(t *testing.T) {
	c := New(0)
	blk := newTestBlock(t)
	c.Insert(Key{CacheID: 1, Offset: 0}, blk)
	if _, ok := c.Get(Key{CacheID: 1, Offset: 0}); ok {
		t.Errorf("a zero-capacity cache should never retain entries")
	}
}
