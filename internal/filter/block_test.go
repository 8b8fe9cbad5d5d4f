package filter

import "testing"

func TestFilterBlockRoundTrip(t *testing.T) {
	policy := NewBloomPolicy(10)
	b := NewBlockBuilder(policy)

	b.AddKey([]byte("key1"))
	b.AddKey([]byte("key2"))
	b.StartBlock(100) // block starting at offset 0 covers [0, 100)
	b.AddKey([]byte("key3"))
	b.StartBlock(1 << BaseLg2) // force a fresh sub-filter range
	b.AddKey([]byte("key4"))
	b.StartBlock(2 << BaseLg2)

	contents := b.Finish()
	reader := NewBlockReader(policy, contents)

	if !reader.KeyMayMatch(0, []byte("key1")) {
		t.Errorf("key1 should match in the first block's range")
	}
	if !reader.KeyMayMatch(0, []byte("key2")) {
		t.Errorf("key2 should match in the first block's range")
	}
	if !reader.KeyMayMatch(100, []byte("key3")) {
		t.Errorf("key3 should match in the second block's range")
	}
}

func TestFilterBlockEmptyRangeMatchesAll(t *testing.T) {
	policy := NewBloomPolicy(10)
	b := NewBlockBuilder(policy)
	b.AddKey([]byte("only-in-first-range"))
	b.StartBlock(1 << BaseLg2)
	b.StartBlock(5 << BaseLg2) // ranges [1,5) have no keys: empty sub-filters

	contents := b.Finish()
	reader := NewBlockReader(policy, contents)

	if !reader.KeyMayMatch(3<<BaseLg2, []byte("anything")) {
		t.Errorf("an empty sub-filter range must match everything")
	}
}

func TestFilterBlockNumKeys(t *testing.T) {
	b := NewBlockBuilder(NewBloomPolicy(10))
	b.AddKey([]byte("a"))
	b.AddKey([]byte("b"))
	b.StartBlock(1 << BaseLg2)
	b.AddKey([]byte("c"))
	if b.NumKeys() != 3 {
		t.Errorf("NumKeys() = %d, want 3", b.NumKeys())
	}
}

func TestFilterBlockReaderOutOfRangeMatchesAll(t *testing.T) {
	policy := NewBloomPolicy(10)
	b := NewBlockBuilder(policy)
	b.AddKey([]byte("a"))
	b.StartBlock(1 << BaseLg2)
	contents := b.Finish()
	reader := NewBlockReader(policy, contents)

	if !reader.KeyMayMatch(1000<<BaseLg2, []byte("z")) {
		t.Errorf("offset past every emitted sub-filter must match everything")
	}
}

func TestFilterBlockNoFilterPolicy(t *testing.T) {
	b := NewBlockBuilder(NoFilterPolicy{})
	b.AddKey([]byte("a"))
	b.StartBlock(1)
	contents := b.Finish()
	reader := NewBlockReader(NoFilterPolicy{}, contents)
	if !reader.KeyMayMatch(0, []byte("anything")) {
		t.Errorf("NoFilterPolicy-backed FilterBlock should match everything")
	}
}
