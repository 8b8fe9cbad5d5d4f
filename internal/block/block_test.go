package block

import (
	"bytes"
	"testing"

	"github.com/nyxdb/sstable/internal/cmp"
)

func buildBlock(t *testing.T, restartInterval int, entries [][2]string) *Block {
	t.Helper()
	b := NewBuilder(restartInterval)
	for _, e := range entries {
		b.Add([]byte(e[0]), []byte(e[1]))
	}
	contents := b.Finish()
	blk, err := New(contents)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return blk
}

var sampleEntries = [][2]string{
	{"abc", "def"},
	{"abd", "dee"},
	{"bcd", "asa"},
	{"bsr", "a00"},
	{"xyz", "xxx"},
	{"xzz", "yyy"},
	{"zzz", "111"},
}

func TestBlockForwardIteration(t *testing.T) {
	blk := buildBlock(t, 2, sampleEntries)
	it := blk.NewIterator(cmp.Default)

	i := 0
	for ok := it.SeekToFirst(); ok; ok = it.Advance() {
		if i >= len(sampleEntries) {
			t.Fatalf("too many entries")
		}
		if string(it.Key()) != sampleEntries[i][0] || string(it.Value()) != sampleEntries[i][1] {
			t.Errorf("entry %d = (%q,%q), want (%q,%q)", i, it.Key(), it.Value(), sampleEntries[i][0], sampleEntries[i][1])
		}
		i++
	}
	if i != len(sampleEntries) {
		t.Errorf("iterated %d entries, want %d", i, len(sampleEntries))
	}
	if it.Valid() {
		t.Errorf("iterator should be invalid past the end")
	}
}

func TestBlockSeek(t *testing.T) {
	blk := buildBlock(t, 2, sampleEntries)
	it := blk.NewIterator(cmp.Default)

	if !it.Seek([]byte("bsr")) || string(it.Key()) != "bsr" {
		t.Fatalf("Seek(bsr) landed on %q", it.Key())
	}
	if !it.Seek([]byte("bsa")) || string(it.Key()) != "bsr" {
		t.Fatalf("Seek(bsa) landed on %q, want bsr", it.Key())
	}
	if it.Seek([]byte("zzzz")) {
		t.Fatalf("Seek(zzzz) should be past-end, got %q", it.Key())
	}
}

func TestBlockSeekToLast(t *testing.T) {
	blk := buildBlock(t, 2, sampleEntries)
	it := blk.NewIterator(cmp.Default)
	if !it.SeekToLast() || string(it.Key()) != "zzz" {
		t.Fatalf("SeekToLast() = %q, want zzz", it.Key())
	}
}

func TestBlockPrev(t *testing.T) {
	blk := buildBlock(t, 2, sampleEntries)
	it := blk.NewIterator(cmp.Default)

	it.SeekToLast()
	for i := len(sampleEntries) - 1; i >= 0; i-- {
		if string(it.Key()) != sampleEntries[i][0] {
			t.Fatalf("Prev chain at %d = %q, want %q", i, it.Key(), sampleEntries[i][0])
		}
		if i > 0 {
			if !it.Prev() {
				t.Fatalf("Prev() failed before reaching start")
			}
		}
	}
	if it.Prev() {
		t.Fatalf("Prev() at first entry should return false")
	}
}

func TestBlockAdvanceThenPrevReturnsToSamePosition(t *testing.T) {
	blk := buildBlock(t, 2, sampleEntries)
	it := blk.NewIterator(cmp.Default)

	it.SeekToFirst()
	it.Advance()
	it.Advance()
	mid := string(it.Key())

	it.Advance()
	it.Prev()
	if string(it.Key()) != mid {
		t.Errorf("Advance then Prev = %q, want %q", it.Key(), mid)
	}
}

func TestBlockSingleEntry(t *testing.T) {
	blk := buildBlock(t, 16, [][2]string{{"", "v"}})
	it := blk.NewIterator(cmp.Default)
	if !it.SeekToFirst() || string(it.Key()) != "" || string(it.Value()) != "v" {
		t.Fatalf("single empty-key entry failed")
	}
	if it.Advance() {
		t.Fatalf("expected only one entry")
	}
}

func TestBlockRestartPoints(t *testing.T) {
	b := NewBuilder(2)
	for _, e := range sampleEntries {
		b.Add([]byte(e[0]), []byte(e[1]))
	}
	contents := b.Finish()
	blk, err := New(contents)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := (len(sampleEntries) + 1) / 2
	if blk.NumRestarts() != want {
		t.Errorf("NumRestarts() = %d, want %d", blk.NumRestarts(), want)
	}
}

func TestBlockCorruptRejected(t *testing.T) {
	b := NewBuilder(2)
	b.Add([]byte("a"), []byte("1"))
	contents := b.Finish()
	if _, err := New(contents[:len(contents)-1]); err == nil {
		t.Errorf("expected error decoding truncated block")
	}
}

func TestSharedPrefixCompression(t *testing.T) {
	b := NewBuilder(16)
	b.Add([]byte("abcdef"), []byte("1"))
	sizeBefore := len(b.buffer)
	b.Add([]byte("abcdeg"), []byte("2"))
	grown := len(b.buffer) - sizeBefore
	// shared=5,unshared=1,valuelen=1 varints (3 bytes) + 1 key byte + 1 value byte
	if grown > 6 {
		t.Errorf("expected prefix-compressed entry to add <=6 bytes, got %d", grown)
	}
}

func TestBlockBuilderEmpty(t *testing.T) {
	b := NewBuilder(16)
	if !b.Empty() {
		t.Errorf("fresh builder should be Empty")
	}
	b.Add([]byte("a"), []byte("v"))
	if b.Empty() {
		t.Errorf("builder with an entry should not be Empty")
	}
}

func TestBlockBuilderResetReusable(t *testing.T) {
	b := NewBuilder(2)
	b.Add([]byte("a"), []byte("1"))
	b.Add([]byte("b"), []byte("2"))
	first := append([]byte(nil), b.Finish()...)

	b.Reset()
	b.Add([]byte("a"), []byte("1"))
	b.Add([]byte("b"), []byte("2"))
	second := b.Finish()

	if !bytes.Equal(first, second) {
		t.Errorf("Reset then rebuild produced different bytes")
	}
}
