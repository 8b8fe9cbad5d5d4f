package block

import (
	"encoding/binary"
	"errors"

	"github.com/nyxdb/sstable/internal/cmp"
	"github.com/nyxdb/sstable/internal/encoding"
)

// restartFooterSize is the trailing uint32 that records the restart count.
const restartFooterSize = 4

// ErrCorruptBlock is returned when a block's restart footer or an entry
// within it cannot be parsed.
var ErrCorruptBlock = errors.New("block: corrupt block contents")

// Block is an immutable, sorted, prefix-compressed run of entries plus a
// restart-point index. The zero value is not usable; construct with New.
type Block struct {
	data        []byte
	restarts    []byte // the raw restart-offset array, still encoded as fixed32 entries
	numRestarts int
}

// New parses the trailing restart array out of data and returns a Block
// sharing data's storage. data must be the block's payload bytes (already
// decompressed, trailer stripped).
func New(data []byte) (*Block, error) {
	if len(data) < restartFooterSize {
		return nil, ErrCorruptBlock
	}

	numRestarts := int(binary.LittleEndian.Uint32(data[len(data)-restartFooterSize:]))
	restartsStart := len(data) - restartFooterSize - numRestarts*4
	if numRestarts < 0 || restartsStart < 0 {
		return nil, ErrCorruptBlock
	}

	return &Block{
		data:        data[:restartsStart],
		restarts:    data[restartsStart : len(data)-restartFooterSize],
		numRestarts: numRestarts,
	}, nil
}

// NumRestarts returns the number of restart points in the block.
func (b *Block) NumRestarts() int { return b.numRestarts }

func (b *Block) restartOffset(i int) uint32 {
	return binary.LittleEndian.Uint32(b.restarts[i*4:])
}

// NewIterator returns a cursor over the block's entries, ordered by c.
func (b *Block) NewIterator(c cmp.Comparator) *Iterator {
	return &Iterator{block: b, cmp: c, currentOffset: -1}
}

// Iterator is a bidirectional cursor over a Block's entries. The zero
// value (obtained via Block.NewIterator) starts in the "before first"
// state; call SeekToFirst, SeekToLast or Seek to position it.
type Iterator struct {
	block *Block
	cmp   cmp.Comparator

	// offset of the entry parseEntryAt last decoded from; -1 before the
	// first Advance.
	currentOffset int
	// offset just past the current entry, i.e. where the next decode starts.
	nextOffset int

	key   []byte
	value []byte
	valid bool
	err   error

	// pastEnd is set when Advance runs off the end of the block from a
	// previously valid position, instead of the usual "never positioned"
	// state. currentOffset/key/value still describe that last entry, so
	// Prev can step back to its predecessor rather than losing the
	// position outright once the forward scan is exhausted.
	pastEnd bool
}

func (it *Iterator) Valid() bool   { return it.valid && it.err == nil }
func (it *Iterator) Error() error  { return it.err }
func (it *Iterator) Key() []byte   { return it.key }
func (it *Iterator) Value() []byte { return it.value }

func (it *Iterator) reset() {
	it.valid = false
	it.pastEnd = false
	it.currentOffset = -1
	it.nextOffset = 0
	it.key = it.key[:0]
	it.value = nil
}

// parseEntryAt decodes the entry starting at offset off. It rebuilds the
// full key from the running it.key buffer, so it must only be called with
// it.key already holding the preceding entry's key (or empty, at a restart
// point or the start of the block).
func (it *Iterator) parseEntryAt(off int) (nextOff int, ok bool) {
	data := it.block.data
	if off >= len(data) {
		return 0, false
	}

	shared, n1, err := encoding.DecodeVarint64(data[off:])
	if err != nil {
		it.err = ErrCorruptBlock
		return 0, false
	}
	off += n1

	unshared, n2, err := encoding.DecodeVarint64(data[off:])
	if err != nil {
		it.err = ErrCorruptBlock
		return 0, false
	}
	off += n2

	valueLen, n3, err := encoding.DecodeVarint64(data[off:])
	if err != nil {
		it.err = ErrCorruptBlock
		return 0, false
	}
	off += n3

	if shared > uint64(len(it.key)) || off+int(unshared)+int(valueLen) > len(data) {
		it.err = ErrCorruptBlock
		return 0, false
	}

	it.key = append(it.key[:shared], data[off:off+int(unshared)]...)
	off += int(unshared)
	it.value = data[off : off+int(valueLen)]
	off += int(valueLen)

	return off, true
}

// Advance decodes the next entry from the current cursor position. If
// the cursor is freshly reset (never positioned), it starts at the
// block's first byte; if it was left positioned-but-not-yet-valid by
// seekToRestart (as Seek does after its restart-array binary search), it
// decodes starting at that restart offset instead of rescanning from the
// block's start. Once it has run off the end, it stays there (pastEnd)
// rather than re-decoding the last entry on a repeated call.
func (it *Iterator) Advance() bool {
	if it.err != nil {
		return false
	}
	if it.pastEnd {
		return false
	}

	fromValid := it.valid
	var startOff int
	switch {
	case it.currentOffset < 0:
		it.key = it.key[:0]
		startOff = 0
	case it.valid:
		startOff = it.nextOffset
	default:
		startOff = it.currentOffset
	}

	if startOff >= len(it.block.data) {
		it.valid = false
		it.pastEnd = fromValid
		return false
	}

	next, ok := it.parseEntryAt(startOff)
	if !ok {
		it.valid = false
		return false
	}
	it.currentOffset = startOff
	it.nextOffset = next
	it.valid = true
	return true
}

// SeekToFirst positions the cursor at the first entry.
func (it *Iterator) SeekToFirst() bool {
	it.reset()
	return it.Advance()
}

// seekToRestart positions the cursor to decode starting at restart point i,
// with the running key reset to empty (restart entries are never prefix
// compressed).
func (it *Iterator) seekToRestart(i int) {
	off := int(it.block.restartOffset(i))
	it.key = it.key[:0]
	it.currentOffset = off
	it.nextOffset = off
	it.valid = false
	it.pastEnd = false
}

// SeekToLast positions the cursor at the last entry in the block.
func (it *Iterator) SeekToLast() bool {
	if it.block.numRestarts == 0 {
		it.reset()
		return false
	}
	it.seekToRestart(it.block.numRestarts - 1)
	return it.advanceToBlockEnd()
}

// advanceToBlockEnd scans forward from the current position to the end of
// the block, remembering the final entry reached.
func (it *Iterator) advanceToBlockEnd() bool {
	found := false
	for it.currentOffset < len(it.block.data) {
		next, ok := it.parseEntryAt(it.currentOffset)
		if !ok {
			break
		}
		found = true
		it.nextOffset = next
		if next >= len(it.block.data) {
			break
		}
		it.currentOffset = next
	}
	it.valid = found
	return found
}

// findRestartBefore returns the largest restart index whose key is <=
// target under it.cmp (0 if none qualifies).
func (it *Iterator) findRestartBefore(target []byte) int {
	lo, hi := 0, it.block.numRestarts-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		off := int(it.block.restartOffset(mid))
		key, ok := it.peekRestartKey(off)
		if !ok {
			hi = mid - 1
			continue
		}
		if it.cmp.Cmp(key, target) != cmp.Greater {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// peekRestartKey decodes just the key of the restart-point entry at off
// without disturbing the iterator's current position.
func (it *Iterator) peekRestartKey(off int) ([]byte, bool) {
	data := it.block.data
	_, n1, err := encoding.DecodeVarint64(data[off:]) // shared, always 0 at a restart
	if err != nil {
		return nil, false
	}
	off += n1
	unshared, n2, err := encoding.DecodeVarint64(data[off:])
	if err != nil {
		return nil, false
	}
	off += n2
	_, n3, err := encoding.DecodeVarint64(data[off:])
	if err != nil {
		return nil, false
	}
	off += n3
	if off+int(unshared) > len(data) {
		return nil, false
	}
	return data[off : off+int(unshared)], true
}

// Seek positions the cursor at the first entry with key >= target. Valid()
// is false afterwards iff every entry in the block sorts before target.
func (it *Iterator) Seek(target []byte) bool {
	if it.block.numRestarts == 0 {
		it.reset()
		return false
	}

	r := it.findRestartBefore(target)
	it.seekToRestart(r)

	for it.Advance() {
		if it.cmp.Cmp(it.key, target) != cmp.Less {
			return true
		}
	}
	it.valid = false
	return false
}

// Prev moves the cursor to the entry preceding the current one. Returns
// false (and leaves the iterator !valid()) if the cursor was already at
// the first entry. It also works from the pastEnd state Advance leaves
// behind when it runs off the end of the block, stepping back to the
// predecessor of the last entry reached by the forward scan.
func (it *Iterator) Prev() bool {
	if !it.valid && !it.pastEnd {
		return false
	}
	it.pastEnd = false

	original := it.currentOffset

	restartIdx := 0
	for i := 0; i < it.block.numRestarts; i++ {
		if int(it.block.restartOffset(i)) <= original {
			restartIdx = i
		} else {
			break
		}
	}
	it.seekToRestart(restartIdx)

	if it.currentOffset == original {
		if restartIdx == 0 {
			it.reset()
			return false
		}
		it.seekToRestart(restartIdx - 1)
	}

	found := false
	for it.currentOffset < original {
		next, ok := it.parseEntryAt(it.currentOffset)
		if !ok {
			it.valid = false
			return false
		}
		found = true
		it.nextOffset = next
		if next >= original {
			break
		}
		it.currentOffset = next
	}
	it.valid = found
	return found
}
