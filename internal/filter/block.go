package filter

import "encoding/binary"

// BaseLg2 is the log2 granularity at which data-block offsets are mapped
// to sub-filters: one sub-filter covers every 2^BaseLg2 bytes of the data
// block address space.
const BaseLg2 = 11

// BlockBuilder accumulates keys across data blocks and emits one
// sub-filter per BaseLg2-sized range of data-block offset space. The
// TableBuilder drives it with StartBlock (once per data-block flush, with
// the offset the *next* block will start at) and AddKey (once per entry).
type BlockBuilder struct {
	policy Policy

	keys       []byte // keys for the in-progress batch, packed end to end
	keyOffsets []int  // start offset of each key within keys

	result       []byte // sub-filters emitted so far
	filterOffsets []int // start offset of each emitted sub-filter within result

	totalKeys int
}

// NewBlockBuilder returns a FilterBlock builder using the given policy.
func NewBlockBuilder(policy Policy) *BlockBuilder {
	return &BlockBuilder{policy: policy}
}

// StartBlock is called once a data block has been flushed, with the file
// offset the next data block will be written at. It emits sub-filters for
// every BaseLg2-sized range before the one containing that offset that
// hasn't been emitted yet; the range containing the offset stays open for
// the next block's keys.
func (b *BlockBuilder) StartBlock(nextBlockOffset uint64) {
	index := nextBlockOffset >> BaseLg2
	for uint64(len(b.filterOffsets)) < index {
		b.generateFilter()
	}
}

// AddKey adds a key to the batch for the sub-filter currently being
// accumulated.
func (b *BlockBuilder) AddKey(key []byte) {
	b.keyOffsets = append(b.keyOffsets, len(b.keys))
	b.keys = append(b.keys, key...)
	b.totalKeys++
}

func (b *BlockBuilder) generateFilter() {
	b.filterOffsets = append(b.filterOffsets, len(b.result))

	if len(b.keyOffsets) == 0 {
		// No keys span this range; record an empty sub-filter.
		return
	}

	b.result = append(b.result, b.policy.CreateFilter(b.keys, b.keyOffsets)...)

	b.keys = b.keys[:0]
	b.keyOffsets = b.keyOffsets[:0]
}

// Finish flushes any pending sub-filter and returns the encoded
// FilterBlock: sub-filters, an offset array (one u32 per sub-filter), the
// u32 offset of that array, and a trailing BaseLg2 byte.
func (b *BlockBuilder) Finish() []byte {
	if len(b.keyOffsets) > 0 {
		b.generateFilter()
	}

	arrayStart := len(b.result)
	out := append([]byte(nil), b.result...)
	for _, off := range b.filterOffsets {
		out = binary.LittleEndian.AppendUint32(out, uint32(off))
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(arrayStart))
	out = append(out, BaseLg2)
	return out
}

// NumKeys reports how many keys have been added across all batches so far
// (including the one still pending).
func (b *BlockBuilder) NumKeys() int {
	return b.totalKeys
}

// BlockReader answers membership queries against a parsed FilterBlock.
type BlockReader struct {
	policy        Policy
	data          []byte // sub-filters, concatenated
	offsets       []byte // the raw u32 offset array
	numFilters    int
	baseLg2       uint8
}

// NewBlockReader parses contents (as produced by BlockBuilder.Finish) for
// use with policy.
func NewBlockReader(policy Policy, contents []byte) *BlockReader {
	if len(contents) < 5 {
		return &BlockReader{policy: policy}
	}

	baseLg2 := contents[len(contents)-1]
	arrayStart := binary.LittleEndian.Uint32(contents[len(contents)-5:])
	if uint64(arrayStart) > uint64(len(contents)-5) {
		return &BlockReader{policy: policy}
	}

	offsets := contents[arrayStart : len(contents)-5]
	numFilters := len(offsets) / 4

	return &BlockReader{
		policy:     policy,
		data:       contents[:arrayStart],
		offsets:    offsets,
		numFilters: numFilters,
		baseLg2:    baseLg2,
	}
}

func (r *BlockReader) filterOffset(i int) uint32 {
	return binary.LittleEndian.Uint32(r.offsets[i*4:])
}

// KeyMayMatch reports whether key might be present in the data block
// starting at blockOffset. A sub-filter with no keys in range (or a
// reader with no filter data at all) matches everything.
func (r *BlockReader) KeyMayMatch(blockOffset uint64, key []byte) bool {
	if r.numFilters == 0 {
		return true
	}
	index := int(blockOffset >> r.baseLg2Eff())
	if index < 0 || index >= r.numFilters {
		return true
	}

	start := r.filterOffset(index)
	var limit uint32
	if index+1 < r.numFilters {
		limit = r.filterOffset(index + 1)
	} else {
		limit = uint32(len(r.data))
	}
	if start > limit || int(limit) > len(r.data) {
		return true
	}
	sub := r.data[start:limit]
	if len(sub) == 0 {
		return true
	}
	return r.policy.KeyMayMatch(key, sub)
}

func (r *BlockReader) baseLg2Eff() uint8 {
	if r.baseLg2 == 0 {
		return BaseLg2
	}
	return r.baseLg2
}
