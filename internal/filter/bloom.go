// Package filter implements compact membership filters over a batch of
// keys, and the per-data-block filter array (FilterBlock) that indexes
// them by block offset.
package filter

import "encoding/binary"

// Policy constructs a filter over a batch of keys and tests membership
// against it. False positives are permitted; false negatives are not.
type Policy interface {
	// Name identifies the policy; recorded in the table's metaindex as
	// "filter.<name>".
	Name() string

	// CreateFilter builds a filter over the keys packed end-to-end in
	// data, with keyOffsets giving the start of each key (and data's
	// length implicitly ending the last one).
	CreateFilter(data []byte, keyOffsets []int) []byte

	// KeyMayMatch reports whether key might be a member of filter.
	KeyMayMatch(key, filter []byte) bool
}

// NoFilterPolicy is a Policy that always reports a match. Useful for
// tables built without filtering.
type NoFilterPolicy struct{}

func (NoFilterPolicy) Name() string                               { return "_" }
func (NoFilterPolicy) CreateFilter(data []byte, offsets []int) []byte { return nil }
func (NoFilterPolicy) KeyMayMatch(key, filter []byte) bool        { return true }

// bloomSeed is the constant mixed into the first word of the hash.
const bloomSeed uint32 = 0xbc9f1d34

// BloomPolicy is the classic LevelDB Bloom filter: a single bit array per
// batch of keys, probed with double hashing derived from one 32-bit mix.
// This is the "leveldb.BuiltinBloomFilter2" format, distinct from the
// newer cache-line-blocked Bloom variants some forks of this ecosystem
// have since adopted.
type BloomPolicy struct {
	bitsPerKey int
	k          uint32
}

// NewBloomPolicy returns a BloomPolicy targeting roughly bitsPerKey bits
// of filter per key. 10 bits/key gives about a 1% false-positive rate.
func NewBloomPolicy(bitsPerKey int) *BloomPolicy {
	k := uint32(float64(bitsPerKey)*0.69 + 0.5)
	if k < 1 {
		k = 1
	} else if k > 30 {
		k = 30
	}
	return &BloomPolicy{bitsPerKey: bitsPerKey, k: k}
}

func (p *BloomPolicy) Name() string { return "leveldb.BuiltinBloomFilter2" }

// bloomHash mixes data into a 32-bit value, processing it in 4-byte
// little-endian words with a trailing partial word folded in byte by
// byte. All arithmetic wraps modulo 2^32, matching the reference
// implementation's use of 32-bit wrapping ops.
func bloomHash(data []byte) uint32 {
	const m uint32 = 0xc6a4a793
	const r uint32 = 24

	h := bloomSeed ^ (uint32(len(data)) * m)

	i := 0
	for ; i+4 <= len(data); i += 4 {
		w := binary.LittleEndian.Uint32(data[i:])
		h += w
		h *= m
		h ^= h >> 16
	}

	switch len(data) - i {
	case 3:
		h += uint32(data[i+2]) << 16
		fallthrough
	case 2:
		h += uint32(data[i+1]) << 8
		fallthrough
	case 1:
		h += uint32(data[i])
		h *= m
		h ^= h >> r
	}
	return h
}

// CreateFilter builds a bit array sized bitsPerKey*numKeys (rounded up to
// a whole byte, with a 64-bit floor), sets k probe bits per key via
// double hashing, then appends k as a trailing byte.
func (p *BloomPolicy) CreateFilter(data []byte, keyOffsets []int) []byte {
	filterBits := len(keyOffsets) * p.bitsPerKey

	var nbytes int
	if filterBits < 64 {
		nbytes = 8
	} else {
		nbytes = (filterBits + 7) / 8
	}

	filter := make([]byte, nbytes, nbytes+1)
	adjBits := uint32(nbytes * 8)

	eachKey(data, keyOffsets, func(key []byte) {
		h := bloomHash(key)
		delta := (h >> 17) | (h << 15)
		for i := uint32(0); i < p.k; i++ {
			bitpos := h % adjBits
			filter[bitpos/8] |= 1 << (bitpos % 8)
			h += delta
		}
	})

	return append(filter, byte(p.k))
}

// KeyMayMatch reports whether key might be present in a filter produced
// by CreateFilter. An empty filter matches everything (no filter was
// built); a trailing k > 30 is treated the same way, as a signal the
// filter was built by some future, incompatible format.
func (p *BloomPolicy) KeyMayMatch(key, filter []byte) bool {
	if len(filter) == 0 {
		return true
	}

	k := filter[len(filter)-1]
	bits := filter[:len(filter)-1]
	if k > 30 {
		return true
	}

	adjBits := uint32(len(bits) * 8)
	h := bloomHash(key)
	delta := (h >> 17) | (h << 15)
	for i := byte(0); i < k; i++ {
		bitpos := h % adjBits
		if bits[bitpos/8]&(1<<(bitpos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// eachKey invokes f once per key packed into data at the positions named
// by offsets, each key running up to the start of the next one (or the
// end of data, for the last key).
func eachKey(data []byte, offsets []int, f func(key []byte)) {
	for i, start := range offsets {
		end := len(data)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		f(data[start:end])
	}
}
