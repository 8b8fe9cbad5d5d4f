package table

import (
	"io"

	"github.com/nyxdb/sstable/internal/block"
	"github.com/nyxdb/sstable/internal/cache"
	"github.com/nyxdb/sstable/internal/checksum"
	"github.com/nyxdb/sstable/internal/cmp"
	"github.com/nyxdb/sstable/internal/compression"
	"github.com/nyxdb/sstable/internal/filter"
	"github.com/nyxdb/sstable/internal/logging"
)

// ReadableFile is the random-access source a Table reads from. *os.File
// satisfies it.
type ReadableFile interface {
	io.ReaderAt
	io.Closer
}

// maxBlockSize is a sanity bound against a corrupted handle claiming an
// implausibly large block.
const maxBlockSize = 256 * 1024 * 1024

// Table is the immutable, opened view of a table file: its footer, index
// block and (optional) filter reader. Tables are cheap to share: the
// underlying file and block cache are referenced, not copied, so Table
// values may be handed to multiple goroutines as long as the file
// supports concurrent positioned reads.
type Table struct {
	file    ReadableFile
	size    int64
	opts    Options
	cacheID uint64

	footer     block.Footer
	indexBlock *block.Block

	filterReader *filter.BlockReader
}

// Open reads file's footer, index block and (if present) filter block,
// returning a ready-to-use Table. size must be the file's exact length.
func Open(file ReadableFile, size int64, opts Options) (*Table, error) {
	opts.fillDefaults()

	if size < int64(block.FullFooterLength) {
		return nil, newErr(Corruption, "file too small for a footer")
	}

	footerBuf := make([]byte, block.FullFooterLength)
	if _, err := file.ReadAt(footerBuf, size-int64(block.FullFooterLength)); err != nil {
		return nil, wrapErr(IOError, "read footer", err)
	}

	footer, err := block.DecodeFooter(footerBuf)
	if err != nil {
		return nil, wrapErr(Corruption, "decode footer", err)
	}

	t := &Table{
		file:    file,
		size:    size,
		opts:    opts,
		cacheID: cache.NewCacheID(),
		footer:  footer,
	}

	indexBlock, err := t.readBlockUncached(footer.IndexHandle)
	if err != nil {
		return nil, wrapErr(Corruption, "read index block", err)
	}
	t.indexBlock = indexBlock

	metaindexBlock, err := t.readBlockUncached(footer.MetaIndexHandle)
	if err != nil {
		return nil, wrapErr(Corruption, "read metaindex block", err)
	}

	if opts.FilterPolicy != nil {
		filterName := "filter." + opts.FilterPolicy.Name()
		it := metaindexBlock.NewIterator(opts.Comparator)
		if it.Seek([]byte(filterName)) && it.Valid() && string(it.Key()) == filterName {
			handle, err := block.DecodeHandleFrom(it.Value())
			if err == nil && handle.Size > 0 {
				filterData, err := t.readRawAt(handle)
				if err == nil {
					t.filterReader = filter.NewBlockReader(opts.FilterPolicy, filterData)
				}
			}
		}
	}

	opts.Logger.Infof(logging.NSRead+"opened table size=%d cacheID=%d filter=%t", size, t.cacheID, t.filterReader != nil)

	return t, nil
}

// readRawAt reads h.Size payload bytes at h.Offset plus the trailing
// type/CRC bytes every block on disk carries, and returns the payload
// with the trailer discarded. Used for the filter block: the handle
// recorded in the metaindex still points at payload-only size, but per
// §4.8 the filter block's trailer is present on disk and simply never
// checksum-verified, unlike every other block.
func (t *Table) readRawAt(h block.Handle) ([]byte, error) {
	if h.Size > maxBlockSize {
		return nil, newErr(Corruption, "block handle size implausibly large")
	}
	buf := make([]byte, h.Size+trailerSize)
	if _, err := t.file.ReadAt(buf, int64(h.Offset)); err != nil {
		return nil, wrapErr(IOError, "read block", err)
	}
	buf = buf[:h.Size]
	return buf, nil
}

// readBlockUncached reads, checksum-verifies and decompresses the block at
// h, bypassing the cache. Used for the index and metaindex blocks, which
// are read once per Table and not worth caching.
func (t *Table) readBlockUncached(h block.Handle) (*block.Block, error) {
	contents, err := t.readAndVerify(h)
	if err != nil {
		return nil, err
	}
	return block.New(contents)
}

// readAndVerify reads h.Size+trailerSize bytes at h.Offset, recomputes the
// masked CRC32C over payload+type and compares it against the trailer, and
// decompresses per the type byte. A CRC mismatch always returns
// Corruption — blocks are never silently skipped.
func (t *Table) readAndVerify(h block.Handle) ([]byte, error) {
	if h.Size > maxBlockSize {
		return nil, newErr(Corruption, "block handle size implausibly large")
	}

	buf := make([]byte, h.Size+trailerSize)
	if _, err := t.file.ReadAt(buf, int64(h.Offset)); err != nil {
		return nil, wrapErr(IOError, "read block", err)
	}

	payload := buf[:h.Size]
	ctype := buf[h.Size]
	wantCRC := uint32(buf[h.Size+1]) | uint32(buf[h.Size+2])<<8 | uint32(buf[h.Size+3])<<16 | uint32(buf[h.Size+4])<<24

	gotCRC := checksum.MaskedExtend(checksum.Value(payload), buf[h.Size:h.Size+1])
	if gotCRC != wantCRC {
		t.opts.Logger.Errorf(logging.NSRead+"checksum mismatch offset=%d size=%d want=%x got=%x", h.Offset, h.Size, wantCRC, gotCRC)
		return nil, newErr(Corruption, "block checksum mismatch")
	}

	ct := compression.Type(ctype)
	if ct == compression.NoCompression {
		return payload, nil
	}
	decompressed, err := compression.Decompress(ct, payload)
	if err != nil {
		return nil, wrapErr(Corruption, "decompress block", err)
	}
	return decompressed, nil
}

// readBlock reads the block at h, consulting (and populating) the shared
// block cache first.
func (t *Table) readBlock(h block.Handle) (*block.Block, error) {
	key := cache.Key{CacheID: t.cacheID, Offset: h.Offset}

	if b, ok := t.opts.BlockCache.Get(key); ok {
		t.opts.Logger.Debugf(logging.NSCache+"hit offset=%d", h.Offset)
		return b, nil
	}

	b, err := t.readBlockUncached(h)
	if err != nil {
		return nil, err
	}
	t.opts.BlockCache.Insert(key, b)
	t.opts.Logger.Debugf(logging.NSCache+"miss offset=%d, inserted", h.Offset)
	return b, nil
}

// Get returns the value stored for key, or a NotFound error if key is
// proved absent (by the filter or an in-block miss). Any I/O or
// corruption failure surfaces as its own typed error rather than being
// mapped to NotFound.
func (t *Table) Get(key []byte) ([]byte, error) {
	idx := t.indexBlock.NewIterator(t.opts.Comparator)
	if !idx.Seek(key) {
		return nil, newErr(NotFound, "key past end of table")
	}

	handle, err := block.DecodeHandleFrom(idx.Value())
	if err != nil {
		return nil, wrapErr(Corruption, "decode index entry", err)
	}

	if t.filterReader != nil && !t.filterReader.KeyMayMatch(handle.Offset, key) {
		return nil, newErr(NotFound, "filter miss")
	}

	b, err := t.readBlock(handle)
	if err != nil {
		return nil, err
	}

	bit := b.NewIterator(t.opts.Comparator)
	if !bit.Seek(key) {
		return nil, newErr(NotFound, "key not present in block")
	}
	if t.opts.Comparator.Cmp(bit.Key(), key) != cmp.Equal {
		return nil, newErr(NotFound, "key not present in block")
	}
	return bit.Value(), nil
}

// ApproxOffsetOf returns the approximate file offset at which key would be
// found: the offset of the data block that would contain it, or the
// metaindex block's offset if key sorts past every block.
func (t *Table) ApproxOffsetOf(key []byte) uint64 {
	idx := t.indexBlock.NewIterator(t.opts.Comparator)
	if idx.Seek(key) {
		if handle, err := block.DecodeHandleFrom(idx.Value()); err == nil {
			return handle.Offset
		}
	}
	return t.footer.MetaIndexHandle.Offset
}

// Close releases the underlying file.
func (t *Table) Close() error {
	return t.file.Close()
}

// NewIterator returns a forward/backward cursor over every entry in the
// table, in key order.
func (t *Table) NewIterator() *Iterator {
	return &Iterator{
		table: t,
		index: t.indexBlock.NewIterator(t.opts.Comparator),
	}
}

// Iterator is a two-level cursor: an index-block cursor locating the
// current data block, plus a lazily-loaded cursor into that block. The
// zero value obtained from Table.NewIterator starts before the first
// entry.
type Iterator struct {
	table *Table
	index *block.Iterator

	data *block.Iterator
	err  error
}

func (it *Iterator) Valid() bool {
	return it.err == nil && it.data != nil && it.data.Valid()
}

func (it *Iterator) Error() error  { return it.err }
func (it *Iterator) Key() []byte   { return it.data.Key() }
func (it *Iterator) Value() []byte { return it.data.Value() }

// loadDataBlock decodes the handle at the index cursor's current position
// and loads that block. A failure here is surfaced as Corruption on the
// iterator and leaves it !Valid() — it is never retried against a later
// block, since that would silently skip corrupted data.
func (it *Iterator) loadDataBlock() bool {
	handle, err := block.DecodeHandleFrom(it.index.Value())
	if err != nil {
		it.err = wrapErr(Corruption, "decode index entry", err)
		it.data = nil
		return false
	}

	b, err := it.table.readBlock(handle)
	if err != nil {
		it.err = err
		it.data = nil
		return false
	}

	it.data = b.NewIterator(it.table.opts.Comparator)
	return true
}

// SeekToFirst positions the iterator at the table's first entry.
func (it *Iterator) SeekToFirst() bool {
	it.err = nil
	if !it.index.SeekToFirst() {
		it.data = nil
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.data.SeekToFirst()
}

// SeekToLast positions the iterator at the table's last entry.
func (it *Iterator) SeekToLast() bool {
	it.err = nil
	if !it.index.SeekToLast() {
		it.data = nil
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.data.SeekToLast()
}

// Seek seeks the index to the first separator >= target, loads that data
// block and positions the iterator at the block's first entry with key >=
// target. The iterator becomes !Valid() if no separator is >= target, or
// if target sorts after the located block's last key (a target between
// that key and the block's separator); later blocks are not searched.
func (it *Iterator) Seek(target []byte) bool {
	it.err = nil
	if !it.index.Seek(target) {
		it.data = nil
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.data.Seek(target)
}

// Advance moves to the next entry. It loads the next data block on
// exhaustion of the current one, and returns false (leaving the iterator
// !Valid()) once the table is exhausted. Running off the end this way
// keeps data around rather than discarding it: the block cursor records
// that it ran off the end from a valid position, which is exactly what
// Prev needs to recover the predecessor of the last entry reached.
func (it *Iterator) Advance() bool {
	if it.err != nil {
		return false
	}
	if it.data == nil {
		return it.SeekToFirst()
	}
	if it.data.Advance() {
		return true
	}
	if err := it.data.Error(); err != nil {
		it.err = err
		it.data = nil
		return false
	}
	if !it.index.Advance() {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.data.SeekToFirst()
}

// Prev moves to the preceding entry, loading the previous data block (and
// seeking to its last entry) if the current block is exhausted backwards.
// This also recovers correctly from the state Advance leaves behind when it
// runs off the end of the table: data's block cursor marks itself pastEnd
// rather than losing its position, so the it.data.Prev() below steps back to
// the predecessor of the last entry reached by the forward scan.
func (it *Iterator) Prev() bool {
	if it.err != nil {
		return false
	}
	if it.data == nil {
		return false
	}
	if it.data.Prev() {
		return true
	}
	if err := it.data.Error(); err != nil {
		it.err = err
		it.data = nil
		return false
	}
	if !it.index.Prev() {
		it.data = nil
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.data.SeekToLast()
}
