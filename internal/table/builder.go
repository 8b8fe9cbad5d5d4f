package table

import (
	"io"

	"github.com/nyxdb/sstable/internal/block"
	"github.com/nyxdb/sstable/internal/checksum"
	"github.com/nyxdb/sstable/internal/cmp"
	"github.com/nyxdb/sstable/internal/compression"
	"github.com/nyxdb/sstable/internal/filter"
	"github.com/nyxdb/sstable/internal/logging"
)

// trailerSize is the 1-byte compression type plus the 4-byte masked CRC32C
// that follows every block on disk.
const trailerSize = 5

// compressionSavingsThreshold is the minimum fraction of bytes compression
// must shave off a block for the compressed form to be kept; otherwise the
// block is written uncompressed with type None.
const compressionSavingsThreshold = 0.125

// Builder streams (key, value) pairs into data blocks, a filter block, an
// index block, a metaindex block and a footer. It has two states, Open and
// Finished; Add is illegal once Finished.
type Builder struct {
	w    io.Writer
	opts Options

	dataBlock  *block.Builder
	indexBlock *block.Builder

	filterBuilder *filter.BlockBuilder

	offset     uint64
	numEntries uint64

	lastKey []byte

	finished bool
	err      error
}

// NewBuilder returns a Builder that writes a table to w using opts.
func NewBuilder(w io.Writer, opts Options) *Builder {
	opts.fillDefaults()

	b := &Builder{
		w:          w,
		opts:       opts,
		dataBlock:  block.NewBuilder(opts.BlockRestartInterval),
		indexBlock: block.NewBuilder(1),
	}
	if opts.FilterPolicy != nil {
		b.filterBuilder = filter.NewBlockBuilder(opts.FilterPolicy)
	}
	return b
}

// Add appends (key, value) to the table. Keys must be added in strictly
// increasing order under opts.Comparator; any other order is a programmer
// error reported as InvalidArgument rather than panicking, so a caller can
// recover a partially-built file's error state.
func (b *Builder) Add(key, value []byte) error {
	if b.finished {
		return newErr(InvalidArgument, "Add called after Finish")
	}
	if b.err != nil {
		return b.err
	}
	if b.numEntries > 0 && b.opts.Comparator.Cmp(b.lastKey, key) != cmp.Less {
		return newErr(InvalidArgument, "keys must be added in strictly increasing order")
	}

	if b.dataBlock.EstimatedSize() >= b.opts.BlockSize {
		if err := b.flushDataBlock(key); err != nil {
			b.err = err
			return err
		}
	}

	b.dataBlock.Add(key, value)
	if b.filterBuilder != nil {
		b.filterBuilder.AddKey(key)
	}
	b.lastKey = append(b.lastKey[:0], key...)
	b.numEntries++

	return nil
}

// SizeEstimate returns the estimated size, in bytes, of the table built so
// far (including whatever is still buffered in the current data block).
func (b *Builder) SizeEstimate() int {
	return int(b.offset) + b.dataBlock.EstimatedSize()
}

// flushDataBlock writes the pending data block, using nextKey (the first
// key of the following block) to compute its index separator.
func (b *Builder) flushDataBlock(nextKey []byte) error {
	if b.dataBlock.Empty() {
		return nil
	}

	contents := b.dataBlock.Finish()
	handle, err := b.writeBlock(contents)
	if err != nil {
		return err
	}

	if b.filterBuilder != nil {
		b.filterBuilder.StartBlock(b.offset)
	}

	sep := b.opts.Comparator.FindShortestSeparator(append([]byte(nil), b.lastKey...), nextKey)
	b.indexBlock.Add(sep, handle.EncodeToSlice())

	b.opts.Logger.Debugf(logging.NSBuild+"flushed data block offset=%d size=%d", handle.Offset, handle.Size)

	b.dataBlock.Reset()
	return nil
}

// writeBlock compresses (if it helps), writes contents followed by the
// compression-type and masked-CRC32C trailer, and returns the block's
// handle.
func (b *Builder) writeBlock(contents []byte) (block.Handle, error) {
	payload := contents
	ctype := compression.NoCompression

	if b.opts.Compression != compression.NoCompression {
		compressed, err := compression.Compress(b.opts.Compression, contents)
		if err == nil && compressed != nil && float64(len(contents)-len(compressed)) >= float64(len(contents))*compressionSavingsThreshold {
			payload = compressed
			ctype = b.opts.Compression
		}
	}

	handle := block.Handle{Offset: b.offset, Size: uint64(len(payload))}

	if _, err := b.w.Write(payload); err != nil {
		return block.Handle{}, wrapErr(IOError, "write block", err)
	}

	trailer := make([]byte, trailerSize)
	trailer[0] = byte(ctype)
	crc := checksum.MaskedExtend(checksum.Value(payload), trailer[0:1])
	trailer[1] = byte(crc)
	trailer[2] = byte(crc >> 8)
	trailer[3] = byte(crc >> 16)
	trailer[4] = byte(crc >> 24)

	if _, err := b.w.Write(trailer); err != nil {
		return block.Handle{}, wrapErr(IOError, "write block trailer", err)
	}

	b.offset += uint64(len(payload)) + trailerSize
	return handle, nil
}

// writeRawBlock writes contents followed by a type/CRC trailer, always
// uncompressed (type None): this is how the filter block is stored,
// matching the reference implementation's WriteRawBlock. The trailer is
// present so the file layout stays byte-compatible with the wider
// ecosystem, even though readers never verify this particular CRC (see
// Table.readRawAt).
func (b *Builder) writeRawBlock(contents []byte) (block.Handle, error) {
	handle := block.Handle{Offset: b.offset, Size: uint64(len(contents))}

	if _, err := b.w.Write(contents); err != nil {
		return block.Handle{}, wrapErr(IOError, "write filter block", err)
	}

	trailer := make([]byte, trailerSize)
	trailer[0] = byte(compression.NoCompression)
	crc := checksum.MaskedExtend(checksum.Value(contents), trailer[0:1])
	trailer[1] = byte(crc)
	trailer[2] = byte(crc >> 8)
	trailer[3] = byte(crc >> 16)
	trailer[4] = byte(crc >> 24)

	if _, err := b.w.Write(trailer); err != nil {
		return block.Handle{}, wrapErr(IOError, "write filter block trailer", err)
	}

	b.offset += uint64(len(contents)) + trailerSize
	return handle, nil
}

// Finish flushes any pending data block, then writes the filter block,
// metaindex block, index block and footer in turn. The Builder must not
// be used again afterwards.
func (b *Builder) Finish() error {
	if b.finished {
		return newErr(InvalidArgument, "Finish called twice")
	}
	if b.err != nil {
		return b.err
	}
	b.finished = true

	if !b.dataBlock.Empty() {
		contents := b.dataBlock.Finish()
		handle, err := b.writeBlock(contents)
		if err != nil {
			b.err = err
			return err
		}
		if b.filterBuilder != nil {
			b.filterBuilder.StartBlock(b.offset)
		}
		sep := b.opts.Comparator.FindShortSuccessor(append([]byte(nil), b.lastKey...))
		b.indexBlock.Add(sep, handle.EncodeToSlice())
	}

	metaindexBuilder := block.NewBuilder(1)

	if b.filterBuilder != nil {
		filterData := b.filterBuilder.Finish()
		filterHandle, err := b.writeRawBlock(filterData)
		if err != nil {
			b.err = err
			return err
		}
		metaindexBuilder.Add([]byte("filter."+b.opts.FilterPolicy.Name()), filterHandle.EncodeToSlice())
	}

	metaindexContents := metaindexBuilder.Finish()
	metaindexHandle, err := b.writeBlock(metaindexContents)
	if err != nil {
		b.err = err
		return err
	}

	indexContents := b.indexBlock.Finish()
	indexHandle, err := b.writeBlock(indexContents)
	if err != nil {
		b.err = err
		return err
	}

	footer := block.Footer{MetaIndexHandle: metaindexHandle, IndexHandle: indexHandle}
	if _, err := b.w.Write(footer.EncodeTo()); err != nil {
		b.err = wrapErr(IOError, "write footer", err)
		return b.err
	}
	b.offset += block.FullFooterLength

	b.opts.Logger.Infof(logging.NSBuild+"finished table entries=%d size=%d", b.numEntries, b.offset)

	return nil
}

// NumEntries reports how many entries have been added so far.
func (b *Builder) NumEntries() uint64 { return b.numEntries }

// FileSize reports the number of bytes written so far.
func (b *Builder) FileSize() uint64 { return b.offset }
