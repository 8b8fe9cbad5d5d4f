package table

import (
	"github.com/nyxdb/sstable/internal/cache"
	"github.com/nyxdb/sstable/internal/cmp"
	"github.com/nyxdb/sstable/internal/compression"
	"github.com/nyxdb/sstable/internal/filter"
	"github.com/nyxdb/sstable/internal/logging"
)

// Options configures both TableBuilder and Table. The zero value is not
// ready to use; call DefaultOptions and override individual fields.
type Options struct {
	Comparator cmp.Comparator

	// FilterPolicy builds the per-table Bloom filter. Nil disables
	// filtering entirely (no filter block is written or consulted).
	FilterPolicy filter.Policy

	// BlockSize is the target size, in bytes, of a data block before it
	// is flushed.
	BlockSize int

	// BlockRestartInterval is the number of entries between restart
	// points in a block.
	BlockRestartInterval int

	// Compression selects the codec applied to data blocks. It is only
	// ever used when it actually shrinks the block (see TableBuilder);
	// otherwise the block is stored uncompressed regardless of this
	// setting.
	Compression compression.Type

	// BlockCache is shared across every Table opened with these Options.
	// If nil, a new cache of capacity BlockCacheEntries is created for
	// each Builder or Table the Options are passed to.
	BlockCache *cache.Cache

	// Logger receives builder and reader diagnostics. Nil is replaced with
	// logging.Discard.
	Logger logging.Logger
}

// BlockCacheEntries is the default block cache capacity, in entries.
const BlockCacheEntries = 2000

// DefaultOptions returns Options with the spec's defaults: lexicographic
// comparator, a 10-bits-per-key Bloom filter, 4KiB blocks, a restart
// interval of 16, no compression, and a shared ~2000-entry block cache.
func DefaultOptions() Options {
	return Options{
		Comparator:           cmp.Default,
		FilterPolicy:         filter.NewBloomPolicy(10),
		BlockSize:            4 * 1024,
		BlockRestartInterval: 16,
		Compression:          compression.NoCompression,
		BlockCache:           cache.New(BlockCacheEntries),
		Logger:               logging.Discard,
	}
}

func (o *Options) fillDefaults() {
	if o.Comparator == nil {
		o.Comparator = cmp.Default
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 4 * 1024
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = 16
	}
	if o.BlockCache == nil {
		o.BlockCache = cache.New(BlockCacheEntries)
	}
	o.Logger = logging.OrDefault(o.Logger)
}
