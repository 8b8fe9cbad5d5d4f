package block

import (
	"bytes"
	"errors"
)

// FooterLength is the size of the footer's handle-and-padding region,
// before the trailing magic number.
const FooterLength = 40

// FullFooterLength is the total on-disk footer size.
const FullFooterLength = FooterLength + 8

// MagicNumber identifies a table file. It is the legacy block-based-table
// magic shared with the wider LevelDB/RocksDB ecosystem; this package only
// ever writes and reads this one footer version.
const MagicNumber uint64 = 0xdb4775248b80fb57

// magicEncoded is MagicNumber in little-endian byte order.
var magicEncoded = [8]byte{0x57, 0xfb, 0x80, 0x8b, 0x24, 0x75, 0x47, 0xdb}

// ErrBadFooter is returned when a footer's magic number doesn't match or
// its handles can't be decoded.
var ErrBadFooter = errors.New("block: bad footer")

// Footer is the fixed-size trailer at the end of a table file, locating
// the metaindex and index blocks.
type Footer struct {
	MetaIndexHandle Handle
	IndexHandle     Handle
}

// DecodeFooter parses the last FullFooterLength bytes of a table file.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) < FullFooterLength {
		return Footer{}, ErrBadFooter
	}
	data = data[len(data)-FullFooterLength:]

	if !bytes.Equal(data[FooterLength:], magicEncoded[:]) {
		return Footer{}, ErrBadFooter
	}

	metaHandle, rest, err := DecodeHandle(data[:FooterLength])
	if err != nil {
		return Footer{}, ErrBadFooter
	}
	indexHandle, _, err := DecodeHandle(rest)
	if err != nil {
		return Footer{}, ErrBadFooter
	}

	return Footer{MetaIndexHandle: metaHandle, IndexHandle: indexHandle}, nil
}

// EncodeTo returns the FullFooterLength-byte encoding of f.
func (f Footer) EncodeTo() []byte {
	buf := make([]byte, 0, FullFooterLength)
	buf = f.MetaIndexHandle.EncodeTo(buf)
	buf = f.IndexHandle.EncodeTo(buf)

	padded := make([]byte, FullFooterLength)
	copy(padded, buf)
	copy(padded[FooterLength:], magicEncoded[:])
	return padded
}
