package checksum

import "testing"

func TestValueKnownVector(t *testing.T) {
	// The empty string's CRC32C is 0 by definition of the algorithm.
	if Value(nil) != 0 {
		t.Errorf("Value(nil) = %d, want 0", Value(nil))
	}
}

func TestExtendMatchesValueOfConcatenation(t *testing.T) {
	a := []byte("hello ")
	b := []byte("world")
	whole := append(append([]byte(nil), a...), b...)

	extended := Extend(Value(a), b)
	if extended != Value(whole) {
		t.Errorf("Extend(Value(a), b) = %d, want Value(a+b) = %d", extended, Value(whole))
	}
}

func TestMaskUnmaskRoundTrip(t *testing.T) {
	crc := Value([]byte("some data"))
	masked := Mask(crc)
	if masked == crc {
		t.Errorf("Mask(crc) should not equal the unmasked crc")
	}
	if Unmask(masked) != crc {
		t.Errorf("Unmask(Mask(crc)) = %d, want %d", Unmask(masked), crc)
	}
}

func TestMaskedValueMatchesMaskOfValue(t *testing.T) {
	data := []byte("payload bytes")
	if MaskedValue(data) != Mask(Value(data)) {
		t.Errorf("MaskedValue != Mask(Value(data))")
	}
}

func TestMaskedExtendMatchesMaskOfExtend(t *testing.T) {
	a := []byte("payload")
	b := []byte{0x00} // compression type byte
	if MaskedExtend(Value(a), b) != Mask(Extend(Value(a), b)) {
		t.Errorf("MaskedExtend != Mask(Extend(initCRC, data))")
	}
}

func TestChecksumDetectsBitFlip(t *testing.T) {
	data := []byte("a block's worth of bytes, more or less")
	want := MaskedValue(data)

	flipped := append([]byte(nil), data...)
	flipped[3] ^= 0x01

	if MaskedValue(flipped) == want {
		t.Errorf("a single bit flip should change the checksum")
	}
}
