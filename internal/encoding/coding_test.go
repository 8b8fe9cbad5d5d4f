package encoding

import "testing"

func TestFixedRoundTrip(t *testing.T) {
	buf32 := make([]byte, 4)
	EncodeFixed32(buf32, 0xdeadbeef)
	if DecodeFixed32(buf32) != 0xdeadbeef {
		t.Errorf("Fixed32 round trip failed")
	}

	buf64 := make([]byte, 8)
	EncodeFixed64(buf64, 0x0102030405060708)
	if DecodeFixed64(buf64) != 0x0102030405060708 {
		t.Errorf("Fixed64 round trip failed")
	}

	buf16 := make([]byte, 2)
	EncodeFixed16(buf16, 0xabcd)
	if DecodeFixed16(buf16) != 0xabcd {
		t.Errorf("Fixed16 round trip failed")
	}
}

func TestVarint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 1 << 28, 0xffffffff}
	for _, v := range values {
		var buf [MaxVarint32Length]byte
		n := EncodeVarint32(buf[:], v)
		got, read, err := DecodeVarint32(buf[:n])
		if err != nil {
			t.Fatalf("DecodeVarint32(%d): %v", v, err)
		}
		if got != v || read != n {
			t.Errorf("varint32(%d) round trip = (%d, %d), want (%d, %d)", v, got, read, v, n)
		}
	}
}

func TestVarint64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 1 << 33, 1 << 56, 0xffffffffffffffff}
	for _, v := range values {
		var buf [MaxVarint64Length]byte
		n := EncodeVarint64(buf[:], v)
		got, read, err := DecodeVarint64(buf[:n])
		if err != nil {
			t.Fatalf("DecodeVarint64(%d): %v", v, err)
		}
		if got != v || read != n {
			t.Errorf("varint64(%d) round trip = (%d, %d), want (%d, %d)", v, got, read, v, n)
		}
	}
}

func TestVarintLengthMatchesEncodedSize(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 1 << 20, 1 << 40, 0xffffffffffffffff}
	for _, v := range values {
		var buf [MaxVarint64Length]byte
		n := EncodeVarint64(buf[:], v)
		if got := VarintLength(v); got != n {
			t.Errorf("VarintLength(%d) = %d, want %d", v, got, n)
		}
	}
}

func TestDecodeVarintTruncated(t *testing.T) {
	bad := []byte{0x80, 0x80, 0x80} // all continuation bits set, never terminates
	if _, _, err := DecodeVarint32(bad); err == nil {
		t.Errorf("expected error decoding a truncated varint32")
	}
	if _, _, err := DecodeVarint64(bad); err == nil {
		t.Errorf("expected error decoding a truncated varint64")
	}
}

func TestLengthPrefixedSliceRoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendLengthPrefixedSlice(buf, []byte("hello world"))

	got, n, err := DecodeLengthPrefixedSlice(buf)
	if err != nil {
		t.Fatalf("DecodeLengthPrefixedSlice: %v", err)
	}
	if string(got) != "hello world" || n != len(buf) {
		t.Errorf("got (%q, %d), want (%q, %d)", got, n, "hello world", len(buf))
	}
}

func TestLengthPrefixedSliceTooShort(t *testing.T) {
	buf := AppendVarint32(nil, 10) // claims 10 bytes follow, but none do
	if _, _, err := DecodeLengthPrefixedSlice(buf); err == nil {
		t.Errorf("expected ErrBufferTooSmall")
	}
}

func TestSliceSequentialReads(t *testing.T) {
	var buf []byte
	buf = AppendFixed32(buf, 42)
	buf = AppendVarint64(buf, 9999)
	buf = AppendLengthPrefixedSlice(buf, []byte("tail"))

	s := NewSlice(buf)
	fixed, ok := s.GetFixed32()
	if !ok || fixed != 42 {
		t.Fatalf("GetFixed32() = (%d, %v), want (42, true)", fixed, ok)
	}
	v, ok := s.GetVarint64()
	if !ok || v != 9999 {
		t.Fatalf("GetVarint64() = (%d, %v), want (9999, true)", v, ok)
	}
	tail, ok := s.GetLengthPrefixedSlice()
	if !ok || string(tail) != "tail" {
		t.Fatalf("GetLengthPrefixedSlice() = (%q, %v), want (tail, true)", tail, ok)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", s.Remaining())
	}
}

func TestSliceGetBytesBoundsCheck(t *testing.T) {
	s := NewSlice([]byte("abc"))
	if _, ok := s.GetBytes(10); ok {
		t.Errorf("GetBytes(10) on a 3-byte slice should fail")
	}
	got, ok := s.GetBytes(3)
	if !ok || string(got) != "abc" {
		t.Errorf("GetBytes(3) = (%q, %v), want (abc, true)", got, ok)
	}
}
