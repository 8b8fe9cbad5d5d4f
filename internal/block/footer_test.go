package block

import "testing"

func TestFooterRoundTrip(t *testing.T) {
	f := Footer{
		MetaIndexHandle: Handle{Offset: 100, Size: 50},
		IndexHandle:     Handle{Offset: 150, Size: 200},
	}
	encoded := f.EncodeTo()
	if len(encoded) != FullFooterLength {
		t.Fatalf("EncodeTo length = %d, want %d", len(encoded), FullFooterLength)
	}

	decoded, err := DecodeFooter(encoded)
	if err != nil {
		t.Fatalf("DecodeFooter: %v", err)
	}
	if decoded != f {
		t.Errorf("DecodeFooter = %+v, want %+v", decoded, f)
	}
}

func TestFooterMagicBytes(t *testing.T) {
	f := Footer{MetaIndexHandle: NullHandle, IndexHandle: NullHandle}
	encoded := f.EncodeTo()
	magic := encoded[FooterLength:]
	want := []byte{0x57, 0xfb, 0x80, 0x8b, 0x24, 0x75, 0x47, 0xdb}
	for i := range want {
		if magic[i] != want[i] {
			t.Fatalf("magic bytes = % x, want % x", magic, want)
		}
	}
}

func TestDecodeFooterBadMagic(t *testing.T) {
	f := Footer{MetaIndexHandle: NullHandle, IndexHandle: NullHandle}
	encoded := f.EncodeTo()
	encoded[len(encoded)-1] ^= 0xff

	if _, err := DecodeFooter(encoded); err == nil {
		t.Errorf("expected error for corrupted magic number")
	}
}

func TestDecodeFooterTooShort(t *testing.T) {
	if _, err := DecodeFooter(make([]byte, FullFooterLength-1)); err == nil {
		t.Errorf("expected error for undersized footer")
	}
}
