package primitives

import "testing"

// FuzzDecodeVarInt checks that the decoder never panics on arbitrary input
// and that anything it accepts is at most MaxVarInt and re-encodes without
// error. The re-encoded size is not compared: a non-minimal input such as
// 0x80 0x00 decodes to 0, which re-encodes in one byte.
func FuzzDecodeVarInt(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x7f})
	f.Add([]byte{0x80, 0x01})
	f.Add([]byte{0xff, 0x7f})
	f.Add([]byte{0xff, 0xff, 0xff, 0x7f})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})
	f.Add([]byte{0x80})

	f.Fuzz(func(t *testing.T, data []byte) {
		v, err := DecodeVarInt(NewReader(data))
		if err != nil {
			return
		}
		if v > MaxVarInt {
			t.Fatalf("decoded %d exceeds MaxVarInt", v)
		}
		w := &ScatterWriter{}
		if err := AppendVarInt(w, v); err != nil {
			t.Fatalf("re-encode %d: %v", v, err)
		}
	})
}

// FuzzDecodeString checks the UTF-8 Encoded String decoder never panics and
// that every accepted string is free of embedded NUL bytes.
func FuzzDecodeString(f *testing.F) {
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0x00, 0x04, 'M', 'Q', 'T', 'T'})
	f.Add([]byte{0x00, 0x01, 0x00})
	f.Add([]byte{0x00, 0x01, 0xff})
	f.Add([]byte{0x00, 0x05})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := DecodeString(NewReader(data))
		if err != nil {
			return
		}
		for _, c := range []byte(s) {
			if c == 0 {
				t.Fatalf("accepted string contains NUL: %q", s)
			}
		}
	})
}

// FuzzDecodeBinary checks the binary blob decoder never panics.
func FuzzDecodeBinary(f *testing.F) {
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0x00, 0x04, 0x01, 0x02, 0x03, 0x04})
	f.Add([]byte{0x00, 0x05})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeBinary(NewReader(data))
	})
}
