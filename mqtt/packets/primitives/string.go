/*
 * MIT License
 *
 * Copyright (c) 2022 waj334
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package primitives

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrStringTooLong is returned when a string or binary blob exceeds
	// the 65,535-byte limit imposed by the u16 length prefix.
	ErrStringTooLong = errors.New("primitives: value exceeds 65535 bytes")
	// ErrInvalidUTF8 is returned when a UTF-8 Encoded String is not
	// well-formed UTF-8 or contains a U+0000 code point, both of which
	// MQTT forbids.
	ErrInvalidUTF8 = errors.New("primitives: invalid MQTT UTF-8 string")
)

// StringSize returns the encoded size (length prefix + bytes) of s.
func StringSize(s string) int { return 2 + len(s) }

// AppendString writes a u16-length-prefixed UTF-8 string.
func AppendString(w *ScatterWriter, s string) error {
	if len(s) > 0xFFFF {
		return ErrStringTooLong
	}
	if err := AppendUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// DecodeString reads a u16-length-prefixed UTF-8 string and validates it:
// well-formed UTF-8 and free of U+0000, per the MQTT "UTF-8 Encoded
// String" data type.
func DecodeString(r *Reader) (string, error) {
	n, err := DecodeUint16(r)
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	for _, c := range b {
		if c == 0 {
			return "", ErrInvalidUTF8
		}
	}
	return string(b), nil
}

// BinarySize returns the encoded size (length prefix + bytes) of b.
func BinarySize(b []byte) int { return 2 + len(b) }

// AppendBinary writes a u16-length-prefixed binary blob.
func AppendBinary(w *ScatterWriter, b []byte) error {
	if len(b) > 0xFFFF {
		return ErrStringTooLong
	}
	if err := AppendUint16(w, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// DecodeBinary reads a u16-length-prefixed binary blob, copying it out of
// the source buffer so the result outlives the next recv() call.
func DecodeBinary(r *Reader) ([]byte, error) {
	n, err := DecodeUint16(r)
	if err != nil {
		return nil, err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
