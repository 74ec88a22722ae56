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

import "errors"

// ErrVarIntOverflow indicates a variable byte integer with a 5th
// continuation byte on decode, or a value above MaxVarInt on encode.
var ErrVarIntOverflow = errors.New("primitives: variable byte integer overflow")

// MaxVarInt is the largest value a 4-byte MQTT variable byte integer can
// encode (0x7F_FF_FF_FF on the wire, 268,435,455 decoded).
const MaxVarInt = 268_435_455

// VarIntSize returns the number of bytes v would occupy when encoded, or 0
// if v exceeds MaxVarInt.
func VarIntSize(v uint32) int {
	switch {
	case v < 128:
		return 1
	case v < 16_384:
		return 2
	case v < 2_097_152:
		return 3
	case v <= MaxVarInt:
		return 4
	default:
		return 0
	}
}

// AppendVarInt encodes v as a variable byte integer.
func AppendVarInt(w *ScatterWriter, v uint32) error {
	if v > MaxVarInt {
		return ErrVarIntOverflow
	}
	for {
		digit := byte(v % 128)
		v /= 128
		if v > 0 {
			digit |= 0x80
		}
		if err := w.WriteByte(digit); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// DecodeVarInt reads a variable byte integer. It returns ErrShortBuffer if
// the buffer ends before a terminating byte is seen, and ErrVarIntOverflow
// on a 5th continuation byte.
func DecodeVarInt(r *Reader) (uint32, error) {
	var value uint32
	var multiplier uint32
	for i := 0; i < 4; i++ {
		b, err := r.Byte()
		if err != nil {
			return 0, err
		}
		value |= uint32(b&0x7F) << multiplier
		if b&0x80 == 0 {
			return value, nil
		}
		multiplier += 7
	}
	return 0, ErrVarIntOverflow
}
