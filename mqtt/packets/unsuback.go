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

package packets

import (
	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// Unsuback is the UNSUBACK control packet. It carries no payload in
// v3.1.1 (only the packet identifier); v5 adds a reason code per filter,
// mirroring Suback's shape.
type Unsuback struct {
	Version     Version
	PacketID    uint16
	Properties  Properties
	ReasonCodes []byte
}

func (u *Unsuback) bodySize() int {
	size := 2
	if u.Version == Version5 {
		propsLen := u.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
		size += len(u.ReasonCodes)
	}
	return size
}

func (u *Unsuback) EncodedSize() int {
	body := u.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

func (u *Unsuback) AppendTo(w *primitives.ScatterWriter) error {
	body := u.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(UNSUBACK)
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if err := primitives.AppendUint16(w, u.PacketID); err != nil {
		return err
	}
	if u.Version == Version5 {
		if err := u.Properties.AppendTo(w); err != nil {
			return err
		}
		for _, rc := range u.ReasonCodes {
			if err := primitives.AppendByte(w, rc); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeUnsuback parses an UNSUBACK body.
func DecodeUnsuback(fh FixedHeader, version Version, r *primitives.Reader) (Unsuback, error) {
	u := Unsuback{Version: version}
	bodyEnd := r.Pos() + int(fh.Remaining)

	var err error
	u.PacketID, err = primitives.DecodeUint16(r)
	if err != nil {
		return u, err
	}
	if version == Version5 {
		u.Properties, err = DecodeProperties(r, AllowedUnsuback)
		if err != nil {
			return u, err
		}
		n := bodyEnd - r.Pos()
		if n > 0 {
			codes, err := r.Bytes(n)
			if err != nil {
				return u, err
			}
			u.ReasonCodes = make([]byte, n)
			copy(u.ReasonCodes, codes)
		}
	}
	return u, nil
}
