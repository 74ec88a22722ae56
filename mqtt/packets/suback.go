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

// Suback is the SUBACK control packet: one reason code per SUBSCRIBE
// topic filter, in the same order.
type Suback struct {
	Version     Version
	PacketID    uint16
	Properties  Properties
	ReasonCodes []byte
}

func (s *Suback) bodySize() int {
	size := 2
	if s.Version == Version5 {
		propsLen := s.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	size += len(s.ReasonCodes)
	return size
}

func (s *Suback) EncodedSize() int {
	body := s.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

func (s *Suback) AppendTo(w *primitives.ScatterWriter) error {
	if len(s.ReasonCodes) == 0 {
		return ErrControlPacketIsMalformed
	}
	body := s.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(SUBACK)
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if err := primitives.AppendUint16(w, s.PacketID); err != nil {
		return err
	}
	if s.Version == Version5 {
		if err := s.Properties.AppendTo(w); err != nil {
			return err
		}
	}
	for _, rc := range s.ReasonCodes {
		if err := primitives.AppendByte(w, rc); err != nil {
			return err
		}
	}
	return nil
}

// DecodeSuback parses a SUBACK body.
func DecodeSuback(fh FixedHeader, version Version, r *primitives.Reader) (Suback, error) {
	s := Suback{Version: version}
	bodyEnd := r.Pos() + int(fh.Remaining)

	var err error
	s.PacketID, err = primitives.DecodeUint16(r)
	if err != nil {
		return s, err
	}
	if version == Version5 {
		s.Properties, err = DecodeProperties(r, AllowedSuback)
		if err != nil {
			return s, err
		}
	}
	n := bodyEnd - r.Pos()
	if n <= 0 {
		return s, ErrControlPacketIsMalformed
	}
	codes, err := r.Bytes(n)
	if err != nil {
		return s, err
	}
	s.ReasonCodes = make([]byte, n)
	copy(s.ReasonCodes, codes)
	return s, nil
}
