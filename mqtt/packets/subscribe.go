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

// Subscribe is the SUBSCRIBE control packet.
type Subscribe struct {
	Version    Version
	PacketID   uint16
	Properties Properties
	Topics     []Topic
}

// AddTopic appends a (filter, options) entry to the payload.
func (s *Subscribe) AddTopic(topic Topic) *Subscribe {
	s.Topics = append(s.Topics, topic)
	return s
}

func (s *Subscribe) bodySize() int {
	size := 2 // packet identifier
	if s.Version == Version5 {
		propsLen := s.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	for i := range s.Topics {
		size += s.Topics[i].EncodedSize()
	}
	return size
}

func (s *Subscribe) EncodedSize() int {
	body := s.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

// AppendTo encodes the packet. SPEC [MQTT-3.8.3-2]: the payload must
// contain at least one Topic Filter.
func (s *Subscribe) AppendTo(w *primitives.ScatterWriter) error {
	if len(s.Topics) == 0 {
		return ErrControlPacketIsMalformed
	}
	body := s.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(SUBSCRIBE)
	// SPEC [MQTT-3.8.1-1]: reserved flag bits are fixed at 0b0010.
	fh.SetFlags(0x02)
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
	for i := range s.Topics {
		if err := s.Topics[i].AppendTo(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeSubscribe parses a SUBSCRIBE body.
func DecodeSubscribe(fh FixedHeader, version Version, r *primitives.Reader) (Subscribe, error) {
	s := Subscribe{Version: version}
	bodyEnd := r.Pos() + int(fh.Remaining)

	var err error
	s.PacketID, err = primitives.DecodeUint16(r)
	if err != nil {
		return s, err
	}
	if version == Version5 {
		s.Properties, err = DecodeProperties(r, AllowedSubscribe)
		if err != nil {
			return s, err
		}
	}
	for r.Pos() < bodyEnd {
		t, err := DecodeTopic(r)
		if err != nil {
			return s, err
		}
		s.Topics = append(s.Topics, t)
	}
	if len(s.Topics) == 0 {
		return s, ErrControlPacketIsMalformed
	}
	return s, nil
}
