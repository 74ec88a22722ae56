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

// Unsubscribe is the UNSUBSCRIBE control packet.
type Unsubscribe struct {
	Version    Version
	PacketID   uint16
	Properties Properties
	Topics     []Topic
}

func (u *Unsubscribe) AddTopic(topic Topic) *Unsubscribe {
	u.Topics = append(u.Topics, topic)
	return u
}

func (u *Unsubscribe) bodySize() int {
	size := 2
	if u.Version == Version5 {
		propsLen := u.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	for i := range u.Topics {
		size += primitives.StringSize(u.Topics[i].filter)
	}
	return size
}

func (u *Unsubscribe) EncodedSize() int {
	body := u.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

// AppendTo encodes the packet. SPEC [MQTT-3.10.3-2]: the payload must
// contain at least one Topic Filter.
func (u *Unsubscribe) AppendTo(w *primitives.ScatterWriter) error {
	if len(u.Topics) == 0 {
		return ErrControlPacketIsMalformed
	}
	body := u.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(UNSUBSCRIBE)
	// SPEC [MQTT-3.10.1-1]: reserved flag bits are fixed at 0b0010.
	fh.SetFlags(0x02)
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
	}
	for i := range u.Topics {
		if err := primitives.AppendString(w, u.Topics[i].filter); err != nil {
			return err
		}
	}
	return nil
}

// DecodeUnsubscribe parses an UNSUBSCRIBE body.
func DecodeUnsubscribe(fh FixedHeader, version Version, r *primitives.Reader) (Unsubscribe, error) {
	u := Unsubscribe{Version: version}
	bodyEnd := r.Pos() + int(fh.Remaining)

	var err error
	u.PacketID, err = primitives.DecodeUint16(r)
	if err != nil {
		return u, err
	}
	if version == Version5 {
		u.Properties, err = DecodeProperties(r, AllowedUnsubscribe)
		if err != nil {
			return u, err
		}
	}
	for r.Pos() < bodyEnd {
		filter, err := primitives.DecodeString(r)
		if err != nil {
			return u, err
		}
		u.Topics = append(u.Topics, Topic{filter: filter})
	}
	if len(u.Topics) == 0 {
		return u, ErrControlPacketIsMalformed
	}
	return u, nil
}
